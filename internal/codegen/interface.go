package codegen

import (
	"fmt"

	"github.com/winmdgen/winmdgen/internal/diag"
	"github.com/winmdgen/winmdgen/internal/resolver"
	"github.com/winmdgen/winmdgen/internal/signature"
	"github.com/winmdgen/winmdgen/internal/winmd"
)

// ifaceMethod is one vtable slot: the method, its decoded signature, and
// the generic bindings of the interface that declared it.
type ifaceMethod struct {
	name string
	slot string
	sig  signature.MethodSig
	args []signature.Type
}

// emitInterface renders an interface projection: identity constant, method
// table in inheritance order, and, in wrapped style, call-through methods
// translating HRESULT failures into errors.
func (g *Generator) emitInterface(entry *resolver.Type) *diag.Error {
	name := entryGoName(entry)
	rt := g.m.use(g.cfg.runtimeModule())

	methods, err := g.vtableMethods(entry)
	if err != nil {
		return err
	}

	g.writeLine("// %s is the %s interface projection.", name, entry.Key())
	g.writeLine("type %s struct {", name)
	g.indent++
	g.writeLine("%s.IInspectable", rt)
	g.indent--
	g.writeLine("}")
	g.writeLine("")

	id, hasID, err := signature.TypeGuid(entry.Def)
	if err != nil {
		return err
	}
	if hasID {
		g.writeLine("// IID_%s is the interface identifier of %s.", name, name)
		g.writeLine("var IID_%s = %s.MustParseGUID(%q)", name, rt, id.String())
		g.writeLine("")
	}

	g.writeLine("// %sVtbl is the %s method table, base interfaces first.", name, name)
	g.writeLine("type %sVtbl struct {", name)
	g.indent++
	g.writeLine("%s.IInspectableVtbl", rt)
	for _, m := range methods {
		g.writeLine("%s uintptr", m.slot)
	}
	g.indent--
	g.writeLine("}")
	g.writeLine("")

	g.writeLine("func (v *%s) VTable() *%sVtbl {", name, name)
	g.indent++
	g.writeLine("return (*%sVtbl)(%s.Pointer(v.RawVTable))", name, g.m.use("unsafe"))
	g.indent--
	g.writeLine("}")
	g.writeLine("")

	if g.cfg.Style == StyleWrapped {
		for _, m := range methods {
			if err := g.emitCallThrough(name, m); err != nil {
				return err
			}
		}
	}
	if g.cfg.Scaffolding && g.cfg.Style == StyleWrapped {
		if err := g.emitInterfaceStub(name, methods); err != nil {
			return err
		}
	}
	return nil
}

// vtableMethods walks the inheritance chain depth-first, base interfaces
// before the declaring interface, and returns the vtable slots in order.
// Overloaded names get numeric suffixes so every slot is a distinct field.
func (g *Generator) vtableMethods(entry *resolver.Type) ([]ifaceMethod, *diag.Error) {
	var out []ifaceMethod
	seen := make(map[string]bool)
	slotNames := make(map[string]int)

	var walk func(t *resolver.Type) *diag.Error
	walk = func(t *resolver.Type) *diag.Error {
		if seen[t.Key()] {
			return nil
		}
		seen[t.Key()] = true

		for _, impl := range t.Def.InterfaceImpls() {
			base, err := g.baseEntry(t, impl)
			if err != nil {
				return err
			}
			if base == nil {
				continue
			}
			if err := walk(base); err != nil {
				return err
			}
		}

		for _, method := range t.Def.Methods() {
			mname, err := method.Name()
			if err != nil {
				return err
			}
			blob, err := method.Signature()
			if err != nil {
				return err
			}
			sig, err := signature.DecodeMethod(t.File, blob)
			if err != nil {
				return err
			}
			slot := exportName(mname)
			slotNames[slot]++
			if n := slotNames[slot]; n > 1 {
				slot = fmt.Sprintf("%s%d", slot, n)
			}
			out = append(out, ifaceMethod{
				name: exportName(mname),
				slot: slot,
				sig:  sig,
				args: t.GenericArgs,
			})
		}
		return nil
	}
	if err := walk(entry); err != nil {
		return nil, err
	}
	return out, nil
}

// baseEntry resolves one InterfaceImpl row to its TypeSet entry. Bases
// outside the set (external or runtime-provided) contribute no slots.
func (g *Generator) baseEntry(t *resolver.Type, impl winmd.InterfaceImpl) (*resolver.Type, *diag.Error) {
	iface, err := impl.Interface()
	if err != nil {
		return nil, err
	}
	if iface.Table == winmd.TableTypeSpec {
		row, err := t.File.Resolve(iface)
		if err != nil {
			return nil, err
		}
		blob, err := winmd.TypeSpec{Row: row}.Signature()
		if err != nil {
			return nil, err
		}
		decoded, err := signature.DecodeTypeSpec(t.File, blob)
		if err != nil {
			return nil, err
		}
		inst, ok := decoded.(signature.GenericInst)
		if !ok {
			return nil, nil
		}
		// Bind the declaring interface's generic arguments into the base
		// instantiation before keying into the set.
		args := make([]signature.Type, len(inst.Args))
		for i, a := range inst.Args {
			if gp, ok := a.(signature.GenericParam); ok && !gp.Method && int(gp.Index) < len(t.GenericArgs) {
				args[i] = t.GenericArgs[gp.Index]
				continue
			}
			args[i] = a
		}
		if base, ok := g.m.lookupEntry(inst.Def.Name, args); ok {
			return base, nil
		}
		return nil, nil
	}
	row, err := t.File.Resolve(iface)
	if err != nil {
		return nil, err
	}
	var name winmd.TypeName
	if iface.Table == winmd.TableTypeDef {
		name, err = winmd.TypeDef{Row: row}.TypeName()
	} else {
		name, err = winmd.TypeRef{Row: row}.TypeName()
	}
	if err != nil {
		return nil, err
	}
	if base, ok := g.m.lookupEntry(name, nil); ok {
		return base, nil
	}
	return nil, nil
}

// emitCallThrough renders one wrapped method: inputs become call
// arguments, the return value becomes a trailing out pointer, and a
// failing HRESULT becomes an error.
func (g *Generator) emitCallThrough(recv string, m ifaceMethod) *diag.Error {
	g.m.args = m.args
	defer func() { g.m.args = nil }()

	params, err := g.paramList(m.sig)
	if err != nil {
		return err
	}
	retType, err := g.m.goType(m.sig.Return)
	if err != nil {
		return err
	}

	unsafePkg := g.m.use("unsafe")
	syscallPkg := g.m.use("syscall")
	rt := g.m.use(g.cfg.runtimeModule())

	if retType == "" {
		g.writeLine("func (v *%s) %s(%s) error {", recv, m.name, params)
	} else {
		g.writeLine("func (v *%s) %s(%s) (%s, error) {", recv, m.name, params, retType)
	}
	g.indent++

	callArgs := []string{
		fmt.Sprintf("uintptr(%s.Pointer(v))", unsafePkg),
	}
	for i, p := range m.sig.Params {
		arg, err := g.callArg(paramName(i), p)
		if err != nil {
			return err
		}
		callArgs = append(callArgs, arg)
	}
	if retType != "" {
		g.writeLine("var out %s", retType)
		callArgs = append(callArgs, fmt.Sprintf("uintptr(%s.Pointer(&out))", unsafePkg))
	}

	g.writeLine("hr, _, _ := %s.SyscallN(v.VTable().%s, %s)", syscallPkg, m.slot, joinArgs(callArgs))
	g.writeLine("if hr != 0 {")
	g.indent++
	if retType == "" {
		g.writeLine("return %s.NewHResultError(hr)", rt)
	} else {
		g.writeLine("return out, %s.NewHResultError(hr)", rt)
	}
	g.indent--
	g.writeLine("}")
	if retType == "" {
		g.writeLine("return nil")
	} else {
		g.writeLine("return out, nil")
	}
	g.indent--
	g.writeLine("}")
	g.writeLine("")
	return nil
}

// emitInterfaceStub renders the scaffolding skeleton for hand-written
// implementations.
func (g *Generator) emitInterfaceStub(name string, methods []ifaceMethod) *diag.Error {
	rt := g.m.use(g.cfg.runtimeModule())

	g.writeLine("// %sStub is a scaffold for implementing %s; every method", name, name)
	g.writeLine("// reports not-implemented until overridden.")
	g.writeLine("type %sStub struct{}", name)
	g.writeLine("")
	for _, m := range methods {
		g.m.args = m.args
		params, err := g.paramList(m.sig)
		if err != nil {
			g.m.args = nil
			return err
		}
		retType, err := g.m.goType(m.sig.Return)
		g.m.args = nil
		if err != nil {
			return err
		}
		if retType == "" {
			g.writeLine("func (%sStub) %s(%s) error {", name, m.name, params)
			g.indent++
			g.writeLine("return %s.ErrNotImplemented", rt)
		} else {
			g.writeLine("func (%sStub) %s(%s) (%s, error) {", name, m.name, params, retType)
			g.indent++
			g.writeLine("var out %s", retType)
			g.writeLine("return out, %s.ErrNotImplemented", rt)
		}
		g.indent--
		g.writeLine("}")
		g.writeLine("")
	}
	return nil
}

// paramList renders the Go parameter list of a method signature.
func (g *Generator) paramList(sig signature.MethodSig) (string, *diag.Error) {
	parts := make([]string, 0, len(sig.Params))
	for i, p := range sig.Params {
		goType, err := g.m.goType(p)
		if err != nil {
			return "", err
		}
		parts = append(parts, paramName(i)+" "+goType)
	}
	return joinArgs(parts), nil
}

func paramName(i int) string {
	return fmt.Sprintf("p%d", i)
}

func joinArgs(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}

// callArg lowers one Go parameter to a uintptr call argument.
func (g *Generator) callArg(name string, t signature.Type) (string, *diag.Error) {
	switch v := t.(type) {
	case signature.Primitive:
		switch v.Kind {
		case signature.Bool, signature.Float32, signature.Float64:
			return g.m.rt("Arg") + "(" + name + ")", nil
		case signature.Object:
			return "uintptr(" + g.m.use("unsafe") + ".Pointer(" + name + "))", nil
		}
		return "uintptr(" + name + ")", nil
	case signature.Pointer, signature.ByRef:
		return "uintptr(" + g.m.use("unsafe") + ".Pointer(" + name + "))", nil
	case signature.Named:
		if entry, ok := g.m.lookupEntry(v.Name, nil); ok {
			switch entry.Category {
			case resolver.CategoryEnum:
				return "uintptr(" + name + ")", nil
			case resolver.CategoryStruct:
				return g.m.rt("Arg") + "(" + name + ")", nil
			}
			return "uintptr(" + g.m.use("unsafe") + ".Pointer(" + name + "))", nil
		}
		if v.IsValueType {
			return g.m.rt("Arg") + "(" + name + ")", nil
		}
		return "uintptr(" + g.m.use("unsafe") + ".Pointer(" + name + "))", nil
	case signature.GenericInst:
		return "uintptr(" + g.m.use("unsafe") + ".Pointer(" + name + "))", nil
	case signature.GenericParam:
		if !v.Method && int(v.Index) < len(g.m.args) {
			return g.callArg(name, g.m.args[v.Index])
		}
		return "", diag.New(diag.CodeUnsupportedCategory, diag.CategoryEmission,
			"unbound generic parameter %s reached the emitter", v)
	case signature.SZArray, signature.Array:
		return g.m.rt("Arg") + "(" + name + ")", nil
	case signature.FuncPtr:
		return "uintptr(" + name + ")", nil
	}
	return "", diag.New(diag.CodeUnsupportedCategory, diag.CategoryEmission,
		"cannot lower %s to a call argument", t)
}
