package codegen

import (
	"fmt"
	"strings"

	"github.com/winmdgen/winmdgen/internal/diag"
	"github.com/winmdgen/winmdgen/internal/resolver"
	"github.com/winmdgen/winmdgen/internal/signature"
	"github.com/winmdgen/winmdgen/internal/winmd"
)

// emitClass renders a runtime class, or, for static API containers whose
// methods are all platform imports, a set of free function wrappers.
func (g *Generator) emitClass(entry *resolver.Type) *diag.Error {
	methods := entry.Def.Methods()
	var imports []winmd.MethodDef
	for _, m := range methods {
		if _, ok := m.ImportDescriptor(); ok {
			imports = append(imports, m)
		}
	}
	if len(imports) > 0 {
		return g.emitProcs(entry, imports)
	}
	return g.emitRuntimeClass(entry)
}

// emitRuntimeClass renders the activation-backed projection of a class.
func (g *Generator) emitRuntimeClass(entry *resolver.Type) *diag.Error {
	name := entryGoName(entry)
	rt := g.m.use(g.cfg.runtimeModule())
	unsafePkg := g.m.use("unsafe")

	g.writeLine("// %s is the %s runtime class projection.", name, entry.Key())
	g.writeLine("type %s struct {", name)
	g.indent++
	g.writeLine("%s.IInspectable", rt)
	g.indent--
	g.writeLine("}")
	g.writeLine("")

	if entry.Def.IsDefaultActivatable() {
		g.writeLine("// New%s activates a %s instance through the platform activation", name, name)
		g.writeLine("// factory.")
		g.writeLine("func New%s() (*%s, error) {", name, name)
		g.indent++
		g.writeLine("inst, err := %s.ActivateInstance(%q)", rt, entry.Name.String())
		g.writeLine("if err != nil {")
		g.indent++
		g.writeLine("return nil, err")
		g.indent--
		g.writeLine("}")
		g.writeLine("return (*%s)(%s.Pointer(inst)), nil", name, unsafePkg)
		g.indent--
		g.writeLine("}")
		g.writeLine("")
	}

	for _, impl := range entry.Def.InterfaceImpls() {
		base, err := g.baseEntry(entry, impl)
		if err != nil {
			return err
		}
		if base == nil {
			continue
		}
		ifaceName := entryGoName(base)
		g.writeLine("// As%s casts the instance to its %s interface.", ifaceName, ifaceName)
		g.writeLine("func (v *%s) As%s() *%s {", name, ifaceName, ifaceName)
		g.indent++
		g.writeLine("return (*%s)(%s.Pointer(v))", ifaceName, unsafePkg)
		g.indent--
		g.writeLine("}")
		g.writeLine("")
	}
	return nil
}

// emitProcs renders platform-import methods as free functions over lazily
// loaded procs.
func (g *Generator) emitProcs(entry *resolver.Type, methods []winmd.MethodDef) *diag.Error {
	syscallPkg := g.m.use("syscall")

	type proc struct {
		goName     string
		importName string
		lib        string
		sig        signature.MethodSig
	}
	procs := make([]proc, 0, len(methods))
	libs := make(map[string]string) // dll name -> mod var
	var libOrder []string
	for _, m := range methods {
		imp, _ := m.ImportDescriptor()
		importName, err := imp.ImportName()
		if err != nil {
			return err
		}
		scope, ok := imp.ImportScope()
		if !ok {
			return diag.New(diag.CodeUnsupportedCategory, diag.CategoryEmission,
				"import %s names no module", importName)
		}
		lib, err := scope.Name()
		if err != nil {
			return err
		}
		mname, err := m.Name()
		if err != nil {
			return err
		}
		blob, err := m.Signature()
		if err != nil {
			return err
		}
		sig, err := signature.DecodeMethod(entry.File, blob)
		if err != nil {
			return err
		}
		if _, seen := libs[lib]; !seen {
			libs[lib] = "mod" + identFrom(lib)
			libOrder = append(libOrder, lib)
		}
		procs = append(procs, proc{
			goName:     exportName(mname),
			importName: importName,
			lib:        lib,
			sig:        sig,
		})
	}

	g.writeLine("var (")
	g.indent++
	for _, lib := range libOrder {
		g.writeLine("%s = %s.NewLazyDLL(%q)", libs[lib], syscallPkg, lib)
	}
	for _, p := range procs {
		g.writeLine("proc%s = %s.NewProc(%q)", p.goName, libs[p.lib], p.importName)
	}
	g.indent--
	g.writeLine(")")
	g.writeLine("")

	for _, p := range procs {
		params, err := g.paramList(p.sig)
		if err != nil {
			return err
		}
		retType, err := g.m.goType(p.sig.Return)
		if err != nil {
			return err
		}

		g.writeLine("// %s calls the %s export of %s.", p.goName, p.importName, p.lib)
		if retType == "" {
			g.writeLine("func %s(%s) {", p.goName, params)
		} else {
			g.writeLine("func %s(%s) %s {", p.goName, params, retType)
		}
		g.indent++

		callArgs := make([]string, 0, len(p.sig.Params))
		for i, param := range p.sig.Params {
			arg, err := g.callArg(paramName(i), param)
			if err != nil {
				return err
			}
			callArgs = append(callArgs, arg)
		}
		call := fmt.Sprintf("proc%s.Call(%s)", p.goName, joinArgs(callArgs))
		if retType == "" {
			g.writeLine("%s", call)
		} else {
			g.writeLine("r0, _, _ := %s", call)
			ret, err := g.procReturn(retType, p.sig.Return)
			if err != nil {
				return err
			}
			g.writeLine("return %s", ret)
		}
		g.indent--
		g.writeLine("}")
		g.writeLine("")
	}
	return nil
}

// procReturn converts the raw r0 register value to the declared return
// type.
func (g *Generator) procReturn(retType string, ret signature.Type) (string, *diag.Error) {
	if prim, ok := ret.(signature.Primitive); ok {
		switch prim.Kind {
		case signature.Bool:
			return "r0 != 0", nil
		case signature.Float32:
			return fmt.Sprintf("%s.Float32frombits(uint32(r0))", g.m.use("math")), nil
		case signature.Float64:
			return fmt.Sprintf("%s.Float64frombits(uint64(r0))", g.m.use("math")), nil
		}
	}
	if strings.HasPrefix(retType, "*") {
		return fmt.Sprintf("(%s)(%s.Pointer(r0))", retType, g.m.use("unsafe")), nil
	}
	if strings.HasPrefix(retType, "[]") {
		return "", diag.New(diag.CodeUnsupportedCategory, diag.CategoryEmission,
			"platform import cannot return a slice")
	}
	return fmt.Sprintf("%s(r0)", retType), nil
}

// identFrom turns a module file name like widget.dll into an identifier
// fragment like Widget.
func identFrom(lib string) string {
	base := lib
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	var sb strings.Builder
	upper := true
	for _, r := range base {
		if r == '-' || r == '_' {
			upper = true
			continue
		}
		if upper {
			sb.WriteString(strings.ToUpper(string(r)))
			upper = false
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
