package codegen

import (
	"fmt"

	"github.com/winmdgen/winmdgen/internal/diag"
	"github.com/winmdgen/winmdgen/internal/resolver"
	"github.com/winmdgen/winmdgen/internal/signature"
)

// emitDelegate renders a delegate: the native call table, a wrapped Invoke
// call-through, and a reverse adapter that exposes a Go func through the
// native table.
func (g *Generator) emitDelegate(entry *resolver.Type) *diag.Error {
	name := entryGoName(entry)
	rt := g.m.use(g.cfg.runtimeModule())

	invoke, err := g.delegateInvoke(entry)
	if err != nil {
		return err
	}

	g.writeLine("// %s is the %s delegate projection.", name, entry.Key())
	g.writeLine("type %s struct {", name)
	g.indent++
	g.writeLine("%s.IUnknown", rt)
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

	g.writeLine("// %sVtbl is the %s call table.", name, name)
	g.writeLine("type %sVtbl struct {", name)
	g.indent++
	g.writeLine("%s.IUnknownVtbl", rt)
	g.writeLine("Invoke uintptr")
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
		if err := g.emitCallThrough(name, invoke); err != nil {
			return err
		}
	}

	// Reverse adapter: the runtime builds a native call table around the
	// Go func and hands back an object the native side can invoke.
	fnType, err := g.delegateFuncType(invoke)
	if err != nil {
		return err
	}
	g.writeLine("// New%s exposes fn as a native callable %s.", name, name)
	g.writeLine("func New%s(fn %s) *%s {", name, fnType, name)
	g.indent++
	if hasID {
		g.writeLine("return (*%s)(%s.NewDelegate(&IID_%s, fn))", name, rt, name)
	} else {
		g.writeLine("return (*%s)(%s.NewDelegate(nil, fn))", name, rt)
	}
	g.indent--
	g.writeLine("}")
	g.writeLine("")
	return nil
}

// delegateInvoke finds and decodes the delegate's Invoke method.
func (g *Generator) delegateInvoke(entry *resolver.Type) (ifaceMethod, *diag.Error) {
	for _, method := range entry.Def.Methods() {
		mname, err := method.Name()
		if err != nil {
			return ifaceMethod{}, err
		}
		if mname != "Invoke" {
			continue
		}
		blob, err := method.Signature()
		if err != nil {
			return ifaceMethod{}, err
		}
		sig, err := signature.DecodeMethod(entry.File, blob)
		if err != nil {
			return ifaceMethod{}, err
		}
		return ifaceMethod{name: "Invoke", slot: "Invoke", sig: sig, args: entry.GenericArgs}, nil
	}
	return ifaceMethod{}, diag.New(diag.CodeUnsupportedCategory, diag.CategoryEmission,
		"delegate %s has no Invoke method", entry.Key())
}

// delegateFuncType renders the Go func type the reverse adapter accepts.
func (g *Generator) delegateFuncType(invoke ifaceMethod) (string, *diag.Error) {
	g.m.args = invoke.args
	defer func() { g.m.args = nil }()

	params, err := g.paramList(invoke.sig)
	if err != nil {
		return "", err
	}
	retType, err := g.m.goType(invoke.sig.Return)
	if err != nil {
		return "", err
	}
	if retType == "" {
		return fmt.Sprintf("func(%s) error", params), nil
	}
	return fmt.Sprintf("func(%s) (%s, error)", params, retType), nil
}
