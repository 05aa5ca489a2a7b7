package codegen

import (
	"github.com/winmdgen/winmdgen/internal/diag"
	"github.com/winmdgen/winmdgen/internal/resolver"
	"github.com/winmdgen/winmdgen/internal/signature"
	"github.com/winmdgen/winmdgen/internal/winmd"
)

// emitStruct renders a value type with its fields in metadata declaration
// order, which is the C-compatible layout contract.
func (g *Generator) emitStruct(entry *resolver.Type) *diag.Error {
	name := entryGoName(entry)

	g.writeLine("// %s matches the %s layout.", name, entry.Name)
	if entry.Def.Flags()&winmd.TypeAttrExplicitLayout != 0 {
		g.writeLine("// Fields share storage (explicit layout); only one is valid at a time.")
	}
	if layout, ok := entry.Def.Layout(); ok && layout.PackingSize() != 0 {
		g.writeLine("// Packed to %d-byte alignment in the native layout.", layout.PackingSize())
	}
	g.writeLine("type %s struct {", name)
	g.indent++
	for _, field := range entry.Def.Fields() {
		if field.IsStatic() || field.IsLiteral() {
			continue
		}
		fieldName, err := field.Name()
		if err != nil {
			return err
		}
		blob, err := field.Signature()
		if err != nil {
			return err
		}
		decoded, err := signature.DecodeField(entry.File, blob)
		if err != nil {
			return err
		}
		goType, err := g.m.goType(decoded)
		if err != nil {
			return err
		}
		g.writeLine("%s %s", exportName(fieldName), goType)
	}
	g.indent--
	g.writeLine("}")
	g.writeLine("")

	for _, derive := range g.cfg.Derives[entry.Key()] {
		switch derive {
		case "String":
			g.writeLine("func (v %s) String() string {", name)
			g.indent++
			// The conversion through a local type keeps %+v from
			// re-entering String.
			g.writeLine("type plain %s", name)
			g.writeLine("return %s.Sprintf(\"%s%%+v\", plain(v))", g.m.use("fmt"), name)
			g.indent--
			g.writeLine("}")
			g.writeLine("")
		default:
			return diag.New(diag.CodeEmitConflict, diag.CategoryEmission,
				"unknown derive %q requested for %s", derive, entry.Key())
		}
	}
	return nil
}
