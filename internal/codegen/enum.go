package codegen

import (
	"fmt"

	"github.com/winmdgen/winmdgen/internal/diag"
	"github.com/winmdgen/winmdgen/internal/resolver"
	"github.com/winmdgen/winmdgen/internal/signature"
)

// enumMember is one decoded literal field of an enum.
type enumMember struct {
	name  string
	value int64
}

// emitEnum renders an enum as a defined type over its underlying primitive
// plus one const per member. Flags enums also get bitwise helpers.
func (g *Generator) emitEnum(entry *resolver.Type) *diag.Error {
	name := entryGoName(entry)

	underlying, unsigned, err := g.enumUnderlying(entry)
	if err != nil {
		return err
	}
	members, err := enumMembers(entry)
	if err != nil {
		return err
	}
	flags := entry.Def.IsFlagsEnum()

	if flags {
		g.writeLine("// %s is the %s flags enumeration.", name, entry.Name)
	} else {
		g.writeLine("// %s is the %s enumeration.", name, entry.Name)
	}
	g.writeLine("type %s %s", name, underlying)
	g.writeLine("")

	if len(members) > 0 {
		g.writeLine("const (")
		g.indent++
		for _, m := range members {
			g.writeLine("%s%s %s = %s", name, m.name, name, formatEnumValue(m.value, unsigned))
		}
		g.indent--
		g.writeLine(")")
		g.writeLine("")
	}

	if flags {
		g.writeLine("// Or combines two flag values.")
		g.writeLine("func (v %s) Or(o %s) %s {", name, name, name)
		g.indent++
		g.writeLine("return v | o")
		g.indent--
		g.writeLine("}")
		g.writeLine("")
		g.writeLine("// Has reports whether every bit of o is set in v.")
		g.writeLine("func (v %s) Has(o %s) bool {", name, name)
		g.indent++
		g.writeLine("return v&o == o")
		g.indent--
		g.writeLine("}")
		g.writeLine("")
	}

	for _, derive := range g.cfg.Derives[entry.Key()] {
		switch derive {
		case "String":
			g.emitEnumString(name, members)
		default:
			return diag.New(diag.CodeEmitConflict, diag.CategoryEmission,
				"unknown derive %q requested for %s", derive, entry.Key())
		}
	}
	return nil
}

// enumUnderlying decodes the instance value__ field to find the underlying
// primitive type.
func (g *Generator) enumUnderlying(entry *resolver.Type) (string, bool, *diag.Error) {
	for _, field := range entry.Def.Fields() {
		if field.IsLiteral() || field.IsStatic() {
			continue
		}
		blob, err := field.Signature()
		if err != nil {
			return "", false, err
		}
		decoded, err := signature.DecodeField(entry.File, blob)
		if err != nil {
			return "", false, err
		}
		prim, ok := decoded.(signature.Primitive)
		if !ok {
			break
		}
		unsigned := prim.Kind == signature.UInt8 || prim.Kind == signature.UInt16 ||
			prim.Kind == signature.UInt32 || prim.Kind == signature.UInt64
		return primitiveGoNames[prim.Kind], unsigned, nil
	}
	return "", false, diag.New(diag.CodeUnsupportedCategory, diag.CategoryEmission,
		"enum %s has no primitive value__ field", entry.Key())
}

func enumMembers(entry *resolver.Type) ([]enumMember, *diag.Error) {
	var members []enumMember
	for _, field := range entry.Def.Fields() {
		if !field.IsLiteral() {
			continue
		}
		name, err := field.Name()
		if err != nil {
			return nil, err
		}
		c, ok := field.Constant()
		if !ok {
			continue
		}
		v, err := c.Int64Value()
		if err != nil {
			return nil, err
		}
		members = append(members, enumMember{name: name, value: v})
	}
	return members, nil
}

func formatEnumValue(v int64, unsigned bool) string {
	if unsigned {
		return fmt.Sprintf("%d", uint64(v))
	}
	return fmt.Sprintf("%d", v)
}

// emitEnumString renders the "String" derive: member-name lookup with a
// numeric fallback. Members sharing a value after the first are skipped so
// the switch stays valid.
func (g *Generator) emitEnumString(name string, members []enumMember) {
	g.writeLine("func (v %s) String() string {", name)
	g.indent++
	g.writeLine("switch v {")
	seen := make(map[int64]bool)
	for _, m := range members {
		if seen[m.value] {
			continue
		}
		seen[m.value] = true
		g.writeLine("case %s%s:", name, m.name)
		g.indent++
		g.writeLine("return %q", m.name)
		g.indent--
	}
	g.writeLine("}")
	g.writeLine("return %s.Sprintf(\"%s(%%d)\", int64(v))", g.m.use("fmt"), name)
	g.indent--
	g.writeLine("}")
	g.writeLine("")
}
