package resolver

import (
	"strings"

	"github.com/winmdgen/winmdgen/internal/diag"
	"github.com/winmdgen/winmdgen/internal/signature"
	"github.com/winmdgen/winmdgen/internal/winmd"
)

// Value-type containment colors for the cycle walk.
const (
	cycleWhite = iota
	cycleGrey
	cycleBlack
)

// checkValueCycles rejects structs that contain themselves by value,
// directly or through other structs, without an indirection in between.
// Reference-type cycles are legal and never reach this walk.
func (r *Resolver) checkValueCycles(set *TypeSet) *diag.Error {
	state := make(map[string]int)

	var visit func(t *Type, chain []string) *diag.Error
	visit = func(t *Type, chain []string) *diag.Error {
		key := t.Key()
		state[key] = cycleGrey
		chain = append(chain, key)

		deps, err := r.directValueDeps(t)
		if err != nil {
			return err
		}
		for _, name := range deps {
			dt, ok := set.Lookup(name.String())
			if !ok || dt.Category != CategoryStruct {
				continue
			}
			switch state[dt.Key()] {
			case cycleGrey:
				cycle := append(append([]string(nil), chain...), dt.Key())
				return diag.New(diag.CodeValueTypeCycle, diag.CategoryResolution,
					"value type %s contains itself by value: %s",
					dt.Key(), strings.Join(cycle, " -> ")).
					WithFile(dt.File.Name).WithChain(cycle...)
			case cycleWhite:
				if err := visit(dt, chain); err != nil {
					return err
				}
			}
		}
		state[key] = cycleBlack
		return nil
	}

	for _, t := range set.Types() {
		if t.Category != CategoryStruct || state[t.Key()] != cycleWhite {
			continue
		}
		if err := visit(t, nil); err != nil {
			return err
		}
	}
	return nil
}

// directValueDeps returns the named value types a struct embeds by value:
// instance fields whose type is a named value type not behind a pointer,
// reference, or array.
func (r *Resolver) directValueDeps(t *Type) ([]winmd.TypeName, *diag.Error) {
	var deps []winmd.TypeName
	for _, field := range t.Def.Fields() {
		if field.IsStatic() || field.IsLiteral() {
			continue
		}
		blob, err := field.Signature()
		if err != nil {
			return nil, err
		}
		decoded, err := signature.DecodeField(t.File, blob)
		if err != nil {
			return nil, err
		}
		if named, ok := decoded.(signature.Named); ok && named.IsValueType {
			deps = append(deps, named.Name)
		}
	}
	return deps, nil
}
