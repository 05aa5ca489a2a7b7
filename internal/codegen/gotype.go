package codegen

import (
	"path"
	"strings"

	"github.com/winmdgen/winmdgen/internal/diag"
	"github.com/winmdgen/winmdgen/internal/resolver"
	"github.com/winmdgen/winmdgen/internal/signature"
	"github.com/winmdgen/winmdgen/internal/winmd"
)

// mapper renders decoded type expressions as Go types within one emitted
// package, collecting the imports the rendering needs.
type mapper struct {
	cfg *Config
	set *resolver.TypeSet

	// args binds generic parameters when emitting an instantiation.
	args []signature.Type

	imports map[string]string // import path -> alias
}

func newMapper(cfg *Config, set *resolver.TypeSet) *mapper {
	return &mapper{cfg: cfg, set: set, imports: make(map[string]string)}
}

// use records an import and returns the alias to qualify names with.
func (m *mapper) use(importPath string) string {
	if alias, ok := m.imports[importPath]; ok {
		return alias
	}
	alias := path.Base(importPath)
	taken := func(a string) bool {
		for _, existing := range m.imports {
			if existing == a {
				return true
			}
		}
		return false
	}
	for i := 2; taken(alias); i++ {
		alias = path.Base(importPath) + strings.Repeat("x", i-1)
	}
	m.imports[importPath] = alias
	return alias
}

// rt qualifies a name with the runtime support module.
func (m *mapper) rt(name string) string {
	return m.use(m.cfg.runtimeModule()) + "." + name
}

var primitiveGoNames = map[signature.PrimitiveKind]string{
	signature.Bool:    "bool",
	signature.Char:    "uint16",
	signature.Int8:    "int8",
	signature.UInt8:   "uint8",
	signature.Int16:   "int16",
	signature.UInt16:  "uint16",
	signature.Int32:   "int32",
	signature.UInt32:  "uint32",
	signature.Int64:   "int64",
	signature.UInt64:  "uint64",
	signature.Float32: "float32",
	signature.Float64: "float64",
	signature.ISize:   "uintptr",
	signature.USize:   "uintptr",
}

// goType renders one decoded type expression.
func (m *mapper) goType(t signature.Type) (string, *diag.Error) {
	switch v := t.(type) {
	case signature.Void:
		return "", nil
	case signature.Primitive:
		switch v.Kind {
		case signature.String:
			return m.rt("HString"), nil
		case signature.Object:
			return "*" + m.rt("IInspectable"), nil
		}
		return primitiveGoNames[v.Kind], nil
	case signature.Pointer:
		if _, isVoid := v.Inner.(signature.Void); isVoid {
			return m.use("unsafe") + ".Pointer", nil
		}
		inner, err := m.goType(v.Inner)
		if err != nil {
			return "", err
		}
		return "*" + inner, nil
	case signature.ByRef:
		inner, err := m.goType(v.Inner)
		if err != nil {
			return "", err
		}
		return "*" + inner, nil
	case signature.SZArray:
		inner, err := m.goType(v.Inner)
		if err != nil {
			return "", err
		}
		return "[]" + inner, nil
	case signature.Array:
		inner, err := m.goType(v.Inner)
		if err != nil {
			return "", err
		}
		return "[]" + inner, nil
	case signature.Named:
		return m.namedType(v.Name, nil)
	case signature.GenericInst:
		return m.namedType(v.Def.Name, v.Args)
	case signature.GenericParam:
		if v.Method || int(v.Index) >= len(m.args) {
			return "", diag.New(diag.CodeUnsupportedCategory, diag.CategoryEmission,
				"unbound generic parameter %s reached the emitter", v)
		}
		return m.goType(m.args[v.Index])
	case signature.FuncPtr:
		return "uintptr", nil
	}
	return "", diag.New(diag.CodeUnsupportedCategory, diag.CategoryEmission,
		"unsupported type expression %s reached the emitter", t)
}

// namedType renders a reference to a named type, instantiated with args
// when the target is generic.
func (m *mapper) namedType(name winmd.TypeName, args []signature.Type) (string, *diag.Error) {
	// Substitute bound generic parameters before keying into the set so
	// that IVector`1<!0> inside an instantiation lands on the concrete
	// entry.
	resolvedArgs := make([]signature.Type, len(args))
	for i, a := range args {
		if gp, ok := a.(signature.GenericParam); ok && !gp.Method && int(gp.Index) < len(m.args) {
			resolvedArgs[i] = m.args[gp.Index]
			continue
		}
		resolvedArgs[i] = a
	}

	if entry, ok := m.lookupEntry(name, resolvedArgs); ok {
		goName := entryGoName(entry)
		switch entry.Category {
		case resolver.CategoryEnum, resolver.CategoryStruct:
			return goName, nil
		default:
			return "*" + goName, nil
		}
	}

	if importPath, ok := m.externalImport(name.Namespace); ok {
		return m.use(importPath) + "." + mangleName(name, resolvedArgs), nil
	}

	// Unmatched names at this point are runtime plumbing (System.Guid and
	// friends); the runtime support module carries them.
	return m.rt(mangleName(name, resolvedArgs)), nil
}

func (m *mapper) lookupEntry(name winmd.TypeName, args []signature.Type) (*resolver.Type, bool) {
	key := name.String()
	if len(args) > 0 {
		rendered := make([]string, len(args))
		for i, a := range args {
			rendered[i] = a.String()
		}
		key += "<" + strings.Join(rendered, ",") + ">"
	}
	return m.set.Lookup(key)
}

// externalImport finds the configured import path for a namespace or any
// enclosing namespace.
func (m *mapper) externalImport(ns string) (string, bool) {
	for ns != "" {
		if p, ok := m.cfg.ExternalNamespaces[ns]; ok {
			return p, true
		}
		i := strings.LastIndex(ns, ".")
		if i < 0 {
			break
		}
		ns = ns[:i]
	}
	return "", false
}

// entryGoName returns the Go identifier for a resolved entry.
func entryGoName(t *resolver.Type) string {
	return mangleName(t.Name, t.GenericArgs)
}

// mangleName turns a metadata type name (plus generic arguments) into a Go
// identifier: the arity backtick is stripped and argument type names are
// appended, so IVector`1<Int32> becomes IVectorInt32.
func mangleName(name winmd.TypeName, args []signature.Type) string {
	base := name.Name
	if i := strings.IndexByte(base, '`'); i >= 0 {
		base = base[:i]
	}
	var sb strings.Builder
	sb.WriteString(base)
	for _, a := range args {
		sb.WriteString(typeSuffix(a))
	}
	return sb.String()
}

var primitiveSuffixes = map[signature.PrimitiveKind]string{
	signature.Bool:    "Bool",
	signature.Char:    "Char",
	signature.Int8:    "Int8",
	signature.UInt8:   "UInt8",
	signature.Int16:   "Int16",
	signature.UInt16:  "UInt16",
	signature.Int32:   "Int32",
	signature.UInt32:  "UInt32",
	signature.Int64:   "Int64",
	signature.UInt64:  "UInt64",
	signature.Float32: "Float32",
	signature.Float64: "Float64",
	signature.ISize:   "IntPtr",
	signature.USize:   "UIntPtr",
	signature.String:  "String",
	signature.Object:  "Object",
}

// exportName makes a metadata member name a usable exported Go identifier.
func exportName(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// typeSuffix renders one generic argument as an identifier fragment.
func typeSuffix(t signature.Type) string {
	switch v := t.(type) {
	case signature.Primitive:
		return primitiveSuffixes[v.Kind]
	case signature.Named:
		return mangleName(v.Name, nil)
	case signature.GenericInst:
		return mangleName(v.Def.Name, v.Args)
	case signature.Pointer:
		return "Ptr" + typeSuffix(v.Inner)
	case signature.ByRef:
		return "Ref" + typeSuffix(v.Inner)
	case signature.SZArray:
		return "Array" + typeSuffix(v.Inner)
	}
	return "X"
}
