package resolver

import (
	"strings"

	"github.com/winmdgen/winmdgen/internal/diag"
	"github.com/winmdgen/winmdgen/internal/filter"
	"github.com/winmdgen/winmdgen/internal/signature"
	"github.com/winmdgen/winmdgen/internal/winmd"
)

// Base type names driving category dispatch.
var (
	baseEnum     = winmd.TypeName{Namespace: "System", Name: "Enum"}
	baseValue    = winmd.TypeName{Namespace: "System", Name: "ValueType"}
	baseDelegate = winmd.TypeName{Namespace: "System", Name: "MulticastDelegate"}
)

// builtinExternal are namespaces whose unresolved references never fail
// resolution: the metadata runtime plumbing every input file references but
// no input file defines.
var builtinExternal = []string{
	"System",
	"Windows.Foundation.Metadata",
	"Windows.Win32.Foundation.Metadata",
	"Windows.Win32.Interop",
}

// Resolver computes dependency closures over a fixed set of loaded files.
type Resolver struct {
	files    []*winmd.File
	external []string
}

// New builds a resolver over the loaded files. externalNamespaces lists
// additional namespaces whose types are assumed to exist elsewhere;
// references into them are recorded but never resolved.
func New(files []*winmd.File, externalNamespaces []string) *Resolver {
	ext := make([]string, 0, len(builtinExternal)+len(externalNamespaces))
	ext = append(ext, builtinExternal...)
	ext = append(ext, externalNamespaces...)
	return &Resolver{files: files, external: ext}
}

// isExternal reports whether ns is one of the external namespaces or nested
// under one.
func (r *Resolver) isExternal(ns string) bool {
	for _, e := range r.external {
		if ns == e || strings.HasPrefix(ns, e+".") {
			return true
		}
	}
	return false
}

// lookup finds a TypeDef by qualified name across all loaded files.
func (r *Resolver) lookup(name winmd.TypeName) (winmd.TypeDef, *winmd.File, bool) {
	for _, f := range r.files {
		if td, ok := f.TypeDefByName(name); ok {
			return td, f, true
		}
	}
	return winmd.TypeDef{}, nil, false
}

// workItem is one pending closure entry: a qualified name, the generic
// arguments it was requested with, and the reference chain that led here.
type workItem struct {
	name  winmd.TypeName
	args  []signature.Type
	chain []string
}

// Resolve seeds the worklist with every type the filter includes and runs
// the closure to a fixed point. The depends-on relation is the union of
// field types, parameter and return types, the base type, implemented
// interfaces, generic arguments, and attribute-carried type references.
func (r *Resolver) Resolve(flt *filter.Filter) (*TypeSet, *diag.Error) {
	var queue []workItem
	for _, f := range r.files {
		for _, td := range f.TypeDefs() {
			if td.Flags()&winmd.TypeAttrPublic == 0 {
				continue
			}
			tn, err := td.TypeName()
			if err != nil {
				return nil, err
			}
			if flt.Matches(tn.Namespace, tn.Name) {
				queue = append(queue, workItem{name: tn})
			}
		}
	}

	set := newTypeSet()
	visited := make(map[string]bool)
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		key := typeKey(item.name, item.args)
		if visited[key] {
			continue
		}
		visited[key] = true

		td, file, ok := r.lookup(item.name)
		if !ok {
			if r.isExternal(item.name.Namespace) {
				continue
			}
			return nil, diag.New(diag.CodeUnresolvedReference, diag.CategoryResolution,
				"cannot resolve %s in any input file", item.name).
				WithChain(append(item.chain, item.name.String())...)
		}

		cat, err := r.categorize(td)
		if err != nil {
			return nil, err
		}
		arch, _, err := signature.SupportedArchitecture(td)
		if err != nil {
			return nil, err
		}
		entry := &Type{
			Name:        item.name,
			Def:         td,
			File:        file,
			Category:    cat,
			GenericArgs: item.args,
			Arch:        arch,
		}
		set.add(entry)

		chain := append(append([]string(nil), item.chain...), key)
		deps, err := r.dependencies(td, file)
		if err != nil {
			return nil, err.WithChain(chain...)
		}
		for _, d := range deps {
			queue = append(queue, workItem{name: d.name, args: d.args, chain: chain})
		}
	}

	if err := r.checkValueCycles(set); err != nil {
		return nil, err
	}
	set.sort()
	return set, nil
}

// categorize derives the closed category from the interface flag and the
// base type name.
func (r *Resolver) categorize(td winmd.TypeDef) (Category, *diag.Error) {
	if td.IsInterface() {
		return CategoryInterface, nil
	}
	ext, err := td.Extends()
	if err != nil {
		return 0, err
	}
	if ext.IsNil() || ext.Table == winmd.TableTypeSpec {
		// A generic base only occurs on composable runtime classes.
		return CategoryRuntimeClass, nil
	}
	base, err := r.refName(td.File, ext)
	if err != nil {
		return 0, err
	}
	switch base {
	case baseEnum:
		return CategoryEnum, nil
	case baseValue:
		return CategoryStruct, nil
	case baseDelegate:
		return CategoryDelegate, nil
	}
	return CategoryRuntimeClass, nil
}

// refName resolves a TypeDef or TypeRef coded index to its qualified name.
func (r *Resolver) refName(f *winmd.File, ci winmd.CodedIndex) (winmd.TypeName, *diag.Error) {
	row, err := f.Resolve(ci)
	if err != nil {
		return winmd.TypeName{}, err
	}
	if ci.Table == winmd.TableTypeDef {
		return winmd.TypeDef{Row: row}.TypeName()
	}
	return winmd.TypeRef{Row: row}.TypeName()
}

// dep is one outgoing edge of the depends-on relation.
type dep struct {
	name winmd.TypeName
	args []signature.Type
}

// dependencies enumerates every type the given definition refers to.
func (r *Resolver) dependencies(td winmd.TypeDef, f *winmd.File) ([]dep, *diag.Error) {
	var deps []dep
	add := func(name winmd.TypeName, args []signature.Type) {
		deps = append(deps, dep{name: name, args: args})
	}

	ext, err := td.Extends()
	if err != nil {
		return nil, err
	}
	if !ext.IsNil() && ext.Table != winmd.TableTypeSpec {
		base, err := r.refName(f, ext)
		if err != nil {
			return nil, err
		}
		add(base, nil)
	}

	for _, impl := range td.InterfaceImpls() {
		iface, err := impl.Interface()
		if err != nil {
			return nil, err
		}
		if iface.Table == winmd.TableTypeSpec {
			row, err := f.Resolve(iface)
			if err != nil {
				return nil, err
			}
			blob, err := winmd.TypeSpec{Row: row}.Signature()
			if err != nil {
				return nil, err
			}
			t, err := signature.DecodeTypeSpec(f, blob)
			if err != nil {
				return nil, err
			}
			collectDeps(t, add)
			continue
		}
		name, err := r.refName(f, iface)
		if err != nil {
			return nil, err
		}
		add(name, nil)
	}

	for _, field := range td.Fields() {
		blob, err := field.Signature()
		if err != nil {
			return nil, err
		}
		t, err := signature.DecodeField(f, blob)
		if err != nil {
			return nil, err
		}
		collectDeps(t, add)
	}

	for _, method := range td.Methods() {
		blob, err := method.Signature()
		if err != nil {
			return nil, err
		}
		sig, err := signature.DecodeMethod(f, blob)
		if err != nil {
			return nil, err
		}
		collectDeps(sig.Return, add)
		for _, p := range sig.Params {
			collectDeps(p, add)
		}
	}

	for _, attr := range td.Attributes() {
		name, err := attr.TypeName()
		if err != nil {
			return nil, err
		}
		add(name, nil)
	}
	return deps, nil
}

// collectDeps walks one decoded type expression and reports every named
// type it mentions.
func collectDeps(t signature.Type, add func(winmd.TypeName, []signature.Type)) {
	switch v := t.(type) {
	case signature.Named:
		add(v.Name, nil)
	case signature.Pointer:
		collectDeps(v.Inner, add)
	case signature.ByRef:
		collectDeps(v.Inner, add)
	case signature.SZArray:
		collectDeps(v.Inner, add)
	case signature.Array:
		collectDeps(v.Inner, add)
	case signature.GenericInst:
		add(v.Def.Name, v.Args)
		for _, a := range v.Args {
			collectDeps(a, add)
		}
	case signature.FuncPtr:
		collectDeps(v.Sig.Return, add)
		for _, p := range v.Sig.Params {
			collectDeps(p, add)
		}
	}
}
