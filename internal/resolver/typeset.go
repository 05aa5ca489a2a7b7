// Package resolver computes the transitive closure of types reachable from
// a filtered seed set across one or more loaded metadata files.
package resolver

import (
	"sort"
	"strings"

	"github.com/winmdgen/winmdgen/internal/signature"
	"github.com/winmdgen/winmdgen/internal/winmd"
)

// Category classifies a resolved type. The set is closed; the emitter
// switches over it exhaustively.
type Category int

const (
	CategoryInterface Category = iota
	CategoryRuntimeClass
	CategoryEnum
	CategoryStruct
	CategoryDelegate
)

var categoryNames = map[Category]string{
	CategoryInterface:    "interface",
	CategoryRuntimeClass: "runtime class",
	CategoryEnum:         "enum",
	CategoryStruct:       "struct",
	CategoryDelegate:     "delegate",
}

func (c Category) String() string {
	return categoryNames[c]
}

// Type is one resolved entry: a type definition plus, for generic
// instantiations, the concrete arguments it was requested with.
type Type struct {
	Name        winmd.TypeName
	Def         winmd.TypeDef
	File        *winmd.File
	Category    Category
	GenericArgs []signature.Type
	// Arch is the supported-architecture mask (0 means all architectures).
	Arch int32
}

// Key identifies the entry within a TypeSet: qualified name plus the
// generic-argument signature.
func (t *Type) Key() string {
	return typeKey(t.Name, t.GenericArgs)
}

func typeKey(name winmd.TypeName, args []signature.Type) string {
	if len(args) == 0 {
		return name.String()
	}
	rendered := make([]string, len(args))
	for i, a := range args {
		rendered[i] = a.String()
	}
	return name.String() + "<" + strings.Join(rendered, ",") + ">"
}

// TypeSet is the resolved, self-consistent output of a resolution run.
type TypeSet struct {
	types []*Type
	index map[string]*Type
}

func newTypeSet() *TypeSet {
	return &TypeSet{index: make(map[string]*Type)}
}

func (s *TypeSet) add(t *Type) {
	s.types = append(s.types, t)
	s.index[t.Key()] = t
}

// Contains reports whether the set holds an entry with the given key.
func (s *TypeSet) Contains(key string) bool {
	_, ok := s.index[key]
	return ok
}

// Lookup returns the entry with the given key.
func (s *TypeSet) Lookup(key string) (*Type, bool) {
	t, ok := s.index[key]
	return t, ok
}

// Len returns the number of resolved entries.
func (s *TypeSet) Len() int {
	return len(s.types)
}

// Types returns the entries in canonical order: namespace, then name, then
// generic arity, then argument signature. The order is the emitter's
// determinism anchor.
func (s *TypeSet) Types() []*Type {
	return s.types
}

func (s *TypeSet) sort() {
	sort.Slice(s.types, func(i, j int) bool {
		a, b := s.types[i], s.types[j]
		if a.Name.Namespace != b.Name.Namespace {
			return a.Name.Namespace < b.Name.Namespace
		}
		if a.Name.Name != b.Name.Name {
			return a.Name.Name < b.Name.Name
		}
		if len(a.GenericArgs) != len(b.GenericArgs) {
			return len(a.GenericArgs) < len(b.GenericArgs)
		}
		return a.Key() < b.Key()
	})
}
