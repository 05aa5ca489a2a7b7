package winmd

import (
	"sort"

	"github.com/winmdgen/winmdgen/internal/diag"
)

// TypeDef is a typed view over a TypeDef table row.
type TypeDef struct {
	Row
}

// Flags returns the raw TypeAttributes bits.
func (t TypeDef) Flags() uint32 {
	return t.Uint(0)
}

// Name returns the type's simple name.
func (t TypeDef) Name() (string, *diag.Error) {
	return t.Row.String(1)
}

// Namespace returns the type's namespace, which may be empty.
func (t TypeDef) Namespace() (string, *diag.Error) {
	return t.Row.String(2)
}

// TypeName returns the namespace-qualified name.
func (t TypeDef) TypeName() (TypeName, *diag.Error) {
	name, err := t.Name()
	if err != nil {
		return TypeName{}, err
	}
	ns, err := t.Namespace()
	if err != nil {
		return TypeName{}, err
	}
	return TypeName{Namespace: ns, Name: name}, nil
}

// Extends returns the base type reference, which is nil for interfaces.
func (t TypeDef) Extends() (CodedIndex, *diag.Error) {
	return t.Coded(3, CodedTypeDefOrRef)
}

// IsInterface reports whether the type is declared as an interface.
func (t TypeDef) IsInterface() bool {
	return t.Flags()&TypeAttrInterface != 0
}

// IsWindowsRuntime reports whether the type carries the WindowsRuntime bit.
func (t TypeDef) IsWindowsRuntime() bool {
	return t.Flags()&TypeAttrWindowsRuntime != 0
}

// Fields returns the type's field rows in declaration order.
func (t TypeDef) Fields() []Field {
	start, end := t.listRange(4, TableField)
	fields := make([]Field, 0, end-start)
	for i := start; i < end; i++ {
		fields = append(fields, Field{Row{File: t.File, Table: TableField, Index: i}})
	}
	return fields
}

// Methods returns the type's method rows in declaration order.
func (t TypeDef) Methods() []MethodDef {
	start, end := t.listRange(5, TableMethodDef)
	methods := make([]MethodDef, 0, end-start)
	for i := start; i < end; i++ {
		methods = append(methods, MethodDef{Row{File: t.File, Table: TableMethodDef, Index: i}})
	}
	return methods
}

// InterfaceImpls returns the interfaces the type declares it implements,
// in table order.
func (t TypeDef) InterfaceImpls() []InterfaceImpl {
	start, end := equalRange(t.File, TableInterfaceImpl, 0, t.Index+1)
	impls := make([]InterfaceImpl, 0, end-start)
	for i := start; i < end; i++ {
		impls = append(impls, InterfaceImpl{Row{File: t.File, Table: TableInterfaceImpl, Index: i}})
	}
	return impls
}

// GenericParams returns the type's generic parameters in declaration order.
func (t TypeDef) GenericParams() []GenericParam {
	target := CodedIndex{Table: TableTypeDef, Row: t.Index + 1}.Encode(CodedTypeOrMethodDef)
	var params []GenericParam
	for i := uint32(0); i < t.File.rowCounts[TableGenericParam]; i++ {
		row := Row{File: t.File, Table: TableGenericParam, Index: i}
		if row.Uint(2) == target {
			params = append(params, GenericParam{row})
		}
	}
	sort.Slice(params, func(a, b int) bool {
		return params[a].Number() < params[b].Number()
	})
	return params
}

// Layout returns the type's ClassLayout row if one exists.
func (t TypeDef) Layout() (ClassLayout, bool) {
	start, end := equalRange(t.File, TableClassLayout, 2, t.Index+1)
	if start == end {
		return ClassLayout{}, false
	}
	return ClassLayout{Row{File: t.File, Table: TableClassLayout, Index: start}}, true
}

// EnclosingType returns the enclosing type for nested types.
func (t TypeDef) EnclosingType() (TypeDef, bool) {
	start, end := equalRange(t.File, TableNestedClass, 0, t.Index+1)
	if start == end {
		return TypeDef{}, false
	}
	row := Row{File: t.File, Table: TableNestedClass, Index: start}
	enclosing := row.TableIndex(1)
	if enclosing == 0 {
		return TypeDef{}, false
	}
	return TypeDef{Row{File: t.File, Table: TableTypeDef, Index: enclosing - 1}}, true
}

// Attributes returns the custom attributes attached to the type.
func (t TypeDef) Attributes() []CustomAttribute {
	return attributesFor(t.File, CodedIndex{Table: TableTypeDef, Row: t.Index + 1})
}

// TypeRef is a typed view over a TypeRef table row.
type TypeRef struct {
	Row
}

// ResolutionScope returns where the referenced type is defined.
func (t TypeRef) ResolutionScope() (CodedIndex, *diag.Error) {
	return t.Coded(0, CodedResolutionScope)
}

// Name returns the referenced type's simple name.
func (t TypeRef) Name() (string, *diag.Error) {
	return t.Row.String(1)
}

// Namespace returns the referenced type's namespace.
func (t TypeRef) Namespace() (string, *diag.Error) {
	return t.Row.String(2)
}

// TypeName returns the namespace-qualified name of the referenced type.
func (t TypeRef) TypeName() (TypeName, *diag.Error) {
	name, err := t.Name()
	if err != nil {
		return TypeName{}, err
	}
	ns, err := t.Namespace()
	if err != nil {
		return TypeName{}, err
	}
	return TypeName{Namespace: ns, Name: name}, nil
}

// TypeSpec is a typed view over a TypeSpec table row.
type TypeSpec struct {
	Row
}

// Signature returns the type specification's signature blob.
func (t TypeSpec) Signature() ([]byte, *diag.Error) {
	return t.Blob(0)
}

// InterfaceImpl is a typed view over an InterfaceImpl table row.
type InterfaceImpl struct {
	Row
}

// Class returns the implementing TypeDef.
func (i InterfaceImpl) Class() TypeDef {
	return TypeDef{Row{File: i.File, Table: TableTypeDef, Index: i.TableIndex(0) - 1}}
}

// Interface returns the implemented interface reference.
func (i InterfaceImpl) Interface() (CodedIndex, *diag.Error) {
	return i.Coded(1, CodedTypeDefOrRef)
}

// Attributes returns the custom attributes attached to the interface impl.
func (i InterfaceImpl) Attributes() []CustomAttribute {
	return attributesFor(i.File, CodedIndex{Table: TableInterfaceImpl, Row: i.Index + 1})
}

// ClassLayout is a typed view over a ClassLayout table row.
type ClassLayout struct {
	Row
}

// PackingSize returns the declared field alignment, 0 for default.
func (c ClassLayout) PackingSize() uint32 {
	return c.Uint(0)
}

// ClassSize returns the declared total size, 0 for default.
func (c ClassLayout) ClassSize() uint32 {
	return c.Uint(1)
}

// equalRange returns the [start, end) row range of a sorted table whose
// column equals value. Metadata tables referenced by parent columns
// (CustomAttribute, Constant, InterfaceImpl, ClassLayout, NestedClass,
// ImplMap) are required to be sorted on those columns, so binary search is
// valid.
func equalRange(f *File, table TableKind, col int, value uint32) (uint32, uint32) {
	count := int(f.rowCounts[table])
	at := func(i int) uint32 {
		return Row{File: f, Table: table, Index: uint32(i)}.Uint(col)
	}
	start := sort.Search(count, func(i int) bool { return at(i) >= value })
	end := start
	for end < count && at(end) == value {
		end++
	}
	return uint32(start), uint32(end)
}
