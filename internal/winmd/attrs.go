package winmd

import (
	"github.com/winmdgen/winmdgen/internal/diag"
)

// CustomAttribute is a typed view over a CustomAttribute table row.
type CustomAttribute struct {
	Row
}

// Constructor returns the attribute's constructor reference
// (a MethodDef or MemberRef).
func (c CustomAttribute) Constructor() (CodedIndex, *diag.Error) {
	return c.Coded(1, CodedCustomAttributeType)
}

// Value returns the attribute's raw value blob (prolog, fixed args,
// named args).
func (c CustomAttribute) Value() ([]byte, *diag.Error) {
	return c.Blob(2)
}

// TypeName returns the namespace-qualified name of the attribute type by
// following the constructor back to its declaring type.
func (c CustomAttribute) TypeName() (TypeName, *diag.Error) {
	ctor, err := c.Constructor()
	if err != nil {
		return TypeName{}, err
	}
	switch ctor.Table {
	case TableMemberRef:
		ref := MemberRef{Row{File: c.File, Table: TableMemberRef, Index: ctor.Row - 1}}
		parent, err := ref.Class()
		if err != nil {
			return TypeName{}, err
		}
		switch parent.Table {
		case TableTypeRef:
			tr := TypeRef{Row{File: c.File, Table: TableTypeRef, Index: parent.Row - 1}}
			return tr.TypeName()
		case TableTypeDef:
			td := TypeDef{Row{File: c.File, Table: TableTypeDef, Index: parent.Row - 1}}
			return td.TypeName()
		}
	case TableMethodDef:
		// A MethodDef constructor means the attribute type is defined in
		// this file; find the TypeDef whose method range contains it.
		for _, td := range c.File.TypeDefs() {
			start, end := td.listRange(5, TableMethodDef)
			if ctor.Row-1 >= start && ctor.Row-1 < end {
				return td.TypeName()
			}
		}
	}
	return TypeName{}, diag.New(diag.CodeMalformedContainer, diag.CategoryContainer,
		"custom attribute constructor is not a MethodDef or MemberRef").WithFile(c.File.Name)
}

// ConstructorSignature returns the signature blob of the attribute's
// constructor, used to drive fixed-argument decoding.
func (c CustomAttribute) ConstructorSignature() ([]byte, *diag.Error) {
	ctor, err := c.Constructor()
	if err != nil {
		return nil, err
	}
	switch ctor.Table {
	case TableMemberRef:
		ref := MemberRef{Row{File: c.File, Table: TableMemberRef, Index: ctor.Row - 1}}
		return ref.Signature()
	case TableMethodDef:
		def := MethodDef{Row{File: c.File, Table: TableMethodDef, Index: ctor.Row - 1}}
		return def.Signature()
	}
	return nil, diag.New(diag.CodeMalformedContainer, diag.CategoryContainer,
		"custom attribute constructor is not a MethodDef or MemberRef").WithFile(c.File.Name)
}

// attributesFor returns the custom attributes attached to the given parent.
// The CustomAttribute table is sorted by parent, so the lookup is a binary
// search over the encoded parent value.
func attributesFor(f *File, parent CodedIndex) []CustomAttribute {
	encoded := parent.Encode(CodedHasCustomAttribute)
	start, end := equalRange(f, TableCustomAttribute, 0, encoded)
	attrs := make([]CustomAttribute, 0, end-start)
	for i := start; i < end; i++ {
		attrs = append(attrs, CustomAttribute{Row{File: f, Table: TableCustomAttribute, Index: i}})
	}
	return attrs
}

// AttributeNamed returns the first attribute on the type with the given
// namespace-qualified name.
func (t TypeDef) AttributeNamed(name TypeName) (CustomAttribute, bool) {
	for _, attr := range t.Attributes() {
		attrName, err := attr.TypeName()
		if err != nil {
			continue
		}
		if attrName == name {
			return attr, true
		}
	}
	return CustomAttribute{}, false
}

// HasAttribute reports whether the type carries an attribute with the given
// namespace-qualified name.
func (t TypeDef) HasAttribute(name TypeName) bool {
	_, ok := t.AttributeNamed(name)
	return ok
}

// Well-known attribute names the pipeline inspects.
var (
	AttrFlags        = TypeName{Namespace: "System", Name: "FlagsAttribute"}
	AttrGuid         = TypeName{Namespace: "Windows.Foundation.Metadata", Name: "GuidAttribute"}
	AttrActivatable  = TypeName{Namespace: "Windows.Foundation.Metadata", Name: "ActivatableAttribute"}
	AttrArchitecture = TypeName{Namespace: "Windows.Win32.Foundation.Metadata", Name: "SupportedArchitectureAttribute"}
)

// IsFlagsEnum reports whether the type carries the flags-enum marker.
func (t TypeDef) IsFlagsEnum() bool {
	return t.HasAttribute(AttrFlags)
}

// IsDefaultActivatable reports whether the type carries an activation
// marker with a parameterless factory (the attribute's first fixed argument
// is not an interface name).
func (t TypeDef) IsDefaultActivatable() bool {
	return t.HasAttribute(AttrActivatable)
}
