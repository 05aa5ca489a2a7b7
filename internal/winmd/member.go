package winmd

import (
	"encoding/binary"

	"github.com/winmdgen/winmdgen/internal/diag"
)

// Field is a typed view over a Field table row.
type Field struct {
	Row
}

// Flags returns the raw FieldAttributes bits.
func (f Field) Flags() uint32 {
	return f.Uint(0)
}

// Name returns the field name.
func (f Field) Name() (string, *diag.Error) {
	return f.Row.String(1)
}

// Signature returns the field's signature blob.
func (f Field) Signature() ([]byte, *diag.Error) {
	return f.Blob(2)
}

// IsLiteral reports whether the field is a compile-time constant
// (an enum member).
func (f Field) IsLiteral() bool {
	return f.Flags()&FieldAttrLiteral != 0
}

// IsStatic reports whether the field is static.
func (f Field) IsStatic() bool {
	return f.Flags()&FieldAttrStatic != 0
}

// Constant returns the field's constant value row, if any.
func (f Field) Constant() (Constant, bool) {
	parent := CodedIndex{Table: TableField, Row: f.Index + 1}.Encode(CodedHasConstant)
	start, end := equalRange(f.File, TableConstant, 1, parent)
	if start == end {
		return Constant{}, false
	}
	return Constant{Row{File: f.File, Table: TableConstant, Index: start}}, true
}

// Attributes returns the custom attributes attached to the field.
func (f Field) Attributes() []CustomAttribute {
	return attributesFor(f.File, CodedIndex{Table: TableField, Row: f.Index + 1})
}

// MethodDef is a typed view over a MethodDef table row.
type MethodDef struct {
	Row
}

// ImplFlags returns the raw MethodImplAttributes bits.
func (m MethodDef) ImplFlags() uint32 {
	return m.Uint(1)
}

// Flags returns the raw MethodAttributes bits.
func (m MethodDef) Flags() uint32 {
	return m.Uint(2)
}

// Name returns the method name.
func (m MethodDef) Name() (string, *diag.Error) {
	return m.Row.String(3)
}

// Signature returns the method's signature blob.
func (m MethodDef) Signature() ([]byte, *diag.Error) {
	return m.Blob(4)
}

// Params returns the method's parameter rows in sequence order.
func (m MethodDef) Params() []Param {
	start, end := m.listRange(5, TableParam)
	params := make([]Param, 0, end-start)
	for i := start; i < end; i++ {
		params = append(params, Param{Row{File: m.File, Table: TableParam, Index: i}})
	}
	return params
}

// IsStatic reports whether the method is static.
func (m MethodDef) IsStatic() bool {
	return m.Flags()&MethodAttrStatic != 0
}

// IsSpecialName reports whether the method carries the SpecialName bit
// (constructors, property accessors).
func (m MethodDef) IsSpecialName() bool {
	return m.Flags()&MethodAttrSpecialName != 0
}

// ImportDescriptor returns the method's native import (ImplMap row) when
// the method is a P/Invoke stub.
func (m MethodDef) ImportDescriptor() (ImplMap, bool) {
	if m.Flags()&MethodAttrPInvokeImpl == 0 {
		return ImplMap{}, false
	}
	forwarded := CodedIndex{Table: TableMethodDef, Row: m.Index + 1}.Encode(CodedMemberForwarded)
	start, end := equalRange(m.File, TableImplMap, 1, forwarded)
	if start == end {
		return ImplMap{}, false
	}
	return ImplMap{Row{File: m.File, Table: TableImplMap, Index: start}}, true
}

// Attributes returns the custom attributes attached to the method.
func (m MethodDef) Attributes() []CustomAttribute {
	return attributesFor(m.File, CodedIndex{Table: TableMethodDef, Row: m.Index + 1})
}

// Param is a typed view over a Param table row.
type Param struct {
	Row
}

// Flags returns the raw ParamAttributes bits.
func (p Param) Flags() uint32 {
	return p.Uint(0)
}

// Sequence returns the one-based parameter position; 0 is the return value.
func (p Param) Sequence() uint32 {
	return p.Uint(1)
}

// Name returns the parameter name.
func (p Param) Name() (string, *diag.Error) {
	return p.Row.String(2)
}

// MemberRef is a typed view over a MemberRef table row.
type MemberRef struct {
	Row
}

// Class returns the parent of the referenced member.
func (m MemberRef) Class() (CodedIndex, *diag.Error) {
	return m.Coded(0, CodedMemberRefParent)
}

// Name returns the referenced member's name.
func (m MemberRef) Name() (string, *diag.Error) {
	return m.Row.String(1)
}

// Signature returns the referenced member's signature blob.
func (m MemberRef) Signature() ([]byte, *diag.Error) {
	return m.Blob(2)
}

// ImplMap is a typed view over an ImplMap table row: the native import
// descriptor of a P/Invoke method.
type ImplMap struct {
	Row
}

// MappingFlags returns the raw PInvokeAttributes bits.
func (i ImplMap) MappingFlags() uint32 {
	return i.Uint(0)
}

// CallingConvention returns the declared native calling convention bits.
func (i ImplMap) CallingConvention() uint32 {
	return i.MappingFlags() & PInvokeCallConvMask
}

// ImportName returns the exported symbol name in the native library.
func (i ImplMap) ImportName() (string, *diag.Error) {
	return i.Row.String(2)
}

// ImportScope returns the ModuleRef naming the native library.
func (i ImplMap) ImportScope() (ModuleRef, bool) {
	idx := i.TableIndex(3)
	if idx == 0 {
		return ModuleRef{}, false
	}
	return ModuleRef{Row{File: i.File, Table: TableModuleRef, Index: idx - 1}}, true
}

// ModuleRef is a typed view over a ModuleRef table row.
type ModuleRef struct {
	Row
}

// Name returns the referenced module (library) name.
func (m ModuleRef) Name() (string, *diag.Error) {
	return m.Row.String(0)
}

// Constant is a typed view over a Constant table row.
type Constant struct {
	Row
}

// ElementType returns the constant's element type tag.
func (c Constant) ElementType() byte {
	return byte(c.Uint(0))
}

// Value returns the constant's raw little-endian value bytes.
func (c Constant) Value() ([]byte, *diag.Error) {
	return c.Blob(2)
}

// Int64Value decodes the constant as a signed 64-bit integer. Only integral
// element types are supported; enum members are always integral.
func (c Constant) Int64Value() (int64, *diag.Error) {
	raw, err := c.Value()
	if err != nil {
		return 0, err
	}
	switch c.ElementType() {
	case ElementTypeBoolean, ElementTypeI1:
		if len(raw) < 1 {
			break
		}
		return int64(int8(raw[0])), nil
	case ElementTypeU1:
		if len(raw) < 1 {
			break
		}
		return int64(raw[0]), nil
	case ElementTypeI2:
		if len(raw) < 2 {
			break
		}
		return int64(int16(binary.LittleEndian.Uint16(raw))), nil
	case ElementTypeU2, ElementTypeChar:
		if len(raw) < 2 {
			break
		}
		return int64(binary.LittleEndian.Uint16(raw)), nil
	case ElementTypeI4:
		if len(raw) < 4 {
			break
		}
		return int64(int32(binary.LittleEndian.Uint32(raw))), nil
	case ElementTypeU4:
		if len(raw) < 4 {
			break
		}
		return int64(binary.LittleEndian.Uint32(raw)), nil
	case ElementTypeI8, ElementTypeU8:
		if len(raw) < 8 {
			break
		}
		return int64(binary.LittleEndian.Uint64(raw)), nil
	default:
		return 0, diag.New(diag.CodeMalformedContainer, diag.CategoryContainer,
			"constant element type 0x%x is not integral", c.ElementType()).WithFile(c.File.Name)
	}
	return 0, diag.New(diag.CodeTruncatedStream, diag.CategoryContainer,
		"constant value blob too short for element type 0x%x", c.ElementType()).WithFile(c.File.Name)
}

// GenericParam is a typed view over a GenericParam table row.
type GenericParam struct {
	Row
}

// Number returns the zero-based position of the generic parameter.
func (g GenericParam) Number() uint32 {
	return g.Uint(0)
}

// Name returns the generic parameter name.
func (g GenericParam) Name() (string, *diag.Error) {
	return g.Row.String(3)
}
