// Package signature decodes the compressed type signatures stored in the
// blob heap into a structured type expression tree.
//
// The tree is a closed set of node kinds matched exhaustively by consumers;
// adding a kind is a conscious, compile-checked update in the resolver and
// the emitter.
package signature

import (
	"fmt"
	"strings"

	"github.com/winmdgen/winmdgen/internal/winmd"
)

// Type is one node of a decoded type expression.
type Type interface {
	fmt.Stringer
	isType()
}

// PrimitiveKind enumerates the built-in element types.
type PrimitiveKind uint8

const (
	Bool PrimitiveKind = iota
	Char
	Int8
	UInt8
	Int16
	UInt16
	Int32
	UInt32
	Int64
	UInt64
	Float32
	Float64
	ISize
	USize
	String
	Object
)

var primitiveNames = map[PrimitiveKind]string{
	Bool: "bool", Char: "char",
	Int8: "i8", UInt8: "u8", Int16: "i16", UInt16: "u16",
	Int32: "i32", UInt32: "u32", Int64: "i64", UInt64: "u64",
	Float32: "f32", Float64: "f64",
	ISize: "isize", USize: "usize",
	String: "string", Object: "object",
}

// Void is the absence of a value (return types only).
type Void struct{}

func (Void) isType()        {}
func (Void) String() string { return "void" }

// Primitive is a built-in element type.
type Primitive struct {
	Kind PrimitiveKind
}

func (Primitive) isType() {}
func (p Primitive) String() string {
	return primitiveNames[p.Kind]
}

// Named references a type by name; it may live in a different metadata
// file. IsValueType records whether the signature declared it with the
// value-type element tag.
type Named struct {
	Name        winmd.TypeName
	IsValueType bool
}

func (Named) isType() {}
func (n Named) String() string {
	return n.Name.String()
}

// Pointer is an unmanaged pointer. IsConst is derived from an advisory
// IsConst custom modifier; it never changes the decoded shape.
type Pointer struct {
	Inner   Type
	IsConst bool
}

func (Pointer) isType() {}
func (p Pointer) String() string {
	if p.IsConst {
		return "*const " + p.Inner.String()
	}
	return "*" + p.Inner.String()
}

// ByRef is a by-reference passing marker.
type ByRef struct {
	Inner Type
}

func (ByRef) isType()          {}
func (b ByRef) String() string { return "&" + b.Inner.String() }

// SZArray is a single-dimension, zero-lower-bound array.
type SZArray struct {
	Inner Type
}

func (SZArray) isType()          {}
func (a SZArray) String() string { return "[]" + a.Inner.String() }

// Array is a general array with explicit rank and optional bounds.
type Array struct {
	Inner    Type
	Rank     uint32
	Sizes    []uint32
	LoBounds []int32
}

func (Array) isType() {}
func (a Array) String() string {
	return fmt.Sprintf("[%d]%s", a.Rank, a.Inner.String())
}

// GenericInst is a concrete instantiation of a generic type.
type GenericInst struct {
	Def  Named
	Args []Type
}

func (GenericInst) isType() {}
func (g GenericInst) String() string {
	args := make([]string, len(g.Args))
	for i, a := range g.Args {
		args[i] = a.String()
	}
	return g.Def.String() + "<" + strings.Join(args, ", ") + ">"
}

// GenericParam is a placeholder for a generic type or method parameter.
type GenericParam struct {
	Method bool
	Index  uint32
}

func (GenericParam) isType() {}
func (g GenericParam) String() string {
	if g.Method {
		return fmt.Sprintf("!!%d", g.Index)
	}
	return fmt.Sprintf("!%d", g.Index)
}

// FuncPtr is a function-pointer signature.
type FuncPtr struct {
	Sig MethodSig
}

func (FuncPtr) isType() {}
func (f FuncPtr) String() string {
	params := make([]string, len(f.Sig.Params))
	for i, p := range f.Sig.Params {
		params[i] = p.String()
	}
	return "fn(" + strings.Join(params, ", ") + ") " + f.Sig.Return.String()
}

// MethodSig is a decoded method signature.
type MethodSig struct {
	HasThis           bool
	ExplicitThis      bool
	VarArg            bool
	GenericParamCount uint32
	Return            Type
	Params            []Type
}
