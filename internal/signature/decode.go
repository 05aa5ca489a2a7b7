package signature

import (
	"github.com/winmdgen/winmdgen/internal/diag"
	"github.com/winmdgen/winmdgen/internal/winmd"
)

// Calling convention bits in the leading byte of a method signature.
const (
	convMask         = 0x0F
	convDefault      = 0x00
	convVarArg       = 0x05
	convField        = 0x06
	convGeneric      = 0x10
	convHasThis      = 0x20
	convExplicitThis = 0x40
)

// isConstModifier is the advisory custom modifier marking const pointers.
var isConstModifier = winmd.TypeName{
	Namespace: "System.Runtime.CompilerServices",
	Name:      "IsConst",
}

// DecodeMethod decodes a method (or method-reference) signature blob.
func DecodeMethod(f *winmd.File, blob []byte) (MethodSig, *diag.Error) {
	return decodeMethodAt(newCursor(f, blob))
}

// DecodeField decodes a field signature blob.
func DecodeField(f *winmd.File, blob []byte) (Type, *diag.Error) {
	c := newCursor(f, blob)
	kind, err := c.u8("field signature kind")
	if err != nil {
		return nil, err
	}
	if kind&convMask != convField {
		return nil, diag.New(diag.CodeBadSignatureKind, diag.CategorySignature,
			"expected field signature, got leading byte 0x%x", kind).WithFile(c.fileName())
	}
	return decodeType(c)
}

// DecodeTypeSpec decodes a type-specification signature blob.
func DecodeTypeSpec(f *winmd.File, blob []byte) (Type, *diag.Error) {
	return decodeType(newCursor(f, blob))
}

// decodeType decodes one type expression at the cursor.
func decodeType(c *cursor) (Type, *diag.Error) {
	isConst, err := skipModifiers(c)
	if err != nil {
		return nil, err
	}

	el, err := c.u8("element type")
	if err != nil {
		return nil, err
	}

	switch el {
	case winmd.ElementTypeVoid:
		return Void{}, nil
	case winmd.ElementTypeBoolean:
		return Primitive{Bool}, nil
	case winmd.ElementTypeChar:
		return Primitive{Char}, nil
	case winmd.ElementTypeI1:
		return Primitive{Int8}, nil
	case winmd.ElementTypeU1:
		return Primitive{UInt8}, nil
	case winmd.ElementTypeI2:
		return Primitive{Int16}, nil
	case winmd.ElementTypeU2:
		return Primitive{UInt16}, nil
	case winmd.ElementTypeI4:
		return Primitive{Int32}, nil
	case winmd.ElementTypeU4:
		return Primitive{UInt32}, nil
	case winmd.ElementTypeI8:
		return Primitive{Int64}, nil
	case winmd.ElementTypeU8:
		return Primitive{UInt64}, nil
	case winmd.ElementTypeR4:
		return Primitive{Float32}, nil
	case winmd.ElementTypeR8:
		return Primitive{Float64}, nil
	case winmd.ElementTypeI:
		return Primitive{ISize}, nil
	case winmd.ElementTypeU:
		return Primitive{USize}, nil
	case winmd.ElementTypeString:
		return Primitive{String}, nil
	case winmd.ElementTypeObject:
		return Primitive{Object}, nil

	case winmd.ElementTypePtr:
		inner, err := decodeType(c)
		if err != nil {
			return nil, err
		}
		return Pointer{Inner: inner, IsConst: isConst}, nil

	case winmd.ElementTypeByRef:
		inner, err := decodeType(c)
		if err != nil {
			return nil, err
		}
		return ByRef{Inner: inner}, nil

	case winmd.ElementTypeValueType, winmd.ElementTypeClass:
		return decodeNamed(c, el == winmd.ElementTypeValueType)

	case winmd.ElementTypeVar, winmd.ElementTypeMVar:
		index, err := c.compressedUint("generic parameter index")
		if err != nil {
			return nil, err
		}
		return GenericParam{Method: el == winmd.ElementTypeMVar, Index: index}, nil

	case winmd.ElementTypeSZArray:
		inner, err := decodeType(c)
		if err != nil {
			return nil, err
		}
		return SZArray{Inner: inner}, nil

	case winmd.ElementTypeArray:
		return decodeArray(c)

	case winmd.ElementTypeGenericInst:
		return decodeGenericInst(c)

	case winmd.ElementTypeFnPtr:
		sig, err := decodeMethodAt(c)
		if err != nil {
			return nil, err
		}
		return FuncPtr{Sig: sig}, nil

	default:
		return nil, diag.New(diag.CodeUnknownElementType, diag.CategorySignature,
			"unknown element type 0x%02x at offset %d", el, c.pos-1).WithFile(c.fileName())
	}
}

// skipModifiers consumes leading custom modifiers and pinned markers.
// Modifiers are advisory: only the IsConst marker is surfaced, and only as
// pointer const-ness.
func skipModifiers(c *cursor) (bool, *diag.Error) {
	isConst := false
	for {
		b, ok := c.peek()
		if !ok {
			return isConst, nil
		}
		switch b {
		case winmd.ElementTypeCModOpt, winmd.ElementTypeCModReqd:
			c.pos++
			token, err := c.typeDefOrRef("custom modifier")
			if err != nil {
				return false, err
			}
			name, err := namedTarget(c, token)
			if err == nil && name == isConstModifier {
				isConst = true
			}
		case winmd.ElementTypePinned:
			c.pos++
		default:
			return isConst, nil
		}
	}
}

// decodeNamed decodes a VALUETYPE or CLASS token into a Named node. A token
// that points at a TypeSpec is decoded inline so consumers only ever see
// structural nodes.
func decodeNamed(c *cursor, isValueType bool) (Type, *diag.Error) {
	token, err := c.typeDefOrRef("type token")
	if err != nil {
		return nil, err
	}
	if token.Table == winmd.TableTypeSpec {
		return decodeSpecRow(c, token)
	}
	name, err := namedTarget(c, token)
	if err != nil {
		return nil, err
	}
	return Named{Name: name, IsValueType: isValueType}, nil
}

// namedTarget resolves a TypeDef or TypeRef token to its qualified name.
func namedTarget(c *cursor, token winmd.CodedIndex) (winmd.TypeName, *diag.Error) {
	row, err := c.file.Resolve(token)
	if err != nil {
		return winmd.TypeName{}, err
	}
	switch token.Table {
	case winmd.TableTypeDef:
		return winmd.TypeDef{Row: row}.TypeName()
	case winmd.TableTypeRef:
		return winmd.TypeRef{Row: row}.TypeName()
	}
	return winmd.TypeName{}, diag.New(diag.CodeUnknownElementType, diag.CategorySignature,
		"type token does not name a TypeDef or TypeRef").WithFile(c.fileName())
}

// decodeSpecRow decodes the signature blob of a TypeSpec row.
func decodeSpecRow(c *cursor, token winmd.CodedIndex) (Type, *diag.Error) {
	row, err := c.file.Resolve(token)
	if err != nil {
		return nil, err
	}
	blob, err := winmd.TypeSpec{Row: row}.Signature()
	if err != nil {
		return nil, err
	}
	return DecodeTypeSpec(c.file, blob)
}

// decodeArray decodes a general (bounded, possibly multi-dimensional)
// array.
func decodeArray(c *cursor) (Type, *diag.Error) {
	inner, err := decodeType(c)
	if err != nil {
		return nil, err
	}
	rank, err := c.compressedUint("array rank")
	if err != nil {
		return nil, err
	}
	numSizes, err := c.compressedUint("array size count")
	if err != nil {
		return nil, err
	}
	sizes := make([]uint32, numSizes)
	for i := range sizes {
		if sizes[i], err = c.compressedUint("array size"); err != nil {
			return nil, err
		}
	}
	numLo, err := c.compressedUint("array bound count")
	if err != nil {
		return nil, err
	}
	bounds := make([]int32, numLo)
	for i := range bounds {
		if bounds[i], err = c.compressedInt("array bound"); err != nil {
			return nil, err
		}
	}
	return Array{Inner: inner, Rank: rank, Sizes: sizes, LoBounds: bounds}, nil
}

// decodeGenericInst decodes a generic instantiation.
func decodeGenericInst(c *cursor) (Type, *diag.Error) {
	el, err := c.u8("generic definition element")
	if err != nil {
		return nil, err
	}
	if el != winmd.ElementTypeClass && el != winmd.ElementTypeValueType {
		return nil, diag.New(diag.CodeUnknownElementType, diag.CategorySignature,
			"generic instantiation definition has element type 0x%02x", el).WithFile(c.fileName())
	}
	token, err := c.typeDefOrRef("generic definition token")
	if err != nil {
		return nil, err
	}
	name, err := namedTarget(c, token)
	if err != nil {
		return nil, err
	}
	argc, err := c.compressedUint("generic argument count")
	if err != nil {
		return nil, err
	}
	args := make([]Type, argc)
	for i := range args {
		if args[i], err = decodeType(c); err != nil {
			return nil, err
		}
	}
	return GenericInst{Def: Named{Name: name, IsValueType: el == winmd.ElementTypeValueType}, Args: args}, nil
}

// decodeMethodAt decodes a method signature at the cursor position. It is
// shared by DecodeMethod and the inline function-pointer element.
func decodeMethodAt(c *cursor) (MethodSig, *diag.Error) {
	var sig MethodSig

	conv, err := c.u8("calling convention")
	if err != nil {
		return sig, err
	}
	sig.HasThis = conv&convHasThis != 0
	sig.ExplicitThis = conv&convExplicitThis != 0
	sig.VarArg = conv&convMask == convVarArg

	if conv&convGeneric != 0 {
		if sig.GenericParamCount, err = c.compressedUint("generic parameter count"); err != nil {
			return sig, err
		}
	}
	paramCount, err := c.compressedUint("parameter count")
	if err != nil {
		return sig, err
	}
	if sig.Return, err = decodeType(c); err != nil {
		return sig, err
	}
	sig.Params = make([]Type, 0, paramCount)
	for i := uint32(0); i < paramCount; i++ {
		// A sentinel separates fixed from vararg parameters; the vararg
		// tail is irrelevant to binding generation.
		if b, ok := c.peek(); ok && b == winmd.ElementTypeSentinel {
			c.pos++
		}
		p, err := decodeType(c)
		if err != nil {
			return sig, err
		}
		sig.Params = append(sig.Params, p)
	}
	return sig, nil
}
