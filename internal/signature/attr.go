package signature

import (
	"encoding/binary"
	"math"

	"github.com/google/uuid"

	"github.com/winmdgen/winmdgen/internal/diag"
	"github.com/winmdgen/winmdgen/internal/winmd"
)

// FixedArg is one decoded fixed argument of a custom attribute.
type FixedArg struct {
	Type  Type
	Value any
}

// DecodeAttributeFixedArgs decodes the fixed arguments of a custom
// attribute value blob, driven by the constructor signature. Named
// arguments after the fixed list are ignored.
func DecodeAttributeFixedArgs(f *winmd.File, attr winmd.CustomAttribute) ([]FixedArg, *diag.Error) {
	sigBlob, err := attr.ConstructorSignature()
	if err != nil {
		return nil, err
	}
	sig, err := DecodeMethod(f, sigBlob)
	if err != nil {
		return nil, err
	}
	value, err := attr.Value()
	if err != nil {
		return nil, err
	}

	c := newCursor(f, value)
	prolog, err := readU16(c, "attribute prolog")
	if err != nil {
		return nil, err
	}
	if prolog != 0x0001 {
		return nil, diag.New(diag.CodeBadSignatureKind, diag.CategorySignature,
			"custom attribute value has prolog 0x%04x, want 0x0001", prolog).WithFile(c.fileName())
	}

	args := make([]FixedArg, 0, len(sig.Params))
	for _, p := range sig.Params {
		v, err := decodeFixedArg(c, p)
		if err != nil {
			return nil, err
		}
		args = append(args, FixedArg{Type: p, Value: v})
	}
	return args, nil
}

// decodeFixedArg decodes one fixed argument of the given declared type.
func decodeFixedArg(c *cursor, t Type) (any, *diag.Error) {
	switch v := t.(type) {
	case Primitive:
		return decodePrimitiveArg(c, v.Kind)
	case Named:
		// WinRT attribute arguments of named value types are enums with a
		// 32-bit underlying representation.
		if v.IsValueType {
			raw, err := readU32(c, "enum argument")
			if err != nil {
				return nil, err
			}
			return int32(raw), nil
		}
		if v.Name == (winmd.TypeName{Namespace: "System", Name: "Type"}) {
			return readSerString(c)
		}
	}
	return nil, diag.New(diag.CodeUnknownElementType, diag.CategorySignature,
		"unsupported custom attribute argument type %s", t).WithFile(c.fileName())
}

func decodePrimitiveArg(c *cursor, k PrimitiveKind) (any, *diag.Error) {
	switch k {
	case Bool:
		b, err := c.u8("bool argument")
		if err != nil {
			return nil, err
		}
		return b != 0, nil
	case Char, UInt16:
		v, err := readU16(c, "argument")
		if err != nil {
			return nil, err
		}
		return v, nil
	case Int8:
		b, err := c.u8("argument")
		if err != nil {
			return nil, err
		}
		return int8(b), nil
	case UInt8:
		return c.u8("argument")
	case Int16:
		v, err := readU16(c, "argument")
		if err != nil {
			return nil, err
		}
		return int16(v), nil
	case Int32:
		v, err := readU32(c, "argument")
		if err != nil {
			return nil, err
		}
		return int32(v), nil
	case UInt32:
		return readU32(c, "argument")
	case Int64:
		v, err := readU64(c, "argument")
		if err != nil {
			return nil, err
		}
		return int64(v), nil
	case UInt64:
		return readU64(c, "argument")
	case Float32:
		v, err := readU32(c, "argument")
		if err != nil {
			return nil, err
		}
		return math.Float32frombits(v), nil
	case Float64:
		v, err := readU64(c, "argument")
		if err != nil {
			return nil, err
		}
		return math.Float64frombits(v), nil
	case String:
		return readSerString(c)
	}
	return nil, diag.New(diag.CodeUnknownElementType, diag.CategorySignature,
		"unsupported primitive attribute argument kind %d", k).WithFile(c.fileName())
}

// readSerString reads a length-prefixed UTF-8 string. A single 0xFF byte
// encodes the null string, surfaced as "".
func readSerString(c *cursor) (string, *diag.Error) {
	if b, ok := c.peek(); ok && b == 0xFF {
		c.pos++
		return "", nil
	}
	length, err := c.compressedUint("string length")
	if err != nil {
		return "", err
	}
	if c.pos+int(length) > len(c.blob) {
		return "", c.truncated("string argument")
	}
	s := string(c.blob[c.pos : c.pos+int(length)])
	c.pos += int(length)
	return s, nil
}

func readU16(c *cursor, what string) (uint16, *diag.Error) {
	if c.pos+2 > len(c.blob) {
		return 0, c.truncated(what)
	}
	v := binary.LittleEndian.Uint16(c.blob[c.pos:])
	c.pos += 2
	return v, nil
}

func readU32(c *cursor, what string) (uint32, *diag.Error) {
	if c.pos+4 > len(c.blob) {
		return 0, c.truncated(what)
	}
	v := binary.LittleEndian.Uint32(c.blob[c.pos:])
	c.pos += 4
	return v, nil
}

func readU64(c *cursor, what string) (uint64, *diag.Error) {
	if c.pos+8 > len(c.blob) {
		return 0, c.truncated(what)
	}
	v := binary.LittleEndian.Uint64(c.blob[c.pos:])
	c.pos += 8
	return v, nil
}

// TypeGuid returns the interface identifier attached to a type through its
// GUID attribute, if present. The attribute's sixteen fixed-argument bytes
// are laid out exactly like the on-disk GUID structure.
func TypeGuid(td winmd.TypeDef) (uuid.UUID, bool, *diag.Error) {
	attr, ok := td.AttributeNamed(winmd.AttrGuid)
	if !ok {
		return uuid.Nil, false, nil
	}
	value, err := attr.Value()
	if err != nil {
		return uuid.Nil, false, err
	}
	if len(value) < 18 {
		return uuid.Nil, false, diag.New(diag.CodeTruncatedSignature, diag.CategorySignature,
			"GUID attribute value is %d bytes, want at least 18", len(value)).
			WithFile(td.File.Name)
	}
	var raw [16]byte
	copy(raw[:], value[2:18])
	return winmd.GuidToUUID(raw), true, nil
}

// SupportedArchitecture returns the architecture mask attached to a type,
// if present. Bit 1 is x86, bit 2 is x64, bit 4 is arm64.
func SupportedArchitecture(td winmd.TypeDef) (int32, bool, *diag.Error) {
	attr, ok := td.AttributeNamed(winmd.AttrArchitecture)
	if !ok {
		return 0, false, nil
	}
	value, err := attr.Value()
	if err != nil {
		return 0, false, err
	}
	if len(value) < 6 {
		return 0, false, diag.New(diag.CodeTruncatedSignature, diag.CategorySignature,
			"architecture attribute value is %d bytes, want at least 6", len(value)).
			WithFile(td.File.Name)
	}
	return int32(binary.LittleEndian.Uint32(value[2:6])), true, nil
}
