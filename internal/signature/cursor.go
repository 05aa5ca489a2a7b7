package signature

import (
	"github.com/winmdgen/winmdgen/internal/diag"
	"github.com/winmdgen/winmdgen/internal/winmd"
)

// cursor is a forward-only reader over a signature blob.
type cursor struct {
	file *winmd.File
	blob []byte
	pos  int
}

func newCursor(f *winmd.File, blob []byte) *cursor {
	return &cursor{file: f, blob: blob}
}

func (c *cursor) fileName() string {
	if c.file == nil {
		return ""
	}
	return c.file.Name
}

// truncated builds the canonical truncation error for this blob.
func (c *cursor) truncated(what string) *diag.Error {
	return diag.New(diag.CodeTruncatedSignature, diag.CategorySignature,
		"signature blob truncated reading %s at offset %d", what, c.pos).
		WithFile(c.fileName())
}

func (c *cursor) u8(what string) (byte, *diag.Error) {
	if c.pos >= len(c.blob) {
		return 0, c.truncated(what)
	}
	b := c.blob[c.pos]
	c.pos++
	return b, nil
}

// peek returns the next byte without consuming it.
func (c *cursor) peek() (byte, bool) {
	if c.pos >= len(c.blob) {
		return 0, false
	}
	return c.blob[c.pos], true
}

// compressedUint reads the 1/2/4-byte compressed unsigned integer form.
// The top bits of the first byte select the width.
func (c *cursor) compressedUint(what string) (uint32, *diag.Error) {
	b0, err := c.u8(what)
	if err != nil {
		return 0, err
	}
	switch {
	case b0&0x80 == 0:
		return uint32(b0), nil
	case b0&0xC0 == 0x80:
		b1, err := c.u8(what)
		if err != nil {
			return 0, err
		}
		return uint32(b0&0x3F)<<8 | uint32(b1), nil
	case b0&0xE0 == 0xC0:
		var v uint32 = uint32(b0 & 0x1F)
		for i := 0; i < 3; i++ {
			bn, err := c.u8(what)
			if err != nil {
				return 0, err
			}
			v = v<<8 | uint32(bn)
		}
		return v, nil
	default:
		return 0, diag.New(diag.CodeTruncatedSignature, diag.CategorySignature,
			"invalid compressed integer prefix 0x%x at offset %d", b0, c.pos-1).
			WithFile(c.fileName())
	}
}

// compressedInt reads the compressed signed integer form: the unsigned
// encoding of the value rotated left by one, sign in the low bit. The sign
// bias depends on the encoded width, so it is taken from the prefix byte.
func (c *cursor) compressedInt(what string) (int32, *diag.Error) {
	b0, ok := c.peek()
	if !ok {
		return 0, c.truncated(what)
	}
	var bias int32
	switch {
	case b0&0x80 == 0:
		bias = 1 << 6
	case b0&0xC0 == 0x80:
		bias = 1 << 13
	default:
		bias = 1 << 28
	}
	raw, err := c.compressedUint(what)
	if err != nil {
		return 0, err
	}
	v := int32(raw >> 1)
	if raw&1 != 0 {
		v -= bias
	}
	return v, nil
}

// typeDefOrRef reads a compressed TypeDefOrRef token.
func (c *cursor) typeDefOrRef(what string) (winmd.CodedIndex, *diag.Error) {
	raw, err := c.compressedUint(what)
	if err != nil {
		return winmd.CodedIndex{}, err
	}
	// The low two bits select TypeDef, TypeRef, or TypeSpec.
	var table winmd.TableKind
	switch raw & 0x3 {
	case 0:
		table = winmd.TableTypeDef
	case 1:
		table = winmd.TableTypeRef
	case 2:
		table = winmd.TableTypeSpec
	default:
		return winmd.CodedIndex{}, diag.New(diag.CodeUnknownElementType, diag.CategorySignature,
			"invalid TypeDefOrRef tag in %s", what).WithFile(c.fileName())
	}
	return winmd.CodedIndex{Table: table, Row: raw >> 2}, nil
}
