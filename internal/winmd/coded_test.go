package winmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainIndexWidthBoundary(t *testing.T) {
	// 65,535 rows still fit a narrow index; 65,536 force a wide one.
	assert.False(t, PlainIndexWide(0))
	assert.False(t, PlainIndexWide(0xFFFF))
	assert.True(t, PlainIndexWide(0x10000))
}

func TestCodedIndexWidthBoundary(t *testing.T) {
	// TypeDefOrRef has 2 tag bits, leaving 14 bits of row index.
	counts := map[TableKind]uint32{}
	rowCount := func(k TableKind) uint32 { return counts[k] }

	assert.False(t, CodedIndexWide(CodedTypeDefOrRef, rowCount))

	counts[TableTypeDef] = 1<<14 - 1
	assert.False(t, CodedIndexWide(CodedTypeDefOrRef, rowCount))

	counts[TableTypeDef] = 1 << 14
	assert.True(t, CodedIndexWide(CodedTypeDefOrRef, rowCount))

	// A large unrelated table must not widen the family.
	counts = map[TableKind]uint32{TableAssembly: 1 << 20}
	assert.False(t, CodedIndexWide(CodedTypeDefOrRef, rowCount))
}

func TestCodedIndexTagBits(t *testing.T) {
	tests := []struct {
		kind CodedKind
		bits uint
	}{
		{CodedTypeDefOrRef, 2},
		{CodedHasConstant, 2},
		{CodedHasCustomAttribute, 5},
		{CodedHasFieldMarshal, 1},
		{CodedMemberRefParent, 3},
		{CodedMethodDefOrRef, 1},
		{CodedCustomAttributeType, 3},
		{CodedResolutionScope, 2},
		{CodedTypeOrMethodDef, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.bits, tt.kind.TagBits(), "family %d", tt.kind)
	}
}

func TestCodedIndexRoundTrip(t *testing.T) {
	ci := CodedIndex{Table: TableTypeRef, Row: 42}
	raw := ci.Encode(CodedTypeDefOrRef)
	assert.Equal(t, uint32(42<<2|1), raw)

	decoded, ok := decodeCoded(CodedTypeDefOrRef, raw)
	assert.True(t, ok)
	assert.Equal(t, ci, decoded)
}

func TestCodedIndexRejectsUnusedTag(t *testing.T) {
	// CustomAttributeType tags 0, 1, and 4 are unused slots.
	_, ok := decodeCoded(CodedCustomAttributeType, 1<<3|0)
	assert.False(t, ok)
	_, ok = decodeCoded(CodedCustomAttributeType, 1<<3|4)
	assert.False(t, ok)

	_, ok = decodeCoded(CodedCustomAttributeType, 1<<3|2)
	assert.True(t, ok)
}

func TestBlobLengthDecoding(t *testing.T) {
	tests := []struct {
		input  []byte
		length uint32
		size   int
		ok     bool
	}{
		{[]byte{0x03}, 3, 1, true},
		{[]byte{0x7F}, 0x7F, 1, true},
		{[]byte{0x80, 0x80}, 0x80, 2, true},
		{[]byte{0xBF, 0xFF}, 0x3FFF, 2, true},
		{[]byte{0xC0, 0x00, 0x40, 0x00}, 0x4000, 4, true},
		{[]byte{0xFF}, 0, 0, false},
		{[]byte{}, 0, 0, false},
		{[]byte{0x80}, 0, 0, false},
	}
	for _, tt := range tests {
		length, size, ok := decodeBlobLength(tt.input)
		assert.Equal(t, tt.ok, ok, "input % x", tt.input)
		if tt.ok {
			assert.Equal(t, tt.length, length, "input % x", tt.input)
			assert.Equal(t, tt.size, size, "input % x", tt.input)
		}
	}
}
