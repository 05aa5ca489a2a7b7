package winmd

import (
	"encoding/binary"

	"github.com/google/uuid"
	"github.com/winmdgen/winmdgen/internal/diag"
)

// readString resolves a #Strings heap index to its zero-terminated UTF-8
// value.
func (f *File) readString(index uint32) (string, *diag.Error) {
	if index >= f.strings.size {
		return "", diag.New(diag.CodeHeapOutOfRange, diag.CategoryContainer,
			"string heap index 0x%x out of range (heap size 0x%x)", index, f.strings.size).
			WithFile(f.Name).WithOffset(int64(f.strings.offset))
	}
	start := f.strings.offset + index
	end := f.strings.offset + f.strings.size
	for i := start; i < end; i++ {
		if f.data[i] == 0 {
			return string(f.data[start:i]), nil
		}
	}
	return "", diag.New(diag.CodeTruncatedStream, diag.CategoryContainer,
		"unterminated string at heap index 0x%x", index).
		WithFile(f.Name).WithOffset(int64(start))
}

// readBlob resolves a #Blob heap index to its raw bytes. Blob entries carry
// a compressed length prefix (1, 2, or 4 bytes selected by the top bits of
// the first byte).
func (f *File) readBlob(index uint32) ([]byte, *diag.Error) {
	if index >= f.blob.size {
		return nil, diag.New(diag.CodeHeapOutOfRange, diag.CategoryContainer,
			"blob heap index 0x%x out of range (heap size 0x%x)", index, f.blob.size).
			WithFile(f.Name).WithOffset(int64(f.blob.offset))
	}
	start := f.blob.offset + index
	rest := f.data[start : f.blob.offset+f.blob.size]

	length, lenSize, ok := decodeBlobLength(rest)
	if !ok {
		return nil, diag.New(diag.CodeMalformedContainer, diag.CategoryContainer,
			"invalid blob length prefix at heap index 0x%x", index).
			WithFile(f.Name).WithOffset(int64(start))
	}
	if uint64(lenSize)+uint64(length) > uint64(len(rest)) {
		return nil, diag.New(diag.CodeTruncatedStream, diag.CategoryContainer,
			"blob of %d bytes at heap index 0x%x extends past heap end", length, index).
			WithFile(f.Name).WithOffset(int64(start))
	}
	return rest[lenSize : uint32(lenSize)+length], nil
}

// decodeBlobLength decodes the compressed length prefix of a blob entry.
func decodeBlobLength(b []byte) (length uint32, size int, ok bool) {
	if len(b) == 0 {
		return 0, 0, false
	}
	switch {
	case b[0]&0x80 == 0:
		return uint32(b[0]), 1, true
	case b[0]&0xC0 == 0x80:
		if len(b) < 2 {
			return 0, 0, false
		}
		return uint32(b[0]&0x3F)<<8 | uint32(b[1]), 2, true
	case b[0]&0xE0 == 0xC0:
		if len(b) < 4 {
			return 0, 0, false
		}
		return uint32(b[0]&0x1F)<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), 4, true
	default:
		return 0, 0, false
	}
}

// readGuid resolves a one-based #GUID heap index to its raw 16 bytes.
func (f *File) readGuid(index uint32) ([16]byte, *diag.Error) {
	var g [16]byte
	if index == 0 {
		return g, nil
	}
	offset := (index - 1) * 16
	if offset+16 > f.guids.size {
		return g, diag.New(diag.CodeHeapOutOfRange, diag.CategoryContainer,
			"GUID heap index %d out of range (heap size 0x%x)", index, f.guids.size).
			WithFile(f.Name).WithOffset(int64(f.guids.offset))
	}
	copy(g[:], f.data[f.guids.offset+offset:])
	return g, nil
}

// GuidToUUID converts the on-disk GUID layout (little-endian Data1..Data3,
// raw Data4) into an RFC 4122 uuid.UUID.
func GuidToUUID(g [16]byte) uuid.UUID {
	var u uuid.UUID
	binary.BigEndian.PutUint32(u[0:], binary.LittleEndian.Uint32(g[0:]))
	binary.BigEndian.PutUint16(u[4:], binary.LittleEndian.Uint16(g[4:]))
	binary.BigEndian.PutUint16(u[6:], binary.LittleEndian.Uint16(g[6:]))
	copy(u[8:], g[8:])
	return u
}

// UUIDToGuid is the inverse of GuidToUUID. Used by the synthetic image
// builder and by emitted GUID literals.
func UUIDToGuid(u uuid.UUID) [16]byte {
	var g [16]byte
	binary.LittleEndian.PutUint32(g[0:], binary.BigEndian.Uint32(u[0:]))
	binary.LittleEndian.PutUint16(g[4:], binary.BigEndian.Uint16(u[4:]))
	binary.LittleEndian.PutUint16(g[6:], binary.BigEndian.Uint16(u[6:]))
	copy(g[8:], u[8:])
	return g
}
