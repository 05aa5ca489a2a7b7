package winmd

import (
	"encoding/binary"

	"github.com/winmdgen/winmdgen/internal/diag"
)

// Row is a lightweight handle to one table row: a (file, table, index)
// tuple, never a pointer into decoded structures. Index is zero-based.
type Row struct {
	File  *File
	Table TableKind
	Index uint32
}

// IsNil reports whether the handle refers to no row.
func (r Row) IsNil() bool {
	return r.File == nil
}

// colOffset returns the absolute file offset of the given column.
func (r Row) colOffset(col int) (uint32, uint32) {
	layout := r.File.layouts[r.Table]
	c := layout.columns[col]
	return layout.offset + r.Index*layout.rowSize + c.offset, c.width
}

// Uint reads a column as an unsigned integer, honoring the column width
// computed at load time. Table bounds were validated during Load, so reads
// on in-range rows cannot fail.
func (r Row) Uint(col int) uint32 {
	off, width := r.colOffset(col)
	if width == 2 {
		return uint32(binary.LittleEndian.Uint16(r.File.data[off:]))
	}
	return binary.LittleEndian.Uint32(r.File.data[off:])
}

// TableIndex reads a column as a plain one-based index into another table.
func (r Row) TableIndex(col int) uint32 {
	return r.Uint(col)
}

// Coded reads a column as a coded index of the given family.
func (r Row) Coded(col int, kind CodedKind) (CodedIndex, *diag.Error) {
	raw := r.Uint(col)
	ci, ok := decodeCoded(kind, raw)
	if !ok {
		off, _ := r.colOffset(col)
		return CodedIndex{}, diag.New(diag.CodeInvalidCodedIndex, diag.CategoryContainer,
			"invalid %s tag in raw coded index 0x%x", r.Table, raw).
			WithFile(r.File.Name).WithOffset(int64(off))
	}
	return ci, nil
}

// String reads a column as a #Strings heap index and resolves it.
func (r Row) String(col int) (string, *diag.Error) {
	return r.File.readString(r.Uint(col))
}

// Blob reads a column as a #Blob heap index and resolves it to raw bytes.
func (r Row) Blob(col int) ([]byte, *diag.Error) {
	return r.File.readBlob(r.Uint(col))
}

// Guid reads a column as a #GUID heap index and resolves it.
func (r Row) Guid(col int) ([16]byte, *diag.Error) {
	return r.File.readGuid(r.Uint(col))
}

// Resolve converts a coded index into a Row handle. The caller is expected
// to have checked IsNil; resolving a null reference returns a nil Row.
func (f *File) Resolve(ci CodedIndex) (Row, *diag.Error) {
	if ci.IsNil() {
		return Row{}, nil
	}
	if ci.Row > f.rowCounts[ci.Table] {
		return Row{}, diag.New(diag.CodeRowOutOfRange, diag.CategoryContainer,
			"%s row %d out of range (table has %d rows)", ci.Table, ci.Row, f.rowCounts[ci.Table]).
			WithFile(f.Name)
	}
	return Row{File: f, Table: ci.Table, Index: ci.Row - 1}, nil
}

// listRange resolves a one-based "list" column (e.g. TypeDef.FieldList)
// into a [start, end) range of zero-based rows in the target table. The end
// of the range is the next row's list value, or the target row count for
// the final row.
func (r Row) listRange(col int, target TableKind) (uint32, uint32) {
	start := r.Uint(col)
	var end uint32
	if r.Index+1 < r.File.rowCounts[r.Table] {
		next := Row{File: r.File, Table: r.Table, Index: r.Index + 1}
		end = next.Uint(col)
	} else {
		end = r.File.rowCounts[target] + 1
	}
	if start == 0 {
		return 0, 0
	}
	if end < start {
		end = start
	}
	max := r.File.rowCounts[target] + 1
	if end > max {
		end = max
	}
	return start - 1, end - 1
}
