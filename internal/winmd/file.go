package winmd

import (
	"encoding/binary"
	"strings"

	"github.com/winmdgen/winmdgen/internal/diag"
)

const (
	dosMagic      = 0x5A4D     // "MZ"
	peMagic       = 0x00004550 // "PE\0\0"
	pe32Magic     = 0x10B
	pe32PlusMagic = 0x20B
	metadataMagic = 0x424A5342 // "BSJB"

	clrDataDirectory = 14
)

// TypeName is a namespace-qualified type name.
type TypeName struct {
	Namespace string
	Name      string
}

// String returns the dotted form of the name.
func (n TypeName) String() string {
	if n.Namespace == "" {
		return n.Name
	}
	return n.Namespace + "." + n.Name
}

// heapRef locates one metadata heap inside the file buffer.
type heapRef struct {
	offset uint32
	size   uint32
}

// colLayout is the resolved byte offset and width of one table column.
type colLayout struct {
	offset uint32
	width  uint32
}

// tableLayout is the resolved location of one table's data.
type tableLayout struct {
	offset  uint32 // absolute file offset of the first row
	rowSize uint32
	columns []colLayout
}

// File is a loaded, immutable metadata file. It is safe for concurrent use:
// nothing mutates it after Load returns.
type File struct {
	// Name identifies the file in diagnostics (usually its path).
	Name string

	data []byte

	version string

	strings heapRef
	blob    heapRef
	guids   heapRef
	userStr heapRef

	rowCounts [numTables]uint32
	layouts   [numTables]tableLayout

	typeIndex map[TypeName]uint32 // (namespace, name) -> 0-based TypeDef row
}

// Version returns the metadata version string from the metadata root.
func (f *File) Version() string {
	return f.version
}

// RowCount returns the number of rows in the given table.
func (f *File) RowCount(t TableKind) uint32 {
	return f.rowCounts[t]
}

// Load parses a binary metadata container into a File. The byte slice is
// retained and must not be mutated afterwards.
func Load(data []byte, name string) (*File, *diag.Error) {
	f := &File{Name: name, data: data}

	metaOff, err := f.locateMetadata()
	if err != nil {
		return nil, err.WithFile(name)
	}
	if err := f.parseMetadataRoot(metaOff); err != nil {
		return nil, err.WithFile(name)
	}
	if err := f.buildTypeIndex(); err != nil {
		return nil, err.WithFile(name)
	}
	return f, nil
}

// locateMetadata walks DOS header -> PE headers -> CLR header and returns
// the file offset of the metadata root.
func (f *File) locateMetadata() (uint32, *diag.Error) {
	if len(f.data) < 0x40 {
		return 0, diag.New(diag.CodeTruncatedStream, diag.CategoryContainer,
			"file too small for a DOS header (%d bytes)", len(f.data)).WithOffset(0)
	}
	if binary.LittleEndian.Uint16(f.data) != dosMagic {
		return 0, diag.New(diag.CodeMalformedContainer, diag.CategoryContainer,
			"missing MZ signature").WithOffset(0)
	}

	peOff := binary.LittleEndian.Uint32(f.data[0x3C:])
	if err := f.need(peOff, 24); err != nil {
		return 0, err
	}
	if binary.LittleEndian.Uint32(f.data[peOff:]) != peMagic {
		return 0, diag.New(diag.CodeMalformedContainer, diag.CategoryContainer,
			"missing PE signature").WithOffset(int64(peOff))
	}

	numSections := binary.LittleEndian.Uint16(f.data[peOff+6:])
	optSize := binary.LittleEndian.Uint16(f.data[peOff+20:])
	optOff := peOff + 24
	if err := f.need(optOff, uint32(optSize)); err != nil {
		return 0, err
	}
	if optSize < 2 {
		return 0, diag.New(diag.CodeMalformedContainer, diag.CategoryContainer,
			"optional header too small (%d bytes)", optSize).WithOffset(int64(peOff + 20))
	}

	// The data directory array sits at a different offset for PE32 and
	// PE32+ images.
	var dirOff uint32
	var dirCount uint32
	switch magic := binary.LittleEndian.Uint16(f.data[optOff:]); magic {
	case pe32Magic:
		dirCount = binary.LittleEndian.Uint32(f.data[optOff+92:])
		dirOff = optOff + 96
	case pe32PlusMagic:
		dirCount = binary.LittleEndian.Uint32(f.data[optOff+108:])
		dirOff = optOff + 112
	default:
		return 0, diag.New(diag.CodeMalformedContainer, diag.CategoryContainer,
			"unknown optional header magic 0x%x", magic).WithOffset(int64(optOff))
	}
	if dirCount <= clrDataDirectory {
		return 0, diag.New(diag.CodeMalformedContainer, diag.CategoryContainer,
			"image has no CLR data directory (%d directories)", dirCount).WithOffset(int64(dirOff))
	}
	if err := f.need(dirOff, dirCount*8); err != nil {
		return 0, err
	}

	sectionOff := optOff + uint32(optSize)
	if err := f.need(sectionOff, uint32(numSections)*40); err != nil {
		return 0, err
	}

	clrRVA := binary.LittleEndian.Uint32(f.data[dirOff+clrDataDirectory*8:])
	if clrRVA == 0 {
		return 0, diag.New(diag.CodeMalformedContainer, diag.CategoryContainer,
			"CLR data directory is empty").WithOffset(int64(dirOff + clrDataDirectory*8))
	}

	clrOff, err := f.rvaToOffset(clrRVA, sectionOff, numSections)
	if err != nil {
		return 0, err
	}
	if nerr := f.need(clrOff, 72); nerr != nil {
		return 0, nerr
	}

	metaRVA := binary.LittleEndian.Uint32(f.data[clrOff+8:])
	return f.rvaToOffset(metaRVA, sectionOff, numSections)
}

// rvaToOffset maps a relative virtual address to a file offset using the
// section table.
func (f *File) rvaToOffset(rva, sectionOff uint32, numSections uint16) (uint32, *diag.Error) {
	for i := uint32(0); i < uint32(numSections); i++ {
		s := sectionOff + i*40
		virtSize := binary.LittleEndian.Uint32(f.data[s+8:])
		virtAddr := binary.LittleEndian.Uint32(f.data[s+12:])
		rawSize := binary.LittleEndian.Uint32(f.data[s+16:])
		rawPtr := binary.LittleEndian.Uint32(f.data[s+20:])

		size := virtSize
		if rawSize > size {
			size = rawSize
		}
		if rva >= virtAddr && rva < virtAddr+size {
			return rva - virtAddr + rawPtr, nil
		}
	}
	return 0, diag.New(diag.CodeMalformedContainer, diag.CategoryContainer,
		"RVA 0x%x maps to no section", rva)
}

// parseMetadataRoot parses the metadata root, stream headers, and the
// compressed table stream.
func (f *File) parseMetadataRoot(rootOff uint32) *diag.Error {
	if err := f.need(rootOff, 20); err != nil {
		return err
	}
	if binary.LittleEndian.Uint32(f.data[rootOff:]) != metadataMagic {
		return diag.New(diag.CodeMalformedContainer, diag.CategoryContainer,
			"missing BSJB metadata signature").WithOffset(int64(rootOff))
	}

	verLen := binary.LittleEndian.Uint32(f.data[rootOff+12:])
	if err := f.need(rootOff+16, verLen); err != nil {
		return err
	}
	f.version = strings.TrimRight(string(f.data[rootOff+16:rootOff+16+verLen]), "\x00")

	streamCountOff := rootOff + 16 + verLen + 2
	if err := f.need(streamCountOff, 2); err != nil {
		return err
	}
	streamCount := binary.LittleEndian.Uint16(f.data[streamCountOff:])

	var tables heapRef
	cursor := streamCountOff + 2
	for i := uint16(0); i < streamCount; i++ {
		if err := f.need(cursor, 8); err != nil {
			return err
		}
		offset := binary.LittleEndian.Uint32(f.data[cursor:])
		size := binary.LittleEndian.Uint32(f.data[cursor+4:])

		nameStart := cursor + 8
		nameEnd := nameStart
		for {
			if err := f.need(nameEnd, 1); err != nil {
				return err
			}
			if f.data[nameEnd] == 0 {
				break
			}
			nameEnd++
		}
		streamName := string(f.data[nameStart:nameEnd])
		// Stream names are zero-padded to a 4-byte boundary.
		cursor = nameStart + (uint32(len(streamName))+4)&^3

		ref := heapRef{offset: rootOff + offset, size: size}
		if err := f.need(ref.offset, ref.size); err != nil {
			return diag.New(diag.CodeTruncatedStream, diag.CategoryContainer,
				"stream %q extends past end of file", streamName).WithOffset(int64(ref.offset))
		}

		switch streamName {
		case "#~":
			tables = ref
		case "#-":
			return diag.New(diag.CodeUnsupportedVersion, diag.CategoryContainer,
				"uncompressed (#-) table streams are not supported").WithOffset(int64(ref.offset))
		case "#Strings":
			f.strings = ref
		case "#Blob":
			f.blob = ref
		case "#GUID":
			f.guids = ref
		case "#US":
			f.userStr = ref
		}
	}

	if tables.size == 0 {
		return diag.New(diag.CodeMalformedContainer, diag.CategoryContainer,
			"metadata has no #~ table stream").WithOffset(int64(rootOff))
	}
	return f.parseTableStream(tables)
}

// parseTableStream reads the #~ header and computes, once per file, every
// table's row size and data offset from the actual row counts.
func (f *File) parseTableStream(tables heapRef) *diag.Error {
	off := tables.offset
	if err := f.need(off, 24); err != nil {
		return err
	}

	major := f.data[off+4]
	minor := f.data[off+5]
	if major != 2 || minor != 0 {
		return diag.New(diag.CodeUnsupportedVersion, diag.CategoryContainer,
			"unsupported table stream version %d.%d", major, minor).WithOffset(int64(off + 4))
	}

	heapSizes := f.data[off+6]
	valid := binary.LittleEndian.Uint64(f.data[off+8:])

	cursor := off + 24
	for t := 0; t < 64; t++ {
		if valid&(1<<uint(t)) == 0 {
			continue
		}
		if err := f.need(cursor, 4); err != nil {
			return err
		}
		count := binary.LittleEndian.Uint32(f.data[cursor:])
		cursor += 4
		if t >= numTables {
			return diag.New(diag.CodeMalformedContainer, diag.CategoryContainer,
				"valid bitmask names unknown table 0x%x", t).WithOffset(int64(off + 8))
		}
		f.rowCounts[t] = count
	}

	stringsWide := heapSizes&0x1 != 0
	guidWide := heapSizes&0x2 != 0
	blobWide := heapSizes&0x4 != 0

	rowCount := func(t TableKind) uint32 { return f.rowCounts[t] }

	for t := TableKind(0); t < numTables; t++ {
		schema := tableSchemas[t]
		layout := tableLayout{offset: cursor, columns: make([]colLayout, len(schema))}

		size := uint32(0)
		for i, col := range schema {
			width := uint32(2)
			switch col.kind {
			case colFixed2:
				width = 2
			case colFixed4:
				width = 4
			case colString:
				if stringsWide {
					width = 4
				}
			case colGuid:
				if guidWide {
					width = 4
				}
			case colBlob:
				if blobWide {
					width = 4
				}
			case colIndex:
				if PlainIndexWide(f.rowCounts[col.target]) {
					width = 4
				}
			case colCoded:
				if CodedIndexWide(CodedKind(col.target), rowCount) {
					width = 4
				}
			}
			layout.columns[i] = colLayout{offset: size, width: width}
			size += width
		}
		layout.rowSize = size
		f.layouts[t] = layout

		dataSize := size * f.rowCounts[t]
		if err := f.need(cursor, dataSize); err != nil {
			return diag.New(diag.CodeTruncatedStream, diag.CategoryContainer,
				"%s table extends past end of file (%d rows of %d bytes)",
				t, f.rowCounts[t], size).WithOffset(int64(cursor))
		}
		cursor += dataSize
	}

	return nil
}

// buildTypeIndex indexes TypeDef rows by (namespace, name). The first row
// wins on duplicates so lookup never returns two rows from the same file.
func (f *File) buildTypeIndex() *diag.Error {
	f.typeIndex = make(map[TypeName]uint32, f.rowCounts[TableTypeDef])
	for i := uint32(0); i < f.rowCounts[TableTypeDef]; i++ {
		td := TypeDef{Row{File: f, Table: TableTypeDef, Index: i}}
		name, err := td.Name()
		if err != nil {
			return err
		}
		ns, err := td.Namespace()
		if err != nil {
			return err
		}
		key := TypeName{Namespace: ns, Name: name}
		if _, dup := f.typeIndex[key]; !dup {
			f.typeIndex[key] = i
		}
	}
	return nil
}

// TypeDefByName returns the TypeDef with the given namespace and name.
func (f *File) TypeDefByName(name TypeName) (TypeDef, bool) {
	i, ok := f.typeIndex[name]
	if !ok {
		return TypeDef{}, false
	}
	return TypeDef{Row{File: f, Table: TableTypeDef, Index: i}}, true
}

// TypeDefs returns every TypeDef row in declaration order.
func (f *File) TypeDefs() []TypeDef {
	defs := make([]TypeDef, f.rowCounts[TableTypeDef])
	for i := range defs {
		defs[i] = TypeDef{Row{File: f, Table: TableTypeDef, Index: uint32(i)}}
	}
	return defs
}

// need verifies that size bytes at offset fit inside the buffer.
func (f *File) need(offset, size uint32) *diag.Error {
	end := uint64(offset) + uint64(size)
	if end > uint64(len(f.data)) {
		return diag.New(diag.CodeTruncatedStream, diag.CategoryContainer,
			"read of %d bytes at offset 0x%x exceeds file size %d", size, offset, len(f.data)).
			WithOffset(int64(offset))
	}
	return nil
}
