// Package winmdtest builds minimal, well-formed metadata images in memory
// for tests. The builder assembles a full container (DOS/PE headers, CLR
// header, metadata root, streams) so tests exercise the same load path as
// real files.
package winmdtest

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/winmdgen/winmdgen/internal/winmd"
)

const numTables = 0x2D

// wcolKind mirrors the ECMA-335 column encodings the builder emits.
type wcolKind uint8

const (
	w2 wcolKind = iota
	w4
	wstr
	wguid
	wblob
	widx
	wcoded
)

type wcol struct {
	kind   wcolKind
	target uint8 // table kind for widx, coded family for wcoded
}

// writerSchemas lists column layouts for the tables the builder can emit.
// They follow ECMA-335 II.22; the reader's own schemas are the
// authoritative copy and reader tests cross-check the two.
var writerSchemas = map[winmd.TableKind][]wcol{
	winmd.TableModule:        {{w2, 0}, {wstr, 0}, {wguid, 0}, {wguid, 0}, {wguid, 0}},
	winmd.TableTypeRef:       {{wcoded, uint8(winmd.CodedResolutionScope)}, {wstr, 0}, {wstr, 0}},
	winmd.TableTypeDef:       {{w4, 0}, {wstr, 0}, {wstr, 0}, {wcoded, uint8(winmd.CodedTypeDefOrRef)}, {widx, uint8(winmd.TableField)}, {widx, uint8(winmd.TableMethodDef)}},
	winmd.TableField:         {{w2, 0}, {wstr, 0}, {wblob, 0}},
	winmd.TableMethodDef:     {{w4, 0}, {w2, 0}, {w2, 0}, {wstr, 0}, {wblob, 0}, {widx, uint8(winmd.TableParam)}},
	winmd.TableParam:         {{w2, 0}, {w2, 0}, {wstr, 0}},
	winmd.TableInterfaceImpl: {{widx, uint8(winmd.TableTypeDef)}, {wcoded, uint8(winmd.CodedTypeDefOrRef)}},
	winmd.TableMemberRef:     {{wcoded, uint8(winmd.CodedMemberRefParent)}, {wstr, 0}, {wblob, 0}},
	winmd.TableConstant:      {{w2, 0}, {wcoded, uint8(winmd.CodedHasConstant)}, {wblob, 0}},
	winmd.TableCustomAttribute: {
		{wcoded, uint8(winmd.CodedHasCustomAttribute)},
		{wcoded, uint8(winmd.CodedCustomAttributeType)},
		{wblob, 0},
	},
	winmd.TableClassLayout:  {{w2, 0}, {w4, 0}, {widx, uint8(winmd.TableTypeDef)}},
	winmd.TableModuleRef:    {{wstr, 0}},
	winmd.TableTypeSpec:     {{wblob, 0}},
	winmd.TableImplMap:      {{w2, 0}, {wcoded, uint8(winmd.CodedMemberForwarded)}, {wstr, 0}, {widx, uint8(winmd.TableModuleRef)}},
	winmd.TableAssemblyRef:  {{w2, 0}, {w2, 0}, {w2, 0}, {w2, 0}, {w4, 0}, {wblob, 0}, {wstr, 0}, {wstr, 0}, {wblob, 0}},
	winmd.TableNestedClass:  {{widx, uint8(winmd.TableTypeDef)}, {widx, uint8(winmd.TableTypeDef)}},
	winmd.TableGenericParam: {{w2, 0}, {w2, 0}, {wcoded, uint8(winmd.CodedTypeOrMethodDef)}, {wstr, 0}},
}

// sortColumns names the column a table must be sorted on before serializing.
var sortColumns = map[winmd.TableKind]int{
	winmd.TableInterfaceImpl:   0,
	winmd.TableConstant:        1,
	winmd.TableCustomAttribute: 0,
	winmd.TableClassLayout:     2,
	winmd.TableImplMap:         1,
	winmd.TableNestedClass:     0,
}

// Builder assembles a synthetic metadata image.
type Builder struct {
	moduleName string

	stringsBuf  bytes.Buffer
	stringIndex map[string]uint32

	blobBuf   bytes.Buffer
	blobIndex map[string]uint32

	guids [][16]byte

	rows [numTables][][]uint32

	typeRefs map[winmd.TypeName]uint32 // -> one-based TypeRef row
	ctorRefs map[winmd.TypeName]uint32 // -> one-based MemberRef row
	modRefs  map[string]uint32         // -> one-based ModuleRef row
}

// NewBuilder creates a builder for an image with the given module name.
func NewBuilder(moduleName string) *Builder {
	b := &Builder{
		moduleName:  moduleName,
		stringIndex: map[string]uint32{"": 0},
		typeRefs:    map[winmd.TypeName]uint32{},
		ctorRefs:    map[winmd.TypeName]uint32{},
		modRefs:     map[string]uint32{},
	}
	b.stringsBuf.WriteByte(0)
	b.blobBuf.WriteByte(0)
	b.blobIndex = map[string]uint32{"": 0}

	// Row 1 of AssemblyRef is the external scope every TypeRef points at.
	b.addRow(winmd.TableAssemblyRef, []uint32{
		4, 0, 0, 0, 0, 0, b.str("mscorlib"), 0, 0,
	})
	b.addRow(winmd.TableModule, []uint32{
		0, b.str(moduleName), b.guid([16]byte{1}), 0, 0,
	})
	return b
}

// Name returns the module name the builder was created with.
func (b *Builder) Name() string {
	return b.moduleName
}

// str interns a string in the #Strings heap and returns its index.
func (b *Builder) str(s string) uint32 {
	if i, ok := b.stringIndex[s]; ok {
		return i
	}
	i := uint32(b.stringsBuf.Len())
	b.stringsBuf.WriteString(s)
	b.stringsBuf.WriteByte(0)
	b.stringIndex[s] = i
	return i
}

// blob interns a blob in the #Blob heap and returns its index.
func (b *Builder) blob(data []byte) uint32 {
	if i, ok := b.blobIndex[string(data)]; ok {
		return i
	}
	i := uint32(b.blobBuf.Len())
	b.blobBuf.Write(compressUint(uint32(len(data))))
	b.blobBuf.Write(data)
	b.blobIndex[string(data)] = i
	return i
}

// guid adds a GUID to the #GUID heap and returns its one-based index.
func (b *Builder) guid(g [16]byte) uint32 {
	b.guids = append(b.guids, g)
	return uint32(len(b.guids))
}

// addRow appends a raw row and returns its one-based index.
func (b *Builder) addRow(t winmd.TableKind, cols []uint32) uint32 {
	b.rows[t] = append(b.rows[t], cols)
	return uint32(len(b.rows[t]))
}

// typeRef interns a TypeRef for the given name, scoped to the external
// assembly, and returns its one-based row.
func (b *Builder) typeRef(name winmd.TypeName) uint32 {
	if i, ok := b.typeRefs[name]; ok {
		return i
	}
	scope := winmd.CodedIndex{Table: winmd.TableAssemblyRef, Row: 1}.Encode(winmd.CodedResolutionScope)
	i := b.addRow(winmd.TableTypeRef, []uint32{scope, b.str(name.Name), b.str(name.Namespace)})
	b.typeRefs[name] = i
	return i
}

// TypeRefCoded returns the TypeDefOrRef coded value of a TypeRef for name.
func (b *Builder) TypeRefCoded(name winmd.TypeName) uint32 {
	row := b.typeRef(name)
	return winmd.CodedIndex{Table: winmd.TableTypeRef, Row: row}.Encode(winmd.CodedTypeDefOrRef)
}

// ctorRef interns a MemberRef to attrType's constructor with the given
// signature blob and returns its one-based row.
func (b *Builder) ctorRef(attrType winmd.TypeName, sig []byte) uint32 {
	if i, ok := b.ctorRefs[attrType]; ok {
		return i
	}
	parent := winmd.CodedIndex{Table: winmd.TableTypeRef, Row: b.typeRef(attrType)}.
		Encode(winmd.CodedMemberRefParent)
	i := b.addRow(winmd.TableMemberRef, []uint32{parent, b.str(".ctor"), b.blob(sig)})
	b.ctorRefs[attrType] = i
	return i
}

// moduleRef interns a ModuleRef for a native library name.
func (b *Builder) moduleRef(lib string) uint32 {
	if i, ok := b.modRefs[lib]; ok {
		return i
	}
	i := b.addRow(winmd.TableModuleRef, []uint32{b.str(lib)})
	b.modRefs[lib] = i
	return i
}

// attach adds a custom attribute row for parent with the given constructor
// MemberRef row and value blob.
func (b *Builder) attach(parent winmd.CodedIndex, ctorRow uint32, value []byte) {
	b.addRow(winmd.TableCustomAttribute, []uint32{
		parent.Encode(winmd.CodedHasCustomAttribute),
		winmd.CodedIndex{Table: winmd.TableMemberRef, Row: ctorRow}.Encode(winmd.CodedCustomAttributeType),
		b.blob(value),
	})
}

// Build serializes the image. The returned bytes form a loadable PE file.
func (b *Builder) Build() []byte {
	for t, col := range sortColumns {
		rows := b.rows[t]
		sort.SliceStable(rows, func(i, j int) bool { return rows[i][col] < rows[j][col] })
	}

	meta := b.buildMetadata()
	return wrapPE(meta)
}

// buildMetadata serializes the metadata root and all streams.
func (b *Builder) buildMetadata() []byte {
	tables := b.buildTableStream()

	strs := b.stringsBuf.Bytes()
	strs = pad4(strs)
	blobs := pad4(b.blobBuf.Bytes())
	us := []byte{0, 0, 0, 0}
	var guidHeap bytes.Buffer
	for _, g := range b.guids {
		guidHeap.Write(g[:])
	}

	version := []byte("WindowsRuntime 1.4\x00\x00")

	type stream struct {
		name string
		data []byte
	}
	streams := []stream{
		{"#~", tables},
		{"#Strings", strs},
		{"#US", us},
		{"#GUID", guidHeap.Bytes()},
		{"#Blob", blobs},
	}

	headerSize := 16 + len(version) + 4
	for _, s := range streams {
		headerSize += 8 + pad4Len(len(s.name)+1)
	}

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, uint32(0x424A5342))
	binary.Write(&out, binary.LittleEndian, uint16(1))
	binary.Write(&out, binary.LittleEndian, uint16(1))
	binary.Write(&out, binary.LittleEndian, uint32(0))
	binary.Write(&out, binary.LittleEndian, uint32(len(version)))
	out.Write(version)
	binary.Write(&out, binary.LittleEndian, uint16(0))
	binary.Write(&out, binary.LittleEndian, uint16(len(streams)))

	offset := headerSize
	for _, s := range streams {
		binary.Write(&out, binary.LittleEndian, uint32(offset))
		binary.Write(&out, binary.LittleEndian, uint32(len(s.data)))
		name := append([]byte(s.name), 0)
		for len(name)%4 != 0 {
			name = append(name, 0)
		}
		out.Write(name)
		offset += len(s.data)
	}
	for _, s := range streams {
		out.Write(s.data)
	}
	return out.Bytes()
}

// buildTableStream serializes the #~ stream.
func (b *Builder) buildTableStream() []byte {
	var valid uint64
	for t := 0; t < numTables; t++ {
		if len(b.rows[t]) > 0 {
			valid |= 1 << uint(t)
		}
	}

	rowCount := func(t winmd.TableKind) uint32 { return uint32(len(b.rows[t])) }

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, uint32(0))
	out.WriteByte(2) // major
	out.WriteByte(0) // minor
	out.WriteByte(0) // heap sizes: all narrow in synthetic images
	out.WriteByte(1) // reserved
	binary.Write(&out, binary.LittleEndian, valid)
	binary.Write(&out, binary.LittleEndian, valid) // sorted: builder sorts eagerly
	for t := 0; t < numTables; t++ {
		if len(b.rows[t]) > 0 {
			binary.Write(&out, binary.LittleEndian, uint32(len(b.rows[t])))
		}
	}

	for t := winmd.TableKind(0); t < numTables; t++ {
		rows := b.rows[t]
		if len(rows) == 0 {
			continue
		}
		schema := writerSchemas[t]
		for _, row := range rows {
			for i, col := range schema {
				wide := false
				switch col.kind {
				case w4:
					wide = true
				case widx:
					wide = winmd.PlainIndexWide(rowCount(winmd.TableKind(col.target)))
				case wcoded:
					wide = winmd.CodedIndexWide(winmd.CodedKind(col.target), rowCount)
				}
				if wide {
					binary.Write(&out, binary.LittleEndian, row[i])
				} else {
					binary.Write(&out, binary.LittleEndian, uint16(row[i]))
				}
			}
		}
	}
	return out.Bytes()
}

// wrapPE wraps metadata bytes in a minimal PE32 image with one section.
func wrapPE(meta []byte) []byte {
	const (
		peOff      = 0x40
		optSize    = 0xE0 // PE32 with 16 data directories
		sectionOff = peOff + 4 + 20 + optSize
		rawOff     = 0x200
		virtAddr   = 0x1000
		clrSize    = 72
	)
	metaRVA := uint32(virtAddr + clrSize)
	rawSize := uint32(clrSize + len(meta))

	image := make([]byte, rawOff+int(rawSize))
	le := binary.LittleEndian

	// DOS header
	le.PutUint16(image[0:], 0x5A4D)
	le.PutUint32(image[0x3C:], peOff)

	// PE signature + COFF header
	le.PutUint32(image[peOff:], 0x00004550)
	le.PutUint16(image[peOff+4:], 0x14C) // i386; winmd images are arch-neutral
	le.PutUint16(image[peOff+6:], 1)     // one section
	le.PutUint16(image[peOff+20:], optSize)
	le.PutUint16(image[peOff+22:], 0x2102) // executable | dll | 32-bit

	// Optional header (PE32)
	optOff := peOff + 24
	le.PutUint16(image[optOff:], 0x10B)
	le.PutUint32(image[optOff+92:], 16) // NumberOfRvaAndSizes
	// CLR data directory (index 14)
	le.PutUint32(image[optOff+96+14*8:], virtAddr)
	le.PutUint32(image[optOff+96+14*8+4:], clrSize)

	// Section header ".text"
	copy(image[sectionOff:], ".text")
	le.PutUint32(image[sectionOff+8:], rawSize)   // VirtualSize
	le.PutUint32(image[sectionOff+12:], virtAddr) // VirtualAddress
	le.PutUint32(image[sectionOff+16:], rawSize)  // SizeOfRawData
	le.PutUint32(image[sectionOff+20:], rawOff)   // PointerToRawData

	// CLR header
	le.PutUint32(image[rawOff:], clrSize)
	le.PutUint16(image[rawOff+4:], 2) // runtime 2.5
	le.PutUint16(image[rawOff+6:], 5)
	le.PutUint32(image[rawOff+8:], metaRVA)
	le.PutUint32(image[rawOff+12:], uint32(len(meta)))
	le.PutUint32(image[rawOff+16:], 1) // ILONLY

	copy(image[rawOff+clrSize:], meta)
	return image
}

// compressUint encodes the ECMA-335 compressed unsigned integer form.
func compressUint(v uint32) []byte {
	switch {
	case v < 0x80:
		return []byte{byte(v)}
	case v < 0x4000:
		return []byte{byte(v>>8) | 0x80, byte(v)}
	default:
		return []byte{byte(v>>24) | 0xC0, byte(v >> 16), byte(v >> 8), byte(v)}
	}
}

func pad4(b []byte) []byte {
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	return b
}

func pad4Len(n int) int {
	return (n + 3) &^ 3
}
