package winmd

// CodedKind identifies a coded index family: a compact encoding packing a
// table-selector tag plus a row index into one integer. The tag occupies the
// low bits; its width depends on how many tables the family can target.
type CodedKind uint8

const (
	CodedTypeDefOrRef CodedKind = iota
	CodedHasConstant
	CodedHasCustomAttribute
	CodedHasFieldMarshal
	CodedHasDeclSecurity
	CodedMemberRefParent
	CodedHasSemantics
	CodedMethodDefOrRef
	CodedMemberForwarded
	CodedImplementation
	CodedCustomAttributeType
	CodedResolutionScope
	CodedTypeOrMethodDef

	numCodedKinds
)

// tableNone marks an unused tag slot in a coded index family.
const tableNone TableKind = 0xFF

// codedTargets lists, per family, the table selected by each tag value.
// Slot order follows ECMA-335 II.24.2.6 exactly.
var codedTargets = [numCodedKinds][]TableKind{
	CodedTypeDefOrRef: {TableTypeDef, TableTypeRef, TableTypeSpec},
	CodedHasConstant:  {TableField, TableParam, TableProperty},
	CodedHasCustomAttribute: {
		TableMethodDef, TableField, TableTypeRef, TableTypeDef, TableParam,
		TableInterfaceImpl, TableMemberRef, TableModule, TableDeclSecurity,
		TableProperty, TableEvent, TableStandAloneSig, TableModuleRef,
		TableTypeSpec, TableAssembly, TableAssemblyRef, TableFile,
		TableExportedType, TableManifestResource, TableGenericParam,
		TableGenericParamConstraint, TableMethodSpec,
	},
	CodedHasFieldMarshal:     {TableField, TableParam},
	CodedHasDeclSecurity:     {TableTypeDef, TableMethodDef, TableAssembly},
	CodedMemberRefParent:     {TableTypeDef, TableTypeRef, TableModuleRef, TableMethodDef, TableTypeSpec},
	CodedHasSemantics:        {TableEvent, TableProperty},
	CodedMethodDefOrRef:      {TableMethodDef, TableMemberRef},
	CodedMemberForwarded:     {TableField, TableMethodDef},
	CodedImplementation:      {TableFile, TableAssemblyRef, TableExportedType},
	CodedCustomAttributeType: {tableNone, tableNone, TableMethodDef, TableMemberRef, tableNone},
	CodedResolutionScope:     {TableModule, TableModuleRef, TableAssemblyRef, TableTypeRef},
	CodedTypeOrMethodDef:     {TableTypeDef, TableMethodDef},
}

// TagBits returns the number of tag bits the family occupies.
func (k CodedKind) TagBits() uint {
	n := len(codedTargets[k])
	bits := uint(0)
	for (1 << bits) < n {
		bits++
	}
	return bits
}

// CodedIndex is a decoded coded index: the selected table plus a one-based
// row number. Row 0 means "null reference" for every family.
type CodedIndex struct {
	Table TableKind
	Row   uint32
}

// IsNil reports whether the coded index is a null reference.
func (c CodedIndex) IsNil() bool {
	return c.Row == 0
}

// Encode packs the coded index back into its integer form. Used by the
// synthetic image builder in winmdtest and by tests.
func (c CodedIndex) Encode(kind CodedKind) uint32 {
	if c.Row == 0 {
		return 0
	}
	for tag, table := range codedTargets[kind] {
		if table == c.Table {
			return c.Row<<kind.TagBits() | uint32(tag)
		}
	}
	return 0
}

// decodeCoded splits a raw coded index value into its target table and row.
// ok is false when the tag selects an unused slot of the family.
func decodeCoded(kind CodedKind, raw uint32) (CodedIndex, bool) {
	bits := kind.TagBits()
	tag := raw & (1<<bits - 1)
	row := raw >> bits
	targets := codedTargets[kind]
	if int(tag) >= len(targets) || targets[tag] == tableNone {
		return CodedIndex{}, false
	}
	return CodedIndex{Table: targets[tag], Row: row}, true
}

// PlainIndexWide reports whether a plain index into a table with the given
// row count needs 4 bytes. The boundary is exact: 65,535 rows still fit a
// narrow index, 65,536 force a wide one.
func PlainIndexWide(rowCount uint32) bool {
	return rowCount > 0xFFFF
}

// CodedIndexWide reports whether a coded index of the given family needs
// 4 bytes for the given per-table row counts. With b tag bits only 16-b bits
// remain for the row, so the index widens as soon as any target table holds
// 1<<(16-b) rows or more.
func CodedIndexWide(kind CodedKind, rowCount func(TableKind) uint32) bool {
	limit := uint32(1) << (16 - kind.TagBits())
	for _, table := range codedTargets[kind] {
		if table == tableNone {
			continue
		}
		if rowCount(table) >= limit {
			return true
		}
	}
	return false
}
