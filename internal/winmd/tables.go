package winmd

// TableKind identifies one of the ECMA-335 metadata tables.
type TableKind uint8

const (
	TableModule                 TableKind = 0x00
	TableTypeRef                TableKind = 0x01
	TableTypeDef                TableKind = 0x02
	TableFieldPtr               TableKind = 0x03
	TableField                  TableKind = 0x04
	TableMethodPtr              TableKind = 0x05
	TableMethodDef              TableKind = 0x06
	TableParamPtr               TableKind = 0x07
	TableParam                  TableKind = 0x08
	TableInterfaceImpl          TableKind = 0x09
	TableMemberRef              TableKind = 0x0A
	TableConstant               TableKind = 0x0B
	TableCustomAttribute        TableKind = 0x0C
	TableFieldMarshal           TableKind = 0x0D
	TableDeclSecurity           TableKind = 0x0E
	TableClassLayout            TableKind = 0x0F
	TableFieldLayout            TableKind = 0x10
	TableStandAloneSig          TableKind = 0x11
	TableEventMap               TableKind = 0x12
	TableEventPtr               TableKind = 0x13
	TableEvent                  TableKind = 0x14
	TablePropertyMap            TableKind = 0x15
	TablePropertyPtr            TableKind = 0x16
	TableProperty               TableKind = 0x17
	TableMethodSemantics        TableKind = 0x18
	TableMethodImpl             TableKind = 0x19
	TableModuleRef              TableKind = 0x1A
	TableTypeSpec               TableKind = 0x1B
	TableImplMap                TableKind = 0x1C
	TableFieldRVA               TableKind = 0x1D
	TableEncLog                 TableKind = 0x1E
	TableEncMap                 TableKind = 0x1F
	TableAssembly               TableKind = 0x20
	TableAssemblyProcessor      TableKind = 0x21
	TableAssemblyOS             TableKind = 0x22
	TableAssemblyRef            TableKind = 0x23
	TableAssemblyRefProcessor   TableKind = 0x24
	TableAssemblyRefOS          TableKind = 0x25
	TableFile                   TableKind = 0x26
	TableExportedType           TableKind = 0x27
	TableManifestResource       TableKind = 0x28
	TableNestedClass            TableKind = 0x29
	TableGenericParam           TableKind = 0x2A
	TableMethodSpec             TableKind = 0x2B
	TableGenericParamConstraint TableKind = 0x2C

	numTables = 0x2D
)

// String returns the ECMA-335 name of the table.
func (t TableKind) String() string {
	if int(t) < len(tableNames) && tableNames[t] != "" {
		return tableNames[t]
	}
	return "Unknown"
}

var tableNames = [numTables]string{
	TableModule:                 "Module",
	TableTypeRef:                "TypeRef",
	TableTypeDef:                "TypeDef",
	TableFieldPtr:               "FieldPtr",
	TableField:                  "Field",
	TableMethodPtr:              "MethodPtr",
	TableMethodDef:              "MethodDef",
	TableParamPtr:               "ParamPtr",
	TableParam:                  "Param",
	TableInterfaceImpl:          "InterfaceImpl",
	TableMemberRef:              "MemberRef",
	TableConstant:               "Constant",
	TableCustomAttribute:        "CustomAttribute",
	TableFieldMarshal:           "FieldMarshal",
	TableDeclSecurity:           "DeclSecurity",
	TableClassLayout:            "ClassLayout",
	TableFieldLayout:            "FieldLayout",
	TableStandAloneSig:          "StandAloneSig",
	TableEventMap:               "EventMap",
	TableEventPtr:               "EventPtr",
	TableEvent:                  "Event",
	TablePropertyMap:            "PropertyMap",
	TablePropertyPtr:            "PropertyPtr",
	TableProperty:               "Property",
	TableMethodSemantics:        "MethodSemantics",
	TableMethodImpl:             "MethodImpl",
	TableModuleRef:              "ModuleRef",
	TableTypeSpec:               "TypeSpec",
	TableImplMap:                "ImplMap",
	TableFieldRVA:               "FieldRVA",
	TableEncLog:                 "EncLog",
	TableEncMap:                 "EncMap",
	TableAssembly:               "Assembly",
	TableAssemblyProcessor:      "AssemblyProcessor",
	TableAssemblyOS:             "AssemblyOS",
	TableAssemblyRef:            "AssemblyRef",
	TableAssemblyRefProcessor:   "AssemblyRefProcessor",
	TableAssemblyRefOS:          "AssemblyRefOS",
	TableFile:                   "File",
	TableExportedType:           "ExportedType",
	TableManifestResource:       "ManifestResource",
	TableNestedClass:            "NestedClass",
	TableGenericParam:           "GenericParam",
	TableMethodSpec:             "MethodSpec",
	TableGenericParamConstraint: "GenericParamConstraint",
}

// columnKind describes how a single table column is encoded.
type columnKind uint8

const (
	colFixed2 columnKind = iota // constant 2-byte value
	colFixed4                   // constant 4-byte value
	colString                   // index into the #Strings heap
	colGuid                     // index into the #GUID heap
	colBlob                     // index into the #Blob heap
	colIndex                    // plain index into another table
	colCoded                    // coded index (tag + row packed into one integer)
)

// column is one column of a table schema. target holds the referenced table
// for colIndex columns and the coded index family for colCoded columns.
type column struct {
	kind   columnKind
	target uint8
}

func fixed2() column           { return column{kind: colFixed2} }
func fixed4() column           { return column{kind: colFixed4} }
func str() column              { return column{kind: colString} }
func guid() column             { return column{kind: colGuid} }
func blob() column             { return column{kind: colBlob} }
func idx(t TableKind) column   { return column{kind: colIndex, target: uint8(t)} }
func coded(f CodedKind) column { return column{kind: colCoded, target: uint8(f)} }

// tableSchemas lists the column layout of every table, in ECMA-335 II.22
// order. All tables are described even when the pipeline never reads them,
// because locating any table's data requires the byte size of every table
// that precedes it in the stream.
var tableSchemas = [numTables][]column{
	TableModule:                 {fixed2(), str(), guid(), guid(), guid()},
	TableTypeRef:                {coded(CodedResolutionScope), str(), str()},
	TableTypeDef:                {fixed4(), str(), str(), coded(CodedTypeDefOrRef), idx(TableField), idx(TableMethodDef)},
	TableFieldPtr:               {idx(TableField)},
	TableField:                  {fixed2(), str(), blob()},
	TableMethodPtr:              {idx(TableMethodDef)},
	TableMethodDef:              {fixed4(), fixed2(), fixed2(), str(), blob(), idx(TableParam)},
	TableParamPtr:               {idx(TableParam)},
	TableParam:                  {fixed2(), fixed2(), str()},
	TableInterfaceImpl:          {idx(TableTypeDef), coded(CodedTypeDefOrRef)},
	TableMemberRef:              {coded(CodedMemberRefParent), str(), blob()},
	TableConstant:               {fixed2(), coded(CodedHasConstant), blob()},
	TableCustomAttribute:        {coded(CodedHasCustomAttribute), coded(CodedCustomAttributeType), blob()},
	TableFieldMarshal:           {coded(CodedHasFieldMarshal), blob()},
	TableDeclSecurity:           {fixed2(), coded(CodedHasDeclSecurity), blob()},
	TableClassLayout:            {fixed2(), fixed4(), idx(TableTypeDef)},
	TableFieldLayout:            {fixed4(), idx(TableField)},
	TableStandAloneSig:          {blob()},
	TableEventMap:               {idx(TableTypeDef), idx(TableEvent)},
	TableEventPtr:               {idx(TableEvent)},
	TableEvent:                  {fixed2(), str(), coded(CodedTypeDefOrRef)},
	TablePropertyMap:            {idx(TableTypeDef), idx(TableProperty)},
	TablePropertyPtr:            {idx(TableProperty)},
	TableProperty:               {fixed2(), str(), blob()},
	TableMethodSemantics:        {fixed2(), idx(TableMethodDef), coded(CodedHasSemantics)},
	TableMethodImpl:             {idx(TableTypeDef), coded(CodedMethodDefOrRef), coded(CodedMethodDefOrRef)},
	TableModuleRef:              {str()},
	TableTypeSpec:               {blob()},
	TableImplMap:                {fixed2(), coded(CodedMemberForwarded), str(), idx(TableModuleRef)},
	TableFieldRVA:               {fixed4(), idx(TableField)},
	TableEncLog:                 {fixed4(), fixed4()},
	TableEncMap:                 {fixed4()},
	TableAssembly:               {fixed4(), fixed2(), fixed2(), fixed2(), fixed2(), fixed4(), blob(), str(), str()},
	TableAssemblyProcessor:      {fixed4()},
	TableAssemblyOS:             {fixed4(), fixed4(), fixed4()},
	TableAssemblyRef:            {fixed2(), fixed2(), fixed2(), fixed2(), fixed4(), blob(), str(), str(), blob()},
	TableAssemblyRefProcessor:   {fixed4(), idx(TableAssemblyRef)},
	TableAssemblyRefOS:          {fixed4(), fixed4(), fixed4(), idx(TableAssemblyRef)},
	TableFile:                   {fixed4(), str(), blob()},
	TableExportedType:           {fixed4(), fixed4(), str(), str(), coded(CodedImplementation)},
	TableManifestResource:       {fixed4(), fixed4(), str(), coded(CodedImplementation)},
	TableNestedClass:            {idx(TableTypeDef), idx(TableTypeDef)},
	TableGenericParam:           {fixed2(), fixed2(), coded(CodedTypeOrMethodDef), str()},
	TableMethodSpec:             {coded(CodedMethodDefOrRef), blob()},
	TableGenericParamConstraint: {idx(TableGenericParam), coded(CodedTypeDefOrRef)},
}
