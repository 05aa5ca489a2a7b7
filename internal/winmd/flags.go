package winmd

// Element type tags used in compressed signatures and constant values
// (ECMA-335 II.23.1.16).
const (
	ElementTypeEnd         byte = 0x00
	ElementTypeVoid        byte = 0x01
	ElementTypeBoolean     byte = 0x02
	ElementTypeChar        byte = 0x03
	ElementTypeI1          byte = 0x04
	ElementTypeU1          byte = 0x05
	ElementTypeI2          byte = 0x06
	ElementTypeU2          byte = 0x07
	ElementTypeI4          byte = 0x08
	ElementTypeU4          byte = 0x09
	ElementTypeI8          byte = 0x0A
	ElementTypeU8          byte = 0x0B
	ElementTypeR4          byte = 0x0C
	ElementTypeR8          byte = 0x0D
	ElementTypeString      byte = 0x0E
	ElementTypePtr         byte = 0x0F
	ElementTypeByRef       byte = 0x10
	ElementTypeValueType   byte = 0x11
	ElementTypeClass       byte = 0x12
	ElementTypeVar         byte = 0x13
	ElementTypeArray       byte = 0x14
	ElementTypeGenericInst byte = 0x15
	ElementTypeTypedByRef  byte = 0x16
	ElementTypeI           byte = 0x18
	ElementTypeU           byte = 0x19
	ElementTypeFnPtr       byte = 0x1B
	ElementTypeObject      byte = 0x1C
	ElementTypeSZArray     byte = 0x1D
	ElementTypeMVar        byte = 0x1E
	ElementTypeCModReqd    byte = 0x1F
	ElementTypeCModOpt     byte = 0x20
	ElementTypeSentinel    byte = 0x41
	ElementTypePinned      byte = 0x45
)

// TypeDef.Flags bits (TypeAttributes, ECMA-335 II.23.1.15).
const (
	TypeAttrVisibilityMask   uint32 = 0x0000_0007
	TypeAttrPublic           uint32 = 0x0000_0001
	TypeAttrLayoutMask       uint32 = 0x0000_0018
	TypeAttrSequentialLayout uint32 = 0x0000_0008
	TypeAttrExplicitLayout   uint32 = 0x0000_0010
	TypeAttrInterface        uint32 = 0x0000_0020
	TypeAttrAbstract         uint32 = 0x0000_0080
	TypeAttrSealed           uint32 = 0x0000_0100
	TypeAttrSpecialName      uint32 = 0x0000_0400
	TypeAttrImport           uint32 = 0x0000_1000
	TypeAttrWindowsRuntime   uint32 = 0x0000_4000
)

// Field.Flags bits (FieldAttributes, ECMA-335 II.23.1.5).
const (
	FieldAttrStatic      uint32 = 0x0010
	FieldAttrInitOnly    uint32 = 0x0020
	FieldAttrLiteral     uint32 = 0x0040
	FieldAttrSpecialName uint32 = 0x0200
	FieldAttrHasDefault  uint32 = 0x8000
)

// MethodDef.Flags bits (MethodAttributes, ECMA-335 II.23.1.10).
const (
	MethodAttrStatic      uint32 = 0x0010
	MethodAttrVirtual     uint32 = 0x0040
	MethodAttrAbstract    uint32 = 0x0400
	MethodAttrSpecialName uint32 = 0x0800
	MethodAttrPInvokeImpl uint32 = 0x2000
)

// Param.Flags bits (ParamAttributes, ECMA-335 II.23.1.13).
const (
	ParamAttrIn       uint32 = 0x0001
	ParamAttrOut      uint32 = 0x0002
	ParamAttrOptional uint32 = 0x0010
)

// ImplMap.MappingFlags calling convention bits (ECMA-335 II.23.1.8).
const (
	PInvokeCallConvMask     uint32 = 0x0700
	PInvokeCallConvWinapi   uint32 = 0x0100
	PInvokeCallConvCdecl    uint32 = 0x0200
	PInvokeCallConvStdcall  uint32 = 0x0300
	PInvokeCallConvThiscall uint32 = 0x0400
	PInvokeCallConvFastcall uint32 = 0x0500
)
