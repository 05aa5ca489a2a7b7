package winmdtest

import (
	"bytes"
	"encoding/binary"

	"github.com/google/uuid"
	"github.com/winmdgen/winmdgen/internal/winmd"
)

// Sig describes a type expression for building signature blobs.
type Sig interface {
	encode(b *Builder, out *bytes.Buffer)
}

type primSig byte

func (s primSig) encode(_ *Builder, out *bytes.Buffer) {
	out.WriteByte(byte(s))
}

// Convenience primitive signatures.
var (
	Bool    Sig = primSig(winmd.ElementTypeBoolean)
	Char    Sig = primSig(winmd.ElementTypeChar)
	Int8    Sig = primSig(winmd.ElementTypeI1)
	UInt8   Sig = primSig(winmd.ElementTypeU1)
	Int16   Sig = primSig(winmd.ElementTypeI2)
	UInt16  Sig = primSig(winmd.ElementTypeU2)
	Int32   Sig = primSig(winmd.ElementTypeI4)
	UInt32  Sig = primSig(winmd.ElementTypeU4)
	Int64   Sig = primSig(winmd.ElementTypeI8)
	UInt64  Sig = primSig(winmd.ElementTypeU8)
	Float32 Sig = primSig(winmd.ElementTypeR4)
	Float64 Sig = primSig(winmd.ElementTypeR8)
	String  Sig = primSig(winmd.ElementTypeString)
	IntPtr  Sig = primSig(winmd.ElementTypeI)
	Object  Sig = primSig(winmd.ElementTypeObject)
)

type namedSig struct {
	el   byte
	name winmd.TypeName
}

func (s namedSig) encode(b *Builder, out *bytes.Buffer) {
	out.WriteByte(s.el)
	out.Write(compressUint(b.TypeRefCoded(s.name)))
}

// Value references a named value type (struct or enum).
func Value(ns, name string) Sig {
	return namedSig{el: winmd.ElementTypeValueType, name: winmd.TypeName{Namespace: ns, Name: name}}
}

// Class references a named reference type (interface, class, delegate).
func Class(ns, name string) Sig {
	return namedSig{el: winmd.ElementTypeClass, name: winmd.TypeName{Namespace: ns, Name: name}}
}

type ptrSig struct{ inner Sig }

func (s ptrSig) encode(b *Builder, out *bytes.Buffer) {
	out.WriteByte(winmd.ElementTypePtr)
	s.inner.encode(b, out)
}

// Ptr wraps a signature in a pointer.
func Ptr(inner Sig) Sig { return ptrSig{inner} }

type byRefSig struct{ inner Sig }

func (s byRefSig) encode(b *Builder, out *bytes.Buffer) {
	out.WriteByte(winmd.ElementTypeByRef)
	s.inner.encode(b, out)
}

// ByRef wraps a signature in a by-reference marker.
func ByRef(inner Sig) Sig { return byRefSig{inner} }

type szArraySig struct{ inner Sig }

func (s szArraySig) encode(b *Builder, out *bytes.Buffer) {
	out.WriteByte(winmd.ElementTypeSZArray)
	s.inner.encode(b, out)
}

// Array wraps a signature in a single-dimension array.
func Array(inner Sig) Sig { return szArraySig{inner} }

type genericSig struct {
	name winmd.TypeName
	args []Sig
}

func (s genericSig) encode(b *Builder, out *bytes.Buffer) {
	out.WriteByte(winmd.ElementTypeGenericInst)
	out.WriteByte(winmd.ElementTypeClass)
	out.Write(compressUint(b.TypeRefCoded(s.name)))
	out.Write(compressUint(uint32(len(s.args))))
	for _, a := range s.args {
		a.encode(b, out)
	}
}

// Generic references an instantiation of a generic interface.
func Generic(ns, name string, args ...Sig) Sig {
	return genericSig{name: winmd.TypeName{Namespace: ns, Name: name}, args: args}
}

type varSig struct{ num uint32 }

func (s varSig) encode(_ *Builder, out *bytes.Buffer) {
	out.WriteByte(winmd.ElementTypeVar)
	out.Write(compressUint(s.num))
}

// TypeVar references a generic type parameter by position.
func TypeVar(num uint32) Sig { return varSig{num} }

// StructField describes one field of a struct under construction.
type StructField struct {
	Name string
	Type Sig
}

// MethodParam describes one parameter of a method under construction.
type MethodParam struct {
	Name string
	Type Sig
}

// Method describes a method under construction. A nil Ret means void.
type Method struct {
	Name   string
	Ret    Sig
	Params []MethodParam
}

// EnumMember describes one member of an enum under construction.
type EnumMember struct {
	Name  string
	Value int64
}

// NativeFunc describes a P/Invoke function under construction.
type NativeFunc struct {
	Name string
	Lib  string
	Sig  Method
}

var (
	systemValueType         = winmd.TypeName{Namespace: "System", Name: "ValueType"}
	systemEnum              = winmd.TypeName{Namespace: "System", Name: "Enum"}
	systemObject            = winmd.TypeName{Namespace: "System", Name: "Object"}
	systemMulticastDelegate = winmd.TypeName{Namespace: "System", Name: "MulticastDelegate"}
)

// addTypeDef appends a TypeDef row pointing at the current end of the Field
// and MethodDef tables. The caller must append the type's fields and
// methods immediately afterwards.
func (b *Builder) addTypeDef(ns, name string, flags uint32, extendsCoded uint32) uint32 {
	row := b.addRow(winmd.TableTypeDef, []uint32{
		flags,
		b.str(name),
		b.str(ns),
		extendsCoded,
		uint32(len(b.rows[winmd.TableField])) + 1,
		uint32(len(b.rows[winmd.TableMethodDef])) + 1,
	})
	return row
}

// fieldSig builds a field signature blob for the given type.
func (b *Builder) fieldSig(t Sig) []byte {
	var out bytes.Buffer
	out.WriteByte(0x06) // FIELD
	t.encode(b, &out)
	return out.Bytes()
}

// methodSig builds a method signature blob. conv is the calling convention
// byte (0x20 for instance methods, 0x00 for static).
func (b *Builder) methodSig(conv byte, m Method) []byte {
	var out bytes.Buffer
	out.WriteByte(conv)
	out.Write(compressUint(uint32(len(m.Params))))
	if m.Ret == nil {
		out.WriteByte(winmd.ElementTypeVoid)
	} else {
		m.Ret.encode(b, &out)
	}
	for _, p := range m.Params {
		p.Type.encode(b, &out)
	}
	return out.Bytes()
}

// addMethod appends a MethodDef row plus its Param rows.
func (b *Builder) addMethod(flags uint32, conv byte, m Method) uint32 {
	row := b.addRow(winmd.TableMethodDef, []uint32{
		0, // RVA
		0, // ImplFlags
		flags,
		b.str(m.Name),
		b.blob(b.methodSig(conv, m)),
		uint32(len(b.rows[winmd.TableParam])) + 1,
	})
	for i, p := range m.Params {
		b.addRow(winmd.TableParam, []uint32{0, uint32(i) + 1, b.str(p.Name)})
	}
	return row
}

// AddStruct defines a sequential-layout value type and returns its name.
func (b *Builder) AddStruct(ns, name string, fields []StructField) winmd.TypeName {
	flags := winmd.TypeAttrPublic | winmd.TypeAttrSequentialLayout |
		winmd.TypeAttrSealed | winmd.TypeAttrWindowsRuntime
	extends := winmd.CodedIndex{Table: winmd.TableTypeRef, Row: b.typeRef(systemValueType)}.
		Encode(winmd.CodedTypeDefOrRef)
	b.addTypeDef(ns, name, flags, extends)
	for _, f := range fields {
		b.addRow(winmd.TableField, []uint32{0x0006, b.str(f.Name), b.blob(b.fieldSig(f.Type))})
	}
	return winmd.TypeName{Namespace: ns, Name: name}
}

// AddEnum defines an enum. When flags is true the System.FlagsAttribute
// marker is attached.
func (b *Builder) AddEnum(ns, name string, flags bool, underlying Sig, members []EnumMember) winmd.TypeName {
	typeFlags := winmd.TypeAttrPublic | winmd.TypeAttrSealed | winmd.TypeAttrWindowsRuntime
	extends := winmd.CodedIndex{Table: winmd.TableTypeRef, Row: b.typeRef(systemEnum)}.
		Encode(winmd.CodedTypeDefOrRef)
	tdRow := b.addTypeDef(ns, name, typeFlags, extends)

	// The instance "value__" field declares the underlying type.
	b.addRow(winmd.TableField, []uint32{
		0x0601, // private | specialname | rtspecialname
		b.str("value__"),
		b.blob(b.fieldSig(underlying)),
	})

	selfToken := winmd.CodedIndex{Table: winmd.TableTypeDef, Row: tdRow}.Encode(winmd.CodedTypeDefOrRef)
	var selfSig bytes.Buffer
	selfSig.WriteByte(0x06)
	selfSig.WriteByte(winmd.ElementTypeValueType)
	selfSig.Write(compressUint(selfToken))

	el := byte(underlying.(primSig))
	for _, m := range members {
		fieldRow := b.addRow(winmd.TableField, []uint32{
			0x8056, // public | static | literal | hasdefault
			b.str(m.Name),
			b.blob(selfSig.Bytes()),
		})
		parent := winmd.CodedIndex{Table: winmd.TableField, Row: fieldRow}.Encode(winmd.CodedHasConstant)
		b.addRow(winmd.TableConstant, []uint32{
			uint32(el),
			parent,
			b.blob(constValue(el, m.Value)),
		})
	}

	if flags {
		ctor := b.ctorRef(winmd.AttrFlags, []byte{0x20, 0x00, winmd.ElementTypeVoid})
		b.attach(winmd.CodedIndex{Table: winmd.TableTypeDef, Row: tdRow}, ctor, []byte{0x01, 0x00, 0x00, 0x00})
	}
	return winmd.TypeName{Namespace: ns, Name: name}
}

// constValue encodes a constant value blob for an integral element type.
func constValue(el byte, v int64) []byte {
	switch el {
	case winmd.ElementTypeBoolean, winmd.ElementTypeI1, winmd.ElementTypeU1:
		return []byte{byte(v)}
	case winmd.ElementTypeI2, winmd.ElementTypeU2, winmd.ElementTypeChar:
		out := make([]byte, 2)
		binary.LittleEndian.PutUint16(out, uint16(v))
		return out
	case winmd.ElementTypeI8, winmd.ElementTypeU8:
		out := make([]byte, 8)
		binary.LittleEndian.PutUint64(out, uint64(v))
		return out
	default:
		out := make([]byte, 4)
		binary.LittleEndian.PutUint32(out, uint32(v))
		return out
	}
}

// InterfaceOption customizes AddInterface.
type InterfaceOption func(*interfaceOpts)

type interfaceOpts struct {
	requires   []winmd.TypeName
	requireSig []Sig
	typeParams []string
}

// Requires declares base interfaces listed before the interface's own
// methods in the emitted method table.
func Requires(names ...winmd.TypeName) InterfaceOption {
	return func(o *interfaceOpts) { o.requires = append(o.requires, names...) }
}

// RequiresGeneric declares a generic-instantiation base interface.
func RequiresGeneric(sig Sig) InterfaceOption {
	return func(o *interfaceOpts) { o.requireSig = append(o.requireSig, sig) }
}

// TypeParams declares generic type parameters.
func TypeParams(names ...string) InterfaceOption {
	return func(o *interfaceOpts) { o.typeParams = append(o.typeParams, names...) }
}

// AddInterface defines an interface with the given identity GUID.
func (b *Builder) AddInterface(ns, name string, id uuid.UUID, methods []Method, opts ...InterfaceOption) winmd.TypeName {
	var o interfaceOpts
	for _, opt := range opts {
		opt(&o)
	}

	flags := winmd.TypeAttrPublic | winmd.TypeAttrInterface | winmd.TypeAttrAbstract |
		winmd.TypeAttrWindowsRuntime
	tdRow := b.addTypeDef(ns, name, flags, 0)
	for _, m := range methods {
		b.addMethod(0x04C6 /* public | virtual | hidebysig | abstract */, 0x20, m)
	}

	for _, req := range o.requires {
		b.addRow(winmd.TableInterfaceImpl, []uint32{
			tdRow,
			winmd.CodedIndex{Table: winmd.TableTypeRef, Row: b.typeRef(req)}.Encode(winmd.CodedTypeDefOrRef),
		})
	}
	for _, sig := range o.requireSig {
		var out bytes.Buffer
		sig.encode(b, &out)
		specRow := b.addRow(winmd.TableTypeSpec, []uint32{b.blob(out.Bytes())})
		b.addRow(winmd.TableInterfaceImpl, []uint32{
			tdRow,
			winmd.CodedIndex{Table: winmd.TableTypeSpec, Row: specRow}.Encode(winmd.CodedTypeDefOrRef),
		})
	}
	for i, tp := range o.typeParams {
		b.addRow(winmd.TableGenericParam, []uint32{
			uint32(i), 0,
			winmd.CodedIndex{Table: winmd.TableTypeDef, Row: tdRow}.Encode(winmd.CodedTypeOrMethodDef),
			b.str(tp),
		})
	}

	if id != uuid.Nil {
		b.attachGuid(tdRow, id)
	}
	return winmd.TypeName{Namespace: ns, Name: name}
}

// attachGuid attaches a GuidAttribute to a TypeDef row.
func (b *Builder) attachGuid(tdRow uint32, id uuid.UUID) {
	// GuidAttribute(.ctor(u32, u16, u16, u8 x8))
	sig := []byte{0x20, 0x0B, winmd.ElementTypeVoid,
		winmd.ElementTypeU4, winmd.ElementTypeU2, winmd.ElementTypeU2,
		winmd.ElementTypeU1, winmd.ElementTypeU1, winmd.ElementTypeU1, winmd.ElementTypeU1,
		winmd.ElementTypeU1, winmd.ElementTypeU1, winmd.ElementTypeU1, winmd.ElementTypeU1}
	ctor := b.ctorRef(winmd.AttrGuid, sig)

	g := winmd.UUIDToGuid(id)
	value := append([]byte{0x01, 0x00}, g[:]...)
	value = append(value, 0x00, 0x00)
	b.attach(winmd.CodedIndex{Table: winmd.TableTypeDef, Row: tdRow}, ctor, value)
}

// AddDelegate defines a delegate with an Invoke method.
func (b *Builder) AddDelegate(ns, name string, id uuid.UUID, invoke Method) winmd.TypeName {
	flags := winmd.TypeAttrPublic | winmd.TypeAttrSealed | winmd.TypeAttrWindowsRuntime
	extends := winmd.CodedIndex{Table: winmd.TableTypeRef, Row: b.typeRef(systemMulticastDelegate)}.
		Encode(winmd.CodedTypeDefOrRef)
	tdRow := b.addTypeDef(ns, name, flags, extends)

	invoke.Name = "Invoke"
	b.addMethod(0x01C6 /* public | virtual | hidebysig | newslot */, 0x20, invoke)

	if id != uuid.Nil {
		b.attachGuid(tdRow, id)
	}
	return winmd.TypeName{Namespace: ns, Name: name}
}

// ClassOption customizes AddClass.
type ClassOption func(*classOpts)

type classOpts struct {
	activatable bool
	implements  []winmd.TypeName
}

// Activatable marks the class as default-activatable.
func Activatable() ClassOption {
	return func(o *classOpts) { o.activatable = true }
}

// Implements declares the interfaces the class implements.
func Implements(names ...winmd.TypeName) ClassOption {
	return func(o *classOpts) { o.implements = append(o.implements, names...) }
}

// AddClass defines a runtime class.
func (b *Builder) AddClass(ns, name string, opts ...ClassOption) winmd.TypeName {
	var o classOpts
	for _, opt := range opts {
		opt(&o)
	}

	flags := winmd.TypeAttrPublic | winmd.TypeAttrSealed | winmd.TypeAttrWindowsRuntime
	extends := winmd.CodedIndex{Table: winmd.TableTypeRef, Row: b.typeRef(systemObject)}.
		Encode(winmd.CodedTypeDefOrRef)
	tdRow := b.addTypeDef(ns, name, flags, extends)

	for _, impl := range o.implements {
		b.addRow(winmd.TableInterfaceImpl, []uint32{
			tdRow,
			winmd.CodedIndex{Table: winmd.TableTypeRef, Row: b.typeRef(impl)}.Encode(winmd.CodedTypeDefOrRef),
		})
	}

	if o.activatable {
		// ActivatableAttribute(.ctor(u32 version))
		sig := []byte{0x20, 0x01, winmd.ElementTypeVoid, winmd.ElementTypeU4}
		ctor := b.ctorRef(winmd.AttrActivatable, sig)
		value := []byte{0x01, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00}
		b.attach(winmd.CodedIndex{Table: winmd.TableTypeDef, Row: tdRow}, ctor, value)
	}
	return winmd.TypeName{Namespace: ns, Name: name}
}

// AddApis defines a static class of P/Invoke functions, the shape Win32
// metadata uses for free functions.
func (b *Builder) AddApis(ns string, funcs []NativeFunc) winmd.TypeName {
	flags := winmd.TypeAttrPublic | winmd.TypeAttrAbstract | winmd.TypeAttrSealed |
		winmd.TypeAttrWindowsRuntime
	extends := winmd.CodedIndex{Table: winmd.TableTypeRef, Row: b.typeRef(systemObject)}.
		Encode(winmd.CodedTypeDefOrRef)
	b.addTypeDef(ns, "Apis", flags, extends)

	for _, fn := range funcs {
		fn.Sig.Name = fn.Name
		methodRow := b.addMethod(0x2016 /* public | static | pinvokeimpl */, 0x00, fn.Sig)
		b.addRow(winmd.TableImplMap, []uint32{
			winmd.PInvokeCallConvWinapi,
			winmd.CodedIndex{Table: winmd.TableMethodDef, Row: methodRow}.Encode(winmd.CodedMemberForwarded),
			b.str(fn.Name),
			b.moduleRef(fn.Lib),
		})
	}
	return winmd.TypeName{Namespace: ns, Name: "Apis"}
}

// AttachArch attaches a SupportedArchitectureAttribute with the given mask
// to an already-defined type. Masks follow the Win32 metadata convention:
// 1 = x86, 2 = x64, 4 = arm64.
func (b *Builder) AttachArch(name winmd.TypeName, mask int32) {
	sig := []byte{0x20, 0x01, winmd.ElementTypeVoid,
		winmd.ElementTypeValueType}
	archEnum := winmd.TypeName{Namespace: "Windows.Win32.Foundation.Metadata", Name: "Architecture"}
	sig = append(sig, compressUint(b.TypeRefCoded(archEnum))...)
	ctor := b.ctorRef(winmd.AttrArchitecture, sig)

	value := make([]byte, 0, 10)
	value = append(value, 0x01, 0x00)
	var enc [4]byte
	binary.LittleEndian.PutUint32(enc[:], uint32(mask))
	value = append(value, enc[:]...)
	value = append(value, 0x00, 0x00)

	tdRow := b.typeDefRow(name)
	b.attach(winmd.CodedIndex{Table: winmd.TableTypeDef, Row: tdRow}, ctor, value)
}

// typeDefRow finds an already-defined TypeDef row by name.
func (b *Builder) typeDefRow(name winmd.TypeName) uint32 {
	nameIdx, okName := b.stringIndex[name.Name]
	nsIdx, okNS := b.stringIndex[name.Namespace]
	if !okName || !okNS {
		return 0
	}
	for i, row := range b.rows[winmd.TableTypeDef] {
		if row[1] == nameIdx && row[2] == nsIdx {
			return uint32(i) + 1
		}
	}
	return 0
}
