package signature_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/winmdgen/winmdgen/internal/diag"
	"github.com/winmdgen/winmdgen/internal/signature"
	"github.com/winmdgen/winmdgen/internal/winmd"
	"github.com/winmdgen/winmdgen/internal/winmd/winmdtest"
)

func loadBuilder(t *testing.T, b *winmdtest.Builder) *winmd.File {
	t.Helper()
	f, err := winmd.Load(b.Build(), "test.winmd")
	require.Nil(t, err, "Load failed: %v", err)
	return f
}

func fieldSig(t *testing.T, f *winmd.File, typeName winmd.TypeName, index int) []byte {
	t.Helper()
	td, ok := f.TypeDefByName(typeName)
	require.True(t, ok)
	fields := td.Fields()
	require.Greater(t, len(fields), index)
	blob, derr := fields[index].Signature()
	require.Nil(t, derr)
	return blob
}

func methodSig(t *testing.T, f *winmd.File, typeName winmd.TypeName, index int) []byte {
	t.Helper()
	td, ok := f.TypeDefByName(typeName)
	require.True(t, ok)
	methods := td.Methods()
	require.Greater(t, len(methods), index)
	blob, derr := methods[index].Signature()
	require.Nil(t, derr)
	return blob
}

func TestDecodeFieldPointer(t *testing.T) {
	b := winmdtest.NewBuilder("test.winmd")
	name := b.AddStruct("NS", "Widget", []winmdtest.StructField{
		{Name: "data", Type: winmdtest.Ptr(winmdtest.UInt32)},
	})
	f := loadBuilder(t, b)

	blob := fieldSig(t, f, name, 0)
	assert.Equal(t, []byte{0x06, winmd.ElementTypePtr, winmd.ElementTypeU4}, blob)

	decoded, derr := signature.DecodeField(f, blob)
	require.Nil(t, derr)
	require.Equal(t, signature.Pointer{Inner: signature.Primitive{Kind: signature.UInt32}}, decoded)
	assert.Equal(t, "*u32", decoded.String())
}

func TestDecodeMethod(t *testing.T) {
	b := winmdtest.NewBuilder("test.winmd")
	b.AddStruct("NS", "Point", []winmdtest.StructField{
		{Name: "X", Type: winmdtest.Float32},
	})
	name := b.AddInterface("NS", "IWidget", uuid.Nil, []winmdtest.Method{
		{Name: "Describe", Ret: winmdtest.Int32, Params: []winmdtest.MethodParam{
			{Name: "label", Type: winmdtest.String},
			{Name: "at", Type: winmdtest.ByRef(winmdtest.Value("NS", "Point"))},
		}},
	})
	f := loadBuilder(t, b)

	sig, derr := signature.DecodeMethod(f, methodSig(t, f, name, 0))
	require.Nil(t, derr)

	assert.True(t, sig.HasThis)
	assert.False(t, sig.VarArg)
	assert.Equal(t, signature.Primitive{Kind: signature.Int32}, sig.Return)
	require.Len(t, sig.Params, 2)
	assert.Equal(t, signature.Primitive{Kind: signature.String}, sig.Params[0])
	assert.Equal(t, signature.ByRef{Inner: signature.Named{
		Name:        winmd.TypeName{Namespace: "NS", Name: "Point"},
		IsValueType: true,
	}}, sig.Params[1])
}

func TestDecodeGenericInstantiation(t *testing.T) {
	b := winmdtest.NewBuilder("test.winmd")
	name := b.AddInterface("NS", "IThing", uuid.Nil, []winmdtest.Method{
		{Name: "Items", Ret: winmdtest.Generic("Windows.Foundation.Collections", "IIterable`1", winmdtest.Int32)},
		{Name: "Current", Ret: winmdtest.TypeVar(0)},
	}, winmdtest.TypeParams("T"))
	f := loadBuilder(t, b)

	sig, derr := signature.DecodeMethod(f, methodSig(t, f, name, 0))
	require.Nil(t, derr)
	require.IsType(t, signature.GenericInst{}, sig.Return)
	inst := sig.Return.(signature.GenericInst)
	assert.Equal(t, winmd.TypeName{
		Namespace: "Windows.Foundation.Collections", Name: "IIterable`1",
	}, inst.Def.Name)
	assert.False(t, inst.Def.IsValueType)
	require.Len(t, inst.Args, 1)
	assert.Equal(t, signature.Primitive{Kind: signature.Int32}, inst.Args[0])
	assert.Equal(t, "Windows.Foundation.Collections.IIterable`1<i32>", inst.String())

	sig, derr = signature.DecodeMethod(f, methodSig(t, f, name, 1))
	require.Nil(t, derr)
	assert.Equal(t, signature.GenericParam{Method: false, Index: 0}, sig.Return)
	assert.Equal(t, "!0", sig.Return.String())
}

func TestDecodeSZArray(t *testing.T) {
	b := winmdtest.NewBuilder("test.winmd")
	name := b.AddInterface("NS", "IBuf", uuid.Nil, []winmdtest.Method{
		{Name: "Bytes", Ret: winmdtest.Array(winmdtest.UInt8)},
	})
	f := loadBuilder(t, b)

	sig, derr := signature.DecodeMethod(f, methodSig(t, f, name, 0))
	require.Nil(t, derr)
	assert.Equal(t, signature.SZArray{Inner: signature.Primitive{Kind: signature.UInt8}}, sig.Return)
}

func TestDecodeConstPointerModifier(t *testing.T) {
	b := winmdtest.NewBuilder("test.winmd")
	b.AddStruct("NS", "Point", []winmdtest.StructField{
		{Name: "X", Type: winmdtest.Float32},
	})
	token := b.TypeRefCoded(winmd.TypeName{
		Namespace: "System.Runtime.CompilerServices", Name: "IsConst",
	})
	require.Less(t, token, uint32(0x80), "token must fit a one-byte compressed form")
	f := loadBuilder(t, b)

	blob := []byte{0x06, winmd.ElementTypeCModOpt, byte(token),
		winmd.ElementTypePtr, winmd.ElementTypeU4}
	decoded, derr := signature.DecodeField(f, blob)
	require.Nil(t, derr)
	require.Equal(t, signature.Pointer{
		Inner:   signature.Primitive{Kind: signature.UInt32},
		IsConst: true,
	}, decoded)
	assert.Equal(t, "*const u32", decoded.String())
}

func TestDecodeFunctionPointer(t *testing.T) {
	b := winmdtest.NewBuilder("test.winmd")
	b.AddStruct("NS", "Point", []winmdtest.StructField{
		{Name: "X", Type: winmdtest.Float32},
	})
	f := loadBuilder(t, b)

	blob := []byte{winmd.ElementTypeFnPtr,
		0x00,                  // default calling convention
		0x01,                  // one parameter
		winmd.ElementTypeVoid, // return
		winmd.ElementTypeI4}
	decoded, derr := signature.DecodeTypeSpec(f, blob)
	require.Nil(t, derr)
	require.IsType(t, signature.FuncPtr{}, decoded)
	fp := decoded.(signature.FuncPtr)
	assert.Equal(t, signature.Void{}, fp.Sig.Return)
	require.Len(t, fp.Sig.Params, 1)
	assert.Equal(t, signature.Primitive{Kind: signature.Int32}, fp.Sig.Params[0])
	assert.Equal(t, "fn(i32) void", fp.String())
}

func TestDecodeErrors(t *testing.T) {
	b := winmdtest.NewBuilder("test.winmd")
	b.AddStruct("NS", "Point", []winmdtest.StructField{
		{Name: "X", Type: winmdtest.Float32},
	})
	f := loadBuilder(t, b)

	tests := []struct {
		name string
		run  func() *diag.Error
		code diag.Code
	}{
		{"field sig with method kind", func() *diag.Error {
			_, err := signature.DecodeField(f, []byte{0x20, winmd.ElementTypeI4})
			return err
		}, diag.CodeBadSignatureKind},
		{"empty field sig", func() *diag.Error {
			_, err := signature.DecodeField(f, nil)
			return err
		}, diag.CodeTruncatedSignature},
		{"field sig missing type", func() *diag.Error {
			_, err := signature.DecodeField(f, []byte{0x06})
			return err
		}, diag.CodeTruncatedSignature},
		{"unknown element", func() *diag.Error {
			_, err := signature.DecodeTypeSpec(f, []byte{0x63})
			return err
		}, diag.CodeUnknownElementType},
		{"pointer missing target", func() *diag.Error {
			_, err := signature.DecodeTypeSpec(f, []byte{winmd.ElementTypePtr})
			return err
		}, diag.CodeTruncatedSignature},
		{"bad compressed prefix", func() *diag.Error {
			_, err := signature.DecodeTypeSpec(f, []byte{winmd.ElementTypeClass, 0xE5})
			return err
		}, diag.CodeTruncatedSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.NotNil(t, err)
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, diag.CategorySignature, err.Category)
			assert.Equal(t, "test.winmd", err.File)
		})
	}
}

func TestTypeGuid(t *testing.T) {
	id := uuid.MustParse("af86e2e0-b12d-4c6a-9c5a-d7aa65101e90")
	b := winmdtest.NewBuilder("test.winmd")
	b.AddInterface("NS", "IWidget", id, nil)
	b.AddStruct("NS", "Point", []winmdtest.StructField{
		{Name: "X", Type: winmdtest.Float32},
	})
	f := loadBuilder(t, b)

	iface, _ := f.TypeDefByName(winmd.TypeName{Namespace: "NS", Name: "IWidget"})
	got, ok, derr := signature.TypeGuid(iface)
	require.Nil(t, derr)
	require.True(t, ok)
	assert.Equal(t, id, got)

	point, _ := f.TypeDefByName(winmd.TypeName{Namespace: "NS", Name: "Point"})
	_, ok, derr = signature.TypeGuid(point)
	require.Nil(t, derr)
	assert.False(t, ok)
}

func TestSupportedArchitecture(t *testing.T) {
	b := winmdtest.NewBuilder("test.winmd")
	name := b.AddStruct("NS", "Context", []winmdtest.StructField{
		{Name: "Handle", Type: winmdtest.IntPtr},
	})
	b.AddStruct("NS", "Plain", []winmdtest.StructField{
		{Name: "X", Type: winmdtest.Int32},
	})
	b.AttachArch(name, 3) // x86 | x64
	f := loadBuilder(t, b)

	td, _ := f.TypeDefByName(name)
	mask, ok, derr := signature.SupportedArchitecture(td)
	require.Nil(t, derr)
	require.True(t, ok)
	assert.Equal(t, int32(3), mask)

	plain, _ := f.TypeDefByName(winmd.TypeName{Namespace: "NS", Name: "Plain"})
	_, ok, derr = signature.SupportedArchitecture(plain)
	require.Nil(t, derr)
	assert.False(t, ok)
}

func TestDecodeAttributeFixedArgs(t *testing.T) {
	b := winmdtest.NewBuilder("test.winmd")
	name := b.AddClass("NS", "Widget", winmdtest.Activatable())
	f := loadBuilder(t, b)

	td, ok := f.TypeDefByName(name)
	require.True(t, ok)
	attr, ok := td.AttributeNamed(winmd.AttrActivatable)
	require.True(t, ok)

	args, derr := signature.DecodeAttributeFixedArgs(f, attr)
	require.Nil(t, derr)
	require.Len(t, args, 1)
	assert.Equal(t, signature.Primitive{Kind: signature.UInt32}, args[0].Type)
	assert.Equal(t, uint32(1), args[0].Value)
}

func TestDecodeArchitectureEnumArg(t *testing.T) {
	b := winmdtest.NewBuilder("test.winmd")
	name := b.AddStruct("NS", "Context", []winmdtest.StructField{
		{Name: "Handle", Type: winmdtest.IntPtr},
	})
	b.AttachArch(name, 6) // x64 | arm64
	f := loadBuilder(t, b)

	td, _ := f.TypeDefByName(name)
	attr, ok := td.AttributeNamed(winmd.AttrArchitecture)
	require.True(t, ok)

	args, derr := signature.DecodeAttributeFixedArgs(f, attr)
	require.Nil(t, derr)
	require.Len(t, args, 1)
	assert.Equal(t, int32(6), args[0].Value)
}
