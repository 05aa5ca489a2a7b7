package winmd_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/winmdgen/winmdgen/internal/diag"
	"github.com/winmdgen/winmdgen/internal/winmd"
	"github.com/winmdgen/winmdgen/internal/winmd/winmdtest"
)

func loadBuilder(t *testing.T, b *winmdtest.Builder) *winmd.File {
	t.Helper()
	f, err := winmd.Load(b.Build(), "test.winmd")
	require.Nil(t, err, "Load failed: %v", err)
	return f
}

func TestLoadMinimalImage(t *testing.T) {
	b := winmdtest.NewBuilder("test.winmd")
	b.AddStruct("NS", "Point", []winmdtest.StructField{
		{Name: "X", Type: winmdtest.Float32},
		{Name: "Y", Type: winmdtest.Float32},
	})
	f := loadBuilder(t, b)

	assert.Equal(t, "WindowsRuntime 1.4", f.Version())
	assert.Equal(t, uint32(1), f.RowCount(winmd.TableTypeDef))
	assert.Equal(t, uint32(2), f.RowCount(winmd.TableField))
	assert.Equal(t, uint32(1), f.RowCount(winmd.TableModule))
}

func TestTypeDefLookupAndFields(t *testing.T) {
	b := winmdtest.NewBuilder("test.winmd")
	b.AddStruct("NS", "Point", []winmdtest.StructField{
		{Name: "X", Type: winmdtest.Float32},
		{Name: "Y", Type: winmdtest.Float32},
	})
	b.AddStruct("NS", "Size", []winmdtest.StructField{
		{Name: "Width", Type: winmdtest.Int32},
	})
	f := loadBuilder(t, b)

	td, ok := f.TypeDefByName(winmd.TypeName{Namespace: "NS", Name: "Point"})
	require.True(t, ok)

	name, derr := td.Name()
	require.Nil(t, derr)
	assert.Equal(t, "Point", name)

	fields := td.Fields()
	require.Len(t, fields, 2)

	// Declaration order must be preserved.
	first, derr := fields[0].Name()
	require.Nil(t, derr)
	second, derr := fields[1].Name()
	require.Nil(t, derr)
	assert.Equal(t, []string{"X", "Y"}, []string{first, second})

	sig, derr := fields[0].Signature()
	require.Nil(t, derr)
	assert.Equal(t, []byte{0x06, winmd.ElementTypeR4}, sig)

	// The second struct's field range must not bleed into the first.
	size, ok := f.TypeDefByName(winmd.TypeName{Namespace: "NS", Name: "Size"})
	require.True(t, ok)
	require.Len(t, size.Fields(), 1)

	_, ok = f.TypeDefByName(winmd.TypeName{Namespace: "NS", Name: "Missing"})
	assert.False(t, ok)
}

func TestStructExtendsValueType(t *testing.T) {
	b := winmdtest.NewBuilder("test.winmd")
	b.AddStruct("NS", "Point", []winmdtest.StructField{
		{Name: "X", Type: winmdtest.Float32},
	})
	f := loadBuilder(t, b)

	td, _ := f.TypeDefByName(winmd.TypeName{Namespace: "NS", Name: "Point"})
	extends, derr := td.Extends()
	require.Nil(t, derr)
	require.False(t, extends.IsNil())
	require.Equal(t, winmd.TableTypeRef, extends.Table)

	row, derr := f.Resolve(extends)
	require.Nil(t, derr)
	base := winmd.TypeRef{Row: row}
	baseName, derr := base.TypeName()
	require.Nil(t, derr)
	assert.Equal(t, winmd.TypeName{Namespace: "System", Name: "ValueType"}, baseName)
}

func TestEnumConstantsAndFlagsMarker(t *testing.T) {
	b := winmdtest.NewBuilder("test.winmd")
	b.AddEnum("NS", "FileAccess", true, winmdtest.UInt32, []winmdtest.EnumMember{
		{Name: "NONE", Value: 0},
		{Name: "READ", Value: 1},
		{Name: "WRITE", Value: 2},
	})
	b.AddEnum("NS", "Color", false, winmdtest.Int32, []winmdtest.EnumMember{
		{Name: "Red", Value: 0},
	})
	f := loadBuilder(t, b)

	access, ok := f.TypeDefByName(winmd.TypeName{Namespace: "NS", Name: "FileAccess"})
	require.True(t, ok)
	assert.True(t, access.IsFlagsEnum())

	fields := access.Fields()
	require.Len(t, fields, 4) // value__ + three members

	valueField := fields[0]
	vname, derr := valueField.Name()
	require.Nil(t, derr)
	assert.Equal(t, "value__", vname)
	assert.False(t, valueField.IsLiteral())

	write := fields[3]
	wname, derr := write.Name()
	require.Nil(t, derr)
	assert.Equal(t, "WRITE", wname)
	assert.True(t, write.IsLiteral())

	c, ok := write.Constant()
	require.True(t, ok)
	assert.Equal(t, winmd.ElementTypeU4, c.ElementType())
	v, derr := c.Int64Value()
	require.Nil(t, derr)
	assert.Equal(t, int64(2), v)

	color, ok := f.TypeDefByName(winmd.TypeName{Namespace: "NS", Name: "Color"})
	require.True(t, ok)
	assert.False(t, color.IsFlagsEnum())
}

func TestInterfaceAttributesAndMethods(t *testing.T) {
	id := uuid.MustParse("12345678-9abc-def0-1234-56789abcdef0")
	b := winmdtest.NewBuilder("test.winmd")
	b.AddInterface("NS", "IWidget", id, []winmdtest.Method{
		{Name: "First", Ret: winmdtest.Int32},
		{Name: "Second", Params: []winmdtest.MethodParam{{Name: "value", Type: winmdtest.Int32}}},
	})
	f := loadBuilder(t, b)

	td, ok := f.TypeDefByName(winmd.TypeName{Namespace: "NS", Name: "IWidget"})
	require.True(t, ok)
	assert.True(t, td.IsInterface())

	extends, derr := td.Extends()
	require.Nil(t, derr)
	assert.True(t, extends.IsNil())

	methods := td.Methods()
	require.Len(t, methods, 2)
	mname, derr := methods[0].Name()
	require.Nil(t, derr)
	assert.Equal(t, "First", mname)

	params := methods[1].Params()
	require.Len(t, params, 1)
	pname, derr := params[0].Name()
	require.Nil(t, derr)
	assert.Equal(t, "value", pname)
	assert.Equal(t, uint32(1), params[0].Sequence())

	attr, ok := td.AttributeNamed(winmd.AttrGuid)
	require.True(t, ok)
	value, derr := attr.Value()
	require.Nil(t, derr)
	// prolog (2) + GUID fields (16) + named-arg count (2)
	assert.Len(t, value, 20)
}

func TestPInvokeImportDescriptor(t *testing.T) {
	b := winmdtest.NewBuilder("test.winmd")
	b.AddApis("NS", []winmdtest.NativeFunc{
		{Name: "CreateWidget", Lib: "widget.dll", Sig: winmdtest.Method{
			Ret:    winmdtest.Int32,
			Params: []winmdtest.MethodParam{{Name: "flags", Type: winmdtest.UInt32}},
		}},
	})
	f := loadBuilder(t, b)

	apis, ok := f.TypeDefByName(winmd.TypeName{Namespace: "NS", Name: "Apis"})
	require.True(t, ok)
	methods := apis.Methods()
	require.Len(t, methods, 1)

	assert.True(t, methods[0].IsStatic())
	imp, ok := methods[0].ImportDescriptor()
	require.True(t, ok)

	importName, derr := imp.ImportName()
	require.Nil(t, derr)
	assert.Equal(t, "CreateWidget", importName)

	scope, ok := imp.ImportScope()
	require.True(t, ok)
	lib, derr := scope.Name()
	require.Nil(t, derr)
	assert.Equal(t, "widget.dll", lib)
	assert.Equal(t, winmd.PInvokeCallConvWinapi, imp.CallingConvention())
}

func TestLoadRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		code diag.Code
	}{
		{"empty", nil, diag.CodeTruncatedStream},
		{"tiny", []byte{0x4D, 0x5A}, diag.CodeTruncatedStream},
		{"not a PE", make([]byte, 128), diag.CodeMalformedContainer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := winmd.Load(tt.data, tt.name)
			require.NotNil(t, err)
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, diag.CategoryContainer, err.Category)
			assert.Equal(t, tt.name, err.File)
		})
	}
}

func TestLoadTruncatedImage(t *testing.T) {
	b := winmdtest.NewBuilder("test.winmd")
	b.AddStruct("NS", "Point", []winmdtest.StructField{
		{Name: "X", Type: winmdtest.Float32},
	})
	image := b.Build()

	_, err := winmd.Load(image[:len(image)-16], "cut.winmd")
	require.NotNil(t, err)
	assert.Equal(t, diag.CategoryContainer, err.Category)
}

func TestGuidRoundTrip(t *testing.T) {
	id := uuid.MustParse("01234567-89ab-cdef-0123-456789abcdef")
	assert.Equal(t, id, winmd.GuidToUUID(winmd.UUIDToGuid(id)))
}
