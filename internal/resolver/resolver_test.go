package resolver_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/winmdgen/winmdgen/internal/diag"
	"github.com/winmdgen/winmdgen/internal/filter"
	"github.com/winmdgen/winmdgen/internal/resolver"
	"github.com/winmdgen/winmdgen/internal/winmd"
	"github.com/winmdgen/winmdgen/internal/winmd/winmdtest"
)

func loadBuilder(t *testing.T, b *winmdtest.Builder) *winmd.File {
	t.Helper()
	f, err := winmd.Load(b.Build(), b.Name())
	require.Nil(t, err, "Load failed: %v", err)
	return f
}

func compile(t *testing.T, rules ...string) *filter.Filter {
	t.Helper()
	f, err := filter.Compile(rules)
	require.Nil(t, err)
	return f
}

func resolve(t *testing.T, files []*winmd.File, rules ...string) *resolver.TypeSet {
	t.Helper()
	set, err := resolver.New(files, nil).Resolve(compile(t, rules...))
	require.Nil(t, err, "Resolve failed: %v", err)
	return set
}

func TestResolveMinimalStruct(t *testing.T) {
	b := winmdtest.NewBuilder("test.winmd")
	b.AddStruct("NS", "Point", []winmdtest.StructField{
		{Name: "X", Type: winmdtest.Float32},
		{Name: "Y", Type: winmdtest.Float32},
	})
	b.AddStruct("NS", "Unrelated", []winmdtest.StructField{
		{Name: "Z", Type: winmdtest.Int32},
	})
	f := loadBuilder(t, b)

	set := resolve(t, []*winmd.File{f}, "NS.Point")
	require.Equal(t, 1, set.Len())

	point := set.Types()[0]
	assert.Equal(t, winmd.TypeName{Namespace: "NS", Name: "Point"}, point.Name)
	assert.Equal(t, resolver.CategoryStruct, point.Category)
	assert.Empty(t, point.GenericArgs)
}

func TestCategoryDispatch(t *testing.T) {
	b := winmdtest.NewBuilder("test.winmd")
	b.AddStruct("NS", "Point", []winmdtest.StructField{
		{Name: "X", Type: winmdtest.Float32},
	})
	b.AddEnum("NS", "Color", false, winmdtest.Int32, []winmdtest.EnumMember{
		{Name: "Red", Value: 0},
	})
	b.AddInterface("NS", "IWidget", uuid.Nil, nil)
	b.AddDelegate("NS", "WidgetHandler", uuid.Nil, winmdtest.Method{})
	b.AddClass("NS", "Widget")
	f := loadBuilder(t, b)

	set := resolve(t, []*winmd.File{f}, "NS.*")

	want := map[string]resolver.Category{
		"NS.Point":         resolver.CategoryStruct,
		"NS.Color":         resolver.CategoryEnum,
		"NS.IWidget":       resolver.CategoryInterface,
		"NS.WidgetHandler": resolver.CategoryDelegate,
		"NS.Widget":        resolver.CategoryRuntimeClass,
	}
	for key, cat := range want {
		entry, ok := set.Lookup(key)
		require.True(t, ok, "missing %s", key)
		assert.Equal(t, cat, entry.Category, key)
	}
}

func TestClosurePullsInDependencies(t *testing.T) {
	b := winmdtest.NewBuilder("test.winmd")
	b.AddStruct("Geometry", "Point", []winmdtest.StructField{
		{Name: "X", Type: winmdtest.Float32},
	})
	b.AddInterface("NS", "IShape", uuid.Nil, []winmdtest.Method{
		{Name: "Origin", Ret: winmdtest.Value("Geometry", "Point")},
	})
	f := loadBuilder(t, b)

	// The filter names only the interface; the struct rides in through the
	// return type.
	set := resolve(t, []*winmd.File{f}, "NS.IShape")
	assert.True(t, set.Contains("NS.IShape"))
	assert.True(t, set.Contains("Geometry.Point"))
	assert.Equal(t, 2, set.Len())
}

func TestClosureAcrossFiles(t *testing.T) {
	shapes := winmdtest.NewBuilder("shapes.winmd")
	shapes.AddInterface("NS", "IShape", uuid.Nil, []winmdtest.Method{
		{Name: "Origin", Ret: winmdtest.Value("Geometry", "Point")},
	})
	geometry := winmdtest.NewBuilder("geometry.winmd")
	geometry.AddStruct("Geometry", "Point", []winmdtest.StructField{
		{Name: "X", Type: winmdtest.Float32},
	})

	files := []*winmd.File{loadBuilder(t, shapes), loadBuilder(t, geometry)}
	set := resolve(t, files, "NS.IShape")
	assert.True(t, set.Contains("Geometry.Point"))

	point, _ := set.Lookup("Geometry.Point")
	assert.Equal(t, "geometry.winmd", point.File.Name)
}

func TestReferenceCycleIsLegal(t *testing.T) {
	b := winmdtest.NewBuilder("test.winmd")
	b.AddInterface("NS", "IA", uuid.Nil, []winmdtest.Method{
		{Name: "Other", Ret: winmdtest.Class("NS", "IB")},
	})
	b.AddInterface("NS", "IB", uuid.Nil, []winmdtest.Method{
		{Name: "Other", Ret: winmdtest.Class("NS", "IA")},
	})
	f := loadBuilder(t, b)

	set := resolve(t, []*winmd.File{f}, "NS.IA")
	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Contains("NS.IA"))
	assert.True(t, set.Contains("NS.IB"))
}

func TestValueTypeCycleIsFatal(t *testing.T) {
	b := winmdtest.NewBuilder("test.winmd")
	b.AddStruct("NS", "A", []winmdtest.StructField{
		{Name: "B", Type: winmdtest.Value("NS", "B")},
	})
	b.AddStruct("NS", "B", []winmdtest.StructField{
		{Name: "A", Type: winmdtest.Value("NS", "A")},
	})
	f := loadBuilder(t, b)

	_, err := resolver.New([]*winmd.File{f}, nil).Resolve(compile(t, "NS.*"))
	require.NotNil(t, err)
	assert.Equal(t, diag.CodeValueTypeCycle, err.Code)
	assert.Equal(t, diag.CategoryResolution, err.Category)
	require.GreaterOrEqual(t, len(err.Chain), 3)
	assert.Equal(t, err.Chain[0], err.Chain[len(err.Chain)-1], "chain should close the cycle")
}

func TestSelfContainingStructIsFatal(t *testing.T) {
	b := winmdtest.NewBuilder("test.winmd")
	b.AddStruct("NS", "Node", []winmdtest.StructField{
		{Name: "Next", Type: winmdtest.Value("NS", "Node")},
	})
	f := loadBuilder(t, b)

	_, err := resolver.New([]*winmd.File{f}, nil).Resolve(compile(t, "NS.Node"))
	require.NotNil(t, err)
	assert.Equal(t, diag.CodeValueTypeCycle, err.Code)
}

func TestSelfReferenceBehindPointerIsLegal(t *testing.T) {
	b := winmdtest.NewBuilder("test.winmd")
	b.AddStruct("NS", "Node", []winmdtest.StructField{
		{Name: "Next", Type: winmdtest.Ptr(winmdtest.Value("NS", "Node"))},
	})
	f := loadBuilder(t, b)

	set := resolve(t, []*winmd.File{f}, "NS.Node")
	assert.Equal(t, 1, set.Len())
}

func TestGenericInstantiationsAreDistinct(t *testing.T) {
	b := winmdtest.NewBuilder("test.winmd")
	b.AddInterface("NS", "IVector`1", uuid.Nil, []winmdtest.Method{
		{Name: "GetAt", Ret: winmdtest.TypeVar(0), Params: []winmdtest.MethodParam{
			{Name: "index", Type: winmdtest.UInt32},
		}},
	}, winmdtest.TypeParams("T"))
	b.AddInterface("NS", "IThing", uuid.Nil, []winmdtest.Method{
		{Name: "Ints", Ret: winmdtest.Generic("NS", "IVector`1", winmdtest.Int32)},
		{Name: "Names", Ret: winmdtest.Generic("NS", "IVector`1", winmdtest.String)},
	})
	f := loadBuilder(t, b)

	set := resolve(t, []*winmd.File{f}, "NS.IThing")
	assert.True(t, set.Contains("NS.IVector`1<i32>"))
	assert.True(t, set.Contains("NS.IVector`1<string>"))

	ints, _ := set.Lookup("NS.IVector`1<i32>")
	require.Len(t, ints.GenericArgs, 1)
	assert.Equal(t, resolver.CategoryInterface, ints.Category)
}

func TestUnresolvedReferenceIsFatal(t *testing.T) {
	b := winmdtest.NewBuilder("test.winmd")
	b.AddStruct("NS", "Holder", []winmdtest.StructField{
		{Name: "Inner", Type: winmdtest.Value("Other", "Missing")},
	})
	f := loadBuilder(t, b)

	_, err := resolver.New([]*winmd.File{f}, nil).Resolve(compile(t, "NS.Holder"))
	require.NotNil(t, err)
	assert.Equal(t, diag.CodeUnresolvedReference, err.Code)
	assert.Contains(t, err.Message, "Other.Missing")
	require.NotEmpty(t, err.Chain)
	assert.Equal(t, "NS.Holder", err.Chain[0])
}

func TestExternalNamespaceEscapesResolution(t *testing.T) {
	b := winmdtest.NewBuilder("test.winmd")
	b.AddStruct("NS", "Holder", []winmdtest.StructField{
		{Name: "Inner", Type: winmdtest.Value("Other", "Missing")},
	})
	f := loadBuilder(t, b)

	set, err := resolver.New([]*winmd.File{f}, []string{"Other"}).
		Resolve(compile(t, "NS.Holder"))
	require.Nil(t, err, "Resolve failed: %v", err)
	assert.Equal(t, 1, set.Len())
}

func TestArchitectureMask(t *testing.T) {
	b := winmdtest.NewBuilder("test.winmd")
	name := b.AddStruct("NS", "Context", []winmdtest.StructField{
		{Name: "Handle", Type: winmdtest.IntPtr},
	})
	b.AttachArch(name, 6)
	f := loadBuilder(t, b)

	set := resolve(t, []*winmd.File{f}, "NS.Context")
	entry, ok := set.Lookup("NS.Context")
	require.True(t, ok)
	assert.Equal(t, int32(6), entry.Arch)
}

func TestCanonicalOrdering(t *testing.T) {
	b := winmdtest.NewBuilder("test.winmd")
	b.AddStruct("Zoo", "Animal", []winmdtest.StructField{
		{Name: "Legs", Type: winmdtest.Int32},
	})
	b.AddStruct("NS", "Size", []winmdtest.StructField{
		{Name: "W", Type: winmdtest.Float32},
	})
	b.AddStruct("NS", "Point", []winmdtest.StructField{
		{Name: "X", Type: winmdtest.Float32},
	})
	f := loadBuilder(t, b)

	set := resolve(t, []*winmd.File{f}, "NS.*", "Zoo.*")
	keys := make([]string, 0, set.Len())
	for _, entry := range set.Types() {
		keys = append(keys, entry.Key())
	}
	assert.Equal(t, []string{"NS.Point", "NS.Size", "Zoo.Animal"}, keys)
}
