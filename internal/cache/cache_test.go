package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/winmdgen/winmdgen/internal/winmd"
	"github.com/winmdgen/winmdgen/internal/winmd/winmdtest"
)

func writeImage(t *testing.T, dir, name string) string {
	t.Helper()
	b := winmdtest.NewBuilder(name)
	b.AddStruct("NS", "Point", []winmdtest.StructField{
		{Name: "X", Type: winmdtest.Float32},
	})
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, b.Build(), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func TestLoadParsesAndCaches(t *testing.T) {
	cache := New()
	path := writeImage(t, t.TempDir(), "test.winmd")

	first, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if _, ok := first.TypeDefByName(winmd.TypeName{Namespace: "NS", Name: "Point"}); !ok {
		t.Errorf("loaded file is missing NS.Point")
	}
	if cache.Size() != 1 {
		t.Errorf("Size() = %d, want 1", cache.Size())
	}

	second, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load() error on warm cache: %v", err)
	}
	if first != second {
		t.Errorf("warm Load() re-parsed an unchanged file")
	}
}

func TestLoadReparsesChangedFile(t *testing.T) {
	cache := New()
	dir := t.TempDir()
	path := writeImage(t, dir, "test.winmd")

	first, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	b := winmdtest.NewBuilder("test.winmd")
	b.AddStruct("NS", "Size", []winmdtest.StructField{
		{Name: "Width", Type: winmdtest.Float32},
	})
	if err := os.WriteFile(path, b.Build(), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	// Some filesystems have coarse mtime resolution; force a distinct
	// timestamp so the stat check cannot mask the rewrite.
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("Chtimes() error: %v", err)
	}

	second, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load() error after rewrite: %v", err)
	}
	if first == second {
		t.Errorf("Load() served a stale parse for rewritten content")
	}
	if _, ok := second.TypeDefByName(winmd.TypeName{Namespace: "NS", Name: "Size"}); !ok {
		t.Errorf("reloaded file is missing NS.Size")
	}
}

func TestLoadKeepsParseWhenOnlyMtimeChanges(t *testing.T) {
	cache := New()
	path := writeImage(t, t.TempDir(), "test.winmd")

	first, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("Chtimes() error: %v", err)
	}

	second, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load() error after touch: %v", err)
	}
	if first != second {
		t.Errorf("Load() re-parsed a file whose content did not change")
	}
}

func TestInvalidate(t *testing.T) {
	cache := New()
	path := writeImage(t, t.TempDir(), "test.winmd")

	first, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	cache.Invalidate(path)
	if cache.Size() != 0 {
		t.Errorf("Size() after Invalidate = %d, want 0", cache.Size())
	}

	second, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load() error after Invalidate: %v", err)
	}
	if first == second {
		t.Errorf("Load() after Invalidate returned the dropped parse")
	}
}

func TestClear(t *testing.T) {
	cache := New()
	dir := t.TempDir()
	a := writeImage(t, dir, "a.winmd")
	b := writeImage(t, dir, "b.winmd")

	if _, err := cache.Load(a); err != nil {
		t.Fatalf("Load(a) error: %v", err)
	}
	if _, err := cache.Load(b); err != nil {
		t.Fatalf("Load(b) error: %v", err)
	}
	if cache.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", cache.Size())
	}

	cache.Clear()
	if cache.Size() != 0 {
		t.Errorf("Size() after Clear = %d, want 0", cache.Size())
	}
}

func TestLoadMissingFile(t *testing.T) {
	cache := New()
	if _, err := cache.Load(filepath.Join(t.TempDir(), "absent.winmd")); err == nil {
		t.Errorf("Load() of a missing file returned no error")
	}
}
