// Package codegen turns a resolved type set into Go source bindings.
// Emission is a pure function of the set and the config: identical inputs
// produce byte-identical files, including under parallel emission.
package codegen

import (
	"fmt"
)

// Layout selects how emitted files are arranged.
type Layout int

const (
	// LayoutFlat puts every binding in a single package, one file per
	// architecture class.
	LayoutFlat Layout = iota
	// LayoutNested creates one package directory per namespace.
	LayoutNested
)

// Style selects how much wrapping the bindings carry.
type Style int

const (
	// StyleRaw emits vtable structs and unsafe call stubs only.
	StyleRaw Style = iota
	// StyleWrapped additionally emits call-through methods that translate
	// HRESULT failures into Go errors.
	StyleWrapped
)

// ParseLayout maps a config string to a Layout.
func ParseLayout(s string) (Layout, error) {
	switch s {
	case "", "flat":
		return LayoutFlat, nil
	case "nested":
		return LayoutNested, nil
	}
	return 0, fmt.Errorf("unknown layout %q (want flat or nested)", s)
}

// ParseStyle maps a config string to a Style.
func ParseStyle(s string) (Style, error) {
	switch s {
	case "", "wrapped":
		return StyleWrapped, nil
	case "raw":
		return StyleRaw, nil
	}
	return 0, fmt.Errorf("unknown style %q (want raw or wrapped)", s)
}

// DefaultRuntimeModule is the import path of the runtime support module
// generated code leans on when the config does not name one.
const DefaultRuntimeModule = "github.com/winmdgen/winrt"

// Config drives the emitter. The zero value is usable: flat layout, raw
// style, all architectures, default runtime module.
type Config struct {
	Layout      Layout
	Style       Style
	Scaffolding bool

	// Package names the emitted package under the flat layout.
	Package string

	// Derives maps a resolved type key to extra derived helpers
	// ("String" is the only recognized derive).
	Derives map[string][]string

	// ExternalNamespaces maps a metadata namespace to the Go import path
	// that already provides its bindings.
	ExternalNamespaces map[string]string

	// RuntimeModule is the import path of the runtime support module.
	RuntimeModule string

	// Architectures restricts emission to the named architectures
	// (x86, x64, arm64). Empty means all.
	Architectures []string
}

func (c *Config) runtimeModule() string {
	if c.RuntimeModule == "" {
		return DefaultRuntimeModule
	}
	return c.RuntimeModule
}

func (c *Config) packageName() string {
	if c.Package == "" {
		return "bindings"
	}
	return c.Package
}

// arch is one architecture bit from the supported-architecture mask.
type arch struct {
	bit  int32
	name string // metadata-facing name
	tag  string // Go build tag
}

var arches = []arch{
	{bit: 1, name: "x86", tag: "386"},
	{bit: 2, name: "x64", tag: "amd64"},
	{bit: 4, name: "arm64", tag: "arm64"},
}

// archMask returns the mask of architectures the config allows.
func (c *Config) archMask() int32 {
	if len(c.Architectures) == 0 {
		return 0x7
	}
	var mask int32
	for _, name := range c.Architectures {
		for _, a := range arches {
			if a.name == name {
				mask |= a.bit
			}
		}
	}
	return mask
}
