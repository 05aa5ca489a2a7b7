package codegen

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/winmdgen/winmdgen/internal/diag"
	"github.com/winmdgen/winmdgen/internal/resolver"
)

// Fragment is the emission of a single resolved type: a body plus the
// imports it needs, not yet wrapped in a file. Fragments merge into files
// by canonical key order, which keeps parallel emission deterministic.
type Fragment struct {
	Key     string
	Dir     string
	Package string
	// Arch is the effective architecture mask (0 means every architecture).
	Arch    int32
	Imports map[string]string
	Source  string
}

// Generator holds the emission state for one type.
type Generator struct {
	buf    bytes.Buffer
	indent int

	cfg *Config
	set *resolver.TypeSet
	m   *mapper
}

func newGenerator(cfg *Config, set *resolver.TypeSet) *Generator {
	return &Generator{cfg: cfg, set: set, m: newMapper(cfg, set)}
}

// writeLine writes one indented line; an empty format writes a blank line.
func (g *Generator) writeLine(format string, args ...interface{}) {
	if format == "" {
		g.buf.WriteString("\n")
		return
	}
	for i := 0; i < g.indent; i++ {
		g.buf.WriteString("\t")
	}
	if len(args) > 0 {
		fmt.Fprintf(&g.buf, format, args...)
	} else {
		g.buf.WriteString(format)
	}
	g.buf.WriteString("\n")
}

// Emit renders the whole set into a files map keyed by relative path.
func Emit(set *resolver.TypeSet, cfg Config) (map[string]string, *diag.Error) {
	fragments := make([]*Fragment, 0, set.Len())
	for _, entry := range set.Types() {
		frag, err := EmitType(entry, set, cfg)
		if err != nil {
			return nil, err
		}
		if frag != nil {
			fragments = append(fragments, frag)
		}
	}
	return Assemble(fragments, cfg)
}

// EmitType renders one resolved type. It returns nil when the type's
// architecture mask has no overlap with the configured architectures.
func EmitType(entry *resolver.Type, set *resolver.TypeSet, cfg Config) (*Fragment, *diag.Error) {
	mask := entry.Arch
	if mask != 0 {
		mask &= cfg.archMask()
		if mask == 0 {
			return nil, nil
		}
	}

	g := newGenerator(&cfg, set)
	var err *diag.Error
	switch entry.Category {
	case resolver.CategoryEnum:
		err = g.emitEnum(entry)
	case resolver.CategoryStruct:
		err = g.emitStruct(entry)
	case resolver.CategoryInterface:
		err = g.emitInterface(entry)
	case resolver.CategoryRuntimeClass:
		err = g.emitClass(entry)
	case resolver.CategoryDelegate:
		err = g.emitDelegate(entry)
	default:
		err = diag.New(diag.CodeUnsupportedCategory, diag.CategoryEmission,
			"type %s has category %d, which the emitter does not know", entry.Key(), entry.Category)
	}
	if err != nil {
		return nil, err.WithFile(entry.File.Name)
	}

	dir, pkg := cfg.placement(entry)
	return &Fragment{
		Key:     entry.Key(),
		Dir:     dir,
		Package: pkg,
		Arch:    mask,
		Imports: g.m.imports,
		Source:  g.buf.String(),
	}, nil
}

// placement decides the output directory and package for an entry.
func (c *Config) placement(entry *resolver.Type) (dir, pkg string) {
	if c.Layout == LayoutFlat {
		return "", c.packageName()
	}
	segments := strings.Split(strings.ToLower(entry.Name.Namespace), ".")
	return strings.Join(segments, "/"), segments[len(segments)-1]
}

// fileName derives the file a fragment lands in from its architecture mask.
func fileName(mask int32) string {
	if mask == 0 {
		return "types.go"
	}
	var tags []string
	for _, a := range arches {
		if mask&a.bit != 0 {
			tags = append(tags, a.tag)
		}
	}
	return "types_" + strings.Join(tags, "_") + ".go"
}

// buildTag renders the //go:build constraint for an architecture mask.
func buildTag(mask int32) string {
	var tags []string
	for _, a := range arches {
		if mask&a.bit != 0 {
			tags = append(tags, a.tag)
		}
	}
	return "//go:build " + strings.Join(tags, " || ")
}

// Assemble merges fragments into complete files. Fragments are ordered by
// canonical key, never by arrival order, so the merge is reproducible.
func Assemble(fragments []*Fragment, cfg Config) (map[string]string, *diag.Error) {
	sorted := make([]*Fragment, len(fragments))
	copy(sorted, fragments)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	type fileKey struct {
		dir  string
		name string
	}
	grouped := make(map[fileKey][]*Fragment)
	var order []fileKey
	for _, frag := range sorted {
		k := fileKey{dir: frag.Dir, name: fileName(frag.Arch)}
		if _, seen := grouped[k]; !seen {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], frag)
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].dir != order[j].dir {
			return order[i].dir < order[j].dir
		}
		return order[i].name < order[j].name
	})

	files := make(map[string]string, len(order))
	for _, k := range order {
		group := grouped[k]
		var out bytes.Buffer

		out.WriteString("// Code generated by winmdgen. DO NOT EDIT.\n\n")
		if group[0].Arch != 0 {
			out.WriteString(buildTag(group[0].Arch) + "\n\n")
		}
		out.WriteString("package " + group[0].Package + "\n\n")

		imports := make(map[string]string)
		for _, frag := range group {
			for p, alias := range frag.Imports {
				if existing, ok := imports[p]; ok && existing != alias {
					return nil, diag.New(diag.CodeEmitConflict, diag.CategoryEmission,
						"import %s aliased inconsistently (%s vs %s)", p, existing, alias)
				}
				imports[p] = alias
			}
		}
		writeImportBlock(&out, imports)

		for i, frag := range group {
			if i > 0 {
				out.WriteString("\n")
			}
			out.WriteString(frag.Source)
		}

		relPath := k.name
		if k.dir != "" {
			relPath = k.dir + "/" + k.name
		}
		if _, dup := files[relPath]; dup {
			return nil, diag.New(diag.CodeEmitConflict, diag.CategoryEmission,
				"two fragments produced the file %s", relPath)
		}
		files[relPath] = out.String()
	}
	return files, nil
}

func writeImportBlock(out *bytes.Buffer, imports map[string]string) {
	if len(imports) == 0 {
		return
	}
	paths := make([]string, 0, len(imports))
	for p := range imports {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	if len(paths) == 1 {
		p := paths[0]
		out.WriteString("import " + importSpec(p, imports[p]) + "\n\n")
		return
	}
	out.WriteString("import (\n")
	for _, p := range paths {
		out.WriteString("\t" + importSpec(p, imports[p]) + "\n")
	}
	out.WriteString(")\n\n")
}

func importSpec(p, alias string) string {
	if strings.HasSuffix(p, "/"+alias) || p == alias {
		return fmt.Sprintf("%q", p)
	}
	return fmt.Sprintf("%s %q", alias, p)
}
