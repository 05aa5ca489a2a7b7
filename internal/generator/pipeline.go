// Package generator drives the whole binding run: load metadata, compile
// the filter, resolve the dependency closure, and emit Go source. It is
// the library surface the CLI sits on.
package generator

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/winmdgen/winmdgen/internal/cache"
	"github.com/winmdgen/winmdgen/internal/codegen"
	"github.com/winmdgen/winmdgen/internal/diag"
	"github.com/winmdgen/winmdgen/internal/filter"
	"github.com/winmdgen/winmdgen/internal/resolver"
	"github.com/winmdgen/winmdgen/internal/winmd"
)

// Pipeline runs binding generation. The zero value works: a fresh cache
// and a nop logger are installed on first use.
type Pipeline struct {
	Cache  *cache.Cache
	Logger *zap.Logger

	// StrictFilters promotes filter rules that match no type from
	// warnings to fatal errors.
	StrictFilters bool

	// ExternalNamespaces names namespaces whose types are assumed to be
	// provided elsewhere and are not resolved. The resolver always treats
	// the platform metadata namespaces this way.
	ExternalNamespaces []string
}

// Result is a completed generation run.
type Result struct {
	// Files maps output-relative paths to rendered Go source.
	Files map[string]string

	// TypeCount is the number of resolved types, including those skipped
	// by the architecture restriction.
	TypeCount int

	// Warnings carries the non-fatal diagnostics of the run.
	Warnings diag.List

	// Unmatched lists the filter rules that matched no type.
	Unmatched []string

	// Namespaces lists the distinct namespaces of the resolved set.
	Namespaces []string
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

// Generate runs the full pipeline over the metadata files at inputs.
// Filter rule errors are accumulated so one run reports every bad
// pattern; everything after rule parsing fails on the first fatal.
func (p *Pipeline) Generate(inputs []string, rules []string, cfg codegen.Config) (*Result, error) {
	log := p.logger()
	if p.Cache == nil {
		p.Cache = cache.New()
	}

	files := make([]*winmd.File, 0, len(inputs))
	for _, input := range inputs {
		f, err := p.Cache.Load(input)
		if err != nil {
			log.Error("failed to load metadata", zap.String("path", input), zap.Error(err))
			return nil, err
		}
		log.Debug("loaded metadata",
			zap.String("path", input),
			zap.String("version", f.Version()),
		)
		files = append(files, f)
	}

	flt, ruleErrs := compileRules(rules)
	if ruleErrs.HasErrors() {
		return nil, ruleErrs
	}

	var warnings diag.List
	unmatched := flt.Unmatched(files)
	if len(unmatched) > 0 {
		var strict diag.List
		for _, rule := range unmatched {
			e := diag.New(diag.CodeUnmatchedFilterRule, diag.CategoryFilter,
				"filter rule %q matches no type in the inputs", rule)
			if p.StrictFilters {
				strict = append(strict, e)
				continue
			}
			warnings = append(warnings, e.AsWarning())
		}
		if len(strict) > 0 {
			return nil, strict
		}
	}

	set, rerr := resolver.New(files, p.ExternalNamespaces).Resolve(flt)
	if rerr != nil {
		log.Error("resolution failed", zap.Error(rerr))
		return nil, rerr
	}
	log.Info("resolved type closure", zap.Int("types", set.Len()))

	outFiles, eerr := emitParallel(set, cfg)
	if eerr != nil {
		log.Error("emission failed", zap.Error(eerr))
		return nil, eerr
	}
	log.Info("emitted bindings", zap.Int("files", len(outFiles)))

	return &Result{
		Files:      outFiles,
		TypeCount:  set.Len(),
		Warnings:   warnings,
		Unmatched:  unmatched,
		Namespaces: Namespaces(set),
	}, nil
}

// compileRules validates every rule before compiling the set, so a run
// with several bad patterns reports all of them at once.
func compileRules(rules []string) (*filter.Filter, diag.List) {
	var errs diag.List
	for _, rule := range rules {
		if _, err := filter.Compile([]string{rule}); err != nil {
			errs = append(errs, err)
		}
	}
	if errs.HasErrors() {
		return nil, errs
	}
	flt, err := filter.Compile(rules)
	if err != nil {
		return nil, diag.List{err}
	}
	return flt, nil
}

// emitParallel renders every resolved type on its own goroutine and
// merges the fragments in canonical order. Output is byte-identical to a
// sequential run.
func emitParallel(set *resolver.TypeSet, cfg codegen.Config) (map[string]string, *diag.Error) {
	entries := set.Types()
	fragments := make([]*codegen.Fragment, len(entries))
	errs := make([]*diag.Error, len(entries))

	var wg sync.WaitGroup
	for i, entry := range entries {
		wg.Add(1)
		go func(i int, entry *resolver.Type) {
			defer wg.Done()
			fragments[i], errs[i] = codegen.EmitType(entry, set, cfg)
		}(i, entry)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	emitted := make([]*codegen.Fragment, 0, len(fragments))
	for _, frag := range fragments {
		if frag != nil {
			emitted = append(emitted, frag)
		}
	}
	return codegen.Assemble(emitted, cfg)
}

// Namespaces lists the distinct namespaces of a resolved set in sorted
// order, for reporting.
func Namespaces(set *resolver.TypeSet) []string {
	seen := make(map[string]bool)
	var out []string
	for _, entry := range set.Types() {
		if seen[entry.Name.Namespace] {
			continue
		}
		seen[entry.Name.Namespace] = true
		out = append(out, entry.Name.Namespace)
	}
	sort.Strings(out)
	return out
}
