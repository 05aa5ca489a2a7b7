// Package filter compiles ordered include/exclude rules over dotted type
// paths into a match predicate.
package filter

import (
	"strings"

	"github.com/winmdgen/winmdgen/internal/diag"
	"github.com/winmdgen/winmdgen/internal/winmd"
)

// rule is one compiled pattern. Specificity is the number of dotted
// segments; an exact (non-wildcard) full-path match outranks a prefix
// match of the same length.
type rule struct {
	raw      string
	segments []string
	wildcard bool
	include  bool
}

// Filter is an ordered rule list compiled into a predicate.
type Filter struct {
	rules          []rule
	defaultInclude bool
}

// Compile parses the ordered rule list. Rule syntax: `NS.Type` or `NS`
// selects a type or everything under a namespace, a trailing `.*` makes
// the namespace intent explicit, and a leading `!` negates. A bad rule is
// a fatal error carrying the rule text.
func Compile(rules []string) (*Filter, *diag.Error) {
	f := &Filter{defaultInclude: true}
	for _, raw := range rules {
		r, err := parseRule(raw)
		if err != nil {
			return nil, err
		}
		if r.include {
			// Any positive rule flips the default from include-all to
			// include-only-what-matches.
			f.defaultInclude = false
		}
		f.rules = append(f.rules, r)
	}
	return f, nil
}

func parseRule(raw string) (rule, *diag.Error) {
	text := strings.TrimSpace(raw)
	r := rule{raw: raw, include: true}
	if strings.HasPrefix(text, "!") {
		r.include = false
		text = text[1:]
	}
	if strings.HasSuffix(text, ".*") {
		r.wildcard = true
		text = strings.TrimSuffix(text, ".*")
	}
	if text == "" {
		return rule{}, badRule(raw, "empty pattern")
	}
	r.segments = strings.Split(text, ".")
	for _, seg := range r.segments {
		if seg == "" {
			return rule{}, badRule(raw, "empty path segment")
		}
		if strings.Contains(seg, "*") {
			return rule{}, badRule(raw, "wildcard is only valid as a trailing .*")
		}
	}
	return r, nil
}

func badRule(raw, reason string) *diag.Error {
	return diag.New(diag.CodeBadFilterRule, diag.CategoryFilter,
		"invalid filter rule %q: %s", raw, reason)
}

// Matches reports whether the type at namespace.name is included. The rule
// with the longest matching dotted-path prefix decides; an exact type path
// beats a namespace prefix of equal length, and equal specificity resolves
// in favor of the later rule.
func (f *Filter) Matches(namespace, name string) bool {
	path := splitPath(namespace, name)

	include := f.defaultInclude
	best := -1
	for _, r := range f.rules {
		score := r.score(path)
		if score >= best && score >= 0 {
			best = score
			include = r.include
		}
	}
	return include
}

// score ranks a match: two points per matched segment plus one for an
// exact full-path match, or -1 when the rule does not apply.
func (r *rule) score(path []string) int {
	if len(r.segments) > len(path) {
		return -1
	}
	for i, seg := range r.segments {
		if path[i] != seg {
			return -1
		}
	}
	score := 2 * len(r.segments)
	if !r.wildcard && len(r.segments) == len(path) {
		score++
	}
	return score
}

func splitPath(namespace, name string) []string {
	if namespace == "" {
		return []string{name}
	}
	return append(strings.Split(namespace, "."), name)
}

// Unmatched returns the rules that matched no type in any of the given
// files, in declaration order. Severity is the caller's call: the CLI
// reports them as warnings by default and as errors under strict mode.
func (f *Filter) Unmatched(files []*winmd.File) []string {
	matched := make([]bool, len(f.rules))
	for _, file := range files {
		for _, td := range file.TypeDefs() {
			tn, err := td.TypeName()
			if err != nil {
				continue
			}
			path := splitPath(tn.Namespace, tn.Name)
			for i := range f.rules {
				if !matched[i] && f.rules[i].score(path) >= 0 {
					matched[i] = true
				}
			}
		}
	}
	var unmatched []string
	for i, r := range f.rules {
		if !matched[i] {
			unmatched = append(unmatched, r.raw)
		}
	}
	return unmatched
}

// Rules returns the raw rule texts in declaration order.
func (f *Filter) Rules() []string {
	out := make([]string, len(f.rules))
	for i, r := range f.rules {
		out[i] = r.raw
	}
	return out
}
