package ui

import (
	"sort"
	"strings"
)

const (
	// DefaultMaxDistance is the largest edit distance still offered as a
	// suggestion. Namespace typos are usually a character or two.
	DefaultMaxDistance = 3
	// DefaultMaxSuggestions caps how many candidates a warning lists.
	DefaultMaxSuggestions = 3
)

// FuzzyMatchOptions tunes suggestion matching. The zero value and nil both
// mean the defaults; metadata namespaces compare case-insensitively unless
// CaseSensitive is set.
type FuzzyMatchOptions struct {
	MaxDistance    int
	MaxSuggestions int
	CaseSensitive  bool
}

type scoredCandidate struct {
	name string
	dist int
}

// FindSimilar returns the candidates closest to target by edit distance,
// nearest first. It backs the "did you mean" hints for filter rules that
// name a namespace no input file contains, e.g. suggesting
// "Windows.Foundation" for "Windows.Fundation".
func FindSimilar(target string, candidates []string, opts *FuzzyMatchOptions) []string {
	if opts == nil {
		opts = &FuzzyMatchOptions{}
	}
	maxDist := opts.MaxDistance
	if maxDist == 0 {
		maxDist = DefaultMaxDistance
	}
	maxCount := opts.MaxSuggestions
	if maxCount == 0 {
		maxCount = DefaultMaxSuggestions
	}

	want := target
	if !opts.CaseSensitive {
		want = strings.ToLower(target)
	}

	var scored []scoredCandidate
	for _, name := range candidates {
		have := name
		if !opts.CaseSensitive {
			have = strings.ToLower(name)
		}
		if dist := LevenshteinDistance(want, have); dist <= maxDist {
			scored = append(scored, scoredCandidate{name: name, dist: dist})
		}
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].dist < scored[j].dist
	})

	if len(scored) > maxCount {
		scored = scored[:maxCount]
	}
	out := make([]string, 0, len(scored))
	for _, c := range scored {
		out = append(out, c.name)
	}
	return out
}

// LevenshteinDistance returns the minimum number of single-character
// insertions, deletions, and substitutions turning s1 into s2.
func LevenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	// Rolling two-row table; prev[j] is the distance between s1[:i-1]
	// and s2[:j].
	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			sub := prev[j-1]
			if s1[i-1] != s2[j-1] {
				sub++
			}
			best := sub
			if del := prev[j] + 1; del < best {
				best = del
			}
			if ins := curr[j-1] + 1; ins < best {
				best = ins
			}
			curr[j] = best
		}
		prev, curr = curr, prev
	}

	return prev[len(s2)]
}

// FindBestMatch returns the single closest candidate, or "" when nothing
// is within the distance limit.
func FindBestMatch(target string, candidates []string, opts *FuzzyMatchOptions) string {
	matches := FindSimilar(target, candidates, opts)
	if len(matches) == 0 {
		return ""
	}
	return matches[0]
}

// HasCloseMatch reports whether any candidate is within the distance limit.
func HasCloseMatch(target string, candidates []string, opts *FuzzyMatchOptions) bool {
	return FindBestMatch(target, candidates, opts) != ""
}
