package ui

import (
	"reflect"
	"testing"
)

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		s1, s2   string
		expected int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"Point", "Point", 0},
		{"Point", "Pont", 1},
		{"IClosable", "IClossable", 1},
		{"Foundation", "Fundation", 1},
		{"kitten", "sitting", 3},
	}

	for _, tt := range tests {
		got := LevenshteinDistance(tt.s1, tt.s2)
		if got != tt.expected {
			t.Errorf("LevenshteinDistance(%q, %q) = %d, want %d", tt.s1, tt.s2, got, tt.expected)
		}
	}
}

func TestFindSimilar(t *testing.T) {
	candidates := []string{
		"Windows.Foundation",
		"Windows.Storage",
		"Windows.Devices",
		"Windows.Graphics",
	}

	tests := []struct {
		name     string
		target   string
		opts     *FuzzyMatchOptions
		expected []string
	}{
		{
			name:     "exact match",
			target:   "Windows.Foundation",
			expected: []string{"Windows.Foundation"},
		},
		{
			name:     "one character dropped",
			target:   "Windows.Fundation",
			expected: []string{"Windows.Foundation"},
		},
		{
			name:     "case insensitive by default",
			target:   "windows.storage",
			expected: []string{"Windows.Storage"},
		},
		{
			name:     "no close match",
			target:   "System.Collections",
			expected: []string{},
		},
		{
			name:   "tight distance excludes looser matches",
			target: "Windows.Graphic",
			opts:   &FuzzyMatchOptions{MaxDistance: 1, MaxSuggestions: 3},
			expected: []string{
				"Windows.Graphics",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindSimilar(tt.target, candidates, tt.opts)
			if len(got) == 0 && len(tt.expected) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("FindSimilar(%q) = %v, want %v", tt.target, got, tt.expected)
			}
		})
	}
}

func TestFindSimilarLimitsSuggestions(t *testing.T) {
	candidates := []string{"NSA", "NSB", "NSC", "NSD", "NSE"}
	got := FindSimilar("NSX", candidates, &FuzzyMatchOptions{MaxDistance: 1, MaxSuggestions: 2})
	if len(got) != 2 {
		t.Errorf("FindSimilar() returned %d suggestions, want 2", len(got))
	}
}

func TestFindBestMatch(t *testing.T) {
	candidates := []string{"Windows.Foundation", "Windows.Storage"}

	if got := FindBestMatch("Windows.Fundation", candidates, nil); got != "Windows.Foundation" {
		t.Errorf("FindBestMatch() = %q, want %q", got, "Windows.Foundation")
	}
	if got := FindBestMatch("completely.unrelated.path", candidates, nil); got != "" {
		t.Errorf("FindBestMatch() = %q, want empty string", got)
	}
}

func TestHasCloseMatch(t *testing.T) {
	candidates := []string{"Windows.Foundation"}

	if !HasCloseMatch("Windows.Fundation", candidates, nil) {
		t.Error("HasCloseMatch() = false for a one-edit typo")
	}
	if HasCloseMatch("org.freedesktop.DBus", candidates, nil) {
		t.Error("HasCloseMatch() = true for an unrelated name")
	}
}

func TestFindSimilarEmptyCandidates(t *testing.T) {
	if got := FindSimilar("anything", nil, nil); len(got) != 0 {
		t.Errorf("FindSimilar() with no candidates = %v, want empty", got)
	}
}
