package config

import (
	"strings"

	"github.com/gobwas/glob"
)

// NameMatcher matches C function names against a set of glob patterns.
type NameMatcher struct {
	globs    []glob.Glob
	patterns []string
}

// CompileNames compiles the patterns. A name matches when any of them
// matches.
func CompileNames(patterns ...string) (*NameMatcher, error) {
	m := &NameMatcher{patterns: patterns}
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, err
		}
		m.globs = append(m.globs, g)
	}
	return m, nil
}

func (m *NameMatcher) Match(name string) bool {
	if m == nil {
		return false
	}
	for _, g := range m.globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

func (m *NameMatcher) String() string {
	return strings.Join(m.patterns, ", ")
}
