package usemin

import (
	"fmt"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// PatternSet holds the absolute include and exclude globs
// declared by one asset reference inside a block.
type PatternSet struct {
	Src     string // Pattern as written in the reference, e.g. ['a/*.js','!a/b.js']
	Base    string // Root the patterns were resolved from
	Include []string
	Exclude []string
	Glob    bool // Some pattern has glob metacharacters
}

// Matcher matches pattern sets against a staged collection,
// remembering which staged files were never matched.
//
// The staged collection is read-only after construction,
// and notMatched only ever shrinks.
type Matcher struct {
	paths  []string
	byPath map[string]File

	mut        sync.Mutex
	notMatched []string
}

// NewMatcher stages files in the given order.
// A later file with a duplicate path replaces the earlier one but keeps its position.
func NewMatcher(files []File) *Matcher {
	m := &Matcher{
		paths:  make([]string, 0, len(files)),
		byPath: make(map[string]File, len(files)),
	}
	for i := range files {
		f := files[i]
		if _, ok := m.byPath[f.Path]; !ok {
			m.paths = append(m.paths, f.Path)
		}
		m.byPath[f.Path] = f
	}

	m.notMatched = make([]string, len(m.paths))
	copy(m.notMatched, m.paths)
	return m
}

// Paths returns all staged paths in staging order
func (m *Matcher) Paths() []string {
	paths := make([]string, len(m.paths))
	copy(paths, m.paths)
	return paths
}

// Match returns union(set.Include) - union(set.Exclude), and removes
// the returned files from the not-matched collection.
func (m *Matcher) Match(set PatternSet) ([]File, error) {
	m.mut.Lock()
	defer m.mut.Unlock()

	incs, err := m.union(set.Include)
	if err != nil {
		return nil, err
	}
	excs, err := m.union(set.Exclude)
	if err != nil {
		return nil, err
	}

	excluded := make(Set, len(excs))
	for _, p := range excs {
		excluded.Insert(p)
	}

	matched := make(Set, len(incs))
	files := make([]File, 0, len(incs))
	for _, p := range incs {
		if excluded.Contains(p) {
			continue
		}
		matched.Insert(p)
		files = append(files, m.byPath[p])
	}

	remaining := m.notMatched[:0]
	for _, p := range m.notMatched {
		if matched.Contains(p) {
			continue
		}
		remaining = append(remaining, p)
	}
	m.notMatched = remaining

	return files, nil
}

// NotMatched returns staged files never returned by [Matcher.Match]
func (m *Matcher) NotMatched() []File {
	m.mut.Lock()
	defer m.mut.Unlock()

	files := make([]File, len(m.notMatched))
	for i, p := range m.notMatched {
		files[i] = m.byPath[p]
	}
	return files
}

// union matches every pattern against the staged paths,
// keeping the order of the first pattern that matched a path.
func (m *Matcher) union(patterns []string) ([]string, error) {
	seen := make(Set)
	var union []string
	for _, pattern := range patterns {
		if !doublestar.ValidatePathPattern(pattern) {
			return nil, fmt.Errorf("bad pattern '%s': %w", pattern, doublestar.ErrBadPattern)
		}
		for _, p := range m.paths {
			ok, err := doublestar.PathMatch(pattern, p)
			if err != nil {
				return nil, fmt.Errorf("bad pattern '%s': %w", pattern, err)
			}
			if !ok || seen.Insert(p) {
				continue
			}
			union = append(union, p)
		}
	}
	return union, nil
}
