package usemin

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var (
	reArray     = regexp.MustCompile(`^\[.*\]$`)
	reArrayItem = regexp.MustCompile(`'((?:[^']|\\')*[^'\\])'`)
)

// ParseContext is everything resolution needs to know about one document.
// It is built once per document and never changed afterwards.
type ParseContext struct {
	BasePath string // Absolute root of the document tree
	MainDir  string // Absolute directory of the document
	MainName string // Base name of the document

	Path               string // Default asset source root, overrides MainDir
	AssetsDir          string // Re-roots resolved assets, relative to BasePath
	OutputRelativePath string // Prefix for emitted .js and .css outputs
}

// OutputPath returns the path, relative to BasePath, at which
// an output named name is emitted.
func (pc ParseContext) OutputPath(name string) string {
	ext := filepath.Ext(name)
	if pc.OutputRelativePath != "" && (ext == ".js" || ext == ".css") {
		return pc.OutputRelativePath + name
	}

	rel, err := filepath.Rel(pc.BasePath, pc.MainDir)
	if err != nil {
		rel = ""
	}
	return filepath.Join(rel, filepath.FromSlash(name))
}

// root returns the absolute directory patterns of a block are joined with
func (pc ParseContext) root(altRoot string) string {
	switch {
	case altRoot != "":
		return altRoot
	case pc.Path != "":
		return pc.Path
	}
	return pc.MainDir
}

// reroot moves p under AssetsDir, if set
func (pc ParseContext) reroot(p string) (string, error) {
	p, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	if pc.AssetsDir == "" {
		return p, nil
	}
	rel, err := filepath.Rel(pc.BasePath, p)
	if err != nil {
		return "", err
	}
	return filepath.Abs(filepath.Join(pc.AssetsDir, rel))
}

// ExtractPatterns scans the asset references of b, in document order,
// and resolves each into absolute globs.
func ExtractPatterns(pc ParseContext, b *Block) ([]PatternSet, error) {
	root := pc.root(b.AltRoot)
	base, err := pc.reroot(root)
	if err != nil {
		return nil, err
	}

	var sets []PatternSet
	for _, m := range b.Kind.tagRegexp().FindAllStringSubmatch(b.Assets, -1) {
		src := m[1]
		if src == "" {
			src = m[2]
		}

		patterns := []string{src}
		if reArray.MatchString(src) {
			patterns = patterns[:0]
			for _, item := range reArrayItem.FindAllStringSubmatch(src, -1) {
				patterns = append(patterns, item[1])
			}
		}

		set := PatternSet{Src: src, Base: base}
		for _, pattern := range patterns {
			exclude := strings.HasPrefix(pattern, "!")
			pattern = strings.TrimPrefix(pattern, "!")
			if strings.ContainsAny(pattern, "*?[{") {
				set.Glob = true
			}

			abs, err := pc.reroot(filepath.Join(root, filepath.FromSlash(pattern)))
			if err != nil {
				return nil, fmt.Errorf("pattern '%s' in %s: %w", src, b.Marker, err)
			}
			if exclude {
				set.Exclude = append(set.Exclude, abs)
				continue
			}
			set.Include = append(set.Include, abs)
		}

		sets = append(sets, set)
	}

	return sets, nil
}

// Resolve returns the files referenced by b, in reference order and
// de-duplicated by path.
//
// If m is nil, patterns are expanded against the filesystem and matches read from disk.
// Otherwise they are matched against m's staged collection.
func Resolve(ctx context.Context, pc ParseContext, b *Block, m *Matcher) ([]File, error) {
	sets, err := ExtractPatterns(pc, b)
	if err != nil {
		return nil, err
	}

	seen := make(Set)
	var files []File
	for i := range sets {
		set := &sets[i]

		var matched []File
		if m != nil {
			matched, err = m.Match(*set)
		} else {
			matched, err = glob(ctx, set)
		}
		if err != nil {
			return nil, fmt.Errorf("pattern '%s' in %s: %w", set.Src, b.Marker, err)
		}
		if len(matched) == 0 && !set.literalExclusions() {
			return nil, &UnresolvedPatternError{Pattern: set.Src, Marker: b.Marker}
		}

		for j := range matched {
			if seen.Insert(matched[j].Path) {
				continue
			}
			files = append(files, matched[j])
		}
	}

	return files, nil
}

// literalExclusions reports whether set only excludes files it names
// without wildcards, the one kind of pattern allowed to match nothing.
func (set *PatternSet) literalExclusions() bool {
	return len(set.Include) == 0 && !set.Glob
}

// glob expands set on disk and reads every match
func glob(ctx context.Context, set *PatternSet) ([]File, error) {
	expand := func(patterns []string) ([]string, error) {
		seen := make(Set)
		var union []string
		for _, pattern := range patterns {
			if !doublestar.ValidatePathPattern(pattern) {
				return nil, fmt.Errorf("bad pattern '%s': %w", pattern, doublestar.ErrBadPattern)
			}
			matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
			if err != nil {
				return nil, err
			}
			for _, match := range matches {
				if seen.Insert(match) {
					continue
				}
				union = append(union, match)
			}
		}
		return union, nil
	}

	incs, err := expand(set.Include)
	if err != nil {
		return nil, err
	}
	excs, err := expand(set.Exclude)
	if err != nil {
		return nil, err
	}

	excluded := make(Set, len(excs))
	for _, p := range excs {
		excluded.Insert(p)
	}

	files := make([]File, 0, len(incs))
	for _, p := range incs {
		if excluded.Contains(p) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := ReadFile(p)
		if err != nil {
			return nil, err
		}
		files = append(files, File{Base: set.Base, Path: p, Data: data})
	}

	return files, nil
}
