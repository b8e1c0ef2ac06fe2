package usemin

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

type (
	// Source feeds files to be staged in memory before any block is resolved.
	// Stage must call emit once per file and stop at the first error emit returns.
	Source interface {
		Stage(ctx context.Context, emit func(File) error) error
	}

	SourceFunc func(ctx context.Context, emit func(File) error) error
)

func (f SourceFunc) Stage(ctx context.Context, emit func(File) error) error {
	return f(ctx, emit)
}

// FilesSource stages files as given
func FilesSource(files ...File) Source {
	return SourceFunc(func(ctx context.Context, emit func(File) error) error {
		for i := range files {
			if err := emit(files[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// ChanSource stages files received from c until c is closed
func ChanSource(c <-chan File) Source {
	return SourceFunc(func(ctx context.Context, emit func(File) error) error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()

			case f, ok := <-c:
				if !ok {
					return nil
				}
				if err := emit(f); err != nil {
					return err
				}
			}
		}
	})
}

// DirSource stages files under root with root as their base.
// Hidden files, symlinks and paths ignored by root/.useminignore are skipped.
// If patterns are given, only files whose slash path relative to root
// matches one of them are staged.
func DirSource(root string, patterns ...string) Source {
	return SourceFunc(func(ctx context.Context, emit func(File) error) error {
		root, err := filepath.Abs(root)
		if err != nil {
			return err
		}
		ignores, err := ParseIgnore(filepath.Join(root, UseminIgnore))
		if err != nil {
			return err
		}
		ignoreRel := relIgnorer(root, ignores.Ignore)

		return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if path == root {
				return nil
			}

			ignore, err := shouldIgnore(ignoreRel, path, filepath.Base(path), d)
			if ignore || err != nil {
				return err
			}

			ok, err := matchRel(root, path, patterns)
			if !ok || err != nil {
				return err
			}

			data, err := ReadFile(path)
			if err != nil {
				return err
			}
			return emit(File{Base: root, Path: path, Data: data})
		})
	})
}

// stage drains src completely, absolutizing paths.
func stage(ctx context.Context, src Source) ([]File, error) {
	var files []File
	err := src.Stage(ctx, func(f File) error {
		if f.IsStream() {
			return &UnsupportedInputError{Path: f.Path}
		}

		var err error
		f.Base, err = filepath.Abs(f.Base)
		if err != nil {
			return err
		}
		f.Path, err = filepath.Abs(f.Path)
		if err != nil {
			return err
		}

		files = append(files, f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// matchRel reports whether path, relative to root, matches any of patterns.
// No patterns matches everything.
func matchRel(root, path string, patterns []string) (bool, error) {
	if len(patterns) == 0 {
		return true, nil
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false, err
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range patterns {
		ok, err := doublestar.Match(pattern, rel)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func shouldIgnore(ignoreFn func(path string) (ignored bool), path, base string, d fs.DirEntry) (bool, error) {
	isDot := strings.HasPrefix(base, ".")
	isDir := d.IsDir()

	switch {
	case isDot && isDir:
		return true, fs.SkipDir

	case isDir && ignoreFn(path):
		return true, fs.SkipDir

	case isDir:
		return true, nil

	case isDot:
		return true, nil

	case ignoreFn(path):
		return true, nil
	}

	// Ignore symlink
	stat, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}

	if FileIs(stat, os.ModeSymlink) {
		return true, nil
	}

	return false, nil
}

// relIgnorer calls ignore with paths relative to root
func relIgnorer(root string, ignore func(string) bool) func(string) bool {
	return func(path string) bool {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return false
		}
		return ignore(filepath.ToSlash(rel))
	}
}
