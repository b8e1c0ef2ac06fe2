package usemin

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

func build(ctx context.Context, u *Usemin, o Outputs) ([]string, []OutputFile, error) {
	u.result = buildOutput{
		cacheOutput: u.options.caching,
		writer:      o,
	}
	err := filepath.WalkDir(u.Src, u.walk)
	if err != nil {
		return nil, nil, err
	}

	for _, path := range u.result.documents {
		data, err := ReadFile(path)
		if err != nil {
			return nil, nil, err
		}
		result, err := u.Process(ctx, Document{
			Base: u.Src,
			Path: path,
			Data: data,
		})
		if err != nil {
			return nil, nil, err
		}
		outputs, err := u.outputFiles(path, result.Files)
		if err != nil {
			return nil, nil, err
		}
		err = u.result.add(outputs...)
		if err != nil {
			return nil, nil, err
		}
	}

	others, err := u.Others(ctx)
	if err != nil {
		return nil, nil, err
	}
	outputs, err := u.outputFiles("", others)
	if err != nil {
		return nil, nil, err
	}
	err = u.result.add(outputs...)
	if err != nil {
		return nil, nil, err
	}

	return u.result.documents, u.result.cache, nil
}

// walk remembers every document under u.Src
func (u *Usemin) walk(path string, d fs.DirEntry, err error) error {
	if err != nil {
		return err
	}
	if path == u.Src {
		return nil
	}
	if d.IsDir() && path == u.Dst {
		return fs.SkipDir
	}

	ignore, err := shouldIgnore(u.ignores, path, filepath.Base(path), d)
	if ignore || err != nil {
		return err
	}
	ok, err := matchRel(u.Src, path, u.options.documents)
	if !ok || err != nil {
		return err
	}

	u.result.documents = append(u.result.documents, path)
	return nil
}

// outputFiles mirrors files under u.Dst.
// originator defaults to each file's own path.
func (u *Usemin) outputFiles(originator string, files []File) ([]OutputFile, error) {
	outputs := make([]OutputFile, 0, len(files))
	for i := range files {
		f := &files[i]
		if f.IsNull() {
			continue
		}

		rel := f.Rel()
		if filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, fmt.Errorf("output '%s' is outside of dst '%s'", f.Path, u.Dst)
		}

		from := originator
		if from == "" {
			from = f.Path
		}
		outputs = append(outputs, Output(filepath.Join(u.Dst, rel), from, f.Data, 0644))
	}
	return outputs, nil
}
