package usemin

import (
	"io"
	"path/filepath"
)

// File is the unit moving between staging, resolution, pipelines and outputs.
//
// Path is usually absolute, with Base being the root Path was resolved from.
// Files created by usemin (concatenations, the rewritten document) have
// an empty Base and a Path relative to the document base.
//
// Stream is only ever set by callers feeding files from elsewhere,
// and usemin rejects such files with [UnsupportedInputError].
type File struct {
	Base   string
	Path   string
	Data   []byte
	Stream io.ReadCloser
}

// NewFile returns a materialized file without a base.
func NewFile(path string, data []byte) File {
	return File{Path: path, Data: data}
}

// Rel returns f.Path relative to f.Base, or f.Path if f has no base.
func (f File) Rel() string {
	if f.Base == "" {
		return f.Path
	}
	rel, err := filepath.Rel(f.Base, f.Path)
	if err != nil {
		return f.Path
	}
	return rel
}

func (f File) IsStream() bool { return f.Stream != nil }

func (f File) IsNull() bool { return f.Stream == nil && f.Data == nil }
