package usemin

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	ignore "github.com/sabhiram/go-gitignore"
)

const (
	UseminIgnore = ".useminignore"
	Manifest     = ".usemin-files"

	WritersEnvKey      = "USEMIN_WRITERS"
	WritersDefault int = 20

	DocumentsDefault = "**/*.html"
)

type Usemin struct {
	Src string
	Dst string

	options options

	ignores func(path string) (ignore bool)
	staging staging
	result  buildOutput
}

// staging holds the staged collection, built at most once per Usemin
type staging struct {
	once    sync.Once
	matcher *Matcher
	err     error
}

// Document is an HTML document to be processed.
// Base is the root of the document tree, used to compute output paths.
type Document struct {
	Base   string
	Path   string
	Data   []byte
	Stream io.ReadCloser
}

// Result is a processed document
type Result struct {
	HTML  string
	Files []File // Block outputs followed by outputs of the html pipeline
}

func (u *Usemin) Options() Options { return u.options }

// Outputs returns the outputs of the last build, if built with [Caching]
func (u *Usemin) Outputs() []OutputFile { return u.result.cache }

// New returns a default [Usemin] that builds documents under src into dst.
// dst may be empty if u is only used to [Usemin.Process] documents.
func New(src, dst string) *Usemin {
	src = filepath.Clean(src)
	if dst != "" {
		dst = filepath.Clean(dst)
	}
	ignores, err := prepare(src, dst)
	if err != nil {
		panic(err)
	}
	return &Usemin{
		Src:     src,
		Dst:     dst,
		ignores: relIgnorer(src, ignores.Ignore),
		options: options{
			documents: []string{DocumentsDefault},
			writers:   WritersDefault,
			log:       os.Stdout,
		},
	}
}

func NewWithOptions(src, dst string, opts ...Option) *Usemin {
	u := New(src, dst)
	return u.With(opts...)
}

// Generate writes everything built from src to dst.
// It creates a one-off [Usemin] that's used to generate right away.
func Generate(ctx context.Context, src, dst string, opts ...Option) error {
	return generate(ctx, NewWithOptions(src, dst, opts...))
}

// Build processes every document under u.Src, then the unmatched staged files.
// If outputs is non-nil, every output file is also added to outputs.
func (u *Usemin) Build(ctx context.Context, outputs Outputs) ([]string, []OutputFile, error) {
	return build(ctx, u, outputs)
}

// Generate builds from u.Src and writes the outputs to u.Dst
func (u *Usemin) Generate(ctx context.Context) error {
	return generate(ctx, u)
}

// With applies opts to u sequentially
func (u *Usemin) With(opts ...Option) *Usemin {
	for i := range opts {
		opts[i](u)
	}
	return u
}

func (u *Usemin) Ignore(path string) bool {
	return u.ignores(path)
}

// Process rewrites doc, returning the new HTML and every file produced.
//
// A document without data is passed through unchanged.
// Any error aborts the whole document, and no partial result is returned.
func (u *Usemin) Process(ctx context.Context, doc Document) (Result, error) {
	if doc.Stream != nil {
		return Result{}, &UnsupportedInputError{Path: doc.Path}
	}
	if doc.Data == nil {
		return Result{Files: []File{{Base: doc.Base, Path: doc.Path}}}, nil
	}

	pc, err := u.parseContext(doc)
	if err != nil {
		return Result{}, err
	}
	sections, err := Parse(string(doc.Data))
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", doc.Path, err)
	}
	m, err := u.matcher(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("staging assets: %w", err)
	}

	html, files, err := u.assemble(ctx, pc, sections, m)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", doc.Path, err)
	}

	main := NewFile(pc.OutputPath(pc.MainName), []byte(html))
	out, _, err := u.execute(ctx, pc, PipelineHTML, pc.MainName, []File{main})
	if err != nil {
		return Result{}, fmt.Errorf("%s: pipeline %s: %w", doc.Path, PipelineHTML, err)
	}

	return Result{HTML: html, Files: append(files, out...)}, nil
}

func (u *Usemin) parseContext(doc Document) (ParseContext, error) {
	base, err := filepath.Abs(doc.Base)
	if err != nil {
		return ParseContext{}, err
	}
	path, err := filepath.Abs(doc.Path)
	if err != nil {
		return ParseContext{}, err
	}
	return ParseContext{
		BasePath:           base,
		MainDir:            filepath.Dir(path),
		MainName:           filepath.Base(path),
		Path:               u.options.path,
		AssetsDir:          u.options.assetsDir,
		OutputRelativePath: u.options.outputRelativePath,
	}, nil
}

// matcher stages the assets source on first call, and returns nil if there's none.
// No block is resolved before staging completes.
func (u *Usemin) matcher(ctx context.Context) (*Matcher, error) {
	if u.options.assets == nil {
		return nil, nil
	}

	u.staging.once.Do(func() {
		files, err := stage(ctx, u.options.assets)
		if err != nil {
			u.staging.err = err
			return
		}
		if u.options.debugStreamFiles {
			u.dumpStaged(files)
		}
		u.staging.matcher = NewMatcher(files)
	})

	return u.staging.matcher, u.staging.err
}

func (u *Usemin) dumpStaged(files []File) {
	Fprintln(u.log(), "[usemin-go] assets:")
	for i := range files {
		Fprintf(u.log(), " %s :: %s\n", files[i].Base, files[i].Path)
	}
}

func (u *Usemin) log() io.Writer {
	if u.options.log == nil {
		return io.Discard
	}
	return u.options.log
}

func (u *Usemin) pront(l int) {
	Fprintf(u.log(), "[usemin-go] wrote %d file(s) to %s\n", l, u.Dst)
}

func prepare(src, dst string) (*gitIgnorer, error) {
	if src == "" {
		return nil, fmt.Errorf("empty src")
	}
	if src == dst {
		return nil, fmt.Errorf("src is identical to dst: '%s'", src)
	}

	return ParseIgnore(filepath.Join(src, UseminIgnore))
}

func ParseIgnore(path string) (*gitIgnorer, error) {
	ignores, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse useminignore at %s: %w", path, err)
	}

	return &gitIgnorer{GitIgnore: ignores}, nil
}

type gitIgnorer struct {
	*ignore.GitIgnore
}

func (i *gitIgnorer) Ignore(path string) bool {
	if i == nil {
		return false
	}
	if i.GitIgnore == nil {
		return false
	}
	return i.MatchesPath(path)
}
