package usemin

import (
	"context"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
)

type (
	Option func(*Usemin)

	// Hook takes in a path and file data,
	// returning modified data. Hooks are chained with [Hooks].
	Hook func(path string, data []byte) (output []byte, err error)

	Options interface {
		Path() string
		AssetsDir() string
		OutputRelativePath() string
		Pipeline(id string) Pipeline
		Other() (p Pipeline, name string, ok bool)
		Documents() []string
		DebugStreamFiles() bool
		Caching() bool
		Writers() int
		Jobs() int
	}

	options struct {
		path               string
		assetsDir          string
		assets             Source
		outputRelativePath string
		pipelines          map[string]Pipeline
		other              *Pipeline
		othersName         string
		documents          []string
		debugStreamFiles   bool
		caching            bool
		writers            int
		jobs               int
		log                io.Writer
	}
)

func (o options) Path() string               { return o.path }
func (o options) AssetsDir() string          { return o.assetsDir }
func (o options) OutputRelativePath() string { return o.outputRelativePath }
func (o options) Documents() []string        { return o.documents }
func (o options) DebugStreamFiles() bool     { return o.debugStreamFiles }
func (o options) Caching() bool              { return o.caching }
func (o options) Writers() int               { return o.writers }
func (o options) Jobs() int                  { return o.jobs }

// Pipeline returns the pipeline registered for id, or [Identity]
func (o options) Pipeline(id string) Pipeline {
	p, ok := o.pipelines[id]
	if !ok {
		return Identity()
	}
	return p
}

func (o options) Other() (Pipeline, string, bool) {
	if o.other == nil {
		return Pipeline{}, "", false
	}
	return *o.other, o.othersName, true
}

// WritersFromEnv returns an option that sets the parallel writes
// to whatever [GetEnvWriters] returns
func WritersFromEnv() Option {
	return func(u *Usemin) {
		writes := GetEnvWriters()
		u.options.writers = int(writes)
	}
}

// GetEnvWriters returns ENV value for parallel writes,
// or default value if illgal or undefined
func GetEnvWriters() int {
	writesEnv := os.Getenv(WritersEnvKey)
	writes, err := strconv.ParseUint(writesEnv, 10, 32)
	if err == nil && writes != 0 {
		return int(writes)
	}

	return WritersDefault
}

// Caching allows outputs to be built and retained for later use.
func Caching(b bool) Option {
	return func(u *Usemin) { u.options.caching = b }
}

// Writers set the number of concurrent output writers.
func Writers(n uint) Option {
	return func(u *Usemin) { u.options.writers = int(n) }
}

// Jobs limits how many blocks of a document are resolved and processed at once.
// Zero means no limit.
func Jobs(n uint) Option {
	return func(u *Usemin) { u.options.jobs = int(n) }
}

// WithPath sets the default root asset patterns are resolved from,
// in place of the document's directory.
func WithPath(path string) Option {
	return func(u *Usemin) { u.options.path = path }
}

// WithAssetsDir re-roots every resolved asset path under dir.
func WithAssetsDir(dir string) Option {
	return func(u *Usemin) { u.options.assetsDir = dir }
}

// WithAssetsSource makes usemin match asset patterns against files staged
// from src instead of the filesystem.
func WithAssetsSource(src Source) Option {
	return func(u *Usemin) { u.options.assets = src }
}

// WithOutputRelativePath prefixes the path of emitted .js and .css outputs with p.
func WithOutputRelativePath(p string) Option {
	return func(u *Usemin) { u.options.outputRelativePath = p }
}

// WithOther sets the catch-all pipeline for staged files never matched by any block.
// If name is not empty, the files are concatenated into name first.
func WithOther(p Pipeline, name string) Option {
	return func(u *Usemin) {
		u.options.other = &p
		u.options.othersName = name
	}
}

// WithDocuments sets the glob patterns, relative to Src, of documents processed by [Usemin.Build].
func WithDocuments(patterns ...string) Option {
	return func(u *Usemin) { u.options.documents = patterns }
}

// DebugStreamFiles prints every staged file once staging is done.
func DebugStreamFiles(b bool) Option {
	return func(u *Usemin) { u.options.debugStreamFiles = b }
}

// WithLog sets where progress and debug lines are written.
func WithLog(w io.Writer) Option {
	return func(u *Usemin) { u.options.log = w }
}

// WithPipeline registers pipeline p for block id.
//
// p can be of type Pipeline, Stage, CustomFunc, or their underlying func types.
// A nil p registers [Decline].
func WithPipeline(id string, p any) Option {
	return func(u *Usemin) {
		if u.options.pipelines == nil {
			u.options.pipelines = make(map[string]Pipeline)
		}
		u.options.pipelines[id] = toPipeline(id, p)
	}
}

// WithPipelines registers every pipeline in m, keyed by block id.
func WithPipelines(m map[string]Pipeline) Option {
	return func(u *Usemin) {
		for id, p := range m {
			WithPipeline(id, p)(u)
		}
	}
}

func toPipeline(id string, p any) Pipeline {
	switch pipe := p.(type) {
	case nil:
		return Decline()

	case Pipeline:
		return pipe

	case Stage:
		return Stages(pipe)

	case func(context.Context, []File) ([]File, error):
		return Stages(pipe)

	case CustomFunc:
		return Custom(pipe)

	case func(context.Context, []File, Stage) ([]File, error):
		return Custom(pipe)

	default:
		panic(fmt.Errorf("unexpected pipeline '%s' type '%s'", id, reflect.TypeOf(p).String()))
	}
}
