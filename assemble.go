package usemin

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// orderedSink collects fragments put in any order, and appends
// fragment i to its buffer only after fragments 0..i-1 were appended.
type orderedSink struct {
	mut    sync.Mutex
	frags  []string
	filled []bool
	next   int
	buf    strings.Builder
}

func newOrderedSink(n int) *orderedSink {
	return &orderedSink{
		frags:  make([]string, n),
		filled: make([]bool, n),
	}
}

// put fills slot i and flushes every filled slot following the last flushed one.
// It returns the number of slots flushed so far.
func (s *orderedSink) put(i int, frag string) int {
	s.mut.Lock()
	defer s.mut.Unlock()

	if s.filled[i] {
		panic(fmt.Errorf("slot %d filled twice", i))
	}
	s.frags[i] = frag
	s.filled[i] = true

	for s.next < len(s.frags) && s.filled[s.next] {
		s.buf.WriteString(s.frags[s.next])
		s.frags[s.next] = ""
		s.next++
	}

	return s.next
}

// String returns everything flushed so far
func (s *orderedSink) String() string {
	s.mut.Lock()
	defer s.mut.Unlock()
	return s.buf.String()
}

func (s *orderedSink) done() bool {
	s.mut.Lock()
	defer s.mut.Unlock()
	return s.next == len(s.frags)
}

// assemble resolves and processes every block concurrently,
// and returns the rewritten document with the de-duplicated block outputs,
// both in document order.
func (u *Usemin) assemble(ctx context.Context, pc ParseContext, sections []Section, m *Matcher) (string, []File, error) {
	sink := newOrderedSink(len(sections))
	outputs := make([][]File, len(sections))

	g, gctx := errgroup.WithContext(ctx)
	if u.options.jobs > 0 {
		g.SetLimit(u.options.jobs)
	}

	for i := range sections {
		i := i
		section := &sections[i]
		if section.Kind == SectionLiteral {
			sink.put(i, section.Text)
			continue
		}

		g.Go(func() error {
			frag, out, err := u.block(gctx, pc, section.Block, m)
			if err != nil {
				return err
			}
			outputs[i] = out
			sink.put(i, frag)
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		return "", nil, err
	}
	if !sink.done() {
		panic("unflushed sections after all blocks completed")
	}

	seen := make(Set)
	var files []File
	for i := range outputs {
		for j := range outputs[i] {
			f := outputs[i][j]
			if seen.Insert(f.Rel()) {
				continue
			}
			files = append(files, f)
		}
	}

	return sink.String(), files, nil
}

// block resolves, processes and renders a single block
func (u *Usemin) block(ctx context.Context, pc ParseContext, b *Block, m *Matcher) (string, []File, error) {
	if b.Remove {
		return "", nil, nil
	}

	files, err := Resolve(ctx, pc, b, m)
	if err != nil {
		return "", nil, err
	}
	out, _, err := u.execute(ctx, pc, b.PipelineID, b.OutputName, files)
	if err != nil {
		return "", nil, fmt.Errorf("%s: pipeline %s: %w", b.Marker, b.PipelineID, err)
	}

	var sb strings.Builder
	if b.Cond != nil {
		sb.WriteString(b.Cond.Start)
	}
	for _, ref := range references(pc, b, files, out) {
		sb.WriteString(b.Kind.Tag(ref))
	}
	if b.Cond != nil {
		sb.WriteString(b.Cond.End)
	}

	return sb.String(), out, nil
}

// execute runs files through the pipeline registered for id.
// If name is not empty, the files are concatenated into name before the pipeline proper.
func (u *Usemin) execute(ctx context.Context, pc ParseContext, id, name string, files []File) ([]File, bool, error) {
	var concat Stage
	if name != "" {
		concat = Concat(pc.OutputPath(name))
	}
	return u.options.Pipeline(id).Run(ctx, concat, files)
}

// references returns the reference paths rendered for a block.
//
// A named block gets one reference, its marker output path with the basename
// of the pipeline output. An unnamed block gets one reference per input,
// /-rooted at the input's base, with the basename of the matching pipeline output
// if the pipeline kept the file count.
func references(pc ParseContext, b *Block, in, out []File) []string {
	if b.OutputName != "" {
		target := pc.OutputPath(b.OutputName)
		if len(out) > 0 {
			target = out[0].Path
		}
		return []string{withBase(b.OutputPath, filepath.Base(target))}
	}

	refs := make([]string, len(in))
	for i := range in {
		ref := "/" + filepath.ToSlash(in[i].Rel())
		target := pc.OutputPath(ref)
		if len(out) == len(in) {
			target = out[i].Path
		}
		refs[i] = withBase(ref, filepath.Base(target))
	}
	return refs
}

// withBase replaces the last element of slash path ref with base
func withBase(ref, base string) string {
	i := strings.LastIndex(ref, "/")
	return ref[:i+1] + base
}
