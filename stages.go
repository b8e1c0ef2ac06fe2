package usemin

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

const (
	HtmlFlags          = html.CommonFlags
	MarkdownExtensions = parser.CommonExtensions |
		parser.Mmark |
		parser.AutoHeadingIDs
)

// Names of built-in stages understood by [ParseStage]
const (
	StageIdentity = "identity"
	StageDecline  = "decline"
	StageMarkdown = "markdown"
	StageExt      = "ext:"  // ext:.old:.new
	StageExec     = "exec:" // exec:program arg1 arg2
)

// ToHtml converts md (Markdown) into HTML
func ToHtml(md []byte) []byte {
	root := markdown.Parse(md, parser.NewWithExtensions(MarkdownExtensions))
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: HtmlFlags,
	})
	return markdown.Render(root, renderer)
}

// Hooks returns a stage calling every hook on every file,
// feeding each hook the previous hook's output.
func Hooks(hooks ...Hook) Stage {
	return func(ctx context.Context, files []File) ([]File, error) {
		out := make([]File, len(files))
		for i := range files {
			f := files[i]
			for j, hook := range hooks {
				data, err := hook(f.Path, f.Data)
				if err != nil {
					return nil, fmt.Errorf("hooks[%d]: error when processing %s: %w", j, f.Path, err)
				}
				f.Data = data
			}
			out[i] = f
		}
		return out, nil
	}
}

// Markdown converts .md files to .html files. Other files pass through.
func Markdown() Stage {
	return func(_ context.Context, files []File) ([]File, error) {
		out := make([]File, len(files))
		for i := range files {
			f := files[i]
			if filepath.Ext(f.Path) == ".md" {
				f.Data = ToHtml(f.Data)
				f.Path = ChangeExt(f.Path, ".md", ".html")
			}
			out[i] = f
		}
		return out, nil
	}
}

// ChangeExtStage renames files with extension old to extension new
func ChangeExtStage(old, new string) Stage {
	return func(_ context.Context, files []File) ([]File, error) {
		out := make([]File, len(files))
		for i := range files {
			f := files[i]
			if filepath.Ext(f.Path) == old {
				f.Path = ChangeExt(f.Path, old, new)
			}
			out[i] = f
		}
		return out, nil
	}
}

// Command pipes every file through an external program,
// replacing the file contents with the program's stdout.
func Command(name string, args ...string) Stage {
	return func(ctx context.Context, files []File) ([]File, error) {
		out := make([]File, len(files))
		for i := range files {
			f := files[i]

			stdout, stderr := bytes.NewBuffer(nil), bytes.NewBuffer(nil)
			cmd := exec.CommandContext(ctx, name, args...)
			cmd.Stdin = bytes.NewReader(f.Data)
			cmd.Stdout = stdout
			cmd.Stderr = stderr

			err := cmd.Run()
			if err != nil {
				return nil, fmt.Errorf("command '%s' on %s: %w: %s", name, f.Path, err, strings.TrimSpace(stderr.String()))
			}

			f.Data = stdout.Bytes()
			out[i] = f
		}
		return out, nil
	}
}

// ParseStage returns the built-in stage described by def.
// identity and decline are not stages and must be handled by [ParsePipeline].
func ParseStage(def string) (Stage, error) {
	switch {
	case def == StageMarkdown:
		return Markdown(), nil

	case strings.HasPrefix(def, StageExt):
		exts := strings.Split(strings.TrimPrefix(def, StageExt), ":")
		if len(exts) != 2 || exts[0] == "" || exts[1] == "" {
			return nil, fmt.Errorf("bad stage '%s': expecting ext:.old:.new", def)
		}
		return ChangeExtStage(exts[0], exts[1]), nil

	case strings.HasPrefix(def, StageExec):
		fields := strings.Fields(strings.TrimPrefix(def, StageExec))
		if len(fields) == 0 {
			return nil, fmt.Errorf("bad stage '%s': missing command", def)
		}
		return Command(fields[0], fields[1:]...), nil
	}

	return nil, fmt.Errorf("unknown stage '%s'", def)
}

// ParsePipeline builds a pipeline from stage defs, as found in config files.
// An empty list or a lone "identity" gives [Identity], and a lone "decline" gives [Decline].
func ParsePipeline(defs []string) (Pipeline, error) {
	if len(defs) == 0 {
		return Identity(), nil
	}
	if len(defs) == 1 {
		switch defs[0] {
		case StageIdentity:
			return Identity(), nil
		case StageDecline:
			return Decline(), nil
		}
	}

	stages := make([]Stage, 0, len(defs))
	for i, def := range defs {
		switch def {
		case StageIdentity:
			continue
		case StageDecline:
			return Pipeline{}, fmt.Errorf("stages[%d]: decline cannot be chained", i)
		}

		stage, err := ParseStage(def)
		if err != nil {
			return Pipeline{}, fmt.Errorf("stages[%d]: %w", i, err)
		}
		stages = append(stages, stage)
	}

	return Stages(stages...), nil
}
