package usemin

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func testFiles(paths ...string) []File {
	files := make([]File, len(paths))
	for i, p := range paths {
		files[i] = NewFile(p, []byte(strings.ToUpper(p)))
	}
	return files
}

func TestPipelineRun(t *testing.T) {
	ctx := context.Background()
	upper := Hooks(func(path string, data []byte) ([]byte, error) {
		return bytes.ToUpper(data), nil
	})
	suffix := func(s string) Stage {
		return Hooks(func(path string, data []byte) ([]byte, error) {
			return append(data, s...), nil
		})
	}

	t.Run("identity", func(t *testing.T) {
		out, ok, err := Identity().Run(ctx, nil, testFiles("a.js", "b.js"))
		if err != nil || !ok {
			t.Fatalf("unexpected result ok=%v err=%v", ok, err)
		}
		if len(out) != 2 || out[0].Path != "a.js" || out[1].Path != "b.js" {
			t.Fatalf("unexpected output %+v", out)
		}

		out, _, err = Identity().Run(ctx, Concat("js/app.js"), testFiles("a.js", "b.js"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(out) != 1 || out[0].Path != "js/app.js" {
			t.Fatalf("unexpected output %+v", out)
		}
		if expected := "A.JS" + EOL + "B.JS"; string(out[0].Data) != expected {
			t.Fatalf("unexpected concatenation %q, expecting %q", out[0].Data, expected)
		}
	})

	t.Run("stages in order", func(t *testing.T) {
		files := []File{NewFile("a.js", []byte("a")), NewFile("b.js", []byte("b"))}
		p := Stages(suffix("1"), upper, suffix("2"))

		out, ok, err := p.Run(ctx, Concat("app.js"), files)
		if err != nil || !ok {
			t.Fatalf("unexpected result ok=%v err=%v", ok, err)
		}
		if expected := "A" + EOL + "B12"; string(out[0].Data) != expected {
			t.Fatalf("unexpected data %q, expecting %q", out[0].Data, expected)
		}
	})

	t.Run("custom", func(t *testing.T) {
		var called bool
		p := Custom(func(ctx context.Context, files []File, concat Stage) ([]File, error) {
			called = true
			if len(files) != 2 {
				t.Fatalf("custom pipeline got concatenated files %+v", files)
			}
			if concat == nil {
				t.Fatalf("custom pipeline got no concat stage")
			}
			return files[:1], nil
		})

		out, ok, err := p.Run(ctx, Concat("app.js"), testFiles("a.js", "b.js"))
		if err != nil || !ok || !called {
			t.Fatalf("unexpected result ok=%v called=%v err=%v", ok, called, err)
		}
		if len(out) != 1 || out[0].Path != "a.js" {
			t.Fatalf("unexpected output %+v", out)
		}
	})

	t.Run("decline", func(t *testing.T) {
		out, ok, err := Decline().Run(ctx, Concat("app.js"), testFiles("a.js"))
		if err != nil || ok || out != nil {
			t.Fatalf("unexpected result out=%+v ok=%v err=%v", out, ok, err)
		}
	})

	t.Run("stage error", func(t *testing.T) {
		errStage := errors.New("stage failed")
		p := Stages(upper, func(context.Context, []File) ([]File, error) { return nil, errStage })

		_, _, err := p.Run(ctx, nil, testFiles("a.js"))
		if !errors.Is(err, errStage) {
			t.Fatalf("unexpected error %v", err)
		}
		if !strings.Contains(err.Error(), "stages[1]") {
			t.Fatalf("error does not name the failed stage: %v", err)
		}
	})
}

func TestStages(t *testing.T) {
	ctx := context.Background()

	t.Run("markdown", func(t *testing.T) {
		out, err := Markdown()(ctx, []File{
			NewFile("doc/readme.md", []byte("# Hello")),
			NewFile("js/a.js", []byte("a")),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out[0].Path != "doc/readme.html" || !strings.Contains(string(out[0].Data), "<h1") {
			t.Fatalf("unexpected markdown output %s: %q", out[0].Path, out[0].Data)
		}
		if out[1].Path != "js/a.js" || string(out[1].Data) != "a" {
			t.Fatalf("non-markdown file changed: %+v", out[1])
		}
	})

	t.Run("ext", func(t *testing.T) {
		out, err := ChangeExtStage(".css", ".min.css")(ctx, testFiles("css/a.css", "css/b.less"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out[0].Path != "css/a.min.css" || out[1].Path != "css/b.less" {
			t.Fatalf("unexpected paths %s, %s", out[0].Path, out[1].Path)
		}
	})

	t.Run("hooks error", func(t *testing.T) {
		errHook := errors.New("hook failed")
		_, err := Hooks(func(string, []byte) ([]byte, error) { return nil, errHook })(ctx, testFiles("a.js"))
		if !errors.Is(err, errHook) {
			t.Fatalf("unexpected error %v", err)
		}
	})
}

func TestParsePipeline(t *testing.T) {
	type testCase struct {
		defs     []string
		expected string
		err      bool
	}

	tests := []testCase{
		{defs: nil, expected: "identity"},
		{defs: []string{"identity"}, expected: "identity"},
		{defs: []string{"decline"}, expected: "decline"},
		{defs: []string{"markdown", "ext:.html:.htm"}, expected: "stages(2)"},
		{defs: []string{"identity", "exec:cat"}, expected: "stages(1)"},
		{defs: []string{"markdown", "decline"}, err: true},
		{defs: []string{"ext:.js"}, err: true},
		{defs: []string{"exec:"}, err: true},
		{defs: []string{"uglify"}, err: true},
	}

	for i := range tests {
		tc := &tests[i]
		p, err := ParsePipeline(tc.defs)
		if tc.err {
			if err == nil {
				t.Fatalf("case %d: unexpected nil error for %v", i+1, tc.defs)
			}
			continue
		}
		if err != nil {
			t.Fatalf("case %d: unexpected error: %v", i+1, err)
		}
		if p.String() != tc.expected {
			t.Fatalf("case %d: unexpected pipeline '%s', expecting '%s'", i+1, p.String(), tc.expected)
		}
	}
}
