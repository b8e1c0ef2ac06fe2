package usemin_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/soyart/usemin-go"
)

func write(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, data := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func read(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error reading %s: %v", path, err)
	}
	return string(b)
}

const indexHTML = `<html>
<head>
<!-- build:js /js/app.js -->
<script src="js/a.js"></script>
<script src="js/b.js"></script>
<!-- endbuild -->
</head>
</html>
`

func TestProcessStaged(t *testing.T) {
	base := t.TempDir()
	staged := []usemin.File{
		{Base: base, Path: filepath.Join(base, "js", "a.js"), Data: []byte("A")},
		{Base: base, Path: filepath.Join(base, "js", "b.js"), Data: []byte("B")},
		{Base: base, Path: filepath.Join(base, "img", "logo.png"), Data: []byte("PNG")},
	}

	u := usemin.NewWithOptions(base, "",
		usemin.WithLog(nil),
		usemin.WithAssetsSource(usemin.FilesSource(staged...)),
		usemin.WithOther(usemin.Identity(), ""),
	)

	result, err := u.Process(context.Background(), usemin.Document{
		Base: base,
		Path: filepath.Join(base, "index.html"),
		Data: []byte(indexHTML),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.HTML, `<script src="/js/app.js"></script>`) {
		t.Fatalf("unexpected html:\n%s", result.HTML)
	}
	if len(result.Files) != 2 || string(result.Files[0].Data) != "A"+usemin.EOL+"B" {
		t.Fatalf("unexpected files %+v", result.Files)
	}

	for i := 0; i < 2; i++ {
		others, err := u.Others(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(others) != 1 || filepath.ToSlash(others[0].Rel()) != "img/logo.png" {
			t.Fatalf("call %d: unexpected unmatched files %+v", i+1, others)
		}
	}
}

func TestProcessStreams(t *testing.T) {
	base := t.TempDir()
	stream := func() io.ReadCloser { return io.NopCloser(bytes.NewBufferString("x")) }

	u := usemin.NewWithOptions(base, "", usemin.WithLog(nil))
	_, err := u.Process(context.Background(), usemin.Document{
		Base:   base,
		Path:   filepath.Join(base, "index.html"),
		Stream: stream(),
	})
	if !errors.Is(err, usemin.ErrUnsupportedInput) {
		t.Fatalf("unexpected error %v", err)
	}

	staged := usemin.File{Base: base, Path: filepath.Join(base, "js", "a.js"), Stream: stream()}
	u = usemin.NewWithOptions(base, "",
		usemin.WithLog(nil),
		usemin.WithAssetsSource(usemin.FilesSource(staged)),
	)
	_, err = u.Process(context.Background(), usemin.Document{
		Base: base,
		Path: filepath.Join(base, "index.html"),
		Data: []byte(indexHTML),
	})
	var errUnsupported *usemin.UnsupportedInputError
	if !errors.As(err, &errUnsupported) {
		t.Fatalf("unexpected error %v", err)
	}
	if errUnsupported.Path != staged.Path {
		t.Fatalf("unexpected path '%s'", errUnsupported.Path)
	}
}

func TestProcessNull(t *testing.T) {
	base := t.TempDir()
	u := usemin.NewWithOptions(base, "", usemin.WithLog(nil))
	result, err := u.Process(context.Background(), usemin.Document{
		Base: base,
		Path: filepath.Join(base, "index.html"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Files) != 1 || !result.Files[0].IsNull() {
		t.Fatalf("null document not passed through: %+v", result.Files)
	}
}

func TestGenerate(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "dist")
	write(t, src, map[string]string{
		"index.html":         indexHTML,
		"js/a.js":            "A",
		"js/b.js":            "B",
		".useminignore":      "drafts\n",
		"drafts/broken.html": "<!-- build:js x.js -->",
	})

	err := usemin.Generate(context.Background(), src, dst, usemin.WithLog(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	html := read(t, filepath.Join(dst, "index.html"))
	if !strings.Contains(html, `<script src="/js/app.js"></script>`) || strings.Contains(html, "build:") {
		t.Fatalf("unexpected html:\n%s", html)
	}
	if js := read(t, filepath.Join(dst, "js", "app.js")); js != "A"+usemin.EOL+"B" {
		t.Fatalf("unexpected app.js %q", js)
	}
	if _, err := os.Stat(filepath.Join(dst, "drafts")); !os.IsNotExist(err) {
		t.Fatalf("ignored documents were built: %v", err)
	}

	expected := "./index.html\n./js/app.js\n"
	if manifest := read(t, filepath.Join(dst, usemin.Manifest)); manifest != expected {
		t.Fatalf("unexpected manifest %q, expecting %q", manifest, expected)
	}
}

func TestGenerateStaged(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "dist")
	write(t, src, map[string]string{
		"index.html":   indexHTML,
		"js/a.js":      "A",
		"js/b.js":      "B",
		"img/logo.png": "PNG",
	})

	u := usemin.NewWithOptions(src, dst,
		usemin.WithLog(nil),
		usemin.Caching(true),
		usemin.WithAssetsSource(usemin.DirSource(src, "js/**", "img/**")),
		usemin.WithOther(usemin.Identity(), ""),
	)
	err := u.Generate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cached := u.Outputs(); len(cached) != 3 {
		t.Fatalf("unexpected cached outputs %+v", cached)
	}
	if logo := read(t, filepath.Join(dst, "img", "logo.png")); logo != "PNG" {
		t.Fatalf("unexpected logo %q", logo)
	}
	if _, err := os.Stat(filepath.Join(dst, "js", "a.js")); !os.IsNotExist(err) {
		t.Fatalf("matched asset was copied as is: %v", err)
	}

	expected := "./img/logo.png\n./index.html\n./js/app.js\n"
	if manifest := read(t, filepath.Join(dst, usemin.Manifest)); manifest != expected {
		t.Fatalf("unexpected manifest %q, expecting %q", manifest, expected)
	}
}

func TestGenerateParseError(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "dist")
	write(t, src, map[string]string{
		"index.html": "<!-- build:js app.js --><script src=\"js/a.js\"></script>",
	})

	err := usemin.Generate(context.Background(), src, dst, usemin.WithLog(nil))
	if !errors.Is(err, usemin.ErrParse) {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestOthersConcat(t *testing.T) {
	base := t.TempDir()
	staged := []usemin.File{
		{Base: base, Path: filepath.Join(base, "js", "a.js"), Data: []byte("A")},
		{Base: base, Path: filepath.Join(base, "js", "b.js"), Data: []byte("B")},
	}

	type testCase struct {
		name     string
		prefix   string
		expected string
	}

	tests := []testCase{
		{name: "rest.js", prefix: "static/", expected: "static/rest.js"},
		{name: "rest.txt", prefix: "static/", expected: "rest.txt"},
		{name: "js/rest.js", expected: "js/rest.js"},
	}

	for i := range tests {
		tc := &tests[i]
		u := usemin.NewWithOptions(base, "",
			usemin.WithLog(nil),
			usemin.WithAssetsSource(usemin.FilesSource(staged...)),
			usemin.WithOutputRelativePath(tc.prefix),
			usemin.WithOther(usemin.Identity(), tc.name),
		)

		others, err := u.Others(context.Background())
		if err != nil {
			t.Fatalf("case %d: unexpected error: %v", i+1, err)
		}
		if len(others) != 1 {
			t.Fatalf("case %d: unexpected files %+v", i+1, others)
		}
		if actual := filepath.ToSlash(others[0].Path); actual != tc.expected {
			t.Fatalf("case %d: unexpected path '%s', expecting '%s'", i+1, actual, tc.expected)
		}
		if string(others[0].Data) != "A"+usemin.EOL+"B" {
			t.Fatalf("case %d: unexpected data %q", i+1, others[0].Data)
		}
	}
}

func TestGenerateSharedOutputs(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "dist")
	write(t, src, map[string]string{
		"index.html": indexHTML,
		"about.html": indexHTML,
		"js/a.js":    "A",
		"js/b.js":    "B",
	})

	err := usemin.Generate(context.Background(), src, dst, usemin.WithLog(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := "./about.html\n./index.html\n./js/app.js\n"
	if manifest := read(t, filepath.Join(dst, usemin.Manifest)); manifest != expected {
		t.Fatalf("unexpected manifest %q, expecting %q", manifest, expected)
	}
}

func TestGenerateConflictingOutputs(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "dist")
	write(t, src, map[string]string{
		"index.html": indexHTML,
		"about.html": `<!-- build:js /js/app.js --><script src="js/a.js"></script><!-- endbuild -->`,
		"js/a.js":    "A",
		"js/b.js":    "B",
	})

	err := usemin.Generate(context.Background(), src, dst, usemin.WithLog(nil))
	if err == nil || !strings.Contains(err.Error(), "conflicting outputs") {
		t.Fatalf("unexpected error %v", err)
	}
}
