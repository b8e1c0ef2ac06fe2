package usemin

import (
	"bytes"
	"path/filepath"
	"sort"
)

// ManifestFile returns ${dst}/.usemin-files, listing every written output
func ManifestFile(dst string, written []OutputFile) (OutputFile, error) {
	list, err := ManifestText(dst, written)
	if err != nil {
		return OutputFile{}, err
	}
	return Output(filepath.Join(dst, Manifest), "", []byte(list), 0644), nil
}

// ManifestText returns outputs' targets relative to dst, sorted, one per line
func ManifestText(dst string, outputs []OutputFile) (string, error) {
	targets := make([]string, 0, len(outputs))
	for i := range outputs {
		rel, err := filepath.Rel(dst, outputs[i].target)
		if err != nil {
			return "", err
		}
		targets = append(targets, filepath.ToSlash(rel))
	}
	sort.Strings(targets)

	list := bytes.NewBuffer(nil)
	for _, t := range targets {
		Fprintf(list, "./%s\n", t)
	}
	return list.String(), nil
}
