package usemin

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type Set map[string]struct{}

func FileIs(f os.FileInfo, mode fs.FileMode) bool {
	return f.Mode()&mode != 0
}

func ChangeExt(path, old, new string) string {
	path = strings.TrimSuffix(path, old)
	return path + new
}

// Insert inserts v and reports whether v was already in s
func (s Set) Insert(v string) bool {
	_, ok := s[v]
	s[v] = struct{}{}
	return ok
}

func (s Set) Contains(items ...string) bool {
	for _, v := range items {
		_, ok := s[v]
		if !ok {
			return false
		}
	}
	return true
}

func Fprint(w io.Writer, data ...any) {
	_, err := fmt.Fprint(w, data...)
	if err != nil {
		panic(err)
	}
}

func Fprintf(w io.Writer, format string, data ...any) {
	_, err := fmt.Fprintf(w, format, data...)
	if err != nil {
		panic(err)
	}
}

func Fprintln(w io.Writer, data ...any) {
	_, err := fmt.Fprintln(w, data...)
	if err != nil {
		panic(err)
	}
}

func ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func Output(target string, originator string, data []byte, perm fs.FileMode) OutputFile {
	return OutputFile{
		target:     target,
		originator: originator,
		data:       data,
		perm:       perm,
	}
}

func (o *OutputFile) Target() string {
	return o.target
}

func (o *OutputFile) Originator() string {
	return o.originator
}

func (o *OutputFile) Data() []byte {
	return o.data
}

func (o *OutputFile) Perm() fs.FileMode {
	if o.perm == fs.FileMode(0) {
		return fs.ModePerm
	}
	return o.perm
}

// WriteOutSlice blocks and writes concurrently from writes to their output locations.
// Each written target is printed to log.
func WriteOutSlice(writes []OutputFile, concurrent int, log io.Writer) error {
	stream := make(chan OutputFile, len(writes))
	for i := range writes {
		stream <- writes[i]
	}
	close(stream)

	_, err := WriteOut(stream, concurrent, log)
	return err
}

// WriteOut blocks and concurrently writes outputs from stream until stream is closed.
// It returns metadata for all outputs written, without the data.
func WriteOut(stream <-chan OutputFile, concurrent int, log io.Writer) ([]OutputFile, error) {
	if concurrent == 0 {
		concurrent = 1
	}
	if log == nil {
		log = io.Discard
	}

	written := make([]OutputFile, 0) // No data, only metadata
	wg := new(sync.WaitGroup)
	errs := make(chan errorWrite)
	guard := make(chan struct{}, concurrent)
	mut := new(sync.Mutex)

	// Collect errors while writers are running,
	// so that a failing writer never blocks the others
	var wErrs []error
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for err := range errs {
			wErrs = append(wErrs, err)
		}
	}()

	for w := range stream {
		guard <- struct{}{}
		wg.Add(1)

		go func(w OutputFile) {
			defer func() {
				<-guard
				wg.Done()
			}()

			err := os.MkdirAll(filepath.Dir(w.target), os.ModePerm)
			if err != nil {
				errs <- errorWrite{
					err:        err,
					target:     w.target,
					originator: w.originator,
				}
				return
			}
			err = os.WriteFile(w.target, w.data, w.Perm())
			if err != nil {
				errs <- errorWrite{
					err:        err,
					target:     w.target,
					originator: w.originator,
				}
				return
			}

			mut.Lock()
			defer mut.Unlock()

			written = append(written, Output(w.target, w.originator, nil, w.perm))
			Fprintln(log, w.target)
		}(w)
	}

	wg.Wait()
	close(errs)
	<-collected

	if len(wErrs) > 0 {
		return nil, errors.Join(wErrs...)
	}

	return written, nil
}
