package usemin

import (
	"context"
	"fmt"
	"os"
	"sync"
)

func generate(ctx context.Context, u *Usemin) error {
	const bufferMultiplier = 2
	if u.Dst == "" {
		return fmt.Errorf("empty dst")
	}
	_, err := os.Stat(u.Src)
	if err != nil {
		return fmt.Errorf("failed to stat src '%s': %w", u.Src, err)
	}

	stream := make(chan OutputFile, u.options.writers*bufferMultiplier)
	outputs := NewOutputsStreaming(stream)

	var wg sync.WaitGroup
	wg.Add(2)
	var errBuild error
	go func() {
		defer func() {
			close(stream)
			wg.Done()
		}()

		_, _, err := u.Build(ctx, outputs)
		if err != nil {
			errBuild = err
		}
	}()

	var written []OutputFile
	var errWrites error
	go func() {
		defer wg.Done()
		var err error

		written, err = WriteOut(stream, u.options.writers, u.log())
		if err != nil {
			errWrites = err
		}
	}()

	wg.Wait()

	if errBuild != nil && errWrites != nil {
		return fmt.Errorf("streaming_build_error='%w', streaming_write_error='%s'", errBuild, errWrites)
	}
	if errBuild != nil {
		return fmt.Errorf("streaming_build_error: %w", errBuild)
	}
	if errWrites != nil {
		return fmt.Errorf("streaming_write_error: %w", errWrites)
	}

	manifest, err := ManifestFile(u.Dst, written)
	if err != nil {
		return err
	}
	err = WriteOutSlice([]OutputFile{manifest}, 1, u.log())
	if err != nil {
		return err
	}
	u.pront(len(written) + 1)
	return nil
}
