package usemin

import (
	"bytes"
	"context"
	"fmt"
	"runtime"
)

type (
	// Stage transforms an ordered sequence of files into another.
	Stage func(ctx context.Context, files []File) ([]File, error)

	// CustomFunc receives the raw files of a block together with the block's
	// concatenation stage, which is nil if the block has no output name.
	// It is responsible for concatenating if it wants to.
	CustomFunc func(ctx context.Context, files []File, concat Stage) ([]File, error)

	// Pipeline is what a block's files go through.
	// Pipelines are built with [Identity], [Stages], [Custom] and [Decline].
	Pipeline struct {
		kind   pipelineKind
		stages []Stage
		custom CustomFunc
	}

	pipelineKind uint8
)

const (
	pipelineIdentity pipelineKind = iota
	pipelineStages
	pipelineCustom
	pipelineDecline
)

// EOL separates concatenated file contents
var EOL = eol()

func eol() string {
	if runtime.GOOS == "windows" {
		return "\r\n"
	}
	return "\n"
}

// Identity passes files through, concatenated first if the block is named.
// It is the pipeline of every id without a registered pipeline.
func Identity() Pipeline { return Pipeline{kind: pipelineIdentity} }

// Stages chains stages after the block's concatenation, if any.
func Stages(stages ...Stage) Pipeline {
	return Pipeline{kind: pipelineStages, stages: stages}
}

// Custom hands the raw files and the concatenation stage to fn.
func Custom(fn CustomFunc) Pipeline {
	return Pipeline{kind: pipelineCustom, custom: fn}
}

// Decline never runs and produces no output.
func Decline() Pipeline { return Pipeline{kind: pipelineDecline} }

func (p Pipeline) Declines() bool { return p.kind == pipelineDecline }

func (p Pipeline) String() string {
	switch p.kind {
	case pipelineStages:
		return fmt.Sprintf("stages(%d)", len(p.stages))
	case pipelineCustom:
		return "custom"
	case pipelineDecline:
		return "decline"
	}
	return "identity"
}

// Run feeds files to p. concat is the block's concatenation stage,
// or nil if the block is unnamed.
// ok is false if the pipeline declined to run.
func (p Pipeline) Run(ctx context.Context, concat Stage, files []File) (out []File, ok bool, err error) {
	switch p.kind {
	case pipelineDecline:
		return nil, false, nil

	case pipelineCustom:
		out, err = p.custom(ctx, files, concat)
		if err != nil {
			return nil, true, fmt.Errorf("custom pipeline: %w", err)
		}
		return out, true, nil
	}

	out = files
	if concat != nil {
		out, err = concat(ctx, out)
		if err != nil {
			return nil, true, fmt.Errorf("concat: %w", err)
		}
	}

	for i, stage := range p.stages {
		out, err = stage(ctx, out)
		if err != nil {
			return nil, true, fmt.Errorf("stages[%d]: %w", i, err)
		}
	}

	return out, true, nil
}

// Concat returns a stage joining the contents of all files,
// in order and separated by [EOL], into a single file at path.
func Concat(path string) Stage {
	return func(_ context.Context, files []File) ([]File, error) {
		buf := bytes.NewBuffer(nil)
		for i := range files {
			if i > 0 {
				buf.WriteString(EOL)
			}
			buf.Write(files[i].Data)
		}
		return []File{NewFile(path, buf.Bytes())}, nil
	}
}
