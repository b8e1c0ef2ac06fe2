package usemin

import (
	"crypto/sha256"
	"fmt"
	"io/fs"
)

// OutputFile is a file to be written under Dst.
//
// Its values are not supposed to be changed by other packages,
// and thus the only ways other packages can work with OutputFile
// is via the constructor [Output] and the type's getter methods.
type OutputFile struct {
	target     string
	originator string
	data       []byte
	perm       fs.FileMode
}

// Outputs receives output files as a build produces them,
// e.g. a channel drained by [WriteOut] (see [NewOutputsStreaming]).
type Outputs interface {
	Add(...OutputFile)
}

type outputsStreaming struct {
	stream chan<- OutputFile
}

func NewOutputsStreaming(c chan<- OutputFile) Outputs {
	return outputsStreaming{stream: c}
}

func (o outputsStreaming) Add(outputs ...OutputFile) {
	for i := range outputs {
		o.stream <- outputs[i]
	}
}

// buildOutput tracks the documents and outputs of one build.
//
// Documents referencing the same block output produce the same target
// more than once. Each target is forwarded at most once, and a target
// produced again with different contents is a conflict.
type buildOutput struct {
	cacheOutput bool
	writer      Outputs
	documents   []string     // Documents found under Src
	cache       []OutputFile // Forwarded outputs, if cacheOutput
	targets     map[string]emitted
}

type emitted struct {
	originator string
	sum        [sha256.Size]byte
}

func (b *buildOutput) add(outputs ...OutputFile) error {
	if b.targets == nil {
		b.targets = make(map[string]emitted)
	}

	fresh := make([]OutputFile, 0, len(outputs))
	for i := range outputs {
		o := &outputs[i]
		sum := sha256.Sum256(o.data)

		prev, ok := b.targets[o.target]
		if !ok {
			b.targets[o.target] = emitted{originator: o.originator, sum: sum}
			fresh = append(fresh, *o)
			continue
		}
		if prev.sum != sum {
			return fmt.Errorf("conflicting outputs for '%s' from '%s' and '%s'", o.target, prev.originator, o.originator)
		}
	}

	if b.cacheOutput {
		b.cache = append(b.cache, fresh...)
	}
	if b.writer != nil && len(fresh) != 0 {
		b.writer.Add(fresh...)
	}
	return nil
}
