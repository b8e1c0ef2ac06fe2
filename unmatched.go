package usemin

import (
	"context"
	"fmt"
)

// Others runs staged files never matched by any block through the catch-all pipeline.
//
// It returns nil if there's no assets source, no catch-all pipeline, or no unmatched file.
// Others does not change what is considered matched, so calling it again yields the same files.
// A concatenated output name is placed like block outputs, see [ParseContext.OutputPath].
func (u *Usemin) Others(ctx context.Context) ([]File, error) {
	other, name, ok := u.options.Other()
	if !ok {
		return nil, nil
	}
	m, err := u.matcher(ctx)
	if err != nil {
		return nil, fmt.Errorf("staging assets: %w", err)
	}
	if m == nil {
		return nil, nil
	}

	rest := m.NotMatched()
	if len(rest) == 0 {
		return nil, nil
	}

	var concat Stage
	if name != "" {
		pc := ParseContext{OutputRelativePath: u.options.outputRelativePath}
		concat = Concat(pc.OutputPath(name))
	}
	out, _, err := other.Run(ctx, concat, rest)
	if err != nil {
		return nil, fmt.Errorf("catch-all pipeline: %w", err)
	}
	return out, nil
}
