package apisurface

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/jward/apisurface/internal/csharp"
)

// readUnits loads the sources of every library, at most e.parallelism
// libraries at a time. Units keep the order of libs so binding stays
// deterministic.
func (e *Engine) readUnits(ctx context.Context, libs []*LibrarySource) ([]csharp.Unit, error) {
	units := make([]csharp.Unit, len(libs))
	if len(libs) == 0 {
		return units, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(min(e.parallelism, len(libs)))
	for i, lib := range libs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			u, err := lib.Unit()
			if err != nil {
				return &LibraryError{Library: lib.Name, Err: err}
			}
			units[i] = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return units, nil
}
