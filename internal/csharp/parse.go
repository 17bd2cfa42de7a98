package csharp

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"golang.org/x/sync/errgroup"
)

// parseFiles reads the declaration skeleton of every file. Files are
// parsed concurrently, each worker with its own tree-sitter parser;
// results keep the input order.
func (c *Compiler) parseFiles(ctx context.Context, files []Source) ([]*fileSyntax, error) {
	out := make([]*fileSyntax, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallelism)
	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			parser := sitter.NewParser()
			defer parser.Close()
			parser.SetLanguage(language())

			fs, err := readSyntax(ctx, parser, f.Path, f.Text, c.log)
			if err != nil {
				return err
			}
			out[i] = fs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
