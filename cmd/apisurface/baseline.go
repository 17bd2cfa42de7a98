package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hbollon/go-edlib"
	"github.com/spf13/cobra"

	"github.com/jward/apisurface"
)

func (c *cli) createBaselineCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "create-baseline <list-file> <output-file> <" + strings.Join(apisurface.OutputFormatNames(), "|") + ">",
		Short: "Record the API surface of the libraries named in a list file",
		Long: `Reads a list file naming one library per line (a .csproj file, a source
directory, a single .cs file or a glob of those) and writes the public API
surface of every library to the output file.

xml, msgpack and sqlite outputs are baselines for create-diff; html is a
browsable document.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			listPath, outPath := args[0], args[1]
			format, err := apisurface.ParseOutputFormat(args[2])
			if err != nil {
				return unknownToken("output format", args[2], apisurface.OutputFormatNames())
			}
			if err := c.requireFiles(listPath); err != nil {
				return err
			}

			ex, err := c.engine(apisurface.WithStrict(strict)).CreateBaseline(cmd.Context(), listPath, outPath, format)
			if err != nil {
				return err
			}
			for _, p := range ex.Missing {
				fmt.Fprintf(c.stderr, "Library not found: %s\n", p)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on C# syntax errors instead of skipping the broken declarations")
	return cmd
}

// unknownToken reports an invalid choice, suggesting the closest valid one
// when it is similar enough.
func unknownToken(what, got string, valid []string) error {
	msg := fmt.Sprintf("%s must be one of %s, got %q", what, strings.Join(valid, ", "), got)
	if s := suggest(strings.ToLower(got), valid); s != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", s)
	}
	return errors.New(msg)
}

// suggest returns the entry of valid most similar to got, or "" when none
// comes close.
func suggest(got string, valid []string) string {
	const minSimilarity = 0.7
	var best string
	var bestScore float32
	for _, v := range valid {
		score, err := edlib.StringsSimilarity(got, v, edlib.JaroWinkler)
		if err != nil {
			continue
		}
		if score > bestScore {
			best, bestScore = v, score
		}
	}
	if bestScore < minSimilarity {
		return ""
	}
	return best
}
