package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jward/apisurface"
)

var colorModes = []string{"auto", "always", "never"}

func (c *cli) createDiffCmd() *cobra.Command {
	var formatName, colorMode string
	cmd := &cobra.Command{
		Use:   "create-diff <baseline-1> <baseline-2> <output-file>",
		Short: "Compare two baselines",
		Long: `Loads two baselines written by create-baseline, in any of their formats,
and writes what was added and removed going from the first to the second.
An output file of "-" writes to stdout.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			path1, path2, outPath := args[0], args[1], args[2]
			format, err := apisurface.ParseDiffFormat(formatName)
			if err != nil {
				return unknownToken("diff format", formatName, apisurface.DiffFormatNames())
			}
			useColor, err := resolveColor(colorMode, outPath)
			if err != nil {
				return err
			}
			if err := c.requireFiles(path1, path2); err != nil {
				return err
			}

			r, err := c.engine().CreateDiff(cmd.Context(), path1, path2, outPath, apisurface.DiffOptions{
				Format: format,
				Color:  useColor,
			})
			if err != nil {
				return err
			}
			if outPath != "-" {
				s := r.Summary()
				fmt.Fprintf(c.stderr, "%d added, %d removed, %d type signatures changed\n", s.Added, s.Removed, s.Signatures)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&formatName, "format", apisurface.DiffHTML.String(), "output format: "+strings.Join(apisurface.DiffFormatNames(), "|"))
	cmd.Flags().StringVar(&colorMode, "color", "auto", "color text output: "+strings.Join(colorModes, "|"))
	return cmd
}

// resolveColor decides whether text output is colored. auto colors only a
// terminal stdout, honoring NO_COLOR.
func resolveColor(mode, outPath string) (bool, error) {
	switch strings.ToLower(mode) {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto":
		return outPath == "-" && !color.NoColor, nil
	}
	return false, unknownToken("color mode", mode, colorModes)
}
