package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/apisurface"
)

// errReported is returned by commands that already printed their failure,
// so run doesn't double-print.
var errReported = errors.New("reported")

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(stderr, "Error: %s\n", err)
		}
		return 1
	}
	return 0
}

// cli holds the state shared by all commands of one invocation.
type cli struct {
	stdout  io.Writer
	stderr  io.Writer
	verbose bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:           "apisurface",
		Short:         "Record and compare the public API surface of C# libraries",
		Long:          "apisurface extracts every externally visible type and member of a set of C# libraries into a baseline, and reports the differences between two baselines.",
		SilenceErrors: true,
		SilenceUsage:  true,
		// No Run: prints help by default.
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log pipeline events to stderr")

	root.AddCommand(c.createBaselineCmd())
	root.AddCommand(c.createDiffCmd())
	return root
}

// engine builds an Engine logging to stderr: warnings by default, everything
// with --verbose.
func (c *cli) engine(opts ...apisurface.Option) *apisurface.Engine {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(c.stderr, &slog.HandlerOptions{Level: level}))
	return apisurface.New(append([]apisurface.Option{
		apisurface.WithLogger(logger),
		apisurface.WithStdout(c.stdout),
	}, opts...)...)
}

// requireFiles prints "File not found" for every missing path and reports
// whether all of them exist.
func (c *cli) requireFiles(paths ...string) error {
	missing := false
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			fmt.Fprintf(c.stderr, "File not found: %s\n", p)
			missing = true
		}
	}
	if missing {
		return errReported
	}
	return nil
}
