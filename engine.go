package apisurface

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/jward/apisurface/internal/baseline"
	"github.com/jward/apisurface/internal/csharp"
	"github.com/jward/apisurface/internal/diff"
	"github.com/jward/apisurface/internal/extract"
	"github.com/jward/apisurface/internal/render"
	"github.com/jward/apisurface/internal/report"
	"github.com/jward/apisurface/internal/source"
)

var (
	// ErrNotFound reports a list file, library or baseline that does not exist.
	ErrNotFound = source.ErrNotFound
	// ErrUnknownFormat reports an output or baseline format this package
	// cannot write or read.
	ErrUnknownFormat = baseline.ErrUnknownFormat
	// ErrAmbiguousHiding reports a member that hides more than one inherited
	// member. It aborts extraction.
	ErrAmbiguousHiding = render.ErrAmbiguousHiding
)

// Engine orchestrates the pipeline: library discovery, parsing and binding,
// model extraction, persistence and comparison.
type Engine struct {
	log         *slog.Logger
	strict      bool
	parallelism int
	now         func() time.Time
	stdout      io.Writer
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for pipeline events. Nil keeps the default.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithStrict makes syntax errors in any library fail extraction. Libraries
// can also opt in through their manifest.
func WithStrict(strict bool) Option {
	return func(e *Engine) {
		e.strict = strict
	}
}

// WithParallelism bounds how many libraries are read, and how many files
// parsed, at once. Values below one are ignored.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.parallelism = n
		}
	}
}

// WithClock sets the source of the generation date printed in HTML
// documents.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithStdout sets where CreateDiff writes when the output path is "-".
func WithStdout(w io.Writer) Option {
	return func(e *Engine) {
		if w != nil {
			e.stdout = w
		}
	}
}

// New creates an Engine. By default it logs through slog.Default, tolerates
// syntax errors and works on one library per CPU.
func New(opts ...Option) *Engine {
	e := &Engine{
		log:         slog.Default(),
		parallelism: runtime.NumCPU(),
		now:         time.Now,
		stdout:      os.Stdout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extraction is the outcome of reading a library list.
type Extraction struct {
	Set *LibrarySet
	// Missing holds list entries that named nothing on disk. They are
	// skipped, not fatal.
	Missing []string
}

// Extract reads the library list at listPath and builds the API surface of
// every library it names. Libraries come out sorted by name.
func (e *Engine) Extract(ctx context.Context, listPath string) (*Extraction, error) {
	list, err := source.Load(listPath)
	if err != nil {
		return nil, err
	}
	for _, p := range list.Missing {
		e.log.Debug("library.missing", "path", p)
	}
	set, err := e.ExtractLibraries(ctx, list.Libraries)
	if err != nil {
		return nil, err
	}
	return &Extraction{Set: set, Missing: list.Missing}, nil
}

// ExtractLibraries builds the API surface of already discovered libraries.
// Each library can see the types of the others, as assemblies loaded
// together would.
func (e *Engine) ExtractLibraries(ctx context.Context, libs []*LibrarySource) (*LibrarySet, error) {
	for _, lib := range libs {
		e.log.Debug("library.discovered",
			"library", lib.Name,
			"kind", lib.Kind,
			"path", lib.Path,
			"files", len(lib.Files),
		)
	}

	units, err := e.readUnits(ctx, libs)
	if err != nil {
		return nil, err
	}

	compiler := csharp.NewCompiler(
		csharp.WithLogger(e.log),
		csharp.WithStrict(e.strict),
		csharp.WithParallelism(e.parallelism),
	)
	compiled, err := compiler.Compile(ctx, units...)
	if err != nil {
		return nil, err
	}
	for _, lib := range compiled {
		e.log.Info("library.parsed", "library", lib.Name, "types", len(lib.Types))
	}

	return extract.NewBuilder(extract.WithLogger(e.log)).Build(compiled)
}

// CreateBaseline extracts the libraries named by listPath and writes them to
// outPath. XML, msgpack and SQLite outputs are baselines that Load reads
// back; HTML is a document for people.
func (e *Engine) CreateBaseline(ctx context.Context, listPath, outPath string, format OutputFormat) (*Extraction, error) {
	bf, isBaseline := format.baselineFormat()
	if !isBaseline && format != OutputHTML {
		return nil, fmt.Errorf("%v: %w", format, ErrUnknownFormat)
	}

	ex, err := e.Extract(ctx, listPath)
	if err != nil {
		return nil, err
	}

	if isBaseline {
		err = e.Save(outPath, ex.Set, bf)
	} else {
		err = baseline.WriteFile(outPath, func(w io.Writer) error {
			return e.WriteBaselineHTML(w, ex.Set)
		})
	}
	if err != nil {
		return nil, err
	}
	return ex, nil
}

// WriteBaselineHTML renders set as an HTML document dated by the engine's
// clock.
func (e *Engine) WriteBaselineHTML(w io.Writer, set *LibrarySet) error {
	return report.WriteBaseline(w, set, e.now())
}

// Save writes set to path in the given baseline format. The file is
// replaced atomically.
func (e *Engine) Save(path string, set *LibrarySet, format BaselineFormat) error {
	if set == nil {
		set = &LibrarySet{}
	}
	if err := baseline.Save(path, set, format); err != nil {
		return err
	}
	e.log.Info("baseline.saved", "path", path, "format", format, "libraries", len(set.Libraries))
	return nil
}

// Load reads a baseline written by Save in any format.
func (e *Engine) Load(path string) (*LibrarySet, error) {
	set, format, err := baseline.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	e.log.Info("baseline.loaded", "path", path, "format", format, "libraries", len(set.Libraries))
	return set, nil
}

// Diff compares two library sets.
func Diff(before, after *LibrarySet) *DiffReport {
	return diff.Compare(before, after)
}

// DiffOptions controls how CreateDiff renders a report.
type DiffOptions struct {
	Format DiffFormat
	// Color enables ANSI colors in text output.
	Color bool
}

// CreateDiff loads two baselines, compares them and writes the report to
// outPath, or to the engine's stdout when outPath is "-". Nothing is
// written unless both baselines load.
func (e *Engine) CreateDiff(ctx context.Context, path1, path2, outPath string, opts DiffOptions) (*DiffReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	before, err := e.Load(path1)
	if err != nil {
		return nil, err
	}
	after, err := e.Load(path2)
	if err != nil {
		return nil, err
	}

	r := Diff(before, after)
	write := func(w io.Writer) error {
		return e.WriteDiff(w, r, path1, path2, opts)
	}
	if outPath == "-" {
		err = write(e.stdout)
	} else {
		err = baseline.WriteFile(outPath, write)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// WriteDiff renders r. The baseline names appear in the HTML header.
func (e *Engine) WriteDiff(w io.Writer, r *DiffReport, baseline1, baseline2 string, opts DiffOptions) error {
	switch opts.Format {
	case DiffHTML:
		return report.WriteDiff(w, r, report.DiffHeader{
			Baseline1: baseline1,
			Baseline2: baseline2,
			Generated: e.now(),
		})
	case DiffText:
		return report.WriteText(w, r, report.TextOptions{Color: opts.Color})
	}
	return fmt.Errorf("%v: %w", opts.Format, ErrUnknownFormat)
}
