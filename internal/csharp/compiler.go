// Package csharp compiles C# source files into library metadata.
//
// Only declarations are read: type and member headers, constant
// initializers, attribute arguments and the initializers of static readonly
// fields. Method bodies are skipped. Where a real compiler adds members or
// metadata flags that the source does not spell out (default constructors,
// accessor methods, delegate Invoke methods, record equality members, the
// vtable flags of implicit interface implementations) the binder adds them
// the same way, so the resulting metadata reads like reflection over the
// compiled library.
package csharp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/jward/apisurface/internal/metadata"
)

// Source is one C# file.
type Source struct {
	Path string
	Text []byte
}

// Unit is the set of files compiled into one library.
type Unit struct {
	Name string

	// Version and FileVersion override the assembly attributes found in
	// the sources. Empty means use the attributes, or 1.0.0.0.
	Version     string
	FileVersion string

	Files []Source

	// ImplicitUsings adds the SDK's implicit global using directives.
	ImplicitUsings bool

	// Strict fails the compilation on this unit's syntax errors even when
	// the compiler tolerates them.
	Strict bool
}

// SyntaxError is a declaration the parser could not read.
type SyntaxError struct {
	Path   string
	Line   int
	Column int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Column, e.Msg)
}

// Compiler turns units of C# source into metadata libraries.
type Compiler struct {
	log         *slog.Logger
	strict      bool
	parallelism int
}

// CompilerOption configures a Compiler.
type CompilerOption func(*Compiler)

// WithLogger sets the logger for parse and binding diagnostics.
func WithLogger(l *slog.Logger) CompilerOption {
	return func(c *Compiler) {
		if l != nil {
			c.log = l
		}
	}
}

// WithStrict makes syntax errors fail the compilation instead of being
// logged and skipped.
func WithStrict(strict bool) CompilerOption {
	return func(c *Compiler) {
		c.strict = strict
	}
}

// WithParallelism bounds the number of files parsed at once.
func WithParallelism(n int) CompilerOption {
	return func(c *Compiler) {
		if n > 0 {
			c.parallelism = n
		}
	}
}

// NewCompiler creates a Compiler. By default it logs nowhere, tolerates
// syntax errors and parses one file per CPU at a time.
func NewCompiler(opts ...CompilerOption) *Compiler {
	c := &Compiler{
		log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		parallelism: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile compiles the units into one library each, in order. Units may
// refer to each other's types; every unit also sees the core library.
func (c *Compiler) Compile(ctx context.Context, units ...Unit) ([]*metadata.Library, error) {
	core, err := Core()
	if err != nil {
		return nil, err
	}
	return c.compile(ctx, core, units)
}

func (c *Compiler) compile(ctx context.Context, core *metadata.Library, units []Unit) ([]*metadata.Library, error) {
	// ---- Parse every file of every unit ----
	states := make([]*libState, len(units))
	var syntaxErrs []error
	for i, u := range units {
		files, err := c.parseFiles(ctx, u.Files)
		if err != nil {
			return nil, fmt.Errorf("csharp: compiling %s: %w", u.Name, err)
		}
		for _, f := range files {
			for _, se := range f.syntaxErrors {
				err := &SyntaxError{Path: f.path, Line: se.line, Column: se.column, Msg: se.text}
				if c.strict || u.Strict {
					syntaxErrs = append(syntaxErrs, err)
					continue
				}
				c.log.Warn("syntax.error", "library", u.Name, "file", f.path, "line", se.line, "msg", se.text)
			}
		}
		states[i] = &libState{unit: u, lib: metadata.NewLibrary(u.Name), files: files}
	}
	if len(syntaxErrs) > 0 {
		return nil, fmt.Errorf("csharp: %d syntax error(s): %w", len(syntaxErrs), errors.Join(syntaxErrs...))
	}

	// ---- Bind declarations across all units ----
	b := newBinder(c.log, core, states)
	if err := b.bind(ctx); err != nil {
		return nil, err
	}

	libs := make([]*metadata.Library, len(states))
	for i, s := range states {
		libs[i] = s.lib
	}
	return libs, nil
}
