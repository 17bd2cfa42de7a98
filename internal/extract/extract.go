// Package extract builds the API surface model from compiled library
// metadata.
//
// The builder visits libraries in identity order, groups their visible types
// by namespace and renders every visible member. The result is a pure
// function of the metadata: building twice yields identical trees.
package extract

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/jward/apisurface/internal/metadata"
	"github.com/jward/apisurface/internal/model"
	"github.com/jward/apisurface/internal/render"
)

// LibraryError reports a library whose surface could not be enumerated.
// It aborts the whole extraction.
type LibraryError struct {
	Library string
	Err     error
}

func (e *LibraryError) Error() string {
	return fmt.Sprintf("library %s: %v", e.Library, e.Err)
}

func (e *LibraryError) Unwrap() error { return e.Err }

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger used for per-type diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.log = l }
}

// Builder turns metadata libraries into a model.LibrarySet.
type Builder struct {
	log *slog.Logger
}

// NewBuilder returns a Builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{log: slog.Default()}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Build extracts every library. The first library that fails aborts the
// run with a *LibraryError.
func (b *Builder) Build(libs []*metadata.Library) (*model.LibrarySet, error) {
	sorted := slices.Clone(libs)
	slices.SortStableFunc(sorted, func(x, y *metadata.Library) int {
		return strings.Compare(x.FullName(), y.FullName())
	})

	set := &model.LibrarySet{Libraries: make([]*model.Library, 0, len(sorted))}
	for _, lib := range sorted {
		l, err := b.Library(lib)
		if err != nil {
			return nil, &LibraryError{Library: lib.Name, Err: err}
		}
		set.Libraries = append(set.Libraries, l)
	}
	return set, nil
}

// Library extracts one library.
func (b *Builder) Library(lib *metadata.Library) (*model.Library, error) {
	var visible []*metadata.Type
	for _, t := range lib.Types {
		if !t.IsPubliclyVisible() {
			continue
		}
		// Nested delegates are members of their enclosing type.
		if t.IsNested() && t.IsDelegate() {
			continue
		}
		visible = append(visible, t)
	}
	slices.SortStableFunc(visible, func(x, y *metadata.Type) int {
		return strings.Compare(x.FullName(), y.FullName())
	})

	byName := map[string]*model.Namespace{}
	out := &model.Library{Name: lib.Name, Display: lib.Display()}
	for _, t := range visible {
		mt, err := b.Type(t)
		if err != nil {
			return nil, fmt.Errorf("type %s: %w", t.FullName(), err)
		}
		name := namespaceOf(t)
		ns, ok := byName[name]
		if !ok {
			ns = &model.Namespace{Name: name}
			byName[name] = ns
			out.Namespaces = append(out.Namespaces, ns)
		}
		ns.Types = append(ns.Types, mt)
	}
	slices.SortStableFunc(out.Namespaces, func(x, y *model.Namespace) int {
		return strings.Compare(x.Name, y.Name)
	})

	b.log.Debug("library.extracted", "library", lib.Name, "namespaces", len(out.Namespaces), "types", len(visible))
	return out, nil
}

// namespaceOf returns the namespace of the outermost declaring type.
func namespaceOf(t *metadata.Type) string {
	for t.DeclaringType != nil {
		t = t.DeclaringType
	}
	return t.Namespace
}

func kindOf(t *metadata.Type) model.TypeKind {
	switch {
	case t.IsEnum():
		return model.Enum
	case t.IsInterface():
		return model.Interface
	case t.IsValueType():
		return model.Struct
	}
	return model.Class
}

// Type extracts one type definition and its visible members.
func (b *Builder) Type(t *metadata.Type) (*model.Type, error) {
	members, err := b.members(t)
	if err != nil {
		return nil, err
	}
	return &model.Type{
		Name:      render.DeclaredTypeName(t),
		Kind:      kindOf(t),
		Signature: render.TypeSignature(t),
		Members:   members,
	}, nil
}
