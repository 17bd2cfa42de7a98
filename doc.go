// Package apisurface records the public API surface of C# libraries and
// reports how it changes between two recordings.
//
// # Pipeline
//
// An [Engine] works in three steps:
//
//  1. Discover: a list file names the libraries to record, one per line, as
//     project files, source directories, single .cs files or globs of those.
//  2. Extract: the sources of every library are parsed with tree-sitter and
//     bound into type metadata, the way the compiler would lay them out.
//     Every externally visible type and member is rendered as one canonical
//     signature line.
//  3. Persist or compare: the resulting [LibrarySet] is saved as a baseline
//     (XML, msgpack or SQLite) or an HTML document, and two baselines are
//     compared into a [DiffReport].
//
// # Usage
//
//	e := apisurface.New(apisurface.WithLogger(logger))
//
//	ctx := context.Background()
//	_, err := e.CreateBaseline(ctx, "libs.txt", "v1.xml", apisurface.OutputXML)
//	...
//	r, err := e.CreateDiff(ctx, "v1.xml", "v2.xml", "-", apisurface.DiffOptions{
//		Format: apisurface.DiffText,
//	})
//
// Baselines are compared by signature text only. Two sets are equivalent
// when every library, namespace, type and member signature matches, so a
// baseline diffed against itself reports no differences.
//
// # Library manifests
//
// A library directory may carry an apisurface.toml file that overrides the
// library name and versions, excludes source paths by glob and makes syntax
// errors fatal for that library.
package apisurface
