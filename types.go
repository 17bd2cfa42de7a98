package apisurface

import (
	"github.com/jward/apisurface/internal/baseline"
	"github.com/jward/apisurface/internal/csharp"
	"github.com/jward/apisurface/internal/diff"
	"github.com/jward/apisurface/internal/extract"
	"github.com/jward/apisurface/internal/model"
	"github.com/jward/apisurface/internal/source"
)

// Public type aliases for the internal types that cross the Engine API.
// External consumers use these names; no conversion is needed.

type LibrarySet = model.LibrarySet
type Library = model.Library
type Namespace = model.Namespace
type Type = model.Type
type Member = model.Member

type DiffReport = diff.Report
type LibraryError = extract.LibraryError
type BaselineFormat = baseline.Format
type SyntaxError = csharp.SyntaxError

// LibrarySource is a library found on disk, before its sources are parsed.
type LibrarySource = source.Library
