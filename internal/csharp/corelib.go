package csharp

import (
	"context"
	_ "embed"
	"fmt"
	"sync"

	"github.com/jward/apisurface/internal/metadata"
)

// CoreLibraryName is the name of the library that declares System.Object.
const CoreLibraryName = "System.Runtime"

//go:embed corelib.cs
var coreSource []byte

var (
	coreOnce sync.Once
	coreLib  *metadata.Library
	coreErr  error
)

func coreUnit() Unit {
	return Unit{
		Name:        CoreLibraryName,
		Version:     "8.0.0.0",
		FileVersion: "8.0.0.0",
		Files:       []Source{{Path: "corelib.cs", Text: coreSource}},
	}
}

// Core returns the core library: the System types every compilation can
// refer to. It is compiled once per process and must not be modified.
func Core() (*metadata.Library, error) {
	coreOnce.Do(func() {
		c := NewCompiler(WithParallelism(1))
		libs, err := c.compile(context.Background(), nil, []Unit{coreUnit()})
		if err != nil {
			coreErr = fmt.Errorf("csharp: compiling core library: %w", err)
			return
		}
		coreLib = libs[0]
	})
	return coreLib, coreErr
}
