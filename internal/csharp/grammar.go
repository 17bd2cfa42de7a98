package csharp

import (
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
)

// The C# grammar is initialized lazily on first use.
var (
	grammar     *sitter.Language
	grammarOnce sync.Once
)

func language() *sitter.Language {
	grammarOnce.Do(func() {
		grammar = csharp.GetLanguage()
	})
	return grammar
}

// IsSourceFile reports whether path names a C# source file.
func IsSourceFile(path string) bool {
	return strings.EqualFold(pathExt(path), ".cs")
}

func pathExt(path string) string {
	i := strings.LastIndexAny(path, `./\`)
	if i < 0 || path[i] != '.' {
		return ""
	}
	return path[i:]
}
