// Package source resolves library list files into the C# sources of each
// library.
//
// A list file names one library per line. Each entry is a .csproj file, a
// directory or a single .cs file, and may be a doublestar glob that expands
// to several entries. Blank lines and lines starting with # are skipped;
// relative entries are resolved against the list file's directory.
package source

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/jward/apisurface/internal/csharp"
)

// ErrNotFound reports a list file or library entry that does not exist.
var ErrNotFound = errors.New("not found")

//go:generate go tool stringer -type=Kind -output=kind_string.go

// Kind is the form of a library entry.
type Kind uint8

const (
	Project Kind = iota
	Directory
	File
)

// Library is one library resolved from a list entry.
type Library struct {
	Name string
	Kind Kind
	Path string

	// Version and FileVersion come from the project file or manifest.
	// Empty means the assembly attributes in the sources decide.
	Version     string
	FileVersion string

	ImplicitUsings bool
	Strict         bool

	// Files are absolute paths in lexical order.
	Files []string
}

// Unit reads the library's files into a compilation unit.
func (l *Library) Unit() (csharp.Unit, error) {
	u := csharp.Unit{
		Name:           l.Name,
		Version:        l.Version,
		FileVersion:    l.FileVersion,
		ImplicitUsings: l.ImplicitUsings,
		Strict:         l.Strict,
		Files:          make([]csharp.Source, 0, len(l.Files)),
	}
	for _, p := range l.Files {
		text, err := os.ReadFile(p)
		if err != nil {
			return csharp.Unit{}, fmt.Errorf("read source: %w", err)
		}
		u.Files = append(u.Files, csharp.Source{Path: p, Text: text})
	}
	return u, nil
}

// Entry is one line of a list file.
type Entry struct {
	Line int
	Text string
	// Path is Text resolved against the list file's directory.
	Path string
}

func (e Entry) isGlob() bool {
	return strings.ContainsAny(e.Path, "*?[{")
}

// ParseList reads list entries from r. Relative entries are joined to dir.
func ParseList(r io.Reader, dir string) ([]Entry, error) {
	var entries []Entry
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if line == 1 {
			text = strings.TrimPrefix(text, "\ufeff")
		}
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		path := text
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		entries = append(entries, Entry{Line: line, Text: text, Path: filepath.Clean(path)})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read list: %w", err)
	}
	return entries, nil
}

// List is a resolved list file.
type List struct {
	Libraries []*Library
	// Missing holds entries that named nothing on disk, as resolved paths.
	Missing []string
}

// Load reads the list file at path and opens every library it names. Entries
// that do not exist are collected in Missing rather than failing the load.
func Load(path string) (*List, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("list file %s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("list file: %w", err)
	}
	defer f.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("list file: %w", err)
	}
	entries, err := ParseList(f, filepath.Dir(abs))
	if err != nil {
		return nil, err
	}

	out := &List{}
	for _, e := range entries {
		paths := []string{e.Path}
		if e.isGlob() {
			if paths, err = doublestar.FilepathGlob(e.Path); err != nil {
				return nil, fmt.Errorf("line %d: %w", e.Line, err)
			}
			slices.Sort(paths)
		}
		if len(paths) == 0 {
			out.Missing = append(out.Missing, e.Path)
			continue
		}
		for _, p := range paths {
			lib, err := Open(p)
			if errors.Is(err, ErrNotFound) {
				out.Missing = append(out.Missing, p)
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", e.Line, err)
			}
			out.Libraries = append(out.Libraries, lib)
		}
	}
	return out, nil
}

// Open resolves a single library entry.
func Open(path string) (*Library, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, err
	}
	path, err = filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	switch {
	case info.IsDir():
		return openDirectory(path)
	case strings.EqualFold(filepath.Ext(path), ".csproj"):
		return openProject(path)
	case csharp.IsSourceFile(path):
		return &Library{
			Name:  stem(path),
			Kind:  File,
			Path:  path,
			Files: []string{path},
		}, nil
	}
	return nil, fmt.Errorf("%s: not a project, directory or C# file", path)
}

func openDirectory(dir string) (*Library, error) {
	lib := &Library{Name: filepath.Base(dir), Kind: Directory, Path: dir}
	if err := collect(lib, dir, nil); err != nil {
		return nil, err
	}
	return lib, nil
}

// collect applies the directory's manifest to lib and gathers its sources.
func collect(lib *Library, dir string, excludes []string) error {
	m, err := ReadManifest(dir)
	if err != nil {
		return err
	}
	if m != nil {
		m.apply(lib)
		excludes = append(excludes, m.Exclude...)
	}
	files, err := Walk(dir, excludes)
	if err != nil {
		return err
	}
	lib.Files = files
	return nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
