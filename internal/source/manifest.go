package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"
)

// ManifestName is the optional per-library settings file.
const ManifestName = "apisurface.toml"

// Manifest overrides what the project file or directory name says about a
// library.
type Manifest struct {
	Name        string   `toml:"name"`
	Version     string   `toml:"version"`
	FileVersion string   `toml:"file_version"`
	Exclude     []string `toml:"exclude"`
	Strict      bool     `toml:"strict"`
}

// ReadManifest loads dir's manifest. It returns nil and no error when there
// is none.
func ReadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestName)
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var m Manifest
	if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(&m); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, pat := range m.Exclude {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("%s: invalid exclude pattern %q", path, pat)
		}
	}
	return &m, nil
}

func (m *Manifest) apply(lib *Library) {
	if m.Name != "" {
		lib.Name = m.Name
	}
	if m.Version != "" {
		lib.Version = normalizeVersion(m.Version)
	}
	if m.FileVersion != "" {
		lib.FileVersion = normalizeVersion(m.FileVersion)
	}
	lib.Strict = lib.Strict || m.Strict
}
