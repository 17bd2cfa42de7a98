package source

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// projectFile holds the parts of an MSBuild project this package reads.
type projectFile struct {
	PropertyGroups []struct {
		Condition       string `xml:"Condition,attr"`
		AssemblyName    string `xml:"AssemblyName"`
		AssemblyVersion string `xml:"AssemblyVersion"`
		FileVersion     string `xml:"FileVersion"`
		Version         string `xml:"Version"`
		ImplicitUsings  string `xml:"ImplicitUsings"`
	} `xml:"PropertyGroup"`
	ItemGroups []struct {
		Condition string `xml:"Condition,attr"`
		Compile   []struct {
			Remove string `xml:"Remove,attr"`
		} `xml:"Compile"`
	} `xml:"ItemGroup"`
}

type projectProps struct {
	assemblyName    string
	assemblyVersion string
	fileVersion     string
	version         string
	implicitUsings  string
	removes         []string
}

// readProject collects unconditional properties. Later groups win, as in
// MSBuild; values that reference other properties are ignored.
func readProject(path string) (*projectProps, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pf projectFile
	if err := xml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	p := &projectProps{}
	set := func(dst *string, v string) {
		v = strings.TrimSpace(v)
		if v != "" && !strings.Contains(v, "$(") {
			*dst = v
		}
	}
	for _, g := range pf.PropertyGroups {
		if g.Condition != "" {
			continue
		}
		set(&p.assemblyName, g.AssemblyName)
		set(&p.assemblyVersion, g.AssemblyVersion)
		set(&p.fileVersion, g.FileVersion)
		set(&p.version, g.Version)
		set(&p.implicitUsings, g.ImplicitUsings)
	}
	for _, g := range pf.ItemGroups {
		if g.Condition != "" {
			continue
		}
		for _, c := range g.Compile {
			for _, pat := range strings.Split(c.Remove, ";") {
				pat = strings.TrimSpace(strings.ReplaceAll(pat, `\`, "/"))
				if pat != "" {
					p.removes = append(p.removes, pat)
				}
			}
		}
	}
	return p, nil
}

func openProject(path string) (*Library, error) {
	props, err := readProject(path)
	if err != nil {
		return nil, err
	}
	lib := &Library{Name: stem(path), Kind: Project, Path: path}
	if props.assemblyName != "" {
		lib.Name = props.assemblyName
	}

	// The SDK derives both versions from <Version> when they are not set.
	lib.Version = normalizeVersion(props.assemblyVersion)
	if lib.Version == "" {
		lib.Version = normalizeVersion(props.version)
	}
	lib.FileVersion = normalizeVersion(props.fileVersion)
	if lib.FileVersion == "" {
		lib.FileVersion = normalizeVersion(props.version)
	}
	switch strings.ToLower(props.implicitUsings) {
	case "enable", "true":
		lib.ImplicitUsings = true
	}

	if err := collect(lib, filepath.Dir(path), props.removes); err != nil {
		return nil, err
	}
	return lib, nil
}

// normalizeVersion drops a prerelease or build suffix and pads a numeric
// version to four parts, the way assembly versions are written.
func normalizeVersion(v string) string {
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}
	if v == "" {
		return ""
	}
	parts := strings.Split(v, ".")
	if len(parts) > 4 {
		return v
	}
	for _, p := range parts {
		if _, err := strconv.ParseUint(p, 10, 16); err != nil {
			return v
		}
	}
	for len(parts) < 4 {
		parts = append(parts, "0")
	}
	return strings.Join(parts, ".")
}
