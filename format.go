package apisurface

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/jward/apisurface/internal/baseline"
)

// OutputFormat is what CreateBaseline writes.
type OutputFormat uint8

const (
	OutputXML OutputFormat = iota
	OutputHTML
	OutputMsgpack
	OutputSQLite
)

var outputFormatNames = [...]string{
	OutputXML:     "xml",
	OutputHTML:    "html",
	OutputMsgpack: "msgpack",
	OutputSQLite:  "sqlite",
}

func (f OutputFormat) String() string {
	if int(f) < len(outputFormatNames) {
		return outputFormatNames[f]
	}
	return "OutputFormat(" + strconv.Itoa(int(f)) + ")"
}

// OutputFormatNames lists the tokens accepted by ParseOutputFormat.
func OutputFormatNames() []string {
	return slices.Clone(outputFormatNames[:])
}

// ParseOutputFormat maps a token, in any case, to an OutputFormat.
func ParseOutputFormat(s string) (OutputFormat, error) {
	return parseToken[OutputFormat](outputFormatNames[:], s)
}

func (f OutputFormat) baselineFormat() (BaselineFormat, bool) {
	switch f {
	case OutputXML:
		return baseline.XML, true
	case OutputMsgpack:
		return baseline.MessagePack, true
	case OutputSQLite:
		return baseline.SQLite, true
	}
	return 0, false
}

// DiffFormat is what CreateDiff writes.
type DiffFormat uint8

const (
	DiffHTML DiffFormat = iota
	DiffText
)

var diffFormatNames = [...]string{
	DiffHTML: "html",
	DiffText: "text",
}

func (f DiffFormat) String() string {
	if int(f) < len(diffFormatNames) {
		return diffFormatNames[f]
	}
	return "DiffFormat(" + strconv.Itoa(int(f)) + ")"
}

// DiffFormatNames lists the tokens accepted by ParseDiffFormat.
func DiffFormatNames() []string {
	return slices.Clone(diffFormatNames[:])
}

// ParseDiffFormat maps a token, in any case, to a DiffFormat.
func ParseDiffFormat(s string) (DiffFormat, error) {
	return parseToken[DiffFormat](diffFormatNames[:], s)
}

func parseToken[T ~uint8](names []string, s string) (T, error) {
	for i, name := range names {
		if strings.EqualFold(name, s) {
			return T(i), nil
		}
	}
	return 0, fmt.Errorf("%q: %w", s, ErrUnknownFormat)
}
