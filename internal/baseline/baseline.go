// Package baseline persists library sets.
//
// Three encodings are supported: an XML document (the default, readable and
// diffable with ordinary tools), msgpack, and a SQLite database. Load
// recognizes all three from their leading bytes.
package baseline

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jward/apisurface/internal/model"
	"github.com/jward/apisurface/internal/store"
)

// ErrUnknownFormat reports a format token or file content that is not a
// supported baseline encoding.
var ErrUnknownFormat = errors.New("unknown baseline format")

// Format is a baseline encoding.
type Format uint8

const (
	XML Format = iota
	MessagePack
	SQLite
)

var formatNames = [...]string{
	XML:         "xml",
	MessagePack: "msgpack",
	SQLite:      "sqlite",
}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("Format(%d)", f)
}

// FormatNames lists the format tokens accepted by ParseFormat.
func FormatNames() []string {
	return slices.Clone(formatNames[:])
}

// ParseFormat parses a format token, ignoring case.
func ParseFormat(s string) (Format, error) {
	for i, name := range formatNames {
		if strings.EqualFold(s, name) {
			return Format(i), nil
		}
	}
	return 0, fmt.Errorf("%q: %w", s, ErrUnknownFormat)
}

const sqliteMagic = "SQLite format 3\x00"

// Save writes set to path, creating the directory if needed. Nothing is left
// at path unless the whole document was written.
func Save(path string, set *model.LibrarySet, format Format) error {
	if set == nil {
		set = &model.LibrarySet{}
	}
	var err error
	switch format {
	case XML:
		err = WriteFile(path, func(w io.Writer) error { return encodeXML(w, set) })
	case MessagePack:
		err = WriteFile(path, func(w io.Writer) error { return encodeMsgpack(w, set) })
	case SQLite:
		err = replaceFile(path, func(tmp string) error { return saveSQLite(tmp, set) })
	default:
		err = fmt.Errorf("%v: %w", format, ErrUnknownFormat)
	}
	if err != nil {
		return fmt.Errorf("save baseline %s: %w", path, err)
	}
	return nil
}

// WriteFile writes a document produced by write to path. The output goes to
// a temporary file in the same directory that is renamed over path once
// write and the flush succeed.
func WriteFile(path string, write func(w io.Writer) error) error {
	return replaceFile(path, func(tmp string) (err error) {
		f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w := bufio.NewWriter(f)
		if err := write(w); err != nil {
			return err
		}
		return w.Flush()
	})
}

// replaceFile creates a temporary file next to path, lets fill populate it
// by name and renames it over path. On failure the temporary file and any
// SQLite side files are removed.
func replaceFile(path string, fill func(tmp string) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".apisurface-*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(tmp)
			os.Remove(tmp + "-wal")
			os.Remove(tmp + "-shm")
		}
	}()
	if err = fill(tmp); err != nil {
		return err
	}
	// CreateTemp uses mode 0600.
	if err = os.Chmod(tmp, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func saveSQLite(path string, set *model.LibrarySet) error {
	s, err := store.NewStore(path)
	if err != nil {
		return err
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return err
	}
	if err := s.SaveSet(set); err != nil {
		s.Close()
		return err
	}
	return s.Close()
}

// Detect reports the encoding of a baseline from its leading bytes.
func Detect(head []byte) (Format, error) {
	if bytes.HasPrefix(head, []byte(sqliteMagic)) {
		return SQLite, nil
	}
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(head, []byte("\xef\xbb\xbf")), " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '<' {
		return XML, nil
	}
	if len(head) > 0 && isMsgpackMap(head[0]) {
		return MessagePack, nil
	}
	return 0, ErrUnknownFormat
}

// Load reads a baseline in any supported format.
func Load(path string) (*model.LibrarySet, Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	head, err := br.Peek(len(sqliteMagic))
	if err != nil && err != io.EOF {
		return nil, 0, fmt.Errorf("load baseline %s: %w", path, err)
	}
	format, err := Detect(head)
	if err != nil {
		return nil, 0, fmt.Errorf("load baseline %s: %w", path, err)
	}

	var set *model.LibrarySet
	switch format {
	case XML:
		set, err = decodeXML(br)
	case MessagePack:
		set, err = decodeMsgpack(br)
	case SQLite:
		f.Close()
		set, err = loadSQLite(path)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load baseline %s: %w", path, err)
	}
	return set, format, nil
}

func loadSQLite(path string) (*model.LibrarySet, error) {
	s, err := store.NewStore(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.LoadSet()
}
