// Package report renders library sets and diff reports as documents: an HTML
// baseline with collapsible sections, an HTML diff and a plain or colored
// text diff.
package report

import (
	"fmt"
	"slices"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/jward/apisurface/internal/diff"
	"github.com/jward/apisurface/internal/model"
)

// DateLayout is the timestamp format used in document headers.
const DateLayout = "2006-01-02 15:04:05"

const globalNamespace = "(global namespace)"

// elementID derives a stable HTML id from an element's path in the tree, so
// the same set renders the same document every time.
func elementID(path ...string) string {
	d := xxhash.New()
	for i, p := range path {
		if i > 0 {
			d.WriteString("\x00")
		}
		d.WriteString(p)
	}
	return fmt.Sprintf("%016x", d.Sum64())
}

func namespaceLabel(name string) string {
	if name == "" {
		return globalNamespace
	}
	return name
}

// sortedMembers returns the member signatures in display order: enums as
// declared, everything else by signature under a language-aware collation.
func sortedMembers(t *model.Type) []string {
	sigs := make([]string, len(t.Members))
	for i, m := range t.Members {
		sigs[i] = m.Signature
	}
	if t.Kind == model.Enum {
		return sigs
	}
	c := collate.New(language.English)
	slices.SortStableFunc(sigs, c.CompareString)
	return sigs
}

func stamp(t time.Time) string {
	return t.Format(DateLayout)
}

func marker(c diff.Change) string {
	switch c {
	case diff.Added:
		return "+"
	case diff.Removed:
		return "-"
	}
	return ""
}
