package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/jward/apisurface/internal/diff"
)

// TextOptions controls WriteText.
type TextOptions struct {
	// Color enables ANSI colors regardless of the terminal.
	Color bool
}

type textPrinter struct {
	w       io.Writer
	err     error
	added   *color.Color
	removed *color.Color
	heading *color.Color
}

// WriteText renders r as indented text. Added lines start with "+", removed
// lines with "-". A summary line closes the output.
func WriteText(w io.Writer, r *diff.Report, opts TextOptions) error {
	p := &textPrinter{
		w:       w,
		added:   color.New(color.FgGreen),
		removed: color.New(color.FgRed),
		heading: color.New(color.Bold),
	}
	for _, c := range []*color.Color{p.added, p.removed, p.heading} {
		if opts.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	if r.Empty() {
		p.line(0, nil, "No differences.")
		return p.err
	}
	for _, l := range r.Libraries {
		p.element(0, l.Change, l.Display)
		for _, n := range l.Namespaces {
			p.element(1, n.Change, "namespace "+namespaceLabel(n.Name))
			for _, t := range n.Types {
				p.element(2, t.Change, t.Name)
				if t.SignatureChanged() {
					if t.OldSignature != "" {
						p.line(3, p.removed, "- "+t.OldSignature)
					}
					if t.NewSignature != "" {
						p.line(3, p.added, "+ "+t.NewSignature)
					}
				}
				for _, m := range t.Members {
					p.element(3, m.Change, m.Signature)
				}
			}
		}
	}

	s := r.Summary()
	p.line(0, nil, "")
	p.line(0, nil, fmt.Sprintf("%d added, %d removed, %d type signatures changed", s.Added, s.Removed, s.Signatures))
	return p.err
}

func (p *textPrinter) element(depth int, c diff.Change, text string) {
	switch c {
	case diff.Added:
		p.line(depth, p.added, "+ "+text)
	case diff.Removed:
		p.line(depth, p.removed, "- "+text)
	default:
		p.line(depth, p.heading, text)
	}
}

func (p *textPrinter) line(depth int, c *color.Color, text string) {
	if p.err != nil {
		return
	}
	if c != nil && text != "" {
		text = c.Sprint(text)
	}
	_, p.err = fmt.Fprintln(p.w, strings.Repeat("  ", depth)+text)
}
