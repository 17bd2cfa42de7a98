package baseline

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// XML 1.0 cannot carry most control characters, and encoding/xml replaces
// them and invalid UTF-8 with U+FFFD. Text written to XML documents
// therefore escapes them: \uXXXX for a character outside the XML range,
// \xHH for a byte that is not UTF-8, and \\ for a backslash.

func escapeXMLText(s string) string {
	if !needsXMLEscape(s) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == utf8.RuneError && size == 1:
			fmt.Fprintf(&b, `\x%02X`, s[i])
		case r == '\\':
			b.WriteString(`\\`)
		case !isXMLChar(r):
			fmt.Fprintf(&b, `\u%04X`, r)
		default:
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	return b.String()
}

func needsXMLEscape(s string) bool {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == '\\' || !isXMLChar(r) || r == utf8.RuneError && size == 1 {
			return true
		}
		i += size
	}
	return false
}

func unescapeXMLText(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			continue
		}
		if i+1 == len(s) {
			return "", fmt.Errorf("dangling escape in %q", s)
		}
		var digits int
		switch s[i+1] {
		case '\\':
			b.WriteByte('\\')
			i++
			continue
		case 'x':
			digits = 2
		case 'u':
			digits = 4
		default:
			return "", fmt.Errorf("unknown escape \\%c in %q", s[i+1], s)
		}
		if i+2+digits > len(s) {
			return "", fmt.Errorf("short escape in %q", s)
		}
		v, err := strconv.ParseUint(s[i+2:i+2+digits], 16, 32)
		if err != nil {
			return "", fmt.Errorf("bad escape in %q: %w", s, err)
		}
		if digits == 2 {
			b.WriteByte(byte(v))
		} else {
			b.WriteRune(rune(v))
		}
		i += 1 + digits
	}
	return b.String(), nil
}

// isXMLChar reports whether r is in the XML 1.0 Char production.
func isXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		r >= 0x20 && r <= 0xD7FF ||
		r >= 0xE000 && r <= 0xFFFD ||
		r >= 0x10000 && r <= 0x10FFFF
}

// mapText applies f to every free-text field of doc: names, the display
// name and signatures. Kind names are fixed tokens and stay as they are.
func (doc *document) mapText(f func(string) (string, error)) error {
	var err error
	apply := func(s *string) {
		if err == nil {
			*s, err = f(*s)
		}
	}
	for i := range doc.Libraries {
		l := &doc.Libraries[i]
		apply(&l.Name)
		apply(&l.Display)
		for j := range l.Namespaces {
			n := &l.Namespaces[j]
			apply(&n.Name)
			for k := range n.Types {
				t := &n.Types[k]
				apply(&t.Name)
				apply(&t.Signature)
				for m := range t.Members {
					apply(&t.Members[m].Name)
					apply(&t.Members[m].Signature)
				}
			}
		}
	}
	return err
}
