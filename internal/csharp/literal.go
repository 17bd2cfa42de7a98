package csharp

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

type literalKind uint8

const (
	litInt literalKind = iota
	litReal
	litString
	litInterpolated
	litChar
	litBool
	litNull
)

// literal is a literal token. Numbers keep their spelling; strings and
// chars hold their decoded value.
type literal struct {
	kind literalKind
	text string
}

// identName returns the name an identifier token declares: without the
// verbatim '@' and in normalization form C.
func identName(text string) string {
	return norm.NFC.String(strings.TrimPrefix(text, "@"))
}

// decodeString returns the value of a regular, verbatim, raw or
// interpolated string literal as spelled in source.
func decodeString(text string) string {
	verbatim := false
	i := 0
	for i < len(text) && (text[i] == '@' || text[i] == '$') {
		if text[i] == '@' {
			verbatim = true
		}
		i++
	}
	s := text[i:]
	if strings.HasSuffix(s, "u8") || strings.HasSuffix(s, "U8") {
		s = s[:len(s)-2]
	}

	quotes := 0
	for quotes < len(s) && s[quotes] == '"' {
		quotes++
	}
	if quotes >= 3 {
		body := s[quotes:]
		body = body[:max(0, len(body)-quotes)]
		return rawStringValue(body)
	}

	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)
	if verbatim {
		return strings.ReplaceAll(s, `""`, `"`)
	}
	return unescape(s)
}

// rawStringValue strips the leading and trailing lines of a multi-line raw
// string and removes the closing line's indentation from every line.
func rawStringValue(s string) string {
	if !strings.Contains(s, "\n") {
		return s
	}
	lines := strings.Split(s, "\n")
	indent := strings.TrimRight(lines[len(lines)-1], "\r")
	lines = lines[1 : len(lines)-1]
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(strings.TrimRight(line, "\r"), indent)
	}
	return strings.Join(lines, "\n")
}

// decodeChar returns the value of a character literal such as '\n'.
func decodeChar(text string) rune {
	s := strings.TrimSuffix(strings.TrimPrefix(text, "'"), "'")
	r, _ := utf8.DecodeRuneInString(unescape(s))
	return r
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			i++
			continue
		}
		c := s[i+1]
		i += 2
		switch c {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case '0':
			b.WriteByte(0)
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case 'e':
			b.WriteByte(0x1b)
		case 'u':
			i += hexRune(&b, s[i:], 4, 4)
		case 'U':
			i += hexRune(&b, s[i:], 8, 8)
		case 'x':
			i += hexRune(&b, s[i:], 1, 4)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// hexRune writes the rune spelled by the leading hex digits of s and
// returns how many digits it consumed.
func hexRune(b *strings.Builder, s string, minDigits, maxDigits int) int {
	n := 0
	for n < maxDigits && n < len(s) && isHex(s[n]) {
		n++
	}
	if n < minDigits {
		return 0
	}
	v, _ := strconv.ParseUint(s[:n], 16, 32)
	b.WriteRune(rune(v))
	return n
}

func isHex(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}
