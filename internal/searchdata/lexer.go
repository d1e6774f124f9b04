package searchdata

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/efmdocs/symbolsearch/internal/symindex"
)

// literalParser reads the subset of JavaScript that Doxygen emits for
// search fragments: an optional "var name =" prefix, nested arrays,
// quoted strings, integers and null/true/false.
type literalParser struct {
	src  string
	pos  int
	line int
}

func newLiteralParser(src string) *literalParser {
	return &literalParser{src: strings.TrimPrefix(src, "\ufeff"), line: 1}
}

func (p *literalParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", symindex.ErrMalformedIndex, p.line, fmt.Sprintf(format, args...))
}

// parseDocument returns the array literal held by the fragment.
func (p *literalParser) parseDocument() ([]any, error) {
	p.skipSpace()
	if p.peekWord() == "var" {
		p.readWord()
		p.skipSpace()
		if p.readWord() == "" {
			return nil, p.errorf("expected variable name")
		}
		p.skipSpace()
		if !p.consume('=') {
			return nil, p.errorf("expected '='")
		}
		p.skipSpace()
	}

	v, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, p.errorf("top-level value is %s, want array", describe(v))
	}

	p.skipSpace()
	p.consume(';')
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, p.errorf("unexpected trailing content %q", p.excerpt())
	}
	return arr, nil
}

func (p *literalParser) parseValue() (any, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return nil, p.errorf("unexpected end of input")
	}
	switch c := p.src[p.pos]; {
	case c == '[':
		return p.parseArray()
	case c == '\'' || c == '"':
		return p.parseString()
	case c == '-' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	case isWordByte(c):
		switch word := p.readWord(); word {
		case "null":
			return nil, nil
		case "true":
			return true, nil
		case "false":
			return false, nil
		default:
			return nil, p.errorf("unexpected identifier %q", word)
		}
	default:
		return nil, p.errorf("unexpected character %q", c)
	}
}

func (p *literalParser) parseArray() ([]any, error) {
	p.pos++ // [
	out := []any{}
	for {
		p.skipSpace()
		if p.consume(']') {
			return out, nil
		}
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		out = append(out, v)

		p.skipSpace()
		if p.consume(',') {
			continue
		}
		if p.consume(']') {
			return out, nil
		}
		if p.pos >= len(p.src) {
			return nil, p.errorf("unterminated array")
		}
		return nil, p.errorf("expected ',' or ']' near %q", p.excerpt())
	}
}

func (p *literalParser) parseString() (string, error) {
	quote := p.src[p.pos]
	p.pos++
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return b.String(), nil
		case c == '\n':
			return "", p.errorf("newline in string literal")
		case c == '\\':
			if err := p.parseEscape(&b); err != nil {
				return "", err
			}
		default:
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			b.WriteRune(r)
			p.pos += size
		}
	}
	return "", p.errorf("unterminated string literal")
}

func (p *literalParser) parseEscape(b *strings.Builder) error {
	p.pos++ // backslash
	if p.pos >= len(p.src) {
		return p.errorf("unterminated escape")
	}
	c := p.src[p.pos]
	p.pos++
	switch c {
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case 'x', 'u':
		width := 2
		if c == 'u' {
			width = 4
		}
		if p.pos+width > len(p.src) {
			return p.errorf("short \\%c escape", c)
		}
		n, err := strconv.ParseUint(p.src[p.pos:p.pos+width], 16, 32)
		if err != nil {
			return p.errorf("invalid \\%c escape %q", c, p.src[p.pos:p.pos+width])
		}
		b.WriteRune(rune(n))
		p.pos += width
	default:
		// \' \" \\ \/ and any other escaped character stand for themselves.
		b.WriteByte(c)
	}
	return nil
}

func (p *literalParser) parseNumber() (int64, error) {
	start := p.pos
	if p.src[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	n, err := strconv.ParseInt(p.src[start:p.pos], 10, 64)
	if err != nil {
		return 0, p.errorf("invalid number %q", p.src[start:p.pos])
	}
	return n, nil
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.src) {
		switch c := p.src[p.pos]; {
		case c == '\n':
			p.line++
			p.pos++
		case c == ' ' || c == '\t' || c == '\r':
			p.pos++
		case strings.HasPrefix(p.src[p.pos:], "//"):
			end := strings.IndexByte(p.src[p.pos:], '\n')
			if end < 0 {
				p.pos = len(p.src)
				return
			}
			p.pos += end
		case strings.HasPrefix(p.src[p.pos:], "/*"):
			end := strings.Index(p.src[p.pos+2:], "*/")
			if end < 0 {
				p.pos = len(p.src)
				return
			}
			p.line += strings.Count(p.src[p.pos:p.pos+2+end], "\n")
			p.pos += end + 4
		default:
			return
		}
	}
}

func (p *literalParser) consume(c byte) bool {
	if p.pos < len(p.src) && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *literalParser) peekWord() string {
	end := p.pos
	for end < len(p.src) && isWordByte(p.src[end]) {
		end++
	}
	return p.src[p.pos:end]
}

func (p *literalParser) readWord() string {
	w := p.peekWord()
	p.pos += len(w)
	return w
}

func (p *literalParser) excerpt() string {
	end := min(p.pos+20, len(p.src))
	return p.src[p.pos:end]
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case int64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	}
	return fmt.Sprintf("%T", v)
}
