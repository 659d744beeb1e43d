// Package scanner tokenizes hookscript source text (spec.md §4.3 "Lexical
// form"). The scanning style — a byte-offset cursor advanced one rune at a
// time, an error callback rather than a returned error, and a file/position
// handle threaded through every token — is adapted from the teacher's
// lang/scanner, trimmed to this grammar's much smaller lexical form: no
// floats, one string-literal form, and a fixed keyword/punctuation set.
package scanner

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/just-dont/OpenXcom/lang/token"
)

// Scanner tokenizes a single script's source text.
type Scanner struct {
	file *token.File
	src  []byte
	err  func(pos token.Position, msg string)

	cur  rune
	off  int
	roff int
}

// Init prepares s to scan src, whose length must equal file.Size(). Errors
// encountered while scanning are reported to errHandler rather than
// returned, matching the teacher's scanner (spec.md §7: the core reports
// failures through structured values, never panics or writes directly).
func (s *Scanner) Init(file *token.File, src []byte, errHandler func(token.Position, string)) {
	if file.Size() != len(src) {
		panic(fmt.Sprintf("scanner: file size (%d) does not match src len (%d)", file.Size(), len(src)))
	}
	s.file = file
	s.src = src
	s.err = errHandler
	s.cur = ' '
	s.off = 0
	s.roff = 0
	s.advance()
}

func (s *Scanner) peek() byte {
	if s.roff < len(s.src) {
		return s.src[s.roff]
	}
	return 0
}

func (s *Scanner) advance() {
	if s.roff >= len(s.src) {
		s.off = len(s.src)
		if s.cur == '\n' {
			s.file.AddLine(s.off)
		}
		s.cur = -1
		return
	}
	s.off = s.roff
	if s.cur == '\n' {
		s.file.AddLine(s.off)
	}
	r, w := rune(s.src[s.roff]), 1
	if r >= utf8.RuneSelf {
		r, w = utf8.DecodeRune(s.src[s.roff:])
		if r == utf8.RuneError && w == 1 {
			s.error(s.off, "illegal UTF-8 encoding")
		}
	}
	s.roff += w
	s.cur = r
}

func (s *Scanner) error(off int, msg string) {
	if s.err != nil {
		s.err(s.file.Position(s.file.Pos(off)), msg)
	}
}

func (s *Scanner) errorf(off int, format string, args ...any) {
	s.error(off, fmt.Sprintf(format, args...))
}

func (s *Scanner) advanceIf(b byte) bool {
	if s.cur == rune(b) {
		s.advance()
		return true
	}
	return false
}

// Scan returns the next token in the source, filling tokVal with its
// position and, for IDENT/INT/STRING, its decoded value.
func (s *Scanner) Scan(tokVal *token.Value) token.Token {
	s.skipWhitespaceAndComments()

	pos := s.file.Pos(s.off)
	start := s.off

	switch cur := s.cur; {
	case isIdentStart(cur):
		lit := s.ident()
		tok := token.LookupIdent(lit)
		*tokVal = token.Value{Raw: lit, Pos: pos}
		return tok

	case isDigit(cur):
		lit, v, err := s.number()
		*tokVal = token.Value{Raw: lit, Pos: pos, Int: v}
		if err != nil {
			s.error(start, err.Error())
		}
		return token.INT

	case cur == '-' && isDigit(rune(s.peek())):
		s.advance() // consume '-'
		lit, v, err := s.number()
		lit = "-" + lit
		*tokVal = token.Value{Raw: lit, Pos: pos, Int: -v}
		if err != nil {
			s.error(start, err.Error())
		}
		return token.INT

	default:
		s.advance()
		switch cur {
		case ';':
			*tokVal = token.Value{Raw: ";", Pos: pos}
			return token.SEMI
		case '{':
			*tokVal = token.Value{Raw: "{", Pos: pos}
			return token.LBRACE
		case '}':
			*tokVal = token.Value{Raw: "}", Pos: pos}
			return token.RBRACE
		case '=':
			*tokVal = token.Value{Raw: "=", Pos: pos}
			return token.ASSIGN
		case '"':
			lit, val := s.shortString()
			*tokVal = token.Value{Raw: lit, Pos: pos, String: val}
			return token.STRING
		case -1:
			*tokVal = token.Value{Raw: "", Pos: pos}
			return token.EOF
		default:
			s.errorf(start, "illegal character %#U", cur)
			*tokVal = token.Value{Raw: string(cur), Pos: pos}
			return token.ILLEGAL
		}
	}
}

func (s *Scanner) skipWhitespaceAndComments() {
	for {
		for isWhitespace(s.cur) {
			s.advance()
		}
		if s.cur == '#' {
			for s.cur != '\n' && s.cur != -1 {
				s.advance()
			}
			continue
		}
		break
	}
}

func (s *Scanner) ident() string {
	start := s.off
	for isIdentPart(s.cur) {
		s.advance()
	}
	return string(s.src[start:s.off])
}

// number scans a decimal or 0x-prefixed hex integer literal (spec.md §4.3
// "signed decimal and hex integers"; the leading sign, if any, is consumed
// by the caller).
func (s *Scanner) number() (lit string, v int64, err error) {
	start := s.off
	base := 10
	if s.cur == '0' && (s.peek() == 'x' || s.peek() == 'X') {
		base = 16
		s.advance()
		s.advance()
		for isHexDigit(s.cur) {
			s.advance()
		}
	} else {
		for isDigit(s.cur) {
			s.advance()
		}
	}
	lit = string(s.src[start:s.off])
	digits := lit
	if base == 16 {
		digits = lit[2:]
	}
	v, parseErr := strconv.ParseInt(digits, base, 64)
	if parseErr != nil {
		return lit, 0, fmt.Errorf("invalid integer literal %q: %w", lit, parseErr)
	}
	return lit, v, nil
}

// shortString scans a double-quoted string literal, with the same
// backslash escapes as the teacher's scanner (\n \t \\ \").
func (s *Scanner) shortString() (lit, val string) {
	start := s.off - 1 // include the opening quote
	var b strings.Builder
	for {
		if s.cur == '"' || s.cur == -1 {
			break
		}
		if s.cur == '\\' {
			s.advance()
			switch s.cur {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '\\', '"':
				b.WriteRune(s.cur)
			default:
				b.WriteByte('\\')
				b.WriteRune(s.cur)
			}
			s.advance()
			continue
		}
		b.WriteRune(s.cur)
		s.advance()
	}
	if s.cur == '"' {
		s.advance()
	} else {
		s.error(s.off, "unterminated string literal")
	}
	return string(s.src[start:s.off]), b.String()
}

func isWhitespace(r rune) bool { return r == ' ' || r == '\t' || r == '\n' || r == '\r' }

func isIdentStart(r rune) bool {
	return 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || r == '_' ||
		r >= utf8.RuneSelf && unicode.IsLetter(r)
}

// isIdentPart additionally allows '.', per spec.md §4.3's identifier regex
// "[A-Za-z_][A-Za-z0-9_.]*" — dotted names like "obj.field" are scanned as
// a single IDENT token, and the compiler looks such a name up by its full
// dotted text; it does not split off a prefix.
func isIdentPart(r rune) bool {
	return isIdentStart(r) || isDigit(r) || r == '.'
}

func isDigit(r rune) bool    { return '0' <= r && r <= '9' }
func isHexDigit(r rune) bool { return isDigit(r) || 'a' <= r && r <= 'f' || 'A' <= r && r <= 'F' }
