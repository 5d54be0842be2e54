package prototxt

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokColon
	tokLBrace
	tokRBrace
	tokLBracket
	tokRBracket
	tokComma
	tokSemicolon
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokIdent:
		return "identifier"
	case tokNumber:
		return "number"
	case tokString:
		return "string"
	case tokColon:
		return "':'"
	case tokLBrace:
		return "'{'"
	case tokRBrace:
		return "'}'"
	case tokLBracket:
		return "'['"
	case tokRBracket:
		return "']'"
	case tokComma:
		return "','"
	case tokSemicolon:
		return "';'"
	default:
		return "unknown token"
	}
}

type token struct {
	kind tokenKind
	text string // decoded text for strings
	line int
	col  int
}

// lexer splits text format input into tokens. Line and column are 1-based.
type lexer struct {
	src  string
	pos  int
	line int
	col  int
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1, col: 1}
}

func (l *lexer) errorf(line, col int, format string, args ...any) error {
	return &ParseError{Message: fmt.Sprintf(format, args...), Line: line, Column: col}
}

func (l *lexer) advance() byte {
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return c
}

func (l *lexer) skipSpaceAndComments() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.advance()
			}
		case c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == '\v':
			l.advance()
		default:
			return
		}
	}
}

func (l *lexer) next() (token, error) {
	l.skipSpaceAndComments()
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, line: l.line, col: l.col}, nil
	}

	line, col := l.line, l.col
	c := l.src[l.pos]
	switch c {
	case ':':
		l.advance()
		return token{kind: tokColon, text: ":", line: line, col: col}, nil
	case '{', '<':
		l.advance()
		return token{kind: tokLBrace, text: string(c), line: line, col: col}, nil
	case '}', '>':
		l.advance()
		return token{kind: tokRBrace, text: string(c), line: line, col: col}, nil
	case '[':
		l.advance()
		return token{kind: tokLBracket, text: "[", line: line, col: col}, nil
	case ']':
		l.advance()
		return token{kind: tokRBracket, text: "]", line: line, col: col}, nil
	case ',':
		l.advance()
		return token{kind: tokComma, text: ",", line: line, col: col}, nil
	case ';':
		l.advance()
		return token{kind: tokSemicolon, text: ";", line: line, col: col}, nil
	case '"', '\'':
		text, err := l.readString()
		if err != nil {
			return token{}, err
		}
		return token{kind: tokString, text: text, line: line, col: col}, nil
	}

	switch {
	case isIdentStart(c):
		start := l.pos
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.advance()
		}
		return token{kind: tokIdent, text: l.src[start:l.pos], line: line, col: col}, nil
	case isNumberStart(c):
		start := l.pos
		l.advance()
		for l.pos < len(l.src) && isNumberPart(l.src[l.pos], l.src[l.pos-1]) {
			l.advance()
		}
		return token{kind: tokNumber, text: l.src[start:l.pos], line: line, col: col}, nil
	}
	return token{}, l.errorf(line, col, "unexpected character %q", c)
}

// readString reads a quoted string, handling the C-style escapes protobuf
// text format allows. Adjacent literals are not concatenated here.
func (l *lexer) readString() (string, error) {
	line, col := l.line, l.col
	quote := l.advance()
	var sb strings.Builder
	for {
		if l.pos >= len(l.src) || l.src[l.pos] == '\n' {
			return "", l.errorf(line, col, "unterminated string")
		}
		c := l.advance()
		if c == quote {
			return sb.String(), nil
		}
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}
		if l.pos >= len(l.src) {
			return "", l.errorf(line, col, "unterminated string")
		}
		switch e := l.advance(); e {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case '\\', '\'', '"', '?':
			sb.WriteByte(e)
		default:
			return "", l.errorf(l.line, l.col-2, "unsupported escape \\%c", e)
		}
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isNumberStart(c byte) bool {
	return c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9')
}

func isNumberPart(c, prev byte) bool {
	switch {
	case c >= '0' && c <= '9', c == '.':
		return true
	case c == 'e' || c == 'E' || c == 'x' || c == 'X' || c == 'f' || c == 'F':
		return true
	case (c >= 'a' && c <= 'd') || (c >= 'A' && c <= 'D'):
		// hex digits
		return true
	case (c == '-' || c == '+') && (prev == 'e' || prev == 'E'):
		return true
	}
	return false
}
