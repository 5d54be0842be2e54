package prototxt

import (
	"fmt"
	"os"
)

// A ParseError reports malformed text format input.
type ParseError struct {
	Message string

	// Line and Column are 1-based.
	Line   int
	Column int
}

// Error produces an error message that incorporates the position.
func (p *ParseError) Error() string {
	return fmt.Sprintf("line %d:%d: %s", p.Line, p.Column, p.Message)
}

// Parse parses a text format document into its root message.
func Parse(src string) (*Message, error) {
	p := &parser{lex: newLexer(src)}
	if err := p.fill(); err != nil {
		return nil, err
	}
	msg, err := p.parseMessage(tokEOF)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// ParseFile reads and parses the document at path.
func ParseFile(path string) (*Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	msg, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return msg, nil
}

type parser struct {
	lex *lexer
	tok token
}

func (p *parser) fill() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) errorf(tok token, format string, args ...any) error {
	return &ParseError{Message: fmt.Sprintf(format, args...), Line: tok.line, Column: tok.col}
}

func (p *parser) expect(kind tokenKind) (token, error) {
	tok := p.tok
	if tok.kind != kind {
		return tok, p.errorf(tok, "expected %v, found %v", kind, describe(tok))
	}
	return tok, p.fill()
}

// parseMessage reads fields until the end token (EOF for the root, '}'
// for nested messages). The end token is left for the caller.
func (p *parser) parseMessage(end tokenKind) (*Message, error) {
	msg := &Message{}
	for p.tok.kind != end {
		if p.tok.kind == tokEOF {
			return nil, p.errorf(p.tok, "unexpected end of input, missing '}'")
		}
		if err := p.parseField(msg); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

func (p *parser) parseField(msg *Message) error {
	name, err := p.expect(tokIdent)
	if err != nil {
		return err
	}

	hasColon := p.tok.kind == tokColon
	if hasColon {
		if err := p.fill(); err != nil {
			return err
		}
	}

	switch p.tok.kind {
	case tokLBrace:
		sub, err := p.parseBlock()
		if err != nil {
			return err
		}
		msg.Fields = append(msg.Fields, Field{Name: name.text, Value: Value{Message: sub}, Line: name.line})
	case tokLBracket:
		if !hasColon {
			return p.errorf(p.tok, "expected ':' after field %q", name.text)
		}
		if err := p.parseList(msg, name); err != nil {
			return err
		}
	default:
		if !hasColon {
			return p.errorf(p.tok, "expected ':' or '{' after field %q, found %v", name.text, describe(p.tok))
		}
		v, err := p.parseScalar()
		if err != nil {
			return err
		}
		msg.Fields = append(msg.Fields, Field{Name: name.text, Value: v, Line: name.line})
	}

	// Optional separators.
	if p.tok.kind == tokSemicolon || p.tok.kind == tokComma {
		return p.fill()
	}
	return nil
}

func (p *parser) parseBlock() (*Message, error) {
	open, err := p.expect(tokLBrace)
	if err != nil {
		return nil, err
	}
	sub, err := p.parseMessage(tokRBrace)
	if err != nil {
		return nil, err
	}
	if (open.text == "<") != (p.tok.text == ">") {
		return nil, p.errorf(p.tok, "mismatched %s closing %s", p.tok.text, open.text)
	}
	if err := p.fill(); err != nil {
		return nil, err
	}
	return sub, nil
}

// parseList expands "name: [a, b]" into repeated fields.
func (p *parser) parseList(msg *Message, name token) error {
	if err := p.fill(); err != nil {
		return err
	}
	for p.tok.kind != tokRBracket {
		var v Value
		if p.tok.kind == tokLBrace {
			sub, err := p.parseBlock()
			if err != nil {
				return err
			}
			v = Value{Message: sub}
		} else {
			s, err := p.parseScalar()
			if err != nil {
				return err
			}
			v = s
		}
		msg.Fields = append(msg.Fields, Field{Name: name.text, Value: v, Line: name.line})

		if p.tok.kind == tokComma {
			if err := p.fill(); err != nil {
				return err
			}
		} else if p.tok.kind != tokRBracket {
			return p.errorf(p.tok, "expected ',' or ']' in list, found %v", describe(p.tok))
		}
	}
	return p.fill()
}

func (p *parser) parseScalar() (Value, error) {
	tok := p.tok
	switch tok.kind {
	case tokString:
		text := tok.text
		if err := p.fill(); err != nil {
			return Value{}, err
		}
		// Adjacent string literals concatenate.
		for p.tok.kind == tokString {
			text += p.tok.text
			if err := p.fill(); err != nil {
				return Value{}, err
			}
		}
		return Value{Text: text, Quoted: true}, nil
	case tokIdent, tokNumber:
		if err := p.fill(); err != nil {
			return Value{}, err
		}
		return Value{Text: tok.text}, nil
	default:
		return Value{}, p.errorf(tok, "expected a value, found %v", describe(tok))
	}
}

func describe(tok token) string {
	switch tok.kind {
	case tokIdent, tokNumber:
		return fmt.Sprintf("%v %q", tok.kind, tok.text)
	default:
		return tok.kind.String()
	}
}
