package syntax

import (
	"fmt"
	"strings"
)

// Lexer tokenizes term source. It works on bytes: string literals may
// contain arbitrary bytes through \x escapes.
type Lexer struct {
	input     string
	pos       int
	line      int
	lineStart int
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input, line: 1}
}

func (l *Lexer) position() Position {
	return Position{Offset: l.pos, Line: l.line, Column: l.pos - l.lineStart + 1}
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) advance() byte {
	c := l.input[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.lineStart = l.pos
	}
	return c
}

func (l *Lexer) skipWhitespaceAndComments() {
	for l.pos < len(l.input) {
		switch c := l.peek(); {
		case c == ';':
			for l.pos < len(l.input) && l.peek() != '\n' {
				l.advance()
			}
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.advance()
		default:
			return
		}
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()
	pos := l.position()
	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: pos}
	}
	switch c := l.peek(); c {
	case '(':
		l.advance()
		return Token{Type: TokenLParen, Literal: "(", Pos: pos}
	case ')':
		l.advance()
		return Token{Type: TokenRParen, Literal: ")", Pos: pos}
	case '"':
		return l.readString(pos)
	default:
		start := l.pos
		for l.pos < len(l.input) && isIdentByte(l.peek()) {
			l.advance()
		}
		if l.pos == start {
			l.advance()
			return Token{Type: TokenError, Literal: fmt.Sprintf("unexpected character %q", c), Pos: pos}
		}
		return Token{Type: TokenIdent, Literal: l.input[start:l.pos], Pos: pos}
	}
}

func isIdentByte(c byte) bool {
	switch c {
	case 0, ' ', '\t', '\n', '\r', '(', ')', '"', ';':
		return false
	}
	return c > ' ' && c < 0x7f
}

func (l *Lexer) readString(pos Position) Token {
	l.advance() // opening quote
	var sb strings.Builder
	for {
		if l.pos >= len(l.input) {
			return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
		}
		c := l.advance()
		switch c {
		case '"':
			return Token{Type: TokenString, Literal: sb.String(), Pos: pos}
		case '\\':
			if l.pos >= len(l.input) {
				return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
			}
			e := l.advance()
			switch e {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '0':
				sb.WriteByte(0)
			case '\\', '"':
				sb.WriteByte(e)
			case 'x':
				if l.pos+2 > len(l.input) {
					return Token{Type: TokenError, Literal: "short \\x escape", Pos: pos}
				}
				hi, ok1 := unhex(l.advance())
				lo, ok2 := unhex(l.advance())
				if !ok1 || !ok2 {
					return Token{Type: TokenError, Literal: "invalid \\x escape", Pos: pos}
				}
				sb.WriteByte(hi<<4 | lo)
			default:
				return Token{Type: TokenError, Literal: fmt.Sprintf("unknown escape \\%c", e), Pos: pos}
			}
		default:
			sb.WriteByte(c)
		}
	}
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
