package syntax

import (
	"fmt"
	"strings"

	"github.com/chazu/mmout/env"
)

// Scope resolves names while parsing.
type Scope struct {
	Env     env.Lookup
	Params  []env.Binder // become VarValue by position
	Dummies []env.Binder // become DummyValue
	// String expands a string literal. Literals are rejected when nil.
	String func([]byte) (env.Value, error)
}

// ParseError collects the errors found in one input. Err holds the first
// error returned by a Scope hook, if any.
type ParseError struct {
	Errors []string
	Err    error
}

func (e *ParseError) Error() string { return strings.Join(e.Errors, "; ") }
func (e *ParseError) Unwrap() error { return e.Err }

// Parser is a recursive descent parser over the term language.
type Parser struct {
	lexer     *Lexer
	scope     *Scope
	curToken  Token
	peekToken Token
	errors    []string
	err       error
}

// NewParser creates a parser for input resolving names in scope.
func NewParser(input string, scope *Scope) *Parser {
	p := &Parser{lexer: NewLexer(input), scope: scope}
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) errorf(format string, args ...interface{}) {
	msg := fmt.Sprintf("line %d: %s", p.curToken.Pos.Line, fmt.Sprintf(format, args...))
	p.errors = append(p.errors, msg)
}

// Errors returns accumulated parse errors.
func (p *Parser) Errors() []string {
	return p.errors
}

// Parse parses exactly one expression.
func Parse(input string, scope *Scope) (env.Value, error) {
	p := NewParser(input, scope)
	v := p.ParseExpression()
	if len(p.errors) == 0 && !p.curTokenIs(TokenEOF) {
		p.errorf("unexpected %s after expression", p.curToken.Type)
	}
	if len(p.errors) > 0 {
		return nil, &ParseError{Errors: p.errors, Err: p.err}
	}
	return v, nil
}

// ParseAll parses a whitespace-separated sequence of expressions.
func ParseAll(input string, scope *Scope) ([]env.Value, error) {
	p := NewParser(input, scope)
	var vs []env.Value
	for !p.curTokenIs(TokenEOF) && len(p.errors) == 0 {
		vs = append(vs, p.ParseExpression())
	}
	if len(p.errors) > 0 {
		return nil, &ParseError{Errors: p.errors, Err: p.err}
	}
	return vs, nil
}

// ParseExpression parses one expression starting at the current token.
func (p *Parser) ParseExpression() env.Value {
	tok := p.curToken
	switch tok.Type {
	case TokenIdent:
		p.nextToken()
		return p.resolveAtom(tok.Literal)
	case TokenString:
		p.nextToken()
		if p.scope.String == nil {
			p.errorf("string literals are not available here")
			return nil
		}
		v, err := p.scope.String([]byte(tok.Literal))
		if err != nil {
			p.errorf("%v", err)
			if p.err == nil {
				p.err = err
			}
			return nil
		}
		return v
	case TokenLParen:
		p.nextToken()
		return p.parseApplication()
	case TokenError:
		p.errorf("%s", tok.Literal)
		p.nextToken()
		return nil
	default:
		p.errorf("unexpected %s", tok.Type)
		p.nextToken()
		return nil
	}
}

// parseApplication parses the rest of "( name expr* )".
func (p *Parser) parseApplication() env.Value {
	if !p.curTokenIs(TokenIdent) {
		p.errorf("expected term name, got %s", p.curToken.Type)
		return nil
	}
	name := p.curToken.Literal
	p.nextToken()
	t, ok := p.scope.Env.TermByName(name)
	if !ok {
		p.errorf("unknown term '%s'", name)
		return nil
	}
	var args []env.Value
	for !p.curTokenIs(TokenRParen) {
		if p.curTokenIs(TokenEOF) {
			p.errorf("missing ')' after application of '%s'", name)
			return nil
		}
		args = append(args, p.ParseExpression())
		if len(p.errors) > 0 {
			return nil
		}
	}
	p.nextToken()
	if want := len(p.scope.Env.Term(t).Args); want != len(args) {
		p.errorf("'%s' expects %d arguments, got %d", name, want, len(args))
		return nil
	}
	return &env.AppValue{Term: t, Args: args}
}

func (p *Parser) resolveAtom(name string) env.Value {
	for i, b := range p.scope.Params {
		if b.Name == name {
			return &env.VarValue{Index: i}
		}
	}
	for _, b := range p.scope.Dummies {
		if b.Name == name {
			return &env.DummyValue{Name: b.Name, Sort: b.Sort}
		}
	}
	t, ok := p.scope.Env.TermByName(name)
	if !ok {
		p.errorf("unknown name '%s'", name)
		return nil
	}
	if n := len(p.scope.Env.Term(t).Args); n != 0 {
		p.errorf("'%s' expects %d arguments, got 0", name, n)
		return nil
	}
	return &env.AppValue{Term: t}
}
