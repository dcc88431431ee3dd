package syntax

// TokenType represents the type of a token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenError
	TokenIdent  // foo, x4, s0
	TokenString // "hello\n"
	TokenLParen // (
	TokenRParen // )
)

var tokenNames = map[TokenType]string{
	TokenEOF:    "EOF",
	TokenError:  "ERROR",
	TokenIdent:  "IDENT",
	TokenString: "STRING",
	TokenLParen: "(",
	TokenRParen: ")",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// Token is a lexical token. For strings, Literal holds the decoded bytes.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
}
