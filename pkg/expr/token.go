// Package expr implements the sdb expression evaluator: a table-driven
// lexer and a recursive evaluator that splits token spans at their main
// operator instead of building a syntax tree.
package expr

// TokenKind represents the kind of a lexical token.
type TokenKind int

const (
	TokenSpace  TokenKind = iota // whitespace, never stored
	TokenPlus                    // +
	TokenMinus                   // -
	TokenStar                    // *
	TokenSlash                   // /
	TokenEq                      // ==
	TokenInt                     // decimal integer literal
	TokenLParen                  // (
	TokenRParen                  // )
)

// Token represents a single lexical token.
type Token struct {
	Kind TokenKind
	Text string // matched source text; the literal digits for TokenInt
	Pos  int    // byte offset in source
}

// String returns a debug-friendly representation of the token kind.
func (k TokenKind) String() string {
	switch k {
	case TokenSpace:
		return "SPACE"
	case TokenPlus:
		return "PLUS"
	case TokenMinus:
		return "MINUS"
	case TokenStar:
		return "STAR"
	case TokenSlash:
		return "SLASH"
	case TokenEq:
		return "EQ"
	case TokenInt:
		return "INT"
	case TokenLParen:
		return "LPAREN"
	case TokenRParen:
		return "RPAREN"
	default:
		return "UNKNOWN"
	}
}

// Symbol returns the source spelling of an operator or parenthesis kind.
func (k TokenKind) Symbol() string {
	switch k {
	case TokenPlus:
		return "+"
	case TokenMinus:
		return "-"
	case TokenStar:
		return "*"
	case TokenSlash:
		return "/"
	case TokenEq:
		return "=="
	case TokenLParen:
		return "("
	case TokenRParen:
		return ")"
	default:
		return ""
	}
}

// IsOperator reports whether the kind is a binary operator.
func (k TokenKind) IsOperator() bool {
	switch k {
	case TokenPlus, TokenMinus, TokenStar, TokenSlash, TokenEq:
		return true
	}
	return false
}
