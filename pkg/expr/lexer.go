package expr

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lemonberrylabs/sdb/pkg/types"
)

// Lexer tokenizes an sdb expression string using a RuleTable.
type Lexer struct {
	input  string
	pos    int
	tokens []Token

	rules      *RuleTable
	maxTokens  int // 0 means unlimited
	maxLiteral int // 0 means unlimited
	logger     zerolog.Logger
}

// NewLexer creates a lexer for the given input using the default rules.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input, rules: DefaultRules, logger: zerolog.Nop()}
}

// Tokenize scans the entire input and returns all non-whitespace tokens
// in source order. Each call starts from a fresh token sequence.
func (l *Lexer) Tokenize() ([]Token, error) {
	l.pos = 0
	l.tokens = l.tokens[:0]

	for l.pos < len(l.input) {
		i, n, ok := l.rules.Match(l.input, l.pos)
		if !ok {
			return nil, types.NewLexError(l.pos)
		}
		rule := l.rules.Rule(i)
		text := l.input[l.pos : l.pos+n]

		l.logger.Debug().
			Int("rule", i).
			Str("pattern", rule.Pattern).
			Int("pos", l.pos).
			Int("len", n).
			Str("text", text).
			Msg("match")

		if rule.Kind == TokenSpace {
			l.pos += n
			continue
		}
		if l.maxTokens > 0 && len(l.tokens) >= l.maxTokens {
			return nil, types.NewCapacityError(
				fmt.Sprintf("too many tokens (max %d)", l.maxTokens), l.pos)
		}
		if rule.Kind == TokenInt && l.maxLiteral > 0 && n > l.maxLiteral {
			return nil, types.NewCapacityError(
				fmt.Sprintf("integer literal longer than %d characters", l.maxLiteral), l.pos)
		}

		l.tokens = append(l.tokens, Token{Kind: rule.Kind, Text: text, Pos: l.pos})
		l.pos += n
	}

	return l.tokens, nil
}
