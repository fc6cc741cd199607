package expr

import "github.com/lemonberrylabs/sdb/pkg/types"

// precedence returns the binding tier of an operator kind; lower binds
// looser and is split first. Non-operators return 0.
func precedence(k TokenKind) int {
	switch k {
	case TokenEq:
		return 1
	case TokenPlus, TokenMinus:
		return 2
	case TokenStar, TokenSlash:
		return 3
	default:
		return 0
	}
}

// FindMainOp returns the index of the operator in [p, q] that is evaluated
// last: the right-most depth-0 operator of the loosest tier present. Taking
// the right-most one keeps chains of same-tier operators left-associative.
// The last token is never a candidate since its right operand would be
// empty.
func FindMainOp(tokens []Token, p, q int) (int, error) {
	depth := 0
	index := -1
	best := 0

	for i := p; i <= q; i++ {
		switch tokens[i].Kind {
		case TokenLParen:
			depth++
		case TokenRParen:
			depth--
		}
		if depth != 0 || i == q {
			continue
		}

		tier := precedence(tokens[i].Kind)
		if tier == 0 {
			continue
		}
		if index < 0 || tier <= best {
			index = i
			best = tier
		}
	}

	if index < 0 {
		return -1, types.NewParseError("no operator at top level", p, q)
	}
	return index, nil
}
