package expr

// SpanClass is the result of classifying a token span's parenthesization.
type SpanClass int

const (
	// NotWrapped means the span is not one parenthesized group.
	NotWrapped SpanClass = iota
	// WrappedBalanced means the outer parentheses enclose the whole span.
	WrappedBalanced
	// WrappedUnbalanced means the span starts with ( and ends with ) but
	// the parentheses inside do not balance.
	WrappedUnbalanced
)

func (c SpanClass) String() string {
	switch c {
	case NotWrapped:
		return "not-wrapped"
	case WrappedBalanced:
		return "wrapped"
	case WrappedUnbalanced:
		return "wrapped-unbalanced"
	default:
		return "unknown"
	}
}

// CheckParentheses classifies the inclusive span [p, q]. The span is
// WrappedBalanced only if tokens[p] is ( and its matching ) is tokens[q]:
// the running balance stays positive until q and reaches zero exactly there.
// "(1)+(2)" is therefore NotWrapped.
func CheckParentheses(tokens []Token, p, q int) SpanClass {
	if q-p < 2 {
		return NotWrapped
	}
	if tokens[p].Kind != TokenLParen || tokens[q].Kind != TokenRParen {
		return NotWrapped
	}

	depth := 0
	closedEarly := false
	for i := p; i <= q; i++ {
		switch tokens[i].Kind {
		case TokenLParen:
			depth++
		case TokenRParen:
			depth--
		}
		if depth < 0 {
			return WrappedUnbalanced
		}
		if depth == 0 && i < q {
			closedEarly = true
		}
	}

	if depth != 0 {
		return WrappedUnbalanced
	}
	if closedEarly {
		return NotWrapped
	}
	return WrappedBalanced
}
