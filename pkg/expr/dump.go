package expr

import "strings"

// Dump re-serializes the inclusive token span [p, q] without whitespace.
func Dump(tokens []Token, p, q int) string {
	var sb strings.Builder
	for i := p; i <= q && i < len(tokens); i++ {
		if i < 0 {
			continue
		}
		if tokens[i].Kind == TokenInt {
			sb.WriteString(tokens[i].Text)
			continue
		}
		sb.WriteString(tokens[i].Kind.Symbol())
	}
	return sb.String()
}
