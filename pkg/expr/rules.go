package expr

import (
	"fmt"
	"regexp"
)

// Rule pairs a pattern with the token kind it produces.
type Rule struct {
	Pattern string
	Kind    TokenKind
}

// Order matters: at each position the first matching rule wins, not the
// longest match.
var defaultRules = []Rule{
	{` +`, TokenSpace},
	{`\+`, TokenPlus},
	{`-`, TokenMinus},
	{`\*`, TokenStar},
	{`/`, TokenSlash},
	{`==`, TokenEq},
	{`[0-9]+`, TokenInt},
	{`\(`, TokenLParen},
	{`\)`, TokenRParen},
}

// RuleTable is an ordered, compiled list of lexer rules. It is immutable
// after construction and safe for concurrent use.
type RuleTable struct {
	rules []Rule
	re    []*regexp.Regexp
}

// CompileRules compiles every rule anchored at the start of its input.
func CompileRules(rules []Rule) (*RuleTable, error) {
	t := &RuleTable{
		rules: append([]Rule(nil), rules...),
		re:    make([]*regexp.Regexp, len(rules)),
	}
	for i, r := range rules {
		re, err := regexp.Compile(`^(?:` + r.Pattern + `)`)
		if err != nil {
			return nil, fmt.Errorf("rule %d %q: %w", i, r.Pattern, err)
		}
		t.re[i] = re
	}
	return t, nil
}

// MustCompileRules is like CompileRules but panics on a malformed pattern.
func MustCompileRules(rules []Rule) *RuleTable {
	t, err := CompileRules(rules)
	if err != nil {
		panic("regex compilation failed: " + err.Error())
	}
	return t
}

// DefaultRules is the compiled rule table for the sdb grammar. It is built
// during package initialization.
var DefaultRules = MustCompileRules(defaultRules)

// Match tries every rule in table order against text starting exactly at
// pos and returns the index of the first rule that matches a non-empty
// prefix together with the matched length.
func (t *RuleTable) Match(text string, pos int) (index, length int, ok bool) {
	rest := text[pos:]
	for i, re := range t.re {
		loc := re.FindStringIndex(rest)
		if loc == nil || loc[1] == 0 {
			continue
		}
		return i, loc[1], true
	}
	return -1, 0, false
}

// Rule returns the i'th rule of the table.
func (t *RuleTable) Rule(i int) Rule {
	return t.rules[i]
}

// Len returns the number of rules.
func (t *RuleTable) Len() int {
	return len(t.rules)
}
