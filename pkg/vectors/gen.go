package vectors

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/lemonberrylabs/sdb/pkg/types"
)

// Generator produces random well-formed expressions over the sdb grammar
// together with their values, computed while the expression is built.
type Generator struct {
	rng *rand.Rand

	// MaxDepth bounds the nesting of generated sub-expressions.
	MaxDepth int
	// MaxNumber is the largest literal generated.
	MaxNumber uint32
	// MaxTokens drops expressions with more tokens. Zero means unlimited.
	MaxTokens int
	// Ops lists the operators to choose from.
	Ops []string
	// Spaces enables random whitespace between tokens.
	Spaces bool
}

// NewGenerator creates a generator seeded with seed so runs are
// reproducible.
func NewGenerator(seed uint64) *Generator {
	return &Generator{
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		MaxDepth:  6,
		MaxNumber: 100,
		Ops:       []string{"+", "-", "*", "/"},
		Spaces:    true,
	}
}

// node is a generated sub-expression. tier is the binding strength of its
// outermost operator; atoms and parenthesized groups bind tightest.
type node struct {
	text   string
	value  uint32
	tier   int
	tokens int
	// valid is false when some division in the subtree has a zero divisor.
	valid bool
}

const atomTier = 4

func opTier(op string) int {
	switch op {
	case "==":
		return 1
	case "+", "-":
		return 2
	default:
		return 3
	}
}

func apply(op string, a, b uint32) uint32 {
	switch op {
	case "+":
		return a + b
	case "-":
		return a - b
	case "*":
		return a * b
	case "/":
		return a / b
	case "==":
		if a == b {
			return 1
		}
		return 0
	}
	panic("vectors: unknown operator " + op)
}

func group(n node) node {
	return node{text: "(" + n.text + ")", value: n.value, tier: atomTier, tokens: n.tokens + 2, valid: n.valid}
}

// Expression returns one random expression. It may divide by zero.
func (g *Generator) Expression() string {
	return g.gen(0).text
}

// Vector returns one random expression with its expected value, or false
// when the expression divides by zero or exceeds MaxTokens.
func (g *Generator) Vector() (Vector, bool) {
	n := g.gen(0)
	if !n.valid || (g.MaxTokens > 0 && n.tokens > g.MaxTokens) {
		return Vector{}, false
	}
	return Vector{Expr: n.text, Want: types.Word(n.value)}, true
}

func (g *Generator) gen(depth int) node {
	choice := g.rng.IntN(3)
	if depth >= g.MaxDepth {
		choice = 0
	}

	switch choice {
	case 0:
		v := g.number()
		text := g.space() + strconv.FormatUint(uint64(v), 10) + g.space()
		return node{text: text, value: v, tier: atomTier, tokens: 1, valid: true}
	case 1:
		return group(g.gen(depth + 1))
	default:
		left := g.gen(depth + 1)
		op := g.Ops[g.rng.IntN(len(g.Ops))]
		right := g.gen(depth + 1)

		// Operators are left-associative: a left operand needs parentheses
		// only when it binds looser, a right operand also when it binds the
		// same.
		t := opTier(op)
		if left.tier < t {
			left = group(left)
		}
		if right.tier <= t {
			right = group(right)
		}

		n := node{
			text:   left.text + op + right.text,
			tier:   t,
			tokens: left.tokens + 1 + right.tokens,
			valid:  left.valid && right.valid,
		}
		if op == "/" && right.value == 0 {
			n.valid = false
		}
		if n.valid {
			n.value = apply(op, left.value, right.value)
		}
		return n
	}
}

func (g *Generator) number() uint32 {
	if g.MaxNumber == math.MaxUint32 {
		return g.rng.Uint32()
	}
	return g.rng.Uint32N(g.MaxNumber + 1)
}

func (g *Generator) space() string {
	if g.Spaces && g.rng.IntN(4) == 0 {
		return " "
	}
	return ""
}

// maxAttempts bounds regeneration when expressions keep being dropped.
const maxAttempts = 1000

// Generate returns n vectors. Expressions that divide by zero or exceed
// MaxTokens are discarded and regenerated.
func (g *Generator) Generate(n int) ([]Vector, error) {
	result := make([]Vector, 0, n)
	for len(result) < n {
		var v Vector
		ok := false
		for attempt := 0; attempt < maxAttempts && !ok; attempt++ {
			v, ok = g.Vector()
		}
		if !ok {
			return result, fmt.Errorf("no valid expression after %d attempts", maxAttempts)
		}
		result = append(result, v)
	}
	return result, nil
}
