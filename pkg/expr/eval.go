package expr

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lemonberrylabs/sdb/pkg/types"
)

// Evaluator lexes and evaluates expressions. It holds no per-call state,
// so one Evaluator may be shared between goroutines.
type Evaluator struct {
	rules      *RuleTable
	maxTokens  int
	maxLiteral int
	logger     zerolog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger that receives lexer and evaluation traces at
// debug level.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Evaluator) { e.logger = l }
}

// WithMaxTokens bounds the number of tokens per expression. Zero disables
// the bound.
func WithMaxTokens(n int) Option {
	return func(e *Evaluator) { e.maxTokens = n }
}

// WithMaxLiteral bounds the length of an integer literal. Zero disables
// the bound.
func WithMaxLiteral(n int) Option {
	return func(e *Evaluator) { e.maxLiteral = n }
}

// WithRules replaces the rule table.
func WithRules(t *RuleTable) Option {
	return func(e *Evaluator) { e.rules = t }
}

// NewEvaluator creates an Evaluator using the default rule table.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{rules: DefaultRules, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tokenize runs the lexer over input.
func (e *Evaluator) Tokenize(input string) ([]Token, error) {
	l := &Lexer{
		input:      input,
		rules:      e.rules,
		maxTokens:  e.maxTokens,
		maxLiteral: e.maxLiteral,
		logger:     e.logger,
	}
	return l.Tokenize()
}

// Evaluate lexes input and reduces the whole token sequence to a word.
func (e *Evaluator) Evaluate(input string) (types.Word, error) {
	tokens, err := e.Tokenize(input)
	if err != nil {
		return 0, err
	}
	if len(tokens) == 0 {
		return 0, types.NewParseError("empty expression", 0, -1)
	}

	v, err := e.eval(tokens, 0, len(tokens)-1)
	if err != nil {
		e.logger.Debug().Str("expr", input).Err(err).Msg("evaluation failed")
		return 0, err
	}
	e.logger.Debug().Str("expr", input).Int32("result", int32(v)).Msg("result")
	return v, nil
}

// Eval reduces the inclusive token span [p, q] to a word.
func Eval(tokens []Token, p, q int) (types.Word, error) {
	return defaultEvaluator.eval(tokens, p, q)
}

func (e *Evaluator) eval(tokens []Token, p, q int) (types.Word, error) {
	if p > q {
		return 0, types.NewParseError("empty operand", p, q)
	}
	if q >= len(tokens) || p < 0 {
		return 0, types.NewParseError("span out of range", p, q)
	}

	if ev := e.logger.Debug(); ev.Enabled() {
		ev.Int("p", p).Int("q", q).Str("span", Dump(tokens, p, q)).Msg("eval")
	}

	if p == q {
		tok := tokens[p]
		if tok.Kind != TokenInt {
			return 0, types.NewParseError(fmt.Sprintf("expected integer, got %q", tok.Text), p, q)
		}
		v, err := types.ParseWord(tok.Text)
		if err != nil {
			return 0, types.NewParseError(fmt.Sprintf("integer literal %s out of range", tok.Text), p, q)
		}
		return v, nil
	}

	if CheckParentheses(tokens, p, q) == WrappedBalanced {
		return e.eval(tokens, p+1, q-1)
	}

	op, err := FindMainOp(tokens, p, q)
	if err != nil {
		return 0, err
	}
	left, err := e.eval(tokens, p, op-1)
	if err != nil {
		return 0, err
	}
	right, err := e.eval(tokens, op+1, q)
	if err != nil {
		return 0, err
	}

	switch tokens[op].Kind {
	case TokenPlus:
		return left + right, nil
	case TokenMinus:
		return left - right, nil
	case TokenStar:
		return left * right, nil
	case TokenSlash:
		if right == 0 {
			return 0, types.NewZeroDivisionError(p, q)
		}
		return types.Word(left.Uint() / right.Uint()), nil
	case TokenEq:
		return types.Bool(left == right), nil
	default:
		return 0, types.NewParseError(fmt.Sprintf("unsupported operator %s", tokens[op].Kind), p, q)
	}
}

var defaultEvaluator = NewEvaluator()

// Expr evaluates text with the default evaluator and reports success as a
// flag, the form the monitor's commands consume.
func Expr(text string) (types.Word, bool) {
	v, err := defaultEvaluator.Evaluate(text)
	if err != nil {
		return 0, false
	}
	return v, true
}
