package expr

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/lemonberrylabs/sdb/pkg/types"
)

func TestSingleInteger(t *testing.T) {
	tests := []struct {
		input string
		want  types.Word
	}{
		{"0", 0},
		{"42", 42},
		{"  7", 7},
		{"7  ", 7},
		{"  123  ", 123},
		{"2147483647", 2147483647},
		{"4294967295", -1}, // unsigned literal reinterpreted as a word
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := Expr(tt.input)
			if !ok {
				t.Fatal("expected success")
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestArithmeticExpressions(t *testing.T) {
	tests := []struct {
		input string
		want  types.Word
	}{
		{"1 + 2", 3},
		{"10 - 3", 7},
		{"4 * 5", 20},
		{"10 / 3", 3},
		{"1+2*3", 7},          // precedence
		{"(1+2)*3", 9},        // parens
		{"10-2-3", 5},         // left-associative
		{"100/10/5", 2},       // left-associative
		{"2*3/4", 1},          // (2*3)/4, not 2*(3/4)
		{"8/4*2", 4},          // (8/4)*2
		{"(1)+(2)", 3},        // outer parens do not enclose the span
		{"(1)", 1},            // stripped parens keep the inner value
		{"((((5))))", 5},      // nested stripping
		{"(1+2)*(3+4)", 21},   // two groups
		{"2*(3+4)*5", 70},     // group in the middle
		{"1 + 2 * (3 - 4)", -1},
		{"((1+2)*(3-1))/2", 3},
		{"0-1", -1},
		{"2147483647+1", -2147483648}, // wraps
		{"65536*65536", 0},            // wraps
		{"(0-1)/2", 2147483647},       // unsigned division
		{"4294967295/2", 2147483647},
		{"(0-7)/2", 2147483644},
		{"2147483648/2", 1073741824},
		{"(0-8)/(0-2)", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := Expr(tt.input)
			if !ok {
				t.Fatal("expected success")
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEqualityExpressions(t *testing.T) {
	tests := []struct {
		input string
		want  types.Word
	}{
		{"1 == 1", 1},
		{"1 == 2", 0},
		{"1+2 == 3", 1},
		{"2*3 == 3+3", 1},
		{"1 == 1 == 1", 1}, // (1==1)==1
		{"2 == 2 == 2", 0}, // (2==2)==2
		{"(1 == 1) + 1", 2},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := Expr(tt.input)
			if !ok {
				t.Fatal("expected success")
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRejectedExpressions(t *testing.T) {
	tests := []struct {
		input string
		tag   string
	}{
		{"1 $ 2", types.TagLexError},
		{"abc", types.TagLexError},
		{"1.5", types.TagLexError},
		{"1 = 2", types.TagLexError},
		{"\t1", types.TagLexError}, // only spaces separate tokens
		{"1\n", types.TagLexError},
		{"", types.TagParseError},
		{"   ", types.TagParseError},
		{"-5", types.TagParseError}, // no unary minus
		{"1 + -5", types.TagParseError},
		{"1+", types.TagParseError},
		{"+", types.TagParseError},
		{"()", types.TagParseError},
		{"(1", types.TagParseError},
		{"1)", types.TagParseError},
		{"(1))", types.TagParseError},
		{"((1)", types.TagParseError},
		{"1 2", types.TagParseError},
		{"(1+2", types.TagParseError},
		{"4294967296", types.TagParseError},
		{"1/0", types.TagZeroDivisionError},
		{"1/(2-2)", types.TagZeroDivisionError},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := NewEvaluator().Evaluate(tt.input)
			if err == nil {
				t.Fatal("expected error")
			}
			ee, ok := types.AsExprError(err)
			if !ok {
				t.Fatalf("expected ExprError, got %T", err)
			}
			if !ee.HasTag(tt.tag) {
				t.Errorf("expected %s tag, got %v", tt.tag, ee.Tags)
			}

			if v, ok := Expr(tt.input); ok || v != 0 {
				t.Errorf("Expr(%q) = %d, %v; want 0, false", tt.input, v, ok)
			}
		})
	}
}

func TestLexErrorPosition(t *testing.T) {
	_, err := NewEvaluator().Evaluate("1 $ 2")
	ee, ok := types.AsExprError(err)
	if !ok {
		t.Fatalf("expected ExprError, got %v", err)
	}
	if ee.Pos != 2 {
		t.Errorf("expected position 2, got %d", ee.Pos)
	}
	if got, want := ee.Caret("1 $ 2"), "1 $ 2\n  ^"; got != want {
		t.Errorf("caret = %q, want %q", got, want)
	}
}

func TestZeroDivisionSpan(t *testing.T) {
	_, err := NewEvaluator().Evaluate("3 + 1/0")
	ee, ok := types.AsExprError(err)
	if !ok {
		t.Fatalf("expected ExprError, got %v", err)
	}
	if ee.Span != [2]int{2, 4} {
		t.Errorf("expected span [2 4], got %v", ee.Span)
	}
}

func TestTokenize(t *testing.T) {
	tokens, err := NewLexer("12+(3 ==4) - 5*6/7").Tokenize()
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}

	want := []struct {
		kind TokenKind
		text string
		pos  int
	}{
		{TokenInt, "12", 0},
		{TokenPlus, "+", 2},
		{TokenLParen, "(", 3},
		{TokenInt, "3", 4},
		{TokenEq, "==", 6},
		{TokenInt, "4", 8},
		{TokenRParen, ")", 9},
		{TokenMinus, "-", 11},
		{TokenInt, "5", 13},
		{TokenStar, "*", 14},
		{TokenInt, "6", 15},
		{TokenSlash, "/", 16},
		{TokenInt, "7", 17},
	}
	if len(tokens) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(tokens), tokens)
	}
	for i, w := range want {
		got := tokens[i]
		if got.Kind != w.kind || got.Text != w.text || got.Pos != w.pos {
			t.Errorf("token %d: got %s %q @%d, want %s %q @%d",
				i, got.Kind, got.Text, got.Pos, w.kind, w.text, w.pos)
		}
	}
}

func TestTokenizeResetsBetweenCalls(t *testing.T) {
	l := NewLexer("1 + 2 + 3")
	first, err := l.Tokenize()
	if err != nil {
		t.Fatal(err)
	}
	n := len(first)
	second, err := l.Tokenize()
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != n {
		t.Errorf("expected %d tokens on second call, got %d", n, len(second))
	}
}

func TestRuleOrderWins(t *testing.T) {
	// A rule listed first wins even when a later one matches more text.
	table := MustCompileRules([]Rule{
		{` +`, TokenSpace},
		{`[0-9]`, TokenInt},
		{`[0-9]+`, TokenInt},
	})
	i, n, ok := table.Match("123", 0)
	if !ok {
		t.Fatal("expected a match")
	}
	if i != 1 || n != 1 {
		t.Errorf("got rule %d len %d, want rule 1 len 1", i, n)
	}

	// Matches are anchored at the position, never searched forward.
	if _, _, ok := table.Match("a1", 0); ok {
		t.Error("expected no match at position 0")
	}
	if i, n, ok := table.Match("a1", 1); !ok || i != 1 || n != 1 {
		t.Errorf("got rule %d len %d ok %v at position 1", i, n, ok)
	}
}

func TestCompileRulesRejectsBadPattern(t *testing.T) {
	if _, err := CompileRules([]Rule{{`(`, TokenLParen}}); err == nil {
		t.Fatal("expected compile error")
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	MustCompileRules([]Rule{{`[0-9`, TokenInt}})
}

func TestCapacityLimits(t *testing.T) {
	ev := NewEvaluator(WithMaxTokens(32), WithMaxLiteral(31))

	long := strings.Repeat("1+", 16) + "1" // 33 tokens
	_, err := ev.Evaluate(long)
	ee, ok := types.AsExprError(err)
	if !ok || !ee.HasTag(types.TagCapacityError) {
		t.Fatalf("expected CapacityError, got %v", err)
	}

	fits := strings.Repeat("1+", 15) + "1" // 31 tokens
	if v, err := ev.Evaluate(fits); err != nil || v != 16 {
		t.Errorf("got %d, %v; want 16", v, err)
	}

	_, err = ev.Evaluate(strings.Repeat("0", 32))
	ee, ok = types.AsExprError(err)
	if !ok || !ee.HasTag(types.TagCapacityError) {
		t.Fatalf("expected CapacityError for long literal, got %v", err)
	}

	// Unlimited by default.
	if _, err := NewEvaluator().Evaluate(long); err != nil {
		t.Errorf("unexpected error without limits: %v", err)
	}
}

func TestCheckParentheses(t *testing.T) {
	tests := []struct {
		input string
		want  SpanClass
	}{
		{"1", NotWrapped},
		{"(1", NotWrapped},
		{"()", NotWrapped},
		{"(1)", WrappedBalanced},
		{"(1+2)", WrappedBalanced},
		{"((1)+(2))", WrappedBalanced},
		{"(1)+(2)", NotWrapped},
		{"(1+2)*3", NotWrapped},
		{"((1)", WrappedUnbalanced},
		{"(1))", WrappedUnbalanced},
		{"(1))+((2)", WrappedUnbalanced},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens, err := NewLexer(tt.input).Tokenize()
			if err != nil {
				t.Fatalf("tokenize: %v", err)
			}
			got := CheckParentheses(tokens, 0, len(tokens)-1)
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFindMainOp(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"1+2", 1},
		{"1+2*3", 1},
		{"1*2+3", 3},
		{"1-2-3", 3},
		{"1*2*3", 3},
		{"1*2/3+4*5", 5},
		{"(1+2)*3", 5},
		{"1+(2+3)", 1},
		{"1+2==3", 3},
		{"1==2+3", 1},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens, err := NewLexer(tt.input).Tokenize()
			if err != nil {
				t.Fatalf("tokenize: %v", err)
			}
			got, err := FindMainOp(tokens, 0, len(tokens)-1)
			if err != nil {
				t.Fatalf("find main op: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFindMainOpNoOperator(t *testing.T) {
	tokens, _ := NewLexer("(1)(2)").Tokenize()
	_, err := FindMainOp(tokens, 0, len(tokens)-1)
	ee, ok := types.AsExprError(err)
	if !ok || !ee.HasTag(types.TagParseError) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if ee.Span != [2]int{0, 5} {
		t.Errorf("expected span [0 5], got %v", ee.Span)
	}
}

func TestEvalSubSpan(t *testing.T) {
	tokens, _ := NewLexer("9 * (2 + 3)").Tokenize()
	v, err := Eval(tokens, 2, 6)
	if err != nil {
		t.Fatal(err)
	}
	if v != 5 {
		t.Errorf("got %d, want 5", v)
	}
	if _, err := Eval(tokens, 3, 2); err == nil {
		t.Error("expected error for empty span")
	}
}

func TestDumpRoundTrip(t *testing.T) {
	inputs := []string{
		"1 + 2 * (3 - 4)",
		" ( 10 - 2 ) - 3 ",
		"100 / ( 7 * 2 ) == 7",
		"(1)+(2)",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			tokens, err := NewLexer(input).Tokenize()
			if err != nil {
				t.Fatal(err)
			}
			dumped := Dump(tokens, 0, len(tokens)-1)
			if strings.ContainsAny(dumped, " \t") {
				t.Errorf("dump contains whitespace: %q", dumped)
			}
			want, ok1 := Expr(input)
			got, ok2 := Expr(dumped)
			if !ok1 || !ok2 || got != want {
				t.Errorf("Expr(%q) = %d,%v; Expr(%q) = %d,%v", input, want, ok1, dumped, got, ok2)
			}
		})
	}
}

func TestTraceLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	ev := NewEvaluator(WithLogger(logger))

	if _, err := ev.Evaluate("(1+2)*3"); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{`"message":"match"`, `"span":"(1+2)*3"`, `"result":9`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in trace output:\n%s", want, out)
		}
	}
}

func TestConcurrentEvaluate(t *testing.T) {
	ev := NewEvaluator()
	var wg sync.WaitGroup
	errs := make(chan error, 64)

	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			input := fmt.Sprintf("(%d + 1) * 2", i)
			v, err := ev.Evaluate(input)
			if err != nil {
				errs <- err
				return
			}
			if v != types.Word((i+1)*2) {
				errs <- fmt.Errorf("%s = %d", input, v)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
