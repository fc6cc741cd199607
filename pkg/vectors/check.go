package vectors

import (
	"fmt"

	"github.com/lemonberrylabs/sdb/pkg/expr"
	"github.com/lemonberrylabs/sdb/pkg/types"
)

// Failure is a vector whose evaluation did not match its expectation.
type Failure struct {
	Vector Vector
	Got    types.Word
	Err    error
}

func (f Failure) String() string {
	where := ""
	if f.Vector.Line > 0 {
		where = fmt.Sprintf("line %d: ", f.Vector.Line)
	}
	want := f.Vector.Want.String()
	if f.Vector.Error != "" {
		want = f.Vector.Error
	}
	if f.Err != nil {
		return fmt.Sprintf("%s%q: want %s, got error: %v", where, f.Vector.Expr, want, f.Err)
	}
	return fmt.Sprintf("%s%q: want %s, got %s", where, f.Vector.Expr, want, f.Got)
}

// Report summarizes a Check run.
type Report struct {
	Total    int
	Passed   int
	Failures []Failure
}

// OK reports whether every vector passed.
func (r Report) OK() bool {
	return len(r.Failures) == 0
}

// Check evaluates every vector with ev and collects mismatches.
func Check(ev *expr.Evaluator, vectors []Vector) Report {
	r := Report{Total: len(vectors)}
	for _, v := range vectors {
		got, err := ev.Evaluate(v.Expr)
		if pass(v, got, err) {
			r.Passed++
			continue
		}
		r.Failures = append(r.Failures, Failure{Vector: v, Got: got, Err: err})
	}
	return r
}

func pass(v Vector, got types.Word, err error) bool {
	if v.Error == "" {
		return err == nil && got == v.Want
	}
	if err == nil {
		return false
	}
	ee, ok := types.AsExprError(err)
	return ok && ee.HasTag(v.Error)
}
