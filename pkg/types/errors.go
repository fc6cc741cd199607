package types

import (
	"fmt"
	"strings"
)

// Error tag constants.
const (
	TagLexError           = "LexError"
	TagCapacityError      = "CapacityError"
	TagParseError         = "ParseError"
	TagZeroDivisionError  = "ZeroDivisionError"
	TagResourceLimitError = "ResourceLimitError"
)

// NoSpan marks an ExprError that does not refer to a token range.
var NoSpan = [2]int{-1, -1}

// ExprError is the single error type produced while lexing or evaluating
// an expression. Pos is a byte offset into the input (lex errors only) and
// Span the inclusive token range being evaluated when the fault occurred.
type ExprError struct {
	Message string
	Pos     int
	Span    [2]int
	Tags    []string
}

// Error implements the error interface.
func (e *ExprError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	if e.Pos >= 0 {
		fmt.Fprintf(&sb, " at position %d", e.Pos)
	}
	if e.Span != NoSpan {
		fmt.Fprintf(&sb, " in tokens [%d, %d]", e.Span[0], e.Span[1])
	}
	fmt.Fprintf(&sb, " (tags=[%s])", strings.Join(e.Tags, ", "))
	return sb.String()
}

// HasTag returns true if the error has the specified tag.
func (e *ExprError) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Kind returns the primary tag of the error.
func (e *ExprError) Kind() string {
	if len(e.Tags) == 0 {
		return ""
	}
	return e.Tags[0]
}

// ToMap converts the error into a JSON-friendly map for API responses.
func (e *ExprError) ToMap() map[string]any {
	m := map[string]any{
		"message": e.Message,
		"tags":    append([]string(nil), e.Tags...),
	}
	if e.Pos >= 0 {
		m["pos"] = e.Pos
	}
	if e.Span != NoSpan {
		m["span"] = []int{e.Span[0], e.Span[1]}
	}
	return m
}

// Caret renders the input with a ^ under the offending column, the way the
// monitor reports lexing failures. It returns "" for errors without a
// position.
func (e *ExprError) Caret(input string) string {
	return Caret(input, e.Pos)
}

// Caret renders input with a ^ under byte offset pos.
func Caret(input string, pos int) string {
	if pos < 0 || pos > len(input) {
		return ""
	}
	return input + "\n" + strings.Repeat(" ", pos) + "^"
}

// AsExprError unwraps err into an *ExprError if it is one.
func AsExprError(err error) (*ExprError, bool) {
	ee, ok := err.(*ExprError)
	return ee, ok
}

// Common error constructors.

// NewLexError creates a LexError for input that no rule matches.
func NewLexError(pos int) *ExprError {
	return &ExprError{Message: "no rule matched", Pos: pos, Span: NoSpan, Tags: []string{TagLexError}}
}

// NewCapacityError creates a CapacityError for a token sequence or literal
// that exceeds the configured bounds.
func NewCapacityError(msg string, pos int) *ExprError {
	return &ExprError{Message: msg, Pos: pos, Span: NoSpan, Tags: []string{TagCapacityError, TagResourceLimitError}}
}

// NewParseError creates a ParseError for a malformed token range.
func NewParseError(msg string, p, q int) *ExprError {
	return &ExprError{Message: msg, Pos: -1, Span: [2]int{p, q}, Tags: []string{TagParseError}}
}

// NewZeroDivisionError creates a ZeroDivisionError for the span whose
// right operand evaluated to zero.
func NewZeroDivisionError(p, q int) *ExprError {
	return &ExprError{Message: "division by zero", Pos: -1, Span: [2]int{p, q}, Tags: []string{TagZeroDivisionError}}
}
