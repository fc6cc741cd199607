// Package vectors reads, writes, checks and generates expression test
// vectors: expressions paired with their expected value or error tag.
package vectors

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lemonberrylabs/sdb/pkg/types"
)

// MaxSourceSize is the maximum accepted size of a vector file.
const MaxSourceSize = 4 * 1024 * 1024

// Vector is one expression with its expected outcome. When Error is set
// the expression must fail with an error carrying that tag and Want is
// ignored.
type Vector struct {
	Expr  string
	Want  types.Word
	Error string
	Line  int // source line, 0 if unknown
}

// ParseError describes a malformed vector file.
type ParseError struct {
	Message string
	Line    int
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error at line %d: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

// Load reads a vector file. Files ending in .yaml or .yml are parsed as
// YAML, anything else as the plain "RESULT EXPR" text format.
func Load(path string) ([]Vector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading vectors: %w", err)
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return Parse(data)
	default:
		return ParseText(bytes.NewReader(data))
	}
}

// Parse parses a YAML vector document of the form
//
//	vectors:
//	  - expr: "1 + 2 * 3"
//	    want: 7
//	  - expr: "1 / 0"
//	    error: ZeroDivisionError
func Parse(source []byte) ([]Vector, error) {
	if len(source) > MaxSourceSize {
		return nil, &ParseError{Message: fmt.Sprintf("source size %d exceeds maximum %d bytes", len(source), MaxSourceSize)}
	}

	var raw yaml.Node
	if err := yaml.Unmarshal(source, &raw); err != nil {
		return nil, &ParseError{Message: fmt.Sprintf("invalid YAML: %v", err)}
	}
	if raw.Kind != yaml.DocumentNode || len(raw.Content) == 0 {
		return nil, &ParseError{Message: "empty vector file"}
	}

	root := raw.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &ParseError{Message: "vector file must be a mapping", Line: root.Line}
	}

	var list *yaml.Node
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i]
		if key.Value != "vectors" {
			return nil, &ParseError{Message: fmt.Sprintf("unknown key %q", key.Value), Line: key.Line}
		}
		list = root.Content[i+1]
	}
	if list == nil {
		return nil, &ParseError{Message: "missing 'vectors' key", Line: root.Line}
	}
	if list.Kind != yaml.SequenceNode {
		return nil, &ParseError{Message: "'vectors' must be a list", Line: list.Line}
	}

	result := make([]Vector, 0, len(list.Content))
	for _, item := range list.Content {
		v, err := parseVector(item)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, nil
}

func parseVector(node *yaml.Node) (Vector, error) {
	if node.Kind != yaml.MappingNode {
		return Vector{}, &ParseError{Message: "vector must be a mapping", Line: node.Line}
	}

	v := Vector{Line: node.Line}
	var hasExpr, hasWant bool
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		val := node.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			return Vector{}, &ParseError{Message: fmt.Sprintf("%q must be a scalar", key.Value), Line: val.Line}
		}

		switch key.Value {
		case "expr":
			v.Expr = val.Value
			hasExpr = true
		case "want":
			w, err := parseWant(val.Value)
			if err != nil {
				return Vector{}, &ParseError{Message: err.Error(), Line: val.Line}
			}
			v.Want = w
			hasWant = true
		case "error":
			v.Error = val.Value
		default:
			return Vector{}, &ParseError{Message: fmt.Sprintf("unknown vector field %q", key.Value), Line: key.Line}
		}
	}

	if !hasExpr {
		return Vector{}, &ParseError{Message: "vector is missing 'expr'", Line: node.Line}
	}
	if hasWant == (v.Error != "") {
		return Vector{}, &ParseError{Message: "vector needs exactly one of 'want' or 'error'", Line: node.Line}
	}
	return v, nil
}

// parseWant accepts any decimal value representable as a 32-bit word,
// signed or unsigned.
func parseWant(s string) (types.Word, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid want %q", s)
	}
	if n < math.MinInt32 || n > math.MaxUint32 {
		return 0, fmt.Errorf("want %d does not fit in 32 bits", n)
	}
	return types.Word(int32(uint32(n))), nil
}

// ParseText reads the plain vector format: one "RESULT EXPR" per line,
// RESULT being the unsigned decimal word. Blank lines are skipped.
func ParseText(r io.Reader) ([]Vector, error) {
	var result []Vector
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		num, rest, ok := strings.Cut(text, " ")
		if !ok || strings.TrimSpace(rest) == "" {
			return nil, &ParseError{Message: "expected 'RESULT EXPR'", Line: line}
		}
		u, err := strconv.ParseUint(num, 10, 32)
		if err != nil {
			return nil, &ParseError{Message: fmt.Sprintf("invalid result %q", num), Line: line}
		}
		result = append(result, Vector{Expr: strings.TrimSpace(rest), Want: types.Word(int32(uint32(u))), Line: line})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading vectors: %w", err)
	}
	return result, nil
}

type yamlVector struct {
	Expr  string `yaml:"expr"`
	Want  *int64 `yaml:"want,omitempty"`
	Error string `yaml:"error,omitempty"`
}

type yamlFile struct {
	Vectors []yamlVector `yaml:"vectors"`
}

// Encode writes vectors as a YAML document readable by Parse.
func Encode(w io.Writer, vectors []Vector) error {
	f := yamlFile{Vectors: make([]yamlVector, len(vectors))}
	for i, v := range vectors {
		f.Vectors[i] = yamlVector{Expr: v.Expr, Error: v.Error}
		if v.Error == "" {
			want := int64(v.Want)
			f.Vectors[i].Want = &want
		}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encoding vectors: %w", err)
	}
	return enc.Close()
}

// EncodeText writes vectors in the plain "RESULT EXPR" format. Vectors
// that expect an error cannot be represented and are skipped.
func EncodeText(w io.Writer, vectors []Vector) error {
	bw := bufio.NewWriter(w)
	for _, v := range vectors {
		if v.Error != "" {
			continue
		}
		fmt.Fprintf(bw, "%d %s\n", v.Want.Uint(), v.Expr)
	}
	return bw.Flush()
}
