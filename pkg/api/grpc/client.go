package grpcapi

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/lemonberrylabs/sdb/pkg/types"
)

// Client calls the sdb.v1.Monitor service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Result is the decoded reply of Evaluate.
type Result struct {
	Expr    string
	Value   types.Word
	Hex     string
	History int
}

// Evaluate evaluates text on the remote monitor.
func (c *Client) Evaluate(ctx context.Context, text string, opts ...grpc.CallOption) (Result, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, evaluateMethod, wrapperspb.String(text), out, opts...); err != nil {
		return Result{}, err
	}

	f := out.GetFields()
	value, ok := f["value"]
	if !ok {
		return Result{}, fmt.Errorf("evaluate reply has no value")
	}
	return Result{
		Expr:    f["expr"].GetStringValue(),
		Value:   types.Word(int32(value.GetNumberValue())),
		Hex:     f["hex"].GetStringValue(),
		History: int(f["history"].GetNumberValue()),
	}, nil
}

// Tokenize returns the remote token sequence as kind/text pairs.
func (c *Client) Tokenize(ctx context.Context, text string, opts ...grpc.CallOption) ([]map[string]any, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, tokenizeMethod, wrapperspb.String(text), out, opts...); err != nil {
		return nil, err
	}

	result := make([]map[string]any, 0, len(out.GetValues()))
	for _, v := range out.GetValues() {
		result = append(result, v.GetStructValue().AsMap())
	}
	return result, nil
}
