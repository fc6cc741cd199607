// Package grpcapi implements the sdb.v1.Monitor gRPC service. Messages are
// protobuf well-known types, so clients need no generated code.
package grpcapi

import (
	"context"
	"fmt"
	"net"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/lemonberrylabs/sdb/pkg/monitor"
	"github.com/lemonberrylabs/sdb/pkg/types"
)

const (
	serviceName    = "sdb.v1.Monitor"
	evaluateMethod = "/" + serviceName + "/Evaluate"
	tokenizeMethod = "/" + serviceName + "/Tokenize"
)

// MonitorServer is the server API for the sdb.v1.Monitor service.
type MonitorServer interface {
	// Evaluate evaluates an expression and records it in the history.
	Evaluate(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	// Tokenize returns the token sequence of an expression.
	Tokenize(context.Context, *wrapperspb.StringValue) (*structpb.ListValue, error)
}

var monitorServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*MonitorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Evaluate", Handler: evaluateHandler},
		{MethodName: "Tokenize", Handler: tokenizeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sdb/v1/monitor.proto",
}

// RegisterMonitorServer registers srv on s.
func RegisterMonitorServer(s grpc.ServiceRegistrar, srv MonitorServer) {
	s.RegisterService(&monitorServiceDesc, srv)
}

func evaluateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MonitorServer).Evaluate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: evaluateMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MonitorServer).Evaluate(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func tokenizeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MonitorServer).Tokenize(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: tokenizeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MonitorServer).Tokenize(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// Server implements the Monitor gRPC service.
type Server struct {
	monitor *monitor.Monitor
	logger  zerolog.Logger
	grpc    *grpc.Server
}

// New creates a new gRPC server wrapping the given monitor.
func New(m *monitor.Monitor, logger zerolog.Logger) *Server {
	srv := &Server{monitor: m, logger: logger}

	gs := grpc.NewServer(grpc.UnaryInterceptor(srv.logCalls))
	RegisterMonitorServer(gs, srv)
	srv.grpc = gs

	return srv
}

// Serve starts listening on the given address and serves gRPC requests.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return s.grpc.Serve(lis)
}

// GracefulStop gracefully stops the gRPC server.
func (s *Server) GracefulStop() {
	s.grpc.GracefulStop()
}

func (s *Server) logCalls(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	resp, err := handler(ctx, req)
	s.logger.Debug().Str("method", info.FullMethod).Err(err).Msg("grpc call")
	return resp, err
}

// Evaluate implements MonitorServer.
func (s *Server) Evaluate(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	text := req.GetValue()
	if text == "" {
		return nil, status.Error(codes.InvalidArgument, "expression is required")
	}

	entry, err := s.monitor.Print(text)
	if err != nil {
		return nil, toStatus(err)
	}

	return structpb.NewStruct(map[string]any{
		"expr":    entry.Expr,
		"value":   int32(entry.Value),
		"hex":     entry.Value.Hex(),
		"history": entry.N,
	})
}

// Tokenize implements MonitorServer.
func (s *Server) Tokenize(ctx context.Context, req *wrapperspb.StringValue) (*structpb.ListValue, error) {
	tokens, err := s.monitor.Evaluator().Tokenize(req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}

	items := make([]any, len(tokens))
	for i, tok := range tokens {
		items[i] = map[string]any{
			"kind": tok.Kind.String(),
			"text": tok.Text,
			"pos":  tok.Pos,
		}
	}
	return structpb.NewList(items)
}

// toStatus maps expression errors onto gRPC status codes.
func toStatus(err error) error {
	ee, ok := types.AsExprError(err)
	if !ok {
		return status.Error(codes.Internal, err.Error())
	}
	switch {
	case ee.HasTag(types.TagResourceLimitError):
		return status.Error(codes.ResourceExhausted, ee.Error())
	case ee.HasTag(types.TagZeroDivisionError):
		return status.Error(codes.FailedPrecondition, ee.Error())
	default:
		return status.Error(codes.InvalidArgument, ee.Error())
	}
}
