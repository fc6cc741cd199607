package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/lemonberrylabs/sdb/pkg/api"
	grpcapi "github.com/lemonberrylabs/sdb/pkg/api/grpc"
	"github.com/lemonberrylabs/sdb/pkg/types"
	"github.com/lemonberrylabs/sdb/pkg/vectors"
	"github.com/lemonberrylabs/sdb/web"
)

var evalCmd = &cobra.Command{
	Use:   "eval EXPR...",
	Short: "Evaluate an expression and print its value",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runEval,
}

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Run the interactive monitor on stdin",
	RunE:  runRepl,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the monitor over HTTP and gRPC",
	RunE:  runServe,
}

var checkCmd = &cobra.Command{
	Use:   "check FILE...",
	Short: "Evaluate test vector files and report mismatches",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

var genCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generate random test vectors",
	RunE:  runGen,
}

func init() {
	evalCmd.Flags().String("remote", "", "Evaluate on a running sdb gRPC server at this address")

	serveCmd.Flags().Int("port", 0, "HTTP server port (default 8787, env PORT)")
	serveCmd.Flags().Int("grpc-port", 0, "gRPC server port (default 8788, env GRPC_PORT)")
	serveCmd.Flags().String("host", "", "Bind address (default 0.0.0.0, env HOST)")

	genCmd.Flags().Int("count", 100, "Number of vectors to generate")
	genCmd.Flags().Uint64("seed", 1, "Random seed")
	genCmd.Flags().Int("depth", 6, "Maximum expression nesting depth")
	genCmd.Flags().String("format", "yaml", "Output format: yaml or text")
	genCmd.Flags().StringP("output", "o", "", "Output file (default stdout)")
}

func runEval(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)
	text := strings.Join(args, " ")
	out := cmd.OutOrStdout()

	if remote, _ := cmd.Flags().GetString("remote"); remote != "" {
		conn, err := grpc.NewClient(remote, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return fmt.Errorf("dial %s: %w", remote, err)
		}
		defer conn.Close()

		res, err := grpcapi.NewClient(conn).Evaluate(cmd.Context(), text)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s (%s)\n", res.Value, res.Hex)
		return nil
	}

	v, err := cfg.evaluator().Evaluate(text)
	if err != nil {
		if ee, ok := types.AsExprError(err); ok {
			if caret := ee.Caret(text); caret != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), caret)
			}
		}
		return err
	}
	fmt.Fprintf(out, "%s (%s)\n", v, v.Hex())
	return nil
}

func runRepl(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)
	m := cfg.monitor(cmd)
	m.Interactive = true

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := m.Run(ctx, cmd.InOrStdin()); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)
	logger := cfg.logger

	port := envOrDefault("PORT", "8787")
	if v, _ := cmd.Flags().GetInt("port"); v != 0 {
		port = fmt.Sprintf("%d", v)
	}

	grpcPort := envOrDefault("GRPC_PORT", "8788")
	if v, _ := cmd.Flags().GetInt("grpc-port"); v != 0 {
		grpcPort = fmt.Sprintf("%d", v)
	}

	host := envOrDefault("HOST", "0.0.0.0")
	if v, _ := cmd.Flags().GetString("host"); v != "" {
		host = v
	}

	addr := fmt.Sprintf("%s:%s", host, port)
	grpcAddr := fmt.Sprintf("%s:%s", host, grpcPort)

	m := cfg.monitor(cmd)
	server := api.New(m, logger)
	web.New(m).Register(server.App())

	// Start gRPC server
	grpcServer := grpcapi.New(m, logger)
	go func() {
		logger.Info().Str("addr", grpcAddr).Msg("gRPC server listening")
		if err := grpcServer.Serve(grpcAddr); err != nil {
			logger.Fatal().Err(err).Msg("gRPC server error")
		}
	}()

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info().Msg("shutting down")
		grpcServer.GracefulStop()
		if err := server.Shutdown(); err != nil {
			logger.Error().Err(err).Msg("error during shutdown")
		}
	}()

	logger.Info().
		Str("addr", addr).
		Int("maxTokens", cfg.maxTokens).
		Int("maxLiteral", cfg.maxLiteral).
		Msg("sdb listening")
	return server.Listen(addr)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)
	ev := cfg.evaluator()
	out := cmd.OutOrStdout()

	failed := 0
	for _, path := range args {
		vs, err := vectors.Load(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		r := vectors.Check(ev, vs)
		for _, f := range r.Failures {
			fmt.Fprintf(out, "%s: %s\n", path, f)
		}
		fmt.Fprintf(out, "%s: %d/%d passed\n", path, r.Passed, r.Total)
		failed += len(r.Failures)
	}

	if failed > 0 {
		return fmt.Errorf("%d vector(s) failed", failed)
	}
	return nil
}

func runGen(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)

	count, _ := cmd.Flags().GetInt("count")
	seed, _ := cmd.Flags().GetUint64("seed")
	depth, _ := cmd.Flags().GetInt("depth")
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	var encode func(io.Writer, []vectors.Vector) error
	switch format {
	case "yaml":
		encode = vectors.Encode
	case "text":
		encode = vectors.EncodeText
	default:
		return fmt.Errorf("unknown format %q (want yaml or text)", format)
	}

	g := vectors.NewGenerator(seed)
	g.MaxDepth = depth
	// Generated expressions must fit the configured limits to be checkable.
	g.MaxTokens = cfg.maxTokens

	vs, err := g.Generate(count)
	if err != nil {
		return err
	}

	if output == "" {
		return encode(cmd.OutOrStdout(), vs)
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := encode(f, vs); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}
