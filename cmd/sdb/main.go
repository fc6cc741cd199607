// Package main is the entry point for the sdb expression monitor.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/sdb/pkg/expr"
	"github.com/lemonberrylabs/sdb/pkg/monitor"
	"github.com/lemonberrylabs/sdb/pkg/store"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:           "sdb",
	Short:         "Debugger monitor expression evaluator",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Version = version + " (commit=" + commit + ", built=" + date + ")"
	rootCmd.SetVersionTemplate("sdb version {{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.String("log-level", "", "Log level: debug, info, warn, error (default info, env SDB_LOG_LEVEL)")
	pf.Int("max-tokens", -1, "Maximum tokens per expression, 0 for unlimited (default 32, env SDB_MAX_TOKENS)")
	pf.Int("max-literal", -1, "Maximum integer literal length, 0 for unlimited (default 31, env SDB_MAX_LITERAL)")

	rootCmd.AddCommand(evalCmd, replCmd, serveCmd, checkCmd, genCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// config holds settings shared by every subcommand.
type config struct {
	logger     zerolog.Logger
	maxTokens  int
	maxLiteral int
}

func loadConfig(cmd *cobra.Command) config {
	levelName := envOrDefault("SDB_LOG_LEVEL", "info")
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		levelName = v
	}
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Str("service", "sdb").Logger().
		Level(level)

	maxTokens := envIntOrDefault("SDB_MAX_TOKENS", 32)
	if v, _ := cmd.Flags().GetInt("max-tokens"); v >= 0 {
		maxTokens = v
	}
	maxLiteral := envIntOrDefault("SDB_MAX_LITERAL", 31)
	if v, _ := cmd.Flags().GetInt("max-literal"); v >= 0 {
		maxLiteral = v
	}

	return config{logger: logger, maxTokens: maxTokens, maxLiteral: maxLiteral}
}

func (c config) evaluator() *expr.Evaluator {
	return expr.NewEvaluator(
		expr.WithLogger(c.logger),
		expr.WithMaxTokens(c.maxTokens),
		expr.WithMaxLiteral(c.maxLiteral),
	)
}

func (c config) monitor(cmd *cobra.Command) *monitor.Monitor {
	return monitor.New(c.evaluator(), store.New(), cmd.OutOrStdout(), c.logger)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
