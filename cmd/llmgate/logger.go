package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/tripflow/llmgate/internal/config"
	"github.com/tripflow/llmgate/internal/version"
)

func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("LLMGATE_DEBUG") != "" {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler)
}

func printStartupBanner(cfg *config.Config) {
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "llmgate %s - LLM Admission & Caching Gateway\n", version.Version)
	fmt.Fprintln(os.Stderr, "════════════════════════════════════════════════")
	fmt.Fprintf(os.Stderr, "Generate:   http://localhost%s/v1/generate\n", cfg.ServerPort)
	fmt.Fprintf(os.Stderr, "Metrics:    http://localhost%s/api/metrics/realtime\n", cfg.ServerPort)
	fmt.Fprintf(os.Stderr, "Health:     http://localhost%s/api/health\n", cfg.ServerPort)
	fmt.Fprintf(os.Stderr, "Data:       %s\n", config.DataDir())
	fmt.Fprintln(os.Stderr, "════════════════════════════════════════════════")
	fmt.Fprintf(os.Stderr, "\n")
}
