// Inkwell is an LLM-backed content workshop. It drives a multi-phase
// writing workflow (plan, research, positioning, draft, critique,
// illustration) with human checkpoints, through an interactive REPL.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/inkwell/config"

	// Register LLM providers with the global registry.
	_ "github.com/c360studio/inkwell/llm/providers"
)

var (
	// Version is set via ldflags at build time.
	Version = "0.3.0"

	// BuildTime is set via ldflags at build time.
	BuildTime = "unknown"

	appName = "inkwell"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath  string
		logLevel    string
		mode        string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "inkwell",
		Short: "Content generation workshop",
		Long: `Inkwell turns a topic into a finished piece of content through a
phased workflow: planning, research, positioning, drafting, critique,
and illustration.

The workflow pauses for your input at checkpoints (clarifying
questions, improvement selection) and accepts follow-up instructions
against a finished run. Two orchestration modes are available:
pipeline (explicit phase machine) and single-agent (one long-lived
conversational session).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, logLevel, mode, metricsAddr)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&mode, "mode", "", "Orchestrator mode override (pipeline, single-agent)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func run(configPath, logLevel, mode, metricsAddr string) error {
	level := slog.LevelWarn
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if mode != "" {
		cfg.Orchestrator.Mode = mode
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	printBanner()

	app := NewApp(cfg, configPath, metricsAddr, logger)

	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer app.Shutdown(5 * time.Second)

	return app.RunREPL(ctx)
}

func printBanner() {
	fmt.Printf("inkwell v%s: plan, research, draft, critique, illustrate\n", Version)
	fmt.Println("Type a topic to begin, or /help for commands.")
	fmt.Println()
}

func loadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.DefaultConfig(), nil
}
