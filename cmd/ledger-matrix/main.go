// ABOUTME: Entry point for the ledger-matrix bot
// ABOUTME: Wires config, ledger store, metrics and the Matrix bridge together

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/2389/state-ledger/internal/config"
	"github.com/2389/state-ledger/internal/conversation"
	"github.com/2389/state-ledger/internal/dedupe"
	"github.com/2389/state-ledger/internal/ledger"
	"github.com/2389/state-ledger/internal/metrics"
)

const banner = `
  _          _                                _        _
 | | ___  __| | __ _  ___ _ __      _ __ ___   __ _| |_ _ __(_)_  __
 | |/ _ \/ _' |/ _' |/ _ \ '__|____| '_ ' _ \ / _' | __| '__| \ \/ /
 | |  __/ (_| | (_| |  __/ | |_____| | | | | | (_| | |_| |  | |>  <
 |_|\___|\__,_|\__, |\___|_|       |_| |_| |_|\__,_|\__|_|  |_/_/\_\
               |___/
`

func main() {
	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	var err error
	switch cmd {
	case "serve":
		err = run()
	case "init":
		err = runInit(os.Stdin, os.Stdout, config.DefaultConfigPath())
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: ledger-matrix [serve|init|help]")
	fmt.Println()
	fmt.Println("  serve   Run the bot (default)")
	fmt.Println("  init    Write a starter config interactively")
	fmt.Println()
	fmt.Printf("Config is read from $%s or %s.\n", config.EnvConfigPath, config.DefaultConfigPath())
	fmt.Printf("The access token comes from $%s or a .env file next to the config.\n", config.EnvAccessToken)
}

func run() error {
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	configPath := config.DefaultConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config from %s: %w", configPath, err)
	}
	if err := cfg.Matrix.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", configPath, err)
	}

	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format)

	catalog, err := conversation.CatalogFor(cfg.Bot.Locale)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:     %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Homeserver: %s\n", cfg.Matrix.Homeserver)
	green.Print("    ▶ ")
	fmt.Printf("User:       %s\n", cfg.Matrix.UserID)
	green.Print("    ▶ ")
	fmt.Printf("Ledger:     %s %s\n", cfg.Ledger.Backend, cfg.Ledger.Path)
	green.Print("    ▶ ")
	fmt.Printf("Locale:     %s\n", catalog.Locale)
	if cfg.Metrics.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Metrics:    %s%s\n", cfg.Metrics.Addr, cfg.Metrics.Path)
	}
	fmt.Println()

	store, err := ledger.Open(cfg.Ledger.Backend, cfg.Ledger.Path)
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Metrics.Enabled {
		reg := prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(reg)

		stopServer := startMetricsServer(cfg.Metrics, reg, logger)
		defer stopServer()

		reporter, err := metrics.NewDepthReporter(store, recorder, logger)
		if err != nil {
			return err
		}
		if err := reporter.Start(cfg.Metrics.RefreshInterval); err != nil {
			return err
		}
		defer func() {
			if err := reporter.Stop(); err != nil {
				logger.Warn("stopping depth reporter", "error", err)
			}
		}()
	}

	handler, err := conversation.NewHandler(store, catalog, recorder, logger)
	if err != nil {
		return fmt.Errorf("creating handler: %w", err)
	}

	bridge, err := NewBridge(cfg.Matrix, handler, dedupe.NewWindow(cfg.Bot.DedupeTTL, cfg.Bot.DedupeSize), recorder, logger)
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}

	logger.Info("starting bridge")
	return bridge.Run(ctx)
}

// startMetricsServer serves reg on cfg.Addr and returns a shutdown func.
func startMetricsServer(cfg config.MetricsConfig, reg *prom.Registry, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, metrics.HTTPHandler(reg))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("serving metrics", "addr", cfg.Addr, "path", cfg.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("metrics server shutdown", "error", err)
		}
	}
}

// setupLogger builds the process logger and installs it as the slog
// default, so the ledger stores log with the configured level and format.
func setupLogger(level, format string) *slog.Logger {
	logger := newLogger(os.Stdout, level, format)
	slog.SetDefault(logger)
	return logger
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
