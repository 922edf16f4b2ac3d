package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"purepresenter/internal/app"
	"purepresenter/internal/config"
	"purepresenter/internal/infrastructure"
	"purepresenter/internal/license"
)

func main() {
	configFile := flag.String("config", "", "path to a YAML config file (defaults to the usual search locations)")
	check := flag.Bool("check", false, "print the current license verdict as JSON and exit")
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", slog.String("error", err.Error()))
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	if paths, err := config.GetPaths(); err == nil {
		paths.LogPathResolution(logger)
	}

	if *check {
		core, err := app.NewCore(cfg.License, logger)
		if err != nil {
			logger.Error("Failed to initialize license core", slog.String("error", err.Error()))
			os.Exit(1)
		}
		verdict := core.Manager.Check(context.Background())
		if err := writeVerdict(os.Stdout, verdict); err != nil {
			logger.Error("Failed to write verdict", slog.String("error", err.Error()))
			os.Exit(1)
		}
		os.Exit(exitCode(verdict))
	}

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFrom(path)
}

func writeVerdict(w io.Writer, verdict license.Verdict) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(verdict)
}

// exitCode is 0 only when the app may run
func exitCode(verdict license.Verdict) int {
	if verdict.Authorized {
		return 0
	}
	return 1
}
