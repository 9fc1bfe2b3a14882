package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/roman-kulish/rf-relay/cmd/bearingmap/app"
	"github.com/roman-kulish/rf-relay/internal/logging"
)

func main() {
	var logLevel slog.LevelVar
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &logLevel}))

	config, err := app.NewConfigFromCLI()
	if err != nil {
		logger.Error("invalid arguments", "error", err)
		os.Exit(2)
	}

	logLevel.Set(config.LogLevel())
	if logger, err = logging.New(os.Stderr, config.LogFormat, &logLevel); err != nil {
		slog.Error("creating logger", "error", err)
		os.Exit(2)
	}
	logger = logger.With("session_id", config.SessionID)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err = app.Run(ctx, config, logger); err != nil {
		logger.Error("rendering bearing map failed", "db", config.DBPath, "error", err)
		cancel()
		os.Exit(1)
	}
}
