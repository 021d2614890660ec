package main

import (
	"context"
	"log/slog"
	"os"

	"perftrack/internal/app/server"
	"perftrack/internal/platform/config"
)

func main() {
	cfg := config.Load()

	app, err := server.New(context.Background(), cfg)
	if err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer app.Close()

	slog.Info("server listening", "addr", cfg.Addr, "env", cfg.Environment)
	if err := app.Run(); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
