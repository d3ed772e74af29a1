package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/sanitary-filing/internal/adapters/mcp"
	"github.com/kirillkom/sanitary-filing/internal/bootstrap"
	"github.com/kirillkom/sanitary-filing/internal/config"
	"github.com/kirillkom/sanitary-filing/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	// stdout carries the protocol.
	logger := logging.New(os.Stderr, "filing-mcp", cfg.LogLevel)
	slog.SetDefault(logger)

	app, err := bootstrap.New(context.Background(), cfg, bootstrap.Observers{})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	tools := mcpadapter.NewTools(app.Classifier, app.Templates, app.Completeness)
	if err := server.ServeStdio(mcpadapter.NewServer(tools)); err != nil {
		logger.Error("mcp_server_failed", "error", err)
	}
}
