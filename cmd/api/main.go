package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/sanitary-filing/internal/adapters/http"
	"github.com/kirillkom/sanitary-filing/internal/bootstrap"
	"github.com/kirillkom/sanitary-filing/internal/config"
	"github.com/kirillkom/sanitary-filing/internal/observability/logging"
	"github.com/kirillkom/sanitary-filing/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("filing-api", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics("filing-api")
	app, err := bootstrap.New(ctx, cfg, bootstrap.Observers{
		Validation: httpMetrics,
		Submission: httpMetrics,
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	go func() {
		if err := app.RunCorrelator(ctx); err != nil {
			logger.Error("correlator_stopped", "error", err)
			stop()
		}
	}()
	if app.InProcessBus() {
		logger.Warn("validation_responders_in_process", "bus", cfg.EventBus)
		go func() {
			if err := app.RunResponders(ctx); err != nil {
				logger.Error("responders_stopped", "error", err)
				stop()
			}
		}()
	}

	router := httpadapter.NewRouter(cfg, httpadapter.Dependencies{
		Classifier:   app.Classifier,
		Templates:    app.Templates,
		Documents:    app.Documents,
		Completeness: app.Completeness,
		Filings:      app.Filings,
		Payments:     app.Payments,
		Files:        app.Storage,
		Metrics:      httpMetrics,
		Health:       app,
	}).Handler()
	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("api_listening", "addr", server.Addr, "store", cfg.StoreBackend, "bus", cfg.EventBus)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_failed", "error", err)
	}
}
