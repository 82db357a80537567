package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/edgarqa/edgarqa/internal/adapters/http"
	"github.com/edgarqa/edgarqa/internal/bootstrap"
	"github.com/edgarqa/edgarqa/internal/config"
	"github.com/edgarqa/edgarqa/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("edgarqa-api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(cfg, logger)
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	rebuild := func(rebuildCtx context.Context, reason string) error {
		buildCtx, cancel := context.WithTimeout(rebuildCtx, 10*time.Minute)
		defer cancel()

		start := time.Now()
		err := app.Holder.Rebuild(buildCtx)
		app.IndexMet.RecordRebuild("api", err, app.Holder.Size(), time.Since(start))
		if err != nil {
			logger.Error("index rebuild failed", "reason", reason, "error", err)
			return err
		}
		logger.Info("index rebuilt", "reason", reason, "chunks", app.Holder.Size())
		return nil
	}

	// Questions before the first successful build come back degraded
	// rather than the process refusing to start.
	if err := rebuild(ctx, "startup"); err != nil {
		logger.Warn("starting without a retrieval snapshot", "error", err)
	}

	go func() {
		if err := app.Queue.SubscribeCorpusUpdated(ctx, rebuild); err != nil && ctx.Err() == nil {
			logger.Error("corpus subscription ended", "error", err)
		}
	}()

	router := httpadapter.NewRouter(app.AskSvc, app.ReindexSvc, app.Metrics, "api").Handler()
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: app.Metrics.Handler(),
	}

	go func() {
		logger.Info("metrics listening", "port", cfg.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
		}
	}()
	go func() {
		logger.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown error", "error", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics shutdown error", "error", err)
	}
}
