package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okolin/scribe/internal/bootstrap"
	"github.com/okolin/scribe/internal/config"
	"github.com/okolin/scribe/internal/core/domain"
	"github.com/okolin/scribe/internal/observability/logging"
	"github.com/okolin/scribe/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	pipelineMetrics := metrics.NewPipelineMetrics("worker")
	app.Pipeline.SetMediaSourceCallback(func(source domain.MediaSource) {
		pipelineMetrics.RecordMediaSource("worker", source)
	})
	metricsServer := &http.Server{
		Addr:        ":" + cfg.WorkerMetricsPort,
		Handler:     pipelineMetrics.Handler(),
		ReadTimeout: 10 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	log.Printf("worker subscribed to %s", cfg.NATSSubject)
	err = app.Queue.SubscribeRunRequested(ctx, func(handlerCtx context.Context, runID string) error {
		runCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		pipelineMetrics.StartRun()
		started := time.Now()
		execErr := app.Dispatcher.ExecuteRun(runCtx, runID)

		// Record the stored outcome even when execution failed; the run
		// row carries the failure stage and reason.
		run, getErr := app.Runs.GetByID(context.WithoutCancel(runCtx), runID)
		if getErr != nil {
			run = &domain.PipelineRun{ID: runID, State: domain.StateFailed}
		}
		pipelineMetrics.FinishRun("worker", run, time.Since(started))
		return execErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
