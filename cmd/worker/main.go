package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/app"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/config"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/queue"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/telemetry"
	workerproc "github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/worker"
)

func main() {
	cfg, flush, err := app.Bootstrap()
	if err != nil {
		_, _ = os.Stderr.WriteString("startup: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer flush()
	log := zap.S().Named("worker")

	if cfg.PipelineMode != config.PipelineAsync {
		log.Fatalw("worker requires PIPELINE_MODE=async", "pipeline", cfg.PipelineMode)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalw("init runtime", "error", err)
	}
	defer rt.Close()

	up, err := rt.Uploads(ctx)
	if err != nil {
		log.Fatalw("init upload store", "error", err)
	}
	q := queue.NewRedisQueue(rt.Redis, cfg.QueuePrefix, cfg.VisibilityTimeout)

	workerID := os.Getenv("WORKER_ID")
	if workerID == "" {
		hostname, _ := os.Hostname()
		if hostname != "" {
			workerID = hostname
		} else {
			workerID = fmt.Sprintf("worker-%d", os.Getpid())
		}
	}

	processor := workerproc.NewProcessor(workerproc.Options{
		PollInterval: cfg.WorkerPollInterval,
		Lease:        cfg.VisibilityTimeout,
	}, q, up, rt.Coordinator, workerID)

	go func() {
		if err := http.ListenAndServe(cfg.MetricsAddr, telemetry.Handler()); err != nil {
			log.Warnw("metrics server stopped", "error", err)
		}
	}()

	log.Infow("worker started", "worker_id", workerID, "visibility", cfg.VisibilityTimeout, "poll", cfg.WorkerPollInterval)
	if err := processor.Run(ctx); err != nil {
		log.Infow("worker stopped", "reason", err)
	}
}
