package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/api"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/app"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/config"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/queue"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/ratelimit"
)

func main() {
	cfg, flush, err := app.Bootstrap()
	if err != nil {
		_, _ = os.Stderr.WriteString("startup: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer flush()
	log := zap.S().Named("api")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalw("init runtime", "error", err)
	}
	defer rt.Close()

	deps := api.Deps{Coordinator: rt.Coordinator}
	if cfg.PipelineMode == config.PipelineAsync {
		up, err := rt.Uploads(ctx)
		if err != nil {
			log.Fatalw("init upload store", "error", err)
		}
		deps.Uploads = up
		deps.Queue = queue.NewRedisQueue(rt.Redis, cfg.QueuePrefix, cfg.VisibilityTimeout)
	}
	if cfg.RateLimitEnabled {
		deps.Limiter = ratelimit.NewTokenBucket(rt.Redis, "ratelimit:upload:", cfg.RateLimitCapacity, cfg.RateLimitRefill, time.Hour)
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.New(cfg, deps).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Infow("api listening", "addr", httpServer.Addr, "pipeline", cfg.PipelineMode, "store", cfg.StoreBackend)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("listen", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = httpServer.Shutdown(shutdownCtx)
	log.Info("api stopped")
}
