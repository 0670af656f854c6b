// Package app assembles stores, clients and the coordinator from Config for
// the binaries under cmd/.
package app

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/config"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/coordinator"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/logging"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/store"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/summarizer"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/uploads"
)

// Bootstrap loads .env, reads Config and installs the global logger.
func Bootstrap() (config.Config, func(), error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.Init(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	undo := zap.ReplaceGlobals(logger)
	return cfg, func() {
		_ = logger.Sync()
		undo()
	}, nil
}

// Runtime holds the shared collaborators and their cleanup.
type Runtime struct {
	Config      config.Config
	Redis       *redis.Client
	Store       store.Store
	Coordinator *coordinator.Coordinator
	closers     []func()
}

// Close releases clients in reverse order of creation.
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

// New connects the configured backends and builds the coordinator.
func New(ctx context.Context, cfg config.Config) (*Runtime, error) {
	rt := &Runtime{Config: cfg}
	log := zap.S().Named("app")

	if cfg.NeedsRedis() {
		rt.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		rt.closers = append(rt.closers, func() { _ = rt.Redis.Close() })
		if err := rt.Redis.Ping(ctx).Err(); err != nil {
			rt.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
	}

	switch cfg.StoreBackend {
	case config.StoreRedis:
		rt.Store = store.NewRedisStore(rt.Redis, "", cfg.JobTTL)
	case config.StorePostgres:
		pg, err := store.NewPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, pg.Close)
		if err := pg.RunMigrations(ctx); err != nil {
			rt.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		rt.Store = pg
	default:
		rt.Store = store.NewMemoryStore()
	}

	narrator, err := NewNarrator(ctx, cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Coordinator = coordinator.New(rt.Store, narrator)
	log.Infow("runtime ready", "store", cfg.StoreBackend, "pipeline", cfg.PipelineMode)
	return rt, nil
}

// NewNarrator uses Gemini when an API key is configured.
func NewNarrator(ctx context.Context, cfg config.Config) (*summarizer.Narrator, error) {
	key := cfg.APIKey()
	if key == "" {
		zap.S().Named("app").Warn("GEMINI_API_KEY is not set; summaries will report the missing key")
		return summarizer.New(nil, cfg.SummarizerTimeout), nil
	}
	gen, err := summarizer.NewGeminiGenerator(ctx, key, cfg.GeminiModel)
	if err != nil {
		return nil, err
	}
	zap.S().Named("app").Infow("summarizer configured", "generator", gen.Name())
	return summarizer.New(gen, cfg.SummarizerTimeout), nil
}

// Uploads returns the blob store used to hand uploads to workers.
func (rt *Runtime) Uploads(ctx context.Context) (uploads.Store, error) {
	cfg := rt.Config
	if cfg.UploadS3Bucket != "" {
		return uploads.NewS3Store(ctx, uploads.S3Options{
			Bucket:    cfg.UploadS3Bucket,
			Region:    cfg.UploadS3Region,
			Endpoint:  cfg.UploadS3Endpoint,
			PathStyle: cfg.UploadS3PathStyle,
		})
	}
	if rt.Redis == nil {
		return nil, fmt.Errorf("upload store needs redis or UPLOAD_S3_BUCKET")
	}
	return uploads.NewRedisStore(rt.Redis, cfg.UploadTTL), nil
}
