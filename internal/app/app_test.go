package app

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/config"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/coordinator"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/models"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/store"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/summarizer"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/uploads"
)

func TestNewMemoryRuntime(t *testing.T) {
	ctx := context.Background()
	rt, err := New(ctx, config.Config{
		StoreBackend:      config.StoreMemory,
		PipelineMode:      config.PipelineSync,
		SummarizerTimeout: time.Second,
	})
	require.NoError(t, err)
	defer rt.Close()

	assert.IsType(t, &store.MemoryStore{}, rt.Store)
	assert.Nil(t, rt.Redis)

	_, err = rt.Uploads(ctx)
	assert.Error(t, err)

	id, err := rt.Coordinator.StartAnalysis(ctx, coordinator.Submission{
		Content:  []byte("amount,merchant\n6000,unknown\n"),
		Filename: "tx.csv",
	})
	require.NoError(t, err)
	job, err := rt.Coordinator.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, job.Status)
	assert.Equal(t, summarizer.MissingKeyMessage, *job.ManagerSummary)
}

func TestNewRedisRuntime(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rt, err := New(ctx, config.Config{
		StoreBackend: config.StoreRedis,
		PipelineMode: config.PipelineAsync,
		RedisAddr:    mr.Addr(),
		UploadTTL:    time.Minute,
	})
	require.NoError(t, err)
	defer rt.Close()

	assert.IsType(t, &store.RedisStore{}, rt.Store)
	up, err := rt.Uploads(ctx)
	require.NoError(t, err)
	assert.IsType(t, &uploads.RedisStore{}, up)
}

func TestNewFailsWhenRedisUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := New(ctx, config.Config{
		StoreBackend: config.StoreRedis,
		PipelineMode: config.PipelineSync,
		RedisAddr:    "127.0.0.1:1",
	})
	assert.Error(t, err)
}
