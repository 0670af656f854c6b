package store

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/models"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "", ttl), mr
}

func processing(id string) models.Job {
	return models.Job{ID: id, Status: models.StatusProcessing, Filename: "tx.csv", Scope: models.ScopeRowLevel}
}

func completed(id string) models.Job {
	summary := "all clear"
	return models.Job{
		ID:       id,
		Status:   models.StatusCompleted,
		Filename: "tx.csv",
		Scope:    models.ScopeRowLevel,
		Transactions: []models.RiskAnnotation{
			{Row: models.Row{"amount": 100.0, "merchant": "Shop"}, RiskScore: 0, Reasons: []string{}, Reason: "Normal"},
		},
		ManagerSummary: &summary,
	}
}

// exercise runs the shared contract against any Store implementation.
func exercise(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Finalize(ctx, completed("missing")), ErrNotFound)

	require.NoError(t, s.Put(ctx, processing("a")))
	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, got.Status)
	assert.Equal(t, "tx.csv", got.Filename)

	require.NoError(t, s.Finalize(ctx, completed("a")))
	got, err = s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	require.Len(t, got.Transactions, 1)
	require.NotNil(t, got.ManagerSummary)
	assert.Equal(t, "all clear", *got.ManagerSummary)

	failed := processing("a")
	failed.Status = models.StatusFailed
	failed.Error = "late failure"
	assert.ErrorIs(t, s.Finalize(ctx, failed), ErrAlreadyFinal)

	got, err = s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Empty(t, got.Error)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	exercise(t, s)
	assert.Equal(t, 1, s.Len())
}

func TestRedisStore(t *testing.T) {
	s, _ := newRedisStore(t, 0)
	exercise(t, s)
}

func TestRedisStoreTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, time.Minute)

	require.NoError(t, s.Put(ctx, processing("b")))
	assert.Equal(t, time.Minute, mr.TTL("analysis:job:b"))

	mr.FastForward(2 * time.Minute)
	_, err := s.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Put(ctx, processing("c")))

	var wg sync.WaitGroup
	var finalized int
	var mu sync.Mutex
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			job, err := s.Get(ctx, "c")
			assert.NoError(t, err)
			assert.Contains(t, []models.Status{models.StatusProcessing, models.StatusCompleted}, job.Status)
		}()
		go func() {
			defer wg.Done()
			if s.Finalize(ctx, completed("c")) == nil {
				mu.Lock()
				finalized++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, finalized)
}
