package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/models"
)

// RedisStore keeps each job in a hash holding its status and JSON document,
// so API and worker processes share one view of job state.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore stores jobs under prefix+id. A zero ttl keeps jobs forever.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "analysis:job:"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) Put(ctx context.Context, job models.Job) error {
	doc, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.key(job.ID), "status", string(job.Status), "doc", doc)
	if s.ttl > 0 {
		pipe.PExpire(ctx, s.key(job.ID), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("put job %s: %w", job.ID, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (models.Job, error) {
	doc, err := s.client.HGet(ctx, s.key(id), "doc").Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Job{}, ErrNotFound
	}
	if err != nil {
		return models.Job{}, fmt.Errorf("get job %s: %w", id, err)
	}
	var job models.Job
	if err := json.Unmarshal(doc, &job); err != nil {
		return models.Job{}, fmt.Errorf("unmarshal job %s: %w", id, err)
	}
	return job, nil
}

func (s *RedisStore) Finalize(ctx context.Context, job models.Job) error {
	doc, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	res, err := finalizeScript.Run(ctx, s.client, []string{s.key(job.ID)},
		string(models.StatusProcessing), string(job.Status), doc, s.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("run finalize script: %w", err)
	}
	switch res {
	case 1:
		return nil
	case 0:
		return ErrAlreadyFinal
	default:
		return ErrNotFound
	}
}

var finalizeScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'status')
if not cur then return -1 end
if cur ~= ARGV[1] then return 0 end
redis.call('HSET', KEYS[1], 'status', ARGV[2], 'doc', ARGV[3])
local ttl = tonumber(ARGV[4])
if ttl > 0 then redis.call('PEXPIRE', KEYS[1], ttl) end
return 1
`)
