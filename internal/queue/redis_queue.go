package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Task is the handoff record between the API and a worker.
type Task struct {
	JobID     string
	Filename  string
	Guidance  string
	UploadKey string
}

// RedisQueue coordinates ready and in-flight analysis tasks in Redis.
type RedisQueue struct {
	client        *redis.Client
	readyKey      string
	inflightKey   string
	taskPrefix    string
	visibilityTTL time.Duration
}

// NewRedisQueue builds a queue whose keys live under prefix.
func NewRedisQueue(client *redis.Client, prefix string, visibility time.Duration) *RedisQueue {
	if prefix == "" {
		prefix = "analysis"
	}
	if visibility == 0 {
		visibility = 5 * time.Minute
	}
	return &RedisQueue{
		client:        client,
		readyKey:      prefix + ":queue:ready",
		inflightKey:   prefix + ":queue:inflight",
		taskPrefix:    prefix + ":queue:task:",
		visibilityTTL: visibility,
	}
}

func (q *RedisQueue) taskKey(jobID string) string {
	return q.taskPrefix + jobID
}

// Enqueue records the task metadata and pushes the job onto the ready list.
func (q *RedisQueue) Enqueue(ctx context.Context, task Task) error {
	if task.JobID == "" {
		return errors.New("enqueue: empty job id")
	}
	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, q.taskKey(task.JobID),
		"filename", task.Filename,
		"guidance", task.Guidance,
		"upload_key", task.UploadKey,
	)
	pipe.RPush(ctx, q.readyKey, task.JobID)
	_, err := pipe.Exec(ctx)
	return err
}

// DequeueWithLease pops the next job and places it into in-flight with a
// visibility deadline. It returns nil when the queue is empty.
func (q *RedisQueue) DequeueWithLease(ctx context.Context) (*Task, error) {
	res, err := dequeueScript.Run(ctx, q.client, []string{q.readyKey, q.inflightKey},
		time.Now().Add(q.visibilityTTL).UnixMilli()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	jobID, ok := res.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected type from dequeue script: %T", res)
	}
	meta, err := q.client.HGetAll(ctx, q.taskKey(jobID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load task %s: %w", jobID, err)
	}
	return &Task{
		JobID:     jobID,
		Filename:  meta["filename"],
		Guidance:  meta["guidance"],
		UploadKey: meta["upload_key"],
	}, nil
}

// ExtendLease pushes the visibility deadline forward for an in-flight job.
func (q *RedisQueue) ExtendLease(ctx context.Context, jobID string, extension time.Duration) error {
	return q.client.ZAdd(ctx, q.inflightKey, redis.Z{
		Score:  float64(time.Now().Add(extension).UnixMilli()),
		Member: jobID,
	}).Err()
}

// Ack removes a job from in-flight tracking and drops its task record.
func (q *RedisQueue) Ack(ctx context.Context, jobID string) error {
	pipe := q.client.TxPipeline()
	pipe.ZRem(ctx, q.inflightKey, jobID)
	pipe.Del(ctx, q.taskKey(jobID))
	_, err := pipe.Exec(ctx)
	return err
}

// RequeueExpired moves leases whose deadline passed back onto the ready list.
func (q *RedisQueue) RequeueExpired(ctx context.Context, now time.Time, limit int64) ([]string, error) {
	ids, err := q.client.ZRangeByScore(ctx, q.inflightKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%d", now.UnixMilli()),
		Count: limit,
	}).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	pipe := q.client.TxPipeline()
	for _, id := range ids {
		pipe.ZRem(ctx, q.inflightKey, id)
		pipe.RPush(ctx, q.readyKey, id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

// ReadyDepth returns the number of tasks waiting for a worker.
func (q *RedisQueue) ReadyDepth(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.readyKey).Result()
}

// InflightDepth returns the number of leased tasks.
func (q *RedisQueue) InflightDepth(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, q.inflightKey).Result()
}

var dequeueScript = redis.NewScript(`
local job = redis.call('LPOP', KEYS[1])
if job then
  redis.call('ZADD', KEYS[2], ARGV[1], job)
  return job
end
return nil
`)
