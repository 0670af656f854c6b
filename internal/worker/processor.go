package worker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/coordinator"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/models"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/queue"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/store"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/telemetry"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/uploads"
)

// Options tunes the polling loop.
type Options struct {
	// PollInterval is the base wait after an empty or failed poll.
	PollInterval time.Duration
	// MaxBackoff caps the wait after repeated empty polls.
	MaxBackoff time.Duration
	// Lease is how long a task stays invisible to other workers while it runs.
	Lease time.Duration
	// ReclaimBatch bounds how many expired leases are requeued per pass.
	ReclaimBatch int64
}

// Processor drives the worker execution loop.
type Processor struct {
	opts     Options
	queue    *queue.RedisQueue
	uploads  uploads.Store
	coord    *coordinator.Coordinator
	workerID string
	log      *zap.SugaredLogger
}

// NewProcessor creates a processor; workerID only tags log lines.
func NewProcessor(opts Options, q *queue.RedisQueue, up uploads.Store, coord *coordinator.Coordinator, workerID string) *Processor {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.MaxBackoff < opts.PollInterval {
		opts.MaxBackoff = 8 * opts.PollInterval
	}
	if opts.ReclaimBatch <= 0 {
		opts.ReclaimBatch = 100
	}
	return &Processor{
		opts:     opts,
		queue:    q,
		uploads:  up,
		coord:    coord,
		workerID: workerID,
		log:      zap.S().Named("worker").With("worker_id", workerID),
	}
}

// Run polls until ctx is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	idle := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		worked, err := p.ProcessOne(ctx)
		if err != nil {
			p.log.Warnw("poll failed", "error", err)
		}
		if worked && err == nil {
			idle = 0
			continue
		}
		idle++
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoffWithJitter(p.opts.PollInterval, p.opts.MaxBackoff, idle)):
		}
	}
}

// ProcessOne reclaims expired leases, then runs at most one task. It reports
// whether a task was taken off the queue.
func (p *Processor) ProcessOne(ctx context.Context) (bool, error) {
	if reclaimed, err := p.queue.RequeueExpired(ctx, time.Now(), p.opts.ReclaimBatch); err == nil && len(reclaimed) > 0 {
		p.log.Infow("requeued expired leases", "count", len(reclaimed))
	}
	p.refreshGauges(ctx)

	task, err := p.queue.DequeueWithLease(ctx)
	if err != nil {
		return false, fmt.Errorf("dequeue: %w", err)
	}
	if task == nil {
		return false, nil
	}

	telemetry.InFlightGauge.Inc()
	defer telemetry.InFlightGauge.Dec()

	if err := p.handle(ctx, task); err != nil {
		// Leave the lease in place so the task is reclaimed after it expires.
		return true, err
	}
	if err := p.queue.Ack(ctx, task.JobID); err != nil {
		return true, fmt.Errorf("ack %s: %w", task.JobID, err)
	}
	return true, nil
}

func (p *Processor) handle(ctx context.Context, task *queue.Task) error {
	job, err := p.coord.GetStatus(ctx, task.JobID)
	if err != nil {
		return err
	}
	if job.Status != models.StatusProcessing {
		p.log.Infow("skipping task for settled job", "job_id", task.JobID, "status", job.Status)
		p.discardUpload(ctx, task)
		return nil
	}

	content, err := p.uploads.Get(ctx, task.UploadKey)
	if errors.Is(err, uploads.ErrNotFound) {
		return p.settle(p.coord.Fail(ctx, task.JobID, fmt.Errorf("upload for %s is no longer available", task.Filename)))
	}
	if err != nil {
		return fmt.Errorf("load upload %s: %w", task.UploadKey, err)
	}

	if p.opts.Lease > 0 {
		if err := p.queue.ExtendLease(ctx, task.JobID, p.opts.Lease); err != nil {
			p.log.Warnw("extend lease", "job_id", task.JobID, "error", err)
		}
	}
	_, err = p.coord.Execute(ctx, task.JobID, coordinator.Submission{
		Content:  content,
		Filename: task.Filename,
		Guidance: task.Guidance,
	})
	if err := p.settle(err); err != nil {
		return err
	}
	p.discardUpload(ctx, task)
	return nil
}

// settle treats losing the race to another worker as success.
func (p *Processor) settle(err error) error {
	if err == nil || errors.Is(err, store.ErrAlreadyFinal) {
		return nil
	}
	return err
}

func (p *Processor) discardUpload(ctx context.Context, task *queue.Task) {
	if task.UploadKey == "" {
		return
	}
	if err := p.uploads.Delete(ctx, task.UploadKey); err != nil {
		p.log.Warnw("delete upload", "key", task.UploadKey, "error", err)
	}
}

func (p *Processor) refreshGauges(ctx context.Context) {
	if depth, err := p.queue.ReadyDepth(ctx); err == nil {
		telemetry.QueueDepthGauge.Set(float64(depth))
	}
}

func backoffWithJitter(base, max time.Duration, attempt int) time.Duration {
	if attempt <= 0 {
		return base
	}
	exp := float64(base) * math.Pow(2, float64(attempt-1))
	wait := time.Duration(exp)
	if wait > max {
		wait = max
	}
	jitter := time.Duration(rand.Int63n(int64(wait / 2)))
	return wait/2 + jitter
}
