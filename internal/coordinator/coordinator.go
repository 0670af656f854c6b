// Package coordinator drives an analysis job from upload to terminal state
// and answers status and follow-up queries.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/models"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/parser"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/scoring"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/store"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/summarizer"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/telemetry"
)

// NoContextMessage stands in for the prior summary when a follow-up names a
// job that is unknown or has no summary yet.
const NoContextMessage = "No prior context."

// Summarizer produces narrative text. It reports failures in-band.
type Summarizer interface {
	Summarize(ctx context.Context, req summarizer.Request) string
}

// Submission is one uploaded file plus the caller's optional guidance.
type Submission struct {
	Content  []byte
	Filename string
	Guidance string
}

// Coordinator owns the job state machine on top of a Store.
type Coordinator struct {
	store store.Store
	narr  Summarizer
	newID func() string
	now   func() time.Time
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithIDFunc replaces the job id generator.
func WithIDFunc(fn func() string) Option {
	return func(c *Coordinator) { c.newID = fn }
}

// WithClock replaces the timestamp source.
func WithClock(fn func() time.Time) Option {
	return func(c *Coordinator) { c.now = fn }
}

func New(s store.Store, narr Summarizer, opts ...Option) *Coordinator {
	c := &Coordinator{
		store: s,
		narr:  narr,
		newID: uuid.NewString,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit stores a fresh PROCESSING job and returns its id.
func (c *Coordinator) Submit(ctx context.Context, sub Submission) (string, error) {
	now := c.now()
	job := models.Job{
		ID:        c.newID(),
		Status:    models.StatusProcessing,
		Filename:  sub.Filename,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.store.Put(ctx, job); err != nil {
		return "", fmt.Errorf("store job: %w", err)
	}
	telemetry.AnalysesSubmitted.Inc()
	zap.S().Named("coordinator").Infow("job submitted", "job_id", job.ID, "filename", sub.Filename)
	return job.ID, nil
}

// StartAnalysis submits the upload and runs the pipeline before returning.
// The id is returned whether the job completed or failed.
func (c *Coordinator) StartAnalysis(ctx context.Context, sub Submission) (string, error) {
	id, err := c.Submit(ctx, sub)
	if err != nil {
		return "", err
	}
	if _, err := c.Execute(ctx, id, sub); err != nil {
		return id, err
	}
	return id, nil
}

// Execute runs parse, score and summarize for a PROCESSING job and writes the
// terminal state. Parse and score failures become a FAILED job; the returned
// error only reports a store failure. Once started the run ignores
// cancellation of ctx, so the job always reaches a terminal state.
func (c *Coordinator) Execute(ctx context.Context, id string, sub Submission) (models.Job, error) {
	log := zap.S().Named("coordinator")
	ctx = context.WithoutCancel(ctx)

	current, err := c.store.Get(ctx, id)
	if err != nil {
		return models.Job{}, fmt.Errorf("load job %s: %w", id, err)
	}
	if current.Status.Terminal() {
		return current, store.ErrAlreadyFinal
	}

	job, runErr := c.run(ctx, current, sub)
	if runErr != nil {
		job = c.failed(current, runErr)
		log.Warnw("analysis failed", "job_id", id, "error", runErr)
	}
	if err := c.store.Finalize(ctx, job); err != nil {
		return job, fmt.Errorf("finalize job %s: %w", id, err)
	}
	if job.Status == models.StatusCompleted {
		telemetry.AnalysesCompleted.Inc()
		log.Infow("analysis completed", "job_id", id, "scope", job.Scope,
			"total", job.TotalTransactions().String(), "high_risk", job.HighRiskCount())
	} else {
		telemetry.AnalysesFailed.Inc()
	}
	return job, nil
}

func (c *Coordinator) run(ctx context.Context, job models.Job, sub Submission) (models.Job, error) {
	doc, err := parser.Parse(sub.Content, sub.Filename)
	if err != nil {
		return job, err
	}

	req := summarizer.Request{Guidance: sub.Guidance}
	switch doc.Kind {
	case parser.KindText:
		job.Scope = models.ScopeSummaryOnly
		job.Transactions = []models.RiskAnnotation{}
		req.Content = doc.Describe()
	default:
		annotations, err := scoring.Score(doc.Table.Rows)
		if err != nil {
			return job, err
		}
		job.Scope = models.ScopeRowLevel
		job.Transactions = annotations
		req.Annotations = annotations
		telemetry.TransactionsScored.Add(float64(len(annotations)))
		telemetry.AnomaliesFlagged.Add(float64(models.CountAnomalies(annotations)))
	}

	summary := c.narr.Summarize(ctx, req)
	job.ManagerSummary = &summary
	job.Status = models.StatusCompleted
	job.Error = ""
	job.UpdatedAt = c.now()
	return job, nil
}

func (c *Coordinator) failed(job models.Job, cause error) models.Job {
	msg := cause.Error()
	if msg == "" {
		msg = "analysis failed"
	}
	job.Status = models.StatusFailed
	job.Error = msg
	job.Scope = ""
	job.Transactions = nil
	job.ManagerSummary = nil
	job.UpdatedAt = c.now()
	return job
}

// Fail moves a PROCESSING job to FAILED without running the pipeline, for
// errors that happen before the upload reaches the parser.
func (c *Coordinator) Fail(ctx context.Context, id string, cause error) error {
	ctx = context.WithoutCancel(ctx)
	current, err := c.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load job %s: %w", id, err)
	}
	if err := c.store.Finalize(ctx, c.failed(current, cause)); err != nil {
		return fmt.Errorf("finalize job %s: %w", id, err)
	}
	telemetry.AnalysesFailed.Inc()
	zap.S().Named("coordinator").Warnw("job failed before analysis", "job_id", id, "error", cause)
	return nil
}

// GetStatus returns the stored job, or a NOT_FOUND view for unknown ids.
func (c *Coordinator) GetStatus(ctx context.Context, id string) (models.Job, error) {
	job, err := c.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.NotFound(id), nil
	}
	if err != nil {
		return models.Job{}, fmt.Errorf("load job %s: %w", id, err)
	}
	return job, nil
}

// HandleFollowUp answers query using only the job's stored summary as
// context. Earlier follow-ups are not remembered and the job is not modified.
func (c *Coordinator) HandleFollowUp(ctx context.Context, id, query string) (string, error) {
	prior := NoContextMessage
	job, err := c.store.Get(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return "", fmt.Errorf("load job %s: %w", id, err)
	case job.ManagerSummary != nil && *job.ManagerSummary != "":
		prior = *job.ManagerSummary
	}
	return c.narr.Summarize(ctx, summarizer.Request{
		Annotations:  job.Transactions,
		PriorSummary: prior,
		Guidance:     query,
		IsFollowUp:   true,
	}), nil
}
