// Package store keeps analysis job state keyed by job id.
package store

import (
	"context"
	"errors"

	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/models"
)

var (
	ErrNotFound     = errors.New("job not found")
	ErrAlreadyFinal = errors.New("job already in a terminal state")
)

// Store is the session store used by the coordinator. Implementations must
// allow concurrent readers while a pipeline for the same or another job is
// writing, and each write replaces the whole record atomically.
type Store interface {
	// Put creates or replaces the record for job.ID.
	Put(ctx context.Context, job models.Job) error
	// Get returns ErrNotFound for unknown ids.
	Get(ctx context.Context, id string) (models.Job, error)
	// Finalize replaces a PROCESSING record with a terminal one. It returns
	// ErrNotFound for unknown ids and ErrAlreadyFinal if the job has already
	// left PROCESSING.
	Finalize(ctx context.Context, job models.Job) error
}
