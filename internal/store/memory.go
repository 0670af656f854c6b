package store

import (
	"context"
	"sync"

	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/models"
)

// MemoryStore keeps jobs for the lifetime of the process. Nothing is evicted.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]models.Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]models.Job)}
}

func (s *MemoryStore) Put(_ context.Context, job models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return models.Job{}, ErrNotFound
	}
	return job, nil
}

func (s *MemoryStore) Finalize(_ context.Context, job models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.jobs[job.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Status != models.StatusProcessing {
		return ErrAlreadyFinal
	}
	s.jobs[job.ID] = job
	return nil
}

// Len reports how many jobs are held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
