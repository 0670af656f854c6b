package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/models"
)

// PostgresStore wraps pgxpool for durable job persistence.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a pooled connection to Postgres.
func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Put upserts the job document.
func (s *PostgresStore) Put(ctx context.Context, job models.Job) error {
	doc, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO analysis_jobs (id, status, document, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status, document = EXCLUDED.document, updated_at = NOW()
	`, job.ID, string(job.Status), doc)
	if err != nil {
		return fmt.Errorf("upsert job: %w", err)
	}
	return nil
}

// Get fetches a job by id.
func (s *PostgresStore) Get(ctx context.Context, id string) (models.Job, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT document FROM analysis_jobs WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Job{}, ErrNotFound
	}
	if err != nil {
		return models.Job{}, fmt.Errorf("scan job: %w", err)
	}
	var job models.Job
	if err := json.Unmarshal(doc, &job); err != nil {
		return models.Job{}, fmt.Errorf("unmarshal job: %w", err)
	}
	return job, nil
}

// Finalize writes the terminal document only while the row is still PROCESSING.
func (s *PostgresStore) Finalize(ctx context.Context, job models.Job) error {
	doc, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE analysis_jobs
		SET status = $2, document = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4
	`, job.ID, string(job.Status), doc, string(models.StatusProcessing))
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM analysis_jobs WHERE id = $1)`, job.ID).Scan(&exists); err != nil {
		return fmt.Errorf("check job: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrAlreadyFinal
}
