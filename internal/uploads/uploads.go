// Package uploads hands raw upload bytes from the API to a worker.
package uploads

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an upload expired or was never written.
var ErrNotFound = errors.New("upload not found")

// Store persists upload payloads under an opaque key.
type Store interface {
	Put(ctx context.Context, key string, body []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Key returns the storage key for a job's upload.
func Key(jobID, filename string) string {
	return "uploads/" + jobID + "/" + filename
}
