package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/xhad/seek/internal/models"
)

var (
	ErrNotFound = errors.New("job not found")
	ErrBusy     = errors.New("job queue is full")
)

type Status string

const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Job is one queued pipeline run. Result is set when Status is done and
// Error when it is failed.
type Job struct {
	ID        string         `json:"job_id"`
	Status    Status         `json:"status"`
	Query     string         `json:"query"`
	Result    *models.Result `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (j Job) finished() bool {
	return j.Status == StatusDone || j.Status == StatusFailed
}

// Store persists jobs by ID. Implementations are safe for concurrent use.
type Store interface {
	// Put inserts or replaces the job with the same ID.
	Put(ctx context.Context, job Job) error
	// Get returns ErrNotFound for an unknown ID.
	Get(ctx context.Context, id string) (Job, error)
	Close() error
}
