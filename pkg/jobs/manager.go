package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/xhad/seek/internal/models"
	"github.com/xhad/seek/pkg/logging"
)

// RunFunc answers one query.
type RunFunc func(ctx context.Context, query string) (*models.Result, error)

type ManagerConfig struct {
	Workers int
	Timeout time.Duration // bound on one run, independent of the submitting request
}

// Manager runs queries in the background and records their outcome in a Store.
type Manager struct {
	config ManagerConfig
	run    RunFunc
	store  Store
	pool   *ants.Pool
	now    func() time.Time
}

func NewManager(run RunFunc, store Store, config ManagerConfig) (*Manager, error) {
	if config.Workers <= 0 {
		config.Workers = 8
	}
	if config.Timeout == 0 {
		config.Timeout = 2 * time.Minute
	}

	pool, err := ants.NewPool(config.Workers,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(p any) {
			zap.L().Error("Job panicked", zap.Any("panic", p))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create job pool: %w", err)
	}

	return &Manager{
		config: config,
		run:    run,
		store:  store,
		pool:   pool,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Submit records a running job and starts it. The run outlives ctx but keeps
// its values. When every worker is occupied the job is recorded as failed and
// returned together with ErrBusy.
func (m *Manager) Submit(ctx context.Context, query string) (Job, error) {
	now := m.now()
	job := Job{
		ID:        uuid.NewString(),
		Status:    StatusRunning,
		Query:     query,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.Put(ctx, job); err != nil {
		return Job{}, fmt.Errorf("failed to record job: %w", err)
	}

	runCtx := context.WithoutCancel(ctx)
	err := m.pool.Submit(func() {
		m.execute(runCtx, job)
	})
	if err != nil {
		job.Status = StatusFailed
		job.Error = ErrBusy.Error()
		job.UpdatedAt = m.now()
		if putErr := m.store.Put(ctx, job); putErr != nil {
			logging.FromContext(ctx).Warn("Failed to record rejected job", zap.String("job_id", job.ID), zap.Error(putErr))
		}
		if errors.Is(err, ants.ErrPoolOverload) {
			return job, ErrBusy
		}
		return job, fmt.Errorf("failed to start job: %w", err)
	}

	return job, nil
}

func (m *Manager) execute(ctx context.Context, job Job) {
	log := logging.FromContext(ctx).With(zap.String("job_id", job.ID))

	runCtx, cancel := context.WithTimeout(ctx, m.config.Timeout)
	result, err := m.run(runCtx, job.Query)
	cancel()

	job.UpdatedAt = m.now()
	if err != nil {
		job.Status = StatusFailed
		job.Error = err.Error()
		log.Warn("Job failed", zap.Error(err))
	} else {
		job.Status = StatusDone
		job.Result = result
		log.Info("Job finished")
	}

	storeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := m.store.Put(storeCtx, job); err != nil {
		log.Error("Failed to record job outcome", zap.Error(err))
	}
}

// Get returns the job with id, or ErrNotFound.
func (m *Manager) Get(ctx context.Context, id string) (Job, error) {
	return m.store.Get(ctx, id)
}

// Running is the number of jobs currently executing.
func (m *Manager) Running() int {
	return m.pool.Running()
}

// Close waits up to timeout for running jobs, then closes the store.
func (m *Manager) Close(timeout time.Duration) error {
	if err := m.pool.ReleaseTimeout(timeout); err != nil {
		zap.L().Warn("Jobs still running at shutdown", zap.Error(err))
	}
	return m.store.Close()
}
