package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/seek/internal/models"
)

func waitFor(t *testing.T, m *Manager, id string, status Status) Job {
	t.Helper()
	var job Job
	require.Eventually(t, func() bool {
		var err error
		job, err = m.Get(context.Background(), id)
		return err == nil && job.Status == status
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestManagerRecordsResult(t *testing.T) {
	release := make(chan struct{})
	run := func(ctx context.Context, query string) (*models.Result, error) {
		<-release
		return &models.Result{Query: query, Answer: "42", Documents: []models.Document{}, AllDocuments: []models.Document{}}, nil
	}
	m, err := NewManager(run, NewMemoryStore(0), ManagerConfig{Workers: 2})
	require.NoError(t, err)
	defer m.Close(time.Second)

	job, err := m.Submit(context.Background(), "meaning of life")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, job.Status)
	assert.NotEmpty(t, job.ID)

	got, err := m.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, got.Status)

	close(release)
	done := waitFor(t, m, job.ID, StatusDone)
	require.NotNil(t, done.Result)
	assert.Equal(t, "42", done.Result.Answer)
	assert.Empty(t, done.Error)
}

func TestManagerRecordsFailure(t *testing.T) {
	run := func(ctx context.Context, query string) (*models.Result, error) {
		return nil, errors.New("generation error: model not found")
	}
	m, err := NewManager(run, NewMemoryStore(0), ManagerConfig{})
	require.NoError(t, err)
	defer m.Close(time.Second)

	job, err := m.Submit(context.Background(), "q")
	require.NoError(t, err)

	failed := waitFor(t, m, job.ID, StatusFailed)
	assert.Equal(t, "generation error: model not found", failed.Error)
	assert.Nil(t, failed.Result)
}

func TestManagerOutlivesRequest(t *testing.T) {
	run := func(ctx context.Context, query string) (*models.Result, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
			return &models.Result{Query: query}, nil
		}
	}
	m, err := NewManager(run, NewMemoryStore(0), ManagerConfig{})
	require.NoError(t, err)
	defer m.Close(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	job, err := m.Submit(ctx, "q")
	require.NoError(t, err)
	cancel()

	waitFor(t, m, job.ID, StatusDone)
}

func TestManagerTimeout(t *testing.T) {
	run := func(ctx context.Context, query string) (*models.Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	m, err := NewManager(run, NewMemoryStore(0), ManagerConfig{Timeout: 20 * time.Millisecond})
	require.NoError(t, err)
	defer m.Close(time.Second)

	job, err := m.Submit(context.Background(), "q")
	require.NoError(t, err)

	failed := waitFor(t, m, job.ID, StatusFailed)
	assert.Contains(t, failed.Error, "deadline exceeded")
}

func TestManagerBusy(t *testing.T) {
	release := make(chan struct{})
	run := func(ctx context.Context, query string) (*models.Result, error) {
		<-release
		return &models.Result{}, nil
	}
	m, err := NewManager(run, NewMemoryStore(0), ManagerConfig{Workers: 1})
	require.NoError(t, err)
	defer m.Close(time.Second)

	first, err := m.Submit(context.Background(), "one")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return m.Running() == 1 }, time.Second, time.Millisecond)
	rejected, err := m.Submit(context.Background(), "two")
	assert.ErrorIs(t, err, ErrBusy)
	require.NotEmpty(t, rejected.ID)
	assert.Equal(t, StatusFailed, rejected.Status)

	stored, err := m.Get(context.Background(), rejected.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, stored.Status)
	assert.Equal(t, ErrBusy.Error(), stored.Error)

	close(release)
	waitFor(t, m, first.ID, StatusDone)
}

func TestManagerUnknownJob(t *testing.T) {
	m, err := NewManager(nil, NewMemoryStore(0), ManagerConfig{})
	require.NoError(t, err)
	defer m.Close(time.Second)

	_, err = m.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
