package jobs

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps jobs in process memory. Finished jobs older than the
// TTL are swept on write.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]Job
	ttl  time.Duration
	now  func() time.Time
}

// NewMemoryStore returns an empty store. A ttl of 0 keeps jobs forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]Job),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (s *MemoryStore) Put(_ context.Context, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[job.ID] = job
	s.sweep()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return job, nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

func (s *MemoryStore) Close() error { return nil }

// sweep must be called with mu held.
func (s *MemoryStore) sweep() {
	if s.ttl <= 0 {
		return
	}
	cutoff := s.now().Add(-s.ttl)
	for id, job := range s.jobs {
		if job.finished() && job.UpdatedAt.Before(cutoff) {
			delete(s.jobs, id)
		}
	}
}
