package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var bucketJobs = []byte("jobs")

// BoltStore keeps jobs in a local bbolt file so they survive restarts.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketJobs); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketJobs, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Put(_ context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketJobs).Put([]byte(job.ID), data)
	})
}

func (s *BoltStore) Get(_ context.Context, id string) (Job, error) {
	var job Job
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketJobs).Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &job)
	})
	return job, err
}

// MarkInterrupted fails every job still running, for use at startup when
// no worker can be running them anymore.
func (s *BoltStore) MarkInterrupted(_ context.Context) (int, error) {
	count := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketJobs)
		var stale []Job
		err := b.ForEach(func(_, v []byte) error {
			var job Job
			if err := json.Unmarshal(v, &job); err != nil {
				return err
			}
			if job.Status == StatusRunning {
				stale = append(stale, job)
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, job := range stale {
			job.Status = StatusFailed
			job.Error = "interrupted by restart"
			job.UpdatedAt = time.Now().UTC()
			data, err := json.Marshal(job)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(job.ID), data); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
