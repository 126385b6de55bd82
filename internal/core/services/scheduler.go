package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/ports"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/db"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/log"
)

// Job is one recurring maintenance task.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler runs named jobs on fixed intervals. Each execution first takes
// the cluster wide lock so a job runs on one replica at a time, and a job
// never overlaps with itself on the same node.
type Scheduler struct {
	storage  *db.Storage
	locks    ports.LockRepository
	owner    string
	leaseFor time.Duration

	mu      sync.Mutex
	running map[string]bool
}

// NewScheduler creates a Scheduler. leaseFor bounds how long a crashed
// replica can hold a job lock.
func NewScheduler(storage *db.Storage, locks ports.LockRepository, leaseFor time.Duration) *Scheduler {
	return &Scheduler{
		storage:  storage,
		locks:    locks,
		owner:    uuid.NewString(),
		leaseFor: leaseFor,
		running:  make(map[string]bool),
	}
}

// Start runs the jobs until ctx is cancelled
func (s *Scheduler) Start(ctx context.Context, jobs ...Job) {
	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			ticker := time.NewTicker(job.Interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					s.runOnce(ctx, job)
				}
			}
		}(job)
	}
	wg.Wait()
}

func (s *Scheduler) runOnce(ctx context.Context, job Job) {
	if !s.tryStart(job.Name) {
		return
	}
	defer s.finish(job.Name)

	acquired, err := s.locks.Acquire(ctx, s.storage.Pgx, job.Name, s.owner, s.leaseFor)
	if err != nil {
		log.Error(ctx, "acquiring scheduler lock", "err", err, "job", job.Name)
		return
	}
	if !acquired {
		// another replica runs this job, skip the cycle
		return
	}
	defer func() {
		if err := s.locks.Release(ctx, s.storage.Pgx, job.Name, s.owner); err != nil {
			log.Error(ctx, "releasing scheduler lock", "err", err, "job", job.Name)
		}
	}()

	if err := job.Run(ctx); err != nil {
		log.Error(ctx, "scheduled job failed", "err", err, "job", job.Name)
	}
}

func (s *Scheduler) tryStart(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[name] {
		return false
	}
	s.running[name] = true
	return true
}

func (s *Scheduler) finish(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, name)
}
