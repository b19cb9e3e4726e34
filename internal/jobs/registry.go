package jobs

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Defaults for the background sweeper.
const (
	DefaultRetention     = time.Hour
	DefaultSweepInterval = 30 * time.Minute
)

// Registry holds jobs in memory and expires them after a retention window.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*Job

	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger

	stopOnce sync.Once
	stop     chan struct{}
}

// NewRegistry creates a registry and starts its sweeper goroutine.
// Close stops the sweeper.
func NewRegistry(retention, interval time.Duration, logger *slog.Logger) *Registry {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		jobs:      make(map[string]*Job),
		retention: retention,
		interval:  interval,
		logger:    logger,
		stop:      make(chan struct{}),
	}
	go r.sweepLoop()
	return r
}

// Create registers a new running job for the given upload set.
func (r *Registry) Create(fileCount int, fileNames []string) *Job {
	job := &Job{
		id:        uuid.NewString(),
		createdAt: time.Now(),
		status:    StatusRunning,
		stage:     "Starting",
		fileCount: fileCount,
		fileNames: append([]string(nil), fileNames...),
	}

	r.mu.Lock()
	r.jobs[job.id] = job
	r.mu.Unlock()

	r.logger.Info("job created", "id", job.id, "files", fileCount)
	return job
}

// Get returns the job with the given ID.
func (r *Registry) Get(id string) (*Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	return job, ok
}

// Len returns the number of tracked jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// Sweep removes jobs created before now minus the retention window and
// returns how many were dropped.
func (r *Registry) Sweep(now time.Time) int {
	cutoff := now.Add(-r.retention)

	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, job := range r.jobs {
		if job.CreatedAt().Before(cutoff) {
			delete(r.jobs, id)
			removed++
		}
	}
	return removed
}

// Close stops the background sweeper.
func (r *Registry) Close() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *Registry) sweepLoop() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case now := <-ticker.C:
			if removed := r.Sweep(now); removed > 0 {
				r.logger.Info("expired jobs removed", "count", removed)
			}
		}
	}
}
