// Package registry maps opaque integer handles to export jobs so hosts never
// hold raw job references. Handle lifetime, lookup, and teardown are
// serialized through one lock.
package registry

import (
	"log/slog"
	"sync"
	"time"

	"clipforge/internal/export"
	"clipforge/internal/logging"
)

// Handle identifies one job. Handles are monotonic and never reused, so a
// stale handle from a destroyed job can never alias a newer one.
type Handle int64

// Factory builds the job a Create call registers.
type Factory func() *export.Job

// Registry is the process-wide handle table.
type Registry struct {
	factory Factory
	logger  *slog.Logger

	mu     sync.Mutex
	next   Handle
	jobs   map[Handle]*export.Job
	closed bool
}

// New constructs a registry producing jobs from factory.
func New(factory Factory, logger *slog.Logger) *Registry {
	return &Registry{
		factory: factory,
		logger:  logging.NewComponentLogger(logger, "registry"),
		next:    1,
		jobs:    make(map[Handle]*export.Job),
	}
}

// Create allocates a job and returns its handle. It returns 0 after Close.
func (r *Registry) Create() Handle {
	job := r.factory()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0
	}
	handle := r.next
	r.next++
	r.jobs[handle] = job
	r.mu.Unlock()

	r.logger.Debug("job created", logging.Int64(logging.FieldHandle, int64(handle)))
	return handle
}

// Lookup resolves a handle. The second return is false for unknown handles;
// query callers treat that as "not running" rather than an error.
func (r *Registry) Lookup(handle Handle) (*export.Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[handle]
	return job, ok
}

// Len reports the number of live handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// Destroy removes a handle. A still-running job is cancelled and its worker
// waited out before the entry is released, so no worker outlives its handle.
// Returns false for unknown handles.
func (r *Registry) Destroy(handle Handle) bool {
	r.mu.Lock()
	job, ok := r.jobs[handle]
	if ok {
		delete(r.jobs, handle)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}

	if job.Cancel() {
		r.logger.Info("destroy cancelled running job",
			logging.Int64(logging.FieldHandle, int64(handle)),
			logging.String(logging.FieldJobID, job.RunID()))
	}
	job.Wait(0)
	r.logger.Debug("job destroyed", logging.Int64(logging.FieldHandle, int64(handle)))
	return true
}

// Close destroys every remaining job and rejects further Create calls.
func (r *Registry) Close(timeout time.Duration) {
	r.mu.Lock()
	r.closed = true
	handles := make([]Handle, 0, len(r.jobs))
	jobs := make([]*export.Job, 0, len(r.jobs))
	for handle, job := range r.jobs {
		handles = append(handles, handle)
		jobs = append(jobs, job)
	}
	r.jobs = make(map[Handle]*export.Job)
	r.mu.Unlock()

	for i, job := range jobs {
		job.Cancel()
		if !job.Wait(timeout) {
			r.logger.Warn("job did not stop before shutdown deadline",
				logging.Int64(logging.FieldHandle, int64(handles[i])))
		}
	}
}
