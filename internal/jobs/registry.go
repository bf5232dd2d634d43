// Package jobs runs comprehensive scans in the background and tracks them.
//
// A job is registered as running, executes a fixed pipeline of tool
// adapters on its own goroutine and is published as completed together with
// its aggregate. Jobs are kept for the lifetime of the process.
package jobs

import (
	"sort"
	"sync"
	"time"

	"github.com/anstrom/reconai/internal/errors"
	"github.com/anstrom/reconai/internal/tools"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
)

// Job is the metadata of one comprehensive scan.
type Job struct {
	ID        string     `json:"scan_id"`
	Target    string     `json:"target"`
	Tools     []string   `json:"tools"`
	Status    Status     `json:"status"`
	StartedAt time.Time  `json:"start_time"`
	EndedAt   *time.Time `json:"end_time,omitempty"`
}

// Duration returns the elapsed run time of a completed job, or zero.
func (j Job) Duration() time.Duration {
	if j.EndedAt == nil {
		return 0
	}
	return j.EndedAt.Sub(j.StartedAt)
}

// Aggregate is the result set of a completed job, keyed by tool name.
type Aggregate struct {
	ScanID        string                       `json:"scan_id"`
	Target        string                       `json:"target"`
	Results       map[tools.Name]*tools.Result `json:"results"`
	TotalDuration float64                      `json:"total_duration"`
	StartedAt     time.Time                    `json:"start_time"`
	EndedAt       time.Time                    `json:"end_time"`
}

// Counts summarises the registry.
type Counts struct {
	Running   int `json:"running"`
	Completed int `json:"completed"`
}

// Registry stores jobs and the aggregates of completed jobs.
// Aggregates are treated as read-only once published.
type Registry struct {
	mu      sync.RWMutex
	jobs    map[string]*Job
	results map[string]*Aggregate
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		jobs:    make(map[string]*Job),
		results: make(map[string]*Aggregate),
	}
}

// Register adds a running job. Registering an existing id fails with
// CodeConflict.
func (r *Registry) Register(job Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[job.ID]; exists {
		return errors.NewScanErrorWithTarget(errors.CodeConflict, "scan id already issued", job.ID)
	}

	job.Status = StatusRunning
	job.EndedAt = nil
	job.Tools = append([]string(nil), job.Tools...)
	r.jobs[job.ID] = &job
	return nil
}

// Complete marks a running job completed and publishes its aggregate in the
// same critical section, so no reader sees one without the other.
func (r *Registry) Complete(id string, agg *Aggregate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return errors.ErrScanNotFound(id)
	}
	if job.Status == StatusCompleted {
		return errors.NewScanErrorWithTarget(errors.CodeConflict, "scan already completed", id)
	}

	ended := agg.EndedAt
	updated := *job
	updated.Status = StatusCompleted
	updated.EndedAt = &ended
	r.jobs[id] = &updated
	r.results[id] = agg
	return nil
}

// Status returns a copy of the job with the given id.
func (r *Registry) Status(id string) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return job.clone(), true
}

// Result returns the aggregate of a completed job.
func (r *Registry) Result(id string) (*Aggregate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agg, ok := r.results[id]
	return agg, ok
}

// List returns copies of all jobs, newest first.
func (r *Registry) List() []Job {
	r.mu.RLock()
	list := make([]Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		list = append(list, job.clone())
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		if list[i].StartedAt.Equal(list[j].StartedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].StartedAt.After(list[j].StartedAt)
	})
	return list
}

// Counts returns the number of running and completed jobs.
func (r *Registry) Counts() Counts {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var c Counts
	for _, job := range r.jobs {
		if job.Status == StatusCompleted {
			c.Completed++
		} else {
			c.Running++
		}
	}
	return c
}

func (j *Job) clone() Job {
	c := *j
	c.Tools = append([]string(nil), j.Tools...)
	if j.EndedAt != nil {
		ended := *j.EndedAt
		c.EndedAt = &ended
	}
	return c
}
