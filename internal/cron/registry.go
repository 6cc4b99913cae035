package cron

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Job is a scheduled task. now is the cycle's tick in local time, shared by every job
// of the same cycle so they agree on the current day and hour.
type Job interface {
	Name() string
	Run(ctx context.Context, now time.Time) error
}

// Registry holds jobs in registration order under unique names.
type Registry struct {
	jobs   []Job
	byName map[string]Job
}

// NewRegistry registers jobs in order; nil entries are ignored.
func NewRegistry(jobs ...Job) (*Registry, error) {
	registry := &Registry{byName: map[string]Job{}}
	for _, job := range jobs {
		if err := registry.Register(job); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register adds a job. Names must be unique since they key run markers and metrics.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	name := job.Name()
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("cron job without a name")
	}
	if _, dup := r.byName[name]; dup {
		return fmt.Errorf("cron job %q registered twice", name)
	}
	r.byName[name] = job
	r.jobs = append(r.jobs, job)
	return nil
}

// Jobs returns the registered jobs in the order they were added.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}

// Select returns a registry restricted to the named jobs, keeping registration order.
// No names selects everything.
func (r *Registry) Select(names ...string) (*Registry, error) {
	wanted := map[string]bool{}
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			wanted[name] = true
		}
	}
	if len(wanted) == 0 {
		return r, nil
	}
	for name := range wanted {
		if _, ok := r.byName[name]; !ok {
			return nil, fmt.Errorf("unknown cron job %q", name)
		}
	}
	out := &Registry{byName: map[string]Job{}}
	for _, job := range r.jobs {
		if wanted[job.Name()] {
			out.byName[job.Name()] = job
			out.jobs = append(out.jobs, job)
		}
	}
	return out, nil
}
