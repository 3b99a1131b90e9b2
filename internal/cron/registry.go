package cron

import (
	"context"
	"fmt"
)

// Job is one sweep the cron worker runs each cycle.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds jobs in run order. Reconciliation must precede expiry so
// a captured payment is recorded before its attempt ages out.
type Registry struct {
	jobs []Job
}

// NewRegistry rejects nil jobs and duplicate names.
func NewRegistry(jobs ...Job) (*Registry, error) {
	seen := make(map[string]struct{}, len(jobs))
	registry := &Registry{jobs: make([]Job, 0, len(jobs))}
	for i, job := range jobs {
		if job == nil {
			return nil, fmt.Errorf("job %d is nil", i)
		}
		name := job.Name()
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("job %q registered twice", name)
		}
		seen[name] = struct{}{}
		registry.jobs = append(registry.jobs, job)
	}
	return registry, nil
}

// Jobs returns a copy in run order.
func (r *Registry) Jobs() []Job {
	return append([]Job(nil), r.jobs...)
}
