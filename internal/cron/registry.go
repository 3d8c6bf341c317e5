package cron

import (
	"context"
	"fmt"
	"strings"
)

// Job is one unit of scheduled maintenance. Name labels its logs and metrics.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry is the ordered set of jobs a cycle runs.
type Registry struct {
	jobs  []Job
	names map[string]struct{}
}

// NewRegistry skips nil jobs so optional jobs can be passed unconditionally.
// Job names must be unique since they key the cron metrics.
func NewRegistry(jobs ...Job) (*Registry, error) {
	r := &Registry{names: make(map[string]struct{}, len(jobs))}
	for _, job := range jobs {
		if job == nil {
			continue
		}
		name := strings.TrimSpace(job.Name())
		if name == "" {
			return nil, fmt.Errorf("cron job %T has no name", job)
		}
		if _, dup := r.names[name]; dup {
			return nil, fmt.Errorf("cron job %q registered twice", name)
		}
		r.names[name] = struct{}{}
		r.jobs = append(r.jobs, job)
	}
	return r, nil
}

func (r *Registry) Len() int { return len(r.jobs) }

// each visits jobs in registration order.
func (r *Registry) each(fn func(Job)) {
	for _, job := range r.jobs {
		fn(job)
	}
}
