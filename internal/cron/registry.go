package cron

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Job is one unit of scheduled work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Entry pairs a job with its cadence. Every <= 0 runs the job on each cycle.
type Entry struct {
	Job   Job
	Every time.Duration
}

// Registry holds uniquely named jobs in registration order.
type Registry struct {
	entries []Entry
	names   map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{names: map[string]struct{}{}}
}

// Register adds job; a second job with the same name is rejected because
// metrics and last-run bookkeeping are keyed by name.
func (r *Registry) Register(job Job, every time.Duration) error {
	if job == nil {
		return fmt.Errorf("job is nil")
	}
	name := strings.TrimSpace(job.Name())
	if name == "" {
		return fmt.Errorf("job name is required")
	}
	if _, dup := r.names[name]; dup {
		return fmt.Errorf("job %q already registered", name)
	}
	r.names[name] = struct{}{}
	r.entries = append(r.entries, Entry{Job: job, Every: every})
	return nil
}

func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}
