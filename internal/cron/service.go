package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/merchdrop-backend/pkg/logger"
	"github.com/angelmondragon/merchdrop-backend/pkg/metrics"
)

const defaultInterval = time.Hour

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
	Now      func() time.Time
}

// Service wakes every interval and, while holding the cluster lock, runs the
// registered jobs whose cadence has come round.
type Service struct {
	logg      *logger.Logger
	jobs      *Registry
	lock      Lock
	metrics   *metrics.CronJobMetrics
	interval  time.Duration
	now       func() time.Time
	succeeded map[string]time.Time
}

// tickResult summarises one wake-up.
type tickResult struct {
	Locked bool
	Ran    []string
	Failed []string
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.Lock == nil:
		return nil, errors.New("lock required")
	}
	s := &Service{
		logg:      params.Logger,
		jobs:      params.Registry,
		lock:      params.Lock,
		metrics:   params.Metrics,
		interval:  params.Interval,
		now:       params.Now,
		succeeded: map[string]time.Time{},
	}
	if s.jobs == nil {
		s.jobs = NewRegistry()
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Run ticks once straight away and then every interval until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if _, err := s.tick(ctx); err != nil {
			s.logg.Error(ctx, "cron.tick.failed", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// tick runs every due job. A failing job does not stop the others; their
// errors come back combined.
func (s *Service) tick(ctx context.Context) (tickResult, error) {
	var res tickResult
	ok, err := s.lock.Acquire(ctx)
	if err != nil {
		return res, fmt.Errorf("lock acquire: %w", err)
	}
	if !ok {
		s.logg.Info(ctx, "cron.tick.lock_held")
		return res, nil
	}
	res.Locked = true
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			s.logg.Error(ctx, "cron.lock.release_failed", err)
		}
	}()

	var errs error
	for _, entry := range s.jobs.Entries() {
		name := entry.Job.Name()
		if last, seen := s.succeeded[name]; seen && entry.Every > 0 && s.now().Sub(last) < entry.Every {
			continue
		}
		res.Ran = append(res.Ran, name)
		if err := s.execute(ctx, entry.Job); err != nil {
			res.Failed = append(res.Failed, name)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"ran":    res.Ran,
		"failed": res.Failed,
	}), "cron.tick.complete")
	return res, errs
}

// execute runs one job, turning a panic into an error. Only a success moves
// the job's cadence forward, so a failure is retried on the next tick.
func (s *Service) execute(ctx context.Context, job Job) (err error) {
	name := job.Name()
	ctx = s.logg.WithField(ctx, "job", name)
	started := s.now()
	began := time.Now()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
		elapsed := time.Since(began)
		s.metrics.ObserveRun(name, elapsed, s.now(), err)
		ctx = s.logg.WithField(ctx, "duration_ms", elapsed.Milliseconds())
		if err != nil {
			s.logg.Error(ctx, "cron.job.failed", err)
			return
		}
		s.succeeded[name] = started
		s.logg.Info(ctx, "cron.job.complete")
	}()
	return job.Run(ctx)
}
