package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/pdv-backend/pkg/logger"
	"github.com/angelmondragon/pdv-backend/pkg/metrics"
	"github.com/angelmondragon/pdv-backend/pkg/storeday"
)

const (
	defaultInterval = time.Hour
	// rolloverGrace delays the post-midnight cycle so sessions stamped just before midnight
	// have committed.
	rolloverGrace = time.Minute
)

// ServiceParams configure the maintenance worker.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
	// Calendar adds a cycle right after each store-local midnight. Optional.
	Calendar *storeday.Calendar
}

// Service runs the registered maintenance jobs every interval and once more when the store's
// business day rolls over, so yesterday's open drawers are reported without waiting a full
// interval.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.CronJobMetrics
	interval time.Duration
	calendar *storeday.Calendar
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
		calendar: params.Calendar,
		now:      time.Now,
	}, nil
}

// Run starts the maintenance loop until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		if err := s.runCycle(ctx); err != nil {
			s.logg.Error(ctx, "maintenance cycle failed", err)
		}

		wait := s.nextWait()
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logg.Info(ctx, "maintenance worker context canceled")
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// nextWait is the interval, cut short when the store day ends first.
func (s *Service) nextWait() time.Duration {
	wait := s.interval
	if s.calendar == nil {
		return wait
	}
	now := s.now()
	rollover := s.calendar.DayOf(now).End().Add(rolloverGrace)
	if untilRollover := rollover.Sub(now); untilRollover > 0 && untilRollover < wait {
		return untilRollover
	}
	return wait
}

func (s *Service) runCycle(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Info(ctx, "another worker holds the maintenance lock; skipping this cycle")
		return nil
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "failed to release maintenance lock", relErr)
		}
	}()

	if s.calendar != nil {
		ctx = s.logg.WithField(ctx, "business_date", s.calendar.DayOf(s.now()).Key())
	}
	s.logg.Info(ctx, "maintenance cycle starting")
	failed := 0
	for _, job := range s.registry.Jobs() {
		if !s.runJob(ctx, job) {
			failed++
		}
	}
	s.logg.Info(s.logg.WithField(ctx, "failed_jobs", failed), "maintenance cycle complete")
	return nil
}

// runJob reports whether the job succeeded. A panicking job counts as a failure and does not
// stop the remaining jobs.
func (s *Service) runJob(ctx context.Context, job Job) (ok bool) {
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": job.Name(), "event": "cron.job"})
	s.logg.Info(jobCtx, "job start")
	start := time.Now()
	defer func() {
		duration := time.Since(start)
		s.observeDuration(job.Name(), duration)
		jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
		if p := recover(); p != nil {
			s.logg.Error(jobCtx, "job panicked", fmt.Errorf("panic: %v", p))
			ok = false
		}
		if !ok {
			s.recordFailure(job.Name())
			return
		}
		s.logg.Info(jobCtx, "job completed")
		s.recordSuccess(job.Name())
	}()

	if err := job.Run(jobCtx); err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		return false
	}
	return true
}

func (s *Service) observeDuration(job string, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveDuration(job, duration)
}

func (s *Service) recordSuccess(job string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncSuccess(job)
}

func (s *Service) recordFailure(job string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncFailure(job)
}
