// Package scheduler runs the recurring billing jobs. Cron fires on every
// instance; the distributed lock decides which instance actually works, so
// the jobs themselves stay oblivious to deployment topology.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/loopbill/loopbill/internal/api/dto"
	"github.com/loopbill/loopbill/internal/lock"
	"github.com/loopbill/loopbill/internal/logger"
	"github.com/loopbill/loopbill/internal/metrics"
	"github.com/loopbill/loopbill/internal/service"
	"github.com/loopbill/loopbill/internal/types"
)

// Fixed UTC cadences. Issuance fires daily and filters on the calendar
// internally because cron cannot express "last day of the month".
const (
	scheduleIssuance    = "55 23 * * *"
	scheduleEnforcement = "10 0 * * *"
	scheduleReminders   = "0 8 * * *"
)

// Scheduler owns the cron loop and the lock-guarded job wrappers.
type Scheduler struct {
	cron    *cron.Cron
	billing service.BillingService
	lock    lock.Lock
	metrics *metrics.Metrics
	log     *logger.Logger
}

// New creates a scheduler; call Start to begin ticking.
func New(billing service.BillingService, l lock.Lock, m *metrics.Metrics, log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		billing: billing,
		lock:    l,
		metrics: m,
		log:     log,
	}
}

// Start registers the three billing jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	jobs := []struct {
		spec string
		name string
		run  func()
	}{
		{scheduleIssuance, types.JobIssueInvoices, s.issuanceTick},
		{scheduleEnforcement, types.JobApplyEnforcement, s.enforcementTick},
		{scheduleReminders, types.JobSendReminders, s.remindersTick},
	}

	for _, j := range jobs {
		if _, err := s.cron.AddFunc(j.spec, j.run); err != nil {
			return err
		}
		s.log.Infow("scheduled billing job", "job", j.name, "spec", j.spec)
	}

	s.cron.Start()
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop(ctx context.Context) {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		s.log.Warn("shutdown deadline reached with billing job still running")
	}
}

func (s *Scheduler) issuanceTick() {
	now := time.Now().UTC()
	// Real work happens only on the last day of the month: issuance fires
	// at 23:55 when tomorrow is day 1.
	if now.AddDate(0, 0, 1).Day() != 1 {
		s.log.Debugw("issuance tick outside month end, nothing to do", "now", now.Format(time.RFC3339))
		return
	}
	if _, err := s.RunIssuance(context.Background(), now); err != nil {
		s.log.Errorw("issuance job failed", "error", err)
	}
}

func (s *Scheduler) enforcementTick() {
	if _, err := s.RunEnforcement(context.Background(), time.Now().UTC()); err != nil {
		s.log.Errorw("enforcement job failed", "error", err)
	}
}

func (s *Scheduler) remindersTick() {
	if _, err := s.RunReminders(context.Background(), time.Now().UTC()); err != nil {
		s.log.Errorw("reminders job failed", "error", err)
	}
}

// RunIssuance executes one lock-guarded issuance run. Locked=true in the
// result means another instance held the lock and no work was done.
func (s *Scheduler) RunIssuance(ctx context.Context, now time.Time) (*dto.IssueRunResult, error) {
	result := &dto.IssueRunResult{}
	locked, err := s.withLock(ctx, types.JobIssueInvoices, types.LockTTLIssueInvoices, func() error {
		r, err := s.billing.IssueMonthlyInvoices(ctx, now)
		if err != nil {
			return err
		}
		*result = *r
		return nil
	})
	result.Locked = locked
	return result, err
}

// RunEnforcement executes one lock-guarded enforcement run.
func (s *Scheduler) RunEnforcement(ctx context.Context, now time.Time) (*dto.EnforcementRunResult, error) {
	result := &dto.EnforcementRunResult{}
	locked, err := s.withLock(ctx, types.JobApplyEnforcement, types.LockTTLApplyEnforcement, func() error {
		r, err := s.billing.ApplyEnforcement(ctx, now)
		if err != nil {
			return err
		}
		*result = *r
		return nil
	})
	result.Locked = locked
	return result, err
}

// RunReminders executes one lock-guarded reminder run.
func (s *Scheduler) RunReminders(ctx context.Context, now time.Time) (*dto.ReminderRunResult, error) {
	result := &dto.ReminderRunResult{}
	locked, err := s.withLock(ctx, types.JobSendReminders, types.LockTTLSendReminders, func() error {
		r, err := s.billing.SendReminders(ctx, now)
		if err != nil {
			return err
		}
		*result = *r
		return nil
	})
	result.Locked = locked
	return result, err
}

// withLock wraps one job run in try-acquire/release. A held lock is a
// logged skip, not an error: the next scheduled tick is the retry
// mechanism. The duration metric is recorded before the lock is released,
// on both success and failure paths.
func (s *Scheduler) withLock(ctx context.Context, job string, ttl time.Duration, fn func() error) (locked bool, err error) {
	ok, err := s.lock.TryAcquire(ctx, job, ttl)
	if err != nil {
		return false, err
	}
	if !ok {
		s.log.Infow("job skipped: locked", "job", job)
		s.metrics.JobSkippedLocked.WithLabelValues(job).Inc()
		return true, nil
	}

	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		duration := time.Since(start)
		s.metrics.JobDuration.WithLabelValues(job, outcome).Observe(duration.Seconds())

		if relErr := s.lock.Release(ctx, job); relErr != nil {
			s.log.Errorw("failed to release job lock", "job", job, "error", relErr)
		}

		if err != nil {
			s.log.Errorw("job failed", "job", job, "duration_ms", duration.Milliseconds(), "error", err)
		} else {
			s.log.Infow("job complete", "job", job, "duration_ms", duration.Milliseconds())
		}
	}()

	err = fn()
	return false, err
}
