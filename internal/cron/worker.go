// Package cron runs the scheduled refresh of tracked billing accounts.
package cron

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/bher20/bjwater/internal/alerting"
	"github.com/bher20/bjwater/internal/billing"
	"github.com/bher20/bjwater/internal/logging"
	"github.com/bher20/bjwater/internal/metrics"
	"github.com/bher20/bjwater/internal/storage"
)

const (
	// JobName labels the refresh job in metrics and scheduled_jobs.
	JobName = "refresh_billing"

	// IntervalSetting is the settings key that overrides the configured
	// interval at runtime.
	IntervalSetting = "refresh_interval"

	lockKey int64 = 42

	defaultInterval = 5 * time.Minute
)

// ErrLockHeld is returned by RunOnce when another worker holds the lock.
var ErrLockHeld = errors.New("cron: advisory lock held by another worker")

// Refresher fetches a fresh snapshot and replaces the cached one.
type Refresher interface {
	ForceRefresh(ctx context.Context, provider, userCode string) (*billing.Snapshot, error)
}

// Notifier delivers a run summary.
type Notifier interface {
	SendRefreshAlert(ctx context.Context, alert alerting.RefreshAlert) error
}

// Deps wires the worker. Accounts come from Storage.ListAccounts.
type Deps struct {
	Service Refresher
	Storage storage.Storage

	// Alerter may be nil.
	Alerter Notifier

	// Interval is whole seconds or a cron expression; the stored
	// IntervalSetting wins when present.
	Interval string

	// PollInterval is how often the loop checks the schedule. Defaults to 10s.
	PollInterval time.Duration
}

// NextRun returns the first run time after last for setting. Unparseable
// settings fall back to five minutes.
func NextRun(setting string, last time.Time) time.Time {
	if v, err := strconv.Atoi(setting); err == nil && v > 0 {
		return last.Add(time.Duration(v) * time.Second)
	}
	if sched, err := cron.ParseStandard(setting); err == nil {
		return sched.Next(last)
	}
	return last.Add(defaultInterval)
}

// Run refreshes all accounts immediately and then on schedule until ctx is
// done. Failed accounts are reported, not retried.
func Run(ctx context.Context, d Deps) error {
	if d.Service == nil || d.Storage == nil {
		return fmt.Errorf("cron: service and storage are required")
	}
	log := logging.FromContext(ctx)

	poll := d.PollInterval
	if poll <= 0 {
		poll = 10 * time.Second
	}
	setting := d.Interval
	if val, err := d.Storage.GetSetting(ctx, IntervalSetting); err == nil && val != "" {
		setting = val
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	nextRun := time.Now()
	log.Info("cron: worker starting", zap.String("interval", setting))

	for {
		if !time.Now().Before(nextRun) {
			if _, err := RunOnce(ctx, d); err != nil {
				if errors.Is(err, ErrLockHeld) {
					log.Info("cron: advisory lock held by another worker, skipping run")
				} else {
					log.Error("cron: refresh run failed", zap.Error(err))
				}
			}
			nextRun = NextRun(setting, time.Now())
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if val, err := d.Storage.GetSetting(ctx, IntervalSetting); err == nil && val != "" && val != setting {
				log.Info("cron: interval updated", zap.String("from", setting), zap.String("to", val))
				setting = val
				nextRun = NextRun(setting, time.Now())
			}
		}
	}
}

// RunOnce performs a single pass over the tracked accounts. The returned
// error is the first account failure, or a lock/storage error.
func RunOnce(ctx context.Context, d Deps) (alerting.RefreshAlert, error) {
	runID := uuid.NewString()
	ctx = logging.WithFields(ctx, zap.String("run_id", runID), zap.String("job", JobName))
	log := logging.FromContext(ctx)
	started := time.Now()

	if locker, ok := d.Storage.(storage.Locker); ok {
		got, err := locker.AcquireAdvisoryLock(ctx, lockKey)
		if err != nil {
			metrics.UpdateJobMetrics(JobName, started, err)
			return alerting.RefreshAlert{}, fmt.Errorf("acquire advisory lock: %w", err)
		}
		if !got {
			return alerting.RefreshAlert{}, ErrLockHeld
		}
		defer func() {
			released, err := locker.ReleaseAdvisoryLock(ctx, lockKey)
			switch {
			case err != nil:
				log.Warn("cron: release advisory lock failed", zap.Error(err))
			case !released:
				log.Warn("cron: advisory lock was not held at release", zap.Int64("lock_key", lockKey))
			}
		}()
	}

	accounts, err := d.Storage.ListAccounts(ctx)
	if err != nil {
		metrics.UpdateJobMetrics(JobName, started, err)
		return alerting.RefreshAlert{}, fmt.Errorf("list accounts: %w", err)
	}

	alert := alerting.RefreshAlert{
		JobName:    JobName,
		RunID:      runID,
		TotalCount: len(accounts),
		Timestamp:  started.UTC(),
	}
	var runErr error
	for _, a := range accounts {
		if _, err := d.Service.ForceRefresh(ctx, a.Provider, a.UserCode); err != nil {
			log.Error("cron: refresh account failed",
				zap.String("provider", a.Provider), zap.String("user_code", a.UserCode), zap.Error(err))
			alert.FailedDetails = append(alert.FailedDetails, alerting.AccountFailure{
				Provider: a.Provider,
				UserCode: a.UserCode,
				Error:    err.Error(),
			})
			if runErr == nil {
				runErr = err
			}
			continue
		}
		alert.SuccessCount++
	}
	alert.FailedCount = len(alert.FailedDetails)
	alert.Duration = time.Since(started)

	metrics.UpdateJobMetrics(JobName, started, runErr)
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}
	if err := d.Storage.UpdateScheduledJob(ctx, JobName, started, alert.Duration, runErr == nil, errMsg); err != nil {
		log.Warn("cron: update scheduled_jobs failed", zap.Error(err))
	}

	if alert.FailedCount > 0 && d.Alerter != nil {
		if err := d.Alerter.SendRefreshAlert(ctx, alert); err != nil {
			log.Warn("cron: send alert failed", zap.Error(err))
		}
	}

	log.Info("cron: refresh run complete",
		zap.Int("accounts", alert.TotalCount),
		zap.Int("failed", alert.FailedCount),
		zap.Duration("duration", alert.Duration))
	return alert, runErr
}
