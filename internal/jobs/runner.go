// Package jobs runs the periodic fleet sweeps.
package jobs

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleetflow/internal/analytics"
	"github.com/ukydev/fleetflow/internal/models"
)

// Job names.
const (
	JobFleetAlerts    = "fleet_alerts"
	JobRateLimitSweep = "rate_limit_sweep"
)

// AlertPublisher receives raised alerts.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, alert models.Alert) error
}

// Recorder records job outcomes.
type Recorder interface {
	RecordJob(job string, duration time.Duration, success bool)
}

// Sweeper drops idle rate limiter clients.
type Sweeper interface {
	Sweep(window time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordJob(string, time.Duration, bool) {}

// Runner holds the dependencies of every job.
type Runner struct {
	store           analytics.Reader
	alerts          AlertPublisher
	recorder        Recorder
	limiter         Sweeper
	limiterWindow   time.Duration
	deadStockWindow time.Duration
	timeout         time.Duration
	now             func() time.Time
	log             *log.Entry
}

// RunnerConfig wires a Runner. Limiter and Recorder may be nil.
type RunnerConfig struct {
	Store           analytics.Reader
	Alerts          AlertPublisher
	Recorder        Recorder
	Limiter         Sweeper
	LimiterWindow   time.Duration
	DeadStockWindow time.Duration
	Timeout         time.Duration
}

// NewRunner creates a job runner.
func NewRunner(cfg RunnerConfig) *Runner {
	r := &Runner{
		store:           cfg.Store,
		alerts:          cfg.Alerts,
		recorder:        cfg.Recorder,
		limiter:         cfg.Limiter,
		limiterWindow:   cfg.LimiterWindow,
		deadStockWindow: cfg.DeadStockWindow,
		timeout:         cfg.Timeout,
		now:             time.Now,
		log:             log.WithField("component", "jobs"),
	}
	if r.recorder == nil {
		r.recorder = nopRecorder{}
	}
	if r.timeout <= 0 {
		r.timeout = time.Minute
	}
	return r
}

// run wraps a job with a timeout, panic recovery, logging and metrics.
func (r *Runner) run(name string, fn func(ctx context.Context) error) (err error) {
	start := r.now()
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job %s panicked: %v", name, p)
		}
		elapsed := r.now().Sub(start)
		r.recorder.RecordJob(name, elapsed, err == nil)
		entry := r.log.WithFields(log.Fields{"job": name, "duration_ms": elapsed.Milliseconds()})
		if err != nil {
			entry.WithError(err).Error("job failed")
			return
		}
		entry.Debug("job completed")
	}()
	return fn(ctx)
}

// FleetAlerts raises expired-license and dead-stock alerts.
func (r *Runner) FleetAlerts() {
	_ = r.run(JobFleetAlerts, func(ctx context.Context) error {
		_, err := r.SweepAlerts(ctx)
		return err
	})
}

// SweepAlerts computes the current alerts and publishes each one. A failing
// publish is logged and does not stop the sweep.
func (r *Runner) SweepAlerts(ctx context.Context) ([]models.Alert, error) {
	snap, err := analytics.LoadSnapshot(ctx, r.store)
	if err != nil {
		return nil, fmt.Errorf("sweep alerts: %w", err)
	}
	alerts := analytics.Alerts(snap, r.now().UTC(), r.deadStockWindow)
	failed := 0
	for _, a := range alerts {
		if err := r.alerts.PublishAlert(ctx, a); err != nil {
			failed++
			r.log.WithError(err).WithField("alert_id", a.ID).Warn("failed to publish alert")
		}
	}
	r.log.WithFields(log.Fields{"alerts": len(alerts), "failed": failed}).Info("fleet alert sweep finished")
	return alerts, nil
}

// RateLimitSweep forgets idle rate limiter clients.
func (r *Runner) RateLimitSweep() {
	_ = r.run(JobRateLimitSweep, func(context.Context) error {
		if r.limiter != nil {
			r.limiter.Sweep(r.limiterWindow)
		}
		return nil
	})
}
