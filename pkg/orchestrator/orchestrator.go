// Package orchestrator runs every machine's check suite concurrently.
package orchestrator

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/deepaksuthar40128/RemoteDx/pkg/diag"
	"github.com/deepaksuthar40128/RemoteDx/pkg/logging"
	"github.com/deepaksuthar40128/RemoteDx/pkg/machine"
)

// Orchestrator drives check suites through a diag.Runner.
type Orchestrator struct {
	runner      *diag.Runner
	logger      logging.Logger
	metrics     *Metrics
	concurrency int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger used for run progress.
func WithLogger(logger logging.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records check outcomes in m.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithConcurrency caps the number of machines diagnosed at once. Zero or a
// negative value runs every machine on its own goroutine.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		o.concurrency = n
	}
}

// New returns an Orchestrator using runner. A nil runner gets a default one.
func New(runner *diag.Runner, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		runner: runner,
		logger: logging.NewDiscardLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.runner == nil {
		o.runner = diag.NewRunner(diag.WithLogger(o.logger))
	}
	return o
}

// RunMachine resets m's results and runs its suite in order, recording each
// result as it completes.
func (o *Orchestrator) RunMachine(ctx context.Context, m *machine.Profile) {
	log := o.logger.WithFields(logging.Fields{
		"machine": m.Name(),
		"address": m.Address(),
		"variant": m.Variant().String(),
	})
	log.Info("Starting diagnostics")
	start := time.Now()

	o.metrics.machineStarted()
	defer o.metrics.machineFinished()

	m.ResetResults()
	for _, check := range m.Checks() {
		rec := o.runner.Run(ctx, check.Name, check.Run, check.Policy)
		m.Record(rec)
		o.metrics.observe(m.Variant(), rec)

		log.WithFields(logging.Fields{
			"check":    rec.CheckName,
			"status":   rec.Status.String(),
			"attempts": rec.Attempts,
			"duration": rec.DurationSeconds(),
		}).Debug(rec.Details)
	}

	log.WithField("elapsed", time.Since(start).Round(time.Millisecond).String()).Info("Finished diagnostics")
}

// RunAll diagnoses machines concurrently and returns once every suite has
// finished. A failing machine never cancels its siblings: suites report
// faults as records, so no goroutine returns an error to the group. The
// returned error is ctx.Err() when the context ended during the run.
func (o *Orchestrator) RunAll(ctx context.Context, machines []*machine.Profile) error {
	if len(machines) == 0 {
		o.logger.Warn("No machines to diagnose")
		return ctx.Err()
	}

	o.logger.WithField("machines", len(machines)).Info("Starting diagnostics run")
	start := time.Now()

	var g errgroup.Group
	if o.concurrency > 0 {
		g.SetLimit(o.concurrency)
	}
	for _, m := range machines {
		m := m
		g.Go(func() error {
			o.RunMachine(ctx, m)
			return nil
		})
	}
	_ = g.Wait()

	o.logger.WithField("elapsed", time.Since(start).Round(time.Millisecond).String()).Info("All diagnostics completed")
	return ctx.Err()
}
