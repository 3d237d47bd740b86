/*
Copyright (c) 2025 Mike Lane

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package cleanup

import (
	"context"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/mikelane/previewsync/internal/executor"
)

// Runner performs one reconciliation run
type Runner interface {
	Run(ctx context.Context) (*executor.RunReport, error)
}

// RunnerFunc adapts a function to the Runner interface
type RunnerFunc func(ctx context.Context) (*executor.RunReport, error)

// Run implements Runner
func (f RunnerFunc) Run(ctx context.Context) (*executor.RunReport, error) {
	return f(ctx)
}

// Scheduler runs reconciliations periodically and on demand.
// Triggers that arrive while a run is pending are coalesced into that run.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	trigger  chan string
}

// NewScheduler creates a new cleanup scheduler with the specified interval.
// The scheduler will reconcile every interval duration.
//
// Parameters:
//   - runner: performs one reconciliation run
//   - interval: Duration between runs (e.g., 15*time.Minute)
//
// Returns a configured Scheduler ready to start.
func NewScheduler(runner Runner, interval time.Duration) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		trigger:  make(chan string, 1),
	}
}

// Start runs a first reconciliation immediately, then one per interval and
// one per trigger, until the context is canceled.
//
// Returns nil on graceful shutdown. Failed runs are logged and do not stop
// the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger := log.FromContext(ctx)

	s.cleanup(ctx, "startup")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Scheduler stopped")
			return nil
		case <-ticker.C:
			s.cleanup(ctx, "interval")
		case reason := <-s.trigger:
			s.cleanup(ctx, reason)
			// a triggered run resets the period
			ticker.Reset(s.interval)
		}
	}
}

// Trigger requests an immediate run without blocking. It returns false when a
// run is already pending, in which case the request is merged into it.
func (s *Scheduler) Trigger(reason string) bool {
	select {
	case s.trigger <- reason:
		return true
	default:
		return false
	}
}

// cleanup performs a single reconciliation pass and logs its outcome.
// It returns the report, or nil when the run was aborted.
func (s *Scheduler) cleanup(ctx context.Context, reason string) *executor.RunReport {
	logger := log.FromContext(ctx).WithValues("trigger", reason)

	report, err := s.runner.Run(ctx)
	if err != nil {
		logger.Error(err, "cleanup pass failed")
		// Continue to next tick - don't stop scheduler on transient errors
		return nil
	}

	if report.Failed() {
		logger.Info("cleanup pass finished with failed deletions", "failed", report.Count(executor.OutcomeFailed))
	} else {
		logger.V(1).Info("cleanup pass finished", "actions", len(report.Results))
	}
	return report
}
