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

package executor

import (
	"context"
	"fmt"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/mikelane/previewsync/internal/errdefs"
	"github.com/mikelane/previewsync/internal/reconcile"
)

// Outcome is the result of one planned action
type Outcome string

const (
	// OutcomeDeleted means the resource was deleted by this run
	OutcomeDeleted Outcome = "deleted"
	// OutcomeWouldDelete means the action was only reported (dry-run)
	OutcomeWouldDelete Outcome = "would-delete"
	// OutcomeAlreadyGone means the resource no longer existed
	OutcomeAlreadyGone Outcome = "skipped-already-gone"
	// OutcomeFailed means the delete call failed
	OutcomeFailed Outcome = "failed"
)

// Deleter performs the deletions of one platform. Implementations return an
// error wrapping errdefs.ErrAlreadyDeleted when the resource is already gone.
type Deleter interface {
	Delete(ctx context.Context, action reconcile.DeleteAction) error
}

// DeleterFunc adapts a function to the Deleter interface
type DeleterFunc func(ctx context.Context, action reconcile.DeleteAction) error

// Delete implements Deleter
func (f DeleterFunc) Delete(ctx context.Context, action reconcile.DeleteAction) error {
	return f(ctx, action)
}

// Executor applies a plan through one Deleter per platform
type Executor struct {
	deleters map[string]Deleter
	now      func() time.Time
}

// New creates an executor. deleters is keyed by DeleteAction.Platform.
func New(deleters map[string]Deleter) *Executor {
	return &Executor{
		deleters: deleters,
		now:      time.Now,
	}
}

// Apply runs every action of the plan in order.
//
// In dry-run mode no Deleter is called and every action is reported as
// would-delete. Otherwise each action is attempted independently: a failed
// delete is recorded and the remaining actions still run.
func (e *Executor) Apply(ctx context.Context, plan reconcile.Plan, dryRun bool) *RunReport {
	logger := log.FromContext(ctx)

	report := &RunReport{
		DryRun:    dryRun,
		StartedAt: e.now(),
		Results:   make([]ActionResult, 0, len(plan.Actions)),
		Skipped:   plan.Skipped,
	}

	for _, action := range plan.Actions {
		result := ActionResult{Action: action}

		switch {
		case dryRun:
			logger.Info("Would delete", "platform", action.Platform, "name", action.ResourceName, "reason", action.Reason.String())
			result.Outcome = OutcomeWouldDelete
		default:
			result.Outcome, result.Error = e.apply(ctx, action)
		}

		report.Results = append(report.Results, result)
	}

	for _, s := range plan.Skipped {
		logger.Info("Stale record protected by ignore list", "platform", s.Platform, "name", s.ResourceName, "ignoredBy", s.IgnoredBy)
	}

	report.FinishedAt = e.now()
	return report
}

func (e *Executor) apply(ctx context.Context, action reconcile.DeleteAction) (Outcome, string) {
	logger := log.FromContext(ctx).WithValues("platform", action.Platform, "name", action.ResourceName)

	if err := ctx.Err(); err != nil {
		return OutcomeFailed, err.Error()
	}

	deleter, ok := e.deleters[action.Platform]
	if !ok {
		err := fmt.Errorf("no deleter configured for platform %q", action.Platform)
		logger.Error(err, "Cannot delete")
		return OutcomeFailed, err.Error()
	}

	logger.Info("Deleting", "id", action.ResourceID, "reason", action.Reason.String())

	err := deleter.Delete(ctx, action)
	switch {
	case err == nil:
		return OutcomeDeleted, ""
	case errdefs.IsAlreadyDeleted(err):
		logger.Info("Already deleted", "detail", err.Error())
		return OutcomeAlreadyGone, ""
	default:
		logger.Error(err, "Delete failed")
		return OutcomeFailed, err.Error()
	}
}
