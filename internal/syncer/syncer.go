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

package syncer

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/mikelane/previewsync/internal/executor"
	"github.com/mikelane/previewsync/internal/github"
	"github.com/mikelane/previewsync/internal/inventory"
	"github.com/mikelane/previewsync/internal/metrics"
	"github.com/mikelane/previewsync/internal/pattern"
	"github.com/mikelane/previewsync/internal/preview"
	"github.com/mikelane/previewsync/internal/reconcile"
)

// Options holds the per-run settings of a Syncer
type Options struct {
	// Owner and Repo name the GitHub repository
	Owner string
	Repo  string
	// DryRun reports the plan without deleting anything
	DryRun bool
	// Ignore lists deployment names, or their branches, never to delete
	Ignore []string
	// LinkByBranch links deployments and previews built from the same branch
	LinkByBranch bool
}

// Syncer runs complete reconciliations between GitHub deployments and preview
// environments. Runs are serialised: concurrent calls to Run wait for each
// other.
type Syncer struct {
	github   github.Client
	provider preview.Provider
	matcher  *pattern.Matcher
	opts     Options
	recorder *metrics.Recorder
	newRunID func() string

	mu sync.Mutex
}

// Option configures optional Syncer collaborators
type Option func(*Syncer)

// WithRecorder records every run on the given metrics recorder
func WithRecorder(r *metrics.Recorder) Option {
	return func(s *Syncer) {
		s.recorder = r
	}
}

// WithRunIDs overrides the run id generator
func WithRunIDs(f func() string) Option {
	return func(s *Syncer) {
		s.newRunID = f
	}
}

// New creates a Syncer
func New(gh github.Client, provider preview.Provider, matcher *pattern.Matcher, opts Options, options ...Option) *Syncer {
	s := &Syncer{
		github:   gh,
		provider: provider,
		matcher:  matcher,
		opts:     opts,
		newRunID: uuid.NewString,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Run performs one full reconciliation: collect, classify, plan and apply.
//
// A listing failure on either platform aborts the run before anything is
// deleted and is returned as the error. Failed deletions do not abort the run;
// they are reported through RunReport.Failed.
func (s *Syncer) Run(ctx context.Context) (*executor.RunReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runID := s.newRunID()
	logger := log.FromContext(ctx).WithValues("run", runID)
	ctx = log.IntoContext(ctx, logger)

	collector := inventory.NewCollector(s.github, s.provider, s.matcher, s.opts.Owner, s.opts.Repo)

	logger.Info("Fetching list of GitHub deployments", "repository", s.opts.Owner+"/"+s.opts.Repo)
	deployments, err := collector.ListDeployments(ctx)
	if err != nil {
		s.fail(ctx, err)
		return nil, err
	}

	logger.Info("Fetching list of preview environments", "platform", s.provider.Platform())
	previews, err := collector.ListPreviews(ctx)
	if err != nil {
		s.fail(ctx, err)
		return nil, err
	}

	managed := 0
	for _, d := range deployments {
		if d.Managed {
			managed++
		}
	}
	logger.Info("Detected deployments",
		"github", names(deployments, func(d inventory.DeploymentRecord) (string, bool) { return d.String(), d.Managed }),
		"previews", names(previews, func(p inventory.PreviewRecord) (string, bool) { return p.String(), true }))

	resolver := &reconcile.Resolver{Branches: collector, LinkByBranch: s.opts.LinkByBranch}
	classified := resolver.Resolve(ctx, deployments, previews)

	plan := reconcile.Planner{Ignore: s.opts.Ignore}.Plan(classified)
	logger.Info("Planned deletions", "actions", len(plan.Actions), "ignored", len(plan.Skipped), "dryRun", s.opts.DryRun)

	exec := executor.New(map[string]executor.Deleter{
		reconcile.PlatformGitHub:  &githubDeleter{client: s.github, owner: s.opts.Owner, repo: s.opts.Repo},
		reconcile.PlatformPreview: &previewDeleter{provider: s.provider},
	})
	report := exec.Apply(ctx, plan, s.opts.DryRun)

	report.RunID = runID
	report.Warnings = classified.Warnings
	report.Inventory = executor.Inventory{
		Deployments: len(deployments),
		Managed:     managed,
		Previews:    len(previews),
		Unmanaged:   classified.Unmanaged,
	}

	if s.recorder != nil {
		s.recorder.ObserveReport(report)
	}

	logger.Info("Reconciliation finished",
		"status", report.Status(),
		"deleted", report.Count(executor.OutcomeDeleted),
		"wouldDelete", report.Count(executor.OutcomeWouldDelete),
		"alreadyGone", report.Count(executor.OutcomeAlreadyGone),
		"failed", report.Count(executor.OutcomeFailed),
		"warnings", len(report.Warnings))

	return report, nil
}

func (s *Syncer) fail(ctx context.Context, err error) {
	log.FromContext(ctx).Error(err, "Reconciliation aborted")
	if s.recorder != nil {
		s.recorder.ObserveError()
	}
}

func names[T any](records []T, describe func(T) (string, bool)) string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		if s, ok := describe(r); ok {
			out = append(out, s)
		}
	}
	return "[" + strings.Join(out, ", ") + "]"
}
