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

package inventory

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/mikelane/previewsync/internal/errdefs"
	"github.com/mikelane/previewsync/internal/github"
	"github.com/mikelane/previewsync/internal/pattern"
	"github.com/mikelane/previewsync/internal/preview"
)

// PlatformGitHub names the source-control side in errors and reports
const PlatformGitHub = "github"

// Collector lists both platforms and answers branch existence queries
type Collector struct {
	github   github.Client
	provider preview.Provider
	matcher  *pattern.Matcher
	owner    string
	repo     string

	mu       sync.Mutex
	branches map[string]bool
}

// NewCollector creates a collector for the owner/repo repository
func NewCollector(gh github.Client, provider preview.Provider, matcher *pattern.Matcher, owner, repo string) *Collector {
	return &Collector{
		github:   gh,
		provider: provider,
		matcher:  matcher,
		owner:    owner,
		repo:     repo,
		branches: make(map[string]bool),
	}
}

// ListDeployments returns one record per GitHub environment. Unmanaged
// environments are included with Managed set to false; only managed ones
// have their latest status fetched.
func (c *Collector) ListDeployments(ctx context.Context) ([]DeploymentRecord, error) {
	logger := log.FromContext(ctx)

	deployments, err := c.github.ListDeployments(ctx, c.owner, c.repo)
	if err != nil {
		return nil, &errdefs.TransportError{Platform: PlatformGitHub, Op: "list deployments", Err: err}
	}

	// Oldest first; ids break ties since GitHub assigns them incrementally
	sort.SliceStable(deployments, func(i, j int) bool {
		a, b := deployments[i], deployments[j]
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})

	byName := make(map[string]*DeploymentRecord)
	latest := make(map[string]*github.Deployment)
	var order []string

	for _, d := range deployments {
		if d.Environment == "" {
			continue
		}

		rec, ok := byName[d.Environment]
		if !ok {
			rec = &DeploymentRecord{
				Name:    d.Environment,
				Managed: c.matcher.Managed(d.Environment),
			}
			byName[d.Environment] = rec
			order = append(order, d.Environment)
		}

		rec.EventIDs = append(rec.EventIDs, d.ID)
		rec.ID = strconv.FormatInt(d.ID, 10)
		rec.CreatedAt = d.CreatedAt
		// a redeploy from a bare commit keeps the branch of earlier events
		if branch := c.deploymentBranch(d); branch != "" {
			rec.Branch = branch
		}
		latest[d.Environment] = d
	}

	records := make([]DeploymentRecord, 0, len(order))
	for _, name := range order {
		rec := byName[name]

		if rec.Managed {
			status, err := c.github.LatestDeploymentStatus(ctx, c.owner, c.repo, latest[name].ID)
			if err != nil {
				return nil, &errdefs.TransportError{
					Platform: PlatformGitHub,
					Op:       "get status of deployment " + rec.ID,
					Err:      err,
				}
			}
			if status != nil {
				rec.EnvironmentURL = status.EnvironmentURL
				rec.State = string(status.State)
			}

			if rec.Branch == "" {
				logger.Info("Unable to determine branch for deployment, branch check skipped", "deployment", rec.Name)
			}
		}

		records = append(records, *rec)
	}

	logger.V(1).Info("Collected GitHub deployments", "events", len(deployments), "environments", len(records))
	return records, nil
}

// deploymentBranch resolves the branch a deployment event was created from.
// Deployments created from a commit carry the sha as ref; in that case the
// selector's capture group, if any, names the branch.
func (c *Collector) deploymentBranch(d *github.Deployment) string {
	ref := strings.TrimPrefix(d.Ref, "refs/heads/")
	if ref != "" && ref != d.SHA && !strings.HasPrefix(ref, "refs/") {
		return ref
	}

	if branch, ok := c.matcher.ManagedBranch(d.Environment); ok {
		return branch
	}
	return ""
}

// ListPreviews returns one record per preview environment. Environments whose
// name does not match the extraction pattern are returned with BranchValid
// set to false.
func (c *Collector) ListPreviews(ctx context.Context) ([]PreviewRecord, error) {
	logger := log.FromContext(ctx)

	envs, err := c.provider.List(ctx)
	if err != nil {
		var transportErr *errdefs.TransportError
		if errors.As(err, &transportErr) {
			return nil, err
		}
		return nil, &errdefs.TransportError{Platform: c.provider.Platform(), Op: "list previews", Err: err}
	}

	seen := make(map[string]bool, len(envs))
	records := make([]PreviewRecord, 0, len(envs))
	for _, env := range envs {
		if seen[env.Name] {
			logger.V(1).Info("Duplicate preview environment in listing", "name", env.Name)
			continue
		}
		seen[env.Name] = true

		rec := PreviewRecord{
			Name:     env.Name,
			ID:       env.ID,
			Scope:    env.Scope,
			Sleeping: env.Sleeping,
		}
		if rec.ID == "" {
			rec.ID = env.Name
		}

		if branch, ok := c.matcher.ExtractBranch(env.Name); ok {
			rec.Branch = branch
			rec.BranchValid = true
		} else {
			logger.Info("Unable to determine branch name for preview, ignoring", "preview", env.Name)
		}

		records = append(records, rec)
	}

	return records, nil
}

// BranchExists reports whether branch is present in the repository.
// Successful answers are cached; errors are not.
func (c *Collector) BranchExists(ctx context.Context, branch string) (bool, error) {
	c.mu.Lock()
	exists, ok := c.branches[branch]
	c.mu.Unlock()
	if ok {
		return exists, nil
	}

	exists, err := c.github.BranchExists(ctx, c.owner, c.repo, branch)
	if err != nil {
		return false, &errdefs.TransportError{Platform: PlatformGitHub, Op: "get branch " + branch, Err: err}
	}

	c.mu.Lock()
	c.branches[branch] = exists
	c.mu.Unlock()

	return exists, nil
}

// Platform returns the name of the preview provider
func (c *Collector) Platform() string {
	return c.provider.Platform()
}
