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

package reconcile

import (
	"context"
	"fmt"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/mikelane/previewsync/internal/inventory"
)

const (
	// PlatformGitHub identifies actions against GitHub deployments
	PlatformGitHub = "github"
	// PlatformPreview identifies actions against the preview provider
	PlatformPreview = "preview"
)

// BranchChecker answers whether a branch still exists
type BranchChecker interface {
	BranchExists(ctx context.Context, branch string) (bool, error)
}

// Warning is a non-fatal problem met while classifying a record
type Warning struct {
	Platform string `json:"platform"`
	Name     string `json:"name"`
	Message  string `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s %s: %s", w.Platform, w.Name, w.Message)
}

// DeploymentDecision is the classification of one managed deployment
type DeploymentDecision struct {
	Record         inventory.DeploymentRecord
	Classification Classification
	// Previews lists the names of the preview environments linked to the deployment
	Previews []string
}

// PreviewDecision is the classification of one preview environment
type PreviewDecision struct {
	Record         inventory.PreviewRecord
	Classification Classification
	// Deployments lists the names of the managed deployments linked to the preview
	Deployments []string
}

// Classified is the output of the Resolver and the input of the Planner
type Classified struct {
	// Deployments holds managed deployments only
	Deployments []DeploymentDecision
	Previews    []PreviewDecision
	// Unmanaged lists the deployment names the selector did not match
	Unmanaged []string
	Warnings  []Warning
}

// Resolver classifies records from both platforms
type Resolver struct {
	Branches BranchChecker
	// LinkByBranch also links a deployment and a preview built from the same
	// branch. Environment URL containment always links.
	LinkByBranch bool
}

// Resolve classifies every managed deployment and every preview. A failed
// branch lookup classifies the record Keep and records a warning.
func (r *Resolver) Resolve(ctx context.Context, deployments []inventory.DeploymentRecord, previews []inventory.PreviewRecord) *Classified {
	logger := log.FromContext(ctx)
	out := &Classified{}

	var managed []inventory.DeploymentRecord
	for _, d := range deployments {
		if !d.Managed {
			out.Unmanaged = append(out.Unmanaged, d.Name)
			continue
		}
		managed = append(managed, d)
	}

	for _, d := range managed {
		decision := DeploymentDecision{Record: d, Classification: Keep}
		for _, p := range previews {
			if linked(d, p, r.LinkByBranch) {
				decision.Previews = append(decision.Previews, p.Name)
			}
		}

		decision.Classification = r.classifyDeployment(ctx, d, decision.Previews, out)
		if decision.Classification.Stale() {
			logger.Info("Stale GitHub deployment", "deployment", d.Name, "reason", decision.Classification.String())
		}
		out.Deployments = append(out.Deployments, decision)
	}

	for _, p := range previews {
		decision := PreviewDecision{Record: p, Classification: Keep}
		if p.BranchValid {
			for _, d := range managed {
				if linked(d, p, r.LinkByBranch) {
					decision.Deployments = append(decision.Deployments, d.Name)
				}
			}
		}

		decision.Classification = r.classifyPreview(ctx, p, decision.Deployments, out)
		if decision.Classification.Stale() {
			logger.Info("Stale preview environment", "preview", p.Name, "branch", p.Branch, "reason", decision.Classification.String())
		}
		out.Previews = append(out.Previews, decision)
	}

	return out
}

func (r *Resolver) classifyDeployment(ctx context.Context, d inventory.DeploymentRecord, linkedPreviews []string, out *Classified) Classification {
	if d.Branch != "" {
		exists, err := r.Branches.BranchExists(ctx, d.Branch)
		if err != nil {
			out.warn(ctx, PlatformGitHub, d.Name, err)
			return Keep
		}
		if !exists {
			return StaleBranchDeleted
		}
	}

	checkLink := d.EnvironmentURL != "" || (r.LinkByBranch && d.Branch != "")
	if checkLink && len(linkedPreviews) == 0 {
		return StaleEnvironmentMissing
	}
	return Keep
}

func (r *Resolver) classifyPreview(ctx context.Context, p inventory.PreviewRecord, linkedDeployments []string, out *Classified) Classification {
	if !p.BranchValid {
		return Keep
	}

	exists, err := r.Branches.BranchExists(ctx, p.Branch)
	if err != nil {
		out.warn(ctx, PlatformPreview, p.Name, err)
		return Keep
	}
	if !exists {
		return StaleBranchDeleted
	}

	if len(linkedDeployments) == 0 {
		return StaleEnvironmentMissing
	}
	return Keep
}

func (c *Classified) warn(ctx context.Context, platform, name string, err error) {
	log.FromContext(ctx).Error(err, "Branch lookup failed, keeping record", "platform", platform, "name", name)
	c.Warnings = append(c.Warnings, Warning{
		Platform: platform,
		Name:     name,
		Message:  fmt.Sprintf("branch lookup failed: %v", err),
	})
}
