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
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DeleteAction is one deletion the executor should perform
type DeleteAction struct {
	Platform     string         `json:"platform"`
	ResourceID   string         `json:"resource_id"`
	ResourceName string         `json:"resource_name"`
	Reason       Classification `json:"reason"`
	// IDs lists every platform id to delete for the resource, oldest first.
	// GitHub environments carry one id per deployment event.
	IDs       []string  `json:"ids,omitempty"`
	CreatedAt time.Time `json:"-"`
}

// Key identifies the resource targeted by the action
func (a DeleteAction) Key() string {
	return a.Platform + "/" + a.ResourceID
}

func (a DeleteAction) String() string {
	return fmt.Sprintf("%s %s (%s)", a.Platform, a.ResourceName, a.Reason)
}

// Skipped is a stale record the ignore list protects
type Skipped struct {
	Platform     string         `json:"platform"`
	ResourceName string         `json:"resource_name"`
	Reason       Classification `json:"reason"`
	// Detected is the classification the record would otherwise have been deleted for
	Detected Classification `json:"detected"`
	// IgnoredBy is the deployment name the protection derives from
	IgnoredBy string `json:"ignored_by"`
}

// Plan is the ordered list of deletions for one run
type Plan struct {
	Actions []DeleteAction `json:"actions"`
	Skipped []Skipped      `json:"skipped,omitempty"`
}

// Planner turns classifications into a Plan
type Planner struct {
	// Ignore lists deployment names, or their branch names, never to delete.
	// Matching is case-insensitive.
	Ignore []string
}

// Plan builds the deletion plan. It does not modify its input and returns the
// same plan for the same input.
func (p Planner) Plan(c *Classified) Plan {
	var plan Plan
	if c == nil {
		return plan
	}

	seen := make(map[string]bool)
	add := func(a DeleteAction) {
		if seen[a.Key()] {
			return
		}
		seen[a.Key()] = true
		plan.Actions = append(plan.Actions, a)
	}

	// ignored deployment name -> record, for preview protection
	ignored := make(map[string]DeploymentDecision)

	var githubActions []DeleteAction
	for _, d := range c.Deployments {
		if p.ignores(d) {
			ignored[d.Record.Name] = d
		}
	}

	for _, d := range c.Deployments {
		_, isIgnored := ignored[d.Record.Name]

		switch d.Classification {
		case Keep:
			continue
		case StaleBranchDeleted, StaleEnvironmentMissing:
			if isIgnored {
				plan.Skipped = append(plan.Skipped, Skipped{
					Platform:     PlatformGitHub,
					ResourceName: d.Record.Name,
					Reason:       StaleIgnoredOverride,
					Detected:     d.Classification,
					IgnoredBy:    d.Record.Name,
				})
				continue
			}
			githubActions = append(githubActions, deploymentAction(d))
		case StaleIgnoredOverride:
			plan.Skipped = append(plan.Skipped, Skipped{
				Platform:     PlatformGitHub,
				ResourceName: d.Record.Name,
				Reason:       StaleIgnoredOverride,
				Detected:     d.Classification,
				IgnoredBy:    d.Record.Name,
			})
		default:
			// never act on a judgment the planner does not know
			continue
		}
	}

	var previewActions []DeleteAction
	for _, pd := range c.Previews {
		protector := p.protectedBy(pd, ignored)

		switch pd.Classification {
		case Keep:
			continue
		case StaleBranchDeleted, StaleEnvironmentMissing:
			if protector != "" {
				plan.Skipped = append(plan.Skipped, Skipped{
					Platform:     PlatformPreview,
					ResourceName: pd.Record.Name,
					Reason:       StaleIgnoredOverride,
					Detected:     pd.Classification,
					IgnoredBy:    protector,
				})
				continue
			}
			previewActions = append(previewActions, previewAction(pd))
		case StaleIgnoredOverride:
			plan.Skipped = append(plan.Skipped, Skipped{
				Platform:     PlatformPreview,
				ResourceName: pd.Record.Name,
				Reason:       StaleIgnoredOverride,
				Detected:     pd.Classification,
				IgnoredBy:    protector,
			})
		default:
			continue
		}
	}

	// GitHub only deletes the active deployment once the older ones are gone
	sort.SliceStable(githubActions, func(i, j int) bool {
		a, b := githubActions[i], githubActions[j]
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ResourceName < b.ResourceName
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	sort.SliceStable(previewActions, func(i, j int) bool {
		return previewActions[i].ResourceName < previewActions[j].ResourceName
	})

	for _, a := range githubActions {
		add(a)
	}
	for _, a := range previewActions {
		add(a)
	}

	return plan
}

func (p Planner) ignores(d DeploymentDecision) bool {
	for _, entry := range p.Ignore {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.EqualFold(entry, d.Record.Name) {
			return true
		}
		if d.Record.Branch != "" && strings.EqualFold(entry, d.Record.Branch) {
			return true
		}
	}
	return false
}

// protectedBy returns the name of the ignored deployment linked to the
// preview, or "" when there is none
func (p Planner) protectedBy(pd PreviewDecision, ignored map[string]DeploymentDecision) string {
	if len(ignored) == 0 {
		return ""
	}

	for _, name := range pd.Deployments {
		if _, ok := ignored[name]; ok {
			return name
		}
	}

	// A preview built from the branch of an ignored deployment is protected
	// even when branch linking is off
	names := make([]string, 0, len(ignored))
	for name := range ignored {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		d := ignored[name]
		if sameBranch(d.Record, pd.Record) || urlReferences(d.Record.EnvironmentURL, pd.Record.Name) {
			return name
		}
	}
	return ""
}

func deploymentAction(d DeploymentDecision) DeleteAction {
	ids := make([]string, 0, len(d.Record.EventIDs))
	for _, id := range d.Record.EventIDs {
		ids = append(ids, strconv.FormatInt(id, 10))
	}
	if len(ids) == 0 && d.Record.ID != "" {
		ids = append(ids, d.Record.ID)
	}

	return DeleteAction{
		Platform:     PlatformGitHub,
		ResourceID:   d.Record.ID,
		ResourceName: d.Record.Name,
		Reason:       d.Classification,
		IDs:          ids,
		CreatedAt:    d.Record.CreatedAt,
	}
}

func previewAction(pd PreviewDecision) DeleteAction {
	id := pd.Record.ID
	if id == "" {
		id = pd.Record.Name
	}
	return DeleteAction{
		Platform:     PlatformPreview,
		ResourceID:   id,
		ResourceName: pd.Record.Name,
		Reason:       pd.Classification,
	}
}
