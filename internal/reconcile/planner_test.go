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
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/mikelane/previewsync/internal/inventory"
)

func planFor(ignore []string) Plan {
	deployments, previews, branches := scenario()
	c := (&Resolver{Branches: branches}).Resolve(context.Background(), deployments, previews)
	return Planner{Ignore: ignore}.Plan(c)
}

func actionNames(plan Plan) []string {
	names := make([]string, 0, len(plan.Actions))
	for _, a := range plan.Actions {
		names = append(names, a.Platform+":"+a.ResourceName+":"+a.Reason.String())
	}
	return names
}

func TestPlanner_Scenario(t *testing.T) {
	plan := planFor(nil)

	want := []string{
		"github:Preview feature-x:stale-branch-deleted",
		"preview:feature-z-preview:stale-branch-deleted",
	}
	if got := actionNames(plan); !reflect.DeepEqual(got, want) {
		t.Errorf("Plan() actions = %v, want %v", got, want)
	}
	if len(plan.Skipped) != 0 {
		t.Errorf("Plan() skipped = %v, want none", plan.Skipped)
	}

	if ids := plan.Actions[0].IDs; len(ids) != 1 || ids[0] != "1" {
		t.Errorf("github action IDs = %v, want [1]", ids)
	}
}

func TestPlanner_IgnoreList(t *testing.T) {
	tests := []struct {
		name   string
		ignore []string
	}{
		{name: "branch alias", ignore: []string{"feature-x"}},
		{name: "exact name", ignore: []string{"Preview feature-x"}},
		{name: "case-insensitive name", ignore: []string{"preview FEATURE-X"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := planFor(tt.ignore)

			want := []string{"preview:feature-z-preview:stale-branch-deleted"}
			if got := actionNames(plan); !reflect.DeepEqual(got, want) {
				t.Errorf("Plan() actions = %v, want %v", got, want)
			}

			if len(plan.Skipped) != 1 {
				t.Fatalf("Plan() skipped = %v, want Preview feature-x", plan.Skipped)
			}
			skipped := plan.Skipped[0]
			if skipped.ResourceName != "Preview feature-x" || skipped.Reason != StaleIgnoredOverride || skipped.Detected != StaleBranchDeleted {
				t.Errorf("skipped = %+v", skipped)
			}
		})
	}
}

func TestPlanner_IgnoredDeploymentProtectsLinkedPreview(t *testing.T) {
	deployments := []inventory.DeploymentRecord{
		managedDeployment("Preview feature-x", "feature-x", "https://feature-x-preview.okteto.example.com", 1),
	}
	previews := []inventory.PreviewRecord{
		previewRecord("feature-x-preview", "feature-x"),
		previewRecord("feature-q-preview", "feature-q"),
	}
	c := (&Resolver{Branches: newFakeBranches("main")}).Resolve(context.Background(), deployments, previews)

	plan := Planner{Ignore: []string{"Preview feature-x"}}.Plan(c)

	want := []string{"preview:feature-q-preview:stale-branch-deleted"}
	if got := actionNames(plan); !reflect.DeepEqual(got, want) {
		t.Errorf("Plan() actions = %v, want %v", got, want)
	}

	var protected bool
	for _, s := range plan.Skipped {
		if s.ResourceName == "feature-x-preview" && s.IgnoredBy == "Preview feature-x" && s.Platform == PlatformPreview {
			protected = true
		}
	}
	if !protected {
		t.Errorf("feature-x-preview should be skipped through its ignored deployment: %+v", plan.Skipped)
	}
}

func TestPlanner_OrderAndDedup(t *testing.T) {
	older := managedDeployment("Preview old", "old", "", 1)
	older.EventIDs = []int64{1, 4, 9}
	older.ID = "9"
	older.CreatedAt = baseTime

	newer := managedDeployment("Preview new", "new", "", 2)
	newer.CreatedAt = baseTime.Add(time.Hour)

	c := &Classified{
		Deployments: []DeploymentDecision{
			{Record: newer, Classification: StaleBranchDeleted},
			{Record: older, Classification: StaleEnvironmentMissing},
			{Record: newer, Classification: StaleBranchDeleted},
		},
		Previews: []PreviewDecision{
			{Record: previewRecord("zeta-preview", "zeta"), Classification: StaleBranchDeleted},
			{Record: previewRecord("alpha-preview", "alpha"), Classification: StaleEnvironmentMissing},
			{Record: previewRecord("keep-preview", "keep"), Classification: Keep},
		},
	}

	plan := Planner{}.Plan(c)

	want := []string{
		"github:Preview old:stale-environment-missing",
		"github:Preview new:stale-branch-deleted",
		"preview:alpha-preview:stale-environment-missing",
		"preview:zeta-preview:stale-branch-deleted",
	}
	if got := actionNames(plan); !reflect.DeepEqual(got, want) {
		t.Errorf("Plan() actions = %v, want %v", got, want)
	}

	if ids := plan.Actions[0].IDs; !reflect.DeepEqual(ids, []string{"1", "4", "9"}) {
		t.Errorf("IDs = %v, want every event oldest first", ids)
	}
}

func TestPlanner_NilInput(t *testing.T) {
	plan := Planner{}.Plan(nil)
	if len(plan.Actions) != 0 || len(plan.Skipped) != 0 {
		t.Errorf("Plan(nil) = %+v, want empty", plan)
	}
}

// randomInventory builds an inventory mixing managed, unmanaged, linked and
// orphaned records over a random set of live branches.
func randomInventory(r *rand.Rand) ([]inventory.DeploymentRecord, []inventory.PreviewRecord, *fakeBranches, []string) {
	branches := newFakeBranches()
	var deployments []inventory.DeploymentRecord
	var previews []inventory.PreviewRecord
	var ignore []string

	n := 1 + r.Intn(12)
	for i := 0; i < n; i++ {
		branch := fmt.Sprintf("branch-%d", i)
		if r.Intn(2) == 0 {
			branches.live[branch] = true
		}
		if r.Intn(8) == 0 {
			branches.errors[branch] = fmt.Errorf("transient failure %d", i)
		}

		previewName := branch + "-preview"
		url := ""
		if r.Intn(3) > 0 {
			url = "https://" + previewName + ".okteto.example.com"
		}

		d := managedDeployment("Preview "+branch, branch, url, int64(i+1))
		d.Managed = r.Intn(4) > 0
		if !d.Managed {
			d.Name = "manual " + branch
		}
		deployments = append(deployments, d)

		if r.Intn(2) == 0 {
			previews = append(previews, previewRecord(previewName, branch))
		}
		if r.Intn(5) == 0 {
			previews = append(previews, previewRecord(fmt.Sprintf("unrelated-%d", i), ""))
		}
		if r.Intn(4) == 0 {
			ignore = append(ignore, d.Name)
		}
	}

	return deployments, previews, branches, ignore
}

func TestPlanner_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(20250301))

	for iteration := 0; iteration < 200; iteration++ {
		deployments, previews, branches, ignore := randomInventory(r)

		c := (&Resolver{Branches: branches, LinkByBranch: iteration%2 == 0}).Resolve(context.Background(), deployments, previews)
		planner := Planner{Ignore: ignore}
		plan := planner.Plan(c)

		unmanaged := map[string]bool{}
		ignored := map[string]bool{}
		for _, d := range deployments {
			if !d.Managed {
				unmanaged[d.Name] = true
			}
		}
		for _, name := range ignore {
			ignored[name] = true
		}

		seen := map[string]bool{}
		previewSeen := false
		for _, a := range plan.Actions {
			if a.Reason == Keep || a.Reason == StaleIgnoredOverride {
				t.Fatalf("iteration %d: action planned with reason %s", iteration, a.Reason)
			}
			if a.Platform == PlatformGitHub {
				if unmanaged[a.ResourceName] {
					t.Fatalf("iteration %d: unmanaged deployment %s planned", iteration, a.ResourceName)
				}
				if ignored[a.ResourceName] {
					t.Fatalf("iteration %d: ignored deployment %s planned", iteration, a.ResourceName)
				}
				if previewSeen {
					t.Fatalf("iteration %d: github action after preview actions", iteration)
				}
			} else {
				previewSeen = true
			}
			if seen[a.Key()] {
				t.Fatalf("iteration %d: resource %s planned twice", iteration, a.Key())
			}
			seen[a.Key()] = true

			if _, failed := branches.errors[branchOf(a, deployments, previews)]; failed {
				t.Fatalf("iteration %d: %s planned although its branch lookup failed", iteration, a.ResourceName)
			}
		}

		again := planner.Plan(c)
		if !reflect.DeepEqual(plan, again) {
			t.Fatalf("iteration %d: planner is not idempotent", iteration)
		}
	}
}

func branchOf(a DeleteAction, deployments []inventory.DeploymentRecord, previews []inventory.PreviewRecord) string {
	if a.Platform == PlatformGitHub {
		for _, d := range deployments {
			if d.Name == a.ResourceName {
				return d.Branch
			}
		}
		return ""
	}
	for _, p := range previews {
		if p.Name == a.ResourceName {
			return p.Branch
		}
	}
	return ""
}
