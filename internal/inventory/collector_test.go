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
	"strconv"
	"testing"

	"github.com/mikelane/previewsync/internal/errdefs"
	"github.com/mikelane/previewsync/internal/github"
	"github.com/mikelane/previewsync/internal/pattern"
	"github.com/mikelane/previewsync/test/utils"
)

func newCollector(gh github.Client, provider *utils.FakeProvider) *Collector {
	matcher := pattern.MustNew(`^Preview (.+)$`, `^(.+)-preview$`)
	return NewCollector(gh, provider, matcher, "owner", "repo")
}

func TestCollector_ListDeployments(t *testing.T) {
	gh := utils.NewFakeGitHub("feature-x")
	first := gh.AddDeployment("Preview feature-x", "feature-x", "https://old.example.com")
	gh.AddDeployment("production", "main", "https://example.com")
	second := gh.AddDeployment("Preview feature-x", "refs/heads/feature-x", "https://feature-x-preview.okteto.example.com")
	commit := gh.AddDeployment("Preview feature-y", "", "")

	c := newCollector(gh, utils.NewFakeProvider())

	records, err := c.ListDeployments(context.Background())
	if err != nil {
		t.Fatalf("ListDeployments() unexpected error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("ListDeployments() returned %d records, want 3: %v", len(records), records)
	}

	byName := map[string]DeploymentRecord{}
	for _, r := range records {
		byName[r.Name] = r
	}

	x := byName["Preview feature-x"]
	if !x.Managed {
		t.Errorf("Preview feature-x should be managed")
	}
	if len(x.EventIDs) != 2 || x.EventIDs[0] != first || x.EventIDs[1] != second {
		t.Errorf("EventIDs = %v, want [%d %d]", x.EventIDs, first, second)
	}
	if x.EnvironmentURL != "https://feature-x-preview.okteto.example.com" {
		t.Errorf("EnvironmentURL = %s, want the newest status URL", x.EnvironmentURL)
	}
	if x.Branch != "feature-x" {
		t.Errorf("Branch = %s, want feature-x", x.Branch)
	}
	if x.State != string(github.DeploymentStateSuccess) {
		t.Errorf("State = %s, want success", x.State)
	}

	prod := byName["production"]
	if prod.Managed {
		t.Errorf("production should not be managed")
	}
	if prod.EnvironmentURL != "" {
		t.Errorf("unmanaged deployments should not have their status fetched")
	}

	y := byName["Preview feature-y"]
	if y.Branch != "feature-y" {
		t.Errorf("Branch = %q, want feature-y inferred from the selector", y.Branch)
	}
	if len(y.EventIDs) != 1 || y.EventIDs[0] != commit {
		t.Errorf("EventIDs = %v, want [%d]", y.EventIDs, commit)
	}
}

func TestCollector_ListDeployments_keeps_branch_across_commit_redeploys(t *testing.T) {
	gh := utils.NewFakeGitHub("feature-x")
	first := gh.AddDeployment("Preview feature-x", "feature-x", "https://feature-x-preview.okteto.example.com")
	redeploy := gh.AddDeployment("Preview feature-x", "", "https://feature-x-preview.okteto.example.com")

	// no capture group, so a commit-only event cannot name its branch
	matcher := pattern.MustNew(`^Preview .+$`, `^(.+)-preview$`)
	c := NewCollector(gh, utils.NewFakeProvider(), matcher, "owner", "repo")

	records, err := c.ListDeployments(context.Background())
	if err != nil {
		t.Fatalf("ListDeployments() unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("ListDeployments() returned %d records, want 1: %v", len(records), records)
	}

	x := records[0]
	if x.Branch != "feature-x" {
		t.Errorf("Branch = %q, want feature-x from the earlier event", x.Branch)
	}
	if x.ID != strconv.FormatInt(redeploy, 10) {
		t.Errorf("ID = %s, want the newest event %d", x.ID, redeploy)
	}
	if len(x.EventIDs) != 2 || x.EventIDs[0] != first || x.EventIDs[1] != redeploy {
		t.Errorf("EventIDs = %v, want [%d %d]", x.EventIDs, first, redeploy)
	}
}

func TestCollector_ListDeployments_newer_branch_wins(t *testing.T) {
	gh := utils.NewFakeGitHub("feature-x", "feature-x2")
	gh.AddDeployment("Preview feature-x", "feature-x", "")
	gh.AddDeployment("Preview feature-x", "feature-x2", "")

	matcher := pattern.MustNew(`^Preview .+$`, `^(.+)-preview$`)
	c := NewCollector(gh, utils.NewFakeProvider(), matcher, "owner", "repo")

	records, err := c.ListDeployments(context.Background())
	if err != nil {
		t.Fatalf("ListDeployments() unexpected error: %v", err)
	}
	if records[0].Branch != "feature-x2" {
		t.Errorf("Branch = %q, want feature-x2 from the newest event", records[0].Branch)
	}
}

func TestCollector_ListDeployments_error(t *testing.T) {
	gh := utils.NewFakeGitHub()
	gh.ListError = errors.New("401 Bad credentials")

	c := newCollector(gh, utils.NewFakeProvider())

	_, err := c.ListDeployments(context.Background())

	var transportErr *errdefs.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("ListDeployments() error = %v, want TransportError", err)
	}
	if transportErr.Platform != PlatformGitHub {
		t.Errorf("Platform = %s, want github", transportErr.Platform)
	}
}

func TestCollector_deploymentBranch(t *testing.T) {
	c := newCollector(utils.NewFakeGitHub(), utils.NewFakeProvider())

	tests := []struct {
		name       string
		deployment github.Deployment
		want       string
	}{
		{
			name:       "plain branch ref",
			deployment: github.Deployment{Environment: "Preview other", Ref: "feature-x"},
			want:       "feature-x",
		},
		{
			name:       "fully qualified branch ref",
			deployment: github.Deployment{Environment: "Preview other", Ref: "refs/heads/feature-x"},
			want:       "feature-x",
		},
		{
			name:       "sha ref falls back to selector capture",
			deployment: github.Deployment{Environment: "Preview feature-x", Ref: "0123abc", SHA: "0123abc"},
			want:       "feature-x",
		},
		{
			name:       "tag ref falls back to selector capture",
			deployment: github.Deployment{Environment: "Preview feature-x", Ref: "refs/tags/v1.0.0"},
			want:       "feature-x",
		},
		{
			name:       "unresolvable",
			deployment: github.Deployment{Environment: "production", SHA: "0123abc", Ref: "0123abc"},
			want:       "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.deploymentBranch(&tt.deployment); got != tt.want {
				t.Errorf("deploymentBranch() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCollector_ListPreviews(t *testing.T) {
	provider := utils.NewFakeProvider("feature-y-preview", "staging", "feature-y-preview")

	c := newCollector(utils.NewFakeGitHub(), provider)

	records, err := c.ListPreviews(context.Background())
	if err != nil {
		t.Fatalf("ListPreviews() unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("ListPreviews() returned %d records, want 2 after dedup: %v", len(records), records)
	}

	if records[0].Branch != "feature-y" || !records[0].BranchValid {
		t.Errorf("records[0] = %+v, want branch feature-y", records[0])
	}
	if records[1].Name != "staging" || records[1].BranchValid {
		t.Errorf("records[1] = %+v, want staging without a branch", records[1])
	}
}

func TestCollector_ListPreviews_error(t *testing.T) {
	provider := utils.NewFakeProvider()
	provider.ListError = errors.New("not logged in")

	c := newCollector(utils.NewFakeGitHub(), provider)

	_, err := c.ListPreviews(context.Background())

	var transportErr *errdefs.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("ListPreviews() error = %v, want TransportError", err)
	}
	if transportErr.Platform != "okteto" {
		t.Errorf("Platform = %s, want okteto", transportErr.Platform)
	}
}

func TestCollector_BranchExists(t *testing.T) {
	gh := utils.NewFakeGitHub("main")
	gh.BranchErrors["flaky"] = errors.New("502 Bad Gateway")

	c := newCollector(gh, utils.NewFakeProvider())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		exists, err := c.BranchExists(ctx, "main")
		if err != nil || !exists {
			t.Fatalf("BranchExists(main) = %v, %v; want true, nil", exists, err)
		}
		exists, err = c.BranchExists(ctx, "gone")
		if err != nil || exists {
			t.Fatalf("BranchExists(gone) = %v, %v; want false, nil", exists, err)
		}
	}

	if gh.BranchChecks["main"] != 1 || gh.BranchChecks["gone"] != 1 {
		t.Errorf("branch lookups were not memoised: %v", gh.BranchChecks)
	}

	for i := 0; i < 2; i++ {
		if _, err := c.BranchExists(ctx, "flaky"); err == nil {
			t.Fatal("BranchExists(flaky) expected an error")
		}
	}
	if gh.BranchChecks["flaky"] != 2 {
		t.Errorf("failed lookups should not be cached, got %d calls", gh.BranchChecks["flaky"])
	}
}
