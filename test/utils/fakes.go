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


// Package utils provides in-memory stand-ins for the GitHub API and preview
// providers, shared by package and suite tests.
package utils

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mikelane/previewsync/internal/errdefs"
	"github.com/mikelane/previewsync/internal/github"
	"github.com/mikelane/previewsync/internal/preview"
)

// FakeGitHub implements github.Client over in-memory deployments and branches
type FakeGitHub struct {
	mu sync.Mutex

	deployments []*github.Deployment
	statuses    map[int64]*github.DeploymentStatus
	branches    map[string]bool
	nextID      int64
	clock       time.Time

	// BranchErrors makes BranchExists fail for the named branches
	BranchErrors map[string]error
	// DeleteErrors makes DeleteDeployment fail for the given deployment ids
	DeleteErrors map[int64]error
	// ListError makes ListDeployments fail
	ListError error

	// Deleted records deleted deployment ids in call order
	Deleted []int64
	// DeleteCalls counts every DeleteDeployment call, failed ones included
	DeleteCalls int
	// BranchChecks counts BranchExists calls per branch
	BranchChecks map[string]int
}

// NewFakeGitHub creates an empty fake with the given live branches
func NewFakeGitHub(branches ...string) *FakeGitHub {
	f := &FakeGitHub{
		statuses:     make(map[int64]*github.DeploymentStatus),
		branches:     make(map[string]bool),
		nextID:       1000,
		clock:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		BranchErrors: make(map[string]error),
		DeleteErrors: make(map[int64]error),
		BranchChecks: make(map[string]int),
	}
	for _, b := range branches {
		f.branches[b] = true
	}
	return f
}

// AddDeployment records a deployment event for environment from ref. A
// non-empty url is attached as the environment URL of a success status.
// Each call is one hour newer than the previous one.
func (f *FakeGitHub) AddDeployment(environment, ref, url string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	f.clock = f.clock.Add(time.Hour)

	d := &github.Deployment{
		ID:          f.nextID,
		Environment: environment,
		Ref:         ref,
		SHA:         fmt.Sprintf("%040d", f.nextID),
		Task:        "deploy",
		CreatedAt:   f.clock,
		UpdatedAt:   f.clock,
	}
	f.deployments = append(f.deployments, d)

	if url != "" {
		f.statuses[d.ID] = &github.DeploymentStatus{
			ID:             d.ID * 10,
			State:          github.DeploymentStateSuccess,
			EnvironmentURL: url,
			CreatedAt:      f.clock,
		}
	}
	return d.ID
}

// DeleteBranch removes a branch from the repository
func (f *FakeGitHub) DeleteBranch(branch string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.branches, branch)
}

// Environments returns the names of environments that still have deployments
func (f *FakeGitHub) Environments() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	seen := map[string]bool{}
	var names []string
	for _, d := range f.deployments {
		if !seen[d.Environment] {
			seen[d.Environment] = true
			names = append(names, d.Environment)
		}
	}
	sort.Strings(names)
	return names
}

// Mutations returns the number of mutating calls that reached the fake
func (f *FakeGitHub) Mutations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.DeleteCalls
}

// ListDeployments implements github.Client
func (f *FakeGitHub) ListDeployments(_ context.Context, _, _ string) ([]*github.Deployment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ListError != nil {
		return nil, f.ListError
	}

	// Newest first, like the API
	out := make([]*github.Deployment, 0, len(f.deployments))
	for i := len(f.deployments) - 1; i >= 0; i-- {
		d := *f.deployments[i]
		out = append(out, &d)
	}
	return out, nil
}

// LatestDeploymentStatus implements github.Client
func (f *FakeGitHub) LatestDeploymentStatus(_ context.Context, _, _ string, id int64) (*github.DeploymentStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	status, ok := f.statuses[id]
	if !ok {
		return nil, nil
	}
	s := *status
	return &s, nil
}

// BranchExists implements github.Client
func (f *FakeGitHub) BranchExists(_ context.Context, _, _ string, branch string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.BranchChecks[branch]++
	if err, ok := f.BranchErrors[branch]; ok {
		return false, err
	}
	return f.branches[branch], nil
}

// DeleteDeployment implements github.Client
func (f *FakeGitHub) DeleteDeployment(_ context.Context, _, _ string, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.DeleteCalls++
	if err, ok := f.DeleteErrors[id]; ok {
		return err
	}

	for i, d := range f.deployments {
		if d.ID == id {
			f.deployments = append(f.deployments[:i], f.deployments[i+1:]...)
			delete(f.statuses, id)
			f.Deleted = append(f.Deleted, id)
			return nil
		}
	}
	return fmt.Errorf("deployment %d: %w", id, errdefs.ErrAlreadyDeleted)
}

// FakeProvider implements preview.Provider over an in-memory set of environments
type FakeProvider struct {
	mu sync.Mutex

	platform string
	envs     []preview.Environment

	// ListError makes List fail
	ListError error
	// DestroyErrors makes Destroy fail for the named environments
	DestroyErrors map[string]error

	// Destroyed records destroyed environment names in call order
	Destroyed []string
	// DestroyCalls counts every Destroy call, failed ones included
	DestroyCalls int
}

// NewFakeProvider creates a provider listing the named environments
func NewFakeProvider(names ...string) *FakeProvider {
	p := &FakeProvider{
		platform:      "okteto",
		DestroyErrors: make(map[string]error),
	}
	for _, name := range names {
		p.envs = append(p.envs, preview.Environment{Name: name, ID: name, Scope: "global"})
	}
	return p
}

// Names returns the environments still present
func (p *FakeProvider) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, 0, len(p.envs))
	for _, env := range p.envs {
		names = append(names, env.Name)
	}
	return names
}

// Mutations returns the number of mutating calls that reached the fake
func (p *FakeProvider) Mutations() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.DestroyCalls
}

// Platform implements preview.Provider
func (p *FakeProvider) Platform() string {
	return p.platform
}

// List implements preview.Provider
func (p *FakeProvider) List(_ context.Context) ([]preview.Environment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ListError != nil {
		return nil, p.ListError
	}
	return append([]preview.Environment(nil), p.envs...), nil
}

// Destroy implements preview.Provider
func (p *FakeProvider) Destroy(_ context.Context, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.DestroyCalls++
	if err, ok := p.DestroyErrors[name]; ok {
		return err
	}

	for i, env := range p.envs {
		if strings.EqualFold(env.Name, name) {
			p.envs = append(p.envs[:i], p.envs[i+1:]...)
			p.Destroyed = append(p.Destroyed, name)
			return nil
		}
	}
	return fmt.Errorf("preview %q: %w", name, errdefs.ErrAlreadyDeleted)
}
