// MIT License
//
// Copyright (c) 2025 Mike Lane
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package github

import (
	"context"
	"time"
)

// Client interface defines the contract for interacting with GitHub API
type Client interface {
	// ListDeployments retrieves every deployment event recorded for a repository
	ListDeployments(ctx context.Context, owner, repo string) ([]*Deployment, error)
	// LatestDeploymentStatus retrieves the most recent status of a deployment, or nil if it has none
	LatestDeploymentStatus(ctx context.Context, owner, repo string, deploymentID int64) (*DeploymentStatus, error)
	// BranchExists reports whether a branch is still present in the repository
	BranchExists(ctx context.Context, owner, repo, branch string) (bool, error)
	// DeleteDeployment marks a deployment inactive and deletes it
	DeleteDeployment(ctx context.Context, owner, repo string, deploymentID int64) error
}

// Deployment represents a single GitHub deployment event
type Deployment struct {
	ID          int64
	Environment string
	Ref         string
	SHA         string
	Task        string
	Creator     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DeploymentStatus represents the state reported for a deployment
type DeploymentStatus struct {
	ID             int64
	State          DeploymentState
	EnvironmentURL string
	LogURL         string
	CreatedAt      time.Time
}

// DeploymentState represents the state of a deployment status
type DeploymentState string

const (
	// DeploymentStatePending indicates the deployment has not started
	DeploymentStatePending DeploymentState = "pending"
	// DeploymentStateInProgress indicates the deployment is running
	DeploymentStateInProgress DeploymentState = "in_progress"
	// DeploymentStateSuccess indicates the deployment succeeded
	DeploymentStateSuccess DeploymentState = "success"
	// DeploymentStateFailure indicates the deployment failed
	DeploymentStateFailure DeploymentState = "failure"
	// DeploymentStateError indicates the deployment errored
	DeploymentStateError DeploymentState = "error"
	// DeploymentStateInactive indicates the deployment was superseded or retired
	DeploymentStateInactive DeploymentState = "inactive"
)
