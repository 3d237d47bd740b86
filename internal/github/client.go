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
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"

	"github.com/mikelane/previewsync/internal/errdefs"
)

// DefaultAPIURL is the public GitHub REST endpoint
const DefaultAPIURL = "https://api.github.com"

// RetryConfig defines the retry behavior for API calls
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
}

// DefaultRetryConfig returns the retry policy used by NewClient
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
	}
}

// githubClient implements the Client interface using go-github
type githubClient struct {
	client      *github.Client
	retryConfig *RetryConfig
}

// NewClient creates a new GitHub client with the provided token.
// apiURL overrides the REST endpoint (GitHub Enterprise); empty means DefaultAPIURL.
func NewClient(token, apiURL string) (Client, error) {
	var httpClient *http.Client
	if token != "" {
		httpClient = oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		))
	}

	gh := github.NewClient(httpClient)
	if apiURL != "" && strings.TrimSuffix(apiURL, "/") != DefaultAPIURL {
		baseURL, err := url.Parse(strings.TrimSuffix(apiURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", apiURL, err)
		}
		gh.BaseURL = baseURL
	}

	return &githubClient{
		client:      gh,
		retryConfig: DefaultRetryConfig(),
	}, nil
}

// ListDeployments retrieves every deployment event of the repository, following pagination
func (c *githubClient) ListDeployments(ctx context.Context, owner, repo string) ([]*Deployment, error) {
	all := []*Deployment{}
	opts := &github.DeploymentsListOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		var deployments []*github.Deployment
		var resp *github.Response

		err := c.executeWithRetry(ctx, func() error {
			var err error
			deployments, resp, err = c.client.Repositories.ListDeployments(ctx, owner, repo, opts)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list deployments: %w", err)
		}

		for _, d := range deployments {
			if d != nil {
				all = append(all, c.convertDeployment(d))
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// LatestDeploymentStatus retrieves the newest status of a deployment.
// GitHub returns statuses newest first, so only the first entry is requested.
func (c *githubClient) LatestDeploymentStatus(ctx context.Context, owner, repo string, deploymentID int64) (*DeploymentStatus, error) {
	var statuses []*github.DeploymentStatus

	err := c.executeWithRetry(ctx, func() error {
		var err error
		statuses, _, err = c.client.Repositories.ListDeploymentStatuses(ctx, owner, repo, deploymentID, &github.ListOptions{PerPage: 1})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list statuses of deployment %d: %w", deploymentID, err)
	}

	if len(statuses) == 0 || statuses[0] == nil {
		return nil, nil
	}
	return c.convertStatus(statuses[0]), nil
}

// BranchExists reports whether branch is present. A 404, or a 301 for a
// renamed branch, means the branch is gone.
func (c *githubClient) BranchExists(ctx context.Context, owner, repo, branch string) (bool, error) {
	var exists bool

	err := c.executeWithRetry(ctx, func() error {
		_, resp, err := c.client.Repositories.GetBranch(ctx, owner, repo, branch, 0)
		if resp != nil {
			switch resp.StatusCode {
			case http.StatusOK:
				exists = true
				return nil
			case http.StatusNotFound, http.StatusMovedPermanently:
				exists = false
				return nil
			}
			if err != nil {
				// GetBranch reports bare status errors; lift them so they can be retried
				return &github.ErrorResponse{Response: resp.Response, Message: err.Error()}
			}
		}
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to get branch %q: %w", branch, err)
	}

	return exists, nil
}

// DeleteDeployment deletes a deployment. GitHub refuses to delete an active
// deployment, so an inactive status is created first.
//
// Returns errdefs.ErrAlreadyDeleted when the deployment does not exist.
func (c *githubClient) DeleteDeployment(ctx context.Context, owner, repo string, deploymentID int64) error {
	request := &github.DeploymentStatusRequest{
		State:       github.String(string(DeploymentStateInactive)),
		Description: github.String("Retired by previewsync"),
	}

	err := c.executeWithRetry(ctx, func() error {
		_, _, err := c.client.Repositories.CreateDeploymentStatus(ctx, owner, repo, deploymentID, request)
		return err
	})
	if isNotFound(err) {
		return fmt.Errorf("deployment %d: %w", deploymentID, errdefs.ErrAlreadyDeleted)
	}
	if err != nil {
		return fmt.Errorf("failed to mark deployment %d inactive: %w", deploymentID, err)
	}

	err = c.executeWithRetry(ctx, func() error {
		_, err := c.client.Repositories.DeleteDeployment(ctx, owner, repo, deploymentID)
		return err
	})
	if isNotFound(err) {
		return fmt.Errorf("deployment %d: %w", deploymentID, errdefs.ErrAlreadyDeleted)
	}
	if err != nil {
		return fmt.Errorf("failed to delete deployment %d: %w", deploymentID, err)
	}

	return nil
}

// executeWithRetry executes an operation with exponential backoff retry
func (c *githubClient) executeWithRetry(ctx context.Context, operation func() error) error {
	var lastErr error

	for attempt := 0; attempt <= c.retryConfig.MaxRetries; attempt++ {
		// Check if context is cancelled before attempting
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()

		if lastErr == nil {
			return nil
		}

		if !c.isRetryableError(lastErr) {
			return lastErr
		}

		if attempt == c.retryConfig.MaxRetries {
			break
		}

		backoff := c.calculateBackoff(attempt)
		if limited, wait := c.checkRateLimit(responseOf(lastErr)); limited && wait > backoff {
			backoff = min(wait, c.retryConfig.MaxBackoff)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	return fmt.Errorf("operation failed after %d retries: %w", c.retryConfig.MaxRetries, lastErr)
}

// isRetryableError determines if an error should trigger a retry
func (c *githubClient) isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return true
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		case http.StatusForbidden:
			if ghErr.Message == "API rate limit exceeded" ||
				ghErr.Response.Header.Get("X-RateLimit-Remaining") == "0" {
				return true
			}
		}
	}

	return false
}

// calculateBackoff calculates the backoff duration for a retry attempt
func (c *githubClient) calculateBackoff(attempt int) time.Duration {
	multiplier := 1 << uint(attempt) // 2^attempt
	base := float64(c.retryConfig.InitialBackoff) * float64(multiplier)

	// Add jitter (±20%)
	jitter := (rand.Float64() * 0.4) - 0.2
	backoff := time.Duration(base * (1 + jitter))

	if backoff > c.retryConfig.MaxBackoff {
		backoff = c.retryConfig.MaxBackoff
	}

	return backoff
}

// checkRateLimit checks response headers for rate limit information
func (c *githubClient) checkRateLimit(resp *http.Response) (bool, time.Duration) {
	if resp == nil {
		return false, 0
	}

	remaining := resp.Header.Get("X-RateLimit-Remaining")
	if remaining != "" {
		if rem, err := strconv.Atoi(remaining); err == nil && rem == 0 {
			resetStr := resp.Header.Get("X-RateLimit-Reset")
			if resetStr != "" {
				if resetTime, err := strconv.ParseInt(resetStr, 10, 64); err == nil {
					waitTime := time.Until(time.Unix(resetTime, 0))
					if waitTime > 0 {
						return true, waitTime
					}
				}
			}
		}
	}

	// Secondary rate limit (403 without rate limit headers)
	if resp.StatusCode == http.StatusForbidden {
		return true, 60 * time.Second
	}

	return false, 0
}

// responseOf extracts the HTTP response carried by a go-github error, if any
func responseOf(err error) *http.Response {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return rateErr.Response
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return abuseErr.Response
	}
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) {
		return ghErr.Response
	}
	return nil
}

// isNotFound reports whether err is a GitHub 404
func isNotFound(err error) bool {
	resp := responseOf(err)
	return resp != nil && resp.StatusCode == http.StatusNotFound
}

// convertDeployment converts a GitHub deployment to our domain model
func (c *githubClient) convertDeployment(d *github.Deployment) *Deployment {
	result := &Deployment{
		ID:          d.GetID(),
		Environment: d.GetEnvironment(),
		Ref:         d.GetRef(),
		SHA:         d.GetSHA(),
		Task:        d.GetTask(),
		CreatedAt:   d.GetCreatedAt().Time,
		UpdatedAt:   d.GetUpdatedAt().Time,
	}

	if d.Creator != nil {
		result.Creator = d.Creator.GetLogin()
	}

	return result
}

// convertStatus converts a GitHub deployment status to our domain model
func (c *githubClient) convertStatus(s *github.DeploymentStatus) *DeploymentStatus {
	return &DeploymentStatus{
		ID:             s.GetID(),
		State:          DeploymentState(s.GetState()),
		EnvironmentURL: s.GetEnvironmentURL(),
		LogURL:         s.GetLogURL(),
		CreatedAt:      s.GetCreatedAt().Time,
	}
}
