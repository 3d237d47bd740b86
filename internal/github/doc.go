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

// Package github provides GitHub API integration for previewsync.
//
// This package implements a client for the parts of the GitHub REST API that
// reconciliation needs: the deployment history of a repository, the latest
// status of a deployment, branch existence and deployment deletion.
//
// Key features:
//   - Paginated deployment listing (100 per page)
//   - Latest deployment status lookup (environment URL and state)
//   - Branch existence checks (404 or 301 means the branch is gone)
//   - Deployment deletion that first marks the deployment inactive
//   - Retry logic with exponential backoff
//   - Rate limit handling
//
// Authentication:
//
// The client requires a token with the following permissions:
//   - deployments: write (to mark deployments inactive and delete them)
//   - contents: read (to check branches)
//
// Inside GitHub Actions the default GITHUB_TOKEN works when the workflow grants
// "deployments: write".
//
// Example usage:
//
//	client, err := github.NewClient(token, os.Getenv("GITHUB_API_URL"))
//	if err != nil {
//	    return err
//	}
//
//	deployments, err := client.ListDeployments(ctx, "owner", "repo")
//	if err != nil {
//	    return err
//	}
//
//	exists, err := client.BranchExists(ctx, "owner", "repo", "feature-x")
//
// Deletion:
//
// GitHub only deletes inactive deployments. DeleteDeployment posts an
// "inactive" status before issuing the DELETE. A 404 on either call is reported
// as errdefs.ErrAlreadyDeleted.
//
// Retry Logic:
//
// Failed requests are retried with exponential backoff:
//   - Initial backoff: 100 milliseconds
//   - Maximum backoff: 30 seconds
//   - Maximum retries: 3
//   - Backoff factor: 2.0
//
// Retries are performed for rate limits and 502/503/504 responses. When the
// primary rate limit is exhausted the client waits for X-RateLimit-Reset, capped
// at the maximum backoff. Client errors (4xx except 429) are not retried.
package github
