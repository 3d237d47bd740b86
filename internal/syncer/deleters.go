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
	"fmt"
	"strconv"

	"github.com/mikelane/previewsync/internal/errdefs"
	"github.com/mikelane/previewsync/internal/github"
	"github.com/mikelane/previewsync/internal/preview"
	"github.com/mikelane/previewsync/internal/reconcile"
)

// githubDeleter removes every deployment event of an environment, oldest
// first. GitHub refuses to delete the active deployment, so each one is made
// inactive before deletion.
type githubDeleter struct {
	client github.Client
	owner  string
	repo   string
}

func (d *githubDeleter) Delete(ctx context.Context, action reconcile.DeleteAction) error {
	ids := action.IDs
	if len(ids) == 0 {
		ids = []string{action.ResourceID}
	}

	gone := 0
	for _, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid deployment id %q: %w", raw, err)
		}

		err = d.client.DeleteDeployment(ctx, d.owner, d.repo, id)
		switch {
		case err == nil:
		case errdefs.IsAlreadyDeleted(err):
			gone++
		default:
			return &errdefs.TransportError{
				Platform: reconcile.PlatformGitHub,
				Op:       fmt.Sprintf("delete deployment %d", id),
				Err:      err,
			}
		}
	}

	if gone == len(ids) {
		return fmt.Errorf("environment %q: %w", action.ResourceName, errdefs.ErrAlreadyDeleted)
	}
	return nil
}

// previewDeleter destroys a preview environment by name
type previewDeleter struct {
	provider preview.Provider
}

func (d *previewDeleter) Delete(ctx context.Context, action reconcile.DeleteAction) error {
	return d.provider.Destroy(ctx, action.ResourceName)
}
