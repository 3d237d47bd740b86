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

// Package preview defines the contract previewsync needs from a
// preview-environment hosting platform.
package preview

import "context"

// Environment is a live preview environment as reported by its platform
type Environment struct {
	// Name is unique within the platform listing
	Name string
	// ID is the platform identifier; providers without one reuse Name
	ID string
	// Scope is the visibility reported by the platform (e.g. "personal", "global")
	Scope string
	// Sleeping reports whether the environment is scaled down
	Sleeping bool
}

// Provider lists and destroys preview environments
type Provider interface {
	// Platform is a short name used in logs and reports (e.g. "okteto")
	Platform() string
	// List returns every preview environment visible to the authenticated session
	List(ctx context.Context) ([]Environment, error)
	// Destroy removes the named environment. Implementations return an error
	// wrapping errdefs.ErrAlreadyDeleted when it does not exist.
	Destroy(ctx context.Context, name string) error
}
