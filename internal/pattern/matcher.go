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

package pattern

import (
	"regexp"

	"github.com/mikelane/previewsync/internal/errdefs"
)

// Matcher holds the two compiled name patterns used during reconciliation.
// It is safe for concurrent use.
type Matcher struct {
	selector   *regexp.Regexp
	extraction *regexp.Regexp
}

// New compiles the managed-deployment selector and the branch-extraction
// pattern. The extraction pattern must contain exactly one capture group.
//
// Returns a *errdefs.ConfigurationError naming the offending pattern.
func New(selector, extraction string) (*Matcher, error) {
	if selector == "" {
		return nil, errdefs.Configf("deploy_pattern", "pattern is required")
	}
	if extraction == "" {
		return nil, errdefs.Configf("preview_pattern", "pattern is required")
	}

	sel, err := regexp.Compile(selector)
	if err != nil {
		return nil, &errdefs.ConfigurationError{Field: "deploy_pattern", Err: err}
	}

	ext, err := regexp.Compile(extraction)
	if err != nil {
		return nil, &errdefs.ConfigurationError{Field: "preview_pattern", Err: err}
	}
	if n := ext.NumSubexp(); n != 1 {
		return nil, errdefs.Configf("preview_pattern", "expected exactly 1 capture group in %q, got %d", extraction, n)
	}

	return &Matcher{selector: sel, extraction: ext}, nil
}

// MustNew is like New but panics on error. Intended for tests.
func MustNew(selector, extraction string) *Matcher {
	m, err := New(selector, extraction)
	if err != nil {
		panic(err)
	}
	return m
}

// Managed reports whether a source-control deployment name is in scope.
func (m *Matcher) Managed(name string) bool {
	return m.selector.MatchString(name)
}

// ManagedBranch returns the branch captured by the selector pattern, if the
// selector has exactly one capture group and it matched a non-empty value.
// Used when the platform does not link the deployment to a ref.
func (m *Matcher) ManagedBranch(name string) (string, bool) {
	if m.selector.NumSubexp() != 1 {
		return "", false
	}
	return capture(m.selector, name)
}

// ExtractBranch returns the branch encoded in a preview environment name.
func (m *Matcher) ExtractBranch(name string) (string, bool) {
	return capture(m.extraction, name)
}

func capture(re *regexp.Regexp, name string) (string, bool) {
	match := re.FindStringSubmatch(name)
	if len(match) < 2 || match[1] == "" {
		return "", false
	}
	return match[1], true
}
