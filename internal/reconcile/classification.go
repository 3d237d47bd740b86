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

import "fmt"

// Classification is the liveness judgment attached to a record
type Classification int

const (
	// Keep means the record is live, out of scope, or its state is uncertain
	Keep Classification = iota
	// StaleBranchDeleted means the branch the record was deployed from is gone
	StaleBranchDeleted
	// StaleEnvironmentMissing means the counterpart on the other platform is gone
	StaleEnvironmentMissing
	// StaleIgnoredOverride means the record is stale but protected by the ignore list
	StaleIgnoredOverride
)

var classificationNames = map[Classification]string{
	Keep:                    "keep",
	StaleBranchDeleted:      "stale-branch-deleted",
	StaleEnvironmentMissing: "stale-environment-missing",
	StaleIgnoredOverride:    "stale-ignored-override",
}

func (c Classification) String() string {
	if name, ok := classificationNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Classification(%d)", int(c))
}

// Stale reports whether the record no longer corresponds to a live resource
func (c Classification) Stale() bool {
	return c != Keep
}

// MarshalText implements encoding.TextMarshaler
func (c Classification) MarshalText() ([]byte, error) {
	if _, ok := classificationNames[c]; !ok {
		return nil, fmt.Errorf("unknown classification %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *Classification) UnmarshalText(text []byte) error {
	for k, v := range classificationNames {
		if v == string(text) {
			*c = k
			return nil
		}
	}
	return fmt.Errorf("unknown classification %q", string(text))
}
