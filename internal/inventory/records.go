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
	"fmt"
	"time"
)

// DeploymentRecord is one GitHub environment as seen through its deployments
type DeploymentRecord struct {
	// Name is the environment name, unique within a run
	Name string
	// ID is the id of the newest deployment event
	ID string
	// EventIDs holds every deployment id recorded for the environment, oldest first
	EventIDs []int64
	// EnvironmentURL comes from the newest deployment status, empty when unknown
	EnvironmentURL string
	// Branch is the branch the environment was deployed from, empty when unresolved
	Branch string
	// State is the newest deployment status state, empty when unknown
	State string
	// CreatedAt is the creation time of the newest event
	CreatedAt time.Time
	// Managed reports whether the selector pattern matched Name
	Managed bool
}

func (r DeploymentRecord) String() string {
	return fmt.Sprintf("%s:%s", r.Name, r.Branch)
}

// PreviewRecord is one environment on the preview hosting platform
type PreviewRecord struct {
	Name string
	ID   string
	// Branch is the capture of the extraction pattern
	Branch string
	// BranchValid is false when the extraction pattern did not match Name
	BranchValid bool
	Scope       string
	Sleeping    bool
}

func (r PreviewRecord) String() string {
	return fmt.Sprintf("%s:%s", r.Name, r.Branch)
}
