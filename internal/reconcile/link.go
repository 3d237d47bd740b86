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

import (
	"strings"

	"github.com/mikelane/previewsync/internal/inventory"
)

// urlReferences reports whether an environment URL names a preview
// environment. The match is a case-insensitive substring match: preview
// platforms embed the environment name in the host they expose.
func urlReferences(environmentURL, previewName string) bool {
	if environmentURL == "" || previewName == "" {
		return false
	}
	return strings.Contains(strings.ToLower(environmentURL), strings.ToLower(previewName))
}

// linked reports whether a deployment and a preview describe the same
// environment
func linked(d inventory.DeploymentRecord, p inventory.PreviewRecord, byBranch bool) bool {
	if urlReferences(d.EnvironmentURL, p.Name) {
		return true
	}
	return byBranch && sameBranch(d, p)
}

func sameBranch(d inventory.DeploymentRecord, p inventory.PreviewRecord) bool {
	return p.BranchValid && d.Branch != "" && d.Branch == p.Branch
}
