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

// Package pattern maps deployment and preview environment names to match
// results.
//
// Two patterns are configured:
//   - the selector decides which GitHub deployments are managed by previewsync.
//     Unmanaged deployments are never touched, even when stale.
//   - the extraction pattern pulls a branch name out of a preview environment
//     name. It must contain exactly one capture group.
//
// Patterns use Go regexp syntax and are not implicitly anchored:
//
//	m, err := pattern.New(`^Preview (.+)$`, `^(.+)-preview$`)
//	m.Managed("Preview feature-x")              // true
//	m.ExtractBranch("feature-x-preview")        // "feature-x", true
package pattern
