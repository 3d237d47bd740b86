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

// Package reconcile decides which records are stale and what to delete.
//
// The Resolver classifies every managed GitHub deployment and every preview
// environment:
//
//   - a record whose branch no longer exists is StaleBranchDeleted, whatever
//     the state of its counterpart
//   - a managed deployment whose environment URL names no live preview, and a
//     preview that no managed deployment links to, are StaleEnvironmentMissing
//   - everything else, including previews whose name the extraction pattern
//     does not match and records whose branch lookup failed, is Keep
//
// The Planner turns classifications into an ordered list of DeleteActions. It
// is a pure function of its input: ignored deployments and the previews linked
// to them are reported as StaleIgnoredOverride instead of being planned, every
// resource appears at most once, and GitHub deletions come before preview
// deletions.
package reconcile
