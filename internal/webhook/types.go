// Copyright 2025 The Previewd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package webhook

// Event names sent in the X-GitHub-Event header
const (
	EventPing        = "ping"
	EventDelete      = "delete"
	EventPullRequest = "pull_request"
)

// DeleteEvent is the part of a GitHub delete event, sent when a branch or tag
// is deleted, that decides whether to reconcile
type DeleteEvent struct {
	Ref     string `json:"ref"`
	RefType string `json:"ref_type"`
}

// PullRequestEvent is the part of a GitHub pull_request event that decides
// whether to reconcile
type PullRequestEvent struct {
	Action string `json:"action"`
	Number int    `json:"number"`
}

// Repository identifies the repository a delivery is about
type Repository struct {
	FullName string `json:"full_name"`
}

// envelope holds the fields shared by every event
type envelope struct {
	Repository Repository `json:"repository"`
}
