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

// Package webhook provides the HTTP surface of previewsync's serve mode.
//
// The server exposes:
//   - /healthz: liveness probe
//   - /metrics: Prometheus metrics, when a metrics handler is configured
//   - /webhook: GitHub webhook deliveries, when a webhook secret is configured
//
// Webhook Security:
//
// All webhook requests must include a valid X-Hub-Signature-256 header containing
// an HMAC-SHA256 signature computed with the webhook secret. Requests with invalid
// or missing signatures are rejected with HTTP 401.
//
// Event Handling:
//
// Deliveries never delete anything themselves; they request an immediate
// reconciliation run:
//   - delete with ref_type branch: a branch is gone, its previews are now stale
//   - pull_request closed: the preview of the pull request is no longer needed
//   - ping: answered with "pong"
//
// Other events are acknowledged and ignored. Accepted deliveries receive
// HTTP 202 even when a run is already pending.
//
// Rate Limiting:
//
// Requests are rate-limited per repository with a token bucket. The default
// allows bursts of 10 deliveries refilled at one per second. Requests
// exceeding the limit receive HTTP 429 Too Many Requests.
//
// Example usage:
//
//	server := webhook.NewServer(
//		":8080",
//		scheduler,
//		"webhook-secret",
//		webhook.WithMetrics(recorder.Handler()),
//	)
//	if err := server.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
package webhook
