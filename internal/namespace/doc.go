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

// Package namespace implements preview.Provider for previews hosted as plain
// Kubernetes namespaces.
//
// Every namespace matching the configured label selector is reported as one
// preview environment. The default selector matches the labels previewd puts
// on the namespaces it creates:
//
//	preview.previewd.io/managed-by=previewd
//
// Two optional labels enrich the listing:
//
//   - preview.previewd.io/scope is reported as the environment scope
//   - preview.previewd.io/sleeping=true marks a scaled-down environment
//
// Destroying an environment deletes its namespace; the API server garbage
// collects everything inside it. Namespaces that no longer match the selector
// are never deleted, and namespaces already terminating are not listed.
//
// The client is built from the ambient kubeconfig (KUBECONFIG, ~/.kube/config
// or the in-cluster service account).
package namespace
