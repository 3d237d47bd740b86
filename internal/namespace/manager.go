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

package namespace

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/types"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/config"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/mikelane/previewsync/internal/errdefs"
	"github.com/mikelane/previewsync/internal/preview"
)

// DefaultLabelSelector selects namespaces created for preview environments
const DefaultLabelSelector = "preview.previewd.io/managed-by=previewd"

// Manager treats labelled Kubernetes namespaces as preview environments
type Manager struct {
	client   client.Client
	selector labels.Selector
}

// NewManager creates a new namespace manager. selector uses the kubectl label
// selector syntax; empty means DefaultLabelSelector.
func NewManager(c client.Client, selector string) (*Manager, error) {
	if selector == "" {
		selector = DefaultLabelSelector
	}

	parsed, err := labels.Parse(selector)
	if err != nil {
		return nil, errdefs.Configf("preview.label_selector", "invalid label selector %q: %v", selector, err)
	}

	return &Manager{
		client:   c,
		selector: parsed,
	}, nil
}

// NewClient builds a controller-runtime client from the ambient kubeconfig
// (KUBECONFIG, ~/.kube/config or the in-cluster service account).
func NewClient() (client.Client, error) {
	restConfig, err := config.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}

	c, err := client.New(restConfig, client.Options{Scheme: clientgoscheme.Scheme})
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	return c, nil
}

// Platform implements preview.Provider
func (m *Manager) Platform() string {
	return "kubernetes"
}

// List returns the namespaces matching the selector. Namespaces already
// terminating are left out since their deletion is under way.
func (m *Manager) List(ctx context.Context) ([]preview.Environment, error) {
	logger := log.FromContext(ctx)

	var nsList corev1.NamespaceList
	if err := m.client.List(ctx, &nsList, client.MatchingLabelsSelector{Selector: m.selector}); err != nil {
		return nil, &errdefs.TransportError{
			Platform: m.Platform(),
			Op:       "list namespaces",
			Err:      err,
		}
	}

	envs := make([]preview.Environment, 0, len(nsList.Items))
	for i := range nsList.Items {
		ns := &nsList.Items[i]

		if ns.Status.Phase == corev1.NamespaceTerminating || ns.DeletionTimestamp != nil {
			logger.V(1).Info("Skipping terminating namespace", "namespace", ns.Name)
			continue
		}

		id := string(ns.UID)
		if id == "" {
			id = ns.Name
		}

		envs = append(envs, preview.Environment{
			Name:     ns.Name,
			ID:       id,
			Scope:    ns.Labels["preview.previewd.io/scope"],
			Sleeping: ns.Labels["preview.previewd.io/sleeping"] == "true",
		})
	}

	return envs, nil
}

// Destroy deletes the namespace. Kubernetes cascades the deletion to every
// resource inside it.
func (m *Manager) Destroy(ctx context.Context, name string) error {
	ns := &corev1.Namespace{}
	err := m.client.Get(ctx, types.NamespacedName{Name: name}, ns)
	if err != nil {
		if errors.IsNotFound(err) {
			return fmt.Errorf("namespace %q: %w", name, errdefs.ErrAlreadyDeleted)
		}
		return &errdefs.TransportError{Platform: m.Platform(), Op: "get namespace " + name, Err: err}
	}

	if !m.selector.Matches(labels.Set(ns.Labels)) {
		return fmt.Errorf("refusing to delete namespace %q: labels do not match %q", name, m.selector.String())
	}

	if err := m.client.Delete(ctx, ns); err != nil {
		if errors.IsNotFound(err) {
			return fmt.Errorf("namespace %q: %w", name, errdefs.ErrAlreadyDeleted)
		}
		return &errdefs.TransportError{Platform: m.Platform(), Op: "delete namespace " + name, Err: err}
	}

	return nil
}
