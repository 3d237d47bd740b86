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

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// maxPayloadBytes bounds the size of a webhook delivery
const maxPayloadBytes = 5 << 20

// Triggerer requests an immediate reconciliation run
type Triggerer interface {
	Trigger(reason string) bool
}

// Server handles health checks, metrics scrapes and GitHub webhook deliveries
type Server struct {
	addr          string
	trigger       Triggerer
	webhookSecret string
	repository    string
	metrics       http.Handler
	server        *http.Server
	rateLimiter   *RateLimiter
}

// Option configures a Server
type Option func(*Server)

// WithMetrics serves handler on /metrics
func WithMetrics(handler http.Handler) Option {
	return func(s *Server) {
		s.metrics = handler
	}
}

// WithRepository only acts on deliveries for the owner/repo repository
func WithRepository(fullName string) Option {
	return func(s *Server) {
		s.repository = fullName
	}
}

// WithRateLimiter replaces the default per-repository rate limiter
func WithRateLimiter(rl *RateLimiter) Option {
	return func(s *Server) {
		s.rateLimiter = rl
	}
}

// NewServer creates a new webhook server. The /webhook endpoint is only
// served when webhookSecret is set.
func NewServer(addr string, trigger Triggerer, webhookSecret string, opts ...Option) *Server {
	s := &Server{
		addr:          addr,
		trigger:       trigger,
		webhookSecret: webhookSecret,
		rateLimiter:   NewRateLimiter(rate.Limit(1), 10), // 1 request per second per repo, bursts of 10
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// RateLimiter provides per-repository rate limiting
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewRateLimiter creates a new rate limiter allowing limit events per second
// per repository, with bursts of up to burst events
func NewRateLimiter(limit rate.Limit, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

// Allow checks if a request from the given repository should be allowed
func (rl *RateLimiter) Allow(repo string) bool {
	rl.mu.Lock()
	limiter, exists := rl.limiters[repo]
	if !exists {
		limiter = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[repo] = limiter
	}
	rl.mu.Unlock()

	return limiter.Allow()
}

// Handler returns the HTTP routes of the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	if s.webhookSecret != "" {
		mux.HandleFunc("/webhook", s.handleWebhook)
	}
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	return mux
}

// Start starts the server and blocks until the context is canceled
func (s *Server) Start(ctx context.Context) error {
	logger := log.FromContext(ctx)

	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting webhook server", "addr", s.server.Addr, "webhook", s.webhookSecret != "")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("webhook server: %w", err)
	}
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.FromContext(ctx).Info("Shutting down webhook server")
	return s.server.Shutdown(ctx)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleWebhook handles GitHub webhook deliveries. Branch deletions and
// closed pull requests request an immediate reconciliation.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context()).WithValues("delivery", r.Header.Get("X-GitHub-Delivery"))

	// Only accept POST requests
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	defer r.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		logger.Error(err, "Failed to read request body")
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	// Validate signature
	signature := r.Header.Get("X-Hub-Signature-256")
	if !ValidateSignature(payload, signature, s.webhookSecret) {
		logger.Info("Invalid webhook signature")
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	eventType := r.Header.Get("X-GitHub-Event")
	if eventType == EventPing {
		_, _ = w.Write([]byte("pong"))
		return
	}
	if eventType != EventDelete && eventType != EventPullRequest {
		logger.V(1).Info("Ignoring event", "event", eventType)
		w.WriteHeader(http.StatusOK)
		return
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		logger.Error(err, "Failed to parse JSON payload")
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	repo := env.Repository.FullName
	if s.repository != "" && !strings.EqualFold(repo, s.repository) {
		logger.Info("Ignoring event for another repository", "repository", repo)
		w.WriteHeader(http.StatusOK)
		return
	}

	// Rate limiting check
	if !s.rateLimiter.Allow(repo) {
		logger.Info("Rate limit exceeded", "repository", repo)
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
		return
	}

	reason, err := triggerReason(eventType, payload)
	if err != nil {
		logger.Error(err, "Failed to parse event", "event", eventType)
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if reason == "" {
		logger.V(1).Info("Event does not affect previews", "event", eventType)
		w.WriteHeader(http.StatusOK)
		return
	}

	if s.trigger.Trigger(reason) {
		logger.Info("Reconciliation requested", "reason", reason)
	} else {
		logger.V(1).Info("Reconciliation already pending", "reason", reason)
	}
	w.WriteHeader(http.StatusAccepted)
}

// triggerReason returns why the event requires a reconciliation, or "" when
// it does not
func triggerReason(eventType string, payload []byte) (string, error) {
	switch eventType {
	case EventDelete:
		var event DeleteEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return "", err
		}
		if event.RefType != "branch" {
			return "", nil
		}
		return fmt.Sprintf("branch %s deleted", event.Ref), nil

	case EventPullRequest:
		var event PullRequestEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return "", err
		}
		if !strings.EqualFold(event.Action, "closed") {
			return "", nil
		}
		return fmt.Sprintf("pull request #%d closed", event.Number), nil
	}
	return "", nil
}
