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

// Package metrics records reconciliation runs as Prometheus metrics.
//
// Collectors live on a private registry. Serve mode exposes it on /metrics;
// one-shot runs can push it to a Pushgateway before exiting.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/mikelane/previewsync/internal/executor"
)

const namespace = "previewsync"

// Run results used for the result label of previewsync_runs_total
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultError   = "error"
)

// Recorder holds the run collectors and their registry
type Recorder struct {
	registry *prometheus.Registry

	Runs         *prometheus.CounterVec
	Actions      *prometheus.CounterVec
	Warnings     prometheus.Counter
	LastRun      prometheus.Gauge
	RunDuration  prometheus.Histogram
	StaleRecords *prometheus.GaugeVec
}

// NewRecorder creates a recorder with its own registry
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()

	r := &Recorder{
		registry: reg,
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of reconciliation runs by result",
		}, []string{"result"}),
		Actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Total number of planned delete actions by platform and outcome",
		}, []string{"platform", "outcome"}),
		Warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warnings_total",
			Help:      "Total number of records kept because their state could not be determined",
		}),
		LastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed reconciliation run",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of reconciliation runs in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		StaleRecords: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stale_records",
			Help:      "Number of stale records found by the last run, by platform",
		}, []string{"platform"}),
	}

	reg.MustRegister(r.Runs, r.Actions, r.Warnings, r.LastRun, r.RunDuration, r.StaleRecords)
	reg.MustRegister(collectors.NewGoCollector())

	return r
}

// ObserveReport records a completed run
func (r *Recorder) ObserveReport(report *executor.RunReport) {
	if report == nil {
		return
	}

	result := ResultSuccess
	if report.Failed() {
		result = ResultFailure
	}
	r.Runs.WithLabelValues(result).Inc()

	stale := map[string]float64{}
	for _, res := range report.Results {
		r.Actions.WithLabelValues(res.Action.Platform, string(res.Outcome)).Inc()
		stale[res.Action.Platform]++
	}
	r.StaleRecords.Reset()
	for platform, n := range stale {
		r.StaleRecords.WithLabelValues(platform).Set(n)
	}

	r.Warnings.Add(float64(len(report.Warnings)))
	if !report.FinishedAt.IsZero() {
		r.LastRun.Set(float64(report.FinishedAt.Unix()))
		if !report.StartedAt.IsZero() {
			r.RunDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
		}
	}
}

// ObserveError records a run aborted by a fatal error
func (r *Recorder) ObserveError() {
	r.Runs.WithLabelValues(ResultError).Inc()
}

// Registry returns the registry holding the recorder's collectors
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler returns an HTTP handler that serves the registry
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Push sends the registry to a Prometheus Pushgateway under the given job
func (r *Recorder) Push(ctx context.Context, gatewayURL, job string) error {
	err := push.New(gatewayURL, job).
		Gatherer(r.registry).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
