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

package main

import (
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	ctrllog "sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/mikelane/previewsync/internal/cleanup"
	"github.com/mikelane/previewsync/internal/errdefs"
	"github.com/mikelane/previewsync/internal/metrics"
	"github.com/mikelane/previewsync/internal/webhook"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var (
		addr        string
		interval    time.Duration
		secret      string
		webhookRate float64
		burst       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Reconcile periodically and on GitHub webhook deliveries",
		Long: `serve runs a reconciliation at startup and then every interval. It also
listens for GitHub webhooks: deleting a branch or closing a pull request
triggers an immediate run. /metrics exposes Prometheus metrics and /healthz
answers liveness probes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fs := cmd.Flags()
			cfg, err := loadConfig(fs, opts, nil)
			if err != nil {
				return err
			}
			if fs.Changed("addr") {
				cfg.Serve.Addr = addr
			}
			if fs.Changed("webhook-secret") {
				cfg.Serve.WebhookSecret = secret
			}
			if fs.Changed("interval") {
				if interval <= 0 {
					return errdefs.Configf("serve.interval", "interval must be positive, got %s", interval)
				}
				cfg.Serve.Interval = interval
			}

			ctx := cmd.Context()
			logger := ctrllog.FromContext(ctx)

			recorder := metrics.NewRecorder()
			s, err := newSyncer(cfg, recorder)
			if err != nil {
				return err
			}

			scheduler := cleanup.NewScheduler(s, cfg.Serve.Interval)
			server := webhook.NewServer(cfg.Serve.Addr, scheduler, cfg.Serve.WebhookSecret,
				webhook.WithMetrics(recorder.Handler()),
				webhook.WithRepository(cfg.GitHub.Repository),
				webhook.WithRateLimiter(webhook.NewRateLimiter(rate.Limit(webhookRate), burst)),
			)

			logger.Info("Starting previewsync", "repository", cfg.GitHub.Repository,
				"provider", cfg.Preview.Provider, "interval", cfg.Serve.Interval, "dryRun", cfg.DryRun)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return scheduler.Start(gctx) })
			g.Go(func() error { return server.Start(gctx) })
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address for webhooks, metrics and health checks (default :8080)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "time between scheduled runs (default 15m)")
	cmd.Flags().StringVar(&secret, "webhook-secret", "", "GitHub webhook secret; /webhook is disabled when empty")
	cmd.Flags().Float64Var(&webhookRate, "webhook-rate", 1, "accepted webhook deliveries per second and repository")
	cmd.Flags().IntVar(&burst, "webhook-burst", 10, "webhook delivery burst per repository")

	return cmd
}
