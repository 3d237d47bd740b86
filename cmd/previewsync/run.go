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
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	ctrllog "sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/mikelane/previewsync/internal/config"
	"github.com/mikelane/previewsync/internal/executor"
	"github.com/mikelane/previewsync/internal/metrics"
)

const pushTimeout = 10 * time.Second

func newRunCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run [DRY_RUN TOKEN DEPLOY_REGEX PREVIEW_REGEX]",
		Short: "Run a single reconciliation and print its report",
		Example: `  # preview what would be deleted
  previewsync run --dry-run --repository acme/shop \
    --deploy-pattern '^Preview (.+)$' --preview-pattern '^(.+)-preview$'

  # positional form used by the GitHub Action entrypoint
  previewsync run true "$GITHUB_TOKEN" '^Preview .+$' '^(.+)-preview$'`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 4 {
				return fmt.Errorf("expected 0 or 4 positional arguments, got %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags(), opts, args)
			if err != nil {
				return err
			}
			return runOnce(cmd.Context(), cmd, cfg)
		},
	}
}

func runOnce(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	logger := ctrllog.FromContext(ctx)

	format, err := executor.ParseFormat(cfg.Report.Format)
	if err != nil {
		return err
	}

	recorder := metrics.NewRecorder()
	s, err := newSyncer(cfg, recorder)
	if err != nil {
		return err
	}

	report, err := s.Run(ctx)
	if cfg.Metrics.Pushgateway != "" {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
		if perr := recorder.Push(pushCtx, cfg.Metrics.Pushgateway, cfg.Metrics.Job); perr != nil {
			logger.Error(perr, "Failed to push metrics")
		}
		cancel()
	}
	if err != nil {
		return err
	}

	if err := report.Render(cmd.OutOrStdout(), format); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	if cfg.Report.SummaryFile != "" {
		if err := report.AppendSummary(cfg.Report.SummaryFile); err != nil {
			logger.Error(err, "Failed to write step summary", "path", cfg.Report.SummaryFile)
		}
	}

	if report.Failed() {
		return &exitError{
			code: exitActionsFailed,
			err:  fmt.Errorf("%d of %d deletions failed", report.Count(executor.OutcomeFailed), len(report.Results)),
		}
	}
	return nil
}
