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

package syncer

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mikelane/previewsync/internal/errdefs"
	"github.com/mikelane/previewsync/internal/executor"
	"github.com/mikelane/previewsync/internal/metrics"
	"github.com/mikelane/previewsync/internal/pattern"
	"github.com/mikelane/previewsync/internal/reconcile"
	"github.com/mikelane/previewsync/test/utils"
)

var _ = Describe("Syncer", func() {
	var (
		ctx      context.Context
		gh       *utils.FakeGitHub
		provider *utils.FakeProvider
		matcher  *pattern.Matcher
		opts     Options
		featureX int64
	)

	newSyncer := func(options ...Option) *Syncer {
		options = append(options, WithRunIDs(func() string { return "test-run" }))
		return New(gh, provider, matcher, opts, options...)
	}

	outcomes := func(report *executor.RunReport) map[string]executor.Outcome {
		out := map[string]executor.Outcome{}
		for _, res := range report.Results {
			out[res.Action.ResourceName] = res.Outcome
		}
		return out
	}

	BeforeEach(func() {
		ctx = context.Background()
		matcher = pattern.MustNew(`^Preview .+$`, `^(.+)-preview$`)
		opts = Options{Owner: "acme", Repo: "shop"}

		By("seeding branch feature-x (deleted), feature-y (live) and the orphan preview feature-z-preview")
		gh = utils.NewFakeGitHub("main", "feature-y")
		featureX = gh.AddDeployment("Preview feature-x", "feature-x", "https://feature-x-preview-acme.okteto.example.com")
		gh.AddDeployment("Preview feature-y", "feature-y", "https://feature-y-preview-acme.okteto.example.com")
		gh.AddDeployment("production", "main", "https://shop.example.com")
		provider = utils.NewFakeProvider("feature-y-preview", "feature-z-preview")
	})

	Describe("Scenario: stale records on both platforms", func() {
		It("deletes the deployment of the deleted branch and the orphan preview", func() {
			report, err := newSyncer().Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			By("checking the plan")
			Expect(report.Results).To(HaveLen(2))
			Expect(report.Results[0].Action.Platform).To(Equal(reconcile.PlatformGitHub))
			Expect(report.Results[0].Action.ResourceName).To(Equal("Preview feature-x"))
			Expect(report.Results[0].Action.Reason).To(Equal(reconcile.StaleBranchDeleted))
			Expect(report.Results[1].Action.Platform).To(Equal(reconcile.PlatformPreview))
			Expect(report.Results[1].Action.ResourceName).To(Equal("feature-z-preview"))
			Expect(report.Results[1].Action.Reason).To(Equal(reconcile.StaleBranchDeleted))

			By("checking the platforms")
			Expect(gh.Deleted).To(Equal([]int64{featureX}))
			Expect(gh.Environments()).To(ConsistOf("Preview feature-y", "production"))
			Expect(provider.Names()).To(ConsistOf("feature-y-preview"))

			Expect(report.Failed()).To(BeFalse())
			Expect(report.RunID).To(Equal("test-run"))
			Expect(report.Inventory).To(Equal(executor.Inventory{
				Deployments: 3,
				Managed:     2,
				Previews:    2,
				Unmanaged:   []string{"production"},
			}))
		})

		It("finds nothing left to do on a second run", func() {
			s := newSyncer()
			_, err := s.Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			report, err := s.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Results).To(BeEmpty())
		})
	})

	Describe("Scenario: deployment on the ignore list", func() {
		It("leaves the ignored deployment alone although its branch is deleted", func() {
			opts.Ignore = []string{"feature-x"}

			report, err := newSyncer().Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(outcomes(report)).To(Equal(map[string]executor.Outcome{
				"feature-z-preview": executor.OutcomeDeleted,
			}))
			Expect(gh.Mutations()).To(BeZero())
			Expect(report.Skipped).To(ContainElement(HaveField("ResourceName", "Preview feature-x")))
		})
	})

	Describe("Scenario: preview outside the extraction pattern", func() {
		It("never plans the preview", func() {
			provider = utils.NewFakeProvider("feature-y-preview", "staging")

			report, err := newSyncer().Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(outcomes(report)).NotTo(HaveKey("staging"))
			Expect(provider.Names()).To(ContainElement("staging"))
		})
	})

	Describe("Scenario: dry run", func() {
		It("issues no mutating call and reports every action as would-delete", func() {
			opts.DryRun = true

			report, err := newSyncer().Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(gh.Mutations()).To(BeZero())
			Expect(provider.Mutations()).To(BeZero())
			Expect(report.Results).To(HaveLen(2))
			for _, res := range report.Results {
				Expect(res.Outcome).To(Equal(executor.OutcomeWouldDelete))
			}
			Expect(report.DryRun).To(BeTrue())
		})
	})

	Describe("Scenario: branch lookup fails for one record", func() {
		It("keeps the record, warns and completes the run", func() {
			gh.BranchErrors["feature-x"] = errors.New("502 Bad Gateway")

			report, err := newSyncer().Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(outcomes(report)).To(Equal(map[string]executor.Outcome{
				"feature-z-preview": executor.OutcomeDeleted,
			}))
			Expect(report.Warnings).To(HaveLen(1))
			Expect(report.Warnings[0].Name).To(Equal("Preview feature-x"))
			Expect(report.Failed()).To(BeFalse())
		})
	})

	Describe("Scenario: listing fails", func() {
		It("aborts before any mutation and names the GitHub side", func() {
			gh.ListError = errors.New("401 Bad credentials")

			report, err := newSyncer().Run(ctx)
			Expect(report).To(BeNil())

			var transportErr *errdefs.TransportError
			Expect(errors.As(err, &transportErr)).To(BeTrue())
			Expect(transportErr.Platform).To(Equal("github"))
			Expect(provider.Mutations()).To(BeZero())
		})

		It("aborts before any mutation and names the preview side", func() {
			provider.ListError = errors.New("okteto: not logged in")

			_, err := newSyncer().Run(ctx)
			Expect(err).To(MatchError(ContainSubstring("okteto")))
			Expect(gh.Mutations()).To(BeZero())
		})
	})

	Describe("Scenario: a delete fails", func() {
		It("records the failure and still applies the other actions", func() {
			gh.DeleteErrors[featureX] = errors.New("403 Forbidden")

			report, err := newSyncer().Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(outcomes(report)).To(Equal(map[string]executor.Outcome{
				"Preview feature-x": executor.OutcomeFailed,
				"feature-z-preview": executor.OutcomeDeleted,
			}))
			Expect(report.Failed()).To(BeTrue())
		})

		It("treats a preview that disappeared meanwhile as already gone", func() {
			provider.DestroyErrors["feature-z-preview"] = fmt.Errorf("preview: %w", errdefs.ErrAlreadyDeleted)

			report, err := newSyncer().Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(outcomes(report)["feature-z-preview"]).To(Equal(executor.OutcomeAlreadyGone))
			Expect(report.Failed()).To(BeFalse())
		})
	})

	Describe("Scenario: environment with a deployment history", func() {
		It("deletes every deployment event oldest first", func() {
			older := gh.AddDeployment("Preview feature-w", "feature-w", "https://feature-w-preview.okteto.example.com")
			newer := gh.AddDeployment("Preview feature-w", "feature-w", "https://feature-w-preview.okteto.example.com")

			_, err := newSyncer().Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(gh.Deleted).To(Equal([]int64{featureX, older, newer}))
		})
	})

	Describe("Scenario: metrics", func() {
		It("records the run outcome", func() {
			recorder := metrics.NewRecorder()

			_, err := newSyncer(WithRecorder(recorder)).Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(testutil.ToFloat64(recorder.Runs.WithLabelValues(metrics.ResultSuccess))).To(Equal(1.0))
			Expect(testutil.ToFloat64(recorder.Actions.WithLabelValues("preview", "deleted"))).To(Equal(1.0))

			gh.ListError = errors.New("boom")
			_, err = newSyncer(WithRecorder(recorder)).Run(ctx)
			Expect(err).To(HaveOccurred())
			Expect(testutil.ToFloat64(recorder.Runs.WithLabelValues(metrics.ResultError))).To(Equal(1.0))
		})
	})
})
