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
	"github.com/mikelane/previewsync/internal/config"
	"github.com/mikelane/previewsync/internal/errdefs"
	"github.com/mikelane/previewsync/internal/github"
	"github.com/mikelane/previewsync/internal/metrics"
	"github.com/mikelane/previewsync/internal/namespace"
	"github.com/mikelane/previewsync/internal/okteto"
	"github.com/mikelane/previewsync/internal/preview"
	"github.com/mikelane/previewsync/internal/syncer"
)

// newSyncer wires the GitHub client and the configured preview provider
func newSyncer(cfg *config.Config, recorder *metrics.Recorder) (*syncer.Syncer, error) {
	matcher, err := cfg.Matcher()
	if err != nil {
		return nil, err
	}
	owner, repo, err := cfg.OwnerRepo()
	if err != nil {
		return nil, err
	}

	gh, err := github.NewClient(cfg.GitHub.Token, cfg.GitHub.APIURL)
	if err != nil {
		return nil, &errdefs.ConfigurationError{Field: "github.api_url", Err: err}
	}

	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}

	return syncer.New(gh, provider, matcher, syncer.Options{
		Owner:        owner,
		Repo:         repo,
		DryRun:       cfg.DryRun,
		Ignore:       cfg.Ignore,
		LinkByBranch: cfg.LinkByBranch,
	}, syncer.WithRecorder(recorder)), nil
}

func newProvider(cfg *config.Config) (preview.Provider, error) {
	switch cfg.Preview.Provider {
	case config.ProviderKubernetes:
		c, err := namespace.NewClient()
		if err != nil {
			return nil, &errdefs.TransportError{Platform: config.ProviderKubernetes, Op: "connect", Err: err}
		}
		return namespace.NewManager(c, cfg.Preview.LabelSelector)
	case config.ProviderOkteto:
		return okteto.NewCLI(cfg.Preview.OktetoBinary, cfg.Preview.Domain), nil
	default:
		return nil, errdefs.Configf("preview.provider", "unknown provider %q", cfg.Preview.Provider)
	}
}
