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
	"os"

	"github.com/spf13/pflag"

	"github.com/mikelane/previewsync/internal/config"
)

// bindConfigFlags declares the flags that override configuration values.
// Defaults are left empty: only flags set on the command line are applied.
func bindConfigFlags(fs *pflag.FlagSet) {
	fs.Bool("dry-run", false, "report planned deletions without deleting anything")
	fs.String("token", "", "GitHub token (default $GITHUB_TOKEN, then the keyring)")
	fs.String("repository", "", "GitHub repository as owner/repo (default $GITHUB_REPOSITORY)")
	fs.String("api-url", "", "GitHub REST API URL (default $GITHUB_API_URL or https://api.github.com)")
	fs.String("deploy-pattern", "", "regular expression selecting managed GitHub deployments")
	fs.String("preview-pattern", "", "regular expression extracting the branch from a preview name (one capture group)")
	fs.StringSlice("ignore", nil, "deployment names or branches never to delete")
	fs.Bool("link-by-branch", false, "also link deployments and previews built from the same branch")
	fs.String("provider", "", "preview provider: okteto or kubernetes")
	fs.String("domain", "", "okteto domain (default $OKTETO_DOMAIN)")
	fs.String("okteto-binary", "", "path to the okteto executable")
	fs.String("label-selector", "", "label selector of preview namespaces for the kubernetes provider")
	fs.StringP("output", "o", "", "report format: text, json or markdown")
	fs.String("summary-file", "", "append a markdown report to this file (default $GITHUB_STEP_SUMMARY)")
	fs.String("pushgateway", "", "Prometheus Pushgateway URL to push run metrics to")
}

// applyFlags overrides cfg with every flag explicitly set on the command line
func applyFlags(fs *pflag.FlagSet, cfg *config.Config) {
	str := func(name string, dst *string) {
		if fs.Changed(name) {
			*dst, _ = fs.GetString(name)
		}
	}
	boolean := func(name string, dst *bool) {
		if fs.Changed(name) {
			*dst, _ = fs.GetBool(name)
		}
	}

	boolean("dry-run", &cfg.DryRun)
	str("token", &cfg.GitHub.Token)
	str("repository", &cfg.GitHub.Repository)
	str("api-url", &cfg.GitHub.APIURL)
	str("deploy-pattern", &cfg.DeployPattern)
	str("preview-pattern", &cfg.PreviewPattern)
	boolean("link-by-branch", &cfg.LinkByBranch)
	str("provider", &cfg.Preview.Provider)
	str("domain", &cfg.Preview.Domain)
	str("okteto-binary", &cfg.Preview.OktetoBinary)
	str("label-selector", &cfg.Preview.LabelSelector)
	str("output", &cfg.Report.Format)
	str("summary-file", &cfg.Report.SummaryFile)
	str("pushgateway", &cfg.Metrics.Pushgateway)

	if fs.Changed("ignore") {
		cfg.Ignore, _ = fs.GetStringSlice("ignore")
	}
}

// loadConfig resolves the configuration of a command: file, environment,
// legacy positional arguments, then flags. The result is validated.
func loadConfig(fs *pflag.FlagSet, opts *rootOptions, args []string) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath, os.Getenv)
	if err != nil {
		return nil, err
	}

	applyLegacyArgs(args, cfg)
	applyFlags(fs, cfg)

	if err := cfg.ResolveToken(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyLegacyArgs accepts the positional form
//
//	DRY_RUN TOKEN DEPLOY_REGEX PREVIEW_REGEX
//
// Empty arguments leave the configured value untouched.
func applyLegacyArgs(args []string, cfg *config.Config) {
	if len(args) != 4 {
		return
	}
	if args[0] != "" {
		cfg.DryRun = config.ParseBool(args[0])
	}
	if args[1] != "" {
		cfg.GitHub.Token = args[1]
	}
	if args[2] != "" {
		cfg.DeployPattern = args[2]
	}
	if args[3] != "" {
		cfg.PreviewPattern = args[3]
	}
}
