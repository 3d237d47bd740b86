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

// Package config loads previewsync's run configuration.
//
// Values are resolved in order of increasing precedence: built-in defaults,
// an optional YAML file, environment variables, then command-line flags
// (applied by the caller). The GitHub token additionally falls back to the
// operating system keyring.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	"github.com/mikelane/previewsync/internal/errdefs"
	"github.com/mikelane/previewsync/internal/executor"
	"github.com/mikelane/previewsync/internal/github"
	"github.com/mikelane/previewsync/internal/pattern"
)

// KeyringService is the keyring service under which tokens are stored, with
// the owner/repo repository as user
const KeyringService = "previewsync"

// Preview providers
const (
	ProviderOkteto     = "okteto"
	ProviderKubernetes = "kubernetes"
)

// Config is the complete run configuration
type Config struct {
	DryRun         bool     `yaml:"dry_run"`
	DeployPattern  string   `yaml:"deploy_pattern"`
	PreviewPattern string   `yaml:"preview_pattern"`
	Ignore         []string `yaml:"ignore"`
	LinkByBranch   bool     `yaml:"link_by_branch"`

	GitHub  GitHubConfig  `yaml:"github"`
	Preview PreviewConfig `yaml:"preview"`
	Report  ReportConfig  `yaml:"report"`
	Serve   ServeConfig   `yaml:"serve"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// GitHubConfig configures the source-control side
type GitHubConfig struct {
	Token      string `yaml:"token"`
	Repository string `yaml:"repository"`
	APIURL     string `yaml:"api_url"`
}

// PreviewConfig configures the preview hosting side
type PreviewConfig struct {
	Provider      string `yaml:"provider"`
	Domain        string `yaml:"domain"`
	OktetoBinary  string `yaml:"okteto_binary"`
	LabelSelector string `yaml:"label_selector"`
}

// ReportConfig configures the run report
type ReportConfig struct {
	Format      string `yaml:"format"`
	SummaryFile string `yaml:"summary_file"`
}

// ServeConfig configures the long-running serve mode
type ServeConfig struct {
	Addr          string        `yaml:"addr"`
	Interval      time.Duration `yaml:"interval"`
	WebhookSecret string        `yaml:"webhook_secret"`
}

// MetricsConfig configures metric export for one-shot runs
type MetricsConfig struct {
	Pushgateway string `yaml:"pushgateway"`
	Job         string `yaml:"job"`
}

// Default returns the configuration used when nothing else is set
func Default() *Config {
	return &Config{
		GitHub: GitHubConfig{
			APIURL: github.DefaultAPIURL,
		},
		Preview: PreviewConfig{
			Provider:     ProviderOkteto,
			OktetoBinary: "okteto",
		},
		Report: ReportConfig{
			Format: string(executor.FormatText),
		},
		Serve: ServeConfig{
			Addr:     ":8080",
			Interval: 15 * time.Minute,
		},
		Metrics: MetricsConfig{
			Job: "previewsync",
		},
	}
}

// Load builds a configuration from the defaults, the YAML file at path (if
// path is not empty) and the environment read through getenv.
func Load(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &errdefs.ConfigurationError{Field: "config", Err: err}
		}

		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, &errdefs.ConfigurationError{Field: "config", Err: fmt.Errorf("failed to parse %s: %w", path, err)}
		}
	}

	if getenv == nil {
		getenv = os.Getenv
	}
	cfg.applyEnv(getenv)

	return cfg, nil
}

// applyEnv overrides fields from the environment. The GITHUB_* variables are
// the ones set by GitHub Actions runners.
func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	set(&c.GitHub.Repository, "GITHUB_REPOSITORY")
	set(&c.GitHub.APIURL, "GITHUB_API_URL")
	set(&c.GitHub.Token, "GITHUB_TOKEN")
	set(&c.Report.SummaryFile, "GITHUB_STEP_SUMMARY")

	set(&c.DeployPattern, "PREVIEWSYNC_DEPLOY_PATTERN")
	set(&c.PreviewPattern, "PREVIEWSYNC_PREVIEW_PATTERN")
	set(&c.Preview.Provider, "PREVIEWSYNC_PROVIDER")
	set(&c.Preview.Domain, "OKTETO_DOMAIN")
	set(&c.Report.Format, "PREVIEWSYNC_REPORT_FORMAT")
	set(&c.Serve.WebhookSecret, "PREVIEWSYNC_WEBHOOK_SECRET")
	set(&c.Metrics.Pushgateway, "PREVIEWSYNC_PUSHGATEWAY")

	if v := getenv("PREVIEWSYNC_DRY_RUN"); v != "" {
		c.DryRun = ParseBool(v)
	}
	if v := getenv("PREVIEWSYNC_IGNORE"); v != "" {
		c.Ignore = SplitList(v)
	}
}

// ResolveToken falls back to the keyring when no token was configured
func (c *Config) ResolveToken() error {
	if c.GitHub.Token != "" {
		return nil
	}
	if _, _, err := c.OwnerRepo(); err != nil {
		return err
	}

	token, err := keyring.Get(KeyringService, c.GitHub.Repository)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errdefs.Configf("github.token", "no token configured and none stored in the keyring for %s", c.GitHub.Repository)
		}
		return errdefs.Configf("github.token", "failed to read keyring: %v", err)
	}

	c.GitHub.Token = token
	return nil
}

// StoreToken saves token in the keyring for the configured repository
func (c *Config) StoreToken(token string) error {
	if c.GitHub.Repository == "" {
		return errdefs.Configf("github.repository", "repository is required to store a token")
	}
	if err := keyring.Set(KeyringService, c.GitHub.Repository, token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

// Validate checks every field a run needs. It returns the first problem as a
// *errdefs.ConfigurationError naming the field.
func (c *Config) Validate() error {
	if _, _, err := c.OwnerRepo(); err != nil {
		return err
	}
	if c.GitHub.Token == "" {
		return errdefs.Configf("github.token", "a GitHub token is required")
	}
	if u, err := url.Parse(c.GitHub.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		return errdefs.Configf("github.api_url", "invalid URL %q", c.GitHub.APIURL)
	}
	if _, err := c.Matcher(); err != nil {
		return err
	}

	switch c.Preview.Provider {
	case ProviderOkteto, ProviderKubernetes:
	default:
		return errdefs.Configf("preview.provider", "unknown provider %q (want %s or %s)", c.Preview.Provider, ProviderOkteto, ProviderKubernetes)
	}

	if _, err := executor.ParseFormat(c.Report.Format); err != nil {
		return &errdefs.ConfigurationError{Field: "report.format", Err: err}
	}
	if c.Serve.Interval <= 0 {
		return errdefs.Configf("serve.interval", "interval must be positive, got %s", c.Serve.Interval)
	}
	return nil
}

// OwnerRepo splits the owner/repo repository name
func (c *Config) OwnerRepo() (string, string, error) {
	if c.GitHub.Repository == "" {
		return "", "", errdefs.Configf("github.repository", "repository is required (set GITHUB_REPOSITORY)")
	}
	owner, repo, ok := strings.Cut(c.GitHub.Repository, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", errdefs.Configf("github.repository", "expected owner/repo, got %q", c.GitHub.Repository)
	}
	return owner, repo, nil
}

// Matcher compiles the configured patterns
func (c *Config) Matcher() (*pattern.Matcher, error) {
	return pattern.New(c.DeployPattern, c.PreviewPattern)
}

// ParseBool reads a permissive boolean: 1, true, on and yes are true
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "on", "yes":
		return true
	default:
		return false
	}
}

// SplitList splits a comma or newline separated list, dropping empty entries
func SplitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '\n'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
