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

package okteto

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/mikelane/previewsync/internal/errdefs"
	"github.com/mikelane/previewsync/internal/preview"
)

// DefaultBinary is the okteto executable looked up on PATH
const DefaultBinary = "okteto"

// Runner executes a command and returns its stdout and stderr
type Runner func(ctx context.Context, env []string, name string, args ...string) (stdout, stderr []byte, err error)

// CLI drives preview environments through the okteto command line.
// Authentication relies on an existing okteto context or on OKTETO_TOKEN.
type CLI struct {
	binary string
	domain string
	run    Runner
}

// NewCLI creates a provider for the okteto binary. When domain is set,
// every invocation targets it through OKTETO_URL.
func NewCLI(binary, domain string) *CLI {
	if binary == "" {
		binary = DefaultBinary
	}
	return &CLI{
		binary: binary,
		domain: domain,
		run:    execRunner,
	}
}

// WithRunner replaces the command runner. Intended for tests.
func (c *CLI) WithRunner(r Runner) *CLI {
	c.run = r
	return c
}

// Platform implements preview.Provider
func (c *CLI) Platform() string {
	return "okteto"
}

// List runs "okteto preview list" and parses its table output
func (c *CLI) List(ctx context.Context) ([]preview.Environment, error) {
	stdout, stderr, err := c.run(ctx, c.env(), c.binary, "preview", "list")
	if err != nil {
		return nil, &errdefs.TransportError{
			Platform: c.Platform(),
			Op:       "list previews",
			Err:      commandError(err, stderr),
		}
	}

	return ParseList(string(stdout)), nil
}

// Destroy runs "okteto preview destroy <name>"
func (c *CLI) Destroy(ctx context.Context, name string) error {
	logger := log.FromContext(ctx)

	stdout, stderr, err := c.run(ctx, c.env(), c.binary, "preview", "destroy", name)
	if err != nil {
		if isNotFound(name, stdout, stderr) {
			logger.V(1).Info("Preview environment not found (already deleted)", "name", name)
			return fmt.Errorf("preview %q: %w", name, errdefs.ErrAlreadyDeleted)
		}
		return &errdefs.TransportError{
			Platform: c.Platform(),
			Op:       "destroy preview " + name,
			Err:      commandError(err, stderr),
		}
	}

	return nil
}

// ParseList parses the table printed by "okteto preview list".
// The first line is the header; each following line holds Name, Scope and
// Sleeping separated by runs of spaces.
func ParseList(out string) []preview.Environment {
	envs := []preview.Environment{}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		return envs
	}

	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		env := preview.Environment{
			Name: fields[0],
			ID:   fields[0],
		}
		if len(fields) > 1 {
			env.Scope = fields[1]
		}
		if len(fields) > 2 {
			env.Sleeping = strings.EqualFold(fields[2], "true")
		}
		envs = append(envs, env)
	}

	return envs
}

// env returns the process environment for okteto invocations
func (c *CLI) env() []string {
	env := os.Environ()
	if c.domain == "" {
		return env
	}

	target := c.domain
	if !strings.Contains(target, "://") {
		target = "https://" + target
	}
	return append(env, "OKTETO_URL="+target)
}

// isNotFound reports whether the output says the named preview is missing.
// The name must appear right before the verdict, so failures about a missing
// context, manifest or kubeconfig are not mistaken for it.
func isNotFound(name string, stdout, stderr []byte) bool {
	combined := strings.ToLower(string(stdout) + string(stderr))
	name = strings.ToLower(name)

	for _, quoted := range []string{`"` + name + `"`, "'" + name + "'", name} {
		for _, verdict := range []string{" not found", " doesn't exist", " does not exist"} {
			if strings.Contains(combined, quoted+verdict) {
				return true
			}
		}
	}
	return false
}

func commandError(err error, stderr []byte) error {
	msg := strings.TrimSpace(string(stderr))
	if msg == "" {
		return err
	}
	return fmt.Errorf("%w: %s", err, msg)
}

func execRunner(ctx context.Context, env []string, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = env
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}
