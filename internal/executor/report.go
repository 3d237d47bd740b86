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

package executor

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mikelane/previewsync/internal/reconcile"
)

// ActionResult is the outcome of one planned action
type ActionResult struct {
	Action  reconcile.DeleteAction `json:"action"`
	Outcome Outcome                `json:"outcome"`
	Error   string                 `json:"error,omitempty"`
}

// Inventory summarises what a run looked at
type Inventory struct {
	Deployments int      `json:"deployments"`
	Managed     int      `json:"managed"`
	Previews    int      `json:"previews"`
	Unmanaged   []string `json:"unmanaged,omitempty"`
}

// RunReport is the result of one reconciliation run
type RunReport struct {
	RunID      string              `json:"run_id,omitempty"`
	DryRun     bool                `json:"dry_run"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
	Inventory  Inventory           `json:"inventory"`
	Results    []ActionResult      `json:"results"`
	Skipped    []reconcile.Skipped `json:"skipped,omitempty"`
	Warnings   []reconcile.Warning `json:"warnings,omitempty"`
}

// Failed reports whether at least one delete failed for a reason other than
// the resource being already gone
func (r *RunReport) Failed() bool {
	return r.Count(OutcomeFailed) > 0
}

// Count returns the number of actions with the given outcome
func (r *RunReport) Count(outcome Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == outcome {
			n++
		}
	}
	return n
}

// Status is the overall run status: "success" or "failure"
func (r *RunReport) Status() string {
	if r.Failed() {
		return "failure"
	}
	return "success"
}

// Format selects a report renderer
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates a report format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatMarkdown:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want text, json or markdown)", s)
	}
}

// Render writes the report to w in the given format
func (r *RunReport) Render(w io.Writer, format Format) error {
	switch format {
	case FormatJSON:
		return r.renderJSON(w)
	case FormatMarkdown:
		return r.renderMarkdown(w)
	case FormatText, "":
		return r.renderText(w)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// AppendSummary appends the markdown report to path, typically the file named
// by GITHUB_STEP_SUMMARY
func (r *RunReport) AppendSummary(path string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open summary file: %w", err)
	}

	if err := r.renderMarkdown(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (r *RunReport) renderJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		*RunReport
		Status string `json:"status"`
	}{r, r.Status()})
}

func (r *RunReport) renderText(w io.Writer) error {
	mode := "live"
	if r.DryRun {
		mode = "dry-run"
	}
	if _, err := fmt.Fprintf(w, "# Sync report (%s): %s\n", mode, r.Status()); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Deployments: %d (%d managed), previews: %d\n\n",
		r.Inventory.Deployments, r.Inventory.Managed, r.Inventory.Previews); err != nil {
		return err
	}

	if len(r.Results) == 0 {
		if _, err := fmt.Fprintln(w, "Nothing to delete"); err != nil {
			return err
		}
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "PLATFORM\tNAME\tREASON\tOUTCOME\tERROR")
		for _, res := range r.Results {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				res.Action.Platform, res.Action.ResourceName, res.Action.Reason, res.Outcome, res.Error)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	for _, s := range r.Skipped {
		if _, err := fmt.Fprintf(w, "Ignored: %s %s (%s, protected by %q)\n", s.Platform, s.ResourceName, s.Detected, s.IgnoredBy); err != nil {
			return err
		}
	}
	for _, warning := range r.Warnings {
		if _, err := fmt.Fprintf(w, "Warning: %s\n", warning); err != nil {
			return err
		}
	}
	return nil
}

func (r *RunReport) renderMarkdown(w io.Writer) error {
	var b strings.Builder

	title := "Preview sync"
	if r.DryRun {
		title += " (dry run)"
	}
	icon := ":white_check_mark:"
	if r.Failed() {
		icon = ":x:"
	}
	fmt.Fprintf(&b, "### %s %s\n\n", icon, title)
	fmt.Fprintf(&b, "Scanned %d deployments (%d managed) and %d preview environments.\n\n",
		r.Inventory.Deployments, r.Inventory.Managed, r.Inventory.Previews)

	if len(r.Results) == 0 {
		b.WriteString("Nothing to delete.\n")
	} else {
		b.WriteString("| Platform | Name | Reason | Outcome |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, res := range r.Results {
			outcome := string(res.Outcome)
			if res.Error != "" {
				outcome += ": " + escapeMarkdown(res.Error)
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				res.Action.Platform, escapeMarkdown(res.Action.ResourceName), res.Action.Reason, outcome)
		}
	}

	if len(r.Skipped) > 0 {
		b.WriteString("\n**Protected by the ignore list**\n\n")
		for _, s := range r.Skipped {
			fmt.Fprintf(&b, "- %s `%s` (%s)\n", s.Platform, s.ResourceName, s.Detected)
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n**Warnings**\n\n")
		for _, warning := range r.Warnings {
			fmt.Fprintf(&b, "- %s\n", escapeMarkdown(warning.String()))
		}
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func escapeMarkdown(s string) string {
	return strings.NewReplacer("|", "\\|", "\n", " ").Replace(s)
}
