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
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mikelane/previewsync/internal/reconcile"
)

func sampleReport() *RunReport {
	plan := testPlan()
	return &RunReport{
		RunID:     "run-1",
		Inventory: Inventory{Deployments: 4, Managed: 3, Previews: 2, Unmanaged: []string{"production"}},
		Results: []ActionResult{
			{Action: plan.Actions[0], Outcome: OutcomeDeleted},
			{Action: plan.Actions[1], Outcome: OutcomeFailed, Error: "403 | Forbidden"},
			{Action: plan.Actions[2], Outcome: OutcomeAlreadyGone},
		},
		Skipped:  plan.Skipped,
		Warnings: []reconcile.Warning{{Platform: "github", Name: "Preview flaky", Message: "branch lookup failed: 502"}},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatText},
		{in: "text", want: FormatText},
		{in: "JSON", want: FormatJSON},
		{in: " markdown ", want: FormatMarkdown},
		{in: "yaml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRunReport_RenderText(t *testing.T) {
	var buf bytes.Buffer
	if err := sampleReport().Render(&buf, FormatText); err != nil {
		t.Fatalf("Render() unexpected error: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# Sync report (live): failure",
		"Deployments: 4 (3 managed), previews: 2",
		"PLATFORM",
		"Preview feature-x",
		"skipped-already-gone",
		"Ignored: github Preview keep-me",
		"Warning: github Preview flaky",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text report missing %q:\n%s", want, out)
		}
	}
}

func TestRunReport_RenderJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := sampleReport().Render(&buf, FormatJSON); err != nil {
		t.Fatalf("Render() unexpected error: %v", err)
	}

	var decoded struct {
		RunID   string `json:"run_id"`
		Status  string `json:"status"`
		Results []struct {
			Outcome string `json:"outcome"`
			Action  struct {
				Reason string `json:"reason"`
			} `json:"action"`
		} `json:"results"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("report is not valid JSON: %v\n%s", err, buf.String())
	}

	if decoded.RunID != "run-1" || decoded.Status != "failure" {
		t.Errorf("decoded = %+v", decoded)
	}
	if len(decoded.Results) != 3 || decoded.Results[0].Action.Reason != "stale-branch-deleted" {
		t.Errorf("results = %+v", decoded.Results)
	}
}

func TestRunReport_AppendSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.md")
	if err := os.WriteFile(path, []byte("existing\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	report := sampleReport()
	report.DryRun = true
	if err := report.AppendSummary(path); err != nil {
		t.Fatalf("AppendSummary() unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)

	if !strings.HasPrefix(out, "existing\n") {
		t.Errorf("summary file was overwritten")
	}
	for _, want := range []string{
		"### :x: Preview sync (dry run)",
		"| github | Preview feature-x | stale-branch-deleted | deleted |",
		`failed: 403 \| Forbidden`,
		"**Protected by the ignore list**",
		"**Warnings**",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown summary missing %q:\n%s", want, out)
		}
	}
}

func TestRunReport_Empty(t *testing.T) {
	report := &RunReport{}
	var buf bytes.Buffer
	if err := report.Render(&buf, FormatMarkdown); err != nil {
		t.Fatalf("Render() unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "Nothing to delete.") {
		t.Errorf("empty report = %q", buf.String())
	}
	if report.Failed() {
		t.Error("empty report should not fail")
	}
}
