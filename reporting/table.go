// Package reporting renders job results once execution is over.
package reporting

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/op-jobrunner/exitcodes"
	"github.com/ethereum-optimism/infra/op-jobrunner/job"
	"github.com/ethereum-optimism/infra/op-jobrunner/outcome"
)

// SummaryFilename is the plain text copy of the results table.
const SummaryFilename = "results.txt"

// TableRenderer prints a per-suite results table. A copy without colors is
// kept in the results directory.
type TableRenderer struct {
	out io.Writer
}

var _ job.Renderer = (*TableRenderer)(nil)

// NewTableRenderer returns a renderer printing to out, or stdout when nil.
func NewTableRenderer(out io.Writer) *TableRenderer {
	if out == nil {
		out = os.Stdout
	}
	return &TableRenderer{out: out}
}

func (r *TableRenderer) Render(_ context.Context, res *job.Result, j *job.Job) error {
	j.Log().Info("Printing results...")

	var buf bytes.Buffer
	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	t.SetTitle(fmt.Sprintf("Job %s (%s)", shortID(res.JobID), formatDuration(j.Elapsed())))

	t.AppendHeader(table.Row{"Suite", "Tests", "Outcome", "Result"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Suite", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Tests", Align: text.AlignRight},
		{Name: "Outcome", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, s := range res.Suites {
		t.AppendRow(table.Row{s.Name, s.Size, tagList(s.Tags), getResultString(s.Tags)})
	}
	t.AppendSeparator()

	code := j.ExitCode()
	switch {
	case code == exitcodes.OK:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	case code == exitcodes.Interrupted:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	t.AppendFooter(table.Row{
		"TOTAL",
		res.TestsTotal,
		tagList(res.Summary),
		fmt.Sprintf("%s (%s)", j.Status(), code),
	})
	t.Render()

	if _, err := r.out.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to print results: %w", err)
	}
	if dir := j.ResultsDir(); dir != "" {
		plain := stripansi.Strip(buf.String())
		if err := os.WriteFile(filepath.Join(dir, SummaryFilename), []byte(plain), 0644); err != nil {
			return fmt.Errorf("failed to write results summary: %w", err)
		}
	}
	return nil
}

// getResultString returns a marker summarizing a suite's tags
func getResultString(tags outcome.TagSet) string {
	switch {
	case tags.Has(outcome.TagInterrupted):
		return "! interrupted"
	case tags.HasAny(outcome.TagFail, outcome.TagError):
		return "✗ fail"
	case tags.Has(outcome.TagPass):
		return "✓ pass"
	default:
		return "- skip"
	}
}

func tagList(tags outcome.TagSet) string {
	sorted := tags.Sorted()
	parts := make([]string, len(sorted))
	for i, t := range sorted {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// Helper function to format duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
