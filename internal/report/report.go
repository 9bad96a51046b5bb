// Package report renders cycle-time statistics and chart series as text or
// JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/danielolaszy/kanban/internal/cycletime"
	"github.com/danielolaszy/kanban/internal/metrics"
)

// Format selects how reports are written.
type Format string

const (
	Text Format = "text"
	JSON Format = "json"
)

// ParseFormat validates an output format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case Text, JSON:
		return f, nil
	case "":
		return Text, nil
	default:
		return "", fmt.Errorf("unknown output format %q, expected text or json", s)
	}
}

const barWidth = 40

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6"))

	barStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B"))
)

// Reporter writes the reports of one issue set.
type Reporter struct {
	w      io.Writer
	format Format
	set    metrics.Set
}

// New returns a reporter for set writing to w.
func New(w io.Writer, format Format, set metrics.Set) *Reporter {
	return &Reporter{w: w, format: format, set: set}
}

// Title names the projects and range the set covers.
func (r *Reporter) Title() string {
	return fmt.Sprintf("%s (%s)", strings.Join(r.set.Projects, ", "), r.set.Range)
}

type basicReport struct {
	Title      string             `json:"title"`
	Statistics metrics.Statistics `json:"statistics"`
	MeanDays   float64            `json:"mean_days"`
	First      *cycletime.Issue   `json:"first_issue,omitempty"`
	Last       *cycletime.Issue   `json:"last_issue,omitempty"`
}

// Basic writes the summary of a set: its timespan, issue counts, the issues
// at the extremes and the flow rates.
func (r *Reporter) Basic(stats metrics.Statistics) error {
	report := basicReport{Title: r.Title(), Statistics: stats, MeanDays: stats.MeanDays()}
	if n := r.set.Len(); n > 0 {
		report.First = &r.set.Issues[0]
		report.Last = &r.set.Issues[n-1]
	}
	if r.format == JSON {
		return r.writeJSON(report)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Cycle time summary for "+report.Title) + "\n")
	fmt.Fprintf(&b, "timespan: %d days\n", int(stats.TimespanDays))
	fmt.Fprintf(&b, "number of finished issues: %d\n", stats.Count)
	fmt.Fprintf(&b, "number of started issues: %d\n", stats.Started)
	if report.First != nil {
		fmt.Fprintf(&b, "first issue : %s\n", report.First)
		fmt.Fprintf(&b, "last issue  : %s\n", report.Last)
	}
	fmt.Fprintf(&b, "min issue   : %s\n", r.describe(stats.MinIssue))
	fmt.Fprintf(&b, "median issue: %s\n", r.describe(stats.MedianIssue))
	fmt.Fprintf(&b, "max issue   : %s\n", r.describe(stats.MaxIssue))
	fmt.Fprintf(&b, "mean cycle time: %d days\n", int(stats.MeanDays()))
	fmt.Fprintf(&b, "mean WiP: %.2f items\n", stats.MeanWIP)
	fmt.Fprintf(&b, "pull rate: %.2f issues per week\n", stats.PullRate)
	return r.writeString(b.String())
}

// Metrics writes each percentile cut point followed by the issues that fall
// under it and under no lower cut point.
func (r *Reporter) Metrics(buckets []metrics.Bucket) error {
	if r.format == JSON {
		return r.writeJSON(buckets)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Percentile metrics for "+r.Title()) + "\n")
	for _, bucket := range buckets {
		fmt.Fprintf(&b, "%g%% percentile: %.1f days\n", bucket.Percentile, bucket.Days)
		for _, issue := range bucket.Issues {
			fmt.Fprintf(&b, "  %s\n", issue)
		}
	}
	return r.writeString(b.String())
}

// Percentile writes the cycle time at every percentile cut point.
func (r *Reporter) Percentile(stats metrics.Statistics) error {
	if r.format == JSON {
		return r.writeJSON(stats.Percentiles)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Percentile chart for "+r.Title()) + "\n")
	for _, q := range stats.Percentiles {
		fmt.Fprintf(&b, "%s %6.1f days\n", labelStyle.Render(fmt.Sprintf("%5g%%", q.Percentile)), q.Days())
	}
	return r.writeString(b.String())
}

// Histogram writes one bar per bin, scaled to the fullest bin.
func (r *Reporter) Histogram(bins []metrics.Bin) error {
	if r.format == JSON {
		return r.writeJSON(bins)
	}

	fullest := 0
	for _, bin := range bins {
		if bin.Count > fullest {
			fullest = bin.Count
		}
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Cycle Time Histogram for "+r.Title()) + "\n")
	for _, bin := range bins {
		width := 0
		if fullest > 0 {
			width = bin.Count * barWidth / fullest
		}
		label := fmt.Sprintf("%6.1f - %6.1f days", bin.Lower, bin.Upper)
		fmt.Fprintf(&b, "%s | %s %d\n", labelStyle.Render(label), barStyle.Render(strings.Repeat("#", width)), bin.Count)
	}
	return r.writeString(b.String())
}

// Control writes one line per issue: its resolution date and cycle time.
func (r *Reporter) Control(points []metrics.ControlPoint) error {
	if r.format == JSON {
		return r.writeJSON(points)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Control Chart for "+r.Title()) + "\n")
	for _, p := range points {
		fmt.Fprintf(&b, "%s %5d days  %s\n", labelStyle.Render(p.Resolved.Format(time.DateOnly)), p.Days, p.Issue)
	}
	return r.writeString(b.String())
}

func (r *Reporter) describe(id string) string {
	for i := range r.set.Issues {
		if r.set.Issues[i].ID == id {
			return r.set.Issues[i].String()
		}
	}
	return id
}

func (r *Reporter) writeJSON(v any) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

func (r *Reporter) writeString(s string) error {
	if _, err := io.WriteString(r.w, s); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
