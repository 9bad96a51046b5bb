package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/danielolaszy/kanban/internal/cycletime"
	"github.com/danielolaszy/kanban/internal/metrics"
	"github.com/danielolaszy/kanban/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const day = 24 * time.Hour

var rangeStart = time.Date(2016, 6, 1, 0, 0, 0, 0, time.UTC)

func testSet(t *testing.T, days ...int) metrics.Set {
	t.Helper()

	issues := make([]cycletime.Issue, 0, len(days))
	for i, d := range days {
		started := rangeStart.Add(day)
		issue, err := cycletime.New(models.RawIssue{
			ID:      fmt.Sprintf("BACKEND-%d", i+1),
			Created: rangeStart,
			Events: []models.ChangeEvent{
				{Timestamp: started, Deltas: []models.FieldDelta{models.StateDelta("Open", "In Progress")}},
				{Timestamp: started.Add(time.Duration(d) * day), Deltas: []models.FieldDelta{models.StateDelta("In Progress", "Done")}},
			},
		}, cycletime.NewConfig())
		require.NoError(t, err)
		issues = append(issues, issue)
	}

	rng, err := models.NewRange(rangeStart, rangeStart.Add(70*day))
	require.NoError(t, err)
	return metrics.Aggregate(rng, metrics.ProjectIssues{Project: "BACKEND", Issues: issues})
}

func TestParseFormat(t *testing.T) {
	testCases := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{input: "text", want: Text},
		{input: "JSON", want: JSON},
		{input: "", want: Text},
		{input: "yaml", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseFormat(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBasicText(t *testing.T) {
	set := testSet(t, 2, 5, 9)
	stats, err := metrics.Compute(set)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, New(&buf, Text, set).Basic(stats))
	out := buf.String()

	assert.Contains(t, out, "BACKEND (2016-06-01 .. 2016-08-10)")
	assert.Contains(t, out, "timespan: 70 days\n")
	assert.Contains(t, out, "number of finished issues: 3\n")
	assert.Contains(t, out, "number of started issues: 3\n")
	assert.Contains(t, out, "first issue : [BACKEND-1]")
	assert.Contains(t, out, "last issue  : [BACKEND-3]")
	assert.Contains(t, out, "min issue   : [BACKEND-1]")
	assert.Contains(t, out, "median issue: [BACKEND-2]")
	assert.Contains(t, out, "max issue   : [BACKEND-3]")
	assert.Contains(t, out, "mean cycle time: 5 days\n")
	assert.Contains(t, out, "mean WiP: 0.23 items\n")
	assert.Contains(t, out, "pull rate: 0.30 issues per week\n")
}

func TestBasicJSON(t *testing.T) {
	set := testSet(t, 2, 5, 9)
	stats, err := metrics.Compute(set)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, New(&buf, JSON, set).Basic(stats))

	var decoded struct {
		Title      string `json:"title"`
		Statistics struct {
			Count int `json:"count"`
		} `json:"statistics"`
		First struct {
			ID string `json:"id"`
		} `json:"first_issue"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "BACKEND (2016-06-01 .. 2016-08-10)", decoded.Title)
	assert.Equal(t, 3, decoded.Statistics.Count)
	assert.Equal(t, "BACKEND-1", decoded.First.ID)
}

func TestMetricsText(t *testing.T) {
	set := testSet(t, 1, 2, 3, 4, 30)
	buckets, err := metrics.PercentileBuckets(set, 50, 99)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, New(&buf, Text, set).Metrics(buckets))
	out := buf.String()

	fifty := strings.Index(out, "50% percentile: 3.0 days")
	ninetyNine := strings.Index(out, "99% percentile:")
	require.True(t, fifty >= 0, out)
	require.True(t, ninetyNine > fifty, out)

	assert.Contains(t, out[fifty:ninetyNine], "[BACKEND-3]")
	assert.Contains(t, out[ninetyNine:], "[BACKEND-4]")
	assert.NotContains(t, out[ninetyNine:], "[BACKEND-1]")
	// 30 days lies above the 99th percentile of this set
	assert.NotContains(t, out, "[BACKEND-5]")
}

func TestPercentileAndHistogramText(t *testing.T) {
	set := testSet(t, 0, 5, 10)
	stats, err := metrics.Compute(set, 50)
	require.NoError(t, err)
	bins, err := metrics.Histogram(set, 2)
	require.NoError(t, err)

	var buf bytes.Buffer
	r := New(&buf, Text, set)
	require.NoError(t, r.Percentile(stats))
	require.NoError(t, r.Histogram(bins))
	out := buf.String()

	assert.Contains(t, out, "Percentile chart for BACKEND")
	assert.Contains(t, out, "5.0 days\n")
	assert.Contains(t, out, "Cycle Time Histogram for BACKEND")
	assert.Contains(t, out, strings.Repeat("#", barWidth))
	assert.Contains(t, out, " 2\n")
	assert.Contains(t, out, " 1\n")
}

func TestControlJSON(t *testing.T) {
	set := testSet(t, 3, 4)

	var buf bytes.Buffer
	require.NoError(t, New(&buf, JSON, set).Control(metrics.ControlChart(set)))

	var points []metrics.ControlPoint
	require.NoError(t, json.Unmarshal(buf.Bytes(), &points))
	require.Len(t, points, 2)
	assert.Equal(t, "BACKEND-2", points[1].Issue)
	assert.Equal(t, 4, points[1].Days)
}

func TestControlText(t *testing.T) {
	set := testSet(t, 3)

	var buf bytes.Buffer
	require.NoError(t, New(&buf, Text, set).Control(metrics.ControlChart(set)))
	assert.Contains(t, buf.String(), "3 days  BACKEND-1\n")
	assert.Contains(t, buf.String(), "2016-06-05")
}
