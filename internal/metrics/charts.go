package metrics

import (
	"fmt"
	"time"

	"github.com/danielolaszy/kanban/internal/cycletime"
)

// Bin is one bucket of a cycle-time histogram, in days.
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Histogram buckets the cycle times of the set, in whole days, into equal
// width bins spanning zero to the longest cycle time. The last bin includes
// its upper edge.
func Histogram(set Set, bins int) ([]Bin, error) {
	if set.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	if bins <= 0 {
		return nil, fmt.Errorf("histogram needs at least one bin, got %d", bins)
	}

	maxDays := 0
	for _, issue := range set.Issues {
		if d := issue.Days(); d > maxDays {
			maxDays = d
		}
	}
	width := float64(maxDays) / float64(bins)
	if width == 0 {
		width = 1
	}

	result := make([]Bin, bins)
	for i := range result {
		result[i].Lower = float64(i) * width
		result[i].Upper = float64(i+1) * width
	}
	for _, issue := range set.Issues {
		idx := int(float64(issue.Days()) / width)
		if idx >= bins {
			idx = bins - 1
		}
		result[idx].Count++
	}
	return result, nil
}

// ControlPoint is one issue plotted on a control chart.
type ControlPoint struct {
	Issue    string    `json:"issue"`
	Resolved time.Time `json:"resolved"`
	Days     int       `json:"days"`
}

// ControlChart returns one point per issue, in set order.
func ControlChart(set Set) []ControlPoint {
	points := make([]ControlPoint, 0, set.Len())
	for _, issue := range set.Issues {
		points = append(points, ControlPoint{
			Issue:    issue.ID,
			Resolved: issue.Resolved,
			Days:     issue.Days(),
		})
	}
	return points
}

// Bucket lists the issues that fall under a percentile cut point and under
// no lower one.
type Bucket struct {
	Percentile float64           `json:"percentile"`
	Days       float64           `json:"days"`
	Issues     []cycletime.Issue `json:"issues"`
}

// PercentileBuckets partitions the issues of the set by the percentile of
// their cycle time, measured in whole days.
func PercentileBuckets(set Set, percentiles ...float64) ([]Bucket, error) {
	if set.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	if len(percentiles) == 0 {
		percentiles = DefaultPercentiles
	}

	days := make([]float64, 0, set.Len())
	for _, issue := range set.Issues {
		days = append(days, float64(issue.Days()))
	}

	remaining := make([]cycletime.Issue, len(set.Issues))
	copy(remaining, set.Issues)

	buckets := make([]Bucket, 0, len(percentiles))
	for _, p := range percentiles {
		value, err := Percentile(days, p)
		if err != nil {
			return nil, err
		}
		bucket := Bucket{Percentile: p, Days: value}
		rest := remaining[:0]
		for _, issue := range remaining {
			if float64(issue.Days()) <= value {
				bucket.Issues = append(bucket.Issues, issue)
			} else {
				rest = append(rest, issue)
			}
		}
		remaining = rest
		buckets = append(buckets, bucket)
	}
	return buckets, nil
}
