package metrics

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	// ErrEmptyDataset is returned when statistics are requested for no issues.
	ErrEmptyDataset = errors.New("empty dataset")

	// ErrInvalidPercentile is returned for cut points outside [0, 100].
	ErrInvalidPercentile = errors.New("invalid percentile")
)

// DefaultPercentiles are the cut points reported when none are configured.
var DefaultPercentiles = []float64{10, 25, 50, 75, 80, 90, 95, 99}

const day = 24 * time.Hour

// Quantile is the cycle time at one percentile cut point.
type Quantile struct {
	Percentile float64       `json:"percentile"`
	CycleTime  time.Duration `json:"cycle_time"`
}

// Days returns the quantile in fractional days.
func (q Quantile) Days() float64 {
	return float64(q.CycleTime) / float64(day)
}

// Statistics summarises the cycle times of a set.
type Statistics struct {
	Count        int           `json:"count"`
	Started      int           `json:"started"`
	TimespanDays float64       `json:"timespan_days"`
	Min          time.Duration `json:"min"`
	Median       time.Duration `json:"median"`
	Max          time.Duration `json:"max"`
	Mean         time.Duration `json:"mean"`
	MinIssue     string        `json:"min_issue"`
	MedianIssue  string        `json:"median_issue"`
	MaxIssue     string        `json:"max_issue"`
	Percentiles  []Quantile    `json:"percentiles"`
	PullRate     float64       `json:"pull_rate"`
	MeanWIP      float64       `json:"mean_wip"`

	meanDays float64
}

// MeanDays returns the mean cycle time in fractional days.
func (s Statistics) MeanDays() float64 {
	return s.meanDays
}

// Percentile looks up the cycle time computed for cut point p.
func (s Statistics) Percentile(p float64) (time.Duration, bool) {
	for _, q := range s.Percentiles {
		if q.Percentile == p {
			return q.CycleTime, true
		}
	}
	return 0, false
}

// Compute derives the statistics of a set at the given percentile cut points.
// With no cut points DefaultPercentiles are used.
func Compute(set Set, percentiles ...float64) (Statistics, error) {
	if set.Len() == 0 {
		return Statistics{}, ErrEmptyDataset
	}
	if len(percentiles) == 0 {
		percentiles = DefaultPercentiles
	}
	for _, p := range percentiles {
		if p < 0 || p > 100 {
			return Statistics{}, fmt.Errorf("%w: %v", ErrInvalidPercentile, p)
		}
	}

	durations := make([]time.Duration, 0, set.Len())
	for _, issue := range set.Issues {
		durations = append(durations, issue.CycleTime)
	}
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	stats := Statistics{
		Count:        set.Len(),
		TimespanDays: set.Range.Days(),
		Min:          durations[0],
		Median:       durations[len(durations)/2],
		Max:          durations[len(durations)-1],
	}
	stats.MinIssue = firstWithCycleTime(set, stats.Min)
	stats.MedianIssue = firstWithCycleTime(set, stats.Median)
	stats.MaxIssue = firstWithCycleTime(set, stats.Max)

	var sum float64
	for _, d := range durations {
		sum += float64(d)
	}
	mean := sum / float64(len(durations))
	stats.Mean = time.Duration(mean)
	stats.meanDays = mean / float64(day)

	values := make([]float64, len(durations))
	for i, d := range durations {
		values[i] = float64(d)
	}
	for _, p := range percentiles {
		stats.Percentiles = append(stats.Percentiles, Quantile{
			Percentile: p,
			CycleTime:  time.Duration(interpolate(values, p)),
		})
	}

	for _, issue := range set.Issues {
		if issue.CycleTimeStart.Time.After(set.Range.From) {
			stats.Started++
		}
	}
	if stats.TimespanDays > 0 {
		stats.PullRate = float64(stats.Started) / stats.TimespanDays * 7
		stats.MeanWIP = float64(stats.Count) / stats.TimespanDays * stats.meanDays
	}

	return stats, nil
}

func firstWithCycleTime(set Set, d time.Duration) string {
	for _, issue := range set.Issues {
		if issue.CycleTime == d {
			return issue.ID
		}
	}
	return ""
}

// Median returns the middle element of the sorted values, taking the upper
// one of the two middle elements for even counts.
func Median(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptyDataset
	}
	sorted := sortedCopy(values)
	return sorted[len(sorted)/2], nil
}

// Percentile returns the p-th percentile of values, interpolating linearly
// between the closest ranks.
func Percentile(values []float64, p float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptyDataset
	}
	if p < 0 || p > 100 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPercentile, p)
	}
	return interpolate(sortedCopy(values), p), nil
}

// interpolate expects sorted, non-empty values.
func interpolate(values []float64, p float64) float64 {
	if len(values) == 1 || p <= 0 {
		return values[0]
	}
	if p >= 100 {
		return values[len(values)-1]
	}

	rank := (p / 100) * float64(len(values)-1)
	lower := int(rank)
	upper := lower + 1
	if upper >= len(values) {
		return values[lower]
	}
	weight := rank - float64(lower)
	return values[lower] + (values[upper]-values[lower])*weight
}

func sortedCopy(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted
}
