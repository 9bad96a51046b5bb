// Package cycletime turns an issue's change log into workflow transitions and
// derives the issue's cycle time from them.
package cycletime

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/danielolaszy/kanban/pkg/models"
)

// ErrInvalidIssue is returned for issues that cannot be interpreted at all.
var ErrInvalidIssue = errors.New("invalid issue")

// deltaKind tags a field delta so later stages never look at raw field names.
type deltaKind int

const (
	kindOther deltaKind = iota
	kindState
	kindResolved
)

func kindOf(d models.FieldDelta) deltaKind {
	switch {
	case d.Field == models.StateField:
		return kindState
	case strings.EqualFold(d.Field, models.ResolvedField):
		return kindResolved
	default:
		return kindOther
	}
}

// StateChange is one observed workflow transition.
type StateChange struct {
	From     string        `json:"from_state"`
	To       string        `json:"to_state"`
	Updated  time.Time     `json:"updated"`
	Duration time.Duration `json:"duration"`
}

// Transition renders the change as "from→to".
func (s StateChange) Transition() string {
	return s.From + "→" + s.To
}

func (s StateChange) String() string {
	return fmt.Sprintf("%s @ %s (%s)", s.Transition(), s.Updated.Format(time.RFC3339), s.Duration)
}

// Extract returns the issue's state transitions ordered by time. Each
// transition's duration is measured from the previous transition, or from
// the issue's creation for the first one.
func Extract(issue models.RawIssue) ([]StateChange, error) {
	if issue.Created.IsZero() {
		return nil, fmt.Errorf("%w: %s has no creation time", ErrInvalidIssue, issue.ID)
	}

	var changes []StateChange
	for _, event := range issue.Events {
		for _, delta := range event.Deltas {
			if kindOf(delta) != kindState {
				continue
			}
			changes = append(changes, StateChange{
				From:    delta.Old,
				To:      delta.New,
				Updated: event.Timestamp,
			})
		}
	}

	if !sort.SliceIsSorted(changes, func(i, j int) bool { return changes[i].Updated.Before(changes[j].Updated) }) {
		sort.SliceStable(changes, func(i, j int) bool { return changes[i].Updated.Before(changes[j].Updated) })
	}

	previous := issue.Created
	for i := range changes {
		if d := changes[i].Updated.Sub(previous); d > 0 {
			changes[i].Duration = d
		}
		if changes[i].Updated.After(previous) {
			previous = changes[i].Updated
		}
	}

	return changes, nil
}

// ResolvedAt returns the time of the latest resolution change in the log.
func ResolvedAt(issue models.RawIssue) (time.Time, bool) {
	var resolved time.Time
	for _, event := range issue.Events {
		for _, delta := range event.Deltas {
			if kindOf(delta) == kindResolved && delta.New != "" && event.Timestamp.After(resolved) {
				resolved = event.Timestamp
			}
		}
	}
	return resolved, !resolved.IsZero()
}
