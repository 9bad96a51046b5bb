package cycletime

import (
	"errors"
	"fmt"
	"time"

	"github.com/danielolaszy/kanban/pkg/models"
)

// ErrNotFound is returned by state queries for states the issue never visited.
var ErrNotFound = errors.New("state not found")

// DefaultInProgressStates are the workflow states counted as active work
// when no configuration overrides them.
var DefaultInProgressStates = []string{
	"In Progress",
	"Review",
	"Analysis",
	"Development",
	"Verification",
	"Code Review",
	"Ready for Code Review",
}

// Config selects which workflow states count toward cycle time.
type Config struct {
	inProgress map[string]struct{}
}

// NewConfig builds a Config from the given in-progress state names. An empty
// list falls back to DefaultInProgressStates.
func NewConfig(inProgress ...string) Config {
	if len(inProgress) == 0 {
		inProgress = DefaultInProgressStates
	}
	set := make(map[string]struct{}, len(inProgress))
	for _, state := range inProgress {
		set[state] = struct{}{}
	}
	return Config{inProgress: set}
}

// InProgress reports whether state is one of the configured in-progress states.
func (c Config) InProgress(state string) bool {
	if c.inProgress == nil {
		return NewConfig().InProgress(state)
	}
	_, ok := c.inProgress[state]
	return ok
}

// Boundary is one end of an issue's cycle, together with the transition that
// produced it. Transition is empty when the boundary fell back to creation.
type Boundary struct {
	Time       time.Time `json:"time"`
	Transition string    `json:"transition,omitempty"`
}

// Issue is a classified issue. It is immutable once built by Classify.
type Issue struct {
	ID             string        `json:"id"`
	Project        string        `json:"project,omitempty"`
	Created        time.Time     `json:"created"`
	Resolved       time.Time     `json:"resolved"`
	CycleTimeStart Boundary      `json:"cycle_time_start"`
	CycleTimeEnd   Boundary      `json:"cycle_time_end"`
	CycleTime      time.Duration `json:"cycle_time"`
	StateChanges   []StateChange `json:"state_changes"`

	// worked is set when at least one transition left an in-progress state.
	worked bool
}

// New extracts the transitions of a raw issue and classifies it.
func New(raw models.RawIssue, cfg Config) (Issue, error) {
	changes, err := Extract(raw)
	if err != nil {
		return Issue{}, err
	}
	return Classify(raw, changes, cfg), nil
}

// Classify derives the cycle of an issue from its ordered transitions.
//
// The cycle starts at the first entry into an in-progress state and ends at
// the last exit from one. Without such transitions the first and last
// transition are used instead. Without any transition both ends sit on the
// creation time. CycleTime is the time spent in in-progress states, which
// differs from end minus start when work was reopened.
func Classify(raw models.RawIssue, changes []StateChange, cfg Config) Issue {
	own := make([]StateChange, len(changes))
	copy(own, changes)

	issue := Issue{
		ID:             raw.ID,
		Project:        raw.Project,
		Created:        raw.Created,
		CycleTimeStart: Boundary{Time: raw.Created},
		CycleTimeEnd:   Boundary{Time: raw.Created},
		StateChanges:   own,
	}

	var start, end *StateChange
	for i := range own {
		change := &own[i]
		if cfg.InProgress(change.From) {
			issue.CycleTime += change.Duration
			issue.worked = true
			if end == nil || !change.Updated.Before(end.Updated) {
				end = change
			}
		}
		if cfg.InProgress(change.To) && (start == nil || change.Updated.Before(start.Updated)) {
			start = change
		}
	}

	if len(own) > 0 {
		if start == nil {
			start = &own[0]
		}
		if end == nil {
			end = &own[len(own)-1]
		}
		issue.CycleTimeStart = Boundary{Time: start.Updated, Transition: start.Transition()}
		issue.CycleTimeEnd = Boundary{Time: end.Updated, Transition: end.Transition()}
		// An exit that precedes every entry means the issue was created in an
		// in-progress state.
		if issue.CycleTimeEnd.Time.Before(issue.CycleTimeStart.Time) {
			issue.CycleTimeStart = Boundary{Time: raw.Created}
		}
	}

	if resolved, ok := ResolvedAt(raw); ok {
		issue.Resolved = resolved
	} else {
		issue.Resolved = issue.CycleTimeEnd.Time
	}

	return issue
}

// HasCycleTime reports whether the issue has any state transition. Without
// one its cycle is undefined.
func (i Issue) HasCycleTime() bool {
	return len(i.StateChanges) > 0
}

// Worked reports whether the issue ever left an in-progress state. Issues
// that never did carry a zero cycle time.
func (i Issue) Worked() bool {
	return i.worked
}

// Days returns the cycle time in whole days.
func (i Issue) Days() int {
	return int(i.CycleTime / (24 * time.Hour))
}

// TimeInState returns the total time spent in the named state.
func (i Issue) TimeInState(name string) (time.Duration, error) {
	var (
		total   time.Duration
		visited bool
	)
	for _, change := range i.StateChanges {
		if change.From == name {
			total += change.Duration
			visited = true
		}
	}
	if !visited {
		return 0, fmt.Errorf("%w: %s never left %q", ErrNotFound, i.ID, name)
	}
	return total, nil
}

// FirstDateInState returns when the issue first entered the named state.
func (i Issue) FirstDateInState(name string) (time.Time, error) {
	var (
		first time.Time
		found bool
	)
	for _, change := range i.StateChanges {
		if change.To == name && (!found || change.Updated.Before(first)) {
			first = change.Updated
			found = true
		}
	}
	if !found {
		return time.Time{}, fmt.Errorf("%w: %s never entered %q", ErrNotFound, i.ID, name)
	}
	return first, nil
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s], started: %s, finished: %s, cycle time: %s",
		i.ID,
		i.CycleTimeStart.Time.Format(time.DateTime),
		i.CycleTimeEnd.Time.Format(time.DateTime),
		i.CycleTime)
}
