// Package models defines data structures shared across the application.
package models

import (
	"fmt"
	"time"
)

const (
	// StateField is the field name every tracker maps its workflow state to.
	StateField = "State"

	// ResolvedField is the field name trackers map resolution changes to.
	ResolvedField = "resolved"
)

// RawIssue is an issue as fetched from a tracker, before any interpretation
// of its history.
type RawIssue struct {
	// ID is the tracker's human readable identifier (e.g., "BACKEND-671")
	ID string `json:"id"`

	// Project is the project, repository or board the issue was fetched from
	Project string `json:"project"`

	// Created is the timestamp when the issue was created
	Created time.Time `json:"created"`

	// Events is the issue's change log in the order the tracker returned it
	Events []ChangeEvent `json:"events"`
}

// ChangeEvent is one entry of an issue's change log.
type ChangeEvent struct {
	// Timestamp is when the change was recorded
	Timestamp time.Time `json:"timestamp"`

	// Deltas lists every field modified by this change
	Deltas []FieldDelta `json:"deltas"`
}

// FieldDelta is a single field modification inside a change event.
type FieldDelta struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// StateDelta builds a delta on the workflow state field.
func StateDelta(from, to string) FieldDelta {
	return FieldDelta{Field: StateField, Old: from, New: to}
}

// Range is the closed time window a query covers.
type Range struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// NewRange returns the range [from, to], rejecting inverted windows.
func NewRange(from, to time.Time) (Range, error) {
	if to.Before(from) {
		return Range{}, fmt.Errorf("invalid range: %s is before %s",
			to.Format(time.DateOnly), from.Format(time.DateOnly))
	}
	return Range{From: from, To: to}, nil
}

// Days returns the length of the range in fractional days.
func (r Range) Days() float64 {
	return r.To.Sub(r.From).Hours() / 24
}

// Contains reports whether t lies inside the range, bounds included.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}

// String renders the range the way it is shown in report titles.
func (r Range) String() string {
	return fmt.Sprintf("%s .. %s", r.From.Format(time.DateOnly), r.To.Format(time.DateOnly))
}
