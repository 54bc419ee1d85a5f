// Package activity defines the activity record data model shared by the
// extraction, validation, and publishing stages, together with the
// business-rule checks that every record must pass before it is
// serialized into the dataset.
package activity

import (
	"errors"
	"fmt"
	"strings"
)

// Category partitions the dataset into its three on-disk collections.
type Category string

const (
	CategoryConference  Category = "conference"
	CategoryCompetition Category = "competition"
	CategoryActivity    Category = "activity"
)

// Valid reports whether c is one of the three known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryConference, CategoryCompetition, CategoryActivity:
		return true
	}
	return false
}

// Categories lists every known category in dataset order.
func Categories() []Category {
	return []Category{CategoryConference, CategoryCompetition, CategoryActivity}
}

// Deadline is a single timeline entry of an event.
type Deadline struct {
	Deadline string `json:"deadline" yaml:"deadline"`
	Comment  string `json:"comment" yaml:"comment"`
}

// EventEntry is one dated occurrence of an activity. The ID must be
// unique across the entire dataset, not just its own category.
type EventEntry struct {
	Year     int        `json:"year" yaml:"year"`
	ID       string     `json:"id" yaml:"id"`
	Link     string     `json:"link" yaml:"link"`
	Timeline []Deadline `json:"timeline" yaml:"timeline"`
	Timezone string     `json:"timezone" yaml:"timezone"`
	Date     string     `json:"date" yaml:"date"`
	Place    string     `json:"place" yaml:"place"`
}

// Record is the structured description of one open-source event with
// one or more dated occurrences. Records are request-scoped: built,
// validated, serialized, and published within a single submission.
type Record struct {
	Title       string       `json:"title" yaml:"title"`
	Description string       `json:"description" yaml:"description"`
	Category    Category     `json:"category" yaml:"category"`
	Tags        []string     `json:"tags" yaml:"tags"`
	Events      []EventEntry `json:"events" yaml:"events"`
}

// descriptionSoftLimit is advisory only; overruns produce a warning,
// never a rejection.
const descriptionSoftLimit = 100

// ValidationError carries the full list of business-rule violations
// found on a record, not just the first one.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Violations, "; ")
}

// Validate re-checks the top-level requirements on a record. It is a
// second gate behind the extraction engine's own validation, guarding
// callers that supply hand-built records.
func Validate(rec *Record) error {
	if rec == nil {
		return &ValidationError{Violations: []string{"record is nil"}}
	}
	var violations []string
	if rec.Title == "" {
		violations = append(violations, "missing title")
	}
	if rec.Description == "" {
		violations = append(violations, "missing description")
	}
	if !rec.Category.Valid() {
		violations = append(violations, "invalid category (must be conference, competition, or activity)")
	}
	if len(rec.Tags) == 0 {
		violations = append(violations, "tags must be a non-empty array")
	}
	if len(rec.Events) == 0 {
		violations = append(violations, "events must be a non-empty array")
	}
	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// Warnings returns advisory findings that do not block a record.
func Warnings(rec *Record) []string {
	if rec == nil {
		return nil
	}
	var warnings []string
	if n := len([]rune(rec.Description)); n > descriptionSoftLimit {
		warnings = append(warnings, fmt.Sprintf("description is %d characters, recommended limit is %d", n, descriptionSoftLimit))
	}
	return warnings
}

// AsValidationError unwraps err into a *ValidationError when possible.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
