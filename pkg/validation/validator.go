// Package validation rejects malformed input before it reaches the network or
// the store. Every check is a pure function returning a typed *Error that
// names the offending field, so callers get exactly one failure mode per
// malformed field. Garbage input must never enter the offline replay queue.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rpattn/fleetline/internal/domain"
)

const (
	// MaxTitleLength bounds activity titles.
	MaxTitleLength = 255
	// MaxContentLength bounds note content and activity descriptions.
	MaxContentLength = 10000
	// MaxSearchLength bounds free-text search queries.
	MaxSearchLength = 500
)

// uuidPattern matches the UUID v4 family: version nibble 1-5, variant nibble
// 8, 9, a or b. Stricter than uuid.Parse, which also accepts URN and braced
// forms the store never produces.
var uuidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[1-5][0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`)

// Error reports one malformed field.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

func newError(field, message string) *Error {
	return &Error{Field: field, Message: message}
}

// WorkOrderID checks that id is a well-formed work order identifier.
func WorkOrderID(id string) error {
	return uuidField("work_order_id", id)
}

// UserID checks that id is a well-formed user identifier.
func UserID(id string) error {
	return uuidField("user_id", id)
}

func uuidField(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return newError(field, "is required")
	}
	if !uuidPattern.MatchString(id) {
		return newError(field, "must be a valid UUID")
	}
	return nil
}

// NoteContent checks that note text is present and within bounds.
func NoteContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return newError("content", "is required")
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return newError("content", fmt.Sprintf("must be at most %d characters", MaxContentLength))
	}
	return nil
}

// ActivityType checks that t is one of the recognised enum values.
func ActivityType(t domain.ActivityType) error {
	if !t.Valid() {
		return newError("activity_type", fmt.Sprintf("unknown activity type %q", t))
	}
	return nil
}

// TimelineFilters checks a filter set against the documented query contract:
// ordered, non-future date range; known activity types; non-empty technician
// ids; bounded limit, offset and search query. A nil filter set is valid.
func TimelineFilters(filters *domain.TimelineFilters, now time.Time) error {
	if filters == nil {
		return nil
	}

	if dr := filters.DateRange; dr != nil {
		if dr.Start.IsZero() || dr.End.IsZero() {
			return newError("date_range", "start and end are required")
		}
		if dr.Start.After(dr.End) {
			return newError("date_range", "start must not be after end")
		}
		if dr.Start.After(now) {
			return newError("date_range", "start must not be in the future")
		}
	}

	for _, t := range filters.ActivityTypes {
		if !t.Valid() {
			return newError("activity_types", fmt.Sprintf("unknown activity type %q", t))
		}
	}

	for _, id := range filters.TechnicianIDs {
		if strings.TrimSpace(id) == "" {
			return newError("technician_ids", "must not contain empty ids")
		}
	}

	if filters.Limit != 0 && (filters.Limit < 1 || filters.Limit > domain.MaxActivityLimit) {
		return newError("limit", fmt.Sprintf("must be between 1 and %d", domain.MaxActivityLimit))
	}
	if filters.Offset < 0 {
		return newError("offset", "must not be negative")
	}
	if utf8.RuneCountInString(filters.SearchQuery) > MaxSearchLength {
		return newError("search_query", fmt.Sprintf("must be at most %d characters", MaxSearchLength))
	}

	return nil
}

// CreateActivityInput checks the full input for a new activity.
func CreateActivityInput(input domain.CreateActivityInput) error {
	if err := WorkOrderID(input.WorkOrderID); err != nil {
		return err
	}
	if err := ActivityType(input.ActivityType); err != nil {
		return err
	}
	if strings.TrimSpace(input.Title) == "" {
		return newError("title", "is required")
	}
	if utf8.RuneCountInString(input.Title) > MaxTitleLength {
		return newError("title", fmt.Sprintf("must be at most %d characters", MaxTitleLength))
	}
	if input.Description != "" && utf8.RuneCountInString(input.Description) > MaxContentLength {
		return newError("description", fmt.Sprintf("must be at most %d characters", MaxContentLength))
	}
	if strings.TrimSpace(input.UserName) == "" {
		return newError("user_name", "is required")
	}
	if input.UserID != "" {
		if err := UserID(input.UserID); err != nil {
			return err
		}
	}
	return nil
}
