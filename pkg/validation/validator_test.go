package validation

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rpattn/fleetline/internal/domain"
)

func TestWorkOrderID(t *testing.T) {
	invalid := []string{
		"",
		"   ",
		"123",
		"invalid-uuid",
		"123e4567-e89b-72d3-a456-426614174000", // version nibble out of range
		"123e4567-e89b-12d3-c456-426614174000", // variant nibble out of range
		"urn:uuid:123e4567-e89b-12d3-a456-426614174000",
		"{123e4567-e89b-12d3-a456-426614174000}",
	}
	for _, id := range invalid {
		if err := WorkOrderID(id); err == nil {
			t.Fatalf("expected %q to be rejected", id)
		}
	}

	if err := WorkOrderID("123e4567-e89b-12d3-a456-426614174000"); err != nil {
		t.Fatalf("expected canonical UUID to be accepted, got %v", err)
	}
	if err := WorkOrderID("123E4567-E89B-42D3-A456-426614174000"); err != nil {
		t.Fatalf("expected upper-case UUID to be accepted, got %v", err)
	}
}

func TestWorkOrderIDFieldAttribution(t *testing.T) {
	err := WorkOrderID("nope")
	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *validation.Error, got %T", err)
	}
	if verr.Field != "work_order_id" {
		t.Fatalf("expected field work_order_id, got %q", verr.Field)
	}
}

func TestNoteContent(t *testing.T) {
	if err := NoteContent(""); err == nil {
		t.Fatal("expected empty content to be rejected")
	}
	if err := NoteContent("   \n\t "); err == nil {
		t.Fatal("expected blank content to be rejected")
	}
	if err := NoteContent(strings.Repeat("x", MaxContentLength+1)); err == nil {
		t.Fatal("expected oversized content to be rejected")
	}
	if err := NoteContent("Brake fixed"); err != nil {
		t.Fatalf("expected valid content to be accepted, got %v", err)
	}
	if err := NoteContent(strings.Repeat("x", MaxContentLength)); err != nil {
		t.Fatalf("expected content at the limit to be accepted, got %v", err)
	}
}

func TestActivityType(t *testing.T) {
	for _, typ := range domain.ActivityTypes() {
		if err := ActivityType(typ); err != nil {
			t.Fatalf("expected %q to be accepted, got %v", typ, err)
		}
	}
	if err := ActivityType("deleted"); err == nil {
		t.Fatal("expected unknown activity type to be rejected")
	}
}

func TestTimelineFilters(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		filters *domain.TimelineFilters
		field   string
	}{
		{"nil is valid", nil, ""},
		{"zero value is valid", &domain.TimelineFilters{}, ""},
		{
			"future start rejected",
			&domain.TimelineFilters{DateRange: &domain.DateRange{Start: now.Add(24 * time.Hour), End: now.Add(48 * time.Hour)}},
			"date_range",
		},
		{
			"inverted range rejected",
			&domain.TimelineFilters{DateRange: &domain.DateRange{Start: now, End: now.Add(-time.Hour)}},
			"date_range",
		},
		{
			"unknown type rejected",
			&domain.TimelineFilters{ActivityTypes: []domain.ActivityType{"archived"}},
			"activity_types",
		},
		{
			"empty technician id rejected",
			&domain.TimelineFilters{TechnicianIDs: []string{"tech-1", " "}},
			"technician_ids",
		},
		{
			"limit above cap rejected",
			&domain.TimelineFilters{Limit: 1001},
			"limit",
		},
		{
			"negative offset rejected",
			&domain.TimelineFilters{Offset: -1},
			"offset",
		},
		{
			"oversized search rejected",
			&domain.TimelineFilters{SearchQuery: strings.Repeat("q", MaxSearchLength+1)},
			"search_query",
		},
		{
			"full valid filter set",
			&domain.TimelineFilters{
				DateRange:     &domain.DateRange{Start: now.Add(-24 * time.Hour), End: now},
				ActivityTypes: []domain.ActivityType{domain.ActivityNoteAdded},
				TechnicianIDs: []string{"123e4567-e89b-12d3-a456-426614174001"},
				SearchQuery:   "brake",
				Limit:         100,
				Offset:        50,
			},
			"",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := TimelineFilters(tc.filters, now)
			if tc.field == "" {
				if err != nil {
					t.Fatalf("expected filters to be accepted, got %v", err)
				}
				return
			}
			var verr *Error
			if !errors.As(err, &verr) {
				t.Fatalf("expected *validation.Error, got %v", err)
			}
			if verr.Field != tc.field {
				t.Fatalf("expected field %q, got %q", tc.field, verr.Field)
			}
		})
	}
}

func TestCreateActivityInput(t *testing.T) {
	valid := domain.CreateActivityInput{
		WorkOrderID:  "123e4567-e89b-12d3-a456-426614174000",
		ActivityType: domain.ActivityNoteAdded,
		Title:        "Note added",
		Description:  "Brake fixed",
		UserID:       "123e4567-e89b-12d3-a456-426614174001",
		UserName:     "Jordan Reyes",
	}
	if err := CreateActivityInput(valid); err != nil {
		t.Fatalf("expected valid input to be accepted, got %v", err)
	}

	mutations := []struct {
		name   string
		mutate func(*domain.CreateActivityInput)
		field  string
	}{
		{"missing work order", func(in *domain.CreateActivityInput) { in.WorkOrderID = "" }, "work_order_id"},
		{"bad activity type", func(in *domain.CreateActivityInput) { in.ActivityType = "nope" }, "activity_type"},
		{"missing title", func(in *domain.CreateActivityInput) { in.Title = "  " }, "title"},
		{"oversized title", func(in *domain.CreateActivityInput) { in.Title = strings.Repeat("t", MaxTitleLength+1) }, "title"},
		{"oversized description", func(in *domain.CreateActivityInput) { in.Description = strings.Repeat("d", MaxContentLength+1) }, "description"},
		{"missing user name", func(in *domain.CreateActivityInput) { in.UserName = "" }, "user_name"},
		{"malformed user id", func(in *domain.CreateActivityInput) { in.UserID = "user-1" }, "user_id"},
	}
	for _, tc := range mutations {
		t.Run(tc.name, func(t *testing.T) {
			input := valid
			tc.mutate(&input)
			err := CreateActivityInput(input)
			var verr *Error
			if !errors.As(err, &verr) {
				t.Fatalf("expected *validation.Error, got %v", err)
			}
			if verr.Field != tc.field {
				t.Fatalf("expected field %q, got %q", tc.field, verr.Field)
			}
		})
	}

	// user_id is optional; absence is not an error.
	input := valid
	input.UserID = ""
	if err := CreateActivityInput(input); err != nil {
		t.Fatalf("expected input without user_id to be accepted, got %v", err)
	}
}
