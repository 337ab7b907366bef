package domain

import (
	"time"
)

// ActivityType classifies a timeline entry.
type ActivityType string

const (
	ActivityCreated         ActivityType = "created"
	ActivityAssigned        ActivityType = "assigned"
	ActivityStarted         ActivityType = "started"
	ActivityPaused          ActivityType = "paused"
	ActivityCompleted       ActivityType = "completed"
	ActivityNoteAdded       ActivityType = "note_added"
	ActivityStatusChanged   ActivityType = "status_changed"
	ActivityPriorityChanged ActivityType = "priority_changed"
)

// ActivityTypes returns all recognised activity types.
func ActivityTypes() []ActivityType {
	return []ActivityType{
		ActivityCreated,
		ActivityAssigned,
		ActivityStarted,
		ActivityPaused,
		ActivityCompleted,
		ActivityNoteAdded,
		ActivityStatusChanged,
		ActivityPriorityChanged,
	}
}

// Valid reports whether the activity type is one of the recognised values.
func (t ActivityType) Valid() bool {
	for _, known := range ActivityTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// Activity is one immutable, append-only timeline entry for a work order.
// Once created it is never mutated by this client; UPDATE events represent
// server-side corrections such as metadata enrichment.
type Activity struct {
	ID           string         `json:"id"`
	WorkOrderID  string         `json:"work_order_id"`
	ActivityType ActivityType   `json:"activity_type"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	UserID       string         `json:"user_id,omitempty"`
	UserName     string         `json:"user_name"`
	UserAvatar   string         `json:"user_avatar,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// CreateActivityInput carries the caller-supplied fields for a new activity.
// The id and created_at are assigned by the store.
type CreateActivityInput struct {
	WorkOrderID  string         `json:"work_order_id"`
	ActivityType ActivityType   `json:"activity_type"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	UserID       string         `json:"user_id,omitempty"`
	UserName     string         `json:"user_name"`
	UserAvatar   string         `json:"user_avatar,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// ActivityStats aggregates a work order's timeline in a single pass.
type ActivityStats struct {
	TotalActivities  int                  `json:"total_activities"`
	ActivitiesByType map[ActivityType]int `json:"activities_by_type"`
	ActivitiesByUser map[string]int       `json:"activities_by_user"`
}
