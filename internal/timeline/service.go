// Package timeline is the data access service for work-order activity
// timelines. Every operation validates its input, verifies referenced
// entities exist, performs the store operation and wraps failures in the
// typed error taxonomy. One-shot operations fail loudly and synchronously;
// the realtime subscription façade degrades gracefully instead.
package timeline

import (
	"context"
	"log"
	"time"

	"github.com/rpattn/fleetline/internal/domain"
	"github.com/rpattn/fleetline/internal/realtime"
	"github.com/rpattn/fleetline/internal/repository"
	"github.com/rpattn/fleetline/pkg/validation"
)

// UnknownUserName is the display name recorded when a profile lookup fails.
// A missing profile is a soft failure, not an error: the note still lands.
const UnknownUserName = "Unknown User"

// Service exposes CRUD and export operations over a work order's activity
// timeline, plus a simplified realtime subscription façade.
type Service struct {
	activities repository.ActivityRepository
	workOrders repository.WorkOrderRepository
	profiles   repository.UserProfileRepository
	realtime   *realtime.Manager

	now func() time.Time
}

// NewService creates a timeline service. The realtime manager may be nil for
// consumers that only need CRUD operations.
func NewService(
	activities repository.ActivityRepository,
	workOrders repository.WorkOrderRepository,
	profiles repository.UserProfileRepository,
	manager *realtime.Manager,
) *Service {
	return &Service{
		activities: activities,
		workOrders: workOrders,
		profiles:   profiles,
		realtime:   manager,
		now:        time.Now,
	}
}

// GetActivities returns a work order's activities newest first, shaped by the
// optional filter set. Without filters the page size is capped at the default
// limit to bound response size.
func (s *Service) GetActivities(ctx context.Context, workOrderID string, filters *domain.TimelineFilters) ([]domain.Activity, error) {
	if err := validation.WorkOrderID(workOrderID); err != nil {
		return nil, err
	}
	if err := validation.TimelineFilters(filters, s.now()); err != nil {
		return nil, err
	}

	activities, err := s.activities.ListByWorkOrder(ctx, workOrderID, filters)
	if err != nil {
		return nil, &DatabaseError{Op: "list activities", Err: err}
	}
	return activities, nil
}

// AddNote appends a note activity to the work order's timeline. The author's
// display name is resolved from their profile, falling back to UnknownUserName
// when the lookup fails.
func (s *Service) AddNote(ctx context.Context, workOrderID, content, userID string) (domain.Activity, error) {
	if err := validation.WorkOrderID(workOrderID); err != nil {
		return domain.Activity{}, err
	}
	if err := validation.NoteContent(content); err != nil {
		return domain.Activity{}, err
	}
	if err := validation.UserID(userID); err != nil {
		return domain.Activity{}, err
	}

	userName, userAvatar := s.resolveProfile(ctx, userID)

	return s.CreateActivity(ctx, domain.CreateActivityInput{
		WorkOrderID:  workOrderID,
		ActivityType: domain.ActivityNoteAdded,
		Title:        "Note added",
		Description:  content,
		UserID:       userID,
		UserName:     userName,
		UserAvatar:   userAvatar,
		Metadata:     map[string]any{"note_content": content},
	})
}

// CreateActivity validates the full input, confirms the work order exists and
// inserts the activity, returning the stored row.
func (s *Service) CreateActivity(ctx context.Context, input domain.CreateActivityInput) (domain.Activity, error) {
	if err := validation.CreateActivityInput(input); err != nil {
		return domain.Activity{}, err
	}

	exists, err := s.workOrders.Exists(ctx, input.WorkOrderID)
	if err != nil {
		return domain.Activity{}, &DatabaseError{Op: "check work order", Err: err}
	}
	if !exists {
		return domain.Activity{}, &validation.Error{Field: "work_order_id", Message: "work order does not exist"}
	}

	if input.UserID != "" {
		if _, err := s.profiles.GetByID(ctx, input.UserID); err != nil {
			// Missing profile is worth a warning but must not block the write.
			log.Printf("[timeline] no profile for user %s: %v", input.UserID, err)
		}
	}

	activity, err := s.activities.Insert(ctx, input)
	if err != nil {
		return domain.Activity{}, &DatabaseError{Op: "insert activity", Err: err}
	}
	return activity, nil
}

// SubscribeToUpdates is the simplified realtime façade: one callback for both
// inserts and updates, and an unsubscribe function. Malformed inbound payloads
// are dropped by the manager; a setup failure yields a no-op unsubscribe, not
// an error, because a broken subscription must never take the page down.
func (s *Service) SubscribeToUpdates(workOrderID string, callback func(domain.Activity)) (func(), error) {
	if err := validation.WorkOrderID(workOrderID); err != nil {
		return nil, err
	}
	if callback == nil {
		return nil, &validation.Error{Field: "callback", Message: "is required"}
	}
	if s.realtime == nil {
		log.Printf("[timeline] realtime manager unavailable, subscription for %s is a no-op", workOrderID)
		return func() {}, nil
	}

	sub := s.realtime.Subscribe(realtime.SubscriptionConfig{
		WorkOrderID:       workOrderID,
		OnActivityAdded:   callback,
		OnActivityUpdated: callback,
		OnError: func(err error) {
			log.Printf("[timeline] subscription error for %s: %v", workOrderID, err)
		},
	})
	return sub.Unsubscribe, nil
}

// GetActivityStats aggregates the timeline in a single pass. A malformed
// activity is skipped with a warning, never fatal.
func (s *Service) GetActivityStats(ctx context.Context, workOrderID string) (domain.ActivityStats, error) {
	if err := validation.WorkOrderID(workOrderID); err != nil {
		return domain.ActivityStats{}, err
	}

	activities, err := s.activities.ListByWorkOrder(ctx, workOrderID, &domain.TimelineFilters{Limit: domain.MaxActivityLimit})
	if err != nil {
		return domain.ActivityStats{}, &Error{Code: CodeStats, Message: "load activities for stats", Err: err}
	}

	stats := domain.ActivityStats{
		ActivitiesByType: make(map[domain.ActivityType]int),
		ActivitiesByUser: make(map[string]int),
	}
	for _, activity := range activities {
		if !activity.ActivityType.Valid() || activity.UserName == "" {
			log.Printf("[timeline] skipping malformed activity %s in stats", activity.ID)
			continue
		}
		stats.TotalActivities++
		stats.ActivitiesByType[activity.ActivityType]++
		stats.ActivitiesByUser[activity.UserName]++
	}
	return stats, nil
}

// ValidateConnection performs a lightweight store read.
func (s *Service) ValidateConnection(ctx context.Context) error {
	if err := s.workOrders.Ping(ctx); err != nil {
		return &DatabaseError{Op: "ping", Err: err}
	}
	return nil
}

// HealthStatus reports the liveness of the service's collaborators.
type HealthStatus struct {
	Healthy  bool `json:"healthy"`
	Store    bool `json:"store"`
	Realtime bool `json:"realtime"`
}

// HealthCheck reports healthy only when both the store answers a lightweight
// read and the realtime transport factory is in place.
func (s *Service) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Store:    s.workOrders.Ping(ctx) == nil,
		Realtime: s.realtime != nil && s.realtime.Factory() != nil,
	}
	status.Healthy = status.Store && status.Realtime
	return status
}

// resolveProfile looks up a user's display identity, soft-failing to
// UnknownUserName so a broken profile row cannot block a note.
func (s *Service) resolveProfile(ctx context.Context, userID string) (name, avatar string) {
	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil || profile.DisplayName == "" {
		if err != nil {
			log.Printf("[timeline] profile lookup for %s failed: %v", userID, err)
		}
		return UnknownUserName, ""
	}
	return profile.DisplayName, profile.AvatarURL
}
