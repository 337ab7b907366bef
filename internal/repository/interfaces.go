package repository

import (
	"context"

	"github.com/rpattn/fleetline/internal/domain"
)

// ActivityRepository defines the interface for timeline activity persistence.
type ActivityRepository interface {
	Insert(ctx context.Context, input domain.CreateActivityInput) (domain.Activity, error)
	ListByWorkOrder(ctx context.Context, workOrderID string, filters *domain.TimelineFilters) ([]domain.Activity, error)
}

// WorkOrderRepository defines the interface for work order lookups.
type WorkOrderRepository interface {
	Exists(ctx context.Context, id string) (bool, error)
	Ping(ctx context.Context) error
}

// UserProfileRepository resolves denormalised display identities.
type UserProfileRepository interface {
	GetByID(ctx context.Context, id string) (domain.UserProfile, error)
}
