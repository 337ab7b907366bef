// Package mocks provides testify mocks for the repository interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/rpattn/fleetline/internal/domain"
)

// ActivityRepository is a mock for repository.ActivityRepository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Insert(ctx context.Context, input domain.CreateActivityInput) (domain.Activity, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(domain.Activity), args.Error(1)
}

func (m *ActivityRepository) ListByWorkOrder(ctx context.Context, workOrderID string, filters *domain.TimelineFilters) ([]domain.Activity, error) {
	args := m.Called(ctx, workOrderID, filters)
	if list, ok := args.Get(0).([]domain.Activity); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// WorkOrderRepository is a mock for repository.WorkOrderRepository.
type WorkOrderRepository struct {
	mock.Mock
}

func (m *WorkOrderRepository) Exists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *WorkOrderRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// UserProfileRepository is a mock for repository.UserProfileRepository.
type UserProfileRepository struct {
	mock.Mock
}

func (m *UserProfileRepository) GetByID(ctx context.Context, id string) (domain.UserProfile, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.UserProfile), args.Error(1)
}
