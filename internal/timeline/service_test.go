package timeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/fleetline/internal/domain"
	"github.com/rpattn/fleetline/internal/repository"
	"github.com/rpattn/fleetline/internal/repository/mocks"
	"github.com/rpattn/fleetline/internal/timeline"
	"github.com/rpattn/fleetline/pkg/validation"
)

const (
	workOrderID = "123e4567-e89b-12d3-a456-426614174000"
	userID      = "123e4567-e89b-12d3-a456-426614174001"
)

type fixture struct {
	activities *mocks.ActivityRepository
	workOrders *mocks.WorkOrderRepository
	profiles   *mocks.UserProfileRepository
	service    *timeline.Service
}

func newFixture() *fixture {
	f := &fixture{
		activities: &mocks.ActivityRepository{},
		workOrders: &mocks.WorkOrderRepository{},
		profiles:   &mocks.UserProfileRepository{},
	}
	f.service = timeline.NewService(f.activities, f.workOrders, f.profiles, nil)
	return f
}

func TestGetActivities(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	stored := []domain.Activity{{
		ID:           "a1",
		WorkOrderID:  workOrderID,
		ActivityType: domain.ActivityNoteAdded,
		Title:        "Note added",
		UserName:     "Jordan Reyes",
		CreatedAt:    time.Now(),
	}}
	f.activities.On("ListByWorkOrder", ctx, workOrderID, (*domain.TimelineFilters)(nil)).Return(stored, nil)

	activities, err := f.service.GetActivities(ctx, workOrderID, nil)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, "a1", activities[0].ID)
}

func TestGetActivitiesRejectsMalformedInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	tomorrow := time.Now().Add(24 * time.Hour)

	cases := []struct {
		name        string
		workOrderID string
		filters     *domain.TimelineFilters
		field       string
	}{
		{"empty id", "", nil, "work_order_id"},
		{"malformed id", "123", nil, "work_order_id"},
		{"future start", workOrderID, &domain.TimelineFilters{
			DateRange: &domain.DateRange{Start: tomorrow, End: tomorrow.Add(time.Hour)},
		}, "date_range"},
		{"limit above cap", workOrderID, &domain.TimelineFilters{Limit: 1001}, "limit"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.service.GetActivities(ctx, tc.workOrderID, tc.filters)
			var verr *validation.Error
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
			assert.Equal(t, timeline.CodeValidation, timeline.ErrorCode(err))
		})
	}
	f.activities.AssertNotCalled(t, "ListByWorkOrder")
}

func TestGetActivitiesWrapsStoreFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.activities.On("ListByWorkOrder", ctx, workOrderID, (*domain.TimelineFilters)(nil)).
		Return(nil, errors.New("connection refused"))

	_, err := f.service.GetActivities(ctx, workOrderID, nil)
	var dberr *timeline.DatabaseError
	require.ErrorAs(t, err, &dberr)
	assert.Equal(t, timeline.CodeDatabase, timeline.ErrorCode(err))
}

func TestAddNoteHappyPath(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.workOrders.On("Exists", ctx, workOrderID).Return(true, nil)
	f.profiles.On("GetByID", ctx, userID).
		Return(domain.UserProfile{ID: userID, DisplayName: "Jordan Reyes"}, nil)

	f.activities.On("Insert", ctx, mock.MatchedBy(func(in domain.CreateActivityInput) bool {
		return in.WorkOrderID == workOrderID &&
			in.ActivityType == domain.ActivityNoteAdded &&
			in.Title == "Note added" &&
			in.Description == "Brake fixed" &&
			in.UserName == "Jordan Reyes" &&
			in.Metadata["note_content"] == "Brake fixed"
	})).Return(domain.Activity{
		ID:           "a1",
		WorkOrderID:  workOrderID,
		ActivityType: domain.ActivityNoteAdded,
		Title:        "Note added",
		Description:  "Brake fixed",
		UserName:     "Jordan Reyes",
		Metadata:     map[string]any{"note_content": "Brake fixed"},
		CreatedAt:    time.Now(),
	}, nil)

	activity, err := f.service.AddNote(ctx, workOrderID, "Brake fixed", userID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActivityNoteAdded, activity.ActivityType)
	assert.Equal(t, "Note added", activity.Title)
	assert.Equal(t, "Brake fixed", activity.Description)
	assert.Equal(t, "Brake fixed", activity.Metadata["note_content"])
}

func TestAddNoteFallsBackToUnknownUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.workOrders.On("Exists", ctx, workOrderID).Return(true, nil)
	f.profiles.On("GetByID", ctx, userID).
		Return(domain.UserProfile{}, repository.ErrNotFound)

	f.activities.On("Insert", ctx, mock.MatchedBy(func(in domain.CreateActivityInput) bool {
		return in.UserName == timeline.UnknownUserName
	})).Return(domain.Activity{
		ID:           "a1",
		ActivityType: domain.ActivityNoteAdded,
		UserName:     timeline.UnknownUserName,
	}, nil)

	activity, err := f.service.AddNote(ctx, workOrderID, "Brake fixed", userID)
	require.NoError(t, err)
	assert.Equal(t, timeline.UnknownUserName, activity.UserName)
}

func TestAddNoteRejectsBlankContent(t *testing.T) {
	f := newFixture()
	_, err := f.service.AddNote(context.Background(), workOrderID, "   ", userID)
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "content", verr.Field)
}

func TestCreateActivityMissingWorkOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.workOrders.On("Exists", ctx, workOrderID).Return(false, nil)

	_, err := f.service.CreateActivity(ctx, domain.CreateActivityInput{
		WorkOrderID:  workOrderID,
		ActivityType: domain.ActivityStatusChanged,
		Title:        "Status changed",
		UserName:     "Jordan Reyes",
	})
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "work_order_id", verr.Field)
}

func TestCreateActivityMissingProfileIsNotFatal(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.workOrders.On("Exists", ctx, workOrderID).Return(true, nil)
	f.profiles.On("GetByID", ctx, userID).Return(domain.UserProfile{}, repository.ErrNotFound)
	f.activities.On("Insert", ctx, mock.Anything).Return(domain.Activity{ID: "a1"}, nil)

	_, err := f.service.CreateActivity(ctx, domain.CreateActivityInput{
		WorkOrderID:  workOrderID,
		ActivityType: domain.ActivityAssigned,
		Title:        "Assigned",
		UserID:       userID,
		UserName:     "Jordan Reyes",
	})
	require.NoError(t, err)
}

func TestCreateActivityInsertReturnsNoRow(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.workOrders.On("Exists", ctx, workOrderID).Return(true, nil)
	f.activities.On("Insert", ctx, mock.Anything).
		Return(domain.Activity{}, repository.ErrNoRowReturned)

	_, err := f.service.CreateActivity(ctx, domain.CreateActivityInput{
		WorkOrderID:  workOrderID,
		ActivityType: domain.ActivityCompleted,
		Title:        "Completed",
		UserName:     "Jordan Reyes",
	})
	var dberr *timeline.DatabaseError
	require.ErrorAs(t, err, &dberr)
	assert.ErrorIs(t, err, repository.ErrNoRowReturned)
}

func TestGetActivityStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.activities.On("ListByWorkOrder", ctx, workOrderID, mock.Anything).Return([]domain.Activity{
		{ID: "a1", ActivityType: domain.ActivityNoteAdded, UserName: "Jordan Reyes"},
		{ID: "a2", ActivityType: domain.ActivityNoteAdded, UserName: "Sam Okafor"},
		{ID: "a3", ActivityType: domain.ActivityCompleted, UserName: "Jordan Reyes"},
		{ID: "a4", ActivityType: "bogus", UserName: "Jordan Reyes"}, // skipped
		{ID: "a5", ActivityType: domain.ActivityStarted, UserName: ""},
	}, nil)

	stats, err := f.service.GetActivityStats(ctx, workOrderID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalActivities)
	assert.Equal(t, 2, stats.ActivitiesByType[domain.ActivityNoteAdded])
	assert.Equal(t, 1, stats.ActivitiesByType[domain.ActivityCompleted])
	assert.Equal(t, 2, stats.ActivitiesByUser["Jordan Reyes"])
	assert.Equal(t, 1, stats.ActivitiesByUser["Sam Okafor"])
}

func TestSubscribeToUpdates(t *testing.T) {
	f := newFixture()

	_, err := f.service.SubscribeToUpdates("nope", func(domain.Activity) {})
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)

	_, err = f.service.SubscribeToUpdates(workOrderID, nil)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "callback", verr.Field)

	// Without a realtime manager the façade degrades to a no-op unsubscribe
	// rather than failing the caller.
	unsubscribe, err := f.service.SubscribeToUpdates(workOrderID, func(domain.Activity) {})
	require.NoError(t, err)
	require.NotNil(t, unsubscribe)
	unsubscribe()
}

func TestValidateConnection(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.workOrders.On("Ping", ctx).Return(errors.New("down")).Once()

	err := f.service.ValidateConnection(ctx)
	var dberr *timeline.DatabaseError
	require.ErrorAs(t, err, &dberr)

	f.workOrders.On("Ping", ctx).Return(nil)
	require.NoError(t, f.service.ValidateConnection(ctx))
}

func TestHealthCheck(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.workOrders.On("Ping", ctx).Return(nil)

	status := f.service.HealthCheck(ctx)
	assert.True(t, status.Store)
	assert.False(t, status.Realtime, "no realtime manager wired")
	assert.False(t, status.Healthy)
}
