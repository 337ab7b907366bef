package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/fleetline/internal/domain"
)

// activityRepository implements ActivityRepository over Postgres.
type activityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository creates a new activity repository.
func NewActivityRepository(pool *pgxpool.Pool) ActivityRepository {
	return &activityRepository{pool: pool}
}

// Insert stores a new activity and returns the stored row with its
// server-assigned id and creation timestamp.
func (r *activityRepository) Insert(ctx context.Context, input domain.CreateActivityInput) (domain.Activity, error) {
	metadataJSON, err := marshalMetadata(input.Metadata)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("marshal metadata: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO activities (work_order_id, activity_type, title, description, user_id, user_name, user_avatar, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+activityColumns,
		input.WorkOrderID,
		string(input.ActivityType),
		input.Title,
		nullText(input.Description),
		nullText(input.UserID),
		input.UserName,
		nullText(input.UserAvatar),
		metadataJSON,
	)

	activity, err := scanActivity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Activity{}, ErrNoRowReturned
		}
		return domain.Activity{}, fmt.Errorf("insert activity: %w", err)
	}
	return activity, nil
}

// ListByWorkOrder returns a work order's activities, filtered and paginated,
// ordered newest first.
func (r *activityRepository) ListByWorkOrder(ctx context.Context, workOrderID string, filters *domain.TimelineFilters) ([]domain.Activity, error) {
	query, args := buildActivityListQuery(workOrderID, filters)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	activities := []domain.Activity{}
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		activities = append(activities, activity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}

	return activities, nil
}

func scanActivity(row pgx.Row) (domain.Activity, error) {
	var (
		activity     domain.Activity
		activityType string
		description  pgtype.Text
		userID       pgtype.Text
		userAvatar   pgtype.Text
		metadataJSON []byte
	)

	err := row.Scan(
		&activity.ID,
		&activity.WorkOrderID,
		&activityType,
		&activity.Title,
		&description,
		&userID,
		&activity.UserName,
		&userAvatar,
		&metadataJSON,
		&activity.CreatedAt,
	)
	if err != nil {
		return domain.Activity{}, err
	}

	activity.ActivityType = domain.ActivityType(activityType)
	activity.Description = description.String
	activity.UserID = userID.String
	activity.UserAvatar = userAvatar.String

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &activity.Metadata); err != nil {
			return domain.Activity{}, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}

	return activity, nil
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return json.Marshal(metadata)
}

func nullText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
