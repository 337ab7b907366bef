package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/fleetline/internal/domain"
)

// workOrderRepository implements WorkOrderRepository over Postgres.
type workOrderRepository struct {
	pool *pgxpool.Pool
}

// NewWorkOrderRepository creates a new work order repository.
func NewWorkOrderRepository(pool *pgxpool.Pool) WorkOrderRepository {
	return &workOrderRepository{pool: pool}
}

// Exists reports whether a work order row exists for id.
func (r *workOrderRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM work_orders WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check work order existence: %w", err)
	}
	return exists, nil
}

// Ping performs a lightweight store read, used by health checks.
func (r *workOrderRepository) Ping(ctx context.Context) error {
	var one int
	if err := r.pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("ping store: %w", err)
	}
	return nil
}

// userProfileRepository implements UserProfileRepository over Postgres.
type userProfileRepository struct {
	pool *pgxpool.Pool
}

// NewUserProfileRepository creates a new user profile repository.
func NewUserProfileRepository(pool *pgxpool.Pool) UserProfileRepository {
	return &userProfileRepository{pool: pool}
}

// GetByID returns the profile for id, or ErrNotFound when no row exists.
func (r *userProfileRepository) GetByID(ctx context.Context, id string) (domain.UserProfile, error) {
	var (
		profile   domain.UserProfile
		avatarURL pgtype.Text
	)
	err := r.pool.QueryRow(ctx,
		"SELECT id, display_name, avatar_url FROM user_profiles WHERE id = $1", id,
	).Scan(&profile.ID, &profile.DisplayName, &avatarURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserProfile{}, ErrNotFound
		}
		return domain.UserProfile{}, fmt.Errorf("get user profile: %w", err)
	}
	profile.AvatarURL = avatarURL.String
	return profile, nil
}
