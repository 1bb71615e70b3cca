package repository

import (
	"context"
	"fmt"
	"time"

	"pyquest/database"
	"pyquest/models"
)

// UserBadgeRepository implements the UserBadgeRepository interface
type UserBadgeRepository struct {
	q queryable
}

// NewUserBadgeRepository creates a new user badge repository
func NewUserBadgeRepository(db *database.DB) *UserBadgeRepository {
	return &UserBadgeRepository{q: db.Pool}
}

// newUserBadgeRepositoryWithTx creates a new user badge repository with a transaction
func newUserBadgeRepositoryWithTx(tx queryable) *UserBadgeRepository {
	return &UserBadgeRepository{q: tx}
}

// Grant inserts the unlock. The primary key makes a second grant a no-op,
// which is reported as false.
func (r *UserBadgeRepository) Grant(ctx context.Context, userID, badgeID string, at time.Time) (bool, error) {
	query := `
		INSERT INTO user_badges (user_id, badge_id, unlocked_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, badge_id) DO NOTHING
	`

	tag, err := r.q.Exec(ctx, query, userID, badgeID, at)
	if err != nil {
		return false, fmt.Errorf("failed to grant badge %s to user %s: %w", badgeID, userID, err)
	}

	return tag.RowsAffected() == 1, nil
}

// ListByUser returns a user's unlocked badges, oldest first
func (r *UserBadgeRepository) ListByUser(ctx context.Context, userID string) ([]*models.UserBadge, error) {
	query := `
		SELECT user_id, badge_id, unlocked_at
		FROM user_badges
		WHERE user_id = $1
		ORDER BY unlocked_at, badge_id
	`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list badges for user %s: %w", userID, err)
	}
	defer rows.Close()

	var badges []*models.UserBadge
	for rows.Next() {
		var ub models.UserBadge
		if err := rows.Scan(&ub.UserID, &ub.BadgeID, &ub.UnlockedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user badge: %w", err)
		}
		badges = append(badges, &ub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user badges: %w", err)
	}

	return badges, nil
}
