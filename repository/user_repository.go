package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"pyquest/database"
	"pyquest/models"
)

// UserRepository implements the UserRepository interface
type UserRepository struct {
	q queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

// newUserRepositoryWithTx creates a new user repository with a transaction
func newUserRepositoryWithTx(tx queryable) *UserRepository {
	return &UserRepository{q: tx}
}

// GetByID retrieves a user by id
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	query := `
		SELECT id, username, email, role, current_diamonds, total_diamonds, level,
		       experience, login_streak, max_login_streak, last_login_at, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var user models.User
	err := r.q.QueryRow(ctx, query, userID).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Role,
		&user.CurrentDiamonds,
		&user.TotalDiamonds,
		&user.Level,
		&user.Experience,
		&user.LoginStreak,
		&user.MaxLoginStreak,
		&user.LastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}

	return &user, nil
}

// Create inserts a new user row. Zero-valued counters take the column defaults.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.Role == "" {
		user.Role = "USER"
	}
	if minLevel := models.LevelForExperience(user.Experience, models.DefaultExperiencePerLevel); user.Level < minLevel {
		user.Level = minLevel
	}

	query := `
		INSERT INTO users (id, username, email, role, current_diamonds, total_diamonds, level, experience)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.Role,
		user.CurrentDiamonds,
		user.TotalDiamonds,
		user.Level,
		user.Experience,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user %s: %w", user.ID, err)
	}

	return nil
}

// ApplyReward increments the reward counters by delta. The row lock taken by the
// CTE serializes concurrent rewards for the same user.
func (r *UserRepository) ApplyReward(ctx context.Context, userID string, diamonds, experience, experiencePerLevel int64) (*models.RewardBalance, error) {
	if experiencePerLevel <= 0 {
		experiencePerLevel = models.DefaultExperiencePerLevel
	}

	query := `
		WITH prev AS (
			SELECT id, level FROM users WHERE id = $1 FOR UPDATE
		)
		UPDATE users u
		SET current_diamonds = u.current_diamonds + $2,
		    total_diamonds = u.total_diamonds + $2,
		    experience = u.experience + $3,
		    level = GREATEST(u.level, 1 + (u.experience + $3) / $4),
		    updated_at = NOW()
		FROM prev
		WHERE u.id = prev.id
		RETURNING u.id, u.current_diamonds, u.total_diamonds, u.experience, u.level, prev.level
	`

	var balance models.RewardBalance
	err := r.q.QueryRow(ctx, query, userID, diamonds, experience, experiencePerLevel).Scan(
		&balance.UserID,
		&balance.CurrentDiamonds,
		&balance.TotalDiamonds,
		&balance.Experience,
		&balance.Level,
		&balance.PreviousLevel,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to apply reward for user %s: %w", userID, err)
	}

	return &balance, nil
}

// DeductDiamonds decrements the balance only when it covers amount
func (r *UserRepository) DeductDiamonds(ctx context.Context, userID string, amount int64) (*models.RewardBalance, error) {
	query := `
		UPDATE users
		SET current_diamonds = current_diamonds - $2,
		    updated_at = NOW()
		WHERE id = $1 AND current_diamonds >= $2
		RETURNING id, current_diamonds, total_diamonds, experience, level
	`

	var balance models.RewardBalance
	err := r.q.QueryRow(ctx, query, userID, amount).Scan(
		&balance.UserID,
		&balance.CurrentDiamonds,
		&balance.TotalDiamonds,
		&balance.Experience,
		&balance.Level,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to deduct diamonds for user %s: %w", userID, err)
	}
	balance.PreviousLevel = balance.Level

	return &balance, nil
}

// RecordLogin computes the new streak from the previous login in one statement.
// A login inside today keeps the streak, one inside yesterday extends it, and
// anything older starts a new streak of 1.
func (r *UserRepository) RecordLogin(ctx context.Context, userID string, at time.Time, today, yesterday models.DayBucket) (*models.LoginResult, error) {
	query := `
		WITH prev AS (
			SELECT id,
			       login_streak AS old_streak,
			       CASE
			           WHEN last_login_at >= $2 THEN GREATEST(login_streak, 1)
			           WHEN last_login_at >= $3 THEN login_streak + 1
			           ELSE 1
			       END AS new_streak
			FROM users
			WHERE id = $1
			FOR UPDATE
		)
		UPDATE users u
		SET login_streak = prev.new_streak,
		    max_login_streak = GREATEST(u.max_login_streak, prev.new_streak),
		    last_login_at = GREATEST(COALESCE(u.last_login_at, $4), $4),
		    updated_at = NOW()
		FROM prev
		WHERE u.id = prev.id
		RETURNING u.id, u.login_streak, u.max_login_streak, prev.old_streak
	`

	var (
		result    models.LoginResult
		oldStreak int
	)
	err := r.q.QueryRow(ctx, query, userID, today.Start, yesterday.Start, at).Scan(
		&result.UserID,
		&result.LoginStreak,
		&result.MaxLoginStreak,
		&oldStreak,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record login for user %s: %w", userID, err)
	}
	result.StreakExtended = result.LoginStreak == oldStreak+1

	return &result, nil
}
