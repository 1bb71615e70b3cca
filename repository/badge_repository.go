package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"pyquest/database"
	"pyquest/models"
)

const badgeColumns = `id, name, title, description, condition, rarity, category,
	diamond_reward, experience_reward, created_at`

// errInvalidCondition marks a stored row whose condition cannot be decoded
var errInvalidCondition = errors.New("invalid badge condition")

// BadgeRepository implements the BadgeRepository interface.
// Conditions are parsed into typed values as rows are read.
type BadgeRepository struct {
	q queryable
}

// NewBadgeRepository creates a new badge repository
func NewBadgeRepository(db *database.DB) *BadgeRepository {
	return &BadgeRepository{q: db.Pool}
}

// newBadgeRepositoryWithTx creates a new badge repository with a transaction
func newBadgeRepositoryWithTx(tx queryable) *BadgeRepository {
	return &BadgeRepository{q: tx}
}

// ListAll returns the catalog ordered by creation then id. Rows with an undecodable
// condition are skipped so one bad entry cannot take the whole catalog down.
func (r *BadgeRepository) ListAll(ctx context.Context) ([]*models.Badge, error) {
	query := `SELECT ` + badgeColumns + ` FROM badges ORDER BY created_at, id`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", err)
	}
	defer rows.Close()

	var badges []*models.Badge
	for rows.Next() {
		badge, err := scanBadge(rows)
		if errors.Is(err, errInvalidCondition) {
			log.WithError(err).Warn("Skipping badge with invalid condition")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		badges = append(badges, badge)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating badges: %w", err)
	}

	return badges, nil
}

// GetByID retrieves a badge by id
func (r *BadgeRepository) GetByID(ctx context.Context, badgeID string) (*models.Badge, error) {
	query := `SELECT ` + badgeColumns + ` FROM badges WHERE id = $1`

	badge, err := scanBadge(r.q.QueryRow(ctx, query, badgeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get badge %s: %w", badgeID, err)
	}

	return badge, nil
}

// Upsert creates or replaces a catalog entry
func (r *BadgeRepository) Upsert(ctx context.Context, badge *models.Badge) error {
	condition, err := badge.Condition.MarshalCondition()
	if err != nil {
		return fmt.Errorf("failed to encode condition for badge %s: %w", badge.ID, err)
	}

	query := `
		INSERT INTO badges (id, name, title, description, condition, rarity, category, diamond_reward, experience_reward)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			condition = EXCLUDED.condition,
			rarity = EXCLUDED.rarity,
			category = EXCLUDED.category,
			diamond_reward = EXCLUDED.diamond_reward,
			experience_reward = EXCLUDED.experience_reward
		RETURNING created_at
	`

	err = r.q.QueryRow(ctx, query,
		badge.ID,
		badge.Name,
		badge.Title,
		badge.Description,
		condition,
		string(badge.Rarity),
		badge.Category,
		badge.DiamondReward,
		badge.ExperienceReward,
	).Scan(&badge.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert badge %s: %w", badge.ID, err)
	}

	return nil
}

func scanBadge(row pgx.Row) (*models.Badge, error) {
	var (
		badge     models.Badge
		condition []byte
		rarity    string
	)
	err := row.Scan(
		&badge.ID,
		&badge.Name,
		&badge.Title,
		&badge.Description,
		&condition,
		&rarity,
		&badge.Category,
		&badge.DiamondReward,
		&badge.ExperienceReward,
		&badge.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	badge.Condition, err = models.ParseBadgeCondition(condition)
	if err != nil {
		return nil, fmt.Errorf("%w: badge %s: %v", errInvalidCondition, badge.ID, err)
	}
	badge.Rarity = models.BadgeRarity(rarity)

	return &badge, nil
}
