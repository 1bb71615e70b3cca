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

const dailyQuestColumns = `id, user_id, quest_type, quest_date, progress, target, is_completed,
	completed_at, diamond_reward, experience_reward, created_at`

// DailyQuestRepository implements the DailyQuestRepository interface
type DailyQuestRepository struct {
	q queryable
}

// NewDailyQuestRepository creates a new daily quest repository
func NewDailyQuestRepository(db *database.DB) *DailyQuestRepository {
	return &DailyQuestRepository{q: db.Pool}
}

// newDailyQuestRepositoryWithTx creates a new daily quest repository with a transaction
func newDailyQuestRepositoryWithTx(tx queryable) *DailyQuestRepository {
	return &DailyQuestRepository{q: tx}
}

// IncrementProgress advances the in-progress row in a single statement. Concurrent
// callers serialize on the row lock and re-check NOT is_completed after acquiring
// it, so exactly one of them observes the completing transition.
func (r *DailyQuestRepository) IncrementProgress(ctx context.Context, userID string, questType models.QuestType, day models.DayBucket, increment int, at time.Time) (*models.DailyQuest, error) {
	query := `
		UPDATE daily_quests
		SET progress = LEAST(progress::BIGINT + $5, target),
		    is_completed = (progress::BIGINT + $5 >= target),
		    completed_at = CASE WHEN progress::BIGINT + $5 >= target THEN $6::TIMESTAMPTZ ELSE NULL END
		WHERE user_id = $1
		  AND quest_type = $2
		  AND quest_date >= $3
		  AND quest_date < $4
		  AND NOT is_completed
		RETURNING ` + dailyQuestColumns

	quest, err := scanDailyQuest(r.q.QueryRow(ctx, query,
		userID, string(questType), day.Start, day.End, int64(increment), at))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to increment %s quest for user %s: %w", questType, userID, err)
	}

	return quest, nil
}

// GetForDay returns the quest row for the day regardless of state
func (r *DailyQuestRepository) GetForDay(ctx context.Context, userID string, questType models.QuestType, day models.DayBucket) (*models.DailyQuest, error) {
	query := `
		SELECT ` + dailyQuestColumns + `
		FROM daily_quests
		WHERE user_id = $1 AND quest_type = $2 AND quest_date >= $3 AND quest_date < $4
		ORDER BY quest_date
		LIMIT 1
	`

	quest, err := scanDailyQuest(r.q.QueryRow(ctx, query, userID, string(questType), day.Start, day.End))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s quest for user %s: %w", questType, userID, err)
	}

	return quest, nil
}

// ListForDay returns all of a user's quests for the day
func (r *DailyQuestRepository) ListForDay(ctx context.Context, userID string, day models.DayBucket) ([]*models.DailyQuest, error) {
	query := `
		SELECT ` + dailyQuestColumns + `
		FROM daily_quests
		WHERE user_id = $1 AND quest_date >= $2 AND quest_date < $3
		ORDER BY quest_type
	`

	rows, err := r.q.Query(ctx, query, userID, day.Start, day.End)
	if err != nil {
		return nil, fmt.Errorf("failed to list quests for user %s: %w", userID, err)
	}
	defer rows.Close()

	var quests []*models.DailyQuest
	for rows.Next() {
		quest, err := scanDailyQuest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily quest: %w", err)
		}
		quests = append(quests, quest)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily quests: %w", err)
	}

	return quests, nil
}

// SeedForDay inserts one row per user and template. Existing rows are left untouched.
func (r *DailyQuestRepository) SeedForDay(ctx context.Context, day models.DayBucket, templates []models.QuestTemplate) (int64, error) {
	query := `
		INSERT INTO daily_quests (user_id, quest_type, quest_date, target, diamond_reward, experience_reward)
		SELECT u.id, $1::TEXT, $2::TIMESTAMPTZ, $3::INTEGER, $4::BIGINT, $5::BIGINT
		FROM users u
		ON CONFLICT (user_id, quest_type, quest_date) DO NOTHING
	`

	var created int64
	for _, tmpl := range templates {
		if tmpl.Target <= 0 {
			return created, fmt.Errorf("quest template %s has non-positive target %d", tmpl.QuestType, tmpl.Target)
		}
		tag, err := r.q.Exec(ctx, query,
			string(tmpl.QuestType), day.Start, tmpl.Target, tmpl.DiamondReward, tmpl.ExperienceReward)
		if err != nil {
			return created, fmt.Errorf("failed to seed %s quests: %w", tmpl.QuestType, err)
		}
		created += tag.RowsAffected()
	}

	return created, nil
}

func scanDailyQuest(row pgx.Row) (*models.DailyQuest, error) {
	var (
		quest     models.DailyQuest
		questType string
	)
	err := row.Scan(
		&quest.ID,
		&quest.UserID,
		&questType,
		&quest.QuestDate,
		&quest.Progress,
		&quest.Target,
		&quest.IsCompleted,
		&quest.CompletedAt,
		&quest.DiamondReward,
		&quest.ExperienceReward,
		&quest.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	quest.QuestType = models.QuestType(questType)
	return &quest, nil
}
