package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"pyquest/database"
	"pyquest/models"
)

// CreateTestUser creates a test user with default values
func CreateTestUser(id, username string) *models.User {
	now := time.Now()
	return &models.User{
		ID:        id,
		Username:  username,
		Email:     username + "@pyquest.test",
		Role:      "USER",
		Level:     1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CreateTestUserWithDiamonds creates a test user holding a balance
func CreateTestUserWithDiamonds(id, username string, diamonds int64) *models.User {
	user := CreateTestUser(id, username)
	user.CurrentDiamonds = diamonds
	user.TotalDiamonds = diamonds
	return user
}

// CreateTestBadge creates a catalog badge with a single condition
func CreateTestBadge(id string, conditionType models.ConditionType, target int64) *models.Badge {
	return &models.Badge{
		ID:          id,
		Name:        id,
		Title:       "Badge " + id,
		Description: "test badge",
		Condition: models.BadgeCondition{
			Type:   conditionType,
			Target: target,
		},
		Rarity:   models.BadgeRarityCommon,
		Category: "test",
	}
}

const insertUserSQL = `
	INSERT INTO users (id, username, email, role, current_diamonds, total_diamonds, level, experience)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// InsertUser writes a user straight through the pool
func InsertUser(t *testing.T, db *database.DB, user *models.User) {
	t.Helper()
	InsertUsers(t, db, user)
}

// InsertUsers writes all users in one transaction
func InsertUsers(t *testing.T, db *database.DB, users ...*models.User) {
	t.Helper()
	err := db.WithTransaction(context.Background(), func(tx pgx.Tx) error {
		for _, user := range users {
			_, err := tx.Exec(context.Background(), insertUserSQL,
				user.ID, user.Username, user.Email, user.Role,
				user.CurrentDiamonds, user.TotalDiamonds, user.Level, user.Experience,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

// InsertDailyQuest creates a quest row for the day starting at day.Start
func InsertDailyQuest(t *testing.T, db *database.DB, userID string, questType models.QuestType, day models.DayBucket, target int, diamonds, experience int64) int64 {
	t.Helper()
	var id int64
	err := db.QueryRow(context.Background(), `
		INSERT INTO daily_quests (user_id, quest_type, quest_date, target, diamond_reward, experience_reward)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		userID, string(questType), day.Start, target, diamonds, experience,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

// ClearBadgeCatalog removes the seeded catalog so tests control every badge
func ClearBadgeCatalog(t *testing.T, db *database.DB) {
	t.Helper()
	_, err := db.Exec(context.Background(), `DELETE FROM badges`)
	require.NoError(t, err)
}
