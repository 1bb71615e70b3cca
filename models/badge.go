package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ConditionType is the statistic a badge condition is measured against
type ConditionType string

const (
	ConditionLessonsCompleted ConditionType = "lessons_completed"
	ConditionQuizzesCompleted ConditionType = "quizzes_completed"
	ConditionPerfectScore     ConditionType = "perfect_score"
	ConditionLoginStreak      ConditionType = "login_streak"
	ConditionLevelReached     ConditionType = "level_reached"
)

// IsValid reports whether the condition type is one the evaluator knows
func (ct ConditionType) IsValid() bool {
	switch ct {
	case ConditionLessonsCompleted,
		ConditionQuizzesCompleted,
		ConditionPerfectScore,
		ConditionLoginStreak,
		ConditionLevelReached:
		return true
	}
	return false
}

// BadgeCondition is the typed unlock rule stored as JSON on a badge
type BadgeCondition struct {
	Type   ConditionType `json:"type"`
	Target int64         `json:"target"`
}

// ParseBadgeCondition decodes the stored JSON form of a condition. Unknown types are
// kept so the badge stays in the catalog as one that never unlocks.
func ParseBadgeCondition(raw []byte) (BadgeCondition, error) {
	var cond BadgeCondition
	if len(raw) == 0 {
		return cond, fmt.Errorf("empty badge condition")
	}
	if err := json.Unmarshal(raw, &cond); err != nil {
		return cond, fmt.Errorf("failed to parse badge condition: %w", err)
	}
	if cond.Target < 0 {
		return cond, fmt.Errorf("badge condition target must not be negative")
	}
	return cond, nil
}

// Validate rejects conditions the evaluator cannot measure. Used for catalog writes.
func (c BadgeCondition) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("unknown badge condition type %q", c.Type)
	}
	if c.Target < 0 {
		return fmt.Errorf("badge condition target must not be negative")
	}
	return nil
}

// MarshalCondition encodes a condition for storage
func (c BadgeCondition) MarshalCondition() ([]byte, error) {
	return json.Marshal(c)
}

// SatisfiedBy reports whether the stats meet the condition.
// Unknown condition types are never satisfied.
func (c BadgeCondition) SatisfiedBy(stats UserStats) bool {
	value, ok := stats.ValueFor(c.Type)
	if !ok {
		return false
	}
	return value >= c.Target
}

// BadgeRarity is the display tier of a badge
type BadgeRarity string

const (
	BadgeRarityCommon    BadgeRarity = "COMMON"
	BadgeRarityRare      BadgeRarity = "RARE"
	BadgeRarityEpic      BadgeRarity = "EPIC"
	BadgeRarityLegendary BadgeRarity = "LEGENDARY"
)

// IsValid reports whether the rarity is a known tier
func (r BadgeRarity) IsValid() bool {
	switch r {
	case BadgeRarityCommon, BadgeRarityRare, BadgeRarityEpic, BadgeRarityLegendary:
		return true
	}
	return false
}

// Badge is a catalog entry that users unlock once its condition holds
type Badge struct {
	ID               string         `db:"id"`
	Name             string         `db:"name"`
	Title            string         `db:"title"`
	Description      string         `db:"description"`
	Condition        BadgeCondition `db:"condition"`
	Rarity           BadgeRarity    `db:"rarity"`
	Category         string         `db:"category"`
	DiamondReward    int64          `db:"diamond_reward"`
	ExperienceReward int64          `db:"experience_reward"`
	CreatedAt        time.Time      `db:"created_at"`
}

// HasReward reports whether unlocking the badge grants anything
func (b *Badge) HasReward() bool {
	return b.DiamondReward > 0 || b.ExperienceReward > 0
}

// UserBadge records that a user unlocked a badge
type UserBadge struct {
	UserID     string    `db:"user_id"`
	BadgeID    string    `db:"badge_id"`
	UnlockedAt time.Time `db:"unlocked_at"`
}

// UserStats is the cumulative snapshot badge conditions are checked against
type UserStats struct {
	LessonsCompleted int64 `json:"lessonsCompleted"`
	QuizzesCompleted int64 `json:"quizzesCompleted"`
	PerfectScores    int64 `json:"perfectScores"`
	LoginStreak      int64 `json:"loginStreak"`
	Level            int64 `json:"level"`
}

// ValueFor returns the stat a condition type measures
func (s UserStats) ValueFor(ct ConditionType) (int64, bool) {
	switch ct {
	case ConditionLessonsCompleted:
		return s.LessonsCompleted, true
	case ConditionQuizzesCompleted:
		return s.QuizzesCompleted, true
	case ConditionPerfectScore:
		return s.PerfectScores, true
	case ConditionLoginStreak:
		return s.LoginStreak, true
	case ConditionLevelReached:
		return s.Level, true
	}
	return 0, false
}
