package api

import (
	"time"

	"pyquest/models"
	"pyquest/service"
)

// GrantRewardRequest is the body of POST /api/rewards
type GrantRewardRequest struct {
	UserID      string  `json:"userId"`
	Diamonds    int64   `json:"diamonds"`
	Experience  int64   `json:"experience"`
	Type        string  `json:"type"`
	Description string  `json:"description,omitempty"`
	RelatedID   *string `json:"relatedId,omitempty"`
	RelatedType *string `json:"relatedType,omitempty"`
}

func (r GrantRewardRequest) toGrant() service.RewardGrant {
	return service.RewardGrant{
		UserID:      r.UserID,
		Diamonds:    r.Diamonds,
		Experience:  r.Experience,
		Type:        models.TransactionType(r.Type),
		Description: r.Description,
		RelatedID:   r.RelatedID,
		RelatedType: relatedType(r.RelatedType),
	}
}

// QuestProgressRequest is the body of POST /api/me/quests/progress
type QuestProgressRequest struct {
	QuestType string `json:"questType"`
	Increment int    `json:"increment"`
}

// EvaluateBadgesRequest carries the caller's cumulative stats
type EvaluateBadgesRequest struct {
	LessonsCompleted int64 `json:"lessonsCompleted"`
	QuizzesCompleted int64 `json:"quizzesCompleted"`
	PerfectScores    int64 `json:"perfectScores"`
	LoginStreak      int64 `json:"loginStreak"`
	Level            int64 `json:"level"`
}

func (r EvaluateBadgesRequest) toStats() models.UserStats {
	return models.UserStats{
		LessonsCompleted: r.LessonsCompleted,
		QuizzesCompleted: r.QuizzesCompleted,
		PerfectScores:    r.PerfectScores,
		LoginStreak:      r.LoginStreak,
		Level:            r.Level,
	}
}

// UpsertBadgeRequest is the body of PUT /api/admin/badges/{id}
type UpsertBadgeRequest struct {
	Name             string            `json:"name"`
	Title            string            `json:"title"`
	Description      string            `json:"description,omitempty"`
	Condition        BadgeConditionDTO `json:"condition"`
	Rarity           string            `json:"rarity"`
	Category         string            `json:"category,omitempty"`
	DiamondReward    int64             `json:"diamondReward"`
	ExperienceReward int64             `json:"experienceReward"`
}

func (r UpsertBadgeRequest) toBadge(id string) *models.Badge {
	return &models.Badge{
		ID:               id,
		Name:             r.Name,
		Title:            r.Title,
		Description:      r.Description,
		Condition:        models.BadgeCondition{Type: models.ConditionType(r.Condition.Type), Target: r.Condition.Target},
		Rarity:           models.BadgeRarity(r.Rarity),
		Category:         r.Category,
		DiamondReward:    r.DiamondReward,
		ExperienceReward: r.ExperienceReward,
	}
}

// SpendDiamondsRequest is the body of POST /api/me/diamonds/spend
type SpendDiamondsRequest struct {
	Amount      int64   `json:"amount"`
	Description string  `json:"description,omitempty"`
	RelatedID   *string `json:"relatedId,omitempty"`
	RelatedType *string `json:"relatedType,omitempty"`
}

// TransactionDTO is one ledger row
type TransactionDTO struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"userId"`
	Amount       int64     `json:"amount"`
	BalanceAfter int64     `json:"balanceAfter"`
	Type         string    `json:"type"`
	Description  string    `json:"description"`
	RelatedID    *string   `json:"relatedId,omitempty"`
	RelatedType  *string   `json:"relatedType,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// QuestProgressDTO is the outcome of one progress call
type QuestProgressDTO struct {
	QuestID     int64  `json:"questId,omitempty"`
	QuestType   string `json:"questType"`
	Progress    int    `json:"progress"`
	Target      int    `json:"target"`
	IsCompleted bool   `json:"isCompleted"`
	Completed   bool   `json:"completed"`
	Skipped     bool   `json:"skipped"`
}

// QuestDTO is one of today's quests
type QuestDTO struct {
	ID               int64      `json:"id"`
	QuestType        string     `json:"questType"`
	QuestDate        time.Time  `json:"questDate"`
	Progress         int        `json:"progress"`
	Target           int        `json:"target"`
	Remaining        int        `json:"remaining"`
	IsCompleted      bool       `json:"isCompleted"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
	DiamondReward    int64      `json:"diamondReward"`
	ExperienceReward int64      `json:"experienceReward"`
}

// BadgeConditionDTO is the unlock rule of a badge
type BadgeConditionDTO struct {
	Type   string `json:"type"`
	Target int64  `json:"target"`
}

// BadgeDTO is a catalog badge
type BadgeDTO struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	Condition        BadgeConditionDTO `json:"condition"`
	Rarity           string            `json:"rarity"`
	Category         string            `json:"category"`
	DiamondReward    int64             `json:"diamondReward"`
	ExperienceReward int64             `json:"experienceReward"`
}

// UserBadgeDTO is an unlocked badge
type UserBadgeDTO struct {
	BadgeID    string    `json:"badgeId"`
	UnlockedAt time.Time `json:"unlockedAt"`
}

// LoginDTO is the streak after a login
type LoginDTO struct {
	LoginStreak    int  `json:"loginStreak"`
	MaxLoginStreak int  `json:"maxLoginStreak"`
	StreakExtended bool `json:"streakExtended"`
}

// ReconciliationDTO compares the ledger with the stored balance
type ReconciliationDTO struct {
	UserID          string `json:"userId"`
	LedgerSum       int64  `json:"ledgerSum"`
	CurrentDiamonds int64  `json:"currentDiamonds"`
	EntryCount      int64  `json:"entryCount"`
	Difference      int64  `json:"difference"`
	Balanced        bool   `json:"balanced"`
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

func relatedType(raw *string) *models.RelatedType {
	if raw == nil {
		return nil
	}
	rt := models.RelatedType(*raw)
	return &rt
}

func toTransactionDTO(t *models.DiamondTransaction) TransactionDTO {
	dto := TransactionDTO{
		ID:           t.ID,
		UserID:       t.UserID,
		Amount:       t.Amount,
		BalanceAfter: t.BalanceAfter,
		Type:         t.Type.String(),
		Description:  t.Description,
		RelatedID:    t.RelatedID,
		CreatedAt:    t.CreatedAt,
	}
	if t.RelatedType != nil {
		rt := string(*t.RelatedType)
		dto.RelatedType = &rt
	}
	return dto
}

func toQuestProgressDTO(p *models.QuestProgress) QuestProgressDTO {
	return QuestProgressDTO{
		QuestID:     p.QuestID,
		QuestType:   string(p.QuestType),
		Progress:    p.Progress,
		Target:      p.Target,
		IsCompleted: p.IsCompleted,
		Completed:   p.Completed,
		Skipped:     p.Skipped,
	}
}

func toQuestDTO(q *models.DailyQuest) QuestDTO {
	return QuestDTO{
		ID:               q.ID,
		QuestType:        string(q.QuestType),
		QuestDate:        q.QuestDate,
		Progress:         q.Progress,
		Target:           q.Target,
		Remaining:        q.RemainingSteps(),
		IsCompleted:      q.IsCompleted,
		CompletedAt:      q.CompletedAt,
		DiamondReward:    q.DiamondReward,
		ExperienceReward: q.ExperienceReward,
	}
}

func toBadgeDTO(b *models.Badge) BadgeDTO {
	return BadgeDTO{
		ID:               b.ID,
		Name:             b.Name,
		Title:            b.Title,
		Description:      b.Description,
		Condition:        BadgeConditionDTO{Type: string(b.Condition.Type), Target: b.Condition.Target},
		Rarity:           string(b.Rarity),
		Category:         b.Category,
		DiamondReward:    b.DiamondReward,
		ExperienceReward: b.ExperienceReward,
	}
}
