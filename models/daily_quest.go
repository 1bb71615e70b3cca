package models

import (
	"time"
)

// QuestType identifies the activity a daily quest counts
type QuestType string

const (
	QuestTypeCompleteLesson QuestType = "COMPLETE_LESSON"
	QuestTypeSolveChallenge QuestType = "SOLVE_CHALLENGE"
	QuestTypeCompleteQuiz   QuestType = "COMPLETE_QUIZ"
	QuestTypeEarnExperience QuestType = "EARN_EXPERIENCE"
)

// IsValid checks if the quest type is one the tracker knows
func (qt QuestType) IsValid() bool {
	switch qt {
	case QuestTypeCompleteLesson, QuestTypeSolveChallenge, QuestTypeCompleteQuiz, QuestTypeEarnExperience:
		return true
	}
	return false
}

// DailyQuest is one user's progress on one quest type for one day
type DailyQuest struct {
	ID               int64      `db:"id"`
	UserID           string     `db:"user_id"`
	QuestType        QuestType  `db:"quest_type"`
	QuestDate        time.Time  `db:"quest_date"` // Start of the day bucket
	Progress         int        `db:"progress"`
	Target           int        `db:"target"`
	IsCompleted      bool       `db:"is_completed"`
	CompletedAt      *time.Time `db:"completed_at"`
	DiamondReward    int64      `db:"diamond_reward"`
	ExperienceReward int64      `db:"experience_reward"`
	CreatedAt        time.Time  `db:"created_at"`
}

// RemainingSteps returns how much progress is left before the target
func (q *DailyQuest) RemainingSteps() int {
	if q.Progress >= q.Target {
		return 0
	}
	return q.Target - q.Progress
}

// QuestTemplate is the catalog entry rollover uses to seed a day's quests
type QuestTemplate struct {
	QuestType        QuestType
	Target           int
	DiamondReward    int64
	ExperienceReward int64
}

// DefaultQuestCatalog is the set of quests every user receives each day
var DefaultQuestCatalog = []QuestTemplate{
	{QuestType: QuestTypeCompleteLesson, Target: 1, DiamondReward: 10, ExperienceReward: 20},
	{QuestType: QuestTypeSolveChallenge, Target: 3, DiamondReward: 25, ExperienceReward: 50},
	{QuestType: QuestTypeCompleteQuiz, Target: 2, DiamondReward: 15, ExperienceReward: 30},
	{QuestType: QuestTypeEarnExperience, Target: 100, DiamondReward: 20, ExperienceReward: 0},
}

// DayBucket is a midnight-aligned local day, [Start, End)
type DayBucket struct {
	Start time.Time
	End   time.Time
}

// DayBucketFor returns the local day containing t in loc.
// End is the next local midnight, so DST days are 23 or 25 hours long.
func DayBucketFor(t time.Time, loc *time.Location) DayBucket {
	if loc == nil {
		loc = time.Local
	}
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return DayBucket{
		Start: start,
		End:   start.AddDate(0, 0, 1),
	}
}

// Previous returns the bucket for the day before
func (b DayBucket) Previous() DayBucket {
	return DayBucket{
		Start: b.Start.AddDate(0, 0, -1),
		End:   b.Start,
	}
}

// QuestProgress is what the tracker reports after a progress call
type QuestProgress struct {
	QuestID     int64
	QuestType   QuestType
	Progress    int
	Target      int
	IsCompleted bool
	Completed   bool // True only on the call that reached the target
	Skipped     bool // No in-progress quest existed for today
}
