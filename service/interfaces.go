package service

import (
	"context"
	"time"

	"pyquest/events"
	"pyquest/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// GetByID retrieves a user by id, returning nil when no such user exists
	GetByID(ctx context.Context, userID string) (*models.User, error)

	// Create inserts a new user row
	Create(ctx context.Context, user *models.User) error

	// ApplyReward increments diamonds, lifetime diamonds and experience by delta in one
	// statement and raises the level to match the new experience. Returns nil when the
	// user does not exist.
	ApplyReward(ctx context.Context, userID string, diamonds, experience, experiencePerLevel int64) (*models.RewardBalance, error)

	// DeductDiamonds decrements the balance only if it covers amount. Returns nil when the
	// user does not exist or cannot afford it.
	DeductDiamonds(ctx context.Context, userID string, amount int64) (*models.RewardBalance, error)

	// RecordLogin advances the login streak for a login at the given time. today and
	// yesterday are the local day buckets around at. Returns nil when the user does not exist.
	RecordLogin(ctx context.Context, userID string, at time.Time, today, yesterday models.DayBucket) (*models.LoginResult, error)
}

// DiamondTransactionRepository defines the interface for the append-only diamond ledger
type DiamondTransactionRepository interface {
	// Record appends a ledger row and fills in its id and creation time
	Record(ctx context.Context, transaction *models.DiamondTransaction) error

	// GetByUser returns the newest ledger rows for a user
	GetByUser(ctx context.Context, userID string, limit int) ([]*models.DiamondTransaction, error)

	// Reconcile sums a user's ledger and compares it with the stored balance.
	// Returns nil when the user does not exist.
	Reconcile(ctx context.Context, userID string) (*models.LedgerReconciliation, error)
}

// DailyQuestRepository defines the interface for daily quest progress
type DailyQuestRepository interface {
	// IncrementProgress adds increment to the in-progress quest for the day, clamped to
	// its target, marking it completed when the target is reached. Returns nil when no
	// in-progress row exists.
	IncrementProgress(ctx context.Context, userID string, questType models.QuestType, day models.DayBucket, increment int, at time.Time) (*models.DailyQuest, error)

	// GetForDay returns the quest row for the day regardless of state, or nil
	GetForDay(ctx context.Context, userID string, questType models.QuestType, day models.DayBucket) (*models.DailyQuest, error)

	// ListForDay returns all of a user's quest rows for the day
	ListForDay(ctx context.Context, userID string, day models.DayBucket) ([]*models.DailyQuest, error)

	// SeedForDay creates the day's quests for every user, skipping rows that already exist.
	// Returns the number of rows created.
	SeedForDay(ctx context.Context, day models.DayBucket, templates []models.QuestTemplate) (int64, error)
}

// BadgeRepository defines the interface for the badge catalog
type BadgeRepository interface {
	// ListAll returns every badge in catalog order
	ListAll(ctx context.Context) ([]*models.Badge, error)

	// GetByID retrieves a badge by id, returning nil when not found
	GetByID(ctx context.Context, badgeID string) (*models.Badge, error)

	// Upsert creates or replaces a catalog entry
	Upsert(ctx context.Context, badge *models.Badge) error
}

// UserBadgeRepository defines the interface for unlocked badges
type UserBadgeRepository interface {
	// Grant records the unlock, reporting false when the user already owned the badge
	Grant(ctx context.Context, userID, badgeID string, at time.Time) (bool, error)

	// ListByUser returns a user's unlocked badges, oldest first
	ListByUser(ctx context.Context, userID string) ([]*models.UserBadge, error)
}

// EventPublisher collects events inside a unit of work
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes queued events
	Commit() error

	// Rollback rolls back the transaction and discards queued events
	Rollback() error

	// Repository getters
	UserRepository() UserRepository
	DiamondTransactionRepository() DiamondTransactionRepository
	DailyQuestRepository() DailyQuestRepository
	BadgeRepository() BadgeRepository
	UserBadgeRepository() UserBadgeRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// RewardService grants diamonds and experience
type RewardService interface {
	// GrantReward applies a reward and appends its ledger row in one transaction
	GrantReward(ctx context.Context, grant RewardGrant) (*models.DiamondTransaction, error)
}

// LedgerService exposes spending and the audit trail
type LedgerService interface {
	// SpendDiamonds debits diamonds for a purchase
	SpendDiamonds(ctx context.Context, req SpendRequest) (*models.DiamondTransaction, error)

	// History returns the newest ledger rows for a user
	History(ctx context.Context, userID string, limit int) ([]*models.DiamondTransaction, error)

	// Reconcile compares the ledger with the stored balance
	Reconcile(ctx context.Context, userID string) (*models.LedgerReconciliation, error)
}

// QuestService tracks daily quest progress
type QuestService interface {
	// RecordQuestProgress advances today's quest of the given type
	RecordQuestProgress(ctx context.Context, userID string, questType models.QuestType, increment int) (*models.QuestProgress, error)

	// TodayQuests lists the user's quests for the current day
	TodayQuests(ctx context.Context, userID string) ([]*models.DailyQuest, error)

	// SeedDay creates the quests for the day containing at for every user
	SeedDay(ctx context.Context, at time.Time) (int64, error)
}

// BadgeService evaluates and grants badges
type BadgeService interface {
	// EvaluateBadges grants every unowned badge whose condition the stats satisfy
	EvaluateBadges(ctx context.Context, userID string, stats models.UserStats) ([]*models.Badge, error)

	// UserBadges lists badges a user unlocked
	UserBadges(ctx context.Context, userID string) ([]*models.UserBadge, error)

	// Catalog returns every badge, served from the catalog cache
	Catalog(ctx context.Context) ([]*models.Badge, error)

	// Badge returns one catalog badge
	Badge(ctx context.Context, badgeID string) (*models.Badge, error)

	// UpsertBadge creates or replaces a catalog badge and invalidates the cache
	UpsertBadge(ctx context.Context, badge *models.Badge) error

	// InvalidateCatalog drops the cached badge catalog
	InvalidateCatalog()
}

// LoginService records daily logins and streak bonuses
type LoginService interface {
	// RecordLogin updates the streak for a login at the given time
	RecordLogin(ctx context.Context, userID string, at time.Time) (*models.LoginResult, error)
}
