package service

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"pyquest/events"
	"pyquest/models"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) ApplyReward(ctx context.Context, userID string, diamonds, experience, experiencePerLevel int64) (*models.RewardBalance, error) {
	args := m.Called(ctx, userID, diamonds, experience, experiencePerLevel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RewardBalance), args.Error(1)
}

func (m *MockUserRepository) DeductDiamonds(ctx context.Context, userID string, amount int64) (*models.RewardBalance, error) {
	args := m.Called(ctx, userID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RewardBalance), args.Error(1)
}

func (m *MockUserRepository) RecordLogin(ctx context.Context, userID string, at time.Time, today, yesterday models.DayBucket) (*models.LoginResult, error) {
	args := m.Called(ctx, userID, at, today, yesterday)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LoginResult), args.Error(1)
}

// MockDiamondTransactionRepository is a mock implementation of DiamondTransactionRepository
type MockDiamondTransactionRepository struct {
	mock.Mock
}

func (m *MockDiamondTransactionRepository) Record(ctx context.Context, transaction *models.DiamondTransaction) error {
	args := m.Called(ctx, transaction)
	return args.Error(0)
}

func (m *MockDiamondTransactionRepository) GetByUser(ctx context.Context, userID string, limit int) ([]*models.DiamondTransaction, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DiamondTransaction), args.Error(1)
}

func (m *MockDiamondTransactionRepository) Reconcile(ctx context.Context, userID string) (*models.LedgerReconciliation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LedgerReconciliation), args.Error(1)
}

// MockDailyQuestRepository is a mock implementation of DailyQuestRepository
type MockDailyQuestRepository struct {
	mock.Mock
}

func (m *MockDailyQuestRepository) IncrementProgress(ctx context.Context, userID string, questType models.QuestType, day models.DayBucket, increment int, at time.Time) (*models.DailyQuest, error) {
	args := m.Called(ctx, userID, questType, day, increment, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DailyQuest), args.Error(1)
}

func (m *MockDailyQuestRepository) GetForDay(ctx context.Context, userID string, questType models.QuestType, day models.DayBucket) (*models.DailyQuest, error) {
	args := m.Called(ctx, userID, questType, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DailyQuest), args.Error(1)
}

func (m *MockDailyQuestRepository) ListForDay(ctx context.Context, userID string, day models.DayBucket) ([]*models.DailyQuest, error) {
	args := m.Called(ctx, userID, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DailyQuest), args.Error(1)
}

func (m *MockDailyQuestRepository) SeedForDay(ctx context.Context, day models.DayBucket, templates []models.QuestTemplate) (int64, error) {
	args := m.Called(ctx, day, templates)
	return args.Get(0).(int64), args.Error(1)
}

// MockBadgeRepository is a mock implementation of BadgeRepository
type MockBadgeRepository struct {
	mock.Mock
}

func (m *MockBadgeRepository) ListAll(ctx context.Context) ([]*models.Badge, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Badge), args.Error(1)
}

func (m *MockBadgeRepository) GetByID(ctx context.Context, badgeID string) (*models.Badge, error) {
	args := m.Called(ctx, badgeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Badge), args.Error(1)
}

func (m *MockBadgeRepository) Upsert(ctx context.Context, badge *models.Badge) error {
	args := m.Called(ctx, badge)
	return args.Error(0)
}

// MockUserBadgeRepository is a mock implementation of UserBadgeRepository
type MockUserBadgeRepository struct {
	mock.Mock
}

func (m *MockUserBadgeRepository) Grant(ctx context.Context, userID, badgeID string, at time.Time) (bool, error) {
	args := m.Called(ctx, userID, badgeID, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserBadgeRepository) ListByUser(ctx context.Context, userID string) ([]*models.UserBadge, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.UserBadge), args.Error(1)
}

// MockEventPublisher records published events
type MockEventPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *MockEventPublisher) Publish(event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

// Events returns a copy of everything published so far
func (p *MockEventPublisher) Events() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Event, len(p.events))
	copy(out, p.events)
	return out
}

// EventsOfType returns the published events of one type
func (p *MockEventPublisher) EventsOfType(eventType events.EventType) []events.Event {
	var out []events.Event
	for _, ev := range p.Events() {
		if ev.Type() == eventType {
			out = append(out, ev)
		}
	}
	return out
}

// MockUnitOfWork is a mock implementation of UnitOfWork
type MockUnitOfWork struct {
	mock.Mock
	userRepo       UserRepository
	diamondTxRepo  DiamondTransactionRepository
	dailyQuestRepo DailyQuestRepository
	badgeRepo      BadgeRepository
	userBadgeRepo  UserBadgeRepository
	eventBus       *MockEventPublisher
}

// SetRepositories wires the repositories returned by the getters. Nil entries stay unset.
func (m *MockUnitOfWork) SetRepositories(userRepo UserRepository, diamondTxRepo DiamondTransactionRepository, dailyQuestRepo DailyQuestRepository, badgeRepo BadgeRepository, userBadgeRepo UserBadgeRepository) {
	m.userRepo = userRepo
	m.diamondTxRepo = diamondTxRepo
	m.dailyQuestRepo = dailyQuestRepo
	m.badgeRepo = badgeRepo
	m.userBadgeRepo = userBadgeRepo
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) UserRepository() UserRepository {
	return m.userRepo
}

func (m *MockUnitOfWork) DiamondTransactionRepository() DiamondTransactionRepository {
	return m.diamondTxRepo
}

func (m *MockUnitOfWork) DailyQuestRepository() DailyQuestRepository {
	return m.dailyQuestRepo
}

func (m *MockUnitOfWork) BadgeRepository() BadgeRepository {
	return m.badgeRepo
}

func (m *MockUnitOfWork) UserBadgeRepository() UserBadgeRepository {
	return m.userBadgeRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.Publisher()
}

// Publisher returns the recording publisher behind EventBus
func (m *MockUnitOfWork) Publisher() *MockEventPublisher {
	if m.eventBus == nil {
		m.eventBus = &MockEventPublisher{}
	}
	return m.eventBus
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
