package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	"pyquest/models"
)

// mockSet bundles a unit of work with every repository mock
type mockSet struct {
	factory    *MockUnitOfWorkFactory
	uow        *MockUnitOfWork
	users      *MockUserRepository
	ledger     *MockDiamondTransactionRepository
	quests     *MockDailyQuestRepository
	badges     *MockBadgeRepository
	userBadges *MockUserBadgeRepository
}

func newMockSet() *mockSet {
	m := &mockSet{
		factory:    new(MockUnitOfWorkFactory),
		uow:        new(MockUnitOfWork),
		users:      new(MockUserRepository),
		ledger:     new(MockDiamondTransactionRepository),
		quests:     new(MockDailyQuestRepository),
		badges:     new(MockBadgeRepository),
		userBadges: new(MockUserBadgeRepository),
	}
	m.uow.SetRepositories(m.users, m.ledger, m.quests, m.badges, m.userBadges)
	return m
}

// expectTransaction sets up Create, Begin and Rollback, plus Commit when commit is true
func (m *mockSet) expectTransaction(ctx context.Context, commit bool) {
	m.factory.On("Create").Return(m.uow)
	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)
	if commit {
		m.uow.On("Commit").Return(nil)
	}
}

// expectLedgerRecord accepts one ledger insert matching fn and assigns it id
func (m *mockSet) expectLedgerRecord(ctx context.Context, id int64, fn func(tx *models.DiamondTransaction) bool) *mock.Call {
	return m.ledger.On("Record", ctx, mock.MatchedBy(fn)).Return(nil).Run(func(args mock.Arguments) {
		tx := args.Get(1).(*models.DiamondTransaction)
		tx.ID = id
	})
}

func (m *mockSet) assertAll(t *testing.T) {
	t.Helper()
	m.factory.AssertExpectations(t)
	m.uow.AssertExpectations(t)
	m.users.AssertExpectations(t)
	m.ledger.AssertExpectations(t)
	m.quests.AssertExpectations(t)
	m.badges.AssertExpectations(t)
	m.userBadges.AssertExpectations(t)
}

func strPtr(s string) *string {
	return &s
}
