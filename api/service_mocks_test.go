package api

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"pyquest/models"
	"pyquest/service"
)

type mockRewardService struct{ mock.Mock }

func (m *mockRewardService) GrantReward(ctx context.Context, grant service.RewardGrant) (*models.DiamondTransaction, error) {
	args := m.Called(ctx, grant)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DiamondTransaction), args.Error(1)
}

type mockLedgerService struct{ mock.Mock }

func (m *mockLedgerService) SpendDiamonds(ctx context.Context, req service.SpendRequest) (*models.DiamondTransaction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DiamondTransaction), args.Error(1)
}

func (m *mockLedgerService) History(ctx context.Context, userID string, limit int) ([]*models.DiamondTransaction, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DiamondTransaction), args.Error(1)
}

func (m *mockLedgerService) Reconcile(ctx context.Context, userID string) (*models.LedgerReconciliation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LedgerReconciliation), args.Error(1)
}

type mockQuestService struct{ mock.Mock }

func (m *mockQuestService) RecordQuestProgress(ctx context.Context, userID string, questType models.QuestType, increment int) (*models.QuestProgress, error) {
	args := m.Called(ctx, userID, questType, increment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuestProgress), args.Error(1)
}

func (m *mockQuestService) TodayQuests(ctx context.Context, userID string) ([]*models.DailyQuest, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DailyQuest), args.Error(1)
}

func (m *mockQuestService) SeedDay(ctx context.Context, at time.Time) (int64, error) {
	args := m.Called(ctx, at)
	return args.Get(0).(int64), args.Error(1)
}

type mockBadgeService struct{ mock.Mock }

func (m *mockBadgeService) EvaluateBadges(ctx context.Context, userID string, stats models.UserStats) ([]*models.Badge, error) {
	args := m.Called(ctx, userID, stats)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Badge), args.Error(1)
}

func (m *mockBadgeService) UserBadges(ctx context.Context, userID string) ([]*models.UserBadge, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.UserBadge), args.Error(1)
}

func (m *mockBadgeService) Catalog(ctx context.Context) ([]*models.Badge, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Badge), args.Error(1)
}

func (m *mockBadgeService) Badge(ctx context.Context, badgeID string) (*models.Badge, error) {
	args := m.Called(ctx, badgeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Badge), args.Error(1)
}

func (m *mockBadgeService) UpsertBadge(ctx context.Context, badge *models.Badge) error {
	args := m.Called(ctx, badge)
	return args.Error(0)
}

func (m *mockBadgeService) InvalidateCatalog() {
	m.Called()
}

type mockLoginService struct{ mock.Mock }

func (m *mockLoginService) RecordLogin(ctx context.Context, userID string, at time.Time) (*models.LoginResult, error) {
	args := m.Called(ctx, userID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LoginResult), args.Error(1)
}
