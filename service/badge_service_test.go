package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pyquest/events"
	"pyquest/models"
)

var badgeTestNow = time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)

func testCatalog() []*models.Badge {
	return []*models.Badge{
		{
			ID:        "first-lesson",
			Name:      "first_lesson",
			Title:     "First Steps",
			Condition: models.BadgeCondition{Type: models.ConditionLessonsCompleted, Target: 1},
			Rarity:    models.BadgeRarityCommon,
		},
		{
			ID:            "streak-7",
			Name:          "streak_7",
			Title:         "Week Warrior",
			Condition:     models.BadgeCondition{Type: models.ConditionLoginStreak, Target: 7},
			Rarity:        models.BadgeRarityEpic,
			DiamondReward: 50,
		},
		{
			ID:        "level-10",
			Name:      "level_10",
			Title:     "Pythonista",
			Condition: models.BadgeCondition{Type: models.ConditionLevelReached, Target: 10},
			Rarity:    models.BadgeRarityLegendary,
		},
	}
}

func newTestBadgeService(t *testing.T, m *mockSet) *badgeService {
	t.Helper()
	catalog, err := NewBadgeCatalog(m.badges, 16, time.Minute)
	require.NoError(t, err)
	svc := NewBadgeService(m.factory, NewRewardDispatcher(100), catalog).(*badgeService)
	svc.now = func() time.Time { return badgeTestNow }
	return svc
}

func TestBadgeService_EvaluateBadges_GrantsSatisfied(t *testing.T) {
	ctx := context.Background()
	m := newMockSet()
	m.expectTransaction(ctx, true)
	svc := newTestBadgeService(t, m)

	m.badges.On("ListAll", ctx).Return(testCatalog(), nil)
	m.users.On("GetByID", ctx, "user-1").Return(&models.User{ID: "user-1"}, nil)
	m.userBadges.On("ListByUser", ctx, "user-1").Return([]*models.UserBadge{}, nil)
	m.userBadges.On("Grant", ctx, "user-1", "first-lesson", badgeTestNow).Return(true, nil)
	m.userBadges.On("Grant", ctx, "user-1", "streak-7", badgeTestNow).Return(true, nil)

	// Only the streak badge carries a reward
	m.users.On("ApplyReward", ctx, "user-1", int64(50), int64(0), int64(100)).Return(&models.RewardBalance{
		UserID: "user-1", CurrentDiamonds: 50, TotalDiamonds: 50, Level: 1, PreviousLevel: 1,
	}, nil)
	m.expectLedgerRecord(ctx, 5, func(tx *models.DiamondTransaction) bool {
		return tx.Type == models.TransactionTypeAchievement &&
			tx.Amount == 50 &&
			tx.RelatedID != nil && *tx.RelatedID == "streak-7" &&
			tx.RelatedType != nil && *tx.RelatedType == models.RelatedTypeBadge
	})

	granted, err := svc.EvaluateBadges(ctx, "user-1", models.UserStats{
		LessonsCompleted: 3,
		LoginStreak:      7,
		Level:            4,
	})

	require.NoError(t, err)
	require.Len(t, granted, 2)
	assert.Equal(t, "first-lesson", granted[0].ID)
	assert.Equal(t, "streak-7", granted[1].ID)
	assert.Len(t, m.uow.Publisher().EventsOfType(events.EventTypeBadgeUnlocked), 2)
	m.assertAll(t)
}

func TestBadgeService_EvaluateBadges_SkipsOwned(t *testing.T) {
	ctx := context.Background()
	m := newMockSet()
	m.expectTransaction(ctx, true)
	svc := newTestBadgeService(t, m)

	m.badges.On("ListAll", ctx).Return(testCatalog(), nil)
	m.users.On("GetByID", ctx, "user-1").Return(&models.User{ID: "user-1"}, nil)
	m.userBadges.On("ListByUser", ctx, "user-1").Return([]*models.UserBadge{
		{UserID: "user-1", BadgeID: "first-lesson"},
		{UserID: "user-1", BadgeID: "streak-7"},
	}, nil)

	granted, err := svc.EvaluateBadges(ctx, "user-1", models.UserStats{LessonsCompleted: 10, LoginStreak: 30})

	require.NoError(t, err)
	assert.Empty(t, granted)
	m.userBadges.AssertNotCalled(t, "Grant", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.users.AssertNotCalled(t, "ApplyReward", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.assertAll(t)
}

func TestBadgeService_EvaluateBadges_LostRaceIsNotGranted(t *testing.T) {
	ctx := context.Background()
	m := newMockSet()
	m.expectTransaction(ctx, true)
	svc := newTestBadgeService(t, m)

	m.badges.On("ListAll", ctx).Return(testCatalog(), nil)
	m.users.On("GetByID", ctx, "user-1").Return(&models.User{ID: "user-1"}, nil)
	m.userBadges.On("ListByUser", ctx, "user-1").Return([]*models.UserBadge{}, nil)
	// A concurrent evaluation inserted the row first
	m.userBadges.On("Grant", ctx, "user-1", "streak-7", badgeTestNow).Return(false, nil)

	granted, err := svc.EvaluateBadges(ctx, "user-1", models.UserStats{LoginStreak: 7})

	require.NoError(t, err)
	assert.Empty(t, granted)
	assert.Empty(t, m.uow.Publisher().Events())
	m.users.AssertNotCalled(t, "ApplyReward", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.assertAll(t)
}

func TestBadgeService_EvaluateBadges_UnknownUser(t *testing.T) {
	ctx := context.Background()
	m := newMockSet()
	m.expectTransaction(ctx, false)
	svc := newTestBadgeService(t, m)

	m.badges.On("ListAll", ctx).Return(testCatalog(), nil)
	m.users.On("GetByID", ctx, "ghost").Return(nil, nil)

	_, err := svc.EvaluateBadges(ctx, "ghost", models.UserStats{LessonsCompleted: 1})

	assert.ErrorIs(t, err, ErrNotFound)
	m.assertAll(t)
}

func TestBadgeService_EvaluateBadges_GrantFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	m := newMockSet()
	m.expectTransaction(ctx, false)
	svc := newTestBadgeService(t, m)

	m.badges.On("ListAll", ctx).Return(testCatalog(), nil)
	m.users.On("GetByID", ctx, "user-1").Return(&models.User{ID: "user-1"}, nil)
	m.userBadges.On("ListByUser", ctx, "user-1").Return([]*models.UserBadge{}, nil)
	m.userBadges.On("Grant", ctx, "user-1", "first-lesson", badgeTestNow).Return(false, errors.New("connection lost"))

	_, err := svc.EvaluateBadges(ctx, "user-1", models.UserStats{LessonsCompleted: 1})

	assert.ErrorIs(t, err, ErrTransactionFailure)
	m.uow.AssertNotCalled(t, "Commit")
	m.assertAll(t)
}

func TestBadgeService_EvaluateBadges_UsesCachedCatalog(t *testing.T) {
	ctx := context.Background()
	m := newMockSet()
	m.factory.On("Create").Return(m.uow)
	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.uow.On("Commit").Return(nil)
	svc := newTestBadgeService(t, m)

	m.badges.On("ListAll", ctx).Return(testCatalog(), nil).Once()
	m.users.On("GetByID", ctx, "user-1").Return(&models.User{ID: "user-1"}, nil)
	m.userBadges.On("ListByUser", ctx, "user-1").Return([]*models.UserBadge{}, nil)

	for i := 0; i < 3; i++ {
		_, err := svc.EvaluateBadges(ctx, "user-1", models.UserStats{})
		require.NoError(t, err)
	}

	m.badges.AssertNumberOfCalls(t, "ListAll", 1)
	m.assertAll(t)
}

func TestBadgeService_EvaluateBadges_UnknownConditionIsInert(t *testing.T) {
	ctx := context.Background()
	m := newMockSet()
	m.expectTransaction(ctx, true)
	svc := newTestBadgeService(t, m)

	catalog := append(testCatalog(), &models.Badge{
		ID:            "challenge-3",
		Name:          "challenge_3",
		Title:         "Problem Solver",
		Condition:     models.BadgeCondition{Type: "challenges_solved", Target: 0},
		Rarity:        models.BadgeRarityRare,
		DiamondReward: 30,
	})
	m.badges.On("ListAll", ctx).Return(catalog, nil)
	m.users.On("GetByID", ctx, "user-1").Return(&models.User{ID: "user-1"}, nil)
	m.userBadges.On("ListByUser", ctx, "user-1").Return([]*models.UserBadge{}, nil)
	m.userBadges.On("Grant", ctx, "user-1", "first-lesson", badgeTestNow).Return(true, nil)

	granted, err := svc.EvaluateBadges(ctx, "user-1", models.UserStats{LessonsCompleted: 1})

	require.NoError(t, err)
	require.Len(t, granted, 1)
	assert.Equal(t, "first-lesson", granted[0].ID)
	m.assertAll(t)
}

func TestBadgeService_Badge(t *testing.T) {
	ctx := context.Background()
	m := newMockSet()
	svc := newTestBadgeService(t, m)

	m.badges.On("GetByID", ctx, "streak-7").Return(testCatalog()[1], nil).Once()
	m.badges.On("GetByID", ctx, "missing").Return(nil, nil).Once()

	badge, err := svc.Badge(ctx, "streak-7")
	require.NoError(t, err)
	assert.Equal(t, "Week Warrior", badge.Title)

	// Second lookup is served from the cache
	_, err = svc.Badge(ctx, "streak-7")
	require.NoError(t, err)

	_, err = svc.Badge(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	m.assertAll(t)
}

func TestBadgeService_UpsertBadge_InvalidatesCatalog(t *testing.T) {
	ctx := context.Background()
	m := newMockSet()
	m.expectTransaction(ctx, true)
	svc := newTestBadgeService(t, m)

	m.badges.On("ListAll", ctx).Return(testCatalog(), nil).Twice()

	badge := &models.Badge{
		ID:        "quiz-5",
		Name:      "quiz_5",
		Title:     "Quiz Taker",
		Condition: models.BadgeCondition{Type: models.ConditionQuizzesCompleted, Target: 5},
		Rarity:    models.BadgeRarityCommon,
	}
	m.badges.On("Upsert", ctx, badge).Return(nil)

	_, err := svc.Catalog(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.UpsertBadge(ctx, badge))
	assert.Equal(t, "general", badge.Category)

	_, err = svc.Catalog(ctx)
	require.NoError(t, err)
	m.badges.AssertNumberOfCalls(t, "ListAll", 2)
	m.assertAll(t)
}

func TestBadgeService_UpsertBadge_Validation(t *testing.T) {
	valid := func() *models.Badge {
		return &models.Badge{
			ID:        "b",
			Name:      "b",
			Title:     "B",
			Condition: models.BadgeCondition{Type: models.ConditionLevelReached, Target: 2},
			Rarity:    models.BadgeRarityRare,
		}
	}

	tests := []struct {
		name   string
		mutate func(b *models.Badge)
		err    error
	}{
		{"missing id", func(b *models.Badge) { b.ID = " " }, ErrInvalidBadge},
		{"missing title", func(b *models.Badge) { b.Title = "" }, ErrInvalidBadge},
		{"unknown condition", func(b *models.Badge) { b.Condition.Type = "challenges_solved" }, ErrInvalidBadge},
		{"unknown rarity", func(b *models.Badge) { b.Rarity = "MYTHIC" }, ErrInvalidBadge},
		{"negative reward", func(b *models.Badge) { b.DiamondReward = -1 }, ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockSet()
			svc := newTestBadgeService(t, m)
			badge := valid()
			tt.mutate(badge)

			err := svc.UpsertBadge(context.Background(), badge)
			assert.ErrorIs(t, err, tt.err)
			m.factory.AssertNotCalled(t, "Create")
		})
	}
}

func TestBadgeService_UpsertBadge_FailureKeepsCache(t *testing.T) {
	ctx := context.Background()
	m := newMockSet()
	m.expectTransaction(ctx, false)
	svc := newTestBadgeService(t, m)

	m.badges.On("ListAll", ctx).Return(testCatalog(), nil).Once()
	badge := testCatalog()[0]
	m.badges.On("Upsert", ctx, badge).Return(errors.New("connection reset"))

	_, err := svc.Catalog(ctx)
	require.NoError(t, err)

	err = svc.UpsertBadge(ctx, badge)
	assert.ErrorIs(t, err, ErrTransactionFailure)

	_, err = svc.Catalog(ctx)
	require.NoError(t, err)
	m.badges.AssertNumberOfCalls(t, "ListAll", 1)
	m.assertAll(t)
}
