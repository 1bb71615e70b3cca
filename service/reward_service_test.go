package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pyquest/events"
	"pyquest/models"
)

func TestRewardService_GrantReward_AddsToBalance(t *testing.T) {
	ctx := context.Background()
	m := newMockSet()
	m.expectTransaction(ctx, true)

	svc := NewRewardService(m.factory, NewRewardDispatcher(100))

	// User starts at 100 diamonds
	m.users.On("ApplyReward", ctx, "user-1", int64(50), int64(0), int64(100)).Return(&models.RewardBalance{
		UserID:          "user-1",
		CurrentDiamonds: 150,
		TotalDiamonds:   150,
		Level:           1,
		PreviousLevel:   1,
	}, nil)
	m.expectLedgerRecord(ctx, 42, func(tx *models.DiamondTransaction) bool {
		return tx.UserID == "user-1" &&
			tx.Amount == 50 &&
			tx.BalanceAfter == 150 &&
			tx.Type == models.TransactionTypeEarned
	})

	tx, err := svc.GrantReward(ctx, RewardGrant{
		UserID:      "user-1",
		Diamonds:    50,
		Type:        models.TransactionTypeEarned,
		Description: "Lesson completed",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(42), tx.ID)
	assert.Equal(t, int64(50), tx.Amount)
	assert.Equal(t, int64(150), tx.BalanceAfter)
	assert.Equal(t, "Lesson completed", tx.Description)

	published := m.uow.Publisher().EventsOfType(events.EventTypeDiamondsGranted)
	require.Len(t, published, 1)
	granted := published[0].(events.DiamondsGrantedEvent)
	assert.Equal(t, int64(42), granted.TransactionID)
	assert.Equal(t, int64(150), granted.BalanceAfter)
	assert.Empty(t, m.uow.Publisher().EventsOfType(events.EventTypeLevelUp))

	m.assertAll(t)
}

func TestRewardService_GrantReward_RejectsNegativeAmounts(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		grant RewardGrant
	}{
		{
			name:  "negative diamonds",
			grant: RewardGrant{UserID: "user-1", Diamonds: -1, Type: models.TransactionTypeEarned},
		},
		{
			name:  "negative experience",
			grant: RewardGrant{UserID: "user-1", Experience: -10, Type: models.TransactionTypeEarned},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockSet()
			svc := NewRewardService(m.factory, NewRewardDispatcher(100))

			_, err := svc.GrantReward(ctx, tt.grant)

			assert.ErrorIs(t, err, ErrInvalidAmount)
			m.factory.AssertNotCalled(t, "Create")
			m.users.AssertNotCalled(t, "ApplyReward", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRewardService_GrantReward_RejectsDebitType(t *testing.T) {
	m := newMockSet()
	svc := NewRewardService(m.factory, NewRewardDispatcher(100))

	_, err := svc.GrantReward(context.Background(), RewardGrant{
		UserID:   "user-1",
		Diamonds: 10,
		Type:     models.TransactionTypeSpent,
	})

	assert.ErrorIs(t, err, ErrInvalidTransactionType)
	m.factory.AssertNotCalled(t, "Create")
}

func TestRewardService_GrantReward_UnknownUser(t *testing.T) {
	ctx := context.Background()
	m := newMockSet()
	m.expectTransaction(ctx, false)

	svc := NewRewardService(m.factory, NewRewardDispatcher(100))

	m.users.On("ApplyReward", ctx, "ghost", int64(10), int64(5), int64(100)).Return(nil, nil)

	_, err := svc.GrantReward(ctx, RewardGrant{
		UserID:     "ghost",
		Diamonds:   10,
		Experience: 5,
		Type:       models.TransactionTypeEarned,
	})

	assert.ErrorIs(t, err, ErrNotFound)
	m.uow.AssertNotCalled(t, "Commit")
	m.ledger.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	assert.Empty(t, m.uow.Publisher().Events())
	m.assertAll(t)
}

func TestRewardService_GrantReward_LedgerFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	m := newMockSet()
	m.expectTransaction(ctx, false)

	svc := NewRewardService(m.factory, NewRewardDispatcher(100))

	m.users.On("ApplyReward", ctx, "user-1", int64(10), int64(0), int64(100)).Return(&models.RewardBalance{
		UserID:          "user-1",
		CurrentDiamonds: 110,
		Level:           1,
		PreviousLevel:   1,
	}, nil)
	m.ledger.On("Record", ctx, mock.Anything).Return(errors.New("connection reset"))

	_, err := svc.GrantReward(ctx, RewardGrant{
		UserID:   "user-1",
		Diamonds: 10,
		Type:     models.TransactionTypeEarned,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransactionFailure)
	assert.True(t, IsRetryable(err))
	m.uow.AssertNotCalled(t, "Commit")
	m.assertAll(t)
}

func TestRewardService_GrantReward_BeginFailure(t *testing.T) {
	ctx := context.Background()
	m := newMockSet()
	m.factory.On("Create").Return(m.uow)
	m.uow.On("Begin", ctx).Return(errors.New("pool exhausted"))

	svc := NewRewardService(m.factory, NewRewardDispatcher(100))

	_, err := svc.GrantReward(ctx, RewardGrant{UserID: "user-1", Diamonds: 1, Type: models.TransactionTypeEarned})

	assert.ErrorIs(t, err, ErrTransactionFailure)
	m.assertAll(t)
}

func TestRewardService_GrantReward_CommitFailure(t *testing.T) {
	ctx := context.Background()
	m := newMockSet()
	m.factory.On("Create").Return(m.uow)
	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.uow.On("Commit").Return(errors.New("serialization failure"))

	svc := NewRewardService(m.factory, NewRewardDispatcher(100))

	m.users.On("ApplyReward", ctx, "user-1", int64(1), int64(0), int64(100)).Return(&models.RewardBalance{
		UserID: "user-1", CurrentDiamonds: 1, Level: 1, PreviousLevel: 1,
	}, nil)
	m.expectLedgerRecord(ctx, 1, func(tx *models.DiamondTransaction) bool { return tx.Amount == 1 })

	_, err := svc.GrantReward(ctx, RewardGrant{UserID: "user-1", Diamonds: 1, Type: models.TransactionTypeEarned})

	assert.ErrorIs(t, err, ErrTransactionFailure)
	m.assertAll(t)
}

func TestRewardService_GrantReward_LevelUp(t *testing.T) {
	ctx := context.Background()
	m := newMockSet()
	m.expectTransaction(ctx, true)

	svc := NewRewardService(m.factory, NewRewardDispatcher(100))

	m.users.On("ApplyReward", ctx, "user-1", int64(0), int64(120), int64(100)).Return(&models.RewardBalance{
		UserID:        "user-1",
		Experience:    210,
		Level:         3,
		PreviousLevel: 2,
	}, nil)
	m.expectLedgerRecord(ctx, 7, func(tx *models.DiamondTransaction) bool {
		return tx.Amount == 0 && tx.Type == models.TransactionTypeEarned
	})

	_, err := svc.GrantReward(ctx, RewardGrant{UserID: "user-1", Experience: 120, Type: models.TransactionTypeEarned})
	require.NoError(t, err)

	levelUps := m.uow.Publisher().EventsOfType(events.EventTypeLevelUp)
	require.Len(t, levelUps, 1)
	ev := levelUps[0].(events.LevelUpEvent)
	assert.Equal(t, 2, ev.PreviousLevel)
	assert.Equal(t, 3, ev.NewLevel)
	m.assertAll(t)
}

func TestRewardGrant_DefaultDescription(t *testing.T) {
	grant := RewardGrant{Type: models.TransactionTypeDiamondPurchase}
	assert.Equal(t, "DIAMOND_PURCHASE reward", grant.description())

	grant.Description = "Bought 500 diamonds"
	assert.Equal(t, "Bought 500 diamonds", grant.description())
}
