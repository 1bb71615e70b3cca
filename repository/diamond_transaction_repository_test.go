package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyquest/models"
	"pyquest/repository/testutil"
)

func TestDiamondTransactionRepository_RecordAndList(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewDiamondTransactionRepository(testDB.DB)
	ctx := context.Background()
	testutil.InsertUser(t, testDB.DB, testutil.CreateTestUser("user-1", "ada"))

	questID := "17"
	questType := models.RelatedTypeDailyQuest
	entries := []*models.DiamondTransaction{
		{UserID: "user-1", Amount: 10, BalanceAfter: 10, Type: models.TransactionTypeEarned, Description: "lesson"},
		{UserID: "user-1", Amount: 25, BalanceAfter: 35, Type: models.TransactionTypeDailyQuest, Description: "quest", RelatedID: &questID, RelatedType: &questType},
		{UserID: "user-1", Amount: -5, BalanceAfter: 30, Type: models.TransactionTypeSpent, Description: "shop"},
	}
	for _, entry := range entries {
		require.NoError(t, repo.Record(ctx, entry))
		assert.NotZero(t, entry.ID)
		assert.False(t, entry.CreatedAt.IsZero())
	}

	history, err := repo.GetByUser(ctx, "user-1", 10)
	require.NoError(t, err)
	require.Len(t, history, 3)

	// Newest first
	assert.Equal(t, models.TransactionTypeSpent, history[0].Type)
	assert.Equal(t, int64(-5), history[0].Amount)
	assert.Nil(t, history[0].RelatedID)

	assert.Equal(t, models.TransactionTypeDailyQuest, history[1].Type)
	require.NotNil(t, history[1].RelatedID)
	assert.Equal(t, "17", *history[1].RelatedID)
	require.NotNil(t, history[1].RelatedType)
	assert.Equal(t, models.RelatedTypeDailyQuest, *history[1].RelatedType)

	limited, err := repo.GetByUser(ctx, "user-1", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestDiamondTransactionRepository_Reconcile(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewDiamondTransactionRepository(testDB.DB)
	ctx := context.Background()

	// 100 diamonds granted outside the ledger, e.g. a purchase recorded elsewhere
	testutil.InsertUser(t, testDB.DB, testutil.CreateTestUserWithDiamonds("user-1", "ada", 100))

	rec, err := repo.Reconcile(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, int64(0), rec.LedgerSum)
	assert.Equal(t, int64(0), rec.EntryCount)
	assert.Equal(t, int64(100), rec.Difference())

	require.NoError(t, repo.Record(ctx, &models.DiamondTransaction{
		UserID: "user-1", Amount: 100, BalanceAfter: 100, Type: models.TransactionTypeDiamondPurchase,
	}))

	rec, err = repo.Reconcile(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, rec.Balanced())
	assert.Equal(t, int64(1), rec.EntryCount)

	missing, err := repo.Reconcile(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
