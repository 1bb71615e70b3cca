package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelForExperience(t *testing.T) {
	assert.Equal(t, 1, LevelForExperience(0, 100))
	assert.Equal(t, 1, LevelForExperience(99, 100))
	assert.Equal(t, 2, LevelForExperience(100, 100))
	assert.Equal(t, 11, LevelForExperience(1050, 100))
	assert.Equal(t, 1, LevelForExperience(-5, 100))
	assert.Equal(t, 2, LevelForExperience(100, 0))
}

func TestTransactionType(t *testing.T) {
	assert.True(t, TransactionTypeDailyQuest.IsCredit())
	assert.False(t, TransactionTypeSpent.IsCredit())
	assert.False(t, TransactionType("BOGUS").IsValid())
	assert.False(t, TransactionType("BOGUS").IsCredit())
}

func TestLedgerReconciliation(t *testing.T) {
	rec := &LedgerReconciliation{LedgerSum: 150, CurrentDiamonds: 150}
	assert.True(t, rec.Balanced())

	rec.CurrentDiamonds = 200
	assert.Equal(t, int64(50), rec.Difference())
	assert.False(t, rec.Balanced())
}
