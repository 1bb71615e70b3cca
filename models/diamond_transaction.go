package models

import (
	"time"
)

// TransactionType represents the reason for a diamond balance change
type TransactionType string

const (
	TransactionTypeEarned          TransactionType = "EARNED"
	TransactionTypeDailyQuest      TransactionType = "DAILY_QUEST"
	TransactionTypeAchievement     TransactionType = "ACHIEVEMENT"
	TransactionTypeLoginStreak     TransactionType = "LOGIN_STREAK"
	TransactionTypeDiamondPurchase TransactionType = "DIAMOND_PURCHASE"
	TransactionTypeSpent           TransactionType = "SPENT"
	TransactionTypeAdminAdjustment TransactionType = "ADMIN_ADJUSTMENT"
)

// IsValid reports whether the type is one the ledger accepts
func (tt TransactionType) IsValid() bool {
	switch tt {
	case TransactionTypeEarned,
		TransactionTypeDailyQuest,
		TransactionTypeAchievement,
		TransactionTypeLoginStreak,
		TransactionTypeDiamondPurchase,
		TransactionTypeSpent,
		TransactionTypeAdminAdjustment:
		return true
	}
	return false
}

// IsCredit returns true if the type adds diamonds to a balance
func (tt TransactionType) IsCredit() bool {
	return tt.IsValid() && tt != TransactionTypeSpent
}

// String returns the string representation of the transaction type
func (tt TransactionType) String() string {
	return string(tt)
}

// RelatedType represents what kind of entity the related_id refers to
type RelatedType string

const (
	RelatedTypeDailyQuest RelatedType = "daily_quest"
	RelatedTypeBadge      RelatedType = "badge"
	RelatedTypeLesson     RelatedType = "lesson"
	RelatedTypeChallenge  RelatedType = "challenge"
	RelatedTypeQuiz       RelatedType = "quiz"
	RelatedTypeCard       RelatedType = "card"
	RelatedTypeOrder      RelatedType = "order"
	RelatedTypeLogin      RelatedType = "login"
)

// DiamondTransaction is one immutable entry in a user's diamond ledger
type DiamondTransaction struct {
	ID           int64           `db:"id"`
	UserID       string          `db:"user_id"`
	Amount       int64           `db:"amount"` // Signed; negative for debits
	BalanceAfter int64           `db:"balance_after"`
	Type         TransactionType `db:"type"`
	Description  string          `db:"description"`
	RelatedID    *string         `db:"related_id"`
	RelatedType  *RelatedType    `db:"related_type"`
	CreatedAt    time.Time       `db:"created_at"`
}

// LedgerReconciliation compares the ledger sum with the stored balance
type LedgerReconciliation struct {
	UserID          string
	LedgerSum       int64
	CurrentDiamonds int64
	EntryCount      int64
}

// Difference is the part of the balance not explained by ledger entries
func (r *LedgerReconciliation) Difference() int64 {
	return r.CurrentDiamonds - r.LedgerSum
}

// Balanced reports whether every diamond is accounted for by the ledger
func (r *LedgerReconciliation) Balanced() bool {
	return r.Difference() == 0
}
