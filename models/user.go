package models

import (
	"time"
)

// User represents a learner account with its diamond balance and progression
type User struct {
	ID              string     `db:"id"`
	Username        string     `db:"username"`
	Email           string     `db:"email"`
	Role            string     `db:"role"`
	CurrentDiamonds int64      `db:"current_diamonds"`
	TotalDiamonds   int64      `db:"total_diamonds"` // Lifetime earned, never decreases
	Level           int        `db:"level"`
	Experience      int64      `db:"experience"`
	LoginStreak     int        `db:"login_streak"`
	MaxLoginStreak  int        `db:"max_login_streak"`
	LastLoginAt     *time.Time `db:"last_login_at"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// CanAfford checks if the user holds at least amount diamonds
func (u *User) CanAfford(amount int64) bool {
	return u.CurrentDiamonds >= amount
}

// RewardBalance is the state of a user's counters right after a reward or debit
type RewardBalance struct {
	UserID          string
	CurrentDiamonds int64
	TotalDiamonds   int64
	Experience      int64
	Level           int
	PreviousLevel   int
}

// LeveledUp reports whether the change moved the user to a higher level
func (b *RewardBalance) LeveledUp() bool {
	return b.Level > b.PreviousLevel
}

// LoginResult describes the streak state after recording a login
type LoginResult struct {
	UserID         string
	LoginStreak    int
	MaxLoginStreak int
	StreakExtended bool // True when this login moved the streak forward
}
