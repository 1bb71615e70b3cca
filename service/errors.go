package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for an unknown user, quest or badge id
	ErrNotFound = errors.New("not found")

	// ErrInvalidAmount is returned for negative rewards or non-positive spends and increments
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrAlreadyCompleted marks a quest that can no longer advance today.
	// The quest tracker reports it as Skipped progress rather than returning it.
	ErrAlreadyCompleted = errors.New("quest already completed")

	// ErrInsufficientDiamonds is returned when a spend exceeds the current balance
	ErrInsufficientDiamonds = errors.New("insufficient diamonds")

	// ErrTransactionFailure wraps a persistence failure that rolled everything back.
	// Callers may retry.
	ErrTransactionFailure = errors.New("transaction failure")

	// ErrInvalidTransactionType is returned for unknown ledger types
	ErrInvalidTransactionType = errors.New("invalid transaction type")

	// ErrInvalidBadge is returned for catalog writes with missing fields or an unknown condition
	ErrInvalidBadge = errors.New("invalid badge")
)

// IsRetryable reports whether err came from an aborted transaction
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransactionFailure)
}

func transactionFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransactionFailure, op, err)
}
