package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pyquest/database"
	"pyquest/models"
)

// DiamondTransactionRepository implements the DiamondTransactionRepository interface.
// It only ever inserts and reads; ledger rows are immutable.
type DiamondTransactionRepository struct {
	q queryable
}

// NewDiamondTransactionRepository creates a new ledger repository
func NewDiamondTransactionRepository(db *database.DB) *DiamondTransactionRepository {
	return &DiamondTransactionRepository{q: db.Pool}
}

// newDiamondTransactionRepositoryWithTx creates a new ledger repository with a transaction
func newDiamondTransactionRepositoryWithTx(tx queryable) *DiamondTransactionRepository {
	return &DiamondTransactionRepository{q: tx}
}

// Record appends a ledger row
func (r *DiamondTransactionRepository) Record(ctx context.Context, transaction *models.DiamondTransaction) error {
	query := `
		INSERT INTO diamond_transactions (
			user_id, amount, balance_after, type, description, related_id, related_type
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		transaction.UserID,
		transaction.Amount,
		transaction.BalanceAfter,
		string(transaction.Type),
		transaction.Description,
		transaction.RelatedID,
		relatedTypeArg(transaction.RelatedType),
	).Scan(&transaction.ID, &transaction.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record diamond transaction for user %s: %w", transaction.UserID, err)
	}

	return nil
}

// GetByUser returns the newest ledger rows for a user
func (r *DiamondTransactionRepository) GetByUser(ctx context.Context, userID string, limit int) ([]*models.DiamondTransaction, error) {
	query := `
		SELECT id, user_id, amount, balance_after, type, description, related_id, related_type, created_at
		FROM diamond_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query diamond transactions for user %s: %w", userID, err)
	}
	defer rows.Close()

	var transactions []*models.DiamondTransaction
	for rows.Next() {
		var (
			tx          models.DiamondTransaction
			txType      string
			relatedType *string
		)
		if err := rows.Scan(
			&tx.ID,
			&tx.UserID,
			&tx.Amount,
			&tx.BalanceAfter,
			&txType,
			&tx.Description,
			&tx.RelatedID,
			&relatedType,
			&tx.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan diamond transaction: %w", err)
		}
		tx.Type = models.TransactionType(txType)
		if relatedType != nil {
			rt := models.RelatedType(*relatedType)
			tx.RelatedType = &rt
		}
		transactions = append(transactions, &tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating diamond transactions: %w", err)
	}

	return transactions, nil
}

// Reconcile sums the ledger for a user next to the stored balance
func (r *DiamondTransactionRepository) Reconcile(ctx context.Context, userID string) (*models.LedgerReconciliation, error) {
	query := `
		SELECT u.id, u.current_diamonds, COALESCE(SUM(t.amount), 0)::BIGINT, COUNT(t.id)
		FROM users u
		LEFT JOIN diamond_transactions t ON t.user_id = u.id
		WHERE u.id = $1
		GROUP BY u.id, u.current_diamonds
	`

	var rec models.LedgerReconciliation
	err := r.q.QueryRow(ctx, query, userID).Scan(
		&rec.UserID,
		&rec.CurrentDiamonds,
		&rec.LedgerSum,
		&rec.EntryCount,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile ledger for user %s: %w", userID, err)
	}

	return &rec, nil
}

func relatedTypeArg(rt *models.RelatedType) *string {
	if rt == nil {
		return nil
	}
	s := string(*rt)
	return &s
}
