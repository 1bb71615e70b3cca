package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"pyquest/events"
	"pyquest/models"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// SpendRequest describes a purchase paid in diamonds
type SpendRequest struct {
	UserID      string
	Amount      int64
	Description string
	RelatedID   *string
	RelatedType *models.RelatedType
}

type ledgerService struct {
	uowFactory UnitOfWorkFactory
}

// NewLedgerService creates a new ledger service
func NewLedgerService(uowFactory UnitOfWorkFactory) LedgerService {
	return &ledgerService{
		uowFactory: uowFactory,
	}
}

// SpendDiamonds debits the balance and records a SPENT row. Lifetime diamonds are untouched.
func (s *ledgerService) SpendDiamonds(ctx context.Context, req SpendRequest) (*models.DiamondTransaction, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrNotFound)
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: spend amount must be positive, got %d", ErrInvalidAmount, req.Amount)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, transactionFailure("begin", err)
	}
	defer uow.Rollback() // No-op if already committed

	balance, err := uow.UserRepository().DeductDiamonds(ctx, req.UserID, req.Amount)
	if err != nil {
		return nil, transactionFailure("deduct diamonds", err)
	}
	if balance == nil {
		// Either the user is missing or the balance is too low
		user, err := uow.UserRepository().GetByID(ctx, req.UserID)
		if err != nil {
			return nil, transactionFailure("get user", err)
		}
		if user == nil {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, req.UserID)
		}
		if user.CanAfford(req.Amount) {
			// A concurrent write moved the balance between the two reads
			return nil, transactionFailure("deduct diamonds", fmt.Errorf("balance changed during spend of %d", req.Amount))
		}
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientDiamonds, user.CurrentDiamonds, req.Amount)
	}

	description := req.Description
	if description == "" {
		description = "Diamonds spent"
	}

	transaction := &models.DiamondTransaction{
		UserID:       req.UserID,
		Amount:       -req.Amount,
		BalanceAfter: balance.CurrentDiamonds,
		Type:         models.TransactionTypeSpent,
		Description:  description,
		RelatedID:    req.RelatedID,
		RelatedType:  req.RelatedType,
	}
	if err := uow.DiamondTransactionRepository().Record(ctx, transaction); err != nil {
		return nil, transactionFailure("record diamond transaction", err)
	}

	uow.EventBus().Publish(events.DiamondsSpentEvent{
		UserID:        req.UserID,
		TransactionID: transaction.ID,
		Amount:        req.Amount,
		BalanceAfter:  balance.CurrentDiamonds,
		RelatedID:     req.RelatedID,
		RelatedType:   req.RelatedType,
	})

	if err := uow.Commit(); err != nil {
		return nil, transactionFailure("commit", err)
	}

	log.WithFields(log.Fields{
		"userID":       req.UserID,
		"amount":       req.Amount,
		"balanceAfter": balance.CurrentDiamonds,
	}).Info("Diamonds spent")

	return transaction, nil
}

// ClampHistoryLimit maps a requested page size onto 1..MaxHistoryLimit
func ClampHistoryLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}

// History returns the newest ledger rows for a user
func (s *ledgerService) History(ctx context.Context, userID string, limit int) ([]*models.DiamondTransaction, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, transactionFailure("begin", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, transactionFailure("get user", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}

	transactions, err := uow.DiamondTransactionRepository().GetByUser(ctx, userID, ClampHistoryLimit(limit))
	if err != nil {
		return nil, transactionFailure("list diamond transactions", err)
	}

	return transactions, nil
}

// Reconcile compares the ledger sum with the stored balance
func (s *ledgerService) Reconcile(ctx context.Context, userID string) (*models.LedgerReconciliation, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, transactionFailure("begin", err)
	}
	defer uow.Rollback()

	rec, err := uow.DiamondTransactionRepository().Reconcile(ctx, userID)
	if err != nil {
		return nil, transactionFailure("reconcile ledger", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}

	if !rec.Balanced() {
		log.WithFields(log.Fields{
			"userID":          userID,
			"ledgerSum":       rec.LedgerSum,
			"currentDiamonds": rec.CurrentDiamonds,
			"difference":      rec.Difference(),
		}).Warn("Ledger does not reconcile with balance")
	}

	return rec, nil
}
