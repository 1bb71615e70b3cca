package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"pyquest/events"
	"pyquest/models"
)

// RewardGrant describes one reward to apply to a user
type RewardGrant struct {
	UserID      string
	Diamonds    int64
	Experience  int64
	Type        models.TransactionType
	Description string
	RelatedID   *string
	RelatedType *models.RelatedType
}

// Validate checks amounts and the ledger type
func (g RewardGrant) Validate() error {
	if g.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrNotFound)
	}
	if g.Diamonds < 0 {
		return fmt.Errorf("%w: diamonds must not be negative, got %d", ErrInvalidAmount, g.Diamonds)
	}
	if g.Experience < 0 {
		return fmt.Errorf("%w: experience must not be negative, got %d", ErrInvalidAmount, g.Experience)
	}
	if !g.Type.IsCredit() {
		return fmt.Errorf("%w: %q cannot be granted", ErrInvalidTransactionType, g.Type)
	}
	return nil
}

func (g RewardGrant) description() string {
	if g.Description != "" {
		return g.Description
	}
	return fmt.Sprintf("%s reward", g.Type)
}

// RewardDispatcher applies rewards inside a caller's unit of work.
// It never calls back into the quest tracker or badge evaluator.
type RewardDispatcher struct {
	experiencePerLevel int64
}

// NewRewardDispatcher creates a dispatcher that levels users every experiencePerLevel points
func NewRewardDispatcher(experiencePerLevel int64) *RewardDispatcher {
	if experiencePerLevel <= 0 {
		experiencePerLevel = models.DefaultExperiencePerLevel
	}
	return &RewardDispatcher{experiencePerLevel: experiencePerLevel}
}

// Dispatch increments the user's counters and appends the ledger row using uow.
// The caller owns Begin and Commit; any error means the caller must roll back.
func (d *RewardDispatcher) Dispatch(ctx context.Context, uow UnitOfWork, grant RewardGrant) (*models.DiamondTransaction, error) {
	if err := grant.Validate(); err != nil {
		return nil, err
	}

	balance, err := uow.UserRepository().ApplyReward(ctx, grant.UserID, grant.Diamonds, grant.Experience, d.experiencePerLevel)
	if err != nil {
		return nil, transactionFailure("apply reward", err)
	}
	if balance == nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, grant.UserID)
	}

	transaction := &models.DiamondTransaction{
		UserID:       grant.UserID,
		Amount:       grant.Diamonds,
		BalanceAfter: balance.CurrentDiamonds,
		Type:         grant.Type,
		Description:  grant.description(),
		RelatedID:    grant.RelatedID,
		RelatedType:  grant.RelatedType,
	}
	if err := uow.DiamondTransactionRepository().Record(ctx, transaction); err != nil {
		return nil, transactionFailure("record diamond transaction", err)
	}

	// Flushed by the unit of work after commit
	uow.EventBus().Publish(events.DiamondsGrantedEvent{
		UserID:          grant.UserID,
		TransactionID:   transaction.ID,
		Diamonds:        grant.Diamonds,
		Experience:      grant.Experience,
		BalanceAfter:    balance.CurrentDiamonds,
		TransactionType: grant.Type,
		RelatedID:       grant.RelatedID,
		RelatedType:     grant.RelatedType,
	})
	if balance.LeveledUp() {
		uow.EventBus().Publish(events.LevelUpEvent{
			UserID:        grant.UserID,
			PreviousLevel: balance.PreviousLevel,
			NewLevel:      balance.Level,
			Experience:    balance.Experience,
		})
	}

	return transaction, nil
}

type rewardService struct {
	uowFactory UnitOfWorkFactory
	dispatcher *RewardDispatcher
}

// NewRewardService creates a new reward service
func NewRewardService(uowFactory UnitOfWorkFactory, dispatcher *RewardDispatcher) RewardService {
	return &rewardService{
		uowFactory: uowFactory,
		dispatcher: dispatcher,
	}
}

// GrantReward applies grant in its own transaction
func (s *rewardService) GrantReward(ctx context.Context, grant RewardGrant) (*models.DiamondTransaction, error) {
	if err := grant.Validate(); err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, transactionFailure("begin", err)
	}
	defer uow.Rollback() // No-op if already committed

	transaction, err := s.dispatcher.Dispatch(ctx, uow, grant)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, transactionFailure("commit", err)
	}

	log.WithFields(log.Fields{
		"userID":        grant.UserID,
		"diamonds":      grant.Diamonds,
		"experience":    grant.Experience,
		"type":          grant.Type,
		"balanceAfter":  transaction.BalanceAfter,
		"transactionID": transaction.ID,
	}).Info("Granted reward")

	return transaction, nil
}
