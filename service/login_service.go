package service

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"pyquest/models"
)

type loginService struct {
	uowFactory UnitOfWorkFactory
	dispatcher *RewardDispatcher
	location   *time.Location
	bonus      int64
}

// NewLoginService creates a login recorder. bonus diamonds are granted each time the
// streak grows; 0 disables the bonus.
func NewLoginService(uowFactory UnitOfWorkFactory, dispatcher *RewardDispatcher, loc *time.Location, bonus int64) LoginService {
	if loc == nil {
		loc = time.Local
	}
	return &loginService{
		uowFactory: uowFactory,
		dispatcher: dispatcher,
		location:   loc,
		bonus:      bonus,
	}
}

// RecordLogin updates the streak for a login at the given time
func (s *loginService) RecordLogin(ctx context.Context, userID string, at time.Time) (*models.LoginResult, error) {
	today := models.DayBucketFor(at, s.location)

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, transactionFailure("begin", err)
	}
	defer uow.Rollback() // No-op if already committed

	result, err := uow.UserRepository().RecordLogin(ctx, userID, at, today, today.Previous())
	if err != nil {
		return nil, transactionFailure("record login", err)
	}
	if result == nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}

	if result.StreakExtended && s.bonus > 0 {
		relatedType := models.RelatedTypeLogin
		_, err := s.dispatcher.Dispatch(ctx, uow, RewardGrant{
			UserID:      userID,
			Diamonds:    s.bonus,
			Type:        models.TransactionTypeLoginStreak,
			Description: fmt.Sprintf("Login streak: %d days", result.LoginStreak),
			RelatedType: &relatedType,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to grant login bonus: %w", err)
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, transactionFailure("commit", err)
	}

	log.WithFields(log.Fields{
		"userID":   userID,
		"streak":   result.LoginStreak,
		"extended": result.StreakExtended,
	}).Debug("Recorded login")

	return result, nil
}
