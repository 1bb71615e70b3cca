package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"pyquest/database"
	"pyquest/events"
	"pyquest/service"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db               *database.DB
	tx               pgx.Tx
	ctx              context.Context
	transactionalBus *events.TransactionalBus
	userRepo         service.UserRepository
	diamondTxRepo    service.DiamondTransactionRepository
	dailyQuestRepo   service.DailyQuestRepository
	badgeRepo        service.BadgeRepository
	userBadgeRepo    service.UserBadgeRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	// Create repositories with the transaction
	u.userRepo = newUserRepositoryWithTx(tx)
	u.diamondTxRepo = newDiamondTransactionRepositoryWithTx(tx)
	u.dailyQuestRepo = newDailyQuestRepositoryWithTx(tx)
	u.badgeRepo = newBadgeRepositoryWithTx(tx)
	u.userBadgeRepo = newUserBadgeRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	u.tx = nil
	if err != nil {
		u.transactionalBus.Discard()
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	// Flush pending events after successful commit
	if err := u.transactionalBus.Flush(u.ctx); err != nil {
		log.WithError(err).Error("Failed to flush events after commit")
	}

	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	u.tx = nil

	// Discard pending events on rollback
	u.transactionalBus.Discard()

	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	return nil
}

// UserRepository returns the user repository for this unit of work
func (u *unitOfWork) UserRepository() service.UserRepository {
	if u.userRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.userRepo
}

// DiamondTransactionRepository returns the ledger repository for this unit of work
func (u *unitOfWork) DiamondTransactionRepository() service.DiamondTransactionRepository {
	if u.diamondTxRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.diamondTxRepo
}

// DailyQuestRepository returns the daily quest repository for this unit of work
func (u *unitOfWork) DailyQuestRepository() service.DailyQuestRepository {
	if u.dailyQuestRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.dailyQuestRepo
}

// BadgeRepository returns the badge repository for this unit of work
func (u *unitOfWork) BadgeRepository() service.BadgeRepository {
	if u.badgeRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.badgeRepo
}

// UserBadgeRepository returns the user badge repository for this unit of work
func (u *unitOfWork) UserBadgeRepository() service.UserBadgeRepository {
	if u.userBadgeRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.userBadgeRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.transactionalBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}
