package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"pyquest/events"
	"pyquest/models"
)

type badgeService struct {
	uowFactory UnitOfWorkFactory
	dispatcher *RewardDispatcher
	catalog    *BadgeCatalog
	now        func() time.Time
}

// NewBadgeService creates a new badge evaluator
func NewBadgeService(uowFactory UnitOfWorkFactory, dispatcher *RewardDispatcher, catalog *BadgeCatalog) BadgeService {
	return &badgeService{
		uowFactory: uowFactory,
		dispatcher: dispatcher,
		catalog:    catalog,
		now:        time.Now,
	}
}

// EvaluateBadges grants every unowned badge satisfied by stats and returns the new ones.
// A badge another evaluation granted first is skipped, so repeats never double-grant.
func (s *badgeService) EvaluateBadges(ctx context.Context, userID string, stats models.UserStats) ([]*models.Badge, error) {
	catalog, err := s.catalog.Badges(ctx)
	if err != nil {
		return nil, transactionFailure("load badge catalog", err)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, transactionFailure("begin", err)
	}
	defer uow.Rollback() // No-op if already committed

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, transactionFailure("get user", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}

	owned, err := uow.UserBadgeRepository().ListByUser(ctx, userID)
	if err != nil {
		return nil, transactionFailure("list user badges", err)
	}
	ownedIDs := make(map[string]bool, len(owned))
	for _, ub := range owned {
		ownedIDs[ub.BadgeID] = true
	}

	now := s.now()
	granted := make([]*models.Badge, 0)
	for _, badge := range catalog {
		if ownedIDs[badge.ID] || !badge.Condition.SatisfiedBy(stats) {
			continue
		}

		inserted, err := uow.UserBadgeRepository().Grant(ctx, userID, badge.ID, now)
		if err != nil {
			return nil, transactionFailure("grant badge", err)
		}
		if !inserted {
			continue
		}

		if badge.HasReward() {
			relatedID := badge.ID
			relatedType := models.RelatedTypeBadge
			_, err := s.dispatcher.Dispatch(ctx, uow, RewardGrant{
				UserID:      userID,
				Diamonds:    badge.DiamondReward,
				Experience:  badge.ExperienceReward,
				Type:        models.TransactionTypeAchievement,
				Description: fmt.Sprintf("Badge unlocked: %s", badge.Title),
				RelatedID:   &relatedID,
				RelatedType: &relatedType,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to reward badge %s: %w", badge.ID, err)
			}
		}

		uow.EventBus().Publish(events.BadgeUnlockedEvent{
			UserID:   userID,
			BadgeID:  badge.ID,
			Name:     badge.Name,
			Title:    badge.Title,
			Rarity:   badge.Rarity,
			Diamonds: badge.DiamondReward,
		})
		granted = append(granted, badge)
	}

	if err := uow.Commit(); err != nil {
		return nil, transactionFailure("commit", err)
	}

	if len(granted) > 0 {
		log.WithFields(log.Fields{
			"userID":     userID,
			"badgeCount": len(granted),
		}).Info("Granted badges")
	}

	return granted, nil
}

// UserBadges lists badges a user unlocked
func (s *badgeService) UserBadges(ctx context.Context, userID string) ([]*models.UserBadge, error) {
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

	badges, err := uow.UserBadgeRepository().ListByUser(ctx, userID)
	if err != nil {
		return nil, transactionFailure("list user badges", err)
	}
	return badges, nil
}

// Catalog returns every badge in catalog order
func (s *badgeService) Catalog(ctx context.Context) ([]*models.Badge, error) {
	badges, err := s.catalog.Badges(ctx)
	if err != nil {
		return nil, transactionFailure("load badge catalog", err)
	}
	return badges, nil
}

// Badge returns one catalog badge
func (s *badgeService) Badge(ctx context.Context, badgeID string) (*models.Badge, error) {
	badge, err := s.catalog.Badge(ctx, badgeID)
	if err != nil {
		return nil, transactionFailure("load badge", err)
	}
	if badge == nil {
		return nil, fmt.Errorf("%w: badge %s", ErrNotFound, badgeID)
	}
	return badge, nil
}

func validateBadge(badge *models.Badge) error {
	switch {
	case strings.TrimSpace(badge.ID) == "":
		return fmt.Errorf("%w: id is required", ErrInvalidBadge)
	case strings.TrimSpace(badge.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidBadge)
	case strings.TrimSpace(badge.Title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalidBadge)
	case !badge.Rarity.IsValid():
		return fmt.Errorf("%w: unknown rarity %q", ErrInvalidBadge, badge.Rarity)
	case badge.DiamondReward < 0 || badge.ExperienceReward < 0:
		return fmt.Errorf("%w: badge rewards must not be negative", ErrInvalidAmount)
	}
	if err := badge.Condition.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBadge, err)
	}
	return nil
}

// UpsertBadge writes a catalog entry. The cache is dropped after commit so the next
// evaluation sees the change.
func (s *badgeService) UpsertBadge(ctx context.Context, badge *models.Badge) error {
	if badge == nil {
		return fmt.Errorf("%w: badge is required", ErrInvalidBadge)
	}
	if badge.Category == "" {
		badge.Category = "general"
	}
	if err := validateBadge(badge); err != nil {
		return err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return transactionFailure("begin", err)
	}
	defer uow.Rollback() // No-op if already committed

	if err := uow.BadgeRepository().Upsert(ctx, badge); err != nil {
		return transactionFailure("upsert badge", err)
	}

	if err := uow.Commit(); err != nil {
		return transactionFailure("commit", err)
	}
	s.catalog.Invalidate()

	log.WithFields(log.Fields{
		"badgeID":   badge.ID,
		"condition": badge.Condition.Type,
		"target":    badge.Condition.Target,
	}).Info("Badge catalog entry saved")
	return nil
}

// InvalidateCatalog drops the cached badge catalog
func (s *badgeService) InvalidateCatalog() {
	s.catalog.Invalidate()
}
