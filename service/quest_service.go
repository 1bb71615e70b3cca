package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"pyquest/events"
	"pyquest/models"
)

type questService struct {
	uowFactory UnitOfWorkFactory
	dispatcher *RewardDispatcher
	location   *time.Location
	catalog    []models.QuestTemplate
	now        func() time.Time
}

// QuestServiceOption customizes a quest tracker
type QuestServiceOption func(*questService)

// WithQuestClock sets the clock that picks the current day bucket
func WithQuestClock(now func() time.Time) QuestServiceOption {
	return func(s *questService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewQuestService creates a new daily quest tracker. Days are bucketed at local midnight in loc.
func NewQuestService(uowFactory UnitOfWorkFactory, dispatcher *RewardDispatcher, loc *time.Location, catalog []models.QuestTemplate, opts ...QuestServiceOption) QuestService {
	if loc == nil {
		loc = time.Local
	}
	if catalog == nil {
		catalog = models.DefaultQuestCatalog
	}
	s := &questService{
		uowFactory: uowFactory,
		dispatcher: dispatcher,
		location:   loc,
		catalog:    catalog,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordQuestProgress advances today's in-progress quest. A missing or already completed
// quest is reported as Skipped. Completion and its reward commit together or not at all.
func (s *questService) RecordQuestProgress(ctx context.Context, userID string, questType models.QuestType, increment int) (*models.QuestProgress, error) {
	if increment <= 0 {
		return nil, fmt.Errorf("%w: increment must be positive, got %d", ErrInvalidAmount, increment)
	}

	now := s.now()
	day := models.DayBucketFor(now, s.location)

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, transactionFailure("begin", err)
	}
	defer uow.Rollback() // No-op if already committed

	quest, err := uow.DailyQuestRepository().IncrementProgress(ctx, userID, questType, day, increment, now)
	if err != nil {
		return nil, transactionFailure("increment quest progress", err)
	}

	if quest == nil {
		return s.skipped(ctx, uow, userID, questType, day)
	}

	result := &models.QuestProgress{
		QuestID:     quest.ID,
		QuestType:   quest.QuestType,
		Progress:    quest.Progress,
		Target:      quest.Target,
		IsCompleted: quest.IsCompleted,
	}

	if quest.IsCompleted {
		// The NOT is_completed guard means only this call saw the transition
		result.Completed = true

		relatedID := strconv.FormatInt(quest.ID, 10)
		relatedType := models.RelatedTypeDailyQuest
		_, err := s.dispatcher.Dispatch(ctx, uow, RewardGrant{
			UserID:      userID,
			Diamonds:    quest.DiamondReward,
			Experience:  quest.ExperienceReward,
			Type:        models.TransactionTypeDailyQuest,
			Description: fmt.Sprintf("Daily quest completed: %s", quest.QuestType),
			RelatedID:   &relatedID,
			RelatedType: &relatedType,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to reward quest %d: %w", quest.ID, err)
		}

		uow.EventBus().Publish(events.QuestCompletedEvent{
			UserID:           userID,
			QuestID:          quest.ID,
			QuestType:        quest.QuestType,
			DiamondReward:    quest.DiamondReward,
			ExperienceReward: quest.ExperienceReward,
		})
	}

	if err := uow.Commit(); err != nil {
		return nil, transactionFailure("commit", err)
	}

	log.WithFields(log.Fields{
		"userID":    userID,
		"questType": questType,
		"progress":  result.Progress,
		"target":    result.Target,
		"completed": result.Completed,
	}).Debug("Recorded quest progress")

	return result, nil
}

// skipped reports the state of a quest that could not advance
func (s *questService) skipped(ctx context.Context, uow UnitOfWork, userID string, questType models.QuestType, day models.DayBucket) (*models.QuestProgress, error) {
	result := &models.QuestProgress{
		QuestType: questType,
		Skipped:   true,
	}

	existing, err := uow.DailyQuestRepository().GetForDay(ctx, userID, questType, day)
	if err != nil {
		return nil, transactionFailure("get quest", err)
	}
	if existing != nil {
		result.QuestID = existing.ID
		result.Progress = existing.Progress
		result.Target = existing.Target
		result.IsCompleted = existing.IsCompleted
	}

	log.WithFields(log.Fields{
		"userID":    userID,
		"questType": questType,
		"exists":    existing != nil,
	}).Debug("No in-progress quest, skipped progress update")

	return result, nil
}

// TodayQuests lists the user's quests for the current day
func (s *questService) TodayQuests(ctx context.Context, userID string) ([]*models.DailyQuest, error) {
	day := models.DayBucketFor(s.now(), s.location)

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

	quests, err := uow.DailyQuestRepository().ListForDay(ctx, userID, day)
	if err != nil {
		return nil, transactionFailure("list quests", err)
	}

	return quests, nil
}

// SeedDay creates the catalog quests for the day containing at. Safe to repeat.
func (s *questService) SeedDay(ctx context.Context, at time.Time) (int64, error) {
	day := models.DayBucketFor(at, s.location)

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, transactionFailure("begin", err)
	}
	defer uow.Rollback()

	created, err := uow.DailyQuestRepository().SeedForDay(ctx, day, s.catalog)
	if err != nil {
		return 0, transactionFailure("seed quests", err)
	}

	if err := uow.Commit(); err != nil {
		return 0, transactionFailure("commit", err)
	}

	log.WithFields(log.Fields{
		"day":     day.Start.Format("2006-01-02"),
		"created": created,
	}).Info("Seeded daily quests")

	return created, nil
}
