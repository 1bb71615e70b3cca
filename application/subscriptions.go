package application

import (
	"context"

	log "github.com/sirupsen/logrus"

	"pyquest/events"
	"pyquest/infrastructure/observability"
)

// RegisterMetricsSubscriptions records ledger, quest and badge activity from committed events
func RegisterMetricsSubscriptions(bus *events.Bus, metrics *observability.MetricsProvider) {
	bus.Subscribe(events.EventTypeDiamondsGranted, func(_ context.Context, event events.Event) {
		if e, ok := event.(events.DiamondsGrantedEvent); ok {
			metrics.RecordLedgerCredit(string(e.TransactionType), e.Diamonds)
		}
	})
	bus.Subscribe(events.EventTypeDiamondsSpent, func(_ context.Context, event events.Event) {
		if e, ok := event.(events.DiamondsSpentEvent); ok {
			metrics.RecordLedgerDebit(e.Amount)
		}
	})
	bus.Subscribe(events.EventTypeLevelUp, func(_ context.Context, _ events.Event) {
		metrics.RecordLevelUp()
	})
	bus.Subscribe(events.EventTypeQuestCompleted, func(_ context.Context, event events.Event) {
		if e, ok := event.(events.QuestCompletedEvent); ok {
			metrics.RecordQuestCompleted(string(e.QuestType))
		}
	})
	bus.Subscribe(events.EventTypeBadgeUnlocked, func(_ context.Context, event events.Event) {
		if e, ok := event.(events.BadgeUnlockedEvent); ok {
			metrics.RecordBadgeUnlocked(string(e.Rarity))
		}
	})
}

// RegisterProgressionLogging logs level ups and unlocks for operators
func RegisterProgressionLogging(bus *events.Bus) {
	bus.Subscribe(events.EventTypeLevelUp, func(_ context.Context, event events.Event) {
		if e, ok := event.(events.LevelUpEvent); ok {
			log.WithFields(log.Fields{
				"userID":        e.UserID,
				"previousLevel": e.PreviousLevel,
				"newLevel":      e.NewLevel,
			}).Info("User leveled up")
		}
	})
	bus.Subscribe(events.EventTypeBadgeUnlocked, func(_ context.Context, event events.Event) {
		if e, ok := event.(events.BadgeUnlockedEvent); ok {
			log.WithFields(log.Fields{
				"userID":  e.UserID,
				"badgeID": e.BadgeID,
				"rarity":  e.Rarity,
			}).Info("Badge unlocked")
		}
	})
}
