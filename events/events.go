package events

import (
	"fmt"

	"pyquest/models"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeDiamondsGranted EventType = "diamonds_granted"
	EventTypeDiamondsSpent   EventType = "diamonds_spent"
	EventTypeLevelUp         EventType = "level_up"
	EventTypeQuestCompleted  EventType = "quest_completed"
	EventTypeBadgeUnlocked   EventType = "badge_unlocked"
)

// AllEventTypes lists every event type the service publishes
var AllEventTypes = []EventType{
	EventTypeDiamondsGranted,
	EventTypeDiamondsSpent,
	EventTypeLevelUp,
	EventTypeQuestCompleted,
	EventTypeBadgeUnlocked,
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// Keyed events identify the state change they describe. Redelivering the same change
// yields the same key, so downstream consumers can drop duplicates.
type Keyed interface {
	DedupKey() string
}

// DiamondsGrantedEvent is published for every reward written to the ledger
type DiamondsGrantedEvent struct {
	UserID          string                 `json:"userId"`
	TransactionID   int64                  `json:"transactionId"`
	Diamonds        int64                  `json:"diamonds"`
	Experience      int64                  `json:"experience"`
	BalanceAfter    int64                  `json:"balanceAfter"`
	TransactionType models.TransactionType `json:"transactionType"`
	RelatedID       *string                `json:"relatedId,omitempty"`
	RelatedType     *models.RelatedType    `json:"relatedType,omitempty"`
}

func (e DiamondsGrantedEvent) Type() EventType {
	return EventTypeDiamondsGranted
}

func (e DiamondsGrantedEvent) DedupKey() string {
	if e.TransactionID == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", EventTypeDiamondsGranted, e.TransactionID)
}

// DiamondsSpentEvent is published when a user spends diamonds
type DiamondsSpentEvent struct {
	UserID        string              `json:"userId"`
	TransactionID int64               `json:"transactionId"`
	Amount        int64               `json:"amount"`
	BalanceAfter  int64               `json:"balanceAfter"`
	RelatedID     *string             `json:"relatedId,omitempty"`
	RelatedType   *models.RelatedType `json:"relatedType,omitempty"`
}

func (e DiamondsSpentEvent) Type() EventType {
	return EventTypeDiamondsSpent
}

func (e DiamondsSpentEvent) DedupKey() string {
	if e.TransactionID == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", EventTypeDiamondsSpent, e.TransactionID)
}

// LevelUpEvent is published when experience moves a user to a higher level
type LevelUpEvent struct {
	UserID        string `json:"userId"`
	PreviousLevel int    `json:"previousLevel"`
	NewLevel      int    `json:"newLevel"`
	Experience    int64  `json:"experience"`
}

func (e LevelUpEvent) Type() EventType {
	return EventTypeLevelUp
}

func (e LevelUpEvent) DedupKey() string {
	return fmt.Sprintf("%s:%s:%d", EventTypeLevelUp, e.UserID, e.NewLevel)
}

// QuestCompletedEvent is published once when a daily quest reaches its target
type QuestCompletedEvent struct {
	UserID           string           `json:"userId"`
	QuestID          int64            `json:"questId"`
	QuestType        models.QuestType `json:"questType"`
	DiamondReward    int64            `json:"diamondReward"`
	ExperienceReward int64            `json:"experienceReward"`
}

func (e QuestCompletedEvent) Type() EventType {
	return EventTypeQuestCompleted
}

func (e QuestCompletedEvent) DedupKey() string {
	return fmt.Sprintf("%s:%d", EventTypeQuestCompleted, e.QuestID)
}

// BadgeUnlockedEvent is published once per (user, badge)
type BadgeUnlockedEvent struct {
	UserID   string             `json:"userId"`
	BadgeID  string             `json:"badgeId"`
	Name     string             `json:"name"`
	Title    string             `json:"title"`
	Rarity   models.BadgeRarity `json:"rarity"`
	Diamonds int64              `json:"diamonds"`
}

func (e BadgeUnlockedEvent) Type() EventType {
	return EventTypeBadgeUnlocked
}

func (e BadgeUnlockedEvent) DedupKey() string {
	return fmt.Sprintf("%s:%s:%s", EventTypeBadgeUnlocked, e.UserID, e.BadgeID)
}
