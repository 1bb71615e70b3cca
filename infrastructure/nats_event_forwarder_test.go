package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyquest/events"
	"pyquest/models"
)

func TestNATSEventForwarder_Forward(t *testing.T) {
	publisher := &RecordingPublisher{}
	forwarder := NewNATSEventForwarder(publisher, nil)
	forwarder.newID = func() string { return "evt-1" }
	forwarder.now = func() time.Time { return time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC) }

	err := forwarder.Forward(context.Background(), events.QuestCompletedEvent{
		UserID:        "user-1",
		QuestID:       42,
		QuestType:     models.QuestTypeCompleteLesson,
		DiamondReward: 10,
	})
	require.NoError(t, err)

	messages := publisher.Published()
	require.Len(t, messages, 1)
	assert.Equal(t, "pyquest.rewards.quest_completed", messages[0].Subject)
	assert.Equal(t, "quest_completed:42", messages[0].MsgID)

	var envelope EventEnvelope
	require.NoError(t, json.Unmarshal(messages[0].Data, &envelope))
	assert.Equal(t, "quest_completed", envelope.EventType)
	assert.Equal(t, "pyquest-rewards", envelope.SourceService)

	var payload events.QuestCompletedEvent
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.Equal(t, int64(42), payload.QuestID)
	assert.Equal(t, "user-1", payload.UserID)
}

func TestNATSEventForwarder_RedeliveryReusesMsgID(t *testing.T) {
	publisher := &RecordingPublisher{}
	forwarder := NewNATSEventForwarder(publisher, nil)
	ids := 0
	forwarder.newID = func() string {
		ids++
		return fmt.Sprintf("evt-%d", ids)
	}

	granted := events.DiamondsGrantedEvent{UserID: "user-1", TransactionID: 9, Diamonds: 10}
	badge := events.BadgeUnlockedEvent{UserID: "user-1", BadgeID: "streak-7"}
	for i := 0; i < 2; i++ {
		require.NoError(t, forwarder.Forward(context.Background(), granted))
		require.NoError(t, forwarder.Forward(context.Background(), badge))
	}
	// Experience-only grants have no ledger row to key on
	require.NoError(t, forwarder.Forward(context.Background(), events.DiamondsGrantedEvent{UserID: "user-1", Experience: 5}))

	messages := publisher.Published()
	require.Len(t, messages, 5)
	assert.Equal(t, "diamonds_granted:9", messages[0].MsgID)
	assert.Equal(t, messages[0].MsgID, messages[2].MsgID)
	assert.Equal(t, "badge_unlocked:user-1:streak-7", messages[1].MsgID)
	assert.Equal(t, messages[1].MsgID, messages[3].MsgID)
	assert.Equal(t, "evt-1", messages[4].MsgID)
}

func TestNATSEventForwarder_PublishError(t *testing.T) {
	publisher := &RecordingPublisher{Err: errors.New("no responders")}
	forwarder := NewNATSEventForwarder(publisher, nil)

	err := forwarder.Forward(context.Background(), events.LevelUpEvent{UserID: "user-1", NewLevel: 2})
	assert.Error(t, err)
}

func TestNATSEventForwarder_RegisterForwardsBusEvents(t *testing.T) {
	publisher := &RecordingPublisher{}
	bus := events.NewBus()
	NewNATSEventForwarder(publisher, nil).Register(bus)

	bus.Emit(context.Background(), events.BadgeUnlockedEvent{UserID: "user-1", BadgeID: "first-lesson"})

	assert.Eventually(t, func() bool {
		return len(publisher.Published()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "pyquest.rewards.badge_unlocked", publisher.Published()[0].Subject)
}

func TestSubjects(t *testing.T) {
	subjects := Subjects()
	assert.Len(t, subjects, len(events.AllEventTypes))
	assert.Contains(t, subjects, "pyquest.rewards.diamonds_granted")
}
