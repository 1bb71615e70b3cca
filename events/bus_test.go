package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyquest/models"
)

func TestTransactionalBus_FlushDeliversEvents(t *testing.T) {
	mainBus := NewBus()
	txBus := NewTransactionalBus(mainBus)

	received := make(chan DiamondsGrantedEvent, 1)
	mainBus.Subscribe(EventTypeDiamondsGranted, func(ctx context.Context, event Event) {
		if granted, ok := event.(DiamondsGrantedEvent); ok {
			received <- granted
		}
	})

	txBus.Publish(DiamondsGrantedEvent{
		UserID:          "user-1",
		TransactionID:   7,
		Diamonds:        50,
		BalanceAfter:    150,
		TransactionType: models.TransactionTypeEarned,
	})
	assert.Equal(t, 1, txBus.Pending())

	require.NoError(t, txBus.Flush(context.Background()))
	assert.Equal(t, 0, txBus.Pending())

	select {
	case ev := <-received:
		assert.Equal(t, "user-1", ev.UserID)
		assert.Equal(t, int64(50), ev.Diamonds)
		assert.Equal(t, int64(150), ev.BalanceAfter)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered within timeout")
	}
}

func TestTransactionalBus_DiscardDropsEvents(t *testing.T) {
	mainBus := NewBus()
	txBus := NewTransactionalBus(mainBus)

	delivered := make(chan struct{}, 1)
	mainBus.Subscribe(EventTypeQuestCompleted, func(ctx context.Context, event Event) {
		delivered <- struct{}{}
	})

	txBus.Publish(QuestCompletedEvent{UserID: "user-1", QuestID: 1})
	txBus.Discard()
	require.NoError(t, txBus.Flush(context.Background()))

	select {
	case <-delivered:
		t.Fatal("discarded event was delivered")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBus_SubscribeAllReceivesEveryType(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	seen := make(map[EventType]int)
	var wg sync.WaitGroup
	wg.Add(len(AllEventTypes))

	bus.SubscribeAll(func(ctx context.Context, event Event) {
		defer wg.Done()
		mu.Lock()
		seen[event.Type()]++
		mu.Unlock()
	})

	ctx := context.Background()
	bus.Emit(ctx, DiamondsGrantedEvent{UserID: "u"})
	bus.Emit(ctx, DiamondsSpentEvent{UserID: "u"})
	bus.Emit(ctx, LevelUpEvent{UserID: "u"})
	bus.Emit(ctx, QuestCompletedEvent{UserID: "u"})
	bus.Emit(ctx, BadgeUnlockedEvent{UserID: "u"})

	wg.Wait()
	for _, eventType := range AllEventTypes {
		assert.Equal(t, 1, seen[eventType], "event type %s", eventType)
	}
}

func TestBus_PanickingHandlerDoesNotBlockOthers(t *testing.T) {
	bus := NewBus()

	done := make(chan struct{}, 1)
	bus.Subscribe(EventTypeLevelUp, func(ctx context.Context, event Event) {
		panic("boom")
	})
	bus.Subscribe(EventTypeLevelUp, func(ctx context.Context, event Event) {
		done <- struct{}{}
	})

	bus.Emit(context.Background(), LevelUpEvent{UserID: "u", PreviousLevel: 1, NewLevel: 2})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("healthy handler was not called")
	}
}

func TestTransactionalBus_FlushContextSurvivesCancel(t *testing.T) {
	mainBus := NewBus()
	txBus := NewTransactionalBus(mainBus)

	ctxErr := make(chan error, 1)
	mainBus.Subscribe(EventTypeBadgeUnlocked, func(ctx context.Context, event Event) {
		ctxErr <- ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	txBus.Publish(BadgeUnlockedEvent{UserID: "u", BadgeID: "b"})
	require.NoError(t, txBus.Flush(ctx))
	cancel()

	select {
	case err := <-ctxErr:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}
