package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"pyquest/events"
	"pyquest/infrastructure/observability"
)

const (
	// EventStreamName is the JetStream stream holding forwarded events
	EventStreamName = "pyquest_events"
	subjectPrefix   = "pyquest.rewards."
	sourceService   = "pyquest-rewards"
)

// MessagePublisher is the subset of NATSClient the forwarder needs
type MessagePublisher interface {
	Publish(ctx context.Context, subject, msgID string, data []byte) error
}

// EventEnvelope wraps every forwarded event
type EventEnvelope struct {
	EventID       string          `json:"eventId"`
	EventType     string          `json:"eventType"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"sourceService"`
	Payload       json.RawMessage `json:"payload"`
}

// NATSEventForwarder republishes committed bus events to NATS for notification collaborators
type NATSEventForwarder struct {
	publisher MessagePublisher
	metrics   *observability.MetricsProvider
	newID     func() string
	now       func() time.Time
}

// NewNATSEventForwarder creates a forwarder. metrics may be nil.
func NewNATSEventForwarder(publisher MessagePublisher, metrics *observability.MetricsProvider) *NATSEventForwarder {
	return &NATSEventForwarder{
		publisher: publisher,
		metrics:   metrics,
		newID:     func() string { return uuid.New().String() },
		now:       time.Now,
	}
}

// SubjectFor maps an event type to its subject
func SubjectFor(eventType events.EventType) string {
	return subjectPrefix + string(eventType)
}

// Subjects returns every subject the forwarder publishes to
func Subjects() []string {
	subjects := make([]string, 0, len(events.AllEventTypes))
	for _, eventType := range events.AllEventTypes {
		subjects = append(subjects, SubjectFor(eventType))
	}
	return subjects
}

// Register subscribes the forwarder to every event type on bus
func (f *NATSEventForwarder) Register(bus *events.Bus) {
	bus.SubscribeAll(func(ctx context.Context, event events.Event) {
		if err := f.Forward(ctx, event); err != nil {
			log.WithFields(log.Fields{
				"eventType": event.Type(),
				"error":     err,
			}).Error("Failed to forward event to NATS")
		}
	})
}

// eventID is the JetStream message id. Keyed events reuse their key so a replayed
// commit falls inside the stream's duplicate window.
func (f *NATSEventForwarder) eventID(event events.Event) string {
	if keyed, ok := event.(events.Keyed); ok {
		if key := keyed.DedupKey(); key != "" {
			return key
		}
	}
	return f.newID()
}

// Forward wraps event in an envelope and publishes it
func (f *NATSEventForwarder) Forward(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	envelope := EventEnvelope{
		EventID:       f.eventID(event),
		EventType:     string(event.Type()),
		Timestamp:     f.now().UTC(),
		SourceService: sourceService,
		Payload:       payload,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	subject := SubjectFor(event.Type())
	if err := f.publisher.Publish(ctx, subject, envelope.EventID, data); err != nil {
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}

	f.metrics.RecordNATSMessagePublished(string(event.Type()))

	log.WithFields(log.Fields{
		"eventType": event.Type(),
		"eventId":   envelope.EventID,
		"subject":   subject,
	}).Debug("Forwarded event to NATS")

	return nil
}
