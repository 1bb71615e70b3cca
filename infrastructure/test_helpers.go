package infrastructure

import (
	"context"
	"sync"
)

// PublishedMessage is one message captured by RecordingPublisher
type PublishedMessage struct {
	Subject string
	MsgID   string
	Data    []byte
}

// RecordingPublisher is an in-memory MessagePublisher for tests
type RecordingPublisher struct {
	mu       sync.Mutex
	Messages []PublishedMessage
	Err      error
}

// Publish records the message or returns Err
func (p *RecordingPublisher) Publish(_ context.Context, subject, msgID string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Messages = append(p.Messages, PublishedMessage{Subject: subject, MsgID: msgID, Data: data})
	return nil
}

// Published returns a copy of the captured messages
func (p *RecordingPublisher) Published() []PublishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PublishedMessage, len(p.Messages))
	copy(out, p.Messages)
	return out
}
