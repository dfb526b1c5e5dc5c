package mocks

import (
	"sync"

	"github.com/mcoot/clickergame/internal/broadcast"
	"github.com/mcoot/clickergame/internal/model"
)

// RecordedEvent is a single event captured by MockBroadcaster
type RecordedEvent struct {
	ConnID  string // empty for broadcasts
	Event   model.EventType
	Payload any
}

// MockBroadcaster records published events for assertions
type MockBroadcaster struct {
	mu     sync.Mutex
	events []RecordedEvent
}

// Ensure MockBroadcaster implements Broadcaster
var _ broadcast.Broadcaster = (*MockBroadcaster)(nil)

// NewMockBroadcaster creates an empty MockBroadcaster
func NewMockBroadcaster() *MockBroadcaster {
	return &MockBroadcaster{}
}

// Publish records a broadcast event
func (b *MockBroadcaster) Publish(event model.EventType, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, RecordedEvent{Event: event, Payload: payload})
}

// PublishTo records a targeted event
func (b *MockBroadcaster) PublishTo(connID string, event model.EventType, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, RecordedEvent{ConnID: connID, Event: event, Payload: payload})
}

// Events returns a copy of everything recorded so far
func (b *MockBroadcaster) Events() []RecordedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]RecordedEvent, len(b.events))
	copy(out, b.events)
	return out
}

// EventsNamed returns recorded events with the given name, in order
func (b *MockBroadcaster) EventsNamed(event model.EventType) []RecordedEvent {
	var out []RecordedEvent
	for _, e := range b.Events() {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// Last returns the most recent event, or false if nothing was recorded
func (b *MockBroadcaster) Last() (RecordedEvent, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.events) == 0 {
		return RecordedEvent{}, false
	}
	return b.events[len(b.events)-1], true
}

// Reset clears recorded events
func (b *MockBroadcaster) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
}
