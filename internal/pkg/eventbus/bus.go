package eventbus

import (
	"sync"
	"time"
)

// Identity transitions published by the session accessor.
const (
	SignedIn  = "identity.signed_in"
	SignedOut = "identity.signed_out"
	Refreshed = "identity.refreshed"
	Expired   = "identity.expired"
)

// Event describes an identity change on one browser session. SessionID is the
// session the identity now lives on. PreviousSessionID is set when sign-in
// rotated the session id.
type Event struct {
	Type              string    `json:"type"`
	Timestamp         time.Time `json:"ts"`
	SessionID         string    `json:"session_id"`
	PreviousSessionID string    `json:"previous_session_id,omitempty"`
	UserID            string    `json:"user_id,omitempty"`
}

// Bus fans events out to subscribers on buffered channels. Publishing never
// blocks: a full subscriber misses the event.
type Bus struct {
	mu     sync.RWMutex
	subs   map[chan Event]map[string]bool
	closed bool
}

func New() *Bus {
	return &Bus{
		subs: make(map[chan Event]map[string]bool),
	}
}

// Subscribe returns a channel for the given types, or for every type when
// none are given.
func (b *Bus) Subscribe(types ...string) chan Event {
	ch := make(chan Event, 64)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	if len(types) == 0 {
		b.subs[ch] = nil
		return ch
	}
	filter := make(map[string]bool, len(types))
	for _, t := range types {
		filter[t] = true
	}
	b.subs[ch] = filter
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
}

func (b *Bus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for ch, filter := range b.subs {
		if filter != nil && !filter[e.Type] {
			continue
		}
		select {
		case ch <- e:
		default:
		}
	}
}

// PublishType builds and publishes an event for one session.
func (b *Bus) PublishType(eventType, sessionID, userID string) {
	b.Publish(Event{
		Type:      eventType,
		Timestamp: time.Now(),
		SessionID: sessionID,
		UserID:    userID,
	})
}

// Close closes every subscriber channel. Later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for ch := range b.subs {
		close(ch)
		delete(b.subs, ch)
	}
}
