// Package events provides the in-process bus that decouples state commits from
// notification side effects: publishing never blocks, and a failed handler
// never rolls anything back.
package events

import (
	"sync"
	"time"
)

// Event types published by the core services.
const (
	TypeBookingConfirmed = "booking.confirmed"
	TypeBookingNoShow    = "booking.no_show"
	TypeSessionStopped   = "session.stopped"
	TypeInvoiceIssued    = "invoice.issued"
	TypeInvoicePaid      = "invoice.paid"
	TypeDriverBanned     = "driver.banned"
)

// Event is a lightweight domain event.
type Event struct {
	Type       string
	Payload    any
	OccurredAt time.Time
}

// Handler reacts to an event.
type Handler func(Event)

// Bus fans events out to type-subscribed handlers on a single consumer
// goroutine. The publish channel is buffered; when it is full the event is
// dropped rather than blocking the caller's commit path.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	ch       chan Event
	closed   bool
	wg       sync.WaitGroup
}

// NewBus returns a started bus with the given buffer size.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	b := &Bus{
		handlers: make(map[string][]Handler),
		ch:       make(chan Event, buffer),
	}
	b.wg.Add(1)
	go b.consume()
	return b
}

// Subscribe registers a handler for a given event type.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish enqueues the event. Returns false when the bus is closed or the
// buffer is full and the event was dropped.
func (b *Bus) Publish(eventType string, payload any) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return false
	}
	select {
	case b.ch <- Event{Type: eventType, Payload: payload, OccurredAt: time.Now().UTC()}:
		return true
	default:
		return false
	}
}

// Close stops accepting events and waits for queued ones to be handled.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.ch)
	b.mu.Unlock()
	b.wg.Wait()
}

func (b *Bus) consume() {
	defer b.wg.Done()
	for event := range b.ch {
		b.mu.RLock()
		handlers := append([]Handler(nil), b.handlers[event.Type]...)
		b.mu.RUnlock()
		for _, handler := range handlers {
			handler(event)
		}
	}
}
