package service

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var testLogger = zap.NewNop()

// fakeBus records published events for assertions.
type fakeBus struct {
	mu     sync.Mutex
	events []string
}

func (b *fakeBus) Publish(eventType string, payload any) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, eventType)
	return true
}

func (b *fakeBus) published() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.events))
	copy(out, b.events)
	return out
}

// staticSigner stamps a deterministic payload instead of a real signature.
type staticSigner struct{}

func (staticSigner) Encode(bookingID, driverID int64, slotStart, slotEnd time.Time) (string, error) {
	return fmt.Sprintf("qr-%d-%d", bookingID, driverID), nil
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
