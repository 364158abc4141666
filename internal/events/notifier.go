package events

import (
	"go.uber.org/zap"
)

// Notifier is the stand-in for the external notification channel (email/push).
// Delivery is represented by a structured log entry; retries and transport are
// the collaborator's concern, never the transactional core's.
type Notifier struct {
	logger *zap.Logger
}

// NewNotifier returns a notifier writing to the given logger.
func NewNotifier(logger *zap.Logger) *Notifier {
	return &Notifier{logger: logger}
}

// Register subscribes the notifier to every outward-facing event type.
func (n *Notifier) Register(bus *Bus) {
	for _, eventType := range []string{
		TypeBookingConfirmed,
		TypeBookingNoShow,
		TypeSessionStopped,
		TypeInvoiceIssued,
		TypeInvoicePaid,
		TypeDriverBanned,
	} {
		bus.Subscribe(eventType, n.handle)
	}
}

func (n *Notifier) handle(event Event) {
	n.logger.Info("notification dispatched",
		zap.String("event_type", event.Type),
		zap.Time("occurred_at", event.OccurredAt),
		zap.Any("payload", event.Payload),
	)
}
