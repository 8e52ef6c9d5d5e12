package bus

import (
	"time"

	"github.com/google/uuid"
)

// Event kinds published inside the client process. Subscribers filter by
// namespace prefix ("chat.", "realtime.").
const (
	KindContactsUpdated   = "chat.contacts_updated"
	KindMessagesUpdated   = "chat.messages_updated"
	KindResolutionChanged = "chat.resolution_changed"
	KindSendAck           = "chat.send_ack"
	KindSendFailed        = "chat.send_failed"

	KindRealtimeMessage = "realtime.message"
	KindRealtimeStatus  = "realtime.status_changed"
)

// Event represents a domain event published on the bus.
type Event struct {
	ID        string
	Kind      string
	Timestamp time.Time
	Payload   any
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(kind string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}
