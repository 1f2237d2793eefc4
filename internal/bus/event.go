package bus

import (
	"time"

	"github.com/google/uuid"
)

// Event kinds published by the daemon.
const (
	KindGroupMessage  = "wa.group_message"
	KindCommand       = "wa.command"
	KindConnected     = "wa.connected"
	KindDisconnected  = "wa.disconnected"
	KindStatusChanged = "session.status_changed"
	KindContactAdded  = "harvest.contact_added"
	KindSightingDone  = "harvest.sighting"
	KindCommandDone   = "harvest.command"
	KindNotifySent    = "notify.sent"
	KindNotifyFailed  = "notify.failed"
	KindExternalWrite = "store.external_write"
	KindStoreFailure  = "store.failure"
)

// Event is a domain event carried by the bus.
type Event struct {
	ID        string
	Kind      string
	Timestamp time.Time
	Payload   any
}

// NewEvent stamps a fresh event of the given kind.
func NewEvent(kind string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}
