package api

import (
	"encoding/json"

	"github.com/matheus3301/wpp-harvest/internal/journal"
	"github.com/matheus3301/wpp-harvest/internal/store"
)

type Empty struct{}

type StatusResponse struct {
	Session       string           `json:"session"`
	Status        string           `json:"status"`
	StatusSinceMs int64            `json:"status_since_ms"`
	PhoneNumber   string           `json:"phone_number,omitempty"`
	UptimeMs      int64            `json:"uptime_ms"`
	Stats         store.Stats      `json:"stats"`
	Outbox        map[string]int64 `json:"outbox,omitempty"`
	DroppedEvents uint64           `json:"dropped_events"`
}

type GroupsResponse struct {
	Groups []store.Group `json:"groups"`
}

type ContactsResponse struct {
	Contacts []store.Contact `json:"contacts"`
}

type BlacklistResponse struct {
	Entries []store.BlacklistEntry `json:"entries"`
}

type AdminsResponse struct {
	Admins store.Admins `json:"admins"`
}

type StatsRequest struct {
	Refresh bool `json:"refresh"`
}

type StatsResponse struct {
	Stats store.Stats `json:"stats"`
}

// RefRequest names a user by id, @username or +phone.
type RefRequest struct {
	Ref string `json:"ref"`
}

type IDRequest struct {
	ID string `json:"id"`
}

type EntryResponse struct {
	Entry store.BlacklistEntry `json:"entry"`
}

type ContactResponse struct {
	Contact store.Contact `json:"contact"`
}

type GroupResponse struct {
	Group store.Group `json:"group"`
}

type AdminRequest struct {
	GroupID   string `json:"group_id"`
	UserID    string `json:"user_id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type AuditRequest struct {
	Limit int `json:"limit"`
}

type AuditResponse struct {
	Entries []journal.AuditEntry `json:"entries"`
}

// WatchRequest filters the event stream by kind prefix; empty means all.
type WatchRequest struct {
	Namespace string `json:"namespace"`
}

type Event struct {
	ID           string          `json:"id"`
	Kind         string          `json:"kind"`
	OccurredAtMs int64           `json:"occurred_at_ms"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

// PairEvent mirrors one step of QR pairing.
type PairEvent struct {
	Type    string `json:"type"`
	QRCode  string `json:"qr_code,omitempty"`
	Message string `json:"message,omitempty"`
}
