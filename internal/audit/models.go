package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - Type is required; everything else is best-effort context.
// - Callers never block a live call on audit failures.
//
// Storage: table audit_events (see internal/migrations), INSERT-only.

type Event struct {
	ID string `json:"id" db:"id"`

	// Type indicates the category of the audit record.
	Type EventType `json:"type" db:"type"`

	// SessionID is the provider call session the event concerns.
	SessionID string `json:"session_id,omitempty" db:"session_id"`
	// CallID is the ledger id, when the call row was found.
	CallID string `json:"call_id,omitempty" db:"call_id"`

	// ActorUserID is the authenticated operator causing the event (if applicable).
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_id"`

	// Endpoint is the callback route that observed the event.
	Endpoint string `json:"endpoint,omitempty" db:"endpoint"`

	// Reason is a short human-readable description for internal ops.
	Reason string `json:"reason,omitempty" db:"reason"`

	RequestID string `json:"request_id,omitempty" db:"request_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeLedgerWriteFailed EventType = "ledger_write_failed"
	EventTypeCallMissing       EventType = "call_missing"
	EventTypeDuplicateCallback EventType = "duplicate_callback"
	EventTypeOperatorLookup    EventType = "operator_lookup"
)
