package calls

import (
	"math"
	"time"
)

// Call is one logical telephone call, keyed by the provider's call session id.
//
// Invariants:
// - SessionID is unique; at most one row per provider session.
// - Forwarding is written once, by the callback that terminates the call.
// - DurationSeconds is only meaningful once Status == CallStatusCompleted.
type Call struct {
	ID        string `json:"id" db:"id"`
	SessionID string `json:"session_id" db:"session_id"`

	From      string `json:"from" db:"from_number"`
	Called    string `json:"called" db:"called_number"`
	Direction string `json:"direction" db:"direction"`

	Status     CallStatus `json:"status" db:"status"`
	Forwarding Forwarding `json:"forwarding" db:"forwarding"`

	// DurationSeconds is computed server-side from CreatedAt; never taken from callback input.
	DurationSeconds int `json:"duration" db:"duration"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsCompleted reports whether the call already went through a terminating callback.
func (c Call) IsCompleted() bool { return c.Status == CallStatusCompleted }

// Recording is a voicemail left on a call. It is owned by exactly one Call and never updated.
type Recording struct {
	ID     string `json:"id" db:"id"`
	CallID string `json:"call_id" db:"call_id"`

	ProviderRecordingID string `json:"provider_recording_id" db:"provider_recording_id"`
	// DurationSeconds is the provider-reported recording length.
	DurationSeconds int    `json:"duration" db:"duration"`
	URL             string `json:"url" db:"url"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CallStatus is stored as reported by the provider (Twilio uses hyphenated values).
type CallStatus string

const (
	CallStatusQueued     CallStatus = "queued"
	CallStatusRinging    CallStatus = "ringing"
	CallStatusInProgress CallStatus = "in-progress"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusFailed     CallStatus = "failed"
	CallStatusNoAnswer   CallStatus = "no-answer"
	CallStatusBusy       CallStatus = "busy"
	CallStatusCanceled   CallStatus = "canceled"
)

// Forwarding records how a call was terminated.
type Forwarding string

const (
	ForwardingNone         Forwarding = "none"
	ForwardingVoicemail    Forwarding = "voicemail"
	ForwardingLiveTransfer Forwarding = "liveTransfer"
)

func (f Forwarding) Valid() bool {
	switch f {
	case ForwardingNone, ForwardingVoicemail, ForwardingLiveTransfer:
		return true
	default:
		return false
	}
}

// ElapsedSeconds returns now-createdAt rounded to whole seconds, never negative.
// Clock skew between the ledger and this process can make createdAt land in the future.
func ElapsedSeconds(createdAt, now time.Time) int {
	if createdAt.IsZero() {
		return 0
	}
	d := now.Sub(createdAt)
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds()))
}
