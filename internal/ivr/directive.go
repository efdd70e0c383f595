package ivr

import "ivr-gateway/internal/calls"

// Directive is the provider-agnostic answer to a callback.
//
// It must contain only what a markup renderer needs (what to say, what to do,
// where the next callback goes) plus the side effects the handler owes the
// ledger. No TwiML here.
type Directive struct {
	Kind DirectiveKind `json:"kind"`

	// Say is spoken first. Notice, when set, is spoken before Say.
	Say    string `json:"say,omitempty"`
	Notice string `json:"notice,omitempty"`

	// Next is the route the provider posts to when this verb finishes.
	// Fallback is where the call goes if the verb ends without input.
	Next     Route `json:"next,omitempty"`
	Fallback Route `json:"fallback,omitempty"`

	NumDigits           int    `json:"num_digits,omitempty"`
	TimeoutSeconds      int    `json:"timeout_seconds,omitempty"`
	MaxRecordingSeconds int    `json:"max_recording_seconds,omitempty"`
	DialNumber          string `json:"dial_number,omitempty"`

	Outcome Outcome `json:"outcome"`
}

type DirectiveKind string

const (
	KindPrompt DirectiveKind = "prompt"
	KindRecord DirectiveKind = "record"
	KindDial   DirectiveKind = "dial"
	KindHangup DirectiveKind = "hangup"
)

// Route names a callback endpoint. Absolute URLs are resolved per request.
type Route string

const (
	RouteEntry             Route = "entry"
	RouteMenu              Route = "menu"
	RouteChoice            Route = "choice"
	RouteVoicemailComplete Route = "voicemail-complete"
	RoutePhoneComplete     Route = "phone-complete"
)

// Outcome lists the ledger side effects a directive implies.
//
// UpdateCall: mark the call completed with Forwarding and a server-side duration.
// CaptureRecording: persist the provider recording (insert is idempotent).
// Duplicate: the call already terminated; the call row must not be rewritten.
type Outcome struct {
	Forwarding       calls.Forwarding `json:"forwarding,omitempty"`
	UpdateCall       bool             `json:"update_call,omitempty"`
	CaptureRecording bool             `json:"capture_recording,omitempty"`
	Duplicate        bool             `json:"duplicate,omitempty"`
}

// Input is the caller-supplied part of a callback that the machine looks at.
type Input struct {
	Digits string

	// Forwarding is what the ledger already holds for the call, if anything.
	Forwarding calls.Forwarding
}
