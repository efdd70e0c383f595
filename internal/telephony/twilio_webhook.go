package telephony

import (
	"net/http"
	"strconv"
	"strings"
)

// CallbackForm is the fixed schema of an IVR voice callback.
// Twilio sends application/x-www-form-urlencoded by default.
// Ref: https://www.twilio.com/docs/voice/twiml#request-parameters
//
// Every field is optional; an endpoint reads only what it needs.
// Values are trimmed; RecordingDuration falls back to 0 when unparseable.
type CallbackForm struct {
	CallSid    string
	From       string
	Called     string
	Direction  string
	CallStatus string
	Msg        string

	Digits string

	RecordingSid      string
	RecordingDuration int
	RecordingURL      string
}

// ParseCallbackForm never fails on missing fields. It returns an error only for
// a body that cannot be parsed at all; the zero form is still usable then.
func ParseCallbackForm(r *http.Request) (CallbackForm, error) {
	if err := r.ParseForm(); err != nil {
		return CallbackForm{}, err
	}
	f := CallbackForm{
		CallSid:      field(r, "CallSid"),
		From:         normalizePhone(field(r, "From")),
		Called:       normalizePhone(field(r, "Called")),
		Direction:    field(r, "Direction"),
		CallStatus:   field(r, "CallStatus"),
		Msg:          field(r, "msg"),
		Digits:       field(r, "Digits"),
		RecordingSid: field(r, "RecordingSid"),
		RecordingURL: field(r, "RecordingUrl"),
	}
	f.RecordingDuration = parseSeconds(field(r, "RecordingDuration"))
	return f, nil
}

func field(r *http.Request, key string) string {
	return strings.TrimSpace(r.PostFormValue(key))
}

// normalizePhone strips formatting from dialable numbers ("+1 (555) 010-0000"
// becomes "+15550100000"). Identifiers that are not numbers, such as
// "anonymous", "client:alice" or SIP URIs, are returned unchanged.
func normalizePhone(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return s
		}
	}
	if out := b.String(); strings.TrimPrefix(out, "+") != "" {
		return out
	}
	return s
}

func parseSeconds(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
