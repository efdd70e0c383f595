package ivr

// Phase is where a call stands in the IVR flow.
//
// GREETING and AWAITING_CHOICE are non-terminal; COMPLETED is terminal and the
// call is never re-entered once it is reached.
type Phase string

const (
	PhaseNone               Phase = ""
	PhaseGreeting           Phase = "GREETING"
	PhaseAwaitingChoice     Phase = "AWAITING_CHOICE"
	PhaseRecordingVoicemail Phase = "RECORDING_VOICEMAIL"
	PhaseConnectingLive     Phase = "CONNECTING_LIVE"
	PhaseCompleted          Phase = "COMPLETED"
)

func (p Phase) Terminal() bool { return p == PhaseCompleted }

// Event is the provider callback that drives a transition.
type Event string

const (
	EventEntry             Event = "entry"
	EventMenu              Event = "menu"
	EventChoice            Event = "choice"
	EventVoicemailComplete Event = "voicemail_complete"
	EventPhoneComplete     Event = "phone_complete"
)

// ResumePhase returns the phase a stateless callback legitimately arrives in.
// Callbacks carry no phase of their own; the endpoint they hit implies it.
// completed overrides everything: the ledger or the replay guard already saw
// this call terminate.
func ResumePhase(event Event, completed bool) Phase {
	if completed {
		return PhaseCompleted
	}
	switch event {
	case EventMenu, EventChoice:
		return PhaseAwaitingChoice
	case EventVoicemailComplete:
		return PhaseRecordingVoicemail
	case EventPhoneComplete:
		return PhaseConnectingLive
	default:
		return PhaseNone
	}
}
