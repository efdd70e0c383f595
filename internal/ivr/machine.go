package ivr

import (
	"strings"

	"ivr-gateway/internal/calls"
)

// Machine decides the next phase and directive for a callback.
//
// Decide is pure: no I/O, no clock, no shared mutable state. Transitions live
// in a table; adding a menu branch means adding a row, not a branch in code.
type Machine struct {
	menu  Menu
	table map[transitionKey]step
}

type transitionKey struct {
	from  Phase
	event Event
}

type step func(m *Machine, in Input) (Phase, Directive)

func NewMachine(menu Menu) (*Machine, error) {
	if err := menu.Validate(); err != nil {
		return nil, err
	}
	return &Machine{menu: menu, table: transitions()}, nil
}

func (m *Machine) Menu() Menu { return m.menu }

func transitions() map[transitionKey]step {
	return map[transitionKey]step{
		{PhaseNone, EventEntry}: greet,

		{PhaseGreeting, EventMenu}:       reprompt,
		{PhaseAwaitingChoice, EventMenu}: reprompt,

		{PhaseGreeting, EventChoice}:       choose,
		{PhaseAwaitingChoice, EventChoice}: choose,

		{PhaseRecordingVoicemail, EventVoicemailComplete}: completeVoicemail,
		{PhaseConnectingLive, EventPhoneComplete}:         completeLive,

		{PhaseCompleted, EventVoicemailComplete}: duplicateVoicemail,
		{PhaseCompleted, EventPhoneComplete}:     duplicateLive,
		{PhaseCompleted, EventEntry}:             endCall,
		{PhaseCompleted, EventMenu}:              endCall,
		{PhaseCompleted, EventChoice}:            endCall,
	}
}

func (m *Machine) Decide(phase Phase, event Event, in Input) (Phase, Directive) {
	if s, ok := m.table[transitionKey{from: phase, event: event}]; ok {
		return s(m, in)
	}
	return m.unexpected(phase)
}

// unexpected keeps the phase and re-issues the menu so the caller still hears something.
func (m *Machine) unexpected(phase Phase) (Phase, Directive) {
	return phase, m.prompt("")
}

func (m *Machine) prompt(notice string) Directive {
	return Directive{
		Kind:           KindPrompt,
		Say:            m.menu.Greeting,
		Notice:         notice,
		Next:           RouteChoice,
		Fallback:       RouteMenu,
		NumDigits:      m.menu.numDigits(),
		TimeoutSeconds: m.menu.GatherTimeoutSeconds,
	}
}

func (m *Machine) hangup(out Outcome) Directive {
	return Directive{Kind: KindHangup, Say: m.menu.Goodbye, Outcome: out}
}

func greet(m *Machine, _ Input) (Phase, Directive) {
	return PhaseGreeting, m.prompt("")
}

func reprompt(m *Machine, _ Input) (Phase, Directive) {
	return PhaseAwaitingChoice, m.prompt("")
}

func choose(m *Machine, in Input) (Phase, Directive) {
	branch, ok := m.menu.Options[strings.TrimSpace(in.Digits)]
	if !ok {
		return PhaseAwaitingChoice, m.prompt(m.menu.InvalidChoice)
	}
	switch branch {
	case calls.ForwardingVoicemail:
		return PhaseRecordingVoicemail, Directive{
			Kind:                KindRecord,
			Say:                 m.menu.VoicemailPrompt,
			Next:                RouteVoicemailComplete,
			MaxRecordingSeconds: m.menu.MaxRecordingSeconds,
		}
	case calls.ForwardingLiveTransfer:
		return PhaseConnectingLive, Directive{
			Kind:           KindDial,
			Say:            m.menu.ConnectingPrompt,
			Next:           RoutePhoneComplete,
			DialNumber:     m.menu.ForwardingNumber,
			TimeoutSeconds: m.menu.DialTimeoutSeconds,
		}
	default:
		return PhaseAwaitingChoice, m.prompt(m.menu.InvalidChoice)
	}
}

func completeVoicemail(m *Machine, _ Input) (Phase, Directive) {
	return PhaseCompleted, m.hangup(Outcome{
		Forwarding:       calls.ForwardingVoicemail,
		UpdateCall:       true,
		CaptureRecording: true,
	})
}

func completeLive(m *Machine, _ Input) (Phase, Directive) {
	return PhaseCompleted, m.hangup(Outcome{
		Forwarding: calls.ForwardingLiveTransfer,
		UpdateCall: true,
	})
}

// A re-delivered voicemail termination may still carry the only recording
// (the first delivery can lose its insert). A call that ended any other way
// never gets one.
func duplicateVoicemail(m *Machine, in Input) (Phase, Directive) {
	return PhaseCompleted, m.hangup(Outcome{
		Forwarding:       calls.ForwardingVoicemail,
		CaptureRecording: in.Forwarding == calls.ForwardingVoicemail,
		Duplicate:        true,
	})
}

func duplicateLive(m *Machine, _ Input) (Phase, Directive) {
	return PhaseCompleted, m.hangup(Outcome{
		Forwarding: calls.ForwardingLiveTransfer,
		Duplicate:  true,
	})
}

func endCall(m *Machine, _ Input) (Phase, Directive) {
	return PhaseCompleted, m.hangup(Outcome{})
}
