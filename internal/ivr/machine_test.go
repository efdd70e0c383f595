package ivr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ivr-gateway/internal/calls"
)

func newTestMachine(t *testing.T) *Machine {
	t.Helper()
	m, err := NewMachine(DefaultMenu("+15550001111"))
	require.NoError(t, err)
	return m
}

func TestDecide_EntryGreets(t *testing.T) {
	m := newTestMachine(t)

	phase, d := m.Decide(PhaseNone, EventEntry, Input{})
	assert.Equal(t, PhaseGreeting, phase)
	assert.Equal(t, KindPrompt, d.Kind)
	assert.Equal(t, RouteChoice, d.Next)
	assert.Equal(t, RouteMenu, d.Fallback)
	assert.Equal(t, 1, d.NumDigits)
	assert.Empty(t, d.Notice)
	assert.Equal(t, Outcome{}, d.Outcome)
}

func TestDecide_ChoiceBranches(t *testing.T) {
	m := newTestMachine(t)

	cases := []struct {
		name   string
		from   Phase
		digits string
		phase  Phase
		kind   DirectiveKind
		next   Route
	}{
		{name: "voicemail", from: PhaseAwaitingChoice, digits: "1", phase: PhaseRecordingVoicemail, kind: KindRecord, next: RouteVoicemailComplete},
		{name: "live transfer", from: PhaseAwaitingChoice, digits: "2", phase: PhaseConnectingLive, kind: KindDial, next: RoutePhoneComplete},
		{name: "straight from greeting", from: PhaseGreeting, digits: "1", phase: PhaseRecordingVoicemail, kind: KindRecord, next: RouteVoicemailComplete},
		{name: "padded digit", from: PhaseAwaitingChoice, digits: " 2 ", phase: PhaseConnectingLive, kind: KindDial, next: RoutePhoneComplete},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			phase, d := m.Decide(tc.from, EventChoice, Input{Digits: tc.digits})
			assert.Equal(t, tc.phase, phase)
			assert.Equal(t, tc.kind, d.Kind)
			assert.Equal(t, tc.next, d.Next)
			assert.False(t, d.Outcome.UpdateCall, "choice must not write the ledger")
		})
	}
}

func TestDecide_DialUsesForwardingNumber(t *testing.T) {
	m := newTestMachine(t)
	_, d := m.Decide(PhaseAwaitingChoice, EventChoice, Input{Digits: "2"})
	assert.Equal(t, "+15550001111", d.DialNumber)
	assert.Equal(t, 30, d.TimeoutSeconds)
}

func TestDecide_UnrecognizedDigitsReprompt(t *testing.T) {
	m := newTestMachine(t)
	_, want := m.Decide(PhaseNone, EventEntry, Input{})

	for _, digits := range []string{"", "3", "9", "*", "#", "12", "abc"} {
		phase, d := m.Decide(PhaseAwaitingChoice, EventChoice, Input{Digits: digits})
		assert.Equal(t, PhaseAwaitingChoice, phase, "digits %q", digits)
		assert.Equal(t, KindPrompt, d.Kind, "digits %q", digits)
		assert.Equal(t, want.Next, d.Next)
		assert.Equal(t, m.Menu().InvalidChoice, d.Notice)
	}
}

func TestDecide_MenuReissuesPrompt(t *testing.T) {
	m := newTestMachine(t)
	phase, d := m.Decide(PhaseAwaitingChoice, EventMenu, Input{})
	assert.Equal(t, PhaseAwaitingChoice, phase)
	assert.Equal(t, KindPrompt, d.Kind)
	assert.Empty(t, d.Notice)
}

func TestDecide_Terminations(t *testing.T) {
	m := newTestMachine(t)

	phase, d := m.Decide(PhaseRecordingVoicemail, EventVoicemailComplete, Input{})
	assert.Equal(t, PhaseCompleted, phase)
	assert.Equal(t, KindHangup, d.Kind)
	assert.Equal(t, Outcome{Forwarding: calls.ForwardingVoicemail, UpdateCall: true, CaptureRecording: true}, d.Outcome)

	phase, d = m.Decide(PhaseConnectingLive, EventPhoneComplete, Input{})
	assert.Equal(t, PhaseCompleted, phase)
	assert.Equal(t, KindHangup, d.Kind)
	assert.Equal(t, Outcome{Forwarding: calls.ForwardingLiveTransfer, UpdateCall: true}, d.Outcome)
	assert.False(t, d.Outcome.CaptureRecording)
}

func TestDecide_DuplicateTerminationsDoNotRewriteCall(t *testing.T) {
	m := newTestMachine(t)

	_, d := m.Decide(PhaseCompleted, EventVoicemailComplete, Input{Forwarding: calls.ForwardingVoicemail})
	assert.True(t, d.Outcome.Duplicate)
	assert.False(t, d.Outcome.UpdateCall)
	assert.True(t, d.Outcome.CaptureRecording)

	_, d = m.Decide(PhaseCompleted, EventPhoneComplete, Input{})
	assert.True(t, d.Outcome.Duplicate)
	assert.False(t, d.Outcome.UpdateCall)
	assert.False(t, d.Outcome.CaptureRecording)
}

func TestDecide_StrayVoicemailTerminationNeverCapturesForOtherOutcomes(t *testing.T) {
	m := newTestMachine(t)
	for _, stored := range []calls.Forwarding{calls.ForwardingLiveTransfer, calls.ForwardingNone, ""} {
		_, d := m.Decide(PhaseCompleted, EventVoicemailComplete, Input{Forwarding: stored})
		assert.True(t, d.Outcome.Duplicate, "stored=%q", stored)
		assert.False(t, d.Outcome.CaptureRecording, "stored=%q", stored)
	}
}

func TestDecide_CompletedIsTerminal(t *testing.T) {
	m := newTestMachine(t)
	for _, ev := range []Event{EventEntry, EventMenu, EventChoice} {
		phase, d := m.Decide(PhaseCompleted, ev, Input{Digits: "1"})
		assert.Equal(t, PhaseCompleted, phase)
		assert.Equal(t, KindHangup, d.Kind)
		assert.Equal(t, Outcome{}, d.Outcome)
	}
}

func TestDecide_UnknownPairKeepsPhaseAndPrompts(t *testing.T) {
	m := newTestMachine(t)
	phase, d := m.Decide(PhaseGreeting, EventPhoneComplete, Input{})
	assert.Equal(t, PhaseGreeting, phase)
	assert.Equal(t, KindPrompt, d.Kind)
}

func TestResumePhase(t *testing.T) {
	assert.Equal(t, PhaseNone, ResumePhase(EventEntry, false))
	assert.Equal(t, PhaseAwaitingChoice, ResumePhase(EventMenu, false))
	assert.Equal(t, PhaseAwaitingChoice, ResumePhase(EventChoice, false))
	assert.Equal(t, PhaseRecordingVoicemail, ResumePhase(EventVoicemailComplete, false))
	assert.Equal(t, PhaseConnectingLive, ResumePhase(EventPhoneComplete, false))
	assert.Equal(t, PhaseCompleted, ResumePhase(EventVoicemailComplete, true))
	assert.True(t, PhaseCompleted.Terminal())
	assert.False(t, PhaseAwaitingChoice.Terminal())
}

func TestCustomMenuRowsAreData(t *testing.T) {
	menu := DefaultMenu("+15550001111")
	menu.Options = map[string]calls.Forwarding{"7": calls.ForwardingLiveTransfer, "0": calls.ForwardingVoicemail}
	m, err := NewMachine(menu)
	require.NoError(t, err)

	phase, _ := m.Decide(PhaseAwaitingChoice, EventChoice, Input{Digits: "7"})
	assert.Equal(t, PhaseConnectingLive, phase)
	phase, _ = m.Decide(PhaseAwaitingChoice, EventChoice, Input{Digits: "1"})
	assert.Equal(t, PhaseAwaitingChoice, phase)
}
