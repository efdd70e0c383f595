package ivr

import (
	"errors"
	"fmt"
	"strings"

	"ivr-gateway/internal/calls"
)

// Menu is the digit table plus the spoken prompts.
// Options maps a pressed digit to the branch it selects.
type Menu struct {
	Greeting         string `yaml:"greeting"`
	InvalidChoice    string `yaml:"invalid_choice"`
	VoicemailPrompt  string `yaml:"voicemail_prompt"`
	ConnectingPrompt string `yaml:"connecting_prompt"`
	Goodbye          string `yaml:"goodbye"`

	Voice    string `yaml:"voice"`
	Language string `yaml:"language"`

	Options map[string]calls.Forwarding `yaml:"options"`

	GatherTimeoutSeconds int `yaml:"gather_timeout_seconds"`
	MaxRecordingSeconds  int `yaml:"max_recording_seconds"`
	DialTimeoutSeconds   int `yaml:"dial_timeout_seconds"`

	// ForwardingNumber is the live-transfer target; it comes from env, not the menu file.
	ForwardingNumber string `yaml:"-"`
}

// DefaultMenu is "1" for voicemail, "2" for a live transfer.
func DefaultMenu(forwardingNumber string) Menu {
	return Menu{
		Greeting:         "Thanks for calling. Press 1 to leave a voicemail. Press 2 to talk to someone.",
		InvalidChoice:    "Sorry, that is not a valid option.",
		VoicemailPrompt:  "Please leave a message after the beep. Press the pound key when you are done.",
		ConnectingPrompt: "Connecting you now.",
		Goodbye:          "Goodbye.",
		Voice:            "alice",
		Language:         "en-US",
		Options: map[string]calls.Forwarding{
			"1": calls.ForwardingVoicemail,
			"2": calls.ForwardingLiveTransfer,
		},
		GatherTimeoutSeconds: 5,
		MaxRecordingSeconds:  120,
		DialTimeoutSeconds:   30,
		ForwardingNumber:     forwardingNumber,
	}
}

func (m Menu) Validate() error {
	var problems []string
	if strings.TrimSpace(m.Greeting) == "" {
		problems = append(problems, "greeting is required")
	}
	if len(m.Options) == 0 {
		problems = append(problems, "at least one option is required")
	}
	for digit, branch := range m.Options {
		if digit == "" || strings.Trim(digit, "0123456789*#") != "" {
			problems = append(problems, fmt.Sprintf("option %q is not a keypad sequence", digit))
		}
		switch branch {
		case calls.ForwardingVoicemail:
		case calls.ForwardingLiveTransfer:
			if strings.TrimSpace(m.ForwardingNumber) == "" {
				problems = append(problems, fmt.Sprintf("option %q transfers live but no forwarding number is set", digit))
			}
		default:
			problems = append(problems, fmt.Sprintf("option %q has unknown branch %q", digit, branch))
		}
	}
	if m.GatherTimeoutSeconds < 0 || m.MaxRecordingSeconds < 0 || m.DialTimeoutSeconds < 0 {
		problems = append(problems, "timeouts must be >= 0")
	}
	if len(problems) == 0 {
		return nil
	}
	return errors.New("ivr: invalid menu: " + strings.Join(problems, "; "))
}

// numDigits is the longest option key, so Gather stops as soon as a full choice is in.
func (m Menu) numDigits() int {
	n := 1
	for digit := range m.Options {
		if len(digit) > n {
			n = len(digit)
		}
	}
	return n
}
