package telephony

import (
	"errors"
	"strconv"
	"strings"

	"github.com/twilio/twilio-go/twiml"

	"ivr-gateway/internal/ivr"
)

// HangupTwiML is served when a directive cannot be rendered.
// The caller gets a clean termination instead of an error page.
const HangupTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response><Hangup></Hangup></Response>`

// Voice settings applied to every <Say>.
type Voice struct {
	Name     string
	Language string
}

// RenderTwiML maps a Directive to TwiML, embedding absolute callback URLs.
func RenderTwiML(d ivr.Directive, urls URLSet, v Voice) (string, error) {
	var verbs []twiml.Element

	switch d.Kind {
	case ivr.KindPrompt:
		action := urls.URL(d.Next)
		if action == "" {
			return "", errors.New("telephony: prompt requires a callback route")
		}
		gather := &twiml.VoiceGather{
			Action:    action,
			Method:    "POST",
			NumDigits: itoa(d.NumDigits),
			Timeout:   itoa(d.TimeoutSeconds),
		}
		gather.InnerElements = appendSay(gather.InnerElements, d.Notice, v)
		gather.InnerElements = appendSay(gather.InnerElements, d.Say, v)
		verbs = append(verbs, gather)
		// No input: Gather falls through to the next verb.
		if fallback := urls.URL(d.Fallback); fallback != "" {
			verbs = append(verbs, &twiml.VoiceRedirect{Url: fallback, Method: "POST"})
		}

	case ivr.KindRecord:
		action := urls.URL(d.Next)
		if action == "" {
			return "", errors.New("telephony: record requires a callback route")
		}
		verbs = appendSay(verbs, d.Say, v)
		verbs = append(verbs, &twiml.VoiceRecord{
			Action:      action,
			Method:      "POST",
			MaxLength:   itoa(d.MaxRecordingSeconds),
			PlayBeep:    "true",
			FinishOnKey: "#",
		})

	case ivr.KindDial:
		if strings.TrimSpace(d.DialNumber) == "" {
			return "", errors.New("telephony: dial requires a number")
		}
		action := urls.URL(d.Next)
		if action == "" {
			return "", errors.New("telephony: dial requires a callback route")
		}
		verbs = appendSay(verbs, d.Say, v)
		verbs = append(verbs, &twiml.VoiceDial{
			Number:  d.DialNumber,
			Action:  action,
			Method:  "POST",
			Timeout: itoa(d.TimeoutSeconds),
		})

	case ivr.KindHangup:
		verbs = appendSay(verbs, d.Say, v)
		verbs = append(verbs, &twiml.VoiceHangup{})

	default:
		return "", errors.New("telephony: unknown directive kind")
	}

	return twiml.Voice(verbs)
}

func appendSay(els []twiml.Element, text string, v Voice) []twiml.Element {
	if strings.TrimSpace(text) == "" {
		return els
	}
	return append(els, &twiml.VoiceSay{Message: text, Voice: v.Name, Language: v.Language})
}

// itoa leaves zero values unset so Twilio applies its own default.
func itoa(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}
