package telephony

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ivr-gateway/internal/audit"
	"ivr-gateway/internal/calls"
	"ivr-gateway/internal/events"
	"ivr-gateway/internal/ivr"
	"ivr-gateway/internal/replay"
	"ivr-gateway/pkg/logger"
)

// IVRHandler serves the provider callbacks of the IVR flow.
//
// Each callback is stateless: the endpoint implies the phase, the ledger holds
// the rest. The contract with the provider is "always answer with TwiML":
// ledger, guard and publisher failures are soft failures that get logged and
// audited, never surfaced as an HTTP error.
type IVRHandler struct {
	Ledger  calls.Ledger
	Machine *ivr.Machine

	// Guard and Events are optional.
	Guard  replay.Guard
	Events events.Publisher
	Audit  *audit.Service

	URLs  CallbackURLs
	Voice Voice

	// CreateAttempts bounds retries of the entry-callback insert. Defaults to 2.
	CreateAttempts int

	Now func() time.Time
}

// Register mounts the callback endpoints on the route table paths.
func (h *IVRHandler) Register(g gin.IRoutes) {
	paths := h.URLs.Paths
	if paths == nil {
		paths = DefaultPaths
	}
	g.POST(paths[ivr.RouteEntry], h.Entry)
	g.POST(paths[ivr.RouteMenu], h.Menu)
	g.POST(paths[ivr.RouteChoice], h.Choice)
	g.POST(paths[ivr.RouteVoicemailComplete], h.VoicemailComplete)
	g.POST(paths[ivr.RoutePhoneComplete], h.PhoneComplete)
}

func (h *IVRHandler) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

// Entry records the call (best-effort) and greets the caller.
func (h *IVRHandler) Entry(c *gin.Context) {
	form := h.parse(c)
	h.recordCall(c, form)
	h.decideAndRespond(c, ivr.EventEntry, form)
}

// Menu re-issues the menu prompt. No ledger access.
func (h *IVRHandler) Menu(c *gin.Context) {
	h.decideAndRespond(c, ivr.EventMenu, h.parse(c))
}

// Choice routes the pressed digit. Side effects are deferred to termination.
func (h *IVRHandler) Choice(c *gin.Context) {
	h.decideAndRespond(c, ivr.EventChoice, h.parse(c))
}

func (h *IVRHandler) VoicemailComplete(c *gin.Context) {
	h.terminate(c, ivr.EventVoicemailComplete, ivr.RouteVoicemailComplete)
}

func (h *IVRHandler) PhoneComplete(c *gin.Context) {
	h.terminate(c, ivr.EventPhoneComplete, ivr.RoutePhoneComplete)
}

func (h *IVRHandler) parse(c *gin.Context) CallbackForm {
	form, err := ParseCallbackForm(c.Request)
	if err != nil {
		logger.FromGin(c).Warn("callback form parse failed", "path", c.FullPath(), "err", err)
	}
	return form
}

func (h *IVRHandler) decideAndRespond(c *gin.Context, event ivr.Event, form CallbackForm) {
	_, d := h.Machine.Decide(ivr.ResumePhase(event, false), event, ivr.Input{Digits: form.Digits})
	h.respond(c, d)
}

// recordCall creates the ledger row for a new session. A failed insert is
// retried once; if it still fails the caller is greeted anyway.
func (h *IVRHandler) recordCall(c *gin.Context, form CallbackForm) {
	log := logger.FromGin(c)
	if form.CallSid == "" {
		log.Warn("entry callback without CallSid; call not recorded")
		return
	}
	call := calls.Call{
		SessionID: form.CallSid,
		From:      form.From,
		Called:    form.Called,
		Direction: form.Direction,
		Status:    calls.CallStatus(form.CallStatus),
	}

	attempts := h.CreateAttempts
	if attempts <= 0 {
		attempts = 2
	}
	ctx := c.Request.Context()
	var err error
	for i := 0; i < attempts; i++ {
		if _, err = h.Ledger.Create(ctx, call); err == nil {
			return
		}
		if errors.Is(err, calls.ErrInvalidArgument) || ctx.Err() != nil {
			break
		}
		log.Warn("call create failed; retrying", "attempt", i+1, "err", err)
	}
	h.softFailure(c, ivr.RouteEntry, form.CallSid, "", "call create failed", err)
}

// terminate handles both termination callbacks.
//
// First completion wins: a call already marked completed, or a session whose
// completion claim is taken, is a duplicate and its row is left untouched.
func (h *IVRHandler) terminate(c *gin.Context, event ivr.Event, route ivr.Route) {
	form := h.parse(c)
	ctx := c.Request.Context()
	log := logger.FromGin(c)
	now := h.now()

	call, found := h.loadCall(c, route, form.CallSid)

	completed := found && call.IsCompleted()
	var ticket replay.Ticket
	if found && !completed && h.Guard != nil {
		t, err := h.Guard.Claim(ctx, form.CallSid)
		switch {
		case err != nil:
			// Fail open: a guard outage must not block the first completion.
			log.Warn("replay guard claim failed", "err", err)
		case !t.First:
			completed = true
		default:
			ticket = t
		}
	}

	_, d := h.Machine.Decide(ivr.ResumePhase(event, completed), event, ivr.Input{Digits: form.Digits, Forwarding: call.Forwarding})

	if found {
		h.applyOutcome(c, route, form, call, d.Outcome, ticket, now)
	}
	h.respond(c, d)
}

// loadCall returns found=false for a missing row or a failed read. Both skip
// the call-dependent side effects; the caller still gets the hangup.
func (h *IVRHandler) loadCall(c *gin.Context, route ivr.Route, sessionID string) (calls.Call, bool) {
	if sessionID == "" {
		logger.FromGin(c).Warn("termination callback without CallSid", "route", route)
		h.auditCallMissing(c, route, sessionID)
		return calls.Call{}, false
	}
	call, err := h.Ledger.FindBySessionID(c.Request.Context(), sessionID)
	switch {
	case err == nil:
		return call, true
	case errors.Is(err, calls.ErrNotFound):
		logger.FromGin(c).Warn("termination callback for unknown call", "route", route)
		h.auditCallMissing(c, route, sessionID)
	default:
		h.softFailure(c, route, sessionID, "", "call lookup failed", err)
	}
	return calls.Call{}, false
}

func (h *IVRHandler) applyOutcome(c *gin.Context, route ivr.Route, form CallbackForm, call calls.Call, out ivr.Outcome, ticket replay.Ticket, now time.Time) {
	ctx := c.Request.Context()
	log := logger.FromGin(c)

	if out.Duplicate {
		log.Info("duplicate termination callback; call left unchanged", "route", route, "call_id", call.ID)
		h.appendAudit(c, func(ctx context.Context, rid string) error {
			return h.Audit.LogDuplicate(ctx, rid, string(route), call.SessionID, call.ID)
		})
	}

	updated := false
	if out.UpdateCall {
		call.Status = calls.CallStatusCompleted
		call.Forwarding = out.Forwarding
		call.DurationSeconds = calls.ElapsedSeconds(call.CreatedAt, now)
		if err := h.Ledger.Update(ctx, call); err != nil {
			h.softFailure(c, route, call.SessionID, call.ID, "call update failed", err)
			h.releaseClaim(ctx, log, ticket)
		} else {
			updated = true
		}
	}

	recordingURL := ""
	if out.CaptureRecording {
		recordingURL = h.captureRecording(c, route, form, call)
	}

	if updated {
		h.publishCompleted(ctx, log, call, recordingURL, now)
	}
}

func (h *IVRHandler) captureRecording(c *gin.Context, route ivr.Route, form CallbackForm, call calls.Call) string {
	log := logger.FromGin(c)
	if form.RecordingSid == "" {
		log.Warn("voicemail callback without RecordingSid; recording not stored")
		return ""
	}
	rec, created, err := h.Ledger.CreateRecording(c.Request.Context(), calls.Recording{
		CallID:              call.ID,
		ProviderRecordingID: form.RecordingSid,
		DurationSeconds:     form.RecordingDuration,
		URL:                 form.RecordingURL,
	})
	if err != nil {
		h.softFailure(c, route, call.SessionID, call.ID, "recording create failed", err)
		return ""
	}
	if !created {
		log.Info("recording already stored", "recording_sid", rec.ProviderRecordingID)
	}
	return rec.URL
}

func (h *IVRHandler) publishCompleted(ctx context.Context, log *slog.Logger, call calls.Call, recordingURL string, now time.Time) {
	if h.Events == nil {
		return
	}
	err := h.Events.PublishCallCompleted(ctx, events.CallCompleted{
		SessionID:       call.SessionID,
		CallID:          call.ID,
		Forwarding:      call.Forwarding,
		DurationSeconds: call.DurationSeconds,
		RecordingURL:    recordingURL,
		CompletedAt:     now.UTC(),
	})
	if err != nil {
		log.Warn("call completed event publish failed", "err", err)
	}
}

func (h *IVRHandler) releaseClaim(ctx context.Context, log *slog.Logger, t replay.Ticket) {
	if h.Guard == nil || !t.First {
		return
	}
	if err := h.Guard.Release(ctx, t); err != nil {
		log.Warn("replay guard release failed", "err", err)
	}
}

// softFailure is the named degraded branch: log, audit, carry on.
func (h *IVRHandler) softFailure(c *gin.Context, route ivr.Route, sessionID, callID, msg string, err error) {
	logger.FromGin(c).Error(msg, "route", route, "err", err)
	h.appendAudit(c, func(ctx context.Context, rid string) error {
		return h.Audit.LogLedgerFailure(ctx, rid, string(route), sessionID, callID, err)
	})
}

func (h *IVRHandler) auditCallMissing(c *gin.Context, route ivr.Route, sessionID string) {
	h.appendAudit(c, func(ctx context.Context, rid string) error {
		return h.Audit.LogCallMissing(ctx, rid, string(route), sessionID)
	})
}

func (h *IVRHandler) appendAudit(c *gin.Context, fn func(ctx context.Context, requestID string) error) {
	if h.Audit == nil {
		return
	}
	if err := fn(c.Request.Context(), logger.RequestID(c)); err != nil {
		logger.FromGin(c).Warn("audit append failed", "err", err)
	}
}

func (h *IVRHandler) respond(c *gin.Context, d ivr.Directive) {
	doc, err := RenderTwiML(d, h.URLs.Resolve(c.Request), h.Voice)
	if err != nil {
		logger.FromGin(c).Error("twiml render failed; hanging up", "kind", d.Kind, "err", err)
		doc = HangupTwiML
	}
	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, doc)
}
