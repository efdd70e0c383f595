package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Event) error
	ListBySession(ctx context.Context, sessionID string) ([]Event, error)
}

// Service records degraded paths of the webhook flow for operator visibility.
//
// IMPORTANT:
// - Audit is internal-only. It is exposed only through the operator API.
// - Callers should treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// WithClock overrides the timestamp source used for CreatedAt.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s == nil || s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

func (s *Service) ListBySession(ctx context.Context, sessionID string) ([]Event, error) {
	if s == nil || s.repo == nil {
		return nil, errors.New("audit: repository not configured")
	}
	if sessionID == "" {
		return nil, ErrInvalidEvent
	}
	return s.repo.ListBySession(ctx, sessionID)
}

// LogLedgerFailure records a ledger write that was swallowed to keep the call alive.
func (s *Service) LogLedgerFailure(ctx context.Context, requestID, endpoint, sessionID, callID string, cause error) error {
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	return s.Append(ctx, Event{
		Type:      EventTypeLedgerWriteFailed,
		SessionID: sessionID,
		CallID:    callID,
		Endpoint:  endpoint,
		Reason:    reason,
		RequestID: requestID,
	})
}

// LogCallMissing records a termination callback that found no call row.
func (s *Service) LogCallMissing(ctx context.Context, requestID, endpoint, sessionID string) error {
	return s.Append(ctx, Event{
		Type:      EventTypeCallMissing,
		SessionID: sessionID,
		Endpoint:  endpoint,
		Reason:    "termination callback for unknown session",
		RequestID: requestID,
	})
}

// LogDuplicate records a re-delivered termination callback.
func (s *Service) LogDuplicate(ctx context.Context, requestID, endpoint, sessionID, callID string) error {
	return s.Append(ctx, Event{
		Type:      EventTypeDuplicateCallback,
		SessionID: sessionID,
		CallID:    callID,
		Endpoint:  endpoint,
		Reason:    "call already completed",
		RequestID: requestID,
	})
}

// LogOperatorLookup records an operator reading a call through the API.
func (s *Service) LogOperatorLookup(ctx context.Context, requestID, actorUserID, sessionID string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeOperatorLookup,
		SessionID:   sessionID,
		ActorUserID: actorUserID,
		Endpoint:    "GET /v1/calls/:session_id",
		RequestID:   requestID,
	})
}
