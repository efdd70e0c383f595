package audit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestService_AppendRequiresType(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	if err := svc.Append(context.Background(), Event{SessionID: "CA1"}); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}

func TestService_NilIsNotConfigured(t *testing.T) {
	var svc *Service
	if err := svc.Append(context.Background(), Event{Type: EventTypeCallMissing}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestService_AppendsImmutableEvents(t *testing.T) {
	repo := NewMemoryRepo()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService(repo).WithClock(func() time.Time { return at })

	if err := svc.LogLedgerFailure(context.Background(), "req-1", "entry", "CA1", "", errors.New("db down")); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := svc.LogCallMissing(context.Background(), "req-2", "phone-complete", "CA2"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 2 {
		t.Fatalf("expected 2 events, got %d", len(evs))
	}
	if evs[0].Type != EventTypeLedgerWriteFailed || evs[0].Reason != "db down" {
		t.Fatalf("unexpected first event: %+v", evs[0])
	}
	if evs[0].ID == "" || !evs[0].CreatedAt.Equal(at) {
		t.Fatalf("expected id and timestamp to be assigned: %+v", evs[0])
	}
	if evs[1].Type != EventTypeCallMissing || evs[1].Endpoint != "phone-complete" {
		t.Fatalf("unexpected second event: %+v", evs[1])
	}
}

func TestService_ListBySession(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()
	_ = svc.LogDuplicate(ctx, "r1", "voicemail-complete", "CA1", "id-1")
	_ = svc.LogCallMissing(ctx, "r2", "phone-complete", "CA2")
	_ = svc.LogOperatorLookup(ctx, "r3", "user-1", "CA1")

	evs, err := svc.ListBySession(ctx, "CA1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(evs) != 2 {
		t.Fatalf("expected 2 events for CA1, got %d", len(evs))
	}
	if evs[1].ActorUserID != "user-1" {
		t.Fatalf("expected operator id captured")
	}

	if _, err := svc.ListBySession(ctx, ""); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}
