package calls

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("calls: not found")
	ErrInvalidArgument = errors.New("calls: invalid argument")
)

// CallLedger is the persistence contract for Call rows.
//
// Create must be idempotent per SessionID: a second Create for the same session
// returns the row that already exists instead of inserting another one.
// Update is last-write-wins on status, forwarding and duration.
type CallLedger interface {
	FindBySessionID(ctx context.Context, sessionID string) (Call, error)
	Create(ctx context.Context, c Call) (Call, error)
	Update(ctx context.Context, c Call) error
}

// RecordingLedger stores voicemail recordings. Rows are insert-only and a call
// owns at most one.
//
// CreateRecording returns created=false when a recording with the same
// ProviderRecordingID, or any recording for the same CallID, already exists;
// the existing row is returned in that case.
type RecordingLedger interface {
	CreateRecording(ctx context.Context, r Recording) (rec Recording, created bool, err error)
	ListRecordings(ctx context.Context, callID string) ([]Recording, error)
}

// Ledger groups both stores; the SQL and memory repos implement it.
type Ledger interface {
	CallLedger
	RecordingLedger
}

func validateCall(c Call) error {
	if c.SessionID == "" {
		return ErrInvalidArgument
	}
	if c.Forwarding != "" && !c.Forwarding.Valid() {
		return ErrInvalidArgument
	}
	if c.DurationSeconds < 0 {
		return ErrInvalidArgument
	}
	return nil
}

func validateRecording(r Recording) error {
	if r.CallID == "" || r.ProviderRecordingID == "" {
		return ErrInvalidArgument
	}
	if r.DurationSeconds < 0 {
		return ErrInvalidArgument
	}
	return nil
}
