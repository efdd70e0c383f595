package calls

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is an in-memory Ledger useful for tests and local runs.
// It is not intended for production use.
type MemoryRepo struct {
	mu sync.Mutex

	calls      map[string]Call // key: session id
	recordings map[string]Recording
	byCall     map[string]string // call id -> provider recording id
	order      []string          // recording provider ids in insertion order

	clock func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		calls:      map[string]Call{},
		recordings: map[string]Recording{},
		byCall:     map[string]string{},
		clock:      time.Now,
	}
}

// WithClock overrides the timestamp source used for CreatedAt/UpdatedAt.
func (r *MemoryRepo) WithClock(clock func() time.Time) *MemoryRepo {
	r.clock = clock
	return r
}

func (r *MemoryRepo) FindBySessionID(ctx context.Context, sessionID string) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[sessionID]
	if !ok {
		return Call{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) Create(ctx context.Context, c Call) (Call, error) {
	if err := validateCall(c); err != nil {
		return Call{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.calls[c.SessionID]; ok {
		return existing, nil
	}

	now := r.clock().UTC()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Forwarding == "" {
		c.Forwarding = ForwardingNone
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	r.calls[c.SessionID] = c
	return c, nil
}

func (r *MemoryRepo) Update(ctx context.Context, c Call) error {
	if err := validateCall(c); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.calls[c.SessionID]
	if !ok || (c.ID != "" && existing.ID != c.ID) {
		return ErrNotFound
	}
	existing.Status = c.Status
	if c.Forwarding != "" {
		existing.Forwarding = c.Forwarding
	}
	existing.DurationSeconds = c.DurationSeconds
	existing.UpdatedAt = r.clock().UTC()
	r.calls[c.SessionID] = existing
	return nil
}

func (r *MemoryRepo) CreateRecording(ctx context.Context, rec Recording) (Recording, bool, error) {
	if err := validateRecording(rec); err != nil {
		return Recording{}, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.recordings[rec.ProviderRecordingID]; ok {
		return existing, false, nil
	}
	if id, ok := r.byCall[rec.CallID]; ok {
		return r.recordings[id], false, nil
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.clock().UTC()
	}
	r.recordings[rec.ProviderRecordingID] = rec
	r.byCall[rec.CallID] = rec.ProviderRecordingID
	r.order = append(r.order, rec.ProviderRecordingID)
	return rec, true, nil
}

func (r *MemoryRepo) ListRecordings(ctx context.Context, callID string) ([]Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Recording, 0)
	for _, id := range r.order {
		rec := r.recordings[id]
		if rec.CallID == callID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Calls returns a snapshot of all stored calls.
func (r *MemoryRepo) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, c)
	}
	return out
}

// Recordings returns a snapshot of all stored recordings in insertion order.
func (r *MemoryRepo) Recordings() []Recording {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Recording, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.recordings[id])
	}
	return out
}
