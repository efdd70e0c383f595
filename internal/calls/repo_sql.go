package calls

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"ivr-gateway/pkg/utils"
)

// NOTE: SQLRepo assumes the schema from internal/migrations:
// - calls (UNIQUE session_id)
// - recordings (UNIQUE provider_recording_id, UNIQUE call_id, FK call_id -> calls.id ON DELETE CASCADE)
//
// Queries are written with '?' placeholders and rebound per dialect.

const callColumns = `id, session_id, from_number, called_number, direction, status, forwarding, duration, created_at, updated_at`

const recordingColumns = `id, call_id, provider_recording_id, duration, url, created_at`

// SQLRepo is the database/sql Ledger for Postgres and SQLite.
type SQLRepo struct {
	db      *sql.DB
	dialect utils.Dialect
	clock   func() time.Time
}

func NewSQLRepo(db *sql.DB, dialect utils.Dialect) *SQLRepo {
	return &SQLRepo{db: db, dialect: dialect, clock: time.Now}
}

// WithClock overrides the timestamp source used for CreatedAt/UpdatedAt.
func (r *SQLRepo) WithClock(clock func() time.Time) *SQLRepo {
	r.clock = clock
	return r
}

type rowScanner interface {
	Scan(dest ...any) error
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanCall(row rowScanner) (Call, error) {
	var c Call
	if err := row.Scan(
		&c.ID,
		&c.SessionID,
		&c.From,
		&c.Called,
		&c.Direction,
		&c.Status,
		&c.Forwarding,
		&c.DurationSeconds,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Call{}, ErrNotFound
		}
		return Call{}, err
	}
	return c, nil
}

func scanRecording(row rowScanner) (Recording, error) {
	var rec Recording
	if err := row.Scan(
		&rec.ID,
		&rec.CallID,
		&rec.ProviderRecordingID,
		&rec.DurationSeconds,
		&rec.URL,
		&rec.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Recording{}, ErrNotFound
		}
		return Recording{}, err
	}
	return rec, nil
}

func (r *SQLRepo) findCall(ctx context.Context, q queryer, sessionID string) (Call, error) {
	query := `SELECT ` + callColumns + ` FROM calls WHERE session_id = ?`
	return scanCall(q.QueryRowContext(ctx, r.dialect.Rebind(query), sessionID))
}

func (r *SQLRepo) FindBySessionID(ctx context.Context, sessionID string) (Call, error) {
	if sessionID == "" {
		return Call{}, ErrInvalidArgument
	}
	return r.findCall(ctx, r.db, sessionID)
}

// Create inserts the call unless a row for the session already exists, then
// returns whichever row is stored. Concurrent entry callbacks converge on one row.
func (r *SQLRepo) Create(ctx context.Context, c Call) (Call, error) {
	if err := validateCall(c); err != nil {
		return Call{}, err
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

	const insert = `
INSERT INTO calls (` + callColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (session_id) DO NOTHING
`
	var out Call
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, r.dialect.Rebind(insert),
			c.ID,
			c.SessionID,
			c.From,
			c.Called,
			c.Direction,
			c.Status,
			c.Forwarding,
			c.DurationSeconds,
			c.CreatedAt,
			c.UpdatedAt,
		); err != nil {
			return err
		}
		found, err := r.findCall(ctx, tx, c.SessionID)
		if err != nil {
			return err
		}
		out = found
		return nil
	})
	if err != nil {
		return Call{}, err
	}
	return out, nil
}

// Update writes status, forwarding and duration for the session's row.
// An empty Forwarding leaves the stored value untouched.
func (r *SQLRepo) Update(ctx context.Context, c Call) error {
	if err := validateCall(c); err != nil {
		return err
	}
	query := `
UPDATE calls
SET status = ?,
    forwarding = COALESCE(NULLIF(?, ''), forwarding),
    duration = ?,
    updated_at = ?
WHERE session_id = ?`
	args := []any{c.Status, string(c.Forwarding), c.DurationSeconds, r.clock().UTC(), c.SessionID}
	if c.ID != "" {
		query += ` AND id = ?`
		args = append(args, c.ID)
	}

	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLRepo) CreateRecording(ctx context.Context, rec Recording) (Recording, bool, error) {
	if err := validateRecording(rec); err != nil {
		return Recording{}, false, err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.clock().UTC()
	}

	const insert = `
INSERT INTO recordings (` + recordingColumns + `)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT DO NOTHING
`
	const find = `SELECT ` + recordingColumns + ` FROM recordings
WHERE provider_recording_id = ? OR call_id = ?
ORDER BY created_at, id LIMIT 1`

	var (
		out     Recording
		created bool
	)
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, r.dialect.Rebind(insert),
			rec.ID,
			rec.CallID,
			rec.ProviderRecordingID,
			rec.DurationSeconds,
			rec.URL,
			rec.CreatedAt,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 1 {
			out, created = rec, true
			return nil
		}
		existing, err := scanRecording(tx.QueryRowContext(ctx, r.dialect.Rebind(find), rec.ProviderRecordingID, rec.CallID))
		if err != nil {
			return err
		}
		out = existing
		return nil
	})
	if err != nil {
		return Recording{}, false, err
	}
	return out, created, nil
}

func (r *SQLRepo) ListRecordings(ctx context.Context, callID string) ([]Recording, error) {
	const q = `SELECT ` + recordingColumns + ` FROM recordings WHERE call_id = ? ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(q), callID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Recording, 0)
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
