package audit

import (
	"context"
	"database/sql"

	"ivr-gateway/pkg/utils"
)

const eventColumns = `id, type, session_id, call_id, actor_id, endpoint, reason, request_id, created_at`

// SQLRepo appends to audit_events. There is no UPDATE or DELETE path.
type SQLRepo struct {
	db      *sql.DB
	dialect utils.Dialect
}

func NewSQLRepo(db *sql.DB, dialect utils.Dialect) *SQLRepo {
	return &SQLRepo{db: db, dialect: dialect}
}

func (r *SQLRepo) Append(ctx context.Context, e Event) error {
	const q = `INSERT INTO audit_events (` + eventColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(q),
		e.ID,
		e.Type,
		e.SessionID,
		e.CallID,
		e.ActorUserID,
		e.Endpoint,
		e.Reason,
		e.RequestID,
		e.CreatedAt,
	)
	return err
}

func (r *SQLRepo) ListBySession(ctx context.Context, sessionID string) ([]Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM audit_events WHERE session_id = ? ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(q), sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Event, 0)
	for rows.Next() {
		var e Event
		if err := rows.Scan(
			&e.ID,
			&e.Type,
			&e.SessionID,
			&e.CallID,
			&e.ActorUserID,
			&e.Endpoint,
			&e.Reason,
			&e.RequestID,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
