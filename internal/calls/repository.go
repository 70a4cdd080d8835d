package calls

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

type Repository interface {
	// Upsert inserts c or merges it into the row with the same ProviderCallID.
	Upsert(ctx context.Context, c Call) (Call, error)
	// Page returns calls newest first with agent names, plus the total count.
	Page(ctx context.Context, offset, limit int) ([]Call, int, error)
	// ListRange returns calls created in [from, to).
	ListRange(ctx context.Context, from, to time.Time) ([]Call, error)
}

const callCols = `c.id::text, c.provider_call_id, COALESCE(c.agent_id::text, ''), COALESCE(a.name, ''),
  c.phone_number, COALESCE(c.from_number, ''), c.status, c.duration, c.started_at, c.ended_at, c.created_at, c.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCall(s rowScanner) (Call, error) {
	var (
		c        Call
		status   string
		duration sql.NullInt64
		started  sql.NullTime
		ended    sql.NullTime
	)
	err := s.Scan(
		&c.ID,
		&c.ProviderCallID,
		&c.AgentID,
		&c.AgentName,
		&c.PhoneNumber,
		&c.From,
		&status,
		&duration,
		&started,
		&ended,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Call{}, ErrNotFound
		}
		return Call{}, err
	}
	c.Status = CallStatus(status)
	if duration.Valid {
		d := int(duration.Int64)
		c.Duration = &d
	}
	if started.Valid {
		c.StartedAt = &started.Time
	}
	if ended.Valid {
		c.EndedAt = &ended.Time
	}
	return c, nil
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

// terminalStatusList is the SQL IN list of terminal statuses.
var terminalStatusList = func() string {
	quoted := make([]string, len(terminalStatuses))
	for i, st := range terminalStatuses {
		quoted[i] = "'" + string(st) + "'"
	}
	return strings.Join(quoted, ", ")
}()

func (r *PostgresRepo) Upsert(ctx context.Context, c Call) (Call, error) {
	// Later callbacks may omit the agent or duration; keep what is known.
	// Callbacks arrive out of order, so a terminal status is never replaced.
	stmt := `
WITH up AS (
  INSERT INTO calls (
    id, provider_call_id, agent_id, phone_number, from_number, status, duration, started_at, ended_at, created_at, updated_at
  ) VALUES (
    $1, $2, NULLIF($3, '')::uuid, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, $10
  )
  ON CONFLICT (provider_call_id) DO UPDATE SET
    agent_id    = COALESCE(EXCLUDED.agent_id, calls.agent_id),
    from_number = COALESCE(EXCLUDED.from_number, calls.from_number),
    status      = CASE WHEN calls.status IN (`+terminalStatusList+`) THEN calls.status ELSE EXCLUDED.status END,
    duration    = COALESCE(EXCLUDED.duration, calls.duration),
    started_at  = COALESCE(calls.started_at, EXCLUDED.started_at),
    ended_at    = COALESCE(EXCLUDED.ended_at, calls.ended_at),
    updated_at  = EXCLUDED.updated_at
  RETURNING *
)
SELECT ` + callCols + ` FROM up c LEFT JOIN agents a ON a.id = c.agent_id
`
	var duration any
	if c.Duration != nil {
		duration = *c.Duration
	}
	return scanCall(r.db.QueryRowContext(ctx, stmt,
		c.ID,
		c.ProviderCallID,
		c.AgentID,
		c.PhoneNumber,
		c.From,
		string(c.Status),
		duration,
		c.StartedAt,
		c.EndedAt,
		c.CreatedAt,
	))
}

func (r *PostgresRepo) Page(ctx context.Context, offset, limit int) ([]Call, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM calls`).Scan(&total); err != nil {
		return nil, 0, err
	}
	out, err := r.list(ctx, `SELECT `+callCols+` FROM calls c LEFT JOIN agents a ON a.id = c.agent_id
ORDER BY c.created_at DESC, c.id DESC LIMIT $1 OFFSET $2`, limit, offset)
	return out, total, err
}

func (r *PostgresRepo) ListRange(ctx context.Context, from, to time.Time) ([]Call, error) {
	return r.list(ctx, `SELECT `+callCols+` FROM calls c LEFT JOIN agents a ON a.id = c.agent_id
WHERE c.created_at >= $1 AND c.created_at < $2 ORDER BY c.created_at DESC`, from, to)
}

func (r *PostgresRepo) list(ctx context.Context, q string, args ...any) ([]Call, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Call{}
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
