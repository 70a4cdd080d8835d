package numbers

import (
	"context"
	"database/sql"
	"errors"

	"voice-agent-platform/pkg/utils"
)

// Repository persists phone_numbers rows.
type Repository interface {
	// Insert stores p unless a row with the same TwilioSID exists, in which
	// case the existing row is returned with inserted=false.
	Insert(ctx context.Context, p PhoneNumber) (row PhoneNumber, inserted bool, err error)
	Get(ctx context.Context, id string) (PhoneNumber, error)
	GetBySID(ctx context.Context, sid string) (PhoneNumber, error)
	GetByNumber(ctx context.Context, phoneNumber string) (PhoneNumber, error)
	List(ctx context.Context) ([]PhoneNumber, error)
	ListAvailable(ctx context.Context) ([]PhoneNumber, error)
	Delete(ctx context.Context, id string) error

	Linker
}

// Linker moves agent_id on phone_numbers. It runs on the caller's Querier so
// agent writes and link writes can share a transaction.
type Linker interface {
	// Link assigns numberID to agentID and clears agentID from any other number.
	Link(ctx context.Context, q utils.Querier, numberID, agentID string) (PhoneNumber, error)
	// Unlink clears agent_id and returns the agent it pointed at ("" if none).
	Unlink(ctx context.Context, q utils.Querier, numberID string) (prevAgentID string, err error)
	// ClearAgent unassigns every number pointing at agentID.
	ClearAgent(ctx context.Context, q utils.Querier, agentID string) error
}

const phoneNumberCols = `id::text, phone_number, COALESCE(friendly_name, ''), country_code, COALESCE(area_code, ''),
  twilio_sid, status, COALESCE(agent_id::text, ''), created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPhoneNumber(s rowScanner) (PhoneNumber, error) {
	var p PhoneNumber
	err := s.Scan(
		&p.ID,
		&p.PhoneNumber,
		&p.FriendlyName,
		&p.CountryCode,
		&p.AreaCode,
		&p.TwilioSID,
		&p.Status,
		&p.AgentID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PhoneNumber{}, ErrNotFound
		}
		return PhoneNumber{}, err
	}
	return p, nil
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) q(q utils.Querier) utils.Querier {
	if q == nil {
		return r.db
	}
	return q
}

func (r *PostgresRepo) Insert(ctx context.Context, p PhoneNumber) (PhoneNumber, bool, error) {
	const q = `
INSERT INTO phone_numbers (
  id, phone_number, friendly_name, country_code, area_code, twilio_sid, status, agent_id, created_at, updated_at
) VALUES (
  $1, $2, $3, $4, $5, $6, $7, NULLIF($8, '')::uuid, $9, $9
)
ON CONFLICT (twilio_sid) DO NOTHING
RETURNING ` + phoneNumberCols

	row, err := scanPhoneNumber(r.db.QueryRowContext(ctx, q,
		p.ID,
		p.PhoneNumber,
		p.FriendlyName,
		p.CountryCode,
		p.AreaCode,
		p.TwilioSID,
		p.Status,
		p.AgentID,
		p.CreatedAt,
	))
	if errors.Is(err, ErrNotFound) {
		existing, gerr := r.GetBySID(ctx, p.TwilioSID)
		return existing, false, gerr
	}
	if err != nil {
		return PhoneNumber{}, false, err
	}
	return row, true, nil
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (PhoneNumber, error) {
	q := `SELECT ` + phoneNumberCols + ` FROM phone_numbers WHERE id = $1`
	return scanPhoneNumber(r.db.QueryRowContext(ctx, q, id))
}

func (r *PostgresRepo) GetBySID(ctx context.Context, sid string) (PhoneNumber, error) {
	q := `SELECT ` + phoneNumberCols + ` FROM phone_numbers WHERE twilio_sid = $1`
	return scanPhoneNumber(r.db.QueryRowContext(ctx, q, sid))
}

func (r *PostgresRepo) GetByNumber(ctx context.Context, phoneNumber string) (PhoneNumber, error) {
	q := `SELECT ` + phoneNumberCols + ` FROM phone_numbers WHERE phone_number = $1`
	return scanPhoneNumber(r.db.QueryRowContext(ctx, q, phoneNumber))
}

func (r *PostgresRepo) List(ctx context.Context) ([]PhoneNumber, error) {
	return r.list(ctx, `SELECT `+phoneNumberCols+` FROM phone_numbers ORDER BY created_at DESC`)
}

func (r *PostgresRepo) ListAvailable(ctx context.Context) ([]PhoneNumber, error) {
	return r.list(ctx, `SELECT `+phoneNumberCols+` FROM phone_numbers
WHERE agent_id IS NULL AND status = 'active'
ORDER BY created_at DESC`)
}

func (r *PostgresRepo) list(ctx context.Context, q string, args ...any) ([]PhoneNumber, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []PhoneNumber{}
	for rows.Next() {
		p, err := scanPhoneNumber(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM phone_numbers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) Link(ctx context.Context, q utils.Querier, numberID, agentID string) (PhoneNumber, error) {
	db := r.q(q)

	const clear = `
UPDATE phone_numbers SET agent_id = NULL, updated_at = now()
WHERE agent_id = $1 AND id <> $2
`
	if _, err := db.ExecContext(ctx, clear, agentID, numberID); err != nil {
		return PhoneNumber{}, err
	}

	set := `
UPDATE phone_numbers SET agent_id = $2, updated_at = now()
WHERE id = $1 AND (agent_id IS NULL OR agent_id = $2)
RETURNING ` + phoneNumberCols
	p, err := scanPhoneNumber(db.QueryRowContext(ctx, set, numberID, agentID))
	if errors.Is(err, ErrNotFound) {
		var exists bool
		if err := db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM phone_numbers WHERE id = $1)`, numberID).Scan(&exists); err != nil {
			return PhoneNumber{}, err
		}
		if exists {
			return PhoneNumber{}, ErrAlreadyAssigned
		}
		return PhoneNumber{}, ErrNotFound
	}
	return p, err
}

func (r *PostgresRepo) Unlink(ctx context.Context, q utils.Querier, numberID string) (string, error) {
	const stmt = `
WITH prev AS (
  SELECT id, agent_id FROM phone_numbers WHERE id = $1 FOR UPDATE
)
UPDATE phone_numbers p SET agent_id = NULL, updated_at = now()
FROM prev
WHERE p.id = prev.id
RETURNING COALESCE(prev.agent_id::text, '')
`
	var prev string
	if err := r.q(q).QueryRowContext(ctx, stmt, numberID).Scan(&prev); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return prev, nil
}

func (r *PostgresRepo) ClearAgent(ctx context.Context, q utils.Querier, agentID string) error {
	_, err := r.q(q).ExecContext(ctx, `UPDATE phone_numbers SET agent_id = NULL, updated_at = now() WHERE agent_id = $1`, agentID)
	return err
}
