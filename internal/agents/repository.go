package agents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"voice-agent-platform/pkg/utils"
)

// Repository persists agents. Writes take the caller's Querier so they can
// share a transaction with phone number links; a nil Querier uses the pool.
type Repository interface {
	Insert(ctx context.Context, q utils.Querier, a Agent) error
	Update(ctx context.Context, q utils.Querier, a Agent) error
	SetPhoneNumber(ctx context.Context, q utils.Querier, agentID, phoneNumber string) error
	Delete(ctx context.Context, q utils.Querier, id string) error
	Get(ctx context.Context, id string) (Agent, error)
	List(ctx context.Context) ([]Agent, error)
}

const agentCols = `id::text, name, prompt, COALESCE(voice_id, ''), COALESCE(phone_number, ''), language, status,
  settings, COALESCE(created_by::text, ''), created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(s rowScanner) (Agent, error) {
	var (
		a        Agent
		settings []byte
	)
	err := s.Scan(
		&a.ID,
		&a.Name,
		&a.Prompt,
		&a.VoiceID,
		&a.PhoneNumber,
		&a.Language,
		&a.Status,
		&settings,
		&a.CreatedBy,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Agent{}, ErrNotFound
		}
		return Agent{}, err
	}
	a.Settings = DefaultSettings()
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &a.Settings); err != nil {
			return Agent{}, err
		}
	}
	return a, nil
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

func (r *PostgresRepo) Insert(ctx context.Context, q utils.Querier, a Agent) error {
	settings, err := json.Marshal(a.Settings)
	if err != nil {
		return err
	}
	const stmt = `
INSERT INTO agents (
  id, name, prompt, voice_id, phone_number, language, status, settings, created_by, created_at, updated_at
) VALUES (
  $1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8::jsonb, NULLIF($9, '')::uuid, $10, $10
)
`
	_, err = r.q(q).ExecContext(ctx, stmt,
		a.ID,
		a.Name,
		a.Prompt,
		a.VoiceID,
		a.PhoneNumber,
		a.Language,
		a.Status,
		string(settings),
		a.CreatedBy,
		a.CreatedAt,
	)
	return err
}

func (r *PostgresRepo) Update(ctx context.Context, q utils.Querier, a Agent) error {
	settings, err := json.Marshal(a.Settings)
	if err != nil {
		return err
	}
	const stmt = `
UPDATE agents SET
  name = $2, prompt = $3, voice_id = NULLIF($4, ''), language = $5, status = $6, settings = $7::jsonb, updated_at = now()
WHERE id = $1
`
	res, err := r.q(q).ExecContext(ctx, stmt, a.ID, a.Name, a.Prompt, a.VoiceID, a.Language, a.Status, string(settings))
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *PostgresRepo) SetPhoneNumber(ctx context.Context, q utils.Querier, agentID, phoneNumber string) error {
	const stmt = `UPDATE agents SET phone_number = NULLIF($2, ''), updated_at = now() WHERE id = $1`
	res, err := r.q(q).ExecContext(ctx, stmt, agentID, phoneNumber)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *PostgresRepo) Delete(ctx context.Context, q utils.Querier, id string) error {
	res, err := r.q(q).ExecContext(ctx, `DELETE FROM agents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Agent, error) {
	return scanAgent(r.db.QueryRowContext(ctx, `SELECT `+agentCols+` FROM agents WHERE id = $1`, id))
}

func (r *PostgresRepo) List(ctx context.Context) ([]Agent, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+agentCols+` FROM agents ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Agent{}
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
