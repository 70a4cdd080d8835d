package voices

import (
	"context"
	"database/sql"
	"errors"
)

type Repository interface {
	// Upsert inserts or replaces the row keyed on id. An empty language keeps the stored one.
	Upsert(ctx context.Context, v Voice) error
	Get(ctx context.Context, id string) (Voice, error)
	// List returns voices ordered by name; language "" means all.
	List(ctx context.Context, language string) ([]Voice, error)
	// MoveStoragePath rewrites storage_path from -> to and reports rows changed.
	MoveStoragePath(ctx context.Context, from, to string) (int64, error)
}

const voiceCols = `id, name, COALESCE(description, ''), COALESCE(language, ''), COALESCE(preview_url, ''),
  COALESCE(storage_path, ''), created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVoice(s rowScanner) (Voice, error) {
	var v Voice
	err := s.Scan(&v.ID, &v.Name, &v.Description, &v.Language, &v.PreviewURL, &v.StoragePath, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Voice{}, ErrNotFound
	}
	return v, err
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Upsert(ctx context.Context, v Voice) error {
	const stmt = `
INSERT INTO voices (id, name, description, language, preview_url, storage_path, created_at, updated_at)
VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), now(), now())
ON CONFLICT (id) DO UPDATE SET
  name         = EXCLUDED.name,
  description  = EXCLUDED.description,
  language     = COALESCE(EXCLUDED.language, voices.language),
  preview_url  = EXCLUDED.preview_url,
  storage_path = EXCLUDED.storage_path,
  updated_at   = now()
`
	_, err := r.db.ExecContext(ctx, stmt, v.ID, v.Name, v.Description, v.Language, v.PreviewURL, v.StoragePath)
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Voice, error) {
	return scanVoice(r.db.QueryRowContext(ctx, `SELECT `+voiceCols+` FROM voices WHERE id = $1`, id))
}

func (r *PostgresRepo) List(ctx context.Context, language string) ([]Voice, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+voiceCols+` FROM voices WHERE ($1 = '' OR language = $1) ORDER BY name, id`, language)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Voice{}
	for rows.Next() {
		v, err := scanVoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) MoveStoragePath(ctx context.Context, from, to string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE voices SET storage_path = $2, updated_at = now() WHERE storage_path = $1`, from, to)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
