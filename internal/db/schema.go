// Package db holds the Postgres schema embedded in the binary.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
)

const PostgresSchemaName = "schema/postgres.sql"

//go:embed schema/*.sql
var schemaFS embed.FS

// LoadSchema reads a schema file embedded in the binary.
func LoadSchema(name string) (string, error) {
	data, err := schemaFS.ReadFile(name)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Migrate applies the embedded schema. Statements are idempotent.
func Migrate(ctx context.Context, conn *sql.DB) error {
	schema, err := LoadSchema(PostgresSchemaName)
	if err != nil {
		return err
	}
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("db: apply schema: %w", err)
	}
	return nil
}
