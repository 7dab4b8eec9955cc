package database

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// Schema returns the PostgreSQL schema applied by Migrate
func Schema() string {
	return schemaSQL
}

// Migrator is implemented by backends that can create their own tables
type Migrator interface {
	Migrate(ctx context.Context) error
}

// Migrate applies the embedded schema; every statement is idempotent
func (db *PostgresDatabase) Migrate(ctx context.Context) error {
	if _, err := db.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// TableCounts reports row counts for each table, used to verify a migration
func (db *PostgresDatabase) TableCounts(ctx context.Context) (map[string]int64, error) {
	counts := map[string]int64{}
	for _, table := range []string{"sports", "spaces", "weekdays", "space_sports", "schedules"} {
		var n int64
		if err := db.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

var (
	_ DatabaseInterface = (*SupabaseDatabase)(nil)
	_ DatabaseInterface = (*PostgresDatabase)(nil)
	_ DatabaseInterface = (*LocalDatabase)(nil)
	_ Migrator          = (*PostgresDatabase)(nil)
	_ Migrator          = (*LocalDatabase)(nil)
)
