// Package storage persists processed-record audit rows into Postgres.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"RxivScanner/internal/domain"
	"RxivScanner/internal/ports"
)

// PostgresRepository records every processed preprint for deduplication and
// audit. A nil receiver or nil db disables the feature.
type PostgresRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.AuditStore = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Open connects to Postgres, verifies the connection and creates the audit
// table if it is missing.
func Open(ctx context.Context, dsn string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS processed_records (
        row_key TEXT PRIMARY KEY,
        doi TEXT NOT NULL,
        date TEXT NOT NULL,
        category TEXT NOT NULL,
        title_translated TEXT,
        used_translation BOOLEAN NOT NULL DEFAULT FALSE,
        created_at TIMESTAMP NOT NULL DEFAULT NOW(),
        updated_at TIMESTAMP NOT NULL DEFAULT NOW()
    )`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create audit table: %w", err)
	}

	return NewPostgresRepository(db), nil
}

// Close releases the connection pool.
func (r *PostgresRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// AlreadyProcessed returns a map with the row keys that already exist.
func (r *PostgresRepository) AlreadyProcessed(ctx context.Context, keys []string) (map[string]bool, error) {
	if r == nil || r.db == nil || len(keys) == 0 {
		return map[string]bool{}, nil
	}

	query, args, err := r.builder.
		Select("row_key").
		From("processed_records").
		Where("row_key = ANY(?)", pq.StringArray(keys)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query processed: %w", err)
	}
	defer rows.Close()

	result := make(map[string]bool)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		result[key] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return result, nil
}

// SaveProcessed upserts the audit row for one processed record.
func (r *PostgresRepository) SaveProcessed(ctx context.Context, item domain.CatalogItem, usedTranslation bool) error {
	if r == nil || r.db == nil {
		return nil
	}

	query, args, err := r.builder.
		Insert("processed_records").
		Columns("row_key", "doi", "date", "category", "title_translated", "used_translation").
		Values(item.Key, item.DoiRaw, item.Date, item.Category, item.TitleTranslated, usedTranslation).
		Suffix(`ON CONFLICT (row_key) DO UPDATE
            SET title_translated = EXCLUDED.title_translated,
                used_translation = EXCLUDED.used_translation,
                updated_at = NOW()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert processed: %w", err)
	}
	return nil
}
