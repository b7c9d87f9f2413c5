package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

type PostgresStore struct {
	db    DB
	table string
}

func NewPostgresStore(db DB, table string) (*PostgresStore, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("postgres store: invalid table name %q", table)
	}
	return &PostgresStore{db: db, table: table}, nil
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`, s.table)
	if _, err := s.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("%w: create table: %w", ErrStorage, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (string, error) {
	query := fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, s.table)

	var value string
	if err := s.db.QueryRow(ctx, query, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: select %s: %w", ErrStorage, key, err)
	}
	return value, nil
}

// SetMany upserts every entry in a single statement, which Postgres runs
// atomically.
func (s *PostgresStore) SetMany(ctx context.Context, entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}
	keys := make([]string, 0, len(entries))
	values := make([]string, 0, len(entries))
	for k, v := range entries {
		keys = append(keys, k)
		values = append(values, v)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (key, value, updated_at)
		SELECT k, v, NOW() FROM unnest($1::text[], $2::text[]) AS t(k, v)
		ON CONFLICT (key)
		DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = NOW()
	`, s.table)

	if _, err := s.db.Exec(ctx, query, keys, values); err != nil {
		return fmt.Errorf("%w: upsert: %w", ErrStorage, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = ANY($1)`, s.table)
	if _, err := s.db.Exec(ctx, query, keys); err != nil {
		return fmt.Errorf("%w: delete: %w", ErrStorage, err)
	}
	return nil
}
