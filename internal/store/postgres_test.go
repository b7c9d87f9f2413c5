package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDB interprets the handful of statements PostgresStore issues.
type fakeDB struct {
	mu      sync.Mutex
	rows    map[string]string
	queries []string
	err     error
}

func newFakeDB() *fakeDB {
	return &fakeDB{rows: make(map[string]string)}
}

func (db *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.queries = append(db.queries, sql)
	if db.err != nil {
		return pgconn.CommandTag{}, db.err
	}

	switch {
	case strings.Contains(sql, "CREATE TABLE"):
		return pgconn.NewCommandTag("CREATE TABLE"), nil
	case strings.Contains(sql, "INSERT INTO"):
		keys := args[0].([]string)
		values := args[1].([]string)
		for i := range keys {
			db.rows[keys[i]] = values[i]
		}
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	case strings.Contains(sql, "DELETE FROM"):
		for _, k := range args[0].([]string) {
			delete(db.rows, k)
		}
		return pgconn.NewCommandTag("DELETE 1"), nil
	}
	return pgconn.CommandTag{}, errors.New("unexpected statement")
}

func (db *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.queries = append(db.queries, sql)
	if db.err != nil {
		return fakeRow{err: db.err}
	}
	v, ok := db.rows[args[0].(string)]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{value: v}
}

type fakeRow struct {
	value string
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*string)) = r.value
	return nil
}

func TestPostgresStoreContract(t *testing.T) {
	s, err := NewPostgresStore(newFakeDB(), "session_kv")
	require.NoError(t, err)
	runContract(t, s)
}

func TestPostgresStoreSchemaAndTable(t *testing.T) {
	db := newFakeDB()
	s, err := NewPostgresStore(db, "device_sessions")
	require.NoError(t, err)
	require.NoError(t, s.EnsureSchema(context.Background()))

	require.Len(t, db.queries, 1)
	assert.Contains(t, db.queries[0], "CREATE TABLE IF NOT EXISTS device_sessions")
}

func TestPostgresStoreRejectsBadTableName(t *testing.T) {
	for _, name := range []string{"", "kv; DROP TABLE users", "Upper", "1kv"} {
		_, err := NewPostgresStore(newFakeDB(), name)
		assert.Error(t, err, name)
	}
}

func TestPostgresStoreWrapsErrors(t *testing.T) {
	db := newFakeDB()
	db.err = errors.New("connection reset")
	s, err := NewPostgresStore(db, "session_kv")
	require.NoError(t, err)

	_, err = s.Get(context.Background(), "auth_user")
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, s.SetMany(context.Background(), map[string]string{"a": "b"}), ErrStorage)
	assert.ErrorIs(t, s.Delete(context.Background(), "a"), ErrStorage)
	assert.ErrorIs(t, s.EnsureSchema(context.Background()), ErrStorage)
}
