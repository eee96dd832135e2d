package repositories

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"gadgetsync/internal/pipeline/storage"
)

// StatusRepository is the Postgres-backed KVStore: one flat table of JSON
// values with an optional expiry, shared by job status, staged rows and
// price-alert subscriptions.
type StatusRepository struct {
	db *sql.DB
}

func NewStatusRepository(db *sql.DB) *StatusRepository {
	return &StatusRepository{db: db}
}

// Migrate creates the backing schema and table. Safe to run on every startup.
func (r *StatusRepository) Migrate() error {
	if _, err := r.db.Exec(`CREATE SCHEMA IF NOT EXISTS pipeline`); err != nil {
		return fmt.Errorf("create pipeline schema: %w", err)
	}
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS pipeline.kv_status (
			key        TEXT PRIMARY KEY,
			value      JSONB NOT NULL,
			expires_at TIMESTAMPTZ
		)`)
	if err != nil {
		return fmt.Errorf("create kv_status table: %w", err)
	}
	return nil
}

func (r *StatusRepository) Get(key string) ([]byte, error) {
	query := `SELECT value FROM pipeline.kv_status WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())`

	var value []byte
	if err := r.db.QueryRow(query, key).Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

func (r *StatusRepository) Set(key string, value []byte, ttl time.Duration) error {
	query := `
		INSERT INTO pipeline.kv_status (key, value, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`

	var expiresAt sql.NullTime
	if ttl > 0 {
		expiresAt = sql.NullTime{Time: time.Now().Add(ttl), Valid: true}
	}
	if _, err := r.db.Exec(query, key, value, expiresAt); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

func (r *StatusRepository) Delete(key string) error {
	if _, err := r.db.Exec(`DELETE FROM pipeline.kv_status WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// Cleanup drops expired keys. Expiry is otherwise enforced lazily on read.
func (r *StatusRepository) Cleanup() (int64, error) {
	res, err := r.db.Exec(`DELETE FROM pipeline.kv_status WHERE expires_at IS NOT NULL AND expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("cleanup kv_status: %w", err)
	}
	return res.RowsAffected()
}
