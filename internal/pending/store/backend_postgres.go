package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ianMuchesia/MockPay-sub000/pkg/platform/sentinel"
)

// PostgresBackend stores entries in a key/value/expires_at table. Physical
// expiry is a read-time filter on expires_at; a periodic DELETE keeps the
// table tidy but is not required for correctness.
type PostgresBackend struct {
	db    *sql.DB
	clock Clock
}

// PostgresOption configures a PostgresBackend.
type PostgresOption func(*PostgresBackend)

// WithPostgresClock sets the clock used for expires_at comparisons.
func WithPostgresClock(clock Clock) PostgresOption {
	return func(b *PostgresBackend) {
		if clock != nil {
			b.clock = clock
		}
	}
}

func NewPostgres(db *sql.DB, opts ...PostgresOption) *PostgresBackend {
	b := &PostgresBackend{db: db, clock: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// EnsureSchema creates the backing table if it does not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS pending_entries (
			key        text PRIMARY KEY,
			value      text NOT NULL,
			expires_at timestamptz
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure pending_entries schema: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Get(ctx context.Context, key string) (string, bool, error) {
	var (
		value     string
		expiresAt sql.NullTime
	)
	err := b.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM pending_entries WHERE key = $1`, key,
	).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("postgres get: %w: %w", sentinel.ErrUnavailable, err)
	}
	if b.physicallyExpired(expiresAt) {
		return "", false, nil
	}
	return value, true, nil
}

func (b *PostgresBackend) GetDel(ctx context.Context, key string) (string, bool, error) {
	var (
		value     string
		expiresAt sql.NullTime
	)
	err := b.db.QueryRowContext(ctx,
		`DELETE FROM pending_entries WHERE key = $1 RETURNING value, expires_at`, key,
	).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("postgres getdel: %w: %w", sentinel.ErrUnavailable, err)
	}
	if b.physicallyExpired(expiresAt) {
		return "", false, nil
	}
	return value, true, nil
}

func (b *PostgresBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	var expiresAt sql.NullTime
	if ttl > 0 {
		expiresAt = sql.NullTime{Time: b.clock().Add(ttl), Valid: true}
	}
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO pending_entries (key, value, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			expires_at = EXCLUDED.expires_at
	`, key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("postgres set: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (b *PostgresBackend) Delete(ctx context.Context, key string) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM pending_entries WHERE key = $1`, key); err != nil {
		return fmt.Errorf("postgres delete: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (b *PostgresBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	// Underscores are LIKE wildcards and key prefixes contain them.
	rows, err := b.db.QueryContext(ctx, `
		SELECT key FROM pending_entries
		WHERE key LIKE $1 || '%' ESCAPE '\'
		  AND (expires_at IS NULL OR expires_at > $2)
		ORDER BY key
	`, likeEscape(prefix), b.clock())
	if err != nil {
		return nil, fmt.Errorf("postgres keys: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("postgres keys scan: %w: %w", sentinel.ErrUnavailable, err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres keys: %w: %w", sentinel.ErrUnavailable, err)
	}
	return keys, nil
}

// Sweep physically deletes expired rows. Safe to run on any schedule.
func (b *PostgresBackend) Sweep(ctx context.Context) (int64, error) {
	res, err := b.db.ExecContext(ctx,
		`DELETE FROM pending_entries WHERE expires_at IS NOT NULL AND expires_at <= $1`, b.clock())
	if err != nil {
		return 0, fmt.Errorf("postgres sweep: %w: %w", sentinel.ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("postgres sweep: %w: %w", sentinel.ErrUnavailable, err)
	}
	return n, nil
}

func (b *PostgresBackend) physicallyExpired(expiresAt sql.NullTime) bool {
	return expiresAt.Valid && b.clock().After(expiresAt.Time)
}

func likeEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
