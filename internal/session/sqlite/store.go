// Package sqlite persists onboarding sessions in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vanshika/indica/backend/internal/session"
	"github.com/vanshika/indica/backend/internal/session/sqlite/migrations"
	"github.com/vanshika/indica/backend/internal/storage/sqlitemigrate"
)

// Store keeps session records in a SQLite file.
type Store struct {
	sqlDB *sql.DB
}

var _ session.Store = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the database at path and applies the embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(ctx, sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Save(ctx context.Context, record session.Record) error {
	id := strings.TrimSpace(record.ID)
	code := strings.TrimSpace(record.ReferralCode)
	if id == "" {
		return fmt.Errorf("session id is required")
	}
	if code == "" {
		return fmt.Errorf("referral code is required")
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO onboarding_sessions (id, referral_code, created_at, expires_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   referral_code = excluded.referral_code,
		   expires_at = excluded.expires_at`,
		id, code, toMillis(record.CreatedAt), toMillis(record.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", id, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (session.Record, error) {
	var (
		record    session.Record
		createdAt int64
		expiresAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, referral_code, created_at, expires_at FROM onboarding_sessions WHERE id = ?`,
		strings.TrimSpace(id),
	).Scan(&record.ID, &record.ReferralCode, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Record{}, session.ErrNotFound
	}
	if err != nil {
		return session.Record{}, fmt.Errorf("get session %s: %w", id, err)
	}
	record.CreatedAt = fromMillis(createdAt)
	record.ExpiresAt = fromMillis(expiresAt)
	return record, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM onboarding_sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

func (s *Store) PruneExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM onboarding_sessions WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	return int(n), nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}
