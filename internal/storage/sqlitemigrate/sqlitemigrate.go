// Package sqlitemigrate applies embedded SQL migrations to a SQLite database.
package sqlitemigrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

const (
	migrationTable = "schema_migrations"
	upMarker       = "-- +migrate Up"
	downMarker     = "-- +migrate Down"
)

// Apply runs every *.sql file under dir in lexical order, each at most once.
// Applied file names are tracked in the schema_migrations table.
func Apply(ctx context.Context, db *sql.DB, migrations fs.FS, dir string) error {
	if db == nil {
		return errors.New("sqlitemigrate: db is required")
	}
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = "."
	}

	entries, err := fs.ReadDir(migrations, dir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+migrationTable+` (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, name := range files {
		if err := applyOne(ctx, db, migrations, path.Join(dir, name), name); err != nil {
			return err
		}
	}
	return nil
}

func applyOne(ctx context.Context, db *sql.DB, migrations fs.FS, file, name string) error {
	applied, err := isApplied(ctx, db, name)
	if err != nil {
		return fmt.Errorf("check migration %s: %w", name, err)
	}
	if applied {
		return nil
	}

	content, err := fs.ReadFile(migrations, file)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", name, err)
	}
	up := UpSection(string(content))
	if strings.TrimSpace(up) == "" {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, up); err != nil && !alreadyExists(err) {
		_ = tx.Rollback()
		return fmt.Errorf("exec migration %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO `+migrationTable+` (name, applied_at) VALUES (?, ?)`,
		name, time.Now().UTC().UnixMilli(),
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record migration %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", name, err)
	}
	return nil
}

// UpSection returns the statements between the Up and Down markers. Files
// without markers are applied whole.
func UpSection(content string) string {
	start := strings.Index(content, upMarker)
	if start == -1 {
		return content
	}
	content = content[start+len(upMarker):]
	if end := strings.Index(content, downMarker); end != -1 {
		content = content[:end]
	}
	return content
}

func alreadyExists(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate column name")
}

func isApplied(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx, `SELECT 1 FROM `+migrationTable+` WHERE name = ?`, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
