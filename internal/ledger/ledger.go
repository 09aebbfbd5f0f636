// Package ledger records the latest successful enrollment per storage key in
// SQLite, so operators and the downstream pipeline can list who has enrolled
// without walking the image tree.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/zynqcloud/face-enroll/internal/ledger/migrations"
)

// ErrNotFound is returned when no enrollment exists for a key.
var ErrNotFound = errors.New("enrollment not found")

// Entry is one key's enrollment record.
type Entry struct {
	Group      string
	Key        string
	Email      string
	Images     int
	Bytes      int64
	RequestID  string
	FirstAt    time.Time
	EnrolledAt time.Time
	Count      int
}

// Ledger persists enrollment entries in SQLite.
type Ledger struct {
	sqlDB *sql.DB
	now   func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the ledger database at path and applies embedded migrations.
func Open(path string) (*Ledger, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("ledger path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Ledger{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (l *Ledger) Close() error {
	if l == nil || l.sqlDB == nil {
		return nil
	}
	return l.sqlDB.Close()
}

// Ping checks that the database is reachable.
func (l *Ledger) Ping(ctx context.Context) error {
	return l.sqlDB.PingContext(ctx)
}

// Record upserts the entry for (e.Group, e.Key). A repeat enrollment keeps
// the original first-enrolled time and increments the count.
func (l *Ledger) Record(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if l == nil || l.sqlDB == nil {
		return fmt.Errorf("ledger is not configured")
	}
	group := strings.TrimSpace(e.Group)
	key := strings.TrimSpace(e.Key)
	if group == "" || key == "" {
		return fmt.Errorf("group and key are required")
	}
	at := e.EnrolledAt
	if at.IsZero() {
		at = l.now()
	}

	_, err := l.sqlDB.ExecContext(ctx,
		`INSERT INTO enrollments (
		   storage_group,
		   storage_key,
		   email,
		   image_count,
		   total_bytes,
		   request_id,
		   first_enrolled_at,
		   enrolled_at,
		   enroll_count
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)
		 ON CONFLICT (storage_group, storage_key) DO UPDATE SET
		   email = excluded.email,
		   image_count = excluded.image_count,
		   total_bytes = excluded.total_bytes,
		   request_id = excluded.request_id,
		   enrolled_at = excluded.enrolled_at,
		   enroll_count = enrollments.enroll_count + 1`,
		group,
		key,
		e.Email,
		e.Images,
		e.Bytes,
		e.RequestID,
		toMillis(at),
		toMillis(at),
	)
	if err != nil {
		return fmt.Errorf("record enrollment: %w", err)
	}
	return nil
}

const selectColumns = `storage_group, storage_key, email, image_count, total_bytes,
	request_id, first_enrolled_at, enrolled_at, enroll_count`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e              Entry
		firstAt, atMs int64
	)
	if err := row.Scan(&e.Group, &e.Key, &e.Email, &e.Images, &e.Bytes,
		&e.RequestID, &firstAt, &atMs, &e.Count); err != nil {
		return Entry{}, err
	}
	e.FirstAt = fromMillis(firstAt)
	e.EnrolledAt = fromMillis(atMs)
	return e, nil
}

// Get returns the entry for (group, key) or ErrNotFound.
func (l *Ledger) Get(ctx context.Context, group, key string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	row := l.sqlDB.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM enrollments WHERE storage_group = ? AND storage_key = ?`,
		group, key)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get enrollment: %w", err)
	}
	return e, nil
}

// List returns entries ordered by group and key. An empty group lists all.
func (l *Ledger) List(ctx context.Context, group string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	query := `SELECT ` + selectColumns + ` FROM enrollments`
	var args []any
	if group = strings.TrimSpace(group); group != "" {
		query += ` WHERE storage_group = ?`
		args = append(args, group)
	}
	query += ` ORDER BY storage_group, storage_key`

	rows, err := l.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return out, nil
}
