package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go-internship-alerts/internal/models"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the embedded backend for single-host deployments.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	// modernc sqlite uses DSN like: file:foo.db?_pragma=busy_timeout(5000)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite wants a single writer
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	store := NewSQLiteStore(db)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLiteStore wraps an already opened handle.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRowContext(ctx, `PRAGMA user_version;`).Scan(&v); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if v >= 1 {
		return tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS internships (
  id TEXT PRIMARY KEY,
  origin TEXT NOT NULL,
  url TEXT NOT NULL,
  title TEXT NOT NULL,
  image_url TEXT NOT NULL DEFAULT '',
  published_at TEXT NOT NULL,
  found_at TEXT NOT NULL,
  is_published INTEGER NOT NULL DEFAULT 0
);`); err != nil {
		return fmt.Errorf("create internships table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS idx_internships_url ON internships(url);`); err != nil {
		return fmt.Errorf("create url index: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `PRAGMA user_version = 1;`); err != nil {
		return fmt.Errorf("bump schema version: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const sqliteColumns = `id, origin, url, title, image_url, published_at, found_at, is_published`

// sqliteTime has a fixed width so text ordering matches time ordering.
const sqliteTime = "2006-01-02T15:04:05.000000000Z07:00"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRecord(row rowScanner) (*models.Record, error) {
	var (
		rec                models.Record
		published, foundAt string
		isPublished        int
	)
	if err := row.Scan(&rec.ID, &rec.Origin, &rec.URL, &rec.Title, &rec.ImageURL, &published, &foundAt, &isPublished); err != nil {
		return nil, err
	}
	var err error
	if rec.PublishedAt, err = time.Parse(sqliteTime, published); err != nil {
		return nil, fmt.Errorf("parse published_at: %w", err)
	}
	if rec.FoundAt, err = time.Parse(sqliteTime, foundAt); err != nil {
		return nil, fmt.Errorf("parse found_at: %w", err)
	}
	rec.IsPublished = isPublished != 0
	return &rec, nil
}

func (s *SQLiteStore) FindByURL(ctx context.Context, url string) (*models.Record, error) {
	rec, err := scanSQLiteRecord(s.db.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM internships WHERE url = ?;`, url))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find internship: %w", err)
	}
	return rec, nil
}

// Create relies on the unique index on url: a conflicting insert changes no rows.
func (s *SQLiteStore) Create(ctx context.Context, rec *models.Record) (*models.Record, error) {
	prepareRecord(rec, time.Now())

	res, err := s.db.ExecContext(ctx, `
INSERT INTO internships (`+sqliteColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(url) DO NOTHING;`,
		rec.ID, rec.Origin, rec.URL, rec.Title, rec.ImageURL,
		rec.PublishedAt.UTC().Format(sqliteTime), rec.FoundAt.UTC().Format(sqliteTime), boolToInt(rec.IsPublished),
	)
	if err != nil {
		return nil, fmt.Errorf("insert internship: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("insert internship: %w", err)
	}
	if n == 0 {
		return nil, ErrDuplicate
	}

	saved := *rec
	return &saved, nil
}

func (s *SQLiteStore) MarkPublished(ctx context.Context, url string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE internships SET is_published = 1 WHERE url = ?;`, url)
	if err != nil {
		return fmt.Errorf("mark internship published: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) ListRecent(ctx context.Context, limit int) ([]models.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteColumns+` FROM internships ORDER BY found_at DESC LIMIT ?;`, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list internships: %w", err)
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		rec, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan internship: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
