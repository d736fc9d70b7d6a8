package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-internship-alerts/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps records in PostgreSQL; the UNIQUE(url) constraint
// enforces at most one record per posting.
type PostgresStore struct {
	db *pgxpool.Pool
}

func ConnectDB(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database url: %w", err)
	}

	config.MaxConns = 5
	config.MinConns = 1
	config.MaxConnLifetime = time.Hour

	// Transaction-mode poolers (PgBouncer, Supabase) do not support prepared
	// statements; the statement cache must stay off.
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	store := &PostgresStore{db: pool}
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

func (r *PostgresStore) Close() error {
	if r.db != nil {
		r.db.Close()
	}
	return nil
}

func (r *PostgresStore) Migrate(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS internships (
			id           TEXT PRIMARY KEY,
			origin       TEXT NOT NULL,
			url          TEXT NOT NULL UNIQUE,
			title        TEXT NOT NULL,
			image_url    TEXT NOT NULL DEFAULT '',
			published_at TIMESTAMPTZ NOT NULL,
			found_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
			is_published BOOLEAN NOT NULL DEFAULT false
		)`)
	if err != nil {
		return fmt.Errorf("failed to migrate internships table: %w", err)
	}
	return nil
}

const recordColumns = `id, origin, url, title, image_url, published_at, found_at, is_published`

func scanRecord(row pgx.Row) (*models.Record, error) {
	var rec models.Record
	err := row.Scan(&rec.ID, &rec.Origin, &rec.URL, &rec.Title, &rec.ImageURL, &rec.PublishedAt, &rec.FoundAt, &rec.IsPublished)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *PostgresStore) FindByURL(ctx context.Context, url string) (*models.Record, error) {
	rec, err := scanRecord(r.db.QueryRow(ctx, `SELECT `+recordColumns+` FROM internships WHERE url = $1`, url))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find internship: %w", err)
	}
	return rec, nil
}

// Create inserts the record; an existing URL yields ErrDuplicate.
func (r *PostgresStore) Create(ctx context.Context, rec *models.Record) (*models.Record, error) {
	prepareRecord(rec, time.Now())

	query := `
		INSERT INTO internships (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (url) DO NOTHING
		RETURNING ` + recordColumns

	saved, err := scanRecord(r.db.QueryRow(ctx, query,
		rec.ID, rec.Origin, rec.URL, rec.Title, rec.ImageURL, rec.PublishedAt, rec.FoundAt, rec.IsPublished))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create internship: %w", err)
	}
	return saved, nil
}

func (r *PostgresStore) MarkPublished(ctx context.Context, url string) error {
	tag, err := r.db.Exec(ctx, `UPDATE internships SET is_published = true WHERE url = $1`, url)
	if err != nil {
		return fmt.Errorf("failed to mark internship published: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresStore) ListRecent(ctx context.Context, limit int) ([]models.Record, error) {
	rows, err := r.db.Query(ctx, `SELECT `+recordColumns+` FROM internships ORDER BY found_at DESC LIMIT $1`, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list internships: %w", err)
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan internship: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// prepareRecord fills the fields owned by the store.
func prepareRecord(rec *models.Record, now time.Time) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.FoundAt.IsZero() {
		rec.FoundAt = now.UTC()
	}
	if rec.PublishedAt.IsZero() {
		rec.PublishedAt = rec.FoundAt
	}
}
