package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-internship-alerts/internal/models"
)

var (
	// ErrNotFound is returned by FindByURL when no record has that URL.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned by Create when the URL is already stored.
	ErrDuplicate = errors.New("record already exists")
)

// Store persists records keyed by URL. Create is the uniqueness enforcement
// point: of two concurrent creates for one URL exactly one succeeds.
type Store interface {
	FindByURL(ctx context.Context, url string) (*models.Record, error)
	Create(ctx context.Context, rec *models.Record) (*models.Record, error)
	MarkPublished(ctx context.Context, url string) error
	ListRecent(ctx context.Context, limit int) ([]models.Record, error)
	Close() error
}

const defaultListLimit = 20

// Open picks the backend from the DSN:
//
//	postgres://... or postgresql://...  PostgreSQL (pgx)
//	sqlite:path or path.db              SQLite
//	file:path or path.json              JSON file
//	memory:                             in-memory, lost on exit
func Open(ctx context.Context, dsn string) (Store, error) {
	dsn = strings.TrimSpace(dsn)
	lower := strings.ToLower(dsn)

	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return ConnectDB(ctx, dsn)
	case strings.HasPrefix(lower, "sqlite:"):
		return OpenSQLite(ctx, strings.TrimPrefix(dsn[len("sqlite:"):], "//"))
	case strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"):
		return OpenSQLite(ctx, dsn)
	case strings.HasPrefix(lower, "file:"):
		return OpenFileStore(strings.TrimPrefix(dsn[len("file:"):], "//"))
	case strings.HasSuffix(lower, ".json"):
		return OpenFileStore(dsn)
	case lower == "memory:" || lower == "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported database url %q", dsn)
	}
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}
