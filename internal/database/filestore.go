package database

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go-internship-alerts/internal/models"
)

// FileStore keeps every record in memory and, when filePath is set, mirrors
// them to a JSON file after each change.
// The mutex makes check-then-create atomic within one process.
type FileStore struct {
	mu       sync.Mutex
	filePath string
	records  map[string]models.Record
}

// NewMemoryStore never touches disk.
func NewMemoryStore() *FileStore {
	return &FileStore{records: make(map[string]models.Record)}
}

// OpenFileStore creates or loads a JSON store.
func OpenFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	fs := &FileStore{filePath: path, records: make(map[string]models.Record)}
	if err := fs.load(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (fs *FileStore) FindByURL(_ context.Context, url string) (*models.Record, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	rec, ok := fs.records[url]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (fs *FileStore) Create(_ context.Context, rec *models.Record) (*models.Record, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, exists := fs.records[rec.URL]; exists {
		return nil, ErrDuplicate
	}
	prepareRecord(rec, time.Now())
	fs.records[rec.URL] = *rec

	if err := fs.save(); err != nil {
		delete(fs.records, rec.URL)
		return nil, err
	}
	saved := *rec
	return &saved, nil
}

func (fs *FileStore) MarkPublished(_ context.Context, url string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	rec, ok := fs.records[url]
	if !ok {
		return ErrNotFound
	}
	if rec.IsPublished {
		return nil
	}
	rec.IsPublished = true
	fs.records[url] = rec
	if err := fs.save(); err != nil {
		rec.IsPublished = false
		fs.records[url] = rec
		return err
	}
	return nil
}

func (fs *FileStore) ListRecent(_ context.Context, limit int) ([]models.Record, error) {
	fs.mu.Lock()
	out := make([]models.Record, 0, len(fs.records))
	for _, rec := range fs.records {
		out = append(out, rec)
	}
	fs.mu.Unlock()

	sortRecent(out)
	if limit = normalizeLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (fs *FileStore) Close() error {
	return nil
}

// load reads the JSON file into the in-memory map; a missing file is an empty store.
func (fs *FileStore) load() error {
	data, err := os.ReadFile(fs.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", fs.filePath, err)
	}

	var entries []models.Record
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse %s: %w", fs.filePath, err)
	}
	for _, e := range entries {
		fs.records[e.URL] = e
	}
	return nil
}

// save must be called with mu held. It writes through a temp file so a crash
// never leaves a truncated store.
func (fs *FileStore) save() error {
	if fs.filePath == "" {
		return nil
	}

	entries := make([]models.Record, 0, len(fs.records))
	for _, rec := range fs.records {
		entries = append(entries, rec)
	}
	sortRecent(entries)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal records: %w", err)
	}
	tmp := fs.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, fs.filePath); err != nil {
		return fmt.Errorf("replace %s: %w", fs.filePath, err)
	}
	return nil
}

func sortRecent(recs []models.Record) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].FoundAt.Equal(recs[j].FoundAt) {
			return recs[i].URL < recs[j].URL
		}
		return recs[i].FoundAt.After(recs[j].FoundAt)
	})
}
