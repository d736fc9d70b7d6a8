package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go-internship-alerts/internal/scraper"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	now := time.Date(2025, 12, 18, 9, 0, 0, 0, time.UTC)
	postings := []scraper.Posting{{Origin: "UADER", URL: "https://a", Title: "Pasantía"}}

	require.NoError(t, saveReport(dir, postings, now))

	data, err := os.ReadFile(filepath.Join(dir, "internships-2025-12-18.json"))
	require.NoError(t, err)
	var got []scraper.Posting
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, postings[0].URL, got[0].URL)
}

func TestSaveReport_EmptyRunWritesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	require.NoError(t, saveReport(dir, nil, time.Now()))

	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}
