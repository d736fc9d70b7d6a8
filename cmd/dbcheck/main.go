package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"go-internship-alerts/internal/config"
	"go-internship-alerts/internal/database"
)

func main() {
	limit := flag.Int("n", 10, "number of recent records to print")
	flag.Parse()

	cfg := config.MustLoad()

	fmt.Println("Attempting to connect to", redact(cfg.DatabaseURL), "...")

	// Set a timeout context
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Open runs the migrations of the selected backend
	store, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to open the store. Error: %v\n(Check DATABASE_URL and that the database is reachable)", err)
	}
	defer store.Close()

	recs, err := store.ListRecent(ctx, *limit)
	if err != nil {
		log.Fatalf("❌ Query failed: %v", err)
	}

	fmt.Printf("✅ Store ready (%T). %d recent internships:\n", store, len(recs))
	for _, r := range recs {
		mark := "⏳"
		if r.IsPublished {
			mark = "📨"
		}
		fmt.Printf("  %s %s  [%s] %s\n      %s\n", mark, r.PublishedAt.Format("2006-01-02"), r.Origin, r.Title, r.URL)
	}
}
