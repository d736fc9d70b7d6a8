package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"go-internship-alerts/internal/app"
	"go-internship-alerts/internal/config"
	"go-internship-alerts/internal/scraper/listing"
)

func main() {
	source := flag.String("source", "", "source name to probe (default: all)")
	engine := flag.String("engine", "", "override browser engine: playwright or http")
	flag.Parse()

	fmt.Println("🌐 Probing sources...")

	cfg := config.MustLoad()
	if *engine != "" {
		cfg.Browser.Engine = *engine
	}

	logger, err := app.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	fetcher, closeFetcher, err := app.NewFetcher(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to start %s engine: %v", cfg.Browser.Engine, err)
	}
	defer closeFetcher()
	fmt.Printf("✅ %s engine started\n", cfg.Browser.Engine)

	for _, src := range cfg.Sources {
		if *source != "" && src.Name != *source {
			continue
		}
		fmt.Printf("\n🔍 %s (%s)\n", src.Name, src.ListingURL)

		candidates := listing.New(src, fetcher, logger).Candidates(ctx)
		if len(candidates) == 0 {
			fmt.Println("  ⚠️ No articles found. Check the listing URL and selectors.")
			continue
		}
		for i, c := range candidates {
			printCandidate(i+1, c)
		}
	}
	fmt.Println("\n✨ Probe complete!")
}

func printCandidate(n int, c listing.Candidate) {
	fmt.Printf("  [%d] %s\n      %s\n", n, c.RawTitle, c.URL)
	switch {
	case !c.Relevant:
		fmt.Println("      ➖ no keyword match")
	case c.Err != nil:
		fmt.Printf("      ❌ detail failed: %v\n", c.Err)
	case c.Posting != nil:
		fmt.Printf("      ✅ %q\n      📅 %s\n", c.Posting.Title, c.Posting.PublishedAt.Format(time.RFC3339))
		if c.Posting.ImageURL != "" {
			fmt.Printf("      🖼  %s\n", c.Posting.ImageURL)
		}
	}
}
