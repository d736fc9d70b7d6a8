package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go-internship-alerts/internal/app"
	"go-internship-alerts/internal/config"
	"go-internship-alerts/internal/notifier"
	"go-internship-alerts/internal/scraper"

	"go.uber.org/zap"
)

func main() {
	title := flag.String("title", "Pasantía rentada de prueba (ignorar)", "title of the sample posting")
	url := flag.String("url", "https://fcyt.uader.edu.ar/category/sec-de-extension/", "link of the sample posting")
	image := flag.String("image", "", "optional image URL")
	flag.Parse()

	cfg := config.MustLoad()
	logger, err := app.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	n, err := notifier.New(cfg.Notifier, logger)
	if err != nil {
		logger.Fatal("❌ Could not build notifier", zap.Error(err))
	}

	sample := scraper.Posting{
		Origin:      "TEST",
		URL:         *url,
		Title:       *title,
		ImageURL:    *image,
		PublishedAt: time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("📨 Sending sample posting", zap.String("kind", cfg.Notifier.Kind))
	if err := n.Send(ctx, sample); err != nil {
		logger.Fatal("❌ Send failed", zap.Error(err))
	}
	logger.Info("✅ Sample posting delivered. Check the channel.")
}
