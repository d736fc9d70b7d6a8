package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"go-internship-alerts/internal/app"
	"go-internship-alerts/internal/config"
	"go-internship-alerts/internal/pipeline"
	"go-internship-alerts/internal/scraper"

	"go.uber.org/zap"
)

func main() {
	//load config
	cfg := config.MustLoad()

	logger, err := app.NewLogger(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	//setup context with timeout = 10 mins
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	logger.Info("🚀 Starting internship alerts (single run)...",
		zap.Int("sources", len(cfg.Sources)),
		zap.String("engine", cfg.Browser.Engine))

	a, err := app.New(ctx, cfg, logger, nil)
	if err != nil {
		logger.Fatal("❌ Failed to start", zap.Error(err))
	}
	defer a.Close()

	fresh := a.Pipeline.RunCycle(ctx)
	logger.Info(pipeline.Summary(fresh))

	//save results
	if err := saveReport(cfg.ReportDir, fresh, time.Now()); err != nil {
		logger.Warn("⚠️ Failed to save report", zap.Error(err))
	}

	logger.Info("🏁 Execution finished.")
}

// saveReport writes report_dir/internships-YYYY-MM-DD.json; nothing is written for an empty run.
func saveReport(dir string, postings []scraper.Posting, now time.Time) error {
	if len(postings) == 0 {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	data, err := json.MarshalIndent(postings, "", " ")
	if err != nil {
		return fmt.Errorf("marshal postings: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("internships-%s.json", now.Format("2006-01-02")))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
