package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-internship-alerts/internal/app"
	"go-internship-alerts/internal/config"
	"go-internship-alerts/internal/httpapi"
	"go-internship-alerts/internal/scheduler"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	cfg := config.MustLoad()

	logger, err := app.NewLogger(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal("❌ Failed to start", zap.Error(err))
	}
	defer a.Close()

	sched, err := scheduler.New(a.Pipeline, scheduler.Config{
		Schedule:   cfg.Schedule,
		RunOnStart: cfg.ShouldRunOnStart(),
		LockPath:   cfg.LockPath,
	}, logger.Named("scheduler"))
	if err != nil {
		logger.Fatal("❌ Invalid schedule", zap.Error(err))
	}

	if !cfg.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr: ":" + cfg.HTTP.Port,
		Handler: httpapi.NewRouter(httpapi.Deps{
			Cycles:   sched,
			Records:  a.Store,
			Gatherer: prometheus.DefaultGatherer,
			Logger:   logger.Named("http"),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("🌐 Server listening", zap.String("port", cfg.HTTP.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("❌ HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	if err := sched.Run(ctx); err != nil {
		logger.Error("❌ Scheduler failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("⚠️ HTTP shutdown", zap.Error(err))
	}
	logger.Info("👋 Bye")
}
