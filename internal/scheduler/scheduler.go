// Package scheduler triggers scrape cycles on start, on a cron schedule and on
// demand, never letting two cycles overlap.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go-internship-alerts/internal/scraper"

	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ErrBusy is returned by Trigger while another cycle holds the lock.
var ErrBusy = errors.New("a cycle is already running")

// Runner executes one cycle; pipeline.Service satisfies it.
type Runner interface {
	RunCycle(ctx context.Context) []scraper.Posting
}

type Config struct {
	// Schedule is a 5-field cron spec or a descriptor such as "@every 30m".
	Schedule   string
	RunOnStart bool
	// LockPath, when set, also serializes cycles across processes.
	LockPath string
}

// Status describes the last completed cycle.
type Status struct {
	Running      bool      `json:"running"`
	LastStarted  time.Time `json:"last_started,omitempty"`
	LastFinished time.Time `json:"last_finished,omitempty"`
	LastNew      int       `json:"last_new"`
	NextRun      time.Time `json:"next_run,omitempty"`
}

type Scheduler struct {
	runner Runner
	cfg    Config
	cron   *cron.Cron
	lock   *flock.Flock
	logger *zap.Logger

	mu sync.Mutex // held for the duration of a cycle

	statusMu sync.Mutex
	status   Status
	entry    cron.EntryID
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func New(runner Runner, cfg Config, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := parser.Parse(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", cfg.Schedule, err)
	}

	cronLog := cron.PrintfLogger(zap.NewStdLog(logger.Named("cron")))
	s := &Scheduler{
		runner: runner,
		cfg:    cfg,
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		logger: logger,
	}

	if cfg.LockPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LockPath), 0755); err != nil {
			return nil, fmt.Errorf("create lock directory: %w", err)
		}
		s.lock = flock.New(cfg.LockPath)
	}
	return s, nil
}

// Run blocks until ctx is cancelled, running cycles on start (if enabled) and
// on every schedule tick.
func (s *Scheduler) Run(ctx context.Context) error {
	id, err := s.cron.AddFunc(s.cfg.Schedule, func() { s.runScheduled(ctx, "schedule") })
	if err != nil {
		return fmt.Errorf("register schedule: %w", err)
	}
	s.statusMu.Lock()
	s.entry = id
	s.statusMu.Unlock()

	s.cron.Start()
	s.logger.Info("⏰ Scheduler started", zap.String("schedule", s.cfg.Schedule))

	if s.cfg.RunOnStart {
		s.runScheduled(ctx, "startup")
	}

	<-ctx.Done()
	stopped := s.cron.Stop()
	<-stopped.Done()
	s.logger.Info("🛑 Scheduler stopped")
	return nil
}

// Trigger runs a cycle now, or returns ErrBusy if one is in progress here or
// in another process sharing the lock file.
func (s *Scheduler) Trigger(ctx context.Context) ([]scraper.Posting, error) {
	if !s.mu.TryLock() {
		return nil, ErrBusy
	}
	defer s.mu.Unlock()

	if s.lock != nil {
		locked, err := s.lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire cycle lock: %w", err)
		}
		if !locked {
			return nil, ErrBusy
		}
		defer func() {
			if err := s.lock.Unlock(); err != nil {
				s.logger.Warn("⚠️ Failed to release cycle lock", zap.Error(err))
			}
		}()
	}

	s.setStatus(func(st *Status) {
		st.Running = true
		st.LastStarted = time.Now()
	})
	fresh := s.runner.RunCycle(ctx)
	s.setStatus(func(st *Status) {
		st.Running = false
		st.LastFinished = time.Now()
		st.LastNew = len(fresh)
	})
	return fresh, nil
}

func (s *Scheduler) runScheduled(ctx context.Context, reason string) {
	fresh, err := s.Trigger(ctx)
	switch {
	case errors.Is(err, ErrBusy):
		s.logger.Warn("⏭️ Skipping cycle, previous one still running", zap.String("trigger", reason))
	case err != nil:
		s.logger.Error("❌ Cycle not started", zap.String("trigger", reason), zap.Error(err))
	default:
		s.logger.Info("📊 Cycle done", zap.String("trigger", reason), zap.Int("new", len(fresh)))
	}
}

func (s *Scheduler) Status() Status {
	s.statusMu.Lock()
	st, entry := s.status, s.entry
	s.statusMu.Unlock()

	if entry != 0 {
		st.NextRun = s.cron.Entry(entry).Next
	}
	return st
}

func (s *Scheduler) setStatus(update func(*Status)) {
	s.statusMu.Lock()
	update(&s.status)
	s.statusMu.Unlock()
}
