package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

// ScreenshotDebugger stores full-page screenshots of failed navigations.
type ScreenshotDebugger struct {
	outputDir string
	logger    *zap.Logger
}

func NewScreenshotDebugger(dir string, logger *zap.Logger) *ScreenshotDebugger {
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Warn("⚠️ Failed to create screenshot directory", zap.String("dir", dir), zap.Error(err))
	}
	return &ScreenshotDebugger{outputDir: dir, logger: logger}
}

func (s *ScreenshotDebugger) CaptureAndLog(page playwright.Page, name, message string) error {
	path := filepath.Join(s.outputDir, screenshotName(name, time.Now()))
	s.logger.Info("📸 "+message, zap.String("path", path))

	_, err := page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		s.logger.Warn("⚠️ Failed to capture screenshot", zap.Error(err))
		return err
	}
	return nil
}

func screenshotName(name string, at time.Time) string {
	return fmt.Sprintf("%s_%s.png", name, at.Format("2006-01-02_15-04-05"))
}
