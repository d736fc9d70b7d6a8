package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go-internship-alerts/internal/notifier"
	"go-internship-alerts/internal/scraper/uader"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"LOG_LEVEL", "DATABASE_URL", "SCRAPE_SCHEDULE", "PORT", "BROWSER_ENGINE", "NOTIFIER_KIND",
	"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "DISCORD_WEBHOOK_URL", "DISCORD_ROLE_ID",
}

// clearEnv isolates tests from the developer's shell and .env.
func clearEnv(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "@every 30m", cfg.Schedule)
	assert.True(t, cfg.ShouldRunOnStart())
	assert.Equal(t, EnginePlaywright, cfg.Browser.Engine)
	assert.True(t, cfg.Browser.IsHeadless())
	assert.Equal(t, 30*time.Second, cfg.Browser.NavigationTimeout)
	assert.Equal(t, notifier.KindNone, cfg.Notifier.Kind)
	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, uader.ListingURL, cfg.Sources[0].ListingURL)
	assert.Equal(t, 5, cfg.Sources[0].Limit)
}

func TestLoad_YAMLAndEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
log_level: debug
database_url: postgres://localhost/alerts
schedule: "*/10 * * * *"
run_on_start: false
browser:
  engine: HTTP
  headless: false
  navigation_timeout: 45s
notifier:
  kind: telegram
  telegram_token: from-yaml
  telegram_chat_id: 1
sources:
  - name: Blog
    origin: BLOG
    listing_url: https://blog.test/category/news/
    keywords: [beca]
`)
	t.Setenv("TELEGRAM_BOT_TOKEN", "from-env")
	t.Setenv("TELEGRAM_CHAT_ID", "-100200")
	t.Setenv("PORT", "9090")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "postgres://localhost/alerts", cfg.DatabaseURL)
	assert.Equal(t, "*/10 * * * *", cfg.Schedule)
	assert.False(t, cfg.ShouldRunOnStart())
	assert.Equal(t, EngineHTTP, cfg.Browser.Engine)
	assert.False(t, cfg.Browser.IsHeadless())
	assert.Equal(t, 45*time.Second, cfg.Browser.NavigationTimeout)
	assert.Equal(t, "9090", cfg.HTTP.Port)
	assert.Equal(t, "from-env", cfg.Notifier.TelegramToken)
	assert.Equal(t, int64(-100200), cfg.Notifier.TelegramChatID)
	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, []string{"beca"}, cfg.Sources[0].Keywords)
	assert.Equal(t, 5, cfg.Sources[0].Limit)
}

func TestLoad_InfersNotifierFromCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCORD_WEBHOOK_URL", "https://discord.test/api/webhooks/1/x")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, notifier.KindDiscord, cfg.Notifier.Kind)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
		want string
	}{
		{name: "telegram without chat", env: map[string]string{"NOTIFIER_KIND": "telegram", "TELEGRAM_BOT_TOKEN": "x"}, want: "TELEGRAM_CHAT_ID"},
		{name: "bad chat id", env: map[string]string{"TELEGRAM_CHAT_ID": "abc"}, want: "invalid TELEGRAM_CHAT_ID"},
		{name: "discord without webhook", env: map[string]string{"NOTIFIER_KIND": "discord"}, want: "DISCORD_WEBHOOK_URL"},
		{name: "unknown engine", env: map[string]string{"BROWSER_ENGINE": "lynx"}, want: "browser.engine"},
		{name: "source without url", yaml: "sources:\n  - name: x\n    origin: X\n", want: "sources[0]"},
		{name: "broken yaml", yaml: "schedule: [", want: "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := filepath.Join(t.TempDir(), "missing.yaml")
			if tt.yaml != "" {
				path = writeConfig(t, tt.yaml)
			}

			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
