// Load envs from .env
// Load YAML config
// Override with env vars
// Provide default values
// Validate config

package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"go-internship-alerts/internal/notifier"
	"go-internship-alerts/internal/scraper/listing"
	"go-internship-alerts/internal/scraper/uader"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "configs/config.yaml"

const (
	EngineHTTP       = "http"
	EnginePlaywright = "playwright"
)

type Config struct {
	LogLevel    string `yaml:"log_level"`
	Development bool   `yaml:"development"`
	DatabaseURL string `yaml:"database_url"`
	Schedule    string `yaml:"schedule"`
	// RunOnStart is a pointer so an explicit false in YAML survives the default.
	RunOnStart *bool  `yaml:"run_on_start"`
	LockPath   string `yaml:"lock_path"`
	ReportDir  string `yaml:"report_dir"`

	HTTP      HTTP             `yaml:"http"`
	Browser   Browser          `yaml:"browser"`
	RateLimit RateLimit        `yaml:"rate_limit"`
	Notifier  notifier.Config  `yaml:"notifier"`
	Sources   []listing.Config `yaml:"sources"`
}

type HTTP struct {
	Port string `yaml:"port"`
}

type Browser struct {
	Engine            string        `yaml:"engine"`
	Headless          *bool         `yaml:"headless"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	UserAgent         string        `yaml:"user_agent"`
	CookiesPath       string        `yaml:"cookies_path"`
	ScreenshotDir     string        `yaml:"screenshot_dir"`
}

type RateLimit struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

func (c *Config) ShouldRunOnStart() bool {
	return c.RunOnStart == nil || *c.RunOnStart
}

func (b Browser) IsHeadless() bool {
	return b.Headless == nil || *b.Headless
}

// Load reads .env, then the YAML file at path (missing file means defaults),
// then environment overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Printf("⚠️ Could not read %s, using defaults: %v", path, err)
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad is Load for mains: CONFIG_PATH or the default path, fatal on error.
func MustLoad() *Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = DefaultPath
	}
	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	return cfg
}

func (c *Config) applyEnv() error {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.Schedule, "SCRAPE_SCHEDULE")
	setString(&c.HTTP.Port, "PORT")
	setString(&c.Browser.Engine, "BROWSER_ENGINE")
	setString(&c.Notifier.Kind, "NOTIFIER_KIND")
	setString(&c.Notifier.TelegramToken, "TELEGRAM_BOT_TOKEN")
	setString(&c.Notifier.DiscordWebhookURL, "DISCORD_WEBHOOK_URL")
	setString(&c.Notifier.DiscordRoleID, "DISCORD_ROLE_ID")

	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		c.Notifier.TelegramChatID = id
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = "data/internships.db"
	}
	if c.Schedule == "" {
		c.Schedule = "@every 30m"
	}
	if c.LockPath == "" {
		c.LockPath = "data/cycle.lock"
	}
	if c.ReportDir == "" {
		c.ReportDir = "logs"
	}
	if c.HTTP.Port == "" {
		c.HTTP.Port = "8080"
	}
	if c.Browser.Engine == "" {
		c.Browser.Engine = EnginePlaywright
	}
	c.Browser.Engine = strings.ToLower(c.Browser.Engine)
	if c.Browser.NavigationTimeout <= 0 {
		c.Browser.NavigationTimeout = 30 * time.Second
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 1
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 1
	}
	if c.Notifier.Kind == "" {
		c.Notifier.Kind = inferNotifier(c.Notifier)
	}
	c.Notifier.Kind = strings.ToLower(c.Notifier.Kind)

	if len(c.Sources) == 0 {
		c.Sources = []listing.Config{uader.DefaultConfig()}
	}
	for i := range c.Sources {
		if c.Sources[i].Limit <= 0 {
			c.Sources[i].Limit = listing.DefaultLimit
		}
	}
}

// inferNotifier picks the channel whose credentials are present.
func inferNotifier(n notifier.Config) string {
	switch {
	case n.DiscordWebhookURL != "":
		return notifier.KindDiscord
	case n.TelegramToken != "":
		return notifier.KindTelegram
	default:
		return notifier.KindNone
	}
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Browser.Engine {
	case EngineHTTP, EnginePlaywright:
	default:
		errs = append(errs, fmt.Errorf("browser.engine must be %q or %q, got %q", EngineHTTP, EnginePlaywright, c.Browser.Engine))
	}

	switch c.Notifier.Kind {
	case notifier.KindTelegram:
		if c.Notifier.TelegramToken == "" {
			errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN is required"))
		}
		if c.Notifier.TelegramChatID == 0 {
			errs = append(errs, errors.New("TELEGRAM_CHAT_ID is required"))
		}
	case notifier.KindDiscord:
		if c.Notifier.DiscordWebhookURL == "" {
			errs = append(errs, errors.New("DISCORD_WEBHOOK_URL is required"))
		}
	case notifier.KindNone:
	default:
		errs = append(errs, fmt.Errorf("unknown notifier kind %q", c.Notifier.Kind))
	}

	for i, s := range c.Sources {
		if s.Name == "" || s.Origin == "" || s.ListingURL == "" {
			errs = append(errs, fmt.Errorf("sources[%d] needs name, origin and listing_url", i))
		}
	}
	return errors.Join(errs...)
}
