// Deliver newly persisted postings to a chat channel

package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-internship-alerts/internal/scraper"

	"go.uber.org/zap"
)

// ErrDisabled is returned by the Disabled notifier so callers still record a failed attempt.
var ErrDisabled = errors.New("notifier disabled")

// Notifier announces one posting. A nil error means the channel accepted it.
type Notifier interface {
	Send(ctx context.Context, p scraper.Posting) error
}

const (
	KindTelegram = "telegram"
	KindDiscord  = "discord"
	KindNone     = "none"
)

const defaultFooter = "Bot de Pasantías • UADER FCyT"

type Config struct {
	Kind              string `yaml:"kind"`
	TelegramToken     string `yaml:"telegram_token"`
	TelegramChatID    int64  `yaml:"telegram_chat_id"`
	DiscordWebhookURL string `yaml:"discord_webhook_url"`
	DiscordRoleID     string `yaml:"discord_role_id"`
	Footer            string `yaml:"footer"`
}

// New builds the notifier selected by cfg.Kind.
func New(cfg Config, logger *zap.Logger) (Notifier, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case KindTelegram:
		tg, err := NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, cfg.Footer, logger)
		if err != nil {
			return nil, err
		}
		return tg, nil
	case KindDiscord:
		d, err := NewDiscord(cfg.DiscordWebhookURL, cfg.DiscordRoleID, cfg.Footer, nil, logger)
		if err != nil {
			return nil, err
		}
		return d, nil
	case KindNone, "":
		return Disabled{}, nil
	default:
		return nil, fmt.Errorf("unknown notifier kind %q", cfg.Kind)
	}
}

// Disabled drops every posting.
type Disabled struct{}

func (Disabled) Send(context.Context, scraper.Posting) error {
	return ErrDisabled
}

func footerOrDefault(footer string) string {
	if strings.TrimSpace(footer) == "" {
		return defaultFooter
	}
	return footer
}
