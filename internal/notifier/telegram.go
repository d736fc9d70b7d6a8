package notifier

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"go-internship-alerts/internal/scraper"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Telegram limits photo captions to 1024 characters and messages to 4096.
const (
	captionLimit = 1024
	messageLimit = 4096
)

type Telegram struct {
	api     *tgbotapi.BotAPI
	chatID  int64
	footer  string
	limiter *rate.Limiter
	now     func() time.Time
	logger  *zap.Logger
}

func NewTelegram(token string, chatID int64, footer string, logger *zap.Logger) (*Telegram, error) {
	if token == "" || chatID == 0 {
		return nil, fmt.Errorf("telegram notifier needs a bot token and a chat id")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	return NewTelegramWithAPI(api, chatID, footer, logger), nil
}

// NewTelegramWithAPI wraps an existing client, e.g. one built with tgbotapi.NewBotAPIWithClient.
func NewTelegramWithAPI(api *tgbotapi.BotAPI, chatID int64, footer string, logger *zap.Logger) *Telegram {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Telegram{
		api:    api,
		chatID: chatID,
		footer: footerOrDefault(footer),
		// Telegram throttles bots that post more than about one message per second to a chat.
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		now:     time.Now,
		logger:  logger,
	}
}

// Send posts a photo card when the posting has an image and falls back to a text message.
func (t *Telegram) Send(ctx context.Context, p scraper.Posting) error {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🔗 Ver publicación", p.URL),
		),
	)

	if p.ImageURL != "" {
		if err := t.limiter.Wait(ctx); err != nil {
			return err
		}
		photo := tgbotapi.NewPhoto(t.chatID, tgbotapi.FileURL(p.ImageURL))
		photo.Caption = t.card(p, captionLimit)
		photo.ParseMode = tgbotapi.ModeHTML
		photo.ReplyMarkup = keyboard
		_, err := t.api.Send(photo)
		if err == nil {
			return nil
		}
		t.logger.Warn("⚠️ Telegram photo rejected, sending text instead",
			zap.String("url", p.URL), zap.String("image_url", p.ImageURL), zap.Error(err))
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, t.card(p, messageLimit))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = keyboard
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// card renders the HTML message within limit runes. Only the title is
// shortened, before escaping, so the markup always stays balanced.
func (t *Telegram) card(p scraper.Posting, limit int) string {
	title := p.Title
	for {
		out := t.render(p, title)
		over := utf8.RuneCountInString(out) - limit
		n := utf8.RuneCountInString(title)
		if over <= 0 || n <= 1 {
			return out
		}
		title = truncate(title, max(n-over, 1))
	}
}

func (t *Telegram) render(p scraper.Posting, title string) string {
	var b strings.Builder
	b.WriteString("📢 <b>¡Atención estudiantes!</b> Se ha detectado una nueva pasantía.\n\n")
	fmt.Fprintf(&b, "🎓 <a href=\"%s\">%s</a>\n", html.EscapeString(p.URL), html.EscapeString(title))
	fmt.Fprintf(&b, "🏛 %s\n", html.EscapeString(p.Origin))
	if !p.PublishedAt.IsZero() {
		fmt.Fprintf(&b, "📅 Publicado: %s\n", p.PublishedAt.Format("02/01/2006"))
	}
	fmt.Fprintf(&b, "🕒 Detectado: %s\n", t.now().Format("02/01/2006 15:04"))
	fmt.Fprintf(&b, "\n<i>%s</i>", html.EscapeString(t.footer))
	return b.String()
}

// truncate cuts s to at most limit runes.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= 1 {
		return "…"
	}
	return string(runes[:limit-1]) + "…"
}
