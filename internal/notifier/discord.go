package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go-internship-alerts/internal/scraper"

	"go.uber.org/zap"
)

const embedColor = 0x00b0f4

// Discord posts to an incoming webhook.
type Discord struct {
	webhookURL string
	roleID     string
	footer     string
	client     *http.Client
	now        func() time.Time
	logger     *zap.Logger
}

type discordPayload struct {
	Content         string           `json:"content"`
	Embeds          []discordEmbed   `json:"embeds"`
	AllowedMentions *allowedMentions `json:"allowed_mentions,omitempty"`
}

type allowedMentions struct {
	Roles []string `json:"roles"`
}

type discordEmbed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	URL         string       `json:"url"`
	Color       int          `json:"color"`
	Timestamp   string       `json:"timestamp"`
	Footer      embedFooter  `json:"footer"`
	Image       *embedImage  `json:"image,omitempty"`
	Fields      []embedField `json:"fields,omitempty"`
}

type embedFooter struct {
	Text string `json:"text"`
}

type embedImage struct {
	URL string `json:"url"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// NewDiscord uses a 15s client when client is nil.
func NewDiscord(webhookURL, roleID, footer string, client *http.Client, logger *zap.Logger) (*Discord, error) {
	if webhookURL == "" {
		return nil, fmt.Errorf("discord notifier needs a webhook url")
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discord{
		webhookURL: webhookURL,
		roleID:     roleID,
		footer:     footerOrDefault(footer),
		client:     client,
		now:        time.Now,
		logger:     logger,
	}, nil
}

func (d *Discord) Send(ctx context.Context, p scraper.Posting) error {
	body, err := json.Marshal(d.payload(p))
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("discord webhook returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	d.logger.Debug("📨 Discord notification sent", zap.String("title", p.Title))
	return nil
}

func (d *Discord) payload(p scraper.Posting) discordPayload {
	mention := "¡Atención estudiantes!"
	var allowed *allowedMentions
	if d.roleID != "" {
		mention = fmt.Sprintf("<@&%s>", d.roleID)
		allowed = &allowedMentions{Roles: []string{d.roleID}}
	}

	embed := discordEmbed{
		Title:       "🎓 Nueva Oportunidad: " + p.Origin,
		Description: "**" + p.Title + "**",
		URL:         p.URL,
		Color:       embedColor,
		Timestamp:   d.now().UTC().Format(time.RFC3339),
		Footer:      embedFooter{Text: d.footer},
	}
	if !p.PublishedAt.IsZero() {
		embed.Fields = append(embed.Fields, embedField{
			Name:   "Publicado",
			Value:  p.PublishedAt.Format("02/01/2006"),
			Inline: true,
		})
	}
	if p.ImageURL != "" {
		embed.Image = &embedImage{URL: p.ImageURL}
	}

	return discordPayload{
		Content:         mention + " 📢 **¡Atención estudiantes!** Se ha detectado una nueva pasantía.",
		Embeds:          []discordEmbed{embed},
		AllowedMentions: allowed,
	}
}
