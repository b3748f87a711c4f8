package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/ryosukesatoh/ai-daily-brief/internal/brief"
	"github.com/ryosukesatoh/ai-daily-brief/internal/retry"
)

type discordEmbedFooter struct {
	Text string `json:"text"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbed struct {
	Title       string              `json:"title,omitempty"`
	URL         string              `json:"url,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Footer      *discordEmbedFooter `json:"footer,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

type discordWebhookPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

var (
	headingRe = regexp.MustCompile(`(?is)<h2[^>]*>(.*?)</h2>`)
	tagRe     = regexp.MustCompile(`<[^>]+>`)
)

// DiscordPublisher announces a new brief in a Discord channel via webhook.
type DiscordPublisher struct {
	webhookURL  string
	pageURL     string
	client      *http.Client
	retryConfig retry.Config
}

// NewDiscordPublisher creates a new DiscordPublisher. pageURL, if set, is
// linked from the announcement.
func NewDiscordPublisher(webhookURL, pageURL string) *DiscordPublisher {
	return &DiscordPublisher{
		webhookURL: webhookURL,
		pageURL:    pageURL,
		client:     &http.Client{Timeout: 30 * time.Second},
		retryConfig: retry.Config{
			MaxRetries: 3,
			BaseDelay:  1 * time.Second,
		},
	}
}

// Publish posts a single embed summarizing the brief.
func (d *DiscordPublisher) Publish(ctx context.Context, doc *brief.Document) error {
	embed := d.buildEmbed(doc)

	err := retry.WithBackoff(ctx, d.retryConfig, func(ctx context.Context) error {
		return d.sendWebhook(ctx, []discordEmbed{embed})
	})
	if err != nil {
		return fmt.Errorf("discord: %w", err)
	}
	return nil
}

func (d *DiscordPublisher) buildEmbed(doc *brief.Document) discordEmbed {
	e := discordEmbed{
		Title:       truncate("AI Daily Brief: "+doc.Window.EndDate(), 256),
		URL:         d.pageURL,
		Description: fmt.Sprintf("AI news from %s to %s.", doc.Window.StartDate(), doc.Window.EndDate()),
		Color:       0x38BDF8,
		Timestamp:   doc.GeneratedAt.Format(time.RFC3339),
	}

	if sections := sectionHeadings(doc.HTML); len(sections) > 0 {
		e.Fields = []discordEmbedField{
			{
				Name:  "Sections",
				Value: truncate(formatBullets(sections), 1024),
			},
		}
	}

	if doc.Model != "" {
		e.Footer = &discordEmbedFooter{Text: truncate(doc.Model, 2048)}
	}

	return e
}

// sectionHeadings returns the plain text of every <h2> in the brief.
func sectionHeadings(page string) []string {
	var out []string
	for _, m := range headingRe.FindAllStringSubmatch(page, -1) {
		text := strings.TrimSpace(html.UnescapeString(tagRe.ReplaceAllString(m[1], "")))
		if text != "" {
			out = append(out, strings.Join(strings.Fields(text), " "))
		}
	}
	return out
}

// sendWebhook posts embeds to the Discord webhook.
func (d *DiscordPublisher) sendWebhook(ctx context.Context, embeds []discordEmbed) error {
	payload := discordWebhookPayload{Embeds: embeds}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return nil
}

// truncate shortens s to max characters, preferring a sentence boundary.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}

	cut := string(runes[:max-1])
	if idx := strings.LastIndexAny(cut, ".!?"); idx > len(cut)/2 {
		return cut[:idx+1]
	}
	return cut + "…"
}

// formatBullets formats items as a bulleted list.
func formatBullets(items []string) string {
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("• ")
		b.WriteString(item)
	}
	return b.String()
}
