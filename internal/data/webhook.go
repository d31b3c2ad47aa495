package data

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/assetmatic/telegram-observer/internal/biz/domain"
	"github.com/assetmatic/telegram-observer/internal/biz/repo"
)

var _ repo.WebhookSink = (*Webhook)(nil)

// Webhook posts message batches as JSON to a fixed endpoint.
type Webhook struct {
	url     string
	botName string
	client  *http.Client
	log     *slog.Logger
	now     func() time.Time
}

// NewWebhook builds the sink. The HTTP client caps connects at 5s and the
// whole request at 10s so a dead endpoint cannot stall a digest cycle.
func NewWebhook(url, botName string, log *slog.Logger) *Webhook {
	if log == nil {
		log = slog.Default()
	}
	return &Webhook{
		url:     url,
		botName: botName,
		client: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
			},
		},
		log: log.With("component", "webhook"),
		now: time.Now,
	}
}

type webhookMessage struct {
	ChatID    int64  `json:"chat_id"`
	MessageID int64  `json:"message_id"`
	Chat      string `json:"chat"`
	Sender    string `json:"sender"`
	SenderBot bool   `json:"sender_is_bot"`
	Timestamp string `json:"timestamp"`
	Text      string `json:"text,omitempty"`
	MediaType string `json:"media_type,omitempty"`
	HasLinks  bool   `json:"has_links,omitempty"`
}

type webhookPayload struct {
	BatchID      string           `json:"batch_id"`
	BotName      string           `json:"bot_name"`
	TimestampUTC string           `json:"timestamp_utc"`
	EventType    string           `json:"event_type"`
	Messages     []webhookMessage `json:"messages"`
}

// SendBatch posts the batch. Non-2xx responses are errors.
func (w *Webhook) SendBatch(ctx context.Context, eventType string, messages []domain.MessageRecord) error {
	payload := webhookPayload{
		BatchID:      uuid.NewString(),
		BotName:      w.botName,
		TimestampUTC: w.now().UTC().Format(time.RFC3339),
		EventType:    eventType,
		Messages:     make([]webhookMessage, 0, len(messages)),
	}
	for i := range messages {
		rec := &messages[i]
		payload.Messages = append(payload.Messages, webhookMessage{
			ChatID:    rec.ChatID,
			MessageID: rec.ID,
			Chat:      rec.ChatDisplay(),
			Sender:    rec.SenderDisplay(),
			SenderBot: rec.SenderIsBot,
			Timestamp: rec.Timestamp.UTC().Format(time.RFC3339),
			Text:      rec.Text,
			MediaType: string(rec.Media),
			HasLinks:  rec.HasLinks(),
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(snippet))
	}

	w.log.Info("webhook batch sent", "event_type", eventType, "batch_id", payload.BatchID, "messages", len(messages))
	return nil
}
