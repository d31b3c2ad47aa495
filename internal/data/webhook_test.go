package data

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetmatic/telegram-observer/internal/biz/domain"
)

func TestWebhookSendBatch(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewWebhook(srv.URL, "observer", nil)
	sink.now = func() time.Time { return time.Date(2025, 5, 14, 12, 0, 0, 0, time.UTC) }

	messages := []domain.MessageRecord{{
		Message: domain.Message{
			ChatID: 100, ID: 7,
			Timestamp: time.Date(2025, 5, 14, 11, 58, 0, 0, time.UTC),
			Text:      "see https://example.com",
			Media:     domain.MediaPhoto,
		},
		ChatTitle:  "Dev Chat",
		SenderName: "Ada",
	}}
	require.NoError(t, sink.SendBatch(context.Background(), "digest", messages))

	assert.NotEmpty(t, got.BatchID)
	assert.Equal(t, "observer", got.BotName)
	assert.Equal(t, "2025-05-14T12:00:00Z", got.TimestampUTC)
	assert.Equal(t, "digest", got.EventType)
	require.Len(t, got.Messages, 1)
	m := got.Messages[0]
	assert.Equal(t, int64(100), m.ChatID)
	assert.Equal(t, int64(7), m.MessageID)
	assert.Equal(t, "Dev Chat", m.Chat)
	assert.Equal(t, "Ada", m.Sender)
	assert.Equal(t, "photo", m.MediaType)
	assert.True(t, m.HasLinks)
}

func TestWebhookSendBatchRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	sink := NewWebhook(srv.URL, "observer", nil)
	err := sink.SendBatch(context.Background(), "digest", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestWebhookSendBatchUnreachableEndpoint(t *testing.T) {
	sink := NewWebhook("http://127.0.0.1:1/webhook", "observer", nil)
	assert.Error(t, sink.SendBatch(context.Background(), "digest", nil))
}
