package data

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetmatic/telegram-observer/internal/biz/domain"
	tgclient "github.com/assetmatic/telegram-observer/internal/infra/telegram"
)

func TestToInboundEvent(t *testing.T) {
	ts := time.Date(2025, 5, 14, 9, 0, 0, 0, time.UTC)
	ev := &tgclient.Event{
		ChatID:       100,
		ChatKind:     "group",
		ChatTitle:    "Dev Chat",
		ChatUsername: "devchat",
		Sender:       &tgclient.EventSender{ID: 7, Username: "ada", FirstName: "Ada", Bot: false},
		MessageID:    55,
		Time:         ts,
		Text:         "release is out",
		Entities:     []tgclient.EventEntity{{Type: "url", Offset: 0, Length: 10}},
		MediaKind:    "photo",
		MediaInfo:    `{"id":1}`,
	}

	out := toInboundEvent(ev)

	assert.Equal(t, int64(100), out.Chat.ID)
	assert.Equal(t, domain.ChatKindGroup, out.Chat.Kind)
	assert.Equal(t, "Dev Chat", out.Chat.Title)

	require.NotNil(t, out.Sender)
	assert.Equal(t, int64(7), out.Sender.ID)
	assert.Equal(t, "ada", out.Sender.Username)

	assert.Equal(t, int64(55), out.Message.ID)
	assert.Equal(t, int64(7), out.Message.SenderID)
	assert.Equal(t, ts, out.Message.Timestamp)
	assert.Equal(t, domain.MediaPhoto, out.Message.Media)
	require.Len(t, out.Message.Entities, 1)
	assert.Equal(t, "url", out.Message.Entities[0].Type)
}

func TestToInboundEventAnonymous(t *testing.T) {
	out := toInboundEvent(&tgclient.Event{ChatID: 200, ChatKind: "channel", MessageID: 1})
	assert.Nil(t, out.Sender)
	assert.Zero(t, out.Message.SenderID)
	assert.Equal(t, domain.MediaNone, out.Message.Media)
}
