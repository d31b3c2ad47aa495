package telegram

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/gotd/td/tg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFloodWait(t *testing.T) {
	wait, ok := ParseFloodWait(errors.New("rpc error code 420: FLOOD_WAIT (17)"))
	require.True(t, ok)
	assert.Equal(t, 17*time.Second, wait)

	_, ok = ParseFloodWait(errors.New("rpc error code 400: PEER_ID_INVALID"))
	assert.False(t, ok)

	_, ok = ParseFloodWait(nil)
	assert.False(t, ok)
}

func TestMapEntities(t *testing.T) {
	in := []tg.MessageEntityClass{
		&tg.MessageEntityURL{Offset: 0, Length: 19},
		&tg.MessageEntityTextURL{Offset: 20, Length: 4, URL: "https://hidden.test"},
		&tg.MessageEntityMention{Offset: 25, Length: 5},
		&tg.MessageEntityBold{Offset: 0, Length: 3},
	}
	out := mapEntities(in)
	require.Len(t, out, 3)
	assert.Equal(t, "url", out[0].Type)
	assert.Equal(t, "text_link", out[1].Type)
	assert.Equal(t, "https://hidden.test", out[1].URL)
	assert.Equal(t, "mention", out[2].Type)
}

func TestMapMediaDocumentKinds(t *testing.T) {
	video := &tg.MessageMediaDocument{}
	video.SetDocument(&tg.Document{
		ID: 1, MimeType: "video/mp4",
		Attributes: []tg.DocumentAttributeClass{&tg.DocumentAttributeVideo{}},
	})
	kind, info := mapMedia(video)
	assert.Equal(t, "video", kind)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(info), &decoded))
	assert.Equal(t, "video/mp4", decoded["mime_type"])

	sticker := &tg.MessageMediaDocument{}
	sticker.SetDocument(&tg.Document{
		ID:         2,
		Attributes: []tg.DocumentAttributeClass{&tg.DocumentAttributeSticker{}},
	})
	kind, _ = mapMedia(sticker)
	assert.Equal(t, "sticker", kind)

	plain := &tg.MessageMediaDocument{}
	plain.SetDocument(&tg.Document{
		ID:         3,
		Attributes: []tg.DocumentAttributeClass{&tg.DocumentAttributeFilename{FileName: "notes.pdf"}},
	})
	kind, info = mapMedia(plain)
	assert.Equal(t, "document", kind)
	require.NoError(t, json.Unmarshal([]byte(info), &decoded))
	assert.Equal(t, "notes.pdf", decoded["file_name"])
}

func TestMapMediaPhotoAndWebpage(t *testing.T) {
	photo := &tg.MessageMediaPhoto{}
	photo.SetPhoto(&tg.Photo{ID: 99})
	kind, info := mapMedia(photo)
	assert.Equal(t, "photo", kind)
	assert.NotEmpty(t, info)

	wp := &tg.MessageMediaWebPage{Webpage: &tg.WebPage{URL: "https://example.com", Title: "Example"}}
	kind, info = mapMedia(wp)
	assert.Equal(t, "webpage", kind)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(info), &decoded))
	assert.Equal(t, "https://example.com", decoded["url"])

	kind, info = mapMedia(nil)
	assert.Empty(t, kind)
	assert.Empty(t, info)
}

func TestPublicKind(t *testing.T) {
	assert.Equal(t, "group", publicKind("chat"))
	assert.Equal(t, "user", publicKind("user"))
	assert.Equal(t, "channel", publicKind("channel"))
}
