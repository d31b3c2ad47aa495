package domain

import (
	"regexp"
	"time"
)

// MediaKind is the closed set of media types the core understands. The
// transport adapter translates platform media objects into one of these at
// the boundary; nothing downstream inspects transport types.
type MediaKind string

const (
	MediaNone     MediaKind = ""
	MediaPhoto    MediaKind = "photo"
	MediaDocument MediaKind = "document"
	MediaVideo    MediaKind = "video"
	MediaAudio    MediaKind = "audio"
	MediaSticker  MediaKind = "sticker"
	MediaWebPage  MediaKind = "webpage"
)

// ParseMediaKind maps a string onto the closed variant, MediaNone for
// anything unknown.
func ParseMediaKind(s string) MediaKind {
	switch MediaKind(s) {
	case MediaPhoto, MediaDocument, MediaVideo, MediaAudio, MediaSticker, MediaWebPage:
		return MediaKind(s)
	}
	return MediaNone
}

// Entity is one rich-text annotation inside a message (link, mention, ...).
type Entity struct {
	Type   string `json:"type"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
	URL    string `json:"url,omitempty"`
}

// IsLink reports whether the entity carries a URL.
func (e Entity) IsLink() bool {
	return e.Type == "url" || e.Type == "text_link"
}

// Message is one observed message. Identity is (ChatID, ID); the upstream
// source may redeliver, so ingestion is insert-or-ignore on that pair.
// SenderID is 0 for anonymous posts (channels have no sender).
type Message struct {
	ChatID    int64
	ID        int64
	SenderID  int64
	Timestamp time.Time
	Text      string
	Entities  []Entity
	Media     MediaKind
	MediaInfo string // serialized media descriptor, opaque to the core
	Forwarded bool
}

var urlPattern = regexp.MustCompile(`https?://[^\s<>"]+`)

// HasLinks reports whether the message carries a URL, either in an entity
// or in plain text.
func (m *Message) HasLinks() bool {
	for _, e := range m.Entities {
		if e.IsLink() {
			return true
		}
	}
	return urlPattern.MatchString(m.Text)
}

// Links collects every distinct URL in the message, entity URLs first.
func (m *Message) Links() []string {
	seen := make(map[string]struct{})
	var links []string
	add := func(u string) {
		if u == "" {
			return
		}
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		links = append(links, u)
	}
	for _, e := range m.Entities {
		if e.Type == "text_link" {
			add(e.URL)
		}
	}
	for _, u := range urlPattern.FindAllString(m.Text, -1) {
		add(u)
	}
	return links
}

// MessageRecord is a stored message joined with chat/sender display fields,
// as returned by history and query reads.
type MessageRecord struct {
	Message
	ChatTitle      string
	ChatUsername   string
	SenderName     string
	SenderUsername string
	SenderIsBot    bool
}

// ChatDisplay returns the best label for the record's chat.
func (r *MessageRecord) ChatDisplay() string {
	if r.ChatTitle != "" {
		return r.ChatTitle
	}
	if r.ChatUsername != "" {
		return "@" + r.ChatUsername
	}
	c := Chat{ID: r.ChatID}
	return c.DisplayName()
}

// SenderDisplay returns the best label for the record's sender, or
// "anonymous" when the message has none.
func (r *MessageRecord) SenderDisplay() string {
	if r.SenderName != "" {
		return r.SenderName
	}
	if r.SenderUsername != "" {
		return "@" + r.SenderUsername
	}
	if r.SenderID == 0 {
		return "anonymous"
	}
	u := User{ID: r.SenderID}
	return u.DisplayName()
}

// InboundEvent is one new-message event as delivered by the transport
// adapter: the chat, the (possibly absent) sender, and the message itself,
// already translated to plain data.
type InboundEvent struct {
	Chat    Chat
	Sender  *User // nil for anonymous channel posts
	Message Message
}

// Record builds a MessageRecord from the live event, for feeding the
// fan-out formatter without a read back from the store.
func (ev *InboundEvent) Record() *MessageRecord {
	rec := &MessageRecord{
		Message:      ev.Message,
		ChatTitle:    ev.Chat.Title,
		ChatUsername: ev.Chat.Username,
	}
	if ev.Sender != nil {
		rec.SenderName = ev.Sender.DisplayName()
		rec.SenderUsername = ev.Sender.Username
		rec.SenderIsBot = ev.Sender.IsBot
	}
	return rec
}
