// Package domain holds the observer's core types: chats, users, messages
// and the filters and session state the pipeline operates on. Nothing here
// depends on storage or transport.
package domain

import (
	"fmt"
	"time"
)

// ChatKind classifies a chat: a direct dialog, a group or a broadcast
// channel.
type ChatKind string

const (
	ChatKindUser    ChatKind = "user"
	ChatKindGroup   ChatKind = "group"
	ChatKindChannel ChatKind = "channel"
)

// Chat is one conversation the observer has seen a message in.
type Chat struct {
	ID        int64
	Kind      ChatKind
	Title     string
	Username  string
	FirstSeen time.Time
}

// DisplayName returns the best human label for the chat.
func (c *Chat) DisplayName() string {
	if c.Title != "" {
		return c.Title
	}
	if c.Username != "" {
		return "@" + c.Username
	}
	return fmt.Sprintf("chat %d", c.ID)
}

// MonitoredChat is one allowlist entry. Title and Username are display
// caches refreshed on re-add; ChatID is the identity.
type MonitoredChat struct {
	ChatID   int64
	Title    string
	Username string
	AddedAt  time.Time
}

// DisplayName returns the best human label for the entry.
func (m *MonitoredChat) DisplayName() string {
	if m.Title != "" {
		return m.Title
	}
	if m.Username != "" {
		return "@" + m.Username
	}
	return fmt.Sprintf("chat %d", m.ChatID)
}

// ChatCount is a per-chat message count, as reported by the unforwarded
// backlog summary.
type ChatCount struct {
	ChatID  int64
	Display string
	Count   int
}
