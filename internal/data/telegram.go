package data

import (
	"context"
	"errors"
	"log/slog"

	"github.com/assetmatic/telegram-observer/internal/biz/domain"
	"github.com/assetmatic/telegram-observer/internal/biz/repo"
	tgclient "github.com/assetmatic/telegram-observer/internal/infra/telegram"
)

var (
	_ repo.EventSource = (*TelegramSource)(nil)
	_ repo.Sender      = (*TelegramSource)(nil)
)

// TelegramSource adapts the MTProto client to the event-source and sender
// contracts the business layer consumes.
type TelegramSource struct {
	client *tgclient.Client
	log    *slog.Logger
}

// NewTelegramSource wraps an already-constructed client.
func NewTelegramSource(client *tgclient.Client, log *slog.Logger) *TelegramSource {
	if log == nil {
		log = slog.Default()
	}
	return &TelegramSource{client: client, log: log.With("component", "telegram_source")}
}

// OnEvent registers the inbound handler, translating transport events into
// domain form before they cross the boundary.
func (s *TelegramSource) OnEvent(handler func(ctx context.Context, ev *domain.InboundEvent)) {
	s.client.OnEvent(func(ctx context.Context, ev *tgclient.Event) {
		handler(ctx, toInboundEvent(ev))
	})
}

// Run blocks on the underlying client loop.
func (s *TelegramSource) Run(ctx context.Context) error {
	return s.client.Run(ctx)
}

// Ready is closed once the underlying client is authenticated.
func (s *TelegramSource) Ready() <-chan struct{} {
	return s.client.Ready()
}

// Send delivers text, translating rate-limit errors into the wait-aware
// form the business layer understands.
func (s *TelegramSource) Send(ctx context.Context, peerID int64, text string) error {
	err := s.client.Send(ctx, peerID, text)
	if err == nil {
		return nil
	}
	if wait, ok := tgclient.ParseFloodWait(err); ok {
		return &repo.FloodWaitError{Duration: wait}
	}
	if errors.Is(err, tgclient.ErrPeerNotFound) {
		return repo.ErrPeerNotFound
	}
	return err
}

// Resolve maps an id or @handle onto a peer.
func (s *TelegramSource) Resolve(ctx context.Context, ref string) (*repo.Peer, error) {
	resolved, err := s.client.Resolve(ctx, ref)
	if err != nil {
		if errors.Is(err, tgclient.ErrPeerNotFound) {
			return nil, repo.ErrPeerNotFound
		}
		if wait, ok := tgclient.ParseFloodWait(err); ok {
			return nil, &repo.FloodWaitError{Duration: wait}
		}
		return nil, err
	}
	name := resolved.FirstName
	if resolved.LastName != "" {
		if name != "" {
			name += " "
		}
		name += resolved.LastName
	}
	return &repo.Peer{
		ID:       resolved.ID,
		Kind:     domain.ChatKind(resolved.Kind),
		Title:    resolved.Title,
		Username: resolved.Username,
		Name:     name,
		IsBot:    resolved.Bot,
	}, nil
}

func toInboundEvent(ev *tgclient.Event) *domain.InboundEvent {
	out := &domain.InboundEvent{
		Chat: domain.Chat{
			ID:        ev.ChatID,
			Kind:      domain.ChatKind(ev.ChatKind),
			Title:     ev.ChatTitle,
			Username:  ev.ChatUsername,
			FirstSeen: ev.Time,
		},
		Message: domain.Message{
			ChatID:    ev.ChatID,
			ID:        ev.MessageID,
			Timestamp: ev.Time,
			Text:      ev.Text,
			Media:     domain.ParseMediaKind(ev.MediaKind),
			MediaInfo: ev.MediaInfo,
		},
	}
	for _, ent := range ev.Entities {
		out.Message.Entities = append(out.Message.Entities, domain.Entity{
			Type:   ent.Type,
			Offset: ent.Offset,
			Length: ent.Length,
			URL:    ent.URL,
		})
	}
	if ev.Sender != nil {
		out.Sender = &domain.User{
			ID:        ev.Sender.ID,
			Username:  ev.Sender.Username,
			FirstName: ev.Sender.FirstName,
			LastName:  ev.Sender.LastName,
			IsBot:     ev.Sender.Bot,
			FirstSeen: ev.Time,
		}
		out.Message.SenderID = ev.Sender.ID
	}
	return out
}
