// Package telegram wraps the gotd MTProto client: authentication, the
// update dispatcher, peer caching for outbound sends, and FLOOD_WAIT
// detection. Everything leaving this package is plain data; tg.* types do
// not escape.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/tg"
	"golang.org/x/term"

	trm "github.com/assetmatic/telegram-observer/internal/pkg/term"
)

var (
	// ErrPeerNotFound is returned when a reference resolves to nothing
	// the client knows how to address.
	ErrPeerNotFound = errors.New("telegram peer not found")

	// floodWaitRegex extracts the wait seconds from an RPC error string.
	floodWaitRegex = regexp.MustCompile(`FLOOD_WAIT \((\d+)\)`)
)

// ParseFloodWait extracts the rate-limit wait duration from an error.
func ParseFloodWait(err error) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}
	m := floodWaitRegex.FindStringSubmatch(err.Error())
	if len(m) < 2 {
		return 0, false
	}
	seconds, convErr := strconv.Atoi(m[1])
	if convErr != nil {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}

// Config holds the MTProto client configuration.
type Config struct {
	APIID       int
	APIHash     string
	PhoneNumber string
	SessionPath string
}

// EventSender describes the sender of an inbound message, when known.
type EventSender struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
	Bot       bool
}

// EventEntity is one rich-text annotation, already reduced to plain data.
type EventEntity struct {
	Type   string
	Offset int
	Length int
	URL    string
}

// Event is one inbound message, translated out of the wire types.
type Event struct {
	ChatID       int64
	ChatKind     string // user, group or channel
	ChatTitle    string
	ChatUsername string

	Sender *EventSender // nil for anonymous posts

	MessageID int64
	Time      time.Time
	Text      string
	Entities  []EventEntity
	MediaKind string
	MediaInfo string
}

// ResolvedPeer is the result of resolving a human-readable reference.
type ResolvedPeer struct {
	ID        int64
	Kind      string // user, group or channel
	Title     string
	Username  string
	FirstName string
	LastName  string
	Bot       bool
}

type peerEntry struct {
	accessHash int64
	kind       string // user, chat or channel (raw transport spaces)
}

// Client is the gotd wrapper. Create with NewClient, then OnEvent, then
// Run; Send/Resolve work once Ready is closed.
type Client struct {
	cfg        Config
	client     *telegram.Client
	sender     *message.Sender
	isTerminal func(fd int) bool
	log        *slog.Logger

	handlerMu sync.RWMutex
	handler   func(ctx context.Context, ev *Event)

	peersMu sync.RWMutex
	peers   map[int64]peerEntry
	selfID  int64

	ready     chan struct{}
	readyOnce sync.Once
}

// NewClient builds the wrapper and registers its update handlers.
func NewClient(cfg Config, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	c := &Client{
		cfg:        cfg,
		isTerminal: func(fd int) bool { return term.IsTerminal(fd) },
		log:        log.With("component", "telegram"),
		peers:      make(map[int64]peerEntry),
		ready:      make(chan struct{}),
	}

	dispatcher := tg.NewUpdateDispatcher()
	dispatcher.OnNewMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewMessage) error {
		c.dispatch(ctx, e, u.Message)
		return nil
	})
	dispatcher.OnNewChannelMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewChannelMessage) error {
		c.dispatch(ctx, e, u.Message)
		return nil
	})

	c.client = telegram.NewClient(cfg.APIID, cfg.APIHash, telegram.Options{
		SessionStorage: &session.FileStorage{Path: cfg.SessionPath},
		UpdateHandler:  dispatcher,
	})
	c.sender = message.NewSender(c.client.API())
	return c
}

// OnEvent registers the inbound-message handler. Must be called before Run.
func (c *Client) OnEvent(handler func(ctx context.Context, ev *Event)) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.handler = handler
}

// Ready is closed once the client is authenticated and receiving updates.
func (c *Client) Ready() <-chan struct{} {
	return c.ready
}

// Run connects, authenticates (interactively on first launch) and blocks
// until the context is cancelled or the connection dies.
func (c *Client) Run(ctx context.Context) error {
	return c.client.Run(ctx, func(runCtx context.Context) error {
		// A dead or absent session surfaces on the first self lookup.
		if _, err := c.client.API().UsersGetUsers(runCtx, []tg.InputUserClass{&tg.InputUserSelf{}}); err != nil {
			if strings.Contains(err.Error(), "AUTH_KEY_UNREGISTERED") {
				c.log.Warn("session check failed, attempting interactive auth", "reason", "AUTH_KEY_UNREGISTERED")
			} else {
				c.log.Warn("session check failed, attempting interactive auth", "error", err)
			}
			if !c.isTerminal(int(os.Stdout.Fd())) {
				return fmt.Errorf("session is invalid and interactive auth needs a terminal: %w", err)
			}
			flow := auth.NewFlow(trm.NewTerminal(c.cfg.PhoneNumber), auth.SendCodeOptions{})
			if authErr := flow.Run(runCtx, c.client.Auth()); authErr != nil {
				return fmt.Errorf("interactive auth failed: %w", authErr)
			}
			c.log.Info("interactive auth successful, session saved")
		}

		self, err := c.client.Self(runCtx)
		if err != nil {
			return fmt.Errorf("failed to load self: %w", err)
		}
		c.peersMu.Lock()
		c.selfID = self.ID
		c.peers[self.ID] = peerEntry{accessHash: self.AccessHash, kind: "user"}
		c.peersMu.Unlock()
		c.log.Info("telegram client ready", "user_id", self.ID, "username", self.Username)

		c.readyOnce.Do(func() { close(c.ready) })
		<-runCtx.Done()
		return runCtx.Err()
	})
}

// Send delivers text to the peer with the given id. The peer must have
// been seen in an update or resolved before.
func (c *Client) Send(ctx context.Context, peerID int64, text string) error {
	peer := c.inputPeer(peerID)
	if peer == nil {
		return fmt.Errorf("%w: id %d", ErrPeerNotFound, peerID)
	}
	if _, err := c.sender.To(peer).Text(ctx, text); err != nil {
		return fmt.Errorf("failed to send to %d: %w", peerID, err)
	}
	return nil
}

// Resolve maps a numeric id or @handle to a peer. Handles go through
// contacts.resolveUsername; numeric ids are served from the peer cache.
func (c *Client) Resolve(ctx context.Context, ref string) (*ResolvedPeer, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrPeerNotFound
	}

	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		c.peersMu.RLock()
		entry, ok := c.peers[id]
		c.peersMu.RUnlock()
		if !ok {
			// An id the client has never seen cannot be addressed
			// anyway (no access hash), so resolution fails closed.
			return nil, fmt.Errorf("%w: id %d not seen yet", ErrPeerNotFound, id)
		}
		return &ResolvedPeer{ID: id, Kind: publicKind(entry.kind)}, nil
	}

	username := strings.TrimPrefix(ref, "@")
	res, err := c.client.API().ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{
		Username: username,
	})
	if err != nil {
		if strings.Contains(err.Error(), "USERNAME_NOT_OCCUPIED") || strings.Contains(err.Error(), "USERNAME_INVALID") {
			return nil, fmt.Errorf("%w: %s", ErrPeerNotFound, ref)
		}
		return nil, fmt.Errorf("failed to resolve %q: %w", ref, err)
	}

	for _, u := range res.Users {
		if user, ok := u.(*tg.User); ok {
			c.cacheUser(user)
			return &ResolvedPeer{
				ID:        user.ID,
				Kind:      "user",
				Username:  user.Username,
				FirstName: user.FirstName,
				LastName:  user.LastName,
				Bot:       user.Bot,
			}, nil
		}
	}
	for _, ch := range res.Chats {
		switch chat := ch.(type) {
		case *tg.Channel:
			c.cacheChannel(chat)
			kind := "channel"
			if chat.Megagroup {
				kind = "group"
			}
			return &ResolvedPeer{ID: chat.ID, Kind: kind, Title: chat.Title, Username: chat.Username}, nil
		case *tg.Chat:
			c.cacheChat(chat)
			return &ResolvedPeer{ID: chat.ID, Kind: "group", Title: chat.Title}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrPeerNotFound, ref)
}

// dispatch translates one raw update into an Event and hands it to the
// registered handler.
func (c *Client) dispatch(ctx context.Context, e tg.Entities, raw tg.MessageClass) {
	msg, ok := raw.(*tg.Message)
	if !ok {
		return
	}
	c.cacheEntities(e)

	c.handlerMu.RLock()
	handler := c.handler
	c.handlerMu.RUnlock()
	if handler == nil {
		return
	}

	ev := c.translate(e, msg)
	if ev == nil {
		return
	}
	handler(ctx, ev)
}

func (c *Client) translate(e tg.Entities, msg *tg.Message) *Event {
	ev := &Event{
		MessageID: int64(msg.ID),
		Time:      time.Unix(int64(msg.Date), 0).UTC(),
		Text:      msg.Message,
	}

	switch peer := msg.PeerID.(type) {
	case *tg.PeerUser:
		ev.ChatID = peer.UserID
		ev.ChatKind = "user"
		if u, ok := e.Users[peer.UserID]; ok {
			ev.ChatTitle = strings.TrimSpace(u.FirstName + " " + u.LastName)
			ev.ChatUsername = u.Username
		}
	case *tg.PeerChat:
		ev.ChatID = peer.ChatID
		ev.ChatKind = "group"
		if ch, ok := e.Chats[peer.ChatID]; ok {
			ev.ChatTitle = ch.Title
		}
	case *tg.PeerChannel:
		ev.ChatID = peer.ChannelID
		ev.ChatKind = "channel"
		if ch, ok := e.Channels[peer.ChannelID]; ok {
			ev.ChatTitle = ch.Title
			ev.ChatUsername = ch.Username
			if ch.Megagroup {
				ev.ChatKind = "group"
			}
		}
	default:
		return nil
	}

	ev.Sender = c.senderOf(e, msg, ev)
	ev.Entities = mapEntities(msg.Entities)
	ev.MediaKind, ev.MediaInfo = mapMedia(msg.Media)
	return ev
}

// senderOf works out who wrote the message. Direct messages carry no
// FromID: incoming ones come from the dialog partner, outgoing ones from
// the observed account itself. Channel broadcasts may have no sender at
// all.
func (c *Client) senderOf(e tg.Entities, msg *tg.Message, ev *Event) *EventSender {
	var senderID int64
	if from, ok := msg.FromID.(*tg.PeerUser); ok {
		senderID = from.UserID
	} else if ev.ChatKind == "user" {
		if msg.Out {
			c.peersMu.RLock()
			senderID = c.selfID
			c.peersMu.RUnlock()
		} else {
			senderID = ev.ChatID
		}
	}
	if senderID == 0 {
		return nil
	}
	s := &EventSender{ID: senderID}
	if u, ok := e.Users[senderID]; ok {
		s.Username = u.Username
		s.FirstName = u.FirstName
		s.LastName = u.LastName
		s.Bot = u.Bot
	}
	return s
}

func (c *Client) cacheEntities(e tg.Entities) {
	c.peersMu.Lock()
	defer c.peersMu.Unlock()
	for id, u := range e.Users {
		c.peers[id] = peerEntry{accessHash: u.AccessHash, kind: "user"}
	}
	for id := range e.Chats {
		c.peers[id] = peerEntry{kind: "chat"}
	}
	for id, ch := range e.Channels {
		c.peers[id] = peerEntry{accessHash: ch.AccessHash, kind: "channel"}
	}
}

func (c *Client) cacheUser(u *tg.User) {
	c.peersMu.Lock()
	defer c.peersMu.Unlock()
	c.peers[u.ID] = peerEntry{accessHash: u.AccessHash, kind: "user"}
}

func (c *Client) cacheChat(ch *tg.Chat) {
	c.peersMu.Lock()
	defer c.peersMu.Unlock()
	c.peers[ch.ID] = peerEntry{kind: "chat"}
}

func (c *Client) cacheChannel(ch *tg.Channel) {
	c.peersMu.Lock()
	defer c.peersMu.Unlock()
	c.peers[ch.ID] = peerEntry{accessHash: ch.AccessHash, kind: "channel"}
}

func (c *Client) inputPeer(id int64) tg.InputPeerClass {
	c.peersMu.RLock()
	entry, ok := c.peers[id]
	c.peersMu.RUnlock()
	if !ok {
		return nil
	}
	switch entry.kind {
	case "user":
		return &tg.InputPeerUser{UserID: id, AccessHash: entry.accessHash}
	case "chat":
		return &tg.InputPeerChat{ChatID: id}
	case "channel":
		return &tg.InputPeerChannel{ChannelID: id, AccessHash: entry.accessHash}
	}
	return nil
}

func publicKind(raw string) string {
	if raw == "chat" {
		return "group"
	}
	return raw
}

func mapEntities(entities []tg.MessageEntityClass) []EventEntity {
	var out []EventEntity
	for _, ent := range entities {
		switch e := ent.(type) {
		case *tg.MessageEntityURL:
			out = append(out, EventEntity{Type: "url", Offset: e.Offset, Length: e.Length})
		case *tg.MessageEntityTextURL:
			out = append(out, EventEntity{Type: "text_link", Offset: e.Offset, Length: e.Length, URL: e.URL})
		case *tg.MessageEntityMention:
			out = append(out, EventEntity{Type: "mention", Offset: e.Offset, Length: e.Length})
		case *tg.MessageEntityHashtag:
			out = append(out, EventEntity{Type: "hashtag", Offset: e.Offset, Length: e.Length})
		case *tg.MessageEntityBotCommand:
			out = append(out, EventEntity{Type: "bot_command", Offset: e.Offset, Length: e.Length})
		}
	}
	return out
}

func mapMedia(media tg.MessageMediaClass) (string, string) {
	switch m := media.(type) {
	case *tg.MessageMediaPhoto:
		info := map[string]any{}
		if photo, ok := m.GetPhoto(); ok {
			if p, ok := photo.(*tg.Photo); ok {
				info["id"] = p.ID
			}
		}
		return "photo", marshalInfo(info)
	case *tg.MessageMediaDocument:
		kind := "document"
		info := map[string]any{}
		if doc, ok := m.GetDocument(); ok {
			if d, ok := doc.(*tg.Document); ok {
				info["id"] = d.ID
				info["mime_type"] = d.MimeType
				info["size"] = d.Size
				for _, attr := range d.Attributes {
					switch a := attr.(type) {
					case *tg.DocumentAttributeVideo:
						kind = "video"
					case *tg.DocumentAttributeAudio:
						kind = "audio"
					case *tg.DocumentAttributeSticker:
						kind = "sticker"
					case *tg.DocumentAttributeFilename:
						info["file_name"] = a.FileName
					}
				}
			}
		}
		return kind, marshalInfo(info)
	case *tg.MessageMediaWebPage:
		info := map[string]any{}
		if wp, ok := m.Webpage.(*tg.WebPage); ok {
			info["url"] = wp.URL
			info["title"] = wp.Title
		}
		return "webpage", marshalInfo(info)
	}
	return "", ""
}

func marshalInfo(info map[string]any) string {
	if len(info) == 0 {
		return ""
	}
	raw, err := json.Marshal(info)
	if err != nil {
		return ""
	}
	return string(raw)
}
