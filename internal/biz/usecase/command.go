package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/assetmatic/telegram-observer/internal/biz/domain"
	"github.com/assetmatic/telegram-observer/internal/biz/repo"
)

const helpText = `Available commands:
/stop_forwarding — pause live notifications (messages are still logged)
/start_forwarding — resume notifications and report what was missed
/summary_today — AI summary of everything logged since UTC midnight
/monitor_add <id|@handle> — add a chat to the monitoring allowlist
/monitor_remove <id|@handle> — remove a chat from the allowlist
/monitor_list — show the allowlist
/monitor_clear — empty the allowlist (monitor everything again)
/notify_add <id|@handle> — add a notification recipient
/notify_remove <id|@handle> — remove a recipient
/notify_list — show all recipients
/query <question> — search logged messages in natural language
/help — this text`

// Commands interprets owner-issued slash commands. Non-owner messages and
// unrecognized owner text pass through untouched; a recognized command
// consumes its message entirely (no persistence, no notification).
type Commands struct {
	session  *domain.ForwardingSession
	store    repo.MessageStore
	monitors repo.MonitorRepo
	targets  repo.TargetRepo
	sender   repo.Sender
	ai       repo.AI // nil when no provider is configured
	sums     *Summaries
	ownerID  int64
	log      *slog.Logger
	now      func() time.Time
}

// NewCommands creates the command interpreter.
func NewCommands(
	session *domain.ForwardingSession,
	store repo.MessageStore,
	monitors repo.MonitorRepo,
	targets repo.TargetRepo,
	sender repo.Sender,
	ai repo.AI,
	sums *Summaries,
	ownerID int64,
	log *slog.Logger,
) *Commands {
	if log == nil {
		log = slog.Default()
	}
	return &Commands{
		session:  session,
		store:    store,
		monitors: monitors,
		targets:  targets,
		sender:   sender,
		ai:       ai,
		sums:     sums,
		ownerID:  ownerID,
		log:      log.With("component", "commands"),
		now:      time.Now,
	}
}

// Session exposes the forwarding switch the interpreter owns.
func (c *Commands) Session() *domain.ForwardingSession {
	return c.session
}

// Handle inspects the event and, when it is an owner command, executes it
// and replies in the originating chat. It returns true when the event was
// consumed and must not be persisted or fanned out.
func (c *Commands) Handle(ctx context.Context, ev *domain.InboundEvent) bool {
	if ev.Sender == nil || ev.Sender.ID != c.ownerID {
		return false
	}
	text := strings.TrimSpace(ev.Message.Text)
	if !strings.HasPrefix(text, "/") {
		return false
	}

	cmd, arg, _ := strings.Cut(text, " ")
	cmd = strings.ToLower(cmd)
	arg = strings.TrimSpace(arg)

	var reply string
	switch cmd {
	case "/stop_forwarding":
		reply = c.stopForwarding()
	case "/start_forwarding":
		reply = c.startForwarding(ctx)
	case "/summary_today":
		reply = c.summaryToday(ctx)
	case "/monitor_add":
		reply = c.monitorAdd(ctx, arg)
	case "/monitor_remove":
		reply = c.monitorRemove(ctx, arg)
	case "/monitor_list":
		reply = c.monitorList(ctx)
	case "/monitor_clear":
		reply = c.monitorClear(ctx)
	case "/notify_add":
		reply = c.notifyAdd(ctx, arg)
	case "/notify_remove":
		reply = c.notifyRemove(ctx, arg)
	case "/notify_list":
		reply = c.notifyList(ctx)
	case "/query":
		reply = c.query(ctx, arg)
	case "/help":
		reply = helpText
	default:
		// Unknown slash text from the owner is just a message.
		return false
	}

	c.log.Info("owner command handled", "command", cmd)
	c.reply(ctx, ev.Chat.ID, reply)
	return true
}

func (c *Commands) reply(ctx context.Context, chatID int64, text string) {
	if err := c.sender.Send(ctx, chatID, text); err != nil {
		c.log.Error("failed to send command reply", "chat_id", chatID, "error", err)
	}
}

func (c *Commands) stopForwarding() string {
	if !c.session.Stop() {
		return "Forwarding is already paused."
	}
	return "Forwarding paused. Messages will still be logged."
}

func (c *Commands) startForwarding(ctx context.Context) string {
	if !c.session.Start() {
		return "Forwarding is already active."
	}
	counts, err := c.store.UnforwardedSummary(ctx)
	if err != nil {
		c.log.Error("failed to build unforwarded summary", "error", err)
		return "Forwarding resumed. (Could not load the missed-message summary.)"
	}
	if len(counts) == 0 {
		return "Forwarding resumed. Nothing was missed."
	}
	var b strings.Builder
	b.WriteString("Forwarding resumed. Missed while paused:\n")
	for _, cc := range counts {
		fmt.Fprintf(&b, "• %s: %d\n", cc.Display, cc.Count)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (c *Commands) summaryToday(ctx context.Context) string {
	if !c.sums.Configured() {
		return "AI summarization is not configured."
	}
	midnight := c.now().UTC().Truncate(24 * time.Hour)
	// MessagesSince is strictly-after; step one second back so a message
	// timestamped exactly at midnight still counts as today's.
	records, err := c.store.MessagesSince(ctx, midnight.Add(-time.Second))
	if err != nil {
		c.log.Error("failed to load today's messages", "error", err)
		return "Could not load today's messages."
	}
	summary, err := c.sums.Summarize(ctx, records)
	if err != nil {
		return fmt.Sprintf("Summary failed: %v", err)
	}
	return summary
}

func (c *Commands) monitorAdd(ctx context.Context, ref string) string {
	if ref == "" {
		return "Usage: /monitor_add <id|@handle>"
	}
	peer, err := c.sender.Resolve(ctx, ref)
	if err != nil {
		if errors.Is(err, repo.ErrPeerNotFound) {
			return fmt.Sprintf("Could not resolve %q.", ref)
		}
		c.log.Error("failed to resolve monitor ref", "ref", ref, "error", err)
		return fmt.Sprintf("Could not resolve %q: %v", ref, err)
	}
	mc := domain.MonitoredChat{ChatID: peer.ID, Title: peer.Title, Username: peer.Username}
	if mc.Title == "" {
		mc.Title = peer.Name
	}
	if err := c.monitors.AddMonitoredChat(ctx, mc); err != nil {
		c.log.Error("failed to add monitored chat", "chat_id", peer.ID, "error", err)
		return "Database error, try again later."
	}
	return fmt.Sprintf("Now monitoring %s (id %d).", mc.DisplayName(), peer.ID)
}

func (c *Commands) monitorRemove(ctx context.Context, ref string) string {
	if ref == "" {
		return "Usage: /monitor_remove <id|@handle>"
	}
	chatID, ok := c.refToChatID(ctx, ref)
	if !ok {
		return fmt.Sprintf("Could not resolve %q.", ref)
	}
	removed, err := c.monitors.RemoveMonitoredChat(ctx, chatID)
	if err != nil {
		c.log.Error("failed to remove monitored chat", "chat_id", chatID, "error", err)
		return "Database error, try again later."
	}
	if !removed {
		return fmt.Sprintf("Chat %d is not in the monitoring list.", chatID)
	}
	return fmt.Sprintf("Stopped monitoring chat %d.", chatID)
}

func (c *Commands) monitorList(ctx context.Context) string {
	chats, err := c.monitors.ListMonitoredChats(ctx)
	if err != nil {
		c.log.Error("failed to list monitored chats", "error", err)
		return "Database error, try again later."
	}
	if len(chats) == 0 {
		return "Monitoring all chats (no allowlist set)."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Monitoring %d chat(s):\n", len(chats))
	for _, mc := range chats {
		fmt.Fprintf(&b, "• %s (id %d)\n", mc.DisplayName(), mc.ChatID)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (c *Commands) monitorClear(ctx context.Context) string {
	n, err := c.monitors.ClearMonitoredChats(ctx)
	if err != nil {
		c.log.Error("failed to clear monitored chats", "error", err)
		return "Database error, try again later."
	}
	return fmt.Sprintf("Cleared %d monitored chat(s). Monitoring all chats again.", n)
}

func (c *Commands) notifyAdd(ctx context.Context, ref string) string {
	if ref == "" {
		return "Usage: /notify_add <id|@handle>"
	}
	peer, err := c.sender.Resolve(ctx, ref)
	if err != nil {
		if errors.Is(err, repo.ErrPeerNotFound) {
			return fmt.Sprintf("Could not resolve %q.", ref)
		}
		c.log.Error("failed to resolve notify ref", "ref", ref, "error", err)
		return fmt.Sprintf("Could not resolve %q: %v", ref, err)
	}
	if peer.Kind != domain.ChatKindUser {
		return "Notification targets must be users, not chats."
	}
	if peer.ID == c.ownerID {
		return "The owner is always a notification target."
	}
	target := domain.NotificationTarget{UserID: peer.ID, Username: peer.Username, Name: peer.Name}
	if err := c.targets.AddTarget(ctx, target); err != nil {
		c.log.Error("failed to add notification target", "user_id", peer.ID, "error", err)
		return "Database error, try again later."
	}
	return fmt.Sprintf("Added %s (id %d) to notification targets.", target.DisplayName(), peer.ID)
}

func (c *Commands) notifyRemove(ctx context.Context, ref string) string {
	if ref == "" {
		return "Usage: /notify_remove <id|@handle>"
	}
	userID, ok := c.refToUserID(ctx, ref)
	if !ok {
		return fmt.Sprintf("Could not resolve %q.", ref)
	}
	if userID == c.ownerID {
		return "The owner cannot be removed from notification targets."
	}
	removed, err := c.targets.RemoveTarget(ctx, userID)
	if err != nil {
		c.log.Error("failed to remove notification target", "user_id", userID, "error", err)
		return "Database error, try again later."
	}
	if !removed {
		return fmt.Sprintf("User %d is not a notification target.", userID)
	}
	return fmt.Sprintf("Removed user %d from notification targets.", userID)
}

func (c *Commands) notifyList(ctx context.Context) string {
	targets, err := c.targets.ListTargets(ctx)
	if err != nil {
		c.log.Error("failed to list notification targets", "error", err)
		return "Database error, try again later."
	}
	if len(targets) == 0 {
		return "No notification targets registered."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d notification target(s):\n", len(targets))
	for _, t := range targets {
		owner := ""
		if t.IsOwner {
			owner = " (owner)"
		}
		fmt.Fprintf(&b, "• %s (id %d)%s\n", t.DisplayName(), t.UserID, owner)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (c *Commands) query(ctx context.Context, text string) string {
	if text == "" {
		return "Usage: /query <what are you looking for?>"
	}
	if c.ai == nil {
		return "AI query extraction is not configured."
	}
	filter, err := c.ai.ExtractFilters(ctx, text)
	if err != nil {
		c.log.Error("filter extraction failed", "error", err)
		return fmt.Sprintf("Could not understand the query: %v", err)
	}
	if filter == nil {
		return "Could not turn that into a search filter. Try rephrasing."
	}
	records, err := c.store.QueryMessages(ctx, filter)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidDate) {
			return fmt.Sprintf("Date %q in that query is not something I can search by. Use today, yesterday or YYYY-MM-DD.", filter.Date)
		}
		c.log.Error("query failed", "error", err)
		return "Database error, try again later."
	}
	return FormatQueryResults(filter, records)
}

// refToChatID resolves a monitor reference, preferring the transport but
// falling back to a literal id so stale chats stay removable offline.
func (c *Commands) refToChatID(ctx context.Context, ref string) (int64, bool) {
	if peer, err := c.sender.Resolve(ctx, ref); err == nil {
		return peer.ID, true
	}
	var id int64
	if _, err := fmt.Sscanf(ref, "%d", &id); err == nil {
		return id, true
	}
	return 0, false
}

func (c *Commands) refToUserID(ctx context.Context, ref string) (int64, bool) {
	return c.refToChatID(ctx, ref)
}
