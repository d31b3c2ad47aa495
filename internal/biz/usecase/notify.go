package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/assetmatic/telegram-observer/internal/biz/domain"
	"github.com/assetmatic/telegram-observer/internal/biz/repo"
)

// envelopeBodyLimit caps the quoted message body in a notification.
const envelopeBodyLimit = 500

// Notifier fans a message notification out to every registered target.
type Notifier struct {
	store   repo.MessageStore
	targets repo.TargetRepo
	sender  repo.Sender
	log     *slog.Logger
	sleep   func(ctx context.Context, d time.Duration)
}

// NewNotifier creates the fan-out engine.
func NewNotifier(store repo.MessageStore, targets repo.TargetRepo, sender repo.Sender, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{
		store:   store,
		targets: targets,
		sender:  sender,
		log:     log.With("component", "notifier"),
		sleep:   sleepCtx,
	}
}

// Notify formats one envelope and delivers it to every target. Failures are
// isolated per target: a blocked recipient or transport error never aborts
// the remaining sends, and a flood-wait pauses only the attempt that hit
// it. The message is marked forwarded iff at least one target got it.
func (n *Notifier) Notify(ctx context.Context, rec *domain.MessageRecord) {
	targets, err := n.targets.ListTargets(ctx)
	if err != nil {
		n.log.Error("failed to list notification targets", "error", err)
		return
	}
	if len(targets) == 0 {
		// The owner is seeded at startup, so an empty list means state
		// was tampered with; leave the message unforwarded and say so.
		n.log.Warn("no notification targets registered, message left unforwarded",
			"chat_id", rec.ChatID, "message_id", rec.ID)
		return
	}

	envelope := FormatEnvelope(rec)
	delivered := 0
	for _, t := range targets {
		if err := n.sender.Send(ctx, t.UserID, envelope); err != nil {
			if wait, ok := repo.AsFloodWait(err); ok {
				n.log.Warn("rate limited while notifying target, backing off",
					"target", t.UserID, "wait", wait)
				n.sleep(ctx, wait)
			} else {
				n.log.Warn("failed to notify target", "target", t.UserID, "error", err)
			}
			continue
		}
		delivered++
	}

	if delivered == 0 {
		n.log.Warn("notification reached no targets", "chat_id", rec.ChatID, "message_id", rec.ID)
		return
	}
	if err := n.store.MarkForwarded(ctx, rec.ChatID, rec.ID); err != nil {
		n.log.Error("failed to mark message forwarded", "chat_id", rec.ChatID,
			"message_id", rec.ID, "error", err)
	}
	n.log.Debug("notification delivered", "chat_id", rec.ChatID, "message_id", rec.ID,
		"targets", len(targets), "delivered", delivered)
}

// FormatEnvelope renders the notification text: sender, chat, content-type
// indicators and a truncated body.
func FormatEnvelope(rec *domain.MessageRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📨 %s in %s", rec.SenderDisplay(), rec.ChatDisplay())
	if rec.HasLinks() {
		b.WriteString(" 🔗")
	}
	if rec.Media != domain.MediaNone {
		fmt.Fprintf(&b, " [%s]", rec.Media)
	}
	b.WriteString("\n")

	body := rec.Text
	if body == "" && rec.Media != domain.MediaNone {
		body = fmt.Sprintf("(%s)", rec.Media)
	}
	if runes := []rune(body); len(runes) > envelopeBodyLimit {
		body = string(runes[:envelopeBodyLimit]) + "…"
	}
	b.WriteString(body)
	return b.String()
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
