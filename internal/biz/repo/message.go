package repo

import (
	"context"
	"time"

	"github.com/assetmatic/telegram-observer/internal/biz/domain"
)

// StoreStats are the row counts exposed by the status endpoint.
type StoreStats struct {
	Chats       int `json:"chats"`
	Users       int `json:"users"`
	Messages    int `json:"messages"`
	Unforwarded int `json:"unforwarded"`
}

// MessageStore is the durable message log. Every operation is a single
// auto-committed unit; correctness under concurrent callers relies on
// insert-or-ignore idempotency, not on cross-operation transactions.
type MessageStore interface {
	// LogMessage upserts the chat and sender (insert-if-absent, existing
	// rows are never overwritten) and inserts the message with
	// insert-or-ignore on (chat id, message id). Redelivery is a no-op.
	LogMessage(ctx context.Context, chat *domain.Chat, sender *domain.User, msg *domain.Message) error

	// MarkForwarded flips the forwarded flag, only if currently unset.
	MarkForwarded(ctx context.Context, chatID, messageID int64) error

	// UnforwardedSummary counts forwarded=false messages per chat,
	// largest count first.
	UnforwardedSummary(ctx context.Context) ([]domain.ChatCount, error)

	// MessagesSince returns messages with timestamp strictly after t,
	// joined with display fields, oldest first.
	MessagesSince(ctx context.Context, t time.Time) ([]domain.MessageRecord, error)

	// QueryMessages applies the conjunctive filter. An unresolvable chat
	// or sender reference yields an empty result, never an unfiltered
	// dump. Results are newest first, capped at the filter limit.
	QueryMessages(ctx context.Context, f *domain.QueryFilter) ([]domain.MessageRecord, error)

	// Stats reports table sizes.
	Stats(ctx context.Context) (StoreStats, error)

	Close() error
}
