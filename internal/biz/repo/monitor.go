package repo

import (
	"context"

	"github.com/assetmatic/telegram-observer/internal/biz/domain"
)

// MonitorRepo holds the monitored-chat allowlist. An empty set means the
// observer processes every chat.
type MonitorRepo interface {
	// AddMonitoredChat inserts or refreshes an entry. The cached
	// title/username are overwritten on conflict, unlike chat rows.
	AddMonitoredChat(ctx context.Context, chat domain.MonitoredChat) error

	// RemoveMonitoredChat deletes an entry and reports whether it existed.
	RemoveMonitoredChat(ctx context.Context, chatID int64) (bool, error)

	ListMonitoredChats(ctx context.Context) ([]domain.MonitoredChat, error)

	// ClearMonitoredChats empties the set and returns the removed count.
	ClearMonitoredChats(ctx context.Context) (int64, error)

	// IsMonitored reports allowlist membership.
	IsMonitored(ctx context.Context, chatID int64) (bool, error)

	// MonitoredCount returns the allowlist size.
	MonitoredCount(ctx context.Context) (int, error)
}

// TargetRepo holds the notification-target set. Owner protection is
// enforced by the command interpreter, not here; the storage contract is
// plain CRUD with insert-or-ignore on the user id.
type TargetRepo interface {
	// SeedOwner inserts the owner row if absent. Called once at startup.
	SeedOwner(ctx context.Context, target domain.NotificationTarget) error

	// AddTarget inserts a target; re-adding an existing id is a no-op.
	AddTarget(ctx context.Context, target domain.NotificationTarget) error

	// RemoveTarget deletes a target and reports whether it existed.
	RemoveTarget(ctx context.Context, userID int64) (bool, error)

	ListTargets(ctx context.Context) ([]domain.NotificationTarget, error)
}
