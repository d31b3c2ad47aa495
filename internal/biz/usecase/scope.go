package usecase

import (
	"context"
	"log/slog"

	"github.com/assetmatic/telegram-observer/internal/biz/repo"
)

// Scope decides whether a chat is inside the active monitoring set.
type Scope struct {
	monitors repo.MonitorRepo
	log      *slog.Logger
}

// NewScope creates the monitoring-scope evaluator.
func NewScope(monitors repo.MonitorRepo, log *slog.Logger) *Scope {
	if log == nil {
		log = slog.Default()
	}
	return &Scope{monitors: monitors, log: log.With("component", "scope")}
}

// ShouldProcess reports whether messages from chatID are in scope: an empty
// allowlist monitors everything, otherwise membership decides. The set is
// read fresh on every call so allowlist changes apply to the very next
// message. On a store failure the message is processed anyway; losing
// observations over a transient read error is worse than over-capturing.
func (s *Scope) ShouldProcess(ctx context.Context, chatID int64) bool {
	n, err := s.monitors.MonitoredCount(ctx)
	if err != nil {
		s.log.Warn("monitor set unavailable, processing message anyway", "chat_id", chatID, "error", err)
		return true
	}
	if n == 0 {
		return true
	}
	ok, err := s.monitors.IsMonitored(ctx, chatID)
	if err != nil {
		s.log.Warn("monitor lookup failed, processing message anyway", "chat_id", chatID, "error", err)
		return true
	}
	return ok
}
