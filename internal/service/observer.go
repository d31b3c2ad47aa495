// Package service ties the business layer to the running transports: the
// inbound observation pipeline and the periodic digest scheduler.
package service

import (
	"context"
	"log/slog"

	"github.com/assetmatic/telegram-observer/internal/biz/domain"
	"github.com/assetmatic/telegram-observer/internal/biz/repo"
	"github.com/assetmatic/telegram-observer/internal/biz/usecase"
)

// Observer is the inbound pipeline: scope check, command dispatch,
// persistence, then live fan-out while forwarding is on.
type Observer struct {
	source   repo.EventSource
	scope    *usecase.Scope
	commands *usecase.Commands
	notifier *usecase.Notifier
	store    repo.MessageStore
	log      *slog.Logger
}

// NewObserver wires the pipeline.
func NewObserver(
	source repo.EventSource,
	scope *usecase.Scope,
	commands *usecase.Commands,
	notifier *usecase.Notifier,
	store repo.MessageStore,
	log *slog.Logger,
) *Observer {
	if log == nil {
		log = slog.Default()
	}
	o := &Observer{
		source:   source,
		scope:    scope,
		commands: commands,
		notifier: notifier,
		store:    store,
		log:      log.With("component", "observer"),
	}
	source.OnEvent(o.handle)
	return o
}

// Run blocks on the event source until the context is cancelled.
func (o *Observer) Run(ctx context.Context) error {
	return o.source.Run(ctx)
}

// handle processes one inbound event. Stage failures are logged and never
// stop the stream; a broken digest or store must not kill observation.
func (o *Observer) handle(ctx context.Context, ev *domain.InboundEvent) {
	if !o.scope.ShouldProcess(ctx, ev.Chat.ID) {
		return
	}

	if o.commands.Handle(ctx, ev) {
		return
	}

	if err := o.store.LogMessage(ctx, &ev.Chat, ev.Sender, &ev.Message); err != nil {
		o.log.Error("failed to log message",
			"chat_id", ev.Chat.ID, "message_id", ev.Message.ID, "error", err)
		// The live copy still goes out; persistence and fan-out are
		// independent outcomes.
	}

	if o.commands.Session().Active() {
		o.notifier.Notify(ctx, ev.Record())
	}
}
