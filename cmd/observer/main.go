package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/assetmatic/telegram-observer/internal/api"
	"github.com/assetmatic/telegram-observer/internal/biz/domain"
	"github.com/assetmatic/telegram-observer/internal/biz/repo"
	"github.com/assetmatic/telegram-observer/internal/biz/usecase"
	"github.com/assetmatic/telegram-observer/internal/conf"
	"github.com/assetmatic/telegram-observer/internal/data"
	tgclient "github.com/assetmatic/telegram-observer/internal/infra/telegram"
	"github.com/assetmatic/telegram-observer/internal/service"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("observer exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := conf.Load()
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}

	log := newLogger(cfg.LogLevel)
	slog.SetDefault(log)
	log.Info("starting observer", "bot_name", cfg.BotName)

	store, err := data.NewStore(cfg.Database.Path, log)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := store.SeedOwner(ctx, domain.NotificationTarget{UserID: cfg.Owner.ID, IsOwner: true}); err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	client := tgclient.NewClient(tgclient.Config{
		APIID:       cfg.Telegram.APIID,
		APIHash:     cfg.Telegram.APIHash,
		PhoneNumber: cfg.Telegram.PhoneNumber,
		SessionPath: cfg.Telegram.SessionFile,
	}, log)
	source := data.NewTelegramSource(client, log)

	// A nil backend means summarization and natural-language queries are
	// off; the typed-nil must not leak into the interface.
	var ai repo.AI
	if backend := data.NewOpenAIBackend(cfg.AI, log); backend != nil {
		ai = backend
		log.Info("AI backend configured", "model", cfg.AI.Model, "fallback", cfg.AI.HasFallback())
	} else {
		log.Warn("no AI provider configured, summaries and /query are disabled")
	}
	sums := usecase.NewSummaries(ai, log)

	session := domain.NewForwardingSession()
	scope := usecase.NewScope(store, log)
	notifier := usecase.NewNotifier(store, store, source, log)
	commands := usecase.NewCommands(session, store, store, store, source, ai, sums, cfg.Owner.ID, log)

	observer := service.NewObserver(source, scope, commands, notifier, store, log)
	sink := data.NewWebhook(cfg.Webhook.URL, cfg.BotName, log)
	scheduler := service.NewScheduler(
		store, store, source, sink, sums,
		time.Duration(cfg.Webhook.IntervalMinutes)*time.Minute, log,
	)
	statusAPI := api.NewServer(cfg, store, store, log)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return observer.Run(ctx) })
	g.Go(func() error { return scheduler.Run(ctx) })
	g.Go(func() error { return statusAPI.Run(ctx) })
	g.Go(func() error {
		seedInitialGroups(ctx, source, store, cfg.InitialGroups, log)
		return nil
	})

	return g.Wait()
}

// seedInitialGroups resolves the startup chat references once the client is
// authenticated and adds them to the allowlist. Unresolvable references are
// logged and skipped; they never abort startup.
func seedInitialGroups(ctx context.Context, source *data.TelegramSource, monitors repo.MonitorRepo, refs []string, log *slog.Logger) {
	if len(refs) == 0 {
		return
	}
	select {
	case <-ctx.Done():
		return
	case <-source.Ready():
	}

	for _, ref := range refs {
		peer, err := source.Resolve(ctx, ref)
		if err != nil {
			log.Warn("failed to resolve initial group, skipping", "ref", ref, "error", err)
			continue
		}
		title := peer.Title
		if title == "" {
			title = peer.Name
		}
		err = monitors.AddMonitoredChat(ctx, domain.MonitoredChat{
			ChatID:   peer.ID,
			Title:    title,
			Username: peer.Username,
		})
		if err != nil {
			log.Warn("failed to add initial group", "ref", ref, "error", err)
			continue
		}
		log.Info("monitoring initial group", "ref", ref, "chat_id", peer.ID)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
