package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/assetmatic/telegram-observer/internal/biz/repo"
	"github.com/assetmatic/telegram-observer/internal/biz/usecase"
)

// panicCooldown delays the next cycle after a panicking one, so a
// persistently broken cycle cannot spin hot.
const panicCooldown = time.Minute

// Scheduler runs the periodic digest: every interval it reads the messages
// logged since the previous cycle, summarizes them, delivers the summary to
// all notification targets and posts the batch to the webhook.
//
// The checkpoint is the cycle boundary and lives in memory only; a restart
// starts a fresh window at launch time. It advances every cycle once the
// window has been read, whether or not summarization or delivery succeeded,
// so a failing AI provider cannot grow the window without bound.
type Scheduler struct {
	store    repo.MessageStore
	targets  repo.TargetRepo
	sender   repo.Sender
	sink     repo.WebhookSink
	sums     *usecase.Summaries
	interval time.Duration
	log      *slog.Logger
	clock    func() time.Time
}

// NewScheduler wires the digest loop.
func NewScheduler(
	store repo.MessageStore,
	targets repo.TargetRepo,
	sender repo.Sender,
	sink repo.WebhookSink,
	sums *usecase.Summaries,
	interval time.Duration,
	log *slog.Logger,
) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		store:    store,
		targets:  targets,
		sender:   sender,
		sink:     sink,
		sums:     sums,
		interval: interval,
		log:      log.With("component", "scheduler"),
		clock:    time.Now,
	}
}

// Run blocks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("digest interval must be positive, got %s", s.interval)
	}

	checkpoint := s.clock()
	s.log.Info("digest scheduler started", "interval", s.interval)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("digest scheduler stopped")
			return ctx.Err()
		case <-time.After(s.interval):
		}

		next, ok := s.cycle(ctx, checkpoint)
		if ok {
			checkpoint = next
		}
	}
}

// cycle runs one digest pass. It returns the new checkpoint and whether the
// checkpoint should advance; only a failed window read holds it back.
func (s *Scheduler) cycle(ctx context.Context, checkpoint time.Time) (next time.Time, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("digest cycle panicked", "panic", r)
			next, ok = checkpoint, false
			// Let the world settle before the next attempt.
			select {
			case <-ctx.Done():
			case <-time.After(panicCooldown):
			}
		}
	}()

	snapshot := s.clock()
	records, err := s.store.MessagesSince(ctx, checkpoint)
	if err != nil {
		s.log.Error("failed to read digest window", "since", checkpoint, "error", err)
		return checkpoint, false
	}

	if len(records) == 0 {
		s.log.Debug("digest window empty", "since", checkpoint)
		return snapshot, true
	}
	s.log.Info("digest cycle", "since", checkpoint, "messages", len(records))

	if s.sums.Configured() {
		summary, err := s.sums.Summarize(ctx, records)
		if err != nil {
			s.log.Error("summarization failed", "error", err)
		} else {
			s.deliverSummary(ctx, summary, len(records))
		}
	}

	if s.sink != nil {
		if err := s.sink.SendBatch(ctx, "digest", records); err != nil {
			s.log.Error("webhook batch failed", "error", err)
		}
	}

	return snapshot, true
}

// deliverSummary sends the summary text to every notification target. A
// failing target is logged and skipped; the rest still get their copy.
func (s *Scheduler) deliverSummary(ctx context.Context, summary string, count int) {
	targets, err := s.targets.ListTargets(ctx)
	if err != nil {
		s.log.Error("failed to list notification targets", "error", err)
		return
	}
	text := fmt.Sprintf("📋 Digest of %d message(s):\n\n%s", count, summary)
	for _, t := range targets {
		if err := s.sender.Send(ctx, t.UserID, text); err != nil {
			s.log.Warn("failed to deliver digest", "target", t.UserID, "error", err)
		}
	}
}
