package service

import (
	"context"
	"time"

	"github.com/assetmatic/telegram-observer/internal/biz/domain"
	"github.com/assetmatic/telegram-observer/internal/biz/repo"
)

type mockStore struct {
	logged   []domain.Message
	logErr   error
	marked   [][2]int64
	since    []domain.MessageRecord
	sinceErr error
	sinceArg time.Time
	sinceFn  func(t time.Time) ([]domain.MessageRecord, error)
}

func (m *mockStore) LogMessage(_ context.Context, _ *domain.Chat, _ *domain.User, msg *domain.Message) error {
	if m.logErr != nil {
		return m.logErr
	}
	m.logged = append(m.logged, *msg)
	return nil
}

func (m *mockStore) MarkForwarded(_ context.Context, chatID, messageID int64) error {
	m.marked = append(m.marked, [2]int64{chatID, messageID})
	return nil
}

func (m *mockStore) UnforwardedSummary(context.Context) ([]domain.ChatCount, error) {
	return nil, nil
}

func (m *mockStore) MessagesSince(_ context.Context, t time.Time) ([]domain.MessageRecord, error) {
	m.sinceArg = t
	if m.sinceFn != nil {
		return m.sinceFn(t)
	}
	return m.since, m.sinceErr
}

func (m *mockStore) QueryMessages(context.Context, *domain.QueryFilter) ([]domain.MessageRecord, error) {
	return nil, nil
}

func (m *mockStore) Stats(context.Context) (repo.StoreStats, error) {
	return repo.StoreStats{}, nil
}

func (m *mockStore) Close() error { return nil }

type mockMonitors struct {
	members map[int64]bool
}

func (m *mockMonitors) AddMonitoredChat(context.Context, domain.MonitoredChat) error { return nil }

func (m *mockMonitors) RemoveMonitoredChat(context.Context, int64) (bool, error) { return false, nil }

func (m *mockMonitors) ListMonitoredChats(context.Context) ([]domain.MonitoredChat, error) {
	return nil, nil
}

func (m *mockMonitors) ClearMonitoredChats(context.Context) (int64, error) { return 0, nil }

func (m *mockMonitors) IsMonitored(_ context.Context, chatID int64) (bool, error) {
	return m.members[chatID], nil
}

func (m *mockMonitors) MonitoredCount(context.Context) (int, error) {
	return len(m.members), nil
}

type mockTargets struct {
	targets []domain.NotificationTarget
	listErr error
}

func (m *mockTargets) SeedOwner(context.Context, domain.NotificationTarget) error { return nil }

func (m *mockTargets) AddTarget(context.Context, domain.NotificationTarget) error { return nil }

func (m *mockTargets) RemoveTarget(context.Context, int64) (bool, error) { return false, nil }

func (m *mockTargets) ListTargets(context.Context) ([]domain.NotificationTarget, error) {
	return m.targets, m.listErr
}

type sentMessage struct {
	peerID int64
	text   string
}

type mockSender struct {
	sent     []sentMessage
	sendErrs map[int64]error
}

func (m *mockSender) Send(_ context.Context, peerID int64, text string) error {
	if err := m.sendErrs[peerID]; err != nil {
		return err
	}
	m.sent = append(m.sent, sentMessage{peerID, text})
	return nil
}

func (m *mockSender) Resolve(context.Context, string) (*repo.Peer, error) {
	return nil, repo.ErrPeerNotFound
}

type mockAI struct {
	summarizeFn func(prompt string) (string, error)
}

func (m *mockAI) Summarize(_ context.Context, prompt string) (string, error) {
	if m.summarizeFn != nil {
		return m.summarizeFn(prompt)
	}
	return "summary", nil
}

func (m *mockAI) ExtractFilters(context.Context, string) (*domain.QueryFilter, error) {
	return nil, nil
}

type sinkCall struct {
	eventType string
	messages  []domain.MessageRecord
}

type mockSink struct {
	calls []sinkCall
	err   error
}

func (m *mockSink) SendBatch(_ context.Context, eventType string, messages []domain.MessageRecord) error {
	if m.err != nil {
		return m.err
	}
	m.calls = append(m.calls, sinkCall{eventType, messages})
	return nil
}

// mockSource captures the registered handler so tests can feed events in.
type mockSource struct {
	handler func(ctx context.Context, ev *domain.InboundEvent)
}

func (m *mockSource) OnEvent(handler func(ctx context.Context, ev *domain.InboundEvent)) {
	m.handler = handler
}

func (m *mockSource) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}
