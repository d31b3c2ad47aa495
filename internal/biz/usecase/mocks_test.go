package usecase

import (
	"context"
	"time"

	"github.com/assetmatic/telegram-observer/internal/biz/domain"
	"github.com/assetmatic/telegram-observer/internal/biz/repo"
)

type markedKey struct {
	chatID, messageID int64
}

type mockStore struct {
	logged         []domain.Message
	logErr         error
	marked         []markedKey
	markErr        error
	unforwarded    []domain.ChatCount
	unforwardedErr error
	since          []domain.MessageRecord
	sinceErr       error
	sinceArg       time.Time
	queryRecords   []domain.MessageRecord
	queryErr       error
	lastFilter     *domain.QueryFilter
}

func (m *mockStore) LogMessage(_ context.Context, _ *domain.Chat, _ *domain.User, msg *domain.Message) error {
	if m.logErr != nil {
		return m.logErr
	}
	m.logged = append(m.logged, *msg)
	return nil
}

func (m *mockStore) MarkForwarded(_ context.Context, chatID, messageID int64) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.marked = append(m.marked, markedKey{chatID, messageID})
	return nil
}

func (m *mockStore) UnforwardedSummary(context.Context) ([]domain.ChatCount, error) {
	return m.unforwarded, m.unforwardedErr
}

func (m *mockStore) MessagesSince(_ context.Context, t time.Time) ([]domain.MessageRecord, error) {
	m.sinceArg = t
	return m.since, m.sinceErr
}

func (m *mockStore) QueryMessages(_ context.Context, f *domain.QueryFilter) ([]domain.MessageRecord, error) {
	m.lastFilter = f
	return m.queryRecords, m.queryErr
}

func (m *mockStore) Stats(context.Context) (repo.StoreStats, error) {
	return repo.StoreStats{}, nil
}

func (m *mockStore) Close() error { return nil }

type mockMonitors struct {
	members  map[int64]bool
	countErr error
	isErr    error
	added    []domain.MonitoredChat
	addErr   error
	removed  []int64
	existed  bool
	clearN   int64
	listErr  error
}

func (m *mockMonitors) AddMonitoredChat(_ context.Context, chat domain.MonitoredChat) error {
	if m.addErr != nil {
		return m.addErr
	}
	m.added = append(m.added, chat)
	return nil
}

func (m *mockMonitors) RemoveMonitoredChat(_ context.Context, chatID int64) (bool, error) {
	m.removed = append(m.removed, chatID)
	return m.existed, nil
}

func (m *mockMonitors) ListMonitoredChats(context.Context) ([]domain.MonitoredChat, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.MonitoredChat
	for id := range m.members {
		out = append(out, domain.MonitoredChat{ChatID: id})
	}
	return out, nil
}

func (m *mockMonitors) ClearMonitoredChats(context.Context) (int64, error) {
	return m.clearN, nil
}

func (m *mockMonitors) IsMonitored(_ context.Context, chatID int64) (bool, error) {
	if m.isErr != nil {
		return false, m.isErr
	}
	return m.members[chatID], nil
}

func (m *mockMonitors) MonitoredCount(context.Context) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return len(m.members), nil
}

type mockTargets struct {
	targets []domain.NotificationTarget
	listErr error
	added   []domain.NotificationTarget
	removed []int64
	existed bool
}

func (m *mockTargets) SeedOwner(_ context.Context, target domain.NotificationTarget) error {
	m.targets = append(m.targets, target)
	return nil
}

func (m *mockTargets) AddTarget(_ context.Context, target domain.NotificationTarget) error {
	m.added = append(m.added, target)
	return nil
}

func (m *mockTargets) RemoveTarget(_ context.Context, userID int64) (bool, error) {
	m.removed = append(m.removed, userID)
	return m.existed, nil
}

func (m *mockTargets) ListTargets(context.Context) ([]domain.NotificationTarget, error) {
	return m.targets, m.listErr
}

type sentMessage struct {
	peerID int64
	text   string
}

type mockSender struct {
	sent      []sentMessage
	sendErrs  map[int64]error
	resolveFn func(ref string) (*repo.Peer, error)
}

func (m *mockSender) Send(_ context.Context, peerID int64, text string) error {
	if err := m.sendErrs[peerID]; err != nil {
		return err
	}
	m.sent = append(m.sent, sentMessage{peerID, text})
	return nil
}

func (m *mockSender) Resolve(_ context.Context, ref string) (*repo.Peer, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ref)
	}
	return nil, repo.ErrPeerNotFound
}

type mockAI struct {
	summarizeFn func(prompt string) (string, error)
	extractFn   func(query string) (*domain.QueryFilter, error)
}

func (m *mockAI) Summarize(_ context.Context, prompt string) (string, error) {
	if m.summarizeFn != nil {
		return m.summarizeFn(prompt)
	}
	return "summary", nil
}

func (m *mockAI) ExtractFilters(_ context.Context, query string) (*domain.QueryFilter, error) {
	if m.extractFn != nil {
		return m.extractFn(query)
	}
	return nil, nil
}
