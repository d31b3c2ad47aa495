package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/assetmatic/telegram-observer/internal/biz/domain"
	"github.com/assetmatic/telegram-observer/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// Store is the sqlite-backed implementation of the message log, the
// monitored-chat allowlist and the notification-target set.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

var (
	_ repo.MessageStore = (*Store)(nil)
	_ repo.MonitorRepo  = (*Store)(nil)
	_ repo.TargetRepo   = (*Store)(nil)
)

// NewStore opens (creating if needed) the database at dbPath and ensures
// the schema.
func NewStore(dbPath string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to init schema: %w", err)
		}
	}

	log.Info("database initialized", "path", dbPath)
	return &Store{db: db, log: log.With("component", "store")}, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS chats (
		chat_id    INTEGER PRIMARY KEY,
		type       TEXT NOT NULL,
		title      TEXT,
		username   TEXT UNIQUE,
		first_seen INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		user_id    INTEGER PRIMARY KEY,
		username   TEXT UNIQUE,
		first_name TEXT,
		last_name  TEXT,
		is_bot     INTEGER NOT NULL DEFAULT 0,
		first_seen INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		message_id        INTEGER NOT NULL,
		chat_id           INTEGER NOT NULL,
		sender_id         INTEGER,
		timestamp         INTEGER NOT NULL,
		text              TEXT,
		entities          TEXT,
		media_type        TEXT,
		media_info        TEXT,
		forwarded_to_user INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (chat_id, message_id),
		FOREIGN KEY (chat_id) REFERENCES chats(chat_id) ON DELETE CASCADE,
		FOREIGN KEY (sender_id) REFERENCES users(user_id) ON DELETE SET NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_forwarded ON messages(forwarded_to_user)`,
	`CREATE TABLE IF NOT EXISTS monitored_chats (
		chat_id  INTEGER PRIMARY KEY,
		title    TEXT,
		username TEXT,
		added_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS notification_targets (
		user_id  INTEGER PRIMARY KEY,
		username TEXT,
		name     TEXT,
		is_owner INTEGER NOT NULL DEFAULT 0,
		added_at INTEGER NOT NULL
	)`,
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ========== Message log ==========

// LogMessage upserts the chat and sender, then records the message.
// Chat/user rows are insert-if-absent: first-seen wins, later title or
// handle drift is not tracked. The message insert ignores redelivery of the
// same (chat_id, message_id).
func (s *Store) LogMessage(ctx context.Context, chat *domain.Chat, sender *domain.User, msg *domain.Message) error {
	now := time.Now().UTC().Unix()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chats (chat_id, type, title, username, first_seen)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(chat_id) DO NOTHING
	`, chat.ID, string(chat.Kind), nullString(chat.Title), nullString(chat.Username), now)
	if err != nil {
		return fmt.Errorf("failed to upsert chat %d: %w", chat.ID, err)
	}

	var senderID any
	if sender != nil {
		senderID = sender.ID
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO users (user_id, username, first_name, last_name, is_bot, first_seen)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_id) DO NOTHING
		`, sender.ID, nullString(sender.Username), nullString(sender.FirstName),
			nullString(sender.LastName), boolInt(sender.IsBot), now)
		if err != nil {
			return fmt.Errorf("failed to upsert user %d: %w", sender.ID, err)
		}
	}

	var entitiesJSON any
	if len(msg.Entities) > 0 {
		raw, err := json.Marshal(msg.Entities)
		if err != nil {
			return fmt.Errorf("failed to serialize entities: %w", err)
		}
		entitiesJSON = string(raw)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO messages (message_id, chat_id, sender_id, timestamp, text, entities, media_type, media_info)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id, message_id) DO NOTHING
	`, msg.ID, chat.ID, senderID, msg.Timestamp.UTC().Unix(), nullString(msg.Text),
		entitiesJSON, nullString(string(msg.Media)), nullString(msg.MediaInfo))
	if err != nil {
		return fmt.Errorf("failed to insert message %d/%d: %w", chat.ID, msg.ID, err)
	}

	s.log.Debug("message logged", "chat_id", chat.ID, "message_id", msg.ID, "media", string(msg.Media))
	return nil
}

// MarkForwarded flips the forwarded flag if currently unset. Repeated calls
// are no-ops.
func (s *Store) MarkForwarded(ctx context.Context, chatID, messageID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE messages SET forwarded_to_user = 1
		WHERE chat_id = ? AND message_id = ? AND forwarded_to_user = 0
	`, chatID, messageID)
	if err != nil {
		return fmt.Errorf("failed to mark message %d/%d forwarded: %w", chatID, messageID, err)
	}
	return nil
}

// UnforwardedSummary counts unforwarded messages per chat, largest first.
func (s *Store) UnforwardedSummary(ctx context.Context) ([]domain.ChatCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.chat_id, c.title, c.username, COUNT(m.message_id)
		FROM messages m
		JOIN chats c ON m.chat_id = c.chat_id
		WHERE m.forwarded_to_user = 0
		GROUP BY m.chat_id
		ORDER BY COUNT(m.message_id) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query unforwarded summary: %w", err)
	}
	defer rows.Close()

	var counts []domain.ChatCount
	for rows.Next() {
		var (
			cc              domain.ChatCount
			title, username sql.NullString
		)
		if err := rows.Scan(&cc.ChatID, &title, &username, &cc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan unforwarded summary: %w", err)
		}
		switch {
		case title.String != "":
			cc.Display = title.String
		case username.String != "":
			cc.Display = "@" + username.String
		default:
			cc.Display = fmt.Sprintf("chat %d", cc.ChatID)
		}
		counts = append(counts, cc)
	}
	return counts, rows.Err()
}

const recordColumns = `
	m.message_id, m.chat_id, m.sender_id, m.timestamp, m.text, m.entities,
	m.media_type, m.media_info, m.forwarded_to_user,
	c.title, c.username,
	u.first_name, u.last_name, u.username, u.is_bot`

// MessagesSince returns messages strictly newer than t, oldest first.
func (s *Store) MessagesSince(ctx context.Context, t time.Time) ([]domain.MessageRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM messages m
		LEFT JOIN chats c ON m.chat_id = c.chat_id
		LEFT JOIN users u ON m.sender_id = u.user_id
		WHERE m.timestamp > ?
		ORDER BY m.timestamp ASC
	`, t.UTC().Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query messages since %s: %w", t, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// QueryMessages applies the conjunctive filter. Chat and sender references
// that resolve to nothing short-circuit to an empty result: a typo'd filter
// must not degenerate into an unfiltered dump.
func (s *Store) QueryMessages(ctx context.Context, f *domain.QueryFilter) ([]domain.MessageRecord, error) {
	var (
		conds []string
		args  []any
	)

	if f.Chat != "" {
		chatID, ok, err := s.resolveChatRef(ctx, f.Chat)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		conds = append(conds, "m.chat_id = ?")
		args = append(args, chatID)
	}

	if f.Sender != "" {
		senderID, ok, err := s.resolveSenderRef(ctx, f.Sender)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		conds = append(conds, "m.sender_id = ?")
		args = append(args, senderID)
	}

	if f.Date != "" {
		start, end, err := f.DateRange(time.Now())
		if err != nil {
			return nil, err
		}
		conds = append(conds, "m.timestamp >= ? AND m.timestamp < ?")
		args = append(args, start.Unix(), end.Unix())
	}

	if f.Content != "" {
		switch {
		case f.LinksOnly():
			conds = append(conds, `(m.text LIKE '%http://%' OR m.text LIKE '%https://%'
				OR m.entities LIKE '%"url"%' OR m.entities LIKE '%"text_link"%')`)
		case f.MediaFilter() != domain.MediaNone:
			conds = append(conds, "m.media_type = ?")
			args = append(args, string(f.MediaFilter()))
		case f.TextKeyword() != "":
			conds = append(conds, "instr(lower(m.text), lower(?)) > 0")
			args = append(args, f.TextKeyword())
		}
	}

	limit := f.Limit
	if limit <= 0 {
		limit = domain.DefaultQueryLimit
	}

	query := `
		SELECT ` + recordColumns + `
		FROM messages m
		LEFT JOIN chats c ON m.chat_id = c.chat_id
		LEFT JOIN users u ON m.sender_id = u.user_id`
	if len(conds) > 0 {
		query += "\nWHERE " + strings.Join(conds, " AND ")
	}
	query += "\nORDER BY m.timestamp DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// resolveChatRef maps a numeric id, @handle or title to a known chat id.
func (s *Store) resolveChatRef(ctx context.Context, ref string) (int64, bool, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return id, true, nil
	}
	handle := strings.TrimPrefix(ref, "@")
	var id int64
	err := s.db.QueryRowContext(ctx, `
		SELECT chat_id FROM chats
		WHERE username = ? COLLATE NOCASE OR title = ? COLLATE NOCASE
		LIMIT 1
	`, handle, ref).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to resolve chat ref %q: %w", ref, err)
	}
	return id, true, nil
}

// resolveSenderRef maps a numeric id or @handle to a known user id.
func (s *Store) resolveSenderRef(ctx context.Context, ref string) (int64, bool, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return id, true, nil
	}
	handle := strings.TrimPrefix(ref, "@")
	var id int64
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id FROM users WHERE username = ? COLLATE NOCASE LIMIT 1
	`, handle).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to resolve sender ref %q: %w", ref, err)
	}
	return id, true, nil
}

func scanRecords(rows *sql.Rows) ([]domain.MessageRecord, error) {
	var records []domain.MessageRecord
	for rows.Next() {
		var (
			rec                         domain.MessageRecord
			senderID                    sql.NullInt64
			ts                          int64
			text, entities              sql.NullString
			mediaType, mediaInfo        sql.NullString
			forwarded, isBot            sql.NullInt64
			chatTitle, chatUsername     sql.NullString
			firstName, lastName, usernm sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.ChatID, &senderID, &ts, &text, &entities,
			&mediaType, &mediaInfo, &forwarded,
			&chatTitle, &chatUsername,
			&firstName, &lastName, &usernm, &isBot); err != nil {
			return nil, fmt.Errorf("failed to scan message record: %w", err)
		}
		rec.SenderID = senderID.Int64
		rec.Timestamp = time.Unix(ts, 0).UTC()
		rec.Text = text.String
		if entities.String != "" {
			if err := json.Unmarshal([]byte(entities.String), &rec.Entities); err != nil {
				// A corrupt entity blob should not hide the message itself.
				rec.Entities = nil
			}
		}
		rec.Media = domain.ParseMediaKind(mediaType.String)
		rec.MediaInfo = mediaInfo.String
		rec.Forwarded = forwarded.Int64 != 0
		rec.ChatTitle = chatTitle.String
		rec.ChatUsername = chatUsername.String
		rec.SenderName = strings.TrimSpace(firstName.String + " " + lastName.String)
		rec.SenderUsername = usernm.String
		rec.SenderIsBot = isBot.Int64 != 0
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Stats reports table sizes for the status endpoint.
func (s *Store) Stats(ctx context.Context) (repo.StoreStats, error) {
	var st repo.StoreStats
	row := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM chats),
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM messages),
			(SELECT COUNT(*) FROM messages WHERE forwarded_to_user = 0)
	`)
	if err := row.Scan(&st.Chats, &st.Users, &st.Messages, &st.Unforwarded); err != nil {
		return st, fmt.Errorf("failed to collect store stats: %w", err)
	}
	return st, nil
}

// ========== Monitored chats ==========

// AddMonitoredChat inserts or refreshes an allowlist entry. The cached
// title/username are display-only and overwritten on conflict.
func (s *Store) AddMonitoredChat(ctx context.Context, chat domain.MonitoredChat) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO monitored_chats (chat_id, title, username, added_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET title = excluded.title, username = excluded.username
	`, chat.ChatID, nullString(chat.Title), nullString(chat.Username), time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("failed to add monitored chat %d: %w", chat.ChatID, err)
	}
	return nil
}

// RemoveMonitoredChat deletes an entry, reporting whether it existed.
func (s *Store) RemoveMonitoredChat(ctx context.Context, chatID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM monitored_chats WHERE chat_id = ?`, chatID)
	if err != nil {
		return false, fmt.Errorf("failed to remove monitored chat %d: %w", chatID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListMonitoredChats returns the allowlist, oldest entry first.
func (s *Store) ListMonitoredChats(ctx context.Context) ([]domain.MonitoredChat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chat_id, title, username, added_at FROM monitored_chats ORDER BY added_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list monitored chats: %w", err)
	}
	defer rows.Close()

	var chats []domain.MonitoredChat
	for rows.Next() {
		var (
			mc              domain.MonitoredChat
			title, username sql.NullString
			addedAt         int64
		)
		if err := rows.Scan(&mc.ChatID, &title, &username, &addedAt); err != nil {
			return nil, fmt.Errorf("failed to scan monitored chat: %w", err)
		}
		mc.Title = title.String
		mc.Username = username.String
		mc.AddedAt = time.Unix(addedAt, 0).UTC()
		chats = append(chats, mc)
	}
	return chats, rows.Err()
}

// ClearMonitoredChats empties the allowlist.
func (s *Store) ClearMonitoredChats(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM monitored_chats`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear monitored chats: %w", err)
	}
	return res.RowsAffected()
}

// IsMonitored reports allowlist membership.
func (s *Store) IsMonitored(ctx context.Context, chatID int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM monitored_chats WHERE chat_id = ?`, chatID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check monitored chat %d: %w", chatID, err)
	}
	return true, nil
}

// MonitoredCount returns the allowlist size.
func (s *Store) MonitoredCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM monitored_chats`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count monitored chats: %w", err)
	}
	return n, nil
}

// ========== Notification targets ==========

// SeedOwner ensures the owner row exists. Re-running at every startup is a
// no-op once the row is there.
func (s *Store) SeedOwner(ctx context.Context, target domain.NotificationTarget) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO notification_targets (user_id, username, name, is_owner, added_at)
		VALUES (?, ?, ?, 1, ?)
	`, target.UserID, nullString(target.Username), nullString(target.Name), time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("failed to seed owner target %d: %w", target.UserID, err)
	}
	return nil
}

// AddTarget inserts a target; an existing id (the owner included) is left
// untouched.
func (s *Store) AddTarget(ctx context.Context, target domain.NotificationTarget) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO notification_targets (user_id, username, name, is_owner, added_at)
		VALUES (?, ?, ?, 0, ?)
	`, target.UserID, nullString(target.Username), nullString(target.Name), time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("failed to add notification target %d: %w", target.UserID, err)
	}
	return nil
}

// RemoveTarget deletes a target, reporting whether it existed. Owner
// protection lives at the command boundary, not here.
func (s *Store) RemoveTarget(ctx context.Context, userID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notification_targets WHERE user_id = ?`, userID)
	if err != nil {
		return false, fmt.Errorf("failed to remove notification target %d: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListTargets returns all targets, owner first.
func (s *Store) ListTargets(ctx context.Context) ([]domain.NotificationTarget, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, username, name, is_owner, added_at
		FROM notification_targets
		ORDER BY is_owner DESC, added_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list notification targets: %w", err)
	}
	defer rows.Close()

	var targets []domain.NotificationTarget
	for rows.Next() {
		var (
			t              domain.NotificationTarget
			username, name sql.NullString
			isOwner        int
			addedAt        int64
		)
		if err := rows.Scan(&t.UserID, &username, &name, &isOwner, &addedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification target: %w", err)
		}
		t.Username = username.String
		t.Name = name.String
		t.IsOwner = isOwner != 0
		t.AddedAt = time.Unix(addedAt, 0).UTC()
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
