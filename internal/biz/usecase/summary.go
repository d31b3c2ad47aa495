package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/assetmatic/telegram-observer/internal/biz/domain"
	"github.com/assetmatic/telegram-observer/internal/biz/repo"
)

// maxPromptChars bounds the summarization prompt. Summaries tolerate a
// truncated tail better than a rejected request.
const maxPromptChars = 60000

// Summaries turns stored message records into AI digests.
type Summaries struct {
	ai  repo.AI // nil when no provider is configured
	log *slog.Logger
}

// NewSummaries creates the summary usecase. ai may be nil.
func NewSummaries(ai repo.AI, log *slog.Logger) *Summaries {
	if log == nil {
		log = slog.Default()
	}
	return &Summaries{ai: ai, log: log.With("component", "summaries")}
}

// Configured reports whether an AI backend is available.
func (s *Summaries) Configured() bool {
	return s.ai != nil
}

// Summarize produces a digest of the given records.
func (s *Summaries) Summarize(ctx context.Context, records []domain.MessageRecord) (string, error) {
	if !s.Configured() {
		return "", fmt.Errorf("AI summarization not configured")
	}
	if len(records) == 0 {
		return "No new messages found to summarize.", nil
	}

	prompt := buildSummaryPrompt(records)
	s.log.Info("requesting summary", "messages", len(records), "prompt_chars", len(prompt))

	summary, err := s.ai.Summarize(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to generate summary: %w", err)
	}
	return strings.TrimSpace(summary), nil
}

// buildSummaryPrompt renders records into one prompt line each and caps the
// total size, keeping the header and the oldest lines.
func buildSummaryPrompt(records []domain.MessageRecord) string {
	header := fmt.Sprintf(
		"Summarize the key points, topics, and any urgent items from the following %d Telegram messages observed recently:\n\n---\n",
		len(records))

	var body strings.Builder
	for _, rec := range records {
		body.WriteString(FormatPromptLine(&rec))
		body.WriteByte('\n')
	}

	prompt := header + body.String()
	if len(prompt) > maxPromptChars {
		keep := maxPromptChars - len(header) - len("... (truncated)\n")
		if keep < 0 {
			keep = 0
		}
		tail := body.String()
		// Back off to a rune boundary so the cut never produces invalid UTF-8.
		for keep > 0 && !utf8.RuneStart(tail[keep]) {
			keep--
		}
		prompt = header + tail[:keep] + "... (truncated)\n"
	}
	return prompt
}

// FormatPromptLine renders one record the way the summarizer prompt wants
// it: timestamp, chat, sender with a bot tag, media/link flags, body.
func FormatPromptLine(rec *domain.MessageRecord) string {
	sender := rec.SenderDisplay()
	if rec.SenderIsBot {
		sender += " [Bot]"
	}

	var flags strings.Builder
	if rec.Media != domain.MediaNone {
		fmt.Fprintf(&flags, " [Media: %s]", rec.Media)
	}
	if rec.HasLinks() {
		flags.WriteString(" [Links]")
	}

	content := rec.Text
	if content == "" {
		content = fmt.Sprintf("(no text content%s)", flags.String())
	}

	return fmt.Sprintf("%s [%s] %s:%s %s",
		rec.Timestamp.UTC().Format("2006-01-02 15:04"),
		rec.ChatDisplay(), sender, flags.String(), content)
}
