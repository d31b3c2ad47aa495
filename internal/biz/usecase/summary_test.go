package usecase

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetmatic/telegram-observer/internal/biz/domain"
)

func TestSummarizeEmptyWindow(t *testing.T) {
	s := NewSummaries(&mockAI{}, nil)
	out, err := s.Summarize(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "No new messages found to summarize.", out)
}

func TestSummarizeNotConfigured(t *testing.T) {
	s := NewSummaries(nil, nil)
	assert.False(t, s.Configured())
	_, err := s.Summarize(context.Background(), []domain.MessageRecord{{}})
	assert.Error(t, err)
}

func TestSummarizePromptContents(t *testing.T) {
	ai := &mockAI{}
	var captured string
	ai.summarizeFn = func(prompt string) (string, error) {
		captured = prompt
		return " digest ", nil
	}
	s := NewSummaries(ai, nil)

	records := []domain.MessageRecord{{
		Message: domain.Message{
			ChatID: 1, ID: 1,
			Timestamp: time.Date(2025, 5, 14, 9, 0, 0, 0, time.UTC),
			Text:      "release is out https://example.com",
		},
		ChatTitle:   "Dev Chat",
		SenderName:  "Ada",
		SenderIsBot: true,
	}}
	out, err := s.Summarize(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, "digest", out)

	assert.Contains(t, captured, "following 1 Telegram messages")
	assert.Contains(t, captured, "2025-05-14 09:00 [Dev Chat] Ada [Bot]: [Links] release is out")
}

func TestFormatPromptLineMediaOnly(t *testing.T) {
	rec := &domain.MessageRecord{
		Message: domain.Message{
			ChatID: 1, ID: 2,
			Timestamp: time.Date(2025, 5, 14, 9, 0, 0, 0, time.UTC),
			Media:     domain.MediaPhoto,
		},
		ChatTitle:  "Dev Chat",
		SenderName: "Ada",
	}
	line := FormatPromptLine(rec)
	assert.Contains(t, line, "[Media: photo]")
	assert.Contains(t, line, "(no text content")
}

func TestBuildSummaryPromptCapsLength(t *testing.T) {
	var records []domain.MessageRecord
	for i := 0; i < 200; i++ {
		records = append(records, domain.MessageRecord{
			Message: domain.Message{ChatID: 1, ID: int64(i), Text: strings.Repeat("x", 500)},
		})
	}
	prompt := buildSummaryPrompt(records)
	assert.LessOrEqual(t, len(prompt), maxPromptChars)
	assert.Contains(t, prompt, "truncated")
}

func TestBuildSummaryPromptTruncatesOnRuneBoundary(t *testing.T) {
	var records []domain.MessageRecord
	for i := 0; i < 300; i++ {
		records = append(records, domain.MessageRecord{
			Message: domain.Message{ChatID: 1, ID: int64(i), Text: strings.Repeat("é", 250)},
		})
	}
	prompt := buildSummaryPrompt(records)
	assert.LessOrEqual(t, len(prompt), maxPromptChars)
	assert.Contains(t, prompt, "truncated")
	assert.True(t, utf8.ValidString(prompt), "truncation must not split a rune")
}
