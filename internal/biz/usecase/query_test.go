package usecase

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/assetmatic/telegram-observer/internal/biz/domain"
)

func TestFormatQueryResultsEmpty(t *testing.T) {
	out := FormatQueryResults(&domain.QueryFilter{}, nil)
	assert.Equal(t, "No messages matched your query.", out)
}

func TestFormatQueryResultsMessageLines(t *testing.T) {
	records := []domain.MessageRecord{
		{
			Message: domain.Message{
				ChatID: 1, ID: 2,
				Timestamp: time.Date(2025, 5, 14, 9, 30, 0, 0, time.UTC),
				Text:      "deploy done",
			},
			ChatTitle:  "Ops",
			SenderName: "Ada",
		},
		{
			Message:   domain.Message{ChatID: 1, ID: 1, Media: domain.MediaPhoto},
			ChatTitle: "Ops",
		},
	}
	out := FormatQueryResults(&domain.QueryFilter{Chat: "ops"}, records)
	assert.Contains(t, out, "Found 2 message(s):")
	assert.Contains(t, out, "May 14 09:30 [Ops] Ada: deploy done")
	assert.Contains(t, out, "(photo)")
}

func TestFormatQueryResultsLinksCollapse(t *testing.T) {
	records := []domain.MessageRecord{
		{
			Message:   domain.Message{ChatID: 1, ID: 1, Text: "see https://example.com/a"},
			ChatTitle: "Dev",
		},
		{
			Message:   domain.Message{ChatID: 2, ID: 2, Text: "again https://example.com/a and https://example.com/b"},
			ChatTitle: "Ops",
		},
	}
	out := FormatQueryResults(&domain.QueryFilter{Content: "links"}, records)
	assert.Contains(t, out, "Found 2 link(s):")
	assert.Contains(t, out, "https://example.com/a — Dev")
	assert.Contains(t, out, "https://example.com/b — Ops")
	// The duplicate in the second message is collapsed into the first hit.
	assert.Equal(t, 1, strings.Count(out, "https://example.com/a"))
}

func TestFormatQueryResultsLinksFilterNoLinks(t *testing.T) {
	records := []domain.MessageRecord{{
		Message: domain.Message{ChatID: 1, ID: 1, Text: "no urls"},
	}}
	out := FormatQueryResults(&domain.QueryFilter{Content: "links"}, records)
	assert.Equal(t, "No links found in the matched messages.", out)
}
