package usecase

import (
	"fmt"
	"strings"

	"github.com/assetmatic/telegram-observer/internal/biz/domain"
)

// FormatQueryResults renders query hits for the owner. Link-only queries
// collapse into a deduplicated link list; everything else gets one line per
// message, newest first (store order).
func FormatQueryResults(f *domain.QueryFilter, records []domain.MessageRecord) string {
	if len(records) == 0 {
		return "No messages matched your query."
	}

	if f.LinksOnly() {
		return formatLinkResults(records)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d message(s):\n", len(records))
	for _, rec := range records {
		text := rec.Text
		if text == "" && rec.Media != domain.MediaNone {
			text = fmt.Sprintf("(%s)", rec.Media)
		}
		if runes := []rune(text); len(runes) > 120 {
			text = string(runes[:120]) + "…"
		}
		fmt.Fprintf(&b, "• %s [%s] %s: %s\n",
			rec.Timestamp.UTC().Format("Jan 02 15:04"),
			rec.ChatDisplay(), rec.SenderDisplay(), text)
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatLinkResults extracts every URL from the hits, via entity scan and
// text regex, and deduplicates across messages.
func formatLinkResults(records []domain.MessageRecord) string {
	seen := make(map[string]struct{})
	var b strings.Builder
	count := 0
	for _, rec := range records {
		for _, link := range rec.Links() {
			if _, ok := seen[link]; ok {
				continue
			}
			seen[link] = struct{}{}
			count++
			fmt.Fprintf(&b, "• %s — %s\n", link, rec.ChatDisplay())
		}
	}
	if count == 0 {
		return "No links found in the matched messages."
	}
	return fmt.Sprintf("Found %d link(s):\n%s", count, strings.TrimRight(b.String(), "\n"))
}
