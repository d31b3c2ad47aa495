package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultQueryLimit caps query results when the filter does not set one.
const DefaultQueryLimit = 25

// ErrInvalidDate marks a date filter that is neither a keyword nor a
// parseable YYYY-MM-DD date.
var ErrInvalidDate = errors.New("invalid date filter")

// QueryFilter is the structured filter the AI backend extracts from a
// natural-language query. All set fields are combined conjunctively.
type QueryFilter struct {
	// Chat is a numeric id, @handle or title. Empty means any chat.
	Chat string `json:"chat,omitempty"`
	// Date is "today", "yesterday" or an explicit "2006-01-02" date.
	Date string `json:"date,omitempty"`
	// Content is "links", a media kind, or "text:<keyword>".
	Content string `json:"content,omitempty"`
	// Sender is a numeric id or @handle. Empty means any sender.
	Sender string `json:"sender,omitempty"`
	// Limit caps the result set; DefaultQueryLimit when zero.
	Limit int `json:"limit,omitempty"`
}

// IsZero reports whether no filter field is set.
func (f *QueryFilter) IsZero() bool {
	return f.Chat == "" && f.Date == "" && f.Content == "" && f.Sender == ""
}

// LinksOnly reports whether the filter asks for link-bearing messages, in
// which case results are rendered as a deduplicated link list.
func (f *QueryFilter) LinksOnly() bool {
	return strings.EqualFold(strings.TrimSpace(f.Content), "links")
}

// TextKeyword returns the substring keyword of a "text:<keyword>" content
// filter, or "" when the filter is of another shape.
func (f *QueryFilter) TextKeyword() string {
	c := strings.TrimSpace(f.Content)
	if len(c) > 5 && strings.EqualFold(c[:5], "text:") {
		return strings.TrimSpace(c[5:])
	}
	return ""
}

// MediaFilter returns the media kind named by the content filter, or
// MediaNone when the content filter is not a media kind.
func (f *QueryFilter) MediaFilter() MediaKind {
	return ParseMediaKind(strings.ToLower(strings.TrimSpace(f.Content)))
}

// DateRange expands the date filter into a half-open UTC day interval
// [start, end). now supplies the reference day for "today"/"yesterday".
func (f *QueryFilter) DateRange(now time.Time) (start, end time.Time, err error) {
	day := strings.ToLower(strings.TrimSpace(f.Date))
	today := now.UTC().Truncate(24 * time.Hour)
	switch day {
	case "":
		return time.Time{}, time.Time{}, fmt.Errorf("no date filter set")
	case "today":
		start = today
	case "yesterday":
		start = today.AddDate(0, 0, -1)
	default:
		start, err = time.ParseInLocation("2006-01-02", day, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, f.Date)
		}
	}
	return start, start.AddDate(0, 0, 1), nil
}
