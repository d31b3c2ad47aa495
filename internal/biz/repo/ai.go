package repo

import (
	"context"

	"github.com/assetmatic/telegram-observer/internal/biz/domain"
)

// AI is the summarization/query-extraction backend: text in, text or
// structured filters out. Implementations try the primary provider first
// and fall back only when it fails.
type AI interface {
	// Summarize produces a digest of the prepared prompt.
	Summarize(ctx context.Context, prompt string) (string, error)

	// ExtractFilters turns a natural-language query into a structured
	// filter. A nil filter with nil error means the model produced no
	// usable filter JSON.
	ExtractFilters(ctx context.Context, query string) (*domain.QueryFilter, error)
}
