package repo

import (
	"context"

	"github.com/assetmatic/telegram-observer/internal/biz/domain"
)

// WebhookSink posts message batches to the configured external endpoint.
// A failed post is logged by the caller and not retried within the cycle.
type WebhookSink interface {
	SendBatch(ctx context.Context, eventType string, messages []domain.MessageRecord) error
}
