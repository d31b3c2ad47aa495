package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/assetmatic/telegram-observer/internal/biz/domain"
)

// Peer is a resolved transport identity: what a human-readable reference
// (numeric id or @handle) points at.
type Peer struct {
	ID       int64
	Kind     domain.ChatKind
	Title    string
	Username string
	Name     string
	IsBot    bool
}

// ErrPeerNotFound is returned when a reference resolves to nothing.
var ErrPeerNotFound = errors.New("peer not found")

// FloodWaitError is the transport's rate-limit signal. Callers sleep for
// Duration before their next attempt; the wait never aborts sibling work.
type FloodWaitError struct {
	Duration time.Duration
}

func (e *FloodWaitError) Error() string {
	return fmt.Sprintf("flood wait for %s", e.Duration)
}

// AsFloodWait extracts the wait duration if err is a rate-limit signal.
func AsFloodWait(err error) (time.Duration, bool) {
	var fw *FloodWaitError
	if errors.As(err, &fw) {
		return fw.Duration, true
	}
	return 0, false
}

// Sender is the outbound half of the transport: deliver text to a peer and
// resolve references to identities.
type Sender interface {
	// Send delivers text to the peer (user or chat) with the given id.
	Send(ctx context.Context, peerID int64, text string) error

	// Resolve maps a numeric id or @handle to a Peer. Unknown references
	// return ErrPeerNotFound.
	Resolve(ctx context.Context, ref string) (*Peer, error)
}

// EventSource is the inbound half: a stream of new-message events. Run
// blocks until the context is cancelled or the transport fails.
type EventSource interface {
	OnEvent(handler func(ctx context.Context, ev *domain.InboundEvent))
	Run(ctx context.Context) error
}
