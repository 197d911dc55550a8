package core

import (
	"context"
	"errors"

	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/domain"
)

// ErrNotConfigured marks an optional integration whose credentials are
// absent. Callers surface it as "feature unavailable", never a crash.
var ErrNotConfigured = errors.New("integration not configured")

// Summarizer condenses a call transcript. Optional feature.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

// Dialer places an outbound PSTN call into a room. Optional,
// fire-and-forget.
type Dialer interface {
	Dial(ctx context.Context, number string, room domain.RoomName) error
}
