package core

import (
	"context"

	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/domain"
)

// ApplyMoveFunc is invoked at most once per transfer with the move the
// participant must perform. Implementations are idempotent.
type ApplyMoveFunc func(instr domain.MoveInstruction)

// MoveListener waits for the "you have been moved" signal on behalf of
// a participant who did not initiate the transfer. Two interchangeable
// strategies exist: in-band over the media side-channel and
// out-of-band polling against the signaling service.
type MoveListener interface {
	// Start begins listening. It returns immediately; delivery happens
	// on the listener's own goroutine or the media callback path.
	Start(ctx context.Context)
	// Stop ends listening permanently. Idempotent, safe concurrently
	// with delivery.
	Stop()
}
