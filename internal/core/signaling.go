package core

import (
	"context"

	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/domain"
)

// Signaling is the client-side view of the signaling service. All
// calls are synchronous request/response; failures other than polling
// surface as *domain.RemoteError so the operator sees the server
// detail verbatim.
type Signaling interface {
	// IssueToken mints a short-lived credential for (room, identity).
	IssueToken(ctx context.Context, room domain.RoomName, identity string) (string, error)
	// CreateRoom asks the service for a fresh room.
	CreateRoom(ctx context.Context) (domain.RoomName, error)
	// InitiateTransfer creates the private transfer room for the
	// occupants of currentRoom and parks the remaining parties.
	InitiateTransfer(ctx context.Context, currentRoom domain.RoomName) (domain.RoomName, error)
	// CompleteTransfer moves the parked caller from fromRoom into toRoom.
	CompleteTransfer(ctx context.Context, fromRoom, toRoom domain.RoomName) error
	// PollMoveEvent returns the pending move for room, or nil when
	// there is none yet. Transport and 5xx failures come back as
	// *domain.TransientError for the poller's backoff, never as user
	// facing errors.
	PollMoveEvent(ctx context.Context, room domain.RoomName) (*domain.MoveEvent, error)

	// Summarize and DialOut are independent, non-fatal features.
	Summarize(ctx context.Context, transcript string) (string, error)
	DialOut(ctx context.Context, number string, room domain.RoomName) error
}
