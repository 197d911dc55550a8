package core

import (
	"context"

	"github.com/pion/webrtc/v4"
)

// MediaConnection is the service-side end of a member's media peer.
// The member offers, the service answers; tracks are accepted but not
// interpreted here.
type MediaConnection interface {
	// Start configures internal callbacks and binds the connection
	// lifetime to ctx.
	Start(ctx context.Context) error
	// Close stops all underlying media resources.
	Close()
	// ApplyOfferAndCreateAnswer performs the answerer half of the
	// SDP exchange.
	ApplyOfferAndCreateAnswer(offer webrtc.SessionDescription) (*webrtc.SessionDescription, error)
	// AddICECandidate applies a remote ICE candidate.
	AddICECandidate(webrtc.ICECandidateInit) error
	// OnICECandidate sets a callback for newly gathered local candidates.
	OnICECandidate(func(webrtc.ICECandidateInit))
	// OnClosed sets a callback for media session cleanup.
	OnClosed(func())
}
