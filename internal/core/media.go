package core

import "context"

// Frame is a raw JSON payload carried on the side-channel.
type Frame []byte

// DataHandler consumes a side-channel payload. The epoch is the value
// of MediaSession.Epoch at delivery time; handlers that captured an
// older epoch must not touch the session object (it may already be
// torn down) but are still expected to act on the payload itself.
type DataHandler func(epoch uint64, payload Frame)

// PresenceHandler observes membership changes of the connected room.
type PresenceHandler func(count int, identities []string)

// MediaSession is the contract the core needs from the media platform.
// One instance covers the whole participant lifetime; Connect may be
// called again after Disconnect to join a different room. The session
// is owned by a single flow of control.
type MediaSession interface {
	// Connect joins the room encoded in the credential. Blocks until
	// the session is live or ctx ends.
	Connect(ctx context.Context, token string) error
	// Disconnect tears the session down. Safe to call when not
	// connected. Bumps the epoch so stale callbacks can detect they
	// outlived the connection they were registered on.
	Disconnect()
	Connected() bool
	// Epoch increments on every Disconnect. Callbacks capture it at
	// registration and compare before operating on the session.
	Epoch() uint64

	// SendData publishes a typed side-channel message to the room.
	SendData(subject string, payload Frame) error
	// OnData registers the handler for a side-channel subject. The
	// registration survives reconnects.
	OnData(subject string, fn DataHandler)
	// OnPresence registers the membership observer.
	OnPresence(fn PresenceHandler)
}
