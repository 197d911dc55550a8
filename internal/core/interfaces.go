package core

import "github.com/ThatGuyChandan/livekit-warm-transfer/internal/domain"

type SessionID string

// SignalConnection abstracts the gateway's messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// MemberSession binds a domain.Participant to its transport endpoints.
// This is what a room stores and fans out to.
type MemberSession interface {
	Meta() *domain.Participant
	Signal() SignalConnection
	Media() MediaConnection
	UpdateMedia(MediaConnection) MemberSession
}

// PublishResult reports delivery stats/backpressure to the gateway.
type PublishResult struct {
	SentTo  int
	Dropped []SessionID
}

// RoomService is the service-side API of a room. It owns the
// membership set but never touches transport resources.
type RoomService interface {
	Name() domain.RoomName
	MemberCount() int
	MembersSnapshot() []domain.Participant

	AddMember(sid SessionID, ms MemberSession)
	RemoveMember(sid SessionID)
	// Broadcast fans a frame out to every member except from.
	// from may be empty for service-originated pushes.
	Broadcast(from SessionID, data Frame) PublishResult
}

type RoomInfo struct {
	Name        domain.RoomName `json:"name"`
	MemberCount int             `json:"client_count"`
}

type RoomFactory interface {
	GetOrCreate(name domain.RoomName) RoomService
	Get(name domain.RoomName) (RoomService, bool)
	List() []RoomInfo
	StopRoom(name domain.RoomName)
}
