package domain

import "strings"

type RoomName string

// Room name prefixes are a naming convention enforced by the signaling
// service. They carry no coordination semantics; clients only use them
// to pick a waiting view.
const (
	HoldingRoomPrefix  = "hold-"
	TransferRoomPrefix = "transfer-"
)

// IsHoldingRoom reports whether name denotes a parking room where a
// participant waits to be relocated.
func IsHoldingRoom(name RoomName) bool {
	return strings.HasPrefix(string(name), HoldingRoomPrefix)
}

// HoldingRoomFor returns the parking room paired with a source room.
func HoldingRoomFor(name RoomName) RoomName {
	return RoomName(HoldingRoomPrefix + string(name))
}

// MoveRoomSubject is the side-channel message type that carries a
// MoveInstruction in-band.
const MoveRoomSubject = "move_room"

// MoveInstruction tells a passively waiting participant where to go
// next. Exactly one instruction is meaningful per transfer; duplicates
// must be ignored once the target room is reached.
type MoveInstruction struct {
	TargetRoom RoomName `json:"room"`
	Token      string   `json:"token"`
}

// MoveEvent is the out-of-band (polled) form of a pending move, as
// returned by the signaling service. The credential is fetched
// separately by the consumer.
type MoveEvent struct {
	Action  string   `json:"action"`
	NewRoom RoomName `json:"new_room"`
}
