package orch

import (
	"github.com/rs/zerolog/log"

	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/core"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/domain"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/wire"
)

// Join places a bound session into its room and announces the new
// occupancy. A session already in another room leaves it first but
// stays bound.
func (o *Orchestrator) Join(sid core.SessionID, roomName domain.RoomName) {
	if prev, _, ok := o.Registry.RoomOf(sid); ok && prev != roomName {
		if prevRoom, found := o.Rooms.Get(prev); found {
			prevRoom.RemoveMember(sid)
			o.broadcastPresence(prevRoom)
			if prevRoom.MemberCount() == 0 {
				// A drained room has no one left to deliver a pending move to.
				o.Broker.Clear(prev)
			}
		}
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("from_room", string(prev)).Msg("left previous room")
	}
	session, ok := o.Registry.GetSession(sid)
	if !ok {
		return
	}
	room := o.Rooms.GetOrCreate(roomName)
	room.AddMember(sid, session)
	o.Registry.UpdateRoom(sid, roomName)
	o.broadcastPresence(room)
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(roomName)).Msg("added to room")
}

// OnFrame relays a side-channel frame from one member to its room
// mates. Members whose send buffer is full are kicked rather than
// allowed to stall the room.
func (o *Orchestrator) OnFrame(sid core.SessionID, data core.Frame) {
	roomName, _, ok := o.Registry.RoomOf(sid)
	if !ok {
		return
	}
	room := o.Rooms.GetOrCreate(roomName)
	res := room.Broadcast(sid, data)
	for _, slow := range res.Dropped {
		o.KickBySID(slow)
	}
}

// KickBySID removes the session from its room, closes its media and
// cancels its pump context so the connection goroutines unwind.
func (o *Orchestrator) KickBySID(sid core.SessionID) {
	o.cleanupMedia(sid)
	o.Registry.Cancel(sid)
	o.cleanupMembership(sid)
}

func (o *Orchestrator) cleanupMedia(sid core.SessionID) {
	if sess, ok := o.Registry.GetSession(sid); ok {
		if mc := sess.Media(); mc != nil {
			mc.Close()
		}
	}
}

func (o *Orchestrator) cleanupMembership(sid core.SessionID) {
	roomName, _, ok := o.Registry.RoomOf(sid)
	if !ok {
		o.Registry.Unbind(sid)
		return
	}
	if room, found := o.Rooms.Get(roomName); found {
		room.RemoveMember(sid)
		o.broadcastPresence(room)
		if room.MemberCount() == 0 {
			o.Broker.Clear(roomName)
		}
	}
	o.Registry.Unbind(sid)
}

func (o *Orchestrator) broadcastPresence(room core.RoomService) {
	snap := room.MembersSnapshot()
	members := make([]string, 0, len(snap))
	for _, p := range snap {
		members = append(members, p.Identity)
	}
	frame, err := wire.Presence(members)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("presence marshal")
		return
	}
	room.Broadcast("", frame)
}
