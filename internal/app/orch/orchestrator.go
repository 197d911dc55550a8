// Package orch coordinates rooms, sessions and transfer state on the
// signaling service side.
package orch

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/app"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/core"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/domain"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/wire"
)

type Orchestrator struct {
	Registry *app.Registry
	Rooms    core.RoomFactory
	Broker   *app.MoveBroker
	Tokens   *app.TokenIssuer
}

// CreateRoom allocates a fresh room name.
func (o *Orchestrator) CreateRoom() domain.RoomName {
	name := domain.RoomName(uuid.NewString())
	o.Rooms.GetOrCreate(name)
	return name
}

// InitiateTransfer creates the private transfer room for the agent and
// schedules the remaining occupants of currentRoom into its holding
// room. Returns the transfer room name.
func (o *Orchestrator) InitiateTransfer(currentRoom domain.RoomName) domain.RoomName {
	newRoom := domain.RoomName(domain.TransferRoomPrefix + uuid.NewString()[:8])
	o.Rooms.GetOrCreate(newRoom)

	hold := domain.HoldingRoomFor(currentRoom)
	o.Rooms.GetOrCreate(hold)
	o.Broker.Publish(currentRoom, domain.MoveEvent{Action: "move", NewRoom: hold})

	log.Info().Str("module", "orch").Str("from", string(currentRoom)).Str("room", string(newRoom)).Msg("transfer initiated")
	return newRoom
}

// CompleteTransfer schedules everyone still parked for fromRoom into
// toRoom, both out-of-band (pollable events) and in-band (personal
// move_room pushes carrying a fresh credential).
func (o *Orchestrator) CompleteTransfer(fromRoom, toRoom domain.RoomName) error {
	hold := domain.HoldingRoomFor(fromRoom)
	ev := domain.MoveEvent{Action: "move", NewRoom: toRoom}
	o.Broker.Publish(hold, ev)
	// Stragglers that never reached the holding room get the same event.
	o.Broker.Publish(fromRoom, ev)

	for _, room := range []domain.RoomName{hold, fromRoom} {
		if err := o.pushMove(room, toRoom); err != nil {
			return err
		}
	}
	log.Info().Str("module", "orch").Str("from", string(fromRoom)).Str("to", string(toRoom)).Msg("transfer completed")
	return nil
}

// pushMove sends a personalized move_room instruction to every live
// session in room. Send failures only drop the in-band copy; the
// polled event remains authoritative.
func (o *Orchestrator) pushMove(room, target domain.RoomName) error {
	for _, snap := range o.Registry.MembersOfRoom(room) {
		meta := snap.Session.Meta()
		token, err := o.Tokens.Mint(target, meta.Identity, meta.Role)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(domain.MoveInstruction{TargetRoom: target, Token: token})
		if err != nil {
			return err
		}
		frame, err := wire.Data(domain.MoveRoomSubject, payload)
		if err != nil {
			return err
		}
		if err := snap.Session.Signal().TrySend(frame); err != nil {
			log.Warn().Err(err).Str("module", "orch").Str("sid", string(snap.SID)).Msg("in-band move push dropped")
		}
	}
	return nil
}

// PendingMove reports the pending move event for a room, if any.
func (o *Orchestrator) PendingMove(room domain.RoomName) (domain.MoveEvent, bool) {
	return o.Broker.Pending(room)
}
