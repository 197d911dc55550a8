package orch

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/app"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/core"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/domain"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/wire"
)

type capturedSignal struct {
	mu     sync.Mutex
	frames []core.Frame
	err    error
}

func (c *capturedSignal) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *capturedSignal) Close() {}

func (c *capturedSignal) all() []core.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.Frame(nil), c.frames...)
}

type fakeMember struct {
	meta   *domain.Participant
	signal *capturedSignal
}

func (m *fakeMember) Meta() *domain.Participant                        { return m.meta }
func (m *fakeMember) Signal() core.SignalConnection                    { return m.signal }
func (m *fakeMember) Media() core.MediaConnection                      { return nil }
func (m *fakeMember) UpdateMedia(core.MediaConnection) core.MemberSession { return m }

func newTestOrchestrator() *Orchestrator {
	return &Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    core.NewRoomManager(),
		Broker:   app.NewMoveBroker(),
		Tokens:   app.NewTokenIssuer("test-secret", time.Minute),
	}
}

func bindMember(o *Orchestrator, sid core.SessionID, room domain.RoomName, identity string, role domain.Role) *capturedSignal {
	sig := &capturedSignal{}
	m := &fakeMember{meta: &domain.Participant{Identity: identity, Role: role}, signal: sig}
	o.Registry.Bind(sid, room, m, nil)
	return sig
}

func TestInitiateTransferParksRemainingOccupants(t *testing.T) {
	o := newTestOrchestrator()
	newRoom := o.InitiateTransfer("support-1")

	if !strings.HasPrefix(string(newRoom), domain.TransferRoomPrefix) {
		t.Errorf("new room = %q", newRoom)
	}
	if _, ok := o.Rooms.Get(newRoom); !ok {
		t.Error("transfer room not created")
	}
	if _, ok := o.Rooms.Get("hold-support-1"); !ok {
		t.Error("holding room not created")
	}

	ev, ok := o.PendingMove("support-1")
	if !ok || ev.NewRoom != "hold-support-1" {
		t.Errorf("pending move = %+v, %v", ev, ok)
	}
}

func TestCompleteTransferPushesPersonalizedMoves(t *testing.T) {
	o := newTestOrchestrator()
	caller := bindMember(o, "sid-1", "hold-support-1", "bob", domain.RoleCaller)
	straggler := bindMember(o, "sid-2", "support-1", "eve", domain.RoleCaller)
	bystander := bindMember(o, "sid-3", "billing-9", "mallory", domain.RoleCaller)

	if err := o.CompleteTransfer("support-1", "transfer-42"); err != nil {
		t.Fatal(err)
	}

	for name, sig := range map[string]*capturedSignal{"parked caller": caller, "straggler": straggler} {
		frames := sig.all()
		if len(frames) != 1 {
			t.Fatalf("%s: got %d frames, want 1", name, len(frames))
		}
		var env wire.Envelope
		if err := json.Unmarshal(frames[0], &env); err != nil {
			t.Fatal(err)
		}
		if env.Type != wire.MsgTypeData || env.Subject != domain.MoveRoomSubject {
			t.Errorf("%s: envelope = %+v", name, env)
		}
		var instr domain.MoveInstruction
		if err := json.Unmarshal(env.Payload, &instr); err != nil {
			t.Fatal(err)
		}
		if instr.TargetRoom != "transfer-42" {
			t.Errorf("%s: target = %q", name, instr.TargetRoom)
		}
		claims, err := o.Tokens.Verify(instr.Token)
		if err != nil {
			t.Fatalf("%s: pushed token does not verify: %v", name, err)
		}
		if claims.Room != "transfer-42" {
			t.Errorf("%s: token scoped to %q", name, claims.Room)
		}
	}

	if n := len(bystander.all()); n != 0 {
		t.Errorf("unrelated room received %d frames", n)
	}

	// Both the holding room and the origin carry the pollable event.
	for _, room := range []domain.RoomName{"hold-support-1", "support-1"} {
		if ev, ok := o.PendingMove(room); !ok || ev.NewRoom != "transfer-42" {
			t.Errorf("%s: pending = %+v, %v", room, ev, ok)
		}
	}
}

func TestKickCancelsSessionAndDrainsRoom(t *testing.T) {
	o := newTestOrchestrator()
	canceled := false
	sig := &capturedSignal{}
	m := &fakeMember{meta: &domain.Participant{Identity: "bob", Role: domain.RoleCaller}, signal: sig}
	o.Registry.Bind("sid-1", "", m, func() { canceled = true })
	o.Join("sid-1", "support-1")
	o.Broker.Publish("support-1", domain.MoveEvent{Action: "move", NewRoom: "hold-support-1"})

	o.KickBySID("sid-1")

	if !canceled {
		t.Error("pump context not canceled on kick")
	}
	if _, ok := o.Registry.GetSession("sid-1"); ok {
		t.Error("session still bound after kick")
	}
	if room, ok := o.Rooms.Get("support-1"); ok && room.MemberCount() != 0 {
		t.Errorf("room still has %d members", room.MemberCount())
	}
	if _, ok := o.PendingMove("support-1"); ok {
		t.Error("drained room kept its pending move")
	}
}

func TestJoinClearsPendingMoveOnceHoldingRoomDrains(t *testing.T) {
	o := newTestOrchestrator()
	for i, sid := range []core.SessionID{"sid-1", "sid-2"} {
		sig := &capturedSignal{}
		m := &fakeMember{meta: &domain.Participant{Identity: string(rune('a' + i)), Role: domain.RoleCaller}, signal: sig}
		o.Registry.Bind(sid, "", m, nil)
		o.Join(sid, "hold-support-1")
	}
	o.Broker.Publish("hold-support-1", domain.MoveEvent{Action: "move", NewRoom: "transfer-42"})

	o.Join("sid-1", "transfer-42")
	if _, ok := o.PendingMove("hold-support-1"); !ok {
		t.Fatal("event dropped while a member still waits in the holding room")
	}

	o.Join("sid-2", "transfer-42")
	if _, ok := o.PendingMove("hold-support-1"); ok {
		t.Error("drained holding room kept its pending move")
	}
}

func TestCompleteTransferSurvivesDroppedPush(t *testing.T) {
	o := newTestOrchestrator()
	sig := bindMember(o, "sid-1", "hold-support-1", "bob", domain.RoleCaller)
	sig.err = errors.New("send buffer full")

	if err := o.CompleteTransfer("support-1", "transfer-42"); err != nil {
		t.Fatalf("send failure must not fail the transfer: %v", err)
	}
	if ev, ok := o.PendingMove("hold-support-1"); !ok || ev.NewRoom != "transfer-42" {
		t.Error("pollable event missing after dropped push")
	}
}
