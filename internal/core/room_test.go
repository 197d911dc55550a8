package core

import (
	"errors"
	"testing"

	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/domain"
)

type recordingConn struct {
	frames []Frame
	err    error
}

func (c *recordingConn) TrySend(f Frame) error {
	if c.err != nil {
		return c.err
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *recordingConn) Close() {}

func addMember(t *testing.T, room RoomService, sid SessionID, identity string) *recordingConn {
	t.Helper()
	p, err := domain.NewParticipant(identity, domain.RoleCaller)
	if err != nil {
		t.Fatal(err)
	}
	conn := &recordingConn{}
	room.AddMember(sid, NewMemberSession(p, conn))
	return conn
}

func TestBroadcastSkipsSender(t *testing.T) {
	room := NewRoomService("support-1")
	sender := addMember(t, room, "sid-1", "alice")
	other := addMember(t, room, "sid-2", "bob")

	res := room.Broadcast("sid-1", Frame("hello"))
	if res.SentTo != 1 || len(res.Dropped) != 0 {
		t.Errorf("result = %+v", res)
	}
	if len(sender.frames) != 0 {
		t.Error("frame echoed back to sender")
	}
	if len(other.frames) != 1 || string(other.frames[0]) != "hello" {
		t.Errorf("other received %v", other.frames)
	}
}

func TestBroadcastReportsBackpressure(t *testing.T) {
	room := NewRoomService("support-1")
	addMember(t, room, "sid-1", "alice")
	slow := addMember(t, room, "sid-2", "bob")
	slow.err = errors.New("send buffer full")

	res := room.Broadcast("", Frame("x"))
	if res.SentTo != 1 {
		t.Errorf("SentTo = %d", res.SentTo)
	}
	if len(res.Dropped) != 1 || res.Dropped[0] != "sid-2" {
		t.Errorf("Dropped = %v", res.Dropped)
	}
}

func TestRoomMembership(t *testing.T) {
	room := NewRoomService("support-1")
	addMember(t, room, "sid-1", "alice")
	addMember(t, room, "sid-2", "bob")

	if n := room.MemberCount(); n != 2 {
		t.Errorf("MemberCount = %d", n)
	}
	room.RemoveMember("sid-1")
	if n := room.MemberCount(); n != 1 {
		t.Errorf("MemberCount after remove = %d", n)
	}
	snap := room.MembersSnapshot()
	if len(snap) != 1 || snap[0].Identity != "bob" {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestRoomManagerReusesRooms(t *testing.T) {
	rm := NewRoomManager()
	a := rm.GetOrCreate("support-1")
	b := rm.GetOrCreate("support-1")
	if a != b {
		t.Error("GetOrCreate returned distinct rooms for one name")
	}

	if _, ok := rm.Get("never-seen"); ok {
		t.Error("Get invented a room")
	}

	rm.StopRoom("support-1")
	if _, ok := rm.Get("support-1"); ok {
		t.Error("room survived StopRoom")
	}
}
