package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/domain"
)

// scriptedSignaling returns canned poll responses in order, repeating
// the last one, and records call timestamps.
type scriptedSignaling struct {
	mu       sync.Mutex
	script   []pollStep
	calls    []time.Time
	inflight atomic.Int32
	maxInfl  atomic.Int32
	pollWork time.Duration
	tokenErr error
}

type pollStep struct {
	ev  *domain.MoveEvent
	err error
}

func (s *scriptedSignaling) PollMoveEvent(context.Context, domain.RoomName) (*domain.MoveEvent, error) {
	n := s.inflight.Add(1)
	if n > s.maxInfl.Load() {
		s.maxInfl.Store(n)
	}
	if s.pollWork > 0 {
		time.Sleep(s.pollWork)
	}
	defer s.inflight.Add(-1)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, time.Now())
	i := len(s.calls) - 1
	if i >= len(s.script) {
		i = len(s.script) - 1
	}
	return s.script[i].ev, s.script[i].err
}

func (s *scriptedSignaling) IssueToken(_ context.Context, room domain.RoomName, _ string) (string, error) {
	if s.tokenErr != nil {
		return "", s.tokenErr
	}
	return "tok-" + string(room), nil
}

func (s *scriptedSignaling) CreateRoom(context.Context) (domain.RoomName, error) { return "", nil }
func (s *scriptedSignaling) InitiateTransfer(context.Context, domain.RoomName) (domain.RoomName, error) {
	return "", nil
}
func (s *scriptedSignaling) CompleteTransfer(context.Context, domain.RoomName, domain.RoomName) error {
	return nil
}
func (s *scriptedSignaling) Summarize(context.Context, string) (string, error) { return "", nil }
func (s *scriptedSignaling) DialOut(context.Context, string, domain.RoomName) error {
	return nil
}

func (s *scriptedSignaling) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func callerIdentity() domain.SessionIdentity {
	return domain.SessionIdentity{Identity: "bob", Role: domain.RoleCaller, Room: "hold-support-1"}
}

func TestPollerAppliesMoveExactlyOnce(t *testing.T) {
	sig := &scriptedSignaling{script: []pollStep{
		{},
		{},
		{ev: &domain.MoveEvent{Action: "move", NewRoom: "transfer-42"}},
	}}

	var mu sync.Mutex
	var applied []domain.MoveInstruction
	p := NewPoller(sig, callerIdentity(), func(instr domain.MoveInstruction) {
		mu.Lock()
		applied = append(applied, instr)
		mu.Unlock()
	}).WithDelays(2*time.Millisecond, 10*time.Millisecond)

	p.Start(context.Background())
	defer p.Stop()

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := len(applied)
		mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("move never applied")
		case <-time.After(time.Millisecond):
		}
	}

	after := sig.callCount()
	time.Sleep(30 * time.Millisecond)
	if got := sig.callCount(); got != after {
		t.Errorf("poller kept polling after delivery: %d -> %d", after, got)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(applied) != 1 {
		t.Fatalf("applied %d times, want 1", len(applied))
	}
	want := domain.MoveInstruction{TargetRoom: "transfer-42", Token: "tok-transfer-42"}
	if applied[0] != want {
		t.Errorf("applied = %+v, want %+v", applied[0], want)
	}
}

func TestPollerBacksOffAfterTransientFailure(t *testing.T) {
	backoff := 60 * time.Millisecond
	sig := &scriptedSignaling{script: []pollStep{
		{err: &domain.TransientError{Err: context.DeadlineExceeded}},
		{},
		{},
	}}

	p := NewPoller(sig, callerIdentity(), func(domain.MoveInstruction) {}).
		WithDelays(2*time.Millisecond, backoff)
	p.Start(context.Background())
	defer p.Stop()

	deadline := time.After(2 * time.Second)
	for sig.callCount() < 3 {
		select {
		case <-deadline:
			t.Fatal("not enough polls")
		case <-time.After(time.Millisecond):
		}
	}

	sig.mu.Lock()
	gapAfterError := sig.calls[1].Sub(sig.calls[0])
	gapAfterSuccess := sig.calls[2].Sub(sig.calls[1])
	sig.mu.Unlock()

	if gapAfterError < backoff-5*time.Millisecond {
		t.Errorf("gap after transient failure = %v, want >= %v", gapAfterError, backoff)
	}
	if gapAfterSuccess >= backoff {
		t.Errorf("gap after empty success = %v, want the short interval", gapAfterSuccess)
	}
}

func TestPollerNeverOverlapsItself(t *testing.T) {
	sig := &scriptedSignaling{
		script:   []pollStep{{}},
		pollWork: 5 * time.Millisecond,
	}
	p := NewPoller(sig, callerIdentity(), func(domain.MoveInstruction) {}).
		WithDelays(time.Millisecond, time.Millisecond)
	p.Start(context.Background())
	time.Sleep(80 * time.Millisecond)
	p.Stop()

	if got := sig.maxInfl.Load(); got != 1 {
		t.Errorf("max in-flight polls = %d, want 1", got)
	}
}

func TestPollerStopEndsPolling(t *testing.T) {
	sig := &scriptedSignaling{script: []pollStep{{}}}
	p := NewPoller(sig, callerIdentity(), func(domain.MoveInstruction) {}).
		WithDelays(2*time.Millisecond, 10*time.Millisecond)
	p.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	p.Stop()
	time.Sleep(5 * time.Millisecond)

	n := sig.callCount()
	time.Sleep(30 * time.Millisecond)
	if got := sig.callCount(); got != n {
		t.Errorf("polls continued after Stop: %d -> %d", n, got)
	}
}
