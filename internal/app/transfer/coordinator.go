// Package transfer drives the warm-transfer state machine for a single
// participant session.
package transfer

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/core"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/domain"
)

// Phase is the coordinator's position in the transfer lifecycle.
// Transitions are monotonic except Failed, which is reachable from any
// non-terminal phase; a manual retry resumes from the phase that failed.
type Phase int

const (
	Connected Phase = iota
	TransferInitiating
	TransferPendingRemoteMove
	TransferCompleting
	TransferCompleted
	Failed
	Left
)

func (p Phase) String() string {
	switch p {
	case Connected:
		return "connected"
	case TransferInitiating:
		return "transfer_initiating"
	case TransferPendingRemoteMove:
		return "transfer_pending_remote_move"
	case TransferCompleting:
		return "transfer_completing"
	case TransferCompleted:
		return "transfer_completed"
	case Failed:
		return "failed"
	case Left:
		return "left"
	}
	return "unknown"
}

// Coordinator owns the only mutable client state: the participant's
// identity binding and the transfer phase. It is exclusive to one
// participant; commands are serialized by the in-flight guard, never
// queued.
type Coordinator struct {
	sig   core.Signaling
	media core.MediaSession

	mu         sync.Mutex
	id         *domain.SessionIdentity
	phase      Phase
	failedFrom Phase
	pendingErr error
	inFlight   bool
	listener   core.MoveListener
	relisten   func(domain.SessionIdentity) core.MoveListener
	deferred   *deferredMove
}

// deferredMove parks an instruction that arrived while an operator
// command held the in-flight guard.
type deferredMove struct {
	ctx   context.Context
	instr domain.MoveInstruction
}

func NewCoordinator(id *domain.SessionIdentity, sig core.Signaling, media core.MediaSession) *Coordinator {
	return &Coordinator{
		sig:   sig,
		media: media,
		id:    id,
		phase: Connected,
	}
}

// SetListener attaches the move listener whose lifecycle the
// coordinator cancels on Leave.
func (c *Coordinator) SetListener(l core.MoveListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listener = l
}

// SetListenerFactory installs the constructor used to re-arm the move
// listener after a move lands in a holding room, where another move is
// still expected. The factory receives the rebound identity; a
// delivered listener is spent and cannot be reused across rooms.
func (c *Coordinator) SetListenerFactory(f func(domain.SessionIdentity) core.MoveListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.relisten = f
}

func (c *Coordinator) Identity() domain.SessionIdentity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.id
}

func (c *Coordinator) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Err returns the last failure reason, set only while phase is Failed.
func (c *Coordinator) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingErr
}

// Connect performs the initial join: credential for the current room,
// then the media session.
func (c *Coordinator) Connect(ctx context.Context) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	id := c.Identity()
	token, err := c.sig.IssueToken(ctx, id.Room, id.Identity)
	if err != nil {
		c.fail(Connected, err)
		return err
	}
	if err := c.media.Connect(ctx, token); err != nil {
		uerr := &domain.UnrecoverableError{Err: err}
		c.fail(Connected, uerr)
		return uerr
	}
	c.setPhase(Connected)
	log.Info().Str("module", "transfer").Str("room", string(id.Room)).Str("identity", id.Identity).Msg("connected")
	return nil
}

// InitiateTransfer moves the primary agent into a fresh private room,
// leaving the caller parked by the signaling service. Valid only for
// AgentPrimary, phase Connected, no origin room yet.
func (c *Coordinator) InitiateTransfer(ctx context.Context) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	c.mu.Lock()
	if c.id.Role != domain.RoleAgentPrimary || c.id.OriginRoom != "" || c.effectivePhase() != Connected {
		c.mu.Unlock()
		log.Error().Str("module", "transfer").Str("phase", c.Phase().String()).Msg("initiate_transfer rejected")
		return domain.ErrInvalidState
	}
	from := c.id.Room
	c.phase = TransferInitiating
	c.mu.Unlock()

	newRoom, err := c.sig.InitiateTransfer(ctx, from)
	if err != nil {
		// Media is still up; the operator may retry.
		c.fail(Connected, err)
		return err
	}
	if c.discarded() {
		return nil
	}

	c.media.Disconnect()

	id := c.Identity()
	token, err := c.sig.IssueToken(ctx, newRoom, id.Identity)
	if err != nil {
		// Already disconnected; no automatic reconnection without
		// explicit operator action.
		uerr := &domain.UnrecoverableError{Err: err}
		c.fail(TransferInitiating, uerr)
		return uerr
	}
	if err := c.media.Connect(ctx, token); err != nil {
		uerr := &domain.UnrecoverableError{Err: err}
		c.fail(TransferInitiating, uerr)
		return uerr
	}
	if c.discarded() {
		c.media.Disconnect()
		return nil
	}

	c.mu.Lock()
	c.id.OriginRoom = from
	c.id.Rebind(newRoom)
	c.phase = Connected
	c.pendingErr = nil
	c.mu.Unlock()
	log.Info().Str("module", "transfer").Str("from", string(from)).Str("room", string(newRoom)).Msg("moved to transfer room")
	return nil
}

// CompleteTransfer asks the service to pull the parked caller into the
// current room. Defensively rejected when no origin room is recorded,
// regardless of phase.
func (c *Coordinator) CompleteTransfer(ctx context.Context) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	c.mu.Lock()
	if c.id.OriginRoom == "" || c.id.Role != domain.RoleAgentPrimary || c.effectivePhase() != Connected {
		c.mu.Unlock()
		log.Error().Str("module", "transfer").Str("phase", c.Phase().String()).Msg("complete_transfer rejected")
		return domain.ErrInvalidState
	}
	from, to := c.id.OriginRoom, c.id.Room
	c.phase = TransferCompleting
	c.mu.Unlock()

	if err := c.sig.CompleteTransfer(ctx, from, to); err != nil {
		c.fail(Connected, err)
		return err
	}
	if c.discarded() {
		return nil
	}

	c.setPhase(TransferCompleted)
	log.Info().Str("module", "transfer").Str("from", string(from)).Str("to", string(to)).Msg("transfer completed")
	return nil
}

// Leave ends the session from any phase. Always succeeds locally;
// remote cleanup is best-effort. Any in-flight command's eventual
// response is discarded.
func (c *Coordinator) Leave() {
	c.mu.Lock()
	l := c.listener
	c.phase = Left
	c.pendingErr = nil
	c.deferred = nil
	c.mu.Unlock()

	if l != nil {
		l.Stop()
	}
	c.media.Disconnect()
	log.Info().Str("module", "transfer").Msg("left call")
}

// ApplyMove relocates a passively waiting participant. Idempotent: a
// duplicate or stale instruction for a room we already joined is
// logged and dropped. A move arriving while an operator command is
// suspended on a remote call is deferred until that command completes,
// never applied concurrently with it.
func (c *Coordinator) ApplyMove(ctx context.Context, instr domain.MoveInstruction) {
	c.mu.Lock()
	if c.phase == Left {
		c.mu.Unlock()
		return
	}
	if c.inFlight {
		c.deferred = &deferredMove{ctx: ctx, instr: instr}
		c.mu.Unlock()
		log.Info().Str("module", "transfer").Str("room", string(instr.TargetRoom)).Msg("move deferred, command in flight")
		return
	}
	if c.id.Room == instr.TargetRoom && c.media.Connected() {
		c.mu.Unlock()
		log.Info().Str("module", "transfer").Str("room", string(instr.TargetRoom)).Msg("duplicate move instruction ignored")
		return
	}
	c.inFlight = true
	c.mu.Unlock()
	defer c.end()

	c.media.Disconnect()
	if err := c.media.Connect(ctx, instr.Token); err != nil {
		c.fail(TransferPendingRemoteMove, &domain.UnrecoverableError{Err: err})
		log.Error().Err(err).Str("module", "transfer").Str("room", string(instr.TargetRoom)).Msg("reconnect after move failed")
		return
	}

	c.mu.Lock()
	c.id.Rebind(instr.TargetRoom)
	c.phase = Connected
	c.pendingErr = nil
	id := *c.id
	old := c.listener
	factory := c.relisten
	c.mu.Unlock()
	log.Info().Str("module", "transfer").Str("room", string(instr.TargetRoom)).Msg("moved to new room")

	// A holding room means another move is coming; the listener that
	// delivered this one is spent, so arm a fresh one for the new room.
	if domain.IsHoldingRoom(instr.TargetRoom) && !id.IsInitiator() && factory != nil {
		if old != nil {
			old.Stop()
		}
		l := factory(id)
		c.SetListener(l)
		l.Start(ctx)
	}
}

// MarkWaiting flags the someone-left heuristic: presentation only, the
// authoritative signal remains the MoveInstruction.
func (c *Coordinator) MarkWaiting() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == Connected && !c.id.IsInitiator() {
		c.phase = TransferPendingRemoteMove
	}
}

func (c *Coordinator) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return domain.ErrCommandInFlight
	}
	if c.phase == Left {
		return domain.ErrInvalidState
	}
	c.inFlight = true
	return nil
}

func (c *Coordinator) end() {
	c.mu.Lock()
	c.inFlight = false
	d := c.deferred
	c.deferred = nil
	c.mu.Unlock()
	if d != nil {
		c.ApplyMove(d.ctx, d.instr)
	}
}

// effectivePhase folds Failed back to the phase the failure came from,
// so operator retries re-enter the command that failed. Callers hold mu.
func (c *Coordinator) effectivePhase() Phase {
	if c.phase == Failed {
		return c.failedFrom
	}
	return c.phase
}

func (c *Coordinator) setPhase(p Phase) {
	c.mu.Lock()
	c.phase = p
	c.pendingErr = nil
	c.mu.Unlock()
}

func (c *Coordinator) fail(from Phase, err error) {
	c.mu.Lock()
	if c.phase == Left {
		c.mu.Unlock()
		return
	}
	c.phase = Failed
	c.failedFrom = from
	c.pendingErr = err
	c.mu.Unlock()
	log.Error().Err(err).Str("module", "transfer").Str("failed_from", from.String()).Msg("command failed")
}

// discarded reports whether the participant left while a command was
// suspended on a remote call.
func (c *Coordinator) discarded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase == Left
}
