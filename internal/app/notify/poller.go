// Package notify delivers the "you have been moved" instruction to a
// participant who is waiting passively. Two interchangeable
// strategies: in-band over the media side-channel, and resilient
// polling against the signaling service.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/core"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/domain"
)

const (
	DefaultPollInterval = 1 * time.Second
	DefaultPollBackoff  = 5 * time.Second
)

// Poller asks the signaling service for a pending move event until one
// arrives, then resolves a credential and applies the move exactly
// once. A single goroutine issues the requests, so polls never overlap.
type Poller struct {
	sig      core.Signaling
	id       domain.SessionIdentity
	apply    core.ApplyMoveFunc
	interval time.Duration
	backoff  time.Duration

	// OnWaiting, when set, fires once if room occupancy drops to one
	// while we are not the initiator. Presentation hint only.
	OnWaiting func()

	mu     sync.Mutex
	cancel context.CancelFunc
	once   sync.Once
}

func NewPoller(sig core.Signaling, id domain.SessionIdentity, apply core.ApplyMoveFunc) *Poller {
	return &Poller{
		sig:      sig,
		id:       id,
		apply:    apply,
		interval: DefaultPollInterval,
		backoff:  DefaultPollBackoff,
	}
}

// WithDelays overrides the poll cadence. Used by deployments with
// different signaling latency profiles.
func (p *Poller) WithDelays(interval, backoff time.Duration) *Poller {
	p.interval = interval
	p.backoff = backoff
	return p
}

// WatchPresence wires the early-warning heuristic onto a media
// session: the other party disconnecting hints that a transfer has
// started. Authoritative signal remains the move event.
func (p *Poller) WatchPresence(media core.MediaSession) {
	var once sync.Once
	media.OnPresence(func(count int, _ []string) {
		if count == 1 && p.id.Role != domain.RoleAgentPrimary {
			once.Do(func() {
				log.Info().Str("module", "notify.poll").Str("room", string(p.id.Room)).Msg("occupancy dropped, waiting for transfer")
				if p.OnWaiting != nil {
					p.OnWaiting()
				}
			})
		}
	})
}

func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	ctx, p.cancel = context.WithCancel(ctx)
	p.mu.Unlock()
	go p.run(ctx)
}

// Stop ends polling permanently. Safe to call more than once and
// concurrently with delivery.
func (p *Poller) Stop() {
	p.once.Do(func() {
		p.mu.Lock()
		if p.cancel != nil {
			p.cancel()
		}
		p.mu.Unlock()
	})
}

func (p *Poller) run(ctx context.Context) {
	defer p.Stop()
	delay := p.interval
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		ev, err := p.sig.PollMoveEvent(ctx, p.id.Room)
		if err != nil {
			// Continued waiting, never a user-facing error.
			if !domain.IsTransient(err) {
				log.Warn().Err(err).Str("module", "notify.poll").Msg("unexpected poll failure")
			}
			delay = p.backoff
			continue
		}
		if ev == nil {
			delay = p.interval
			continue
		}

		token, err := p.sig.IssueToken(ctx, ev.NewRoom, p.id.Identity)
		if err != nil {
			log.Warn().Err(err).Str("module", "notify.poll").Str("room", string(ev.NewRoom)).Msg("credential fetch failed, retrying")
			delay = p.backoff
			continue
		}

		log.Info().Str("module", "notify.poll").Str("room", string(ev.NewRoom)).Msg("move event received")
		p.apply(domain.MoveInstruction{TargetRoom: ev.NewRoom, Token: token})
		return
	}
}
