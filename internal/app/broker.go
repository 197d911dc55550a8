package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/domain"
)

// moveEventTTL bounds how long an unclaimed move event stays pending.
const moveEventTTL = 5 * time.Minute

type pendingMove struct {
	ev       domain.MoveEvent
	postedAt time.Time
}

// MoveBroker stores the latest pending move event per room. Delivery
// is at-least-once: polling does not consume the event, consumers are
// expected to apply moves idempotently.
type MoveBroker struct {
	mu      sync.RWMutex
	pending map[domain.RoomName]pendingMove
}

func NewMoveBroker() *MoveBroker {
	return &MoveBroker{pending: make(map[domain.RoomName]pendingMove)}
}

func (b *MoveBroker) Publish(room domain.RoomName, ev domain.MoveEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[room] = pendingMove{ev: ev, postedAt: time.Now()}
	log.Info().Str("module", "app.broker").Str("room", string(room)).Str("new_room", string(ev.NewRoom)).Msg("move event published")
}

func (b *MoveBroker) Pending(room domain.RoomName) (domain.MoveEvent, bool) {
	b.mu.RLock()
	p, ok := b.pending[room]
	b.mu.RUnlock()
	if !ok {
		return domain.MoveEvent{}, false
	}
	if time.Since(p.postedAt) > moveEventTTL {
		b.mu.Lock()
		delete(b.pending, room)
		b.mu.Unlock()
		return domain.MoveEvent{}, false
	}
	return p.ev, true
}

func (b *MoveBroker) Clear(room domain.RoomName) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, room)
}
