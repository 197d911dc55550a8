package notify

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/core"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/domain"
)

// Inband listens for the move_room side-channel message on the live
// media session. Delivery may race the session being torn down from
// our side: the handler compares the delivery epoch against the one it
// captured at registration and in that case still applies the rebind
// (no lost update) while leaving the dead connection alone.
type Inband struct {
	media   core.MediaSession
	apply   core.ApplyMoveFunc
	stopped atomic.Bool
}

func NewInband(media core.MediaSession, apply core.ApplyMoveFunc) *Inband {
	return &Inband{media: media, apply: apply}
}

func (l *Inband) Start(_ context.Context) {
	regEpoch := l.media.Epoch()
	l.media.OnData(domain.MoveRoomSubject, func(epoch uint64, payload core.Frame) {
		if l.stopped.Load() {
			return
		}
		var instr domain.MoveInstruction
		if err := json.Unmarshal(payload, &instr); err != nil || instr.TargetRoom == "" || instr.Token == "" {
			// Unknown or malformed payloads are ignorable events.
			log.Warn().Err(err).Str("module", "notify.inband").Msg("ignoring malformed move payload")
			return
		}
		if epoch != regEpoch {
			log.Debug().Str("module", "notify.inband").Uint64("epoch", epoch).Msg("delivery raced disconnect, applying rebind anyway")
		}
		log.Info().Str("module", "notify.inband").Str("room", string(instr.TargetRoom)).Msg("move instruction received")
		l.apply(instr)
	})
}

// Stop makes further deliveries no-ops. The subscription itself stays
// registered on the session; it is inert once stopped.
func (l *Inband) Stop() {
	l.stopped.Store(true)
}
