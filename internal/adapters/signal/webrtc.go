package signal

import (
	"context"
	"encoding/json"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/adapters/rtc"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/core"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/wire"
)

func (ctl *WSController) handleOffer(ctx context.Context, sid core.SessionID, c *WsSignalConn, env wire.Envelope) {
	sess, ok := ctl.Orch.Registry.GetSession(sid)
	if !ok {
		return
	}

	mc, err := rtc.NewWebRTCConnection(rtc.DefaultWebRTCConfig(), sid)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("create peer")
		return
	}
	mc.OnICECandidate(func(ci webrtc.ICECandidateInit) {
		data, err := json.Marshal(ci)
		if err != nil {
			return
		}
		ctl.sendJSON(c, wire.Envelope{Type: wire.MsgTypeCandidate, Candidate: data})
	})
	mc.OnClosed(func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("media closed")
	})
	if err := mc.Start(ctx); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("start peer")
		return
	}
	sess.UpdateMedia(mc)

	answer, err := mc.ApplyOfferAndCreateAnswer(webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  env.SDP,
	})
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("answer")
		return
	}
	ctl.sendJSON(c, wire.Envelope{Type: wire.MsgTypeAnswer, SDP: answer.SDP})
}

func (ctl *WSController) handleCandidate(sid core.SessionID, env wire.Envelope) {
	sess, ok := ctl.Orch.Registry.GetSession(sid)
	if !ok || sess.Media() == nil {
		return
	}
	var ci webrtc.ICECandidateInit
	if err := json.Unmarshal(env.Candidate, &ci); err != nil {
		return
	}
	if err := sess.Media().AddICECandidate(ci); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("add candidate")
	}
}
