package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/wire"
)

func (ctl *WSController) handlePing(conn *WsSignalConn) {
	ctl.sendJSON(conn, wire.Envelope{Type: wire.MsgTypePong})
}

func (ctl *WSController) sendJSON(conn *WsSignalConn, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("marshal")
		return
	}
	if err := conn.TrySend(data); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("send dropped")
	}
}
