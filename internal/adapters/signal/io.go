package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/core"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/wire"
)

func (ctl *WSController) writePump(ctx context.Context, c *WsSignalConn) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("write error")
				return
			}
		}
	}
}

func (ctl *WSController) readPump(ctx context.Context, sid core.SessionID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("read pump closing")
		ctl.Orch.KickBySID(sid)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("read ended")
				return
			}
			ctl.handleFrame(ctx, sid, c, data)
		}
	}
}

func (ctl *WSController) handleFrame(ctx context.Context, sid core.SessionID, c *WsSignalConn, data []byte) {
	var env wire.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}

	switch env.Type {
	case wire.MsgTypeOffer:
		ctl.handleOffer(ctx, sid, c, env)
	case wire.MsgTypeCandidate:
		ctl.handleCandidate(sid, env)
	case wire.MsgTypeData:
		ctl.handleData(sid, env)
	case wire.MsgTypePing:
		ctl.handlePing(c)
	default:
		// Unknown frame types are ignored, not errors.
	}
}

// handleData stamps the sender and relays the frame to room mates.
func (ctl *WSController) handleData(sid core.SessionID, env wire.Envelope) {
	if sess, ok := ctl.Orch.Registry.GetSession(sid); ok {
		env.From = sess.Meta().Identity
	}
	frame, err := json.Marshal(env)
	if err != nil {
		return
	}
	ctl.Orch.OnFrame(sid, frame)
}
