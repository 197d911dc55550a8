// Package signal is the gateway's WebSocket controller: membership,
// side-channel relay and the answerer half of media setup.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/app"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/app/orch"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/core"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

type WSController struct {
	Orch      *orch.Orchestrator
	Tokens    *app.TokenIssuer
	ReadLimit int64
}

func NewWSController(o *orch.Orchestrator, tokens *app.TokenIssuer, readLimit int64) *WSController {
	return &WSController{Orch: o, Tokens: tokens, ReadLimit: readLimit}
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSession authenticates the issued token, upgrades, joins the
// member to the room the token is scoped to and runs the pumps.
func (ctl *WSController) HandleSession(ctx context.Context, c *gin.Context) {
	claims, err := ctl.Tokens.Verify(c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "invalid token"})
		return
	}

	sid := core.SessionID(uuid.NewString())
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", string(claims.Room)).Str("identity", claims.Identity).Msg("new gateway connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}

	meta, err := domain.NewParticipant(claims.Identity, claims.Role)
	if err != nil {
		conn.Close()
		return
	}
	sess := core.NewMemberSession(meta, conn)
	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.Registry.Bind(sid, "", sess, cancel)
	ctl.Orch.Join(sid, claims.Room)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, sid, conn)
}
