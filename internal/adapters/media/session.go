// Package media implements the client MediaSession over the gateway
// WebSocket plus a pion peer connection for the audio path.
package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/core"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/wire"
)

const (
	writeWait         = 5 * time.Second
	answerTimeout     = 15 * time.Second
	sendBuffer        = 32
	defaultPingPeriod = 54 * time.Second
)

var ErrNotConnected = errors.New("media session not connected")

// Session joins one room at a time. Handler registrations live on the
// Session and survive reconnects; the epoch separates deliveries that
// belong to a torn-down connection from live ones.
type Session struct {
	gatewayURL string
	pingPeriod time.Duration

	mu        sync.Mutex
	conn      *websocket.Conn
	cancel    context.CancelFunc
	connected bool

	// send and pc are guarded separately: pion callbacks enqueue
	// candidates and the read pump feeds candidates to the peer while
	// Connect still holds mu.
	sendMu sync.Mutex
	send   chan []byte

	pcMu sync.Mutex
	pc   *peer

	epoch atomic.Uint64

	handlerMu sync.RWMutex
	handlers  map[string][]core.DataHandler
	presence  core.PresenceHandler
}

// NewSession takes the gateway WebSocket URL, e.g. ws://host/api/ws.
func NewSession(gatewayURL string) *Session {
	return &Session{
		gatewayURL: gatewayURL,
		pingPeriod: defaultPingPeriod,
		handlers:   make(map[string][]core.DataHandler),
	}
}

// WithPingPeriod sets the keepalive interval. The period must undercut
// the gateway's read deadline or idle sessions get dropped.
func (s *Session) WithPingPeriod(d time.Duration) *Session {
	if d > 0 {
		s.pingPeriod = d
	}
	return s
}

func (s *Session) Connect(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected {
		return errors.New("media session already connected")
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.gatewayURL+"?token="+token, nil)
	if err != nil {
		return fmt.Errorf("gateway dial: %w", err)
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	send := make(chan []byte, sendBuffer)
	answerCh := make(chan string, 1)

	s.conn = conn
	s.cancel = cancel
	s.sendMu.Lock()
	s.send = send
	s.sendMu.Unlock()

	go s.writePump(pumpCtx, conn, send)
	go s.readPump(pumpCtx, conn, answerCh)

	pc, err := newPeer(func(ci webrtc.ICECandidateInit) {
		data, err := json.Marshal(ci)
		if err != nil {
			return
		}
		s.trySend(wire.Envelope{Type: wire.MsgTypeCandidate, Candidate: data})
	})
	if err != nil {
		s.teardownLocked()
		return fmt.Errorf("create peer: %w", err)
	}
	s.pcMu.Lock()
	s.pc = pc
	s.pcMu.Unlock()

	offer, err := pc.createOffer()
	if err != nil {
		s.teardownLocked()
		return fmt.Errorf("create offer: %w", err)
	}
	if err := s.trySend(wire.Envelope{Type: wire.MsgTypeOffer, SDP: offer.SDP}); err != nil {
		s.teardownLocked()
		return err
	}

	select {
	case sdp := <-answerCh:
		if err := pc.applyAnswer(sdp); err != nil {
			s.teardownLocked()
			return fmt.Errorf("apply answer: %w", err)
		}
	case <-time.After(answerTimeout):
		s.teardownLocked()
		return errors.New("timed out waiting for answer")
	case <-ctx.Done():
		s.teardownLocked()
		return ctx.Err()
	}

	s.connected = true
	log.Info().Str("module", "media").Msg("session connected")
	return nil
}

func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected && s.conn == nil {
		return
	}
	s.teardownLocked()
	s.epoch.Add(1)
	log.Info().Str("module", "media").Uint64("epoch", s.epoch.Load()).Msg("session disconnected")
}

// teardownLocked releases connection resources. Caller holds mu.
func (s *Session) teardownLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.pcMu.Lock()
	if s.pc != nil {
		s.pc.close()
		s.pc = nil
	}
	s.pcMu.Unlock()
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.sendMu.Lock()
	s.send = nil
	s.sendMu.Unlock()
	s.connected = false
}

func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Session) Epoch() uint64 { return s.epoch.Load() }

func (s *Session) SendData(subject string, payload core.Frame) error {
	frame, err := wire.Data(subject, payload)
	if err != nil {
		return err
	}
	return s.enqueue(frame)
}

func (s *Session) OnData(subject string, fn core.DataHandler) {
	s.handlerMu.Lock()
	defer s.handlerMu.Unlock()
	s.handlers[subject] = append(s.handlers[subject], fn)
}

func (s *Session) OnPresence(fn core.PresenceHandler) {
	s.handlerMu.Lock()
	defer s.handlerMu.Unlock()
	s.presence = fn
}

func (s *Session) trySend(env wire.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return s.enqueue(data)
}

func (s *Session) enqueue(frame []byte) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.send == nil {
		return ErrNotConnected
	}
	select {
	case s.send <- frame:
		return nil
	default:
		return errors.New("send buffer full")
	}
}

func (s *Session) writePump(ctx context.Context, conn *websocket.Conn, send <-chan []byte) {
	ping, _ := json.Marshal(wire.Envelope{Type: wire.MsgTypePing})
	ticker := time.NewTicker(s.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, ping); err != nil {
				log.Error().Err(err).Str("module", "media").Msg("keepalive write error")
				return
			}
		case data, ok := <-send:
			if !ok {
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "media").Msg("write error")
				return
			}
		}
	}
}

func (s *Session) readPump(ctx context.Context, conn *websocket.Conn, answerCh chan<- string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Str("module", "media").Msg("read pump ended")
			return
		}
		s.handleFrame(data, answerCh)
	}
}

func (s *Session) handleFrame(data []byte, answerCh chan<- string) {
	var env wire.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "media").Msg("bad gateway frame")
		return
	}
	switch env.Type {
	case wire.MsgTypeAnswer:
		select {
		case answerCh <- env.SDP:
		default:
		}
	case wire.MsgTypeCandidate:
		var ci webrtc.ICECandidateInit
		if err := json.Unmarshal(env.Candidate, &ci); err != nil {
			return
		}
		s.pcMu.Lock()
		pc := s.pc
		s.pcMu.Unlock()
		if pc != nil {
			if err := pc.addICECandidate(ci); err != nil {
				log.Warn().Err(err).Str("module", "media").Msg("add candidate")
			}
		}
	case wire.MsgTypeData:
		epoch := s.epoch.Load()
		s.handlerMu.RLock()
		fns := s.handlers[env.Subject]
		s.handlerMu.RUnlock()
		for _, fn := range fns {
			fn(epoch, core.Frame(env.Payload))
		}
	case wire.MsgTypePresence:
		s.handlerMu.RLock()
		fn := s.presence
		s.handlerMu.RUnlock()
		if fn != nil {
			fn(env.Count, env.Members)
		}
	case wire.MsgTypePong:
		// keepalive, nothing to do
	default:
		// Unknown types are ignorable by contract.
	}
}
