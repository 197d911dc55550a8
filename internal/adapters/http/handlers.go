package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/app"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/app/orch"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/core"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/domain"
)

type Handlers struct {
	Orch       *orch.Orchestrator
	Tokens     *app.TokenIssuer
	Summarizer core.Summarizer
	Dialer     core.Dialer
	// MediaStreamURL is the wss address handed to the carrier in the
	// dial-out voice webhook.
	MediaStreamURL string
}

type tokenRequest struct {
	Room     string `form:"room" binding:"required"`
	Identity string `form:"identity" binding:"required"`
	Role     string `form:"role"`
}

func (h *Handlers) Token(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	token, err := h.Tokens.Mint(domain.RoomName(req.Room), req.Identity, domain.ParseRole(req.Role))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *Handlers) CreateRoom(c *gin.Context) {
	name := h.Orch.CreateRoom()
	c.JSON(http.StatusOK, gin.H{"room_name": string(name)})
}

type initiateRequest struct {
	CurrentRoom string `form:"current_room" binding:"required"`
}

func (h *Handlers) InitiateTransfer(c *gin.Context) {
	var req initiateRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	newRoom := h.Orch.InitiateTransfer(domain.RoomName(req.CurrentRoom))
	c.JSON(http.StatusOK, gin.H{"new_room_name": string(newRoom)})
}

type completeRequest struct {
	FromRoom string `form:"from_room" binding:"required"`
	ToRoom   string `form:"to_room" binding:"required"`
}

func (h *Handlers) CompleteTransfer(c *gin.Context) {
	var req completeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	if err := h.Orch.CompleteTransfer(domain.RoomName(req.FromRoom), domain.RoomName(req.ToRoom)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.Status(http.StatusOK)
}

type moveEventsRequest struct {
	Room string `form:"room" binding:"required"`
}

func (h *Handlers) MoveEvents(c *gin.Context) {
	var req moveEventsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	ev, ok := h.Orch.PendingMove(domain.RoomName(req.Room))
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, ev)
}

func (h *Handlers) Rooms(c *gin.Context) {
	c.JSON(http.StatusOK, h.Orch.Rooms.List())
}

type summarizeRequest struct {
	Transcript string `json:"transcript" binding:"required"`
}

func (h *Handlers) Summarize(c *gin.Context) {
	var req summarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	summary, err := h.Summarizer.Summarize(c.Request.Context(), req.Transcript)
	if err != nil {
		if errors.Is(err, core.ErrNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "summarization not configured"})
			return
		}
		log.Error().Err(err).Str("module", "adapters.http").Msg("summarize failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

type voiceRequest struct {
	RoomName string `form:"room_name" binding:"required"`
}

// Voice is the webhook the carrier calls back for a dial-out leg. It
// answers with instructions to stream the call audio to the gateway.
func (h *Handlers) Voice(c *gin.Context) {
	var req voiceRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	twiml := fmt.Sprintf(
		`<?xml version="1.0" encoding="UTF-8"?><Response><Start><Stream url=%q/></Start></Response>`,
		h.MediaStreamURL+"?room="+url.QueryEscape(req.RoomName),
	)
	c.Data(http.StatusOK, "application/xml", []byte(twiml))
}

type dialRequest struct {
	Number string `json:"number" binding:"required"`
	Room   string `json:"room" binding:"required"`
}

func (h *Handlers) Dial(c *gin.Context) {
	var req dialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	if err := h.Dialer.Dial(c.Request.Context(), req.Number, domain.RoomName(req.Room)); err != nil {
		if errors.Is(err, core.ErrNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "dial-out not configured"})
			return
		}
		log.Error().Err(err).Str("module", "adapters.http").Msg("dial failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.Status(http.StatusOK)
}
