package http

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/adapters/signal"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/config"
)

func SetupRouter(ctx context.Context, cfg *config.Config, h *Handlers, wsctl *signal.WSController) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	log.Info().Str("module", "adapters.http").Msg("router setup")

	api := r.Group("/api")

	api.POST("/token", h.Token)
	api.POST("/create_room", h.CreateRoom)
	api.POST("/initiate_transfer", h.InitiateTransfer)
	api.POST("/complete_transfer", h.CompleteTransfer)
	api.GET("/move_events", h.MoveEvents)
	api.GET("/rooms", h.Rooms)
	api.POST("/summarize", h.Summarize)
	api.POST("/dial", h.Dial)
	api.POST("/voice", h.Voice)

	api.GET("/ws", func(c *gin.Context) {
		wsctl.HandleSession(ctx, c)
	})

	return r
}
