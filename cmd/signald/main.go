package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/ThatGuyChandan/livekit-warm-transfer/internal/adapters/http"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/adapters/llm"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/adapters/pstn"
	wsignal "github.com/ThatGuyChandan/livekit-warm-transfer/internal/adapters/signal"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/app"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/app/orch"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/config"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/core"
)

// streamURL rewrites the public base address into the wss endpoint
// handed to the telephony carrier.
func streamURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://") + "/api/ws"
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://") + "/api/ws"
	default:
		return base + "/api/ws"
	}
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	tokens := app.NewTokenIssuer(cfg.Secret, cfg.TokenTTL)
	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    core.NewRoomManager(),
		Broker:   app.NewMoveBroker(),
		Tokens:   tokens,
	}

	h := &router.Handlers{
		Orch:           o,
		Tokens:         tokens,
		Summarizer:     llm.NewClient(cfg.LLMURL, cfg.LLMKey, cfg.LLMModel),
		Dialer:         pstn.NewClient(cfg.PSTNURL, cfg.PSTNSid, cfg.PSTNToken, cfg.PSTNNumber, cfg.SignalingURL+"/api/voice"),
		MediaStreamURL: streamURL(cfg.SignalingURL),
	}
	wsctl := wsignal.NewWSController(o, tokens, cfg.ReadLimit)

	r := router.SetupRouter(ctx, cfg, h, wsctl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("module", "signald").Str("addr", addr).Msg("signaling service started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
