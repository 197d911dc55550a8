// Command agent is the terminal participant client: it joins a room as
// caller, primary agent or secondary agent and drives warm transfers.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/adapters/media"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/adapters/signaling"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/app/notify"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/app/transfer"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/config"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/core"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/domain"
)

func main() {
	var (
		room     = pflag.String("room", "", "room name to join")
		identity = pflag.String("identity", "", "display name")
		role     = pflag.String("role", "", "caller | agentA | agentB (defaults to caller)")
		fromRoom = pflag.String("from-room", "", "origin room when re-entering as the initiating agent")
		strategy = pflag.String("listen-strategy", "", "polling | inband (overrides config)")
		debug    = pflag.Bool("debug", false, "verbose logging")
	)
	pflag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if *strategy != "" {
		cfg.ListenStrategy = *strategy
	}

	id, err := domain.ResolveIdentity(*room, *identity, *role, *fromRoom)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid entry parameters")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sig := signaling.NewClient(cfg.SignalingURL)
	session := media.NewSession(gatewayURL(cfg.SignalingURL)).WithPingPeriod(cfg.PingPeriod)
	coord := transfer.NewCoordinator(id, sig, session)

	if err := coord.Connect(ctx); err != nil {
		log.Fatal().Err(err).Msg("could not join room")
	}

	if !id.IsInitiator() {
		startListener(ctx, cfg, sig, session, coord)
	}

	if domain.IsHoldingRoom(coord.Identity().Room) {
		fmt.Println("Please hold, we are transferring you...")
	} else {
		fmt.Printf("Joined %q as %s (%s)\n", coord.Identity().Room, id.Identity, id.Role)
	}

	runPrompt(ctx, cfg, sig, coord)
	coord.Leave()
}

func gatewayURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://") + "/api/ws"
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://") + "/api/ws"
	default:
		return base + "/api/ws"
	}
}

func startListener(ctx context.Context, cfg *config.Config, sig core.Signaling, session core.MediaSession, coord *transfer.Coordinator) {
	apply := func(instr domain.MoveInstruction) {
		coord.ApplyMove(ctx, instr)
		if cur := coord.Identity().Room; !domain.IsHoldingRoom(cur) {
			fmt.Printf("\nYou have been connected to %q\n> ", cur)
		}
	}

	if cfg.ListenStrategy == config.ListenInband {
		// Subscriptions survive reconnects, one listener covers every room.
		l := notify.NewInband(session, apply)
		coord.SetListener(l)
		l.Start(ctx)
		return
	}

	// A poller is spent once it delivers, and it polls for the room its
	// identity was bound to at construction. The factory lets the
	// coordinator arm a fresh one after parking in a holding room.
	factory := func(id domain.SessionIdentity) core.MoveListener {
		p := notify.NewPoller(sig, id, apply).
			WithDelays(cfg.PollInterval, cfg.PollBackoff)
		p.WatchPresence(session)
		p.OnWaiting = func() {
			coord.MarkWaiting()
			fmt.Println("\nThe agent stepped away, transferring you shortly...")
		}
		return p
	}
	coord.SetListenerFactory(factory)
	l := factory(coord.Identity())
	coord.SetListener(l)
	l.Start(ctx)
}

func runPrompt(ctx context.Context, cfg *config.Config, sig core.Signaling, coord *transfer.Coordinator) {
	in := bufio.NewScanner(os.Stdin)
	printHelp(coord.Identity().Role)

	for {
		fmt.Print("> ")
		if !in.Scan() {
			return
		}
		cmd, arg, _ := strings.Cut(strings.TrimSpace(in.Text()), " ")

		select {
		case <-ctx.Done():
			return
		default:
		}

		switch cmd {
		case "":
		case "transfer":
			if err := coord.InitiateTransfer(ctx); err != nil {
				fmt.Println("transfer failed:", err)
				continue
			}
			fmt.Printf("Now in private room %q. Invite agent B with:\n", coord.Identity().Room)
			fmt.Printf("  agent --room %s --identity agentB --role agentB\n", coord.Identity().Room)
		case "complete":
			if err := coord.CompleteTransfer(ctx); err != nil {
				fmt.Println("complete failed:", err)
				continue
			}
			fmt.Println("Transfer complete! The caller has been connected. Type 'leave' to exit.")
		case "summarize":
			summary, err := sig.Summarize(ctx, arg)
			if err != nil {
				fmt.Println("summarize unavailable:", err)
				continue
			}
			fmt.Println(summary)
		case "dial":
			if err := sig.DialOut(ctx, arg, coord.Identity().Room); err != nil {
				fmt.Println("dial unavailable:", err)
				continue
			}
			fmt.Println("Dialing", arg)
		case "status":
			fmt.Printf("phase=%s room=%s origin=%s\n", coord.Phase(), coord.Identity().Room, coord.Identity().OriginRoom)
			if err := coord.Err(); err != nil {
				fmt.Println("last error:", err)
			}
		case "leave", "quit", "exit":
			return
		case "help":
			printHelp(coord.Identity().Role)
		default:
			fmt.Println("unknown command; try 'help'")
		}
	}
}

func printHelp(role domain.Role) {
	fmt.Println("commands: status, summarize <text>, dial <number>, leave")
	if role == domain.RoleAgentPrimary {
		fmt.Println("agent commands: transfer (open private room), complete (move caller over)")
	}
}
