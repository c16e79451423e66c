package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/portrait/portrait/internal/auth"
	"github.com/portrait/portrait/internal/canvas"
	"github.com/portrait/portrait/internal/config"
	"github.com/portrait/portrait/internal/discovery"
	"github.com/portrait/portrait/internal/grid"
	"github.com/portrait/portrait/internal/history"
	"github.com/portrait/portrait/internal/interaction"
	"github.com/portrait/portrait/internal/protocol"
	"github.com/portrait/portrait/internal/store"
	"github.com/portrait/portrait/internal/transport"
	"github.com/portrait/portrait/internal/tui"
	"github.com/portrait/portrait/internal/typeid"
)

const (
	browseTimeout  = 3 * time.Second
	connectTimeout = 10 * time.Second
	inboundBuffer  = 256
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override client config path (optional)")
	relayURL := flag.String("url", "", "relay WebSocket URL, e.g. ws://localhost:8080/ws (optional, discovered over mDNS when unset)")
	room := flag.String("room", "", "room to join (optional)")
	token := flag.String("token", "", "auth token (optional, a dev token is requested when unset)")
	fresh := flag.Bool("new", false, "start a new room with a generated id (overrides -room)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadClient(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "portrait: load config: %v\n", err)
		return 1
	}
	if *relayURL != "" {
		cfg.RelayURL = *relayURL
	}
	if *room != "" {
		cfg.Room = *room
	}
	if *token != "" {
		cfg.Token = *token
	}
	if *fresh {
		cfg.Room = typeid.NewRoomID()
		fmt.Fprintf(os.Stderr, "portrait: new room %s\n", cfg.Room)
	}

	closeLog, err := setupLogging(cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "portrait: %v\n", err)
		return 1
	}
	defer closeLog()

	if err := runCanvas(ctx, cfg); err != nil {
		slog.Error("canvas exited", "error", err)
		fmt.Fprintf(os.Stderr, "portrait: %v\n", err)
		return 1
	}
	return 0
}

// setupLogging sends slog output to path; the terminal belongs to the UI.
func setupLogging(path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return func() { f.Close() }, nil
}

func runCanvas(ctx context.Context, cfg config.Client) error {
	if cfg.RelayURL == "" {
		url, err := discovery.First(ctx, browseTimeout)
		if err != nil {
			return fmt.Errorf("find relay (set relay_url or -url): %w", err)
		}
		slog.Info("discovered relay", "url", url)
		cfg.RelayURL = url
	}
	base := store.HTTPBase(cfg.RelayURL)

	userID := ""
	if cfg.Token == "" {
		tok, user, err := auth.RequestDevToken(ctx, base, "", nil)
		if err != nil {
			return fmt.Errorf("no token configured: %w", err)
		}
		cfg.Token, userID = tok, user
	}

	// stop runs before conn.Close so a blocked OnMessage can return.
	runCtx, stop := context.WithCancel(ctx)

	inbound := make(chan protocol.Message, inboundBuffer)
	disconnected := make(chan error, 1)

	dialCtx, cancelDial := context.WithTimeout(ctx, connectTimeout)
	conn, err := transport.Dial(dialCtx, cfg.RelayURL, transport.Options{
		Token: cfg.Token,
		OnMessage: func(m protocol.Message) {
			select {
			case inbound <- m:
			case <-runCtx.Done():
			}
		},
		OnDisconnect: func(err error) {
			if !errors.Is(err, transport.ErrClosed) {
				disconnected <- err
			}
		},
	})
	cancelDial()
	if err != nil {
		stop()
		return err
	}
	defer conn.Close()
	defer stop()
	slog.Info("connected", "relay", cfg.RelayURL, "room", cfg.Room, "user", userID)

	c := canvas.New(canvas.Options{RoomID: cfg.Room, Sender: conn})

	// Join before hydrating so no edit falls between the history snapshot
	// and the live stream. Live messages wait in inbound until settled.
	if err := conn.Send(protocol.JoinRoom(cfg.Room)); err != nil {
		return fmt.Errorf("join room: %w", err)
	}
	early := drain(inbound)
	fetchCtx, cancelFetch := context.WithTimeout(ctx, connectTimeout)
	err = c.Hydrate(fetchCtx, store.NewClient(base, cfg.Token, nil))
	cancelFetch()
	if err != nil {
		slog.Warn("starting without history", "room", cfg.Room, "error", err)
		// Nothing to dedupe against; keep every buffered edit.
		c.Settle(nil, append(early, drain(inbound)...))
	} else {
		c.Settle(early, drain(inbound))
	}

	g := grid.New(cfg.GridSpacing)
	g.Visible = cfg.GridVisible
	g.Snap = cfg.GridSnap

	mgr := interaction.New(interaction.Options{
		Canvas:  c,
		Grid:    g,
		History: history.New(cfg.HistoryLimit),
		Style:   cfg.Style,
	})

	return tui.Run(ctx, tui.Options{
		Canvas:       c,
		Manager:      mgr,
		Inbound:      inbound,
		Disconnected: disconnected,
		CellWidth:    cfg.CellWidth,
		CellHeight:   cfg.CellHeight,
		UserID:       userID,
	})
}

// drain takes whatever is queued on ch without waiting.
func drain(ch <-chan protocol.Message) []protocol.Message {
	var out []protocol.Message
	for {
		select {
		case m := <-ch:
			out = append(out, m)
		default:
			return out
		}
	}
}
