// Command client is the terminal front end. With -local it runs both paddles
// on one keyboard; otherwise it joins a server and renders its snapshots.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/mo-shahab/pong-authority/config"
	"github.com/mo-shahab/pong-authority/game"
	"github.com/mo-shahab/pong-authority/input"
	"github.com/mo-shahab/pong-authority/logger"
	"github.com/mo-shahab/pong-authority/paddle"
	"github.com/mo-shahab/pong-authority/remote"
	"github.com/mo-shahab/pong-authority/render"
	"github.com/mo-shahab/pong-authority/wire"
	"github.com/mo-shahab/pong-authority/wsserver"
)

const (
	clearScreen = "\033[H\033[2J"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"
)

type options struct {
	addr    string
	room    string
	player  string
	codec   string
	local   bool
	config  string
	logFile string
}

func main() {
	var opts options
	flag.StringVar(&opts.addr, "addr", "localhost:8080", "server address")
	flag.StringVar(&opts.room, "room", "", "room id (default: the lobby)")
	flag.StringVar(&opts.player, "player", "", "seat to request: player1 or player2")
	flag.StringVar(&opts.codec, "codec", "json", "wire format: json, msgpack or proto")
	flag.BoolVar(&opts.local, "local", false, "play both paddles locally")
	flag.StringVar(&opts.config, "config", "", "configuration file (.yaml or .toml)")
	flag.StringVar(&opts.logFile, "log", "", "write logs to this file")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg, err := config.Load(opts.config)
	if err != nil {
		return err
	}

	log := zap.NewNop()
	if opts.logFile != "" {
		logCfg := cfg.Log
		logCfg.Output = opts.logFile
		if log, err = logger.New(logCfg); err != nil {
			return err
		}
		defer log.Sync()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fd := int(os.Stdin.Fd())
	prev, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("raw terminal: %w", err)
	}
	defer term.Restore(fd, prev)

	fmt.Print(hideCursor)
	defer fmt.Print(showCursor)

	keys := make(chan string, 16)
	go func() {
		if err := input.ReadKeys(os.Stdin, keys); err != nil {
			log.Warn("Keyboard read failed", zap.Error(err))
		}
	}()

	if opts.local {
		return runLocal(ctx, cfg, keys, log)
	}
	return runRemote(ctx, cfg, opts, keys, log)
}

func isQuit(key string) bool {
	return key == "q" || key == input.KeyEscape || key == input.KeyCtrlC
}

func draw(w io.Writer, snap game.Snapshot) {
	cols, rows, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		cols, rows = 80, 24
	}
	frame := render.Frame(snap, cols, rows-1)
	fmt.Fprint(w, clearScreen+strings.ReplaceAll(frame, "\n", "\r\n"))
}

// runLocal simulates in process. Terminals report presses only, so every key
// is an impulse.
func runLocal(ctx context.Context, cfg config.Config, keys <-chan string, log *zap.Logger) error {
	engine, err := game.NewEngine(cfg.Game)
	if err != nil {
		return err
	}

	frames := make(chan game.Snapshot, 1)
	session := game.NewSession(engine, game.SessionConfig{
		TickInterval: cfg.Server.TickInterval,
		ImpulseTicks: cfg.Input.ImpulseTicks,
	}, game.BroadcasterFunc(func(snap game.Snapshot) {
		select {
		case <-frames:
		default:
		}
		frames <- snap
	}), log.Named("session"))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- session.Run(ctx) }()

	bindings := input.Default()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-done:
			draw(os.Stdout, session.Snapshot())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case snap := <-frames:
			draw(os.Stdout, snap)
		case key, ok := <-keys:
			if !ok || isQuit(key) {
				return nil
			}
			if ev, ok := bindings.Translate(key, true); ok {
				session.Impulse(ev.Side, ev.Direction)
			}
		}
	}
}

func runRemote(ctx context.Context, cfg config.Config, opts options, keys <-chan string, log *zap.Logger) error {
	codec, err := wire.ByName(opts.codec)
	if err != nil {
		return err
	}

	query := url.Values{}
	query.Set("codec", codec.Name())
	if opts.room != "" {
		query.Set("room", opts.room)
	}
	if opts.player != "" {
		query.Set("player", opts.player)
	}
	u := url.URL{Scheme: "ws", Host: opts.addr, Path: "/ws", RawQuery: query.Encode()}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("join %s: %s", u.String(), resp.Status)
		}
		return fmt.Errorf("join %s: %w", u.String(), err)
	}
	defer conn.Close()

	role, _ := paddle.ParseSide(resp.Header.Get(wsserver.PlayerHeader))
	log.Info("Joined", zap.String("url", u.String()), zap.Stringer("role", role))

	// The wire carries positions only; dimensions come from the local config.
	engine, err := game.NewEngine(cfg.Game)
	if err != nil {
		return err
	}
	proj := remote.New(engine, codec, conn, log.Named("remote"))

	redraw := make(chan struct{}, 1)
	readErr := make(chan error, 1)
	go func() {
		for {
			_, p, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			if err := proj.Receive(p); err != nil {
				log.Warn("Dropping snapshot", zap.Error(err))
				continue
			}
			select {
			case redraw <- struct{}{}:
			default:
			}
		}
	}()

	bindings := input.Default().ForRole(role)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("connection lost: %w", err)
		case <-redraw:
			draw(os.Stdout, proj.Snapshot())
		case key, ok := <-keys:
			if !ok || isQuit(key) {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return nil
			}
			if ev, ok := bindings.Translate(key, true); ok {
				if err := proj.Tap(ev.Side, ev.Direction); err != nil {
					log.Warn("Failed to send input", zap.Error(err))
				}
			}
		}
	}
}
