package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mo-shahab/pong-authority/config"
	"github.com/mo-shahab/pong-authority/game"
	"github.com/mo-shahab/pong-authority/logger"
	"github.com/mo-shahab/pong-authority/room"
	"github.com/mo-shahab/pong-authority/wire"
	"github.com/mo-shahab/pong-authority/wsserver"
)

const shutdownGrace = 5 * time.Second

func main() {
	configFile := flag.String("config", "", "configuration file (.yaml or .toml)")
	flag.Parse()

	if err := run(*configFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	codec, err := wire.ByName(cfg.Server.Codec)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rooms, err := room.NewManager(ctx, room.Config{
		Game: cfg.Game,
		Session: game.SessionConfig{
			TickInterval: cfg.Server.TickInterval,
			ImpulseTicks: cfg.Input.ImpulseTicks,
		},
		MaxRooms:           cfg.Server.MaxRooms,
		WaitingRoomTimeout: cfg.Server.WaitingRoomTimeout,
	}, log.Named("room"))
	if err != nil {
		return err
	}
	// Hijacked websocket connections outlive srv.Shutdown; closing the rooms
	// closes them.
	defer rooms.Shutdown()

	wsh := wsserver.NewWebSocketHandler(rooms, wsserver.Config{
		DefaultCodec:  codec,
		SendQueueSize: cfg.Server.SendQueueSize,
		StaticDir:     cfg.Server.StaticDir,
	}, log.Named("ws"))

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           wsh.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server starting",
			zap.String("addr", cfg.Server.Addr),
			zap.String("codec", codec.Name()),
			zap.Duration("tick", cfg.Server.TickInterval))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("Server shutdown incomplete", zap.Error(err))
	}
	return nil
}
