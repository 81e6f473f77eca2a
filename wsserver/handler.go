// wsserver/handler.go

package wsserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mo-shahab/pong-authority/client"
	"github.com/mo-shahab/pong-authority/paddle"
	"github.com/mo-shahab/pong-authority/room"
	"github.com/mo-shahab/pong-authority/wire"
)

// NewWebSocketHandler creates a handler that places connections into rooms
// owned by rooms.
func NewWebSocketHandler(rooms *room.Manager, cfg Config, log *zap.Logger) *WebSocketHandler {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.DefaultCodec == nil {
		cfg.DefaultCodec = wire.JSON
	}
	if cfg.SendQueueSize < 1 {
		cfg.SendQueueSize = 32
	}
	return &WebSocketHandler{
		Upgrader:    websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		RoomManager: rooms,
		cfg:         cfg,
		log:         log,
	}
}

// Routes returns the HTTP handler with every endpoint registered.
func (wsh *WebSocketHandler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /ws", wsh)
	mux.HandleFunc("POST /rooms", wsh.handleCreateRoom)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if wsh.cfg.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(wsh.cfg.StaticDir)))
	}
	return mux
}

func (wsh *WebSocketHandler) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	rm, err := wsh.RoomManager.Create()
	if err != nil {
		wsh.log.Warn("Failed to create room", zap.Error(err))
		writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, createRoomResponse{ID: rm.ID})
}

// ServeHTTP handles WebSocket connections:
//
//	GET /ws?room=<id>&player=player1|player2&codec=json|proto|msgpack
//
// All parameters are optional.
func (wsh *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	want := paddle.None
	if name := query.Get("player"); name != "" {
		side, ok := paddle.ParseSide(name)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown player " + name})
			return
		}
		want = side
	}

	codec := wsh.cfg.DefaultCodec
	if name := query.Get("codec"); name != "" {
		c, err := wire.ByName(name)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		codec = c
	}

	c := client.New(nil, codec, wsh.cfg.SendQueueSize, wsh.log)
	rm, err := wsh.RoomManager.Join(query.Get("room"), c, want)
	if err != nil {
		wsh.log.Info("Join rejected", zap.String("room", query.Get("room")), zap.Error(err))
		writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
		return
	}
	defer func() {
		wsh.RoomManager.Leave(rm, c)
		c.Close()
	}()

	header := http.Header{}
	header.Set(PlayerHeader, c.Role.Player())
	conn, err := wsh.Upgrader.Upgrade(w, r, header)
	if err != nil {
		wsh.log.Warn("Upgrade failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(maxMessageSize)
	c.Attach(conn)

	log := wsh.log.With(
		zap.String("client", c.ID),
		zap.String("room", rm.ID),
		zap.String("player", c.Role.Player()),
		zap.String("codec", codec.Name()))
	log.Info("Client connected")

	if err := rm.SendSnapshot(c); err != nil {
		log.Error("Failed to encode initial snapshot", zap.Error(err))
	}

	go func() {
		if err := c.WritePump(); err != nil {
			log.Debug("Write pump stopped", zap.Error(err))
		}
		c.Close()
	}()

	for {
		_, p, err := conn.ReadMessage()
		if err != nil {
			log.Info("Client disconnected", zap.Error(err))
			return
		}
		wsh.handleMessage(rm, c, p, log)
	}
}

// handleMessage applies one inbound frame. Malformed or unauthorized input is
// dropped.
func (wsh *WebSocketHandler) handleMessage(rm *room.Room, c *client.Client, p []byte, log *zap.Logger) {
	in, err := c.Codec.DecodeInput(p)
	if err != nil {
		log.Debug("Ignoring malformed input", zap.Error(err))
		return
	}
	cmd, err := in.Resolve()
	if err != nil {
		log.Debug("Ignoring invalid input", zap.Error(err))
		return
	}
	if err := rm.HandleInput(c, cmd); err != nil {
		log.Debug("Ignoring input", zap.Stringer("side", cmd.Side), zap.Error(err))
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, room.ErrSeatTaken):
		return http.StatusConflict
	case errors.Is(err, room.ErrRoomClosed):
		return http.StatusGone
	case errors.Is(err, room.ErrTooManyRooms):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
