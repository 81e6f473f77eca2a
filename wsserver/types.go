package wsserver

import (
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mo-shahab/pong-authority/room"
	"github.com/mo-shahab/pong-authority/wire"
)

// PlayerHeader carries the assigned seat in the upgrade response.
const PlayerHeader = "X-Pong-Player"

const maxMessageSize = 1024

type Config struct {
	DefaultCodec  wire.Codec
	SendQueueSize int
	// StaticDir, when set, is served at "/" (the browser client).
	StaticDir string
}

// WebSocketHandler serves the websocket endpoint and the small HTTP API
// around it.
type WebSocketHandler struct {
	Upgrader    websocket.Upgrader
	RoomManager *room.Manager

	cfg Config
	log *zap.Logger
}

type createRoomResponse struct {
	ID string `json:"id"`
}

type errorResponse struct {
	Error string `json:"error"`
}
