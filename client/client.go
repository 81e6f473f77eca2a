package client

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mo-shahab/pong-authority/paddle"
	"github.com/mo-shahab/pong-authority/wire"
)

const writeWait = 5 * time.Second

// Client is one websocket connection to the server. Role is None for
// spectators.
type Client struct {
	ID        string
	SendQueue chan []byte
	Codec     wire.Codec
	Role      paddle.Side
	RoomID    string

	mu        sync.Mutex
	conn      *websocket.Conn
	done      chan struct{}
	closeOnce sync.Once
	log       *zap.Logger
}

func New(conn *websocket.Conn, codec wire.Codec, queueSize int, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.NewString()
	return &Client{
		ID:        id,
		conn:      conn,
		SendQueue: make(chan []byte, queueSize),
		Codec:     codec,
		done:      make(chan struct{}),
		log:       log.With(zap.String("client", id)),
	}
}

// Enqueue queues a frame without blocking. A full queue drops the frame.
func (c *Client) Enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.SendQueue <- msg:
		return true
	default:
		c.log.Warn("Dropping message, send queue full", zap.String("room", c.RoomID))
		return false
	}
}

// Attach sets the connection of a client created before the websocket
// upgrade. A client closed in the meantime closes conn right away.
func (c *Client) Attach(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = conn
	select {
	case <-c.done:
		conn.Close()
	default:
	}
}

// WritePump writes queued frames to the connection until Close is called or
// a write fails.
func (c *Client) WritePump() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	for {
		select {
		case <-c.done:
			return nil
		case msg := <-c.SendQueue:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return err
			}
			if err := conn.WriteMessage(c.Codec.MessageType(), msg); err != nil {
				c.log.Debug("Write failed", zap.Error(err))
				return err
			}
		}
	}
}

// Done is closed once the client has been closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close stops the write pump and closes the connection. It is safe to call
// more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}
