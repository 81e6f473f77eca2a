package room

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/mo-shahab/pong-authority/client"
	"github.com/mo-shahab/pong-authority/game"
	"github.com/mo-shahab/pong-authority/paddle"
	"github.com/mo-shahab/pong-authority/wire"
)

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomClosed    = errors.New("room closed")
	ErrSeatTaken     = errors.New("seat taken")
	ErrTooManyRooms  = errors.New("too many rooms")
	ErrSpectator     = errors.New("spectators cannot move paddles")
	ErrNotYourPaddle = errors.New("input for the other paddle")
)

// Room holds two seats, any number of spectators and the session they
// share.
type Room struct {
	ID string

	mu      sync.Mutex
	clients map[string]*client.Client
	left    *client.Client
	right   *client.Client
	session *game.Session
	started bool
	closed  bool

	cancelSession context.CancelFunc
	waiting       *WaitingRoom

	log *zap.Logger
}

func newRoom(id string, cfg Config, log *zap.Logger) (*Room, error) {
	engine, err := game.NewEngine(cfg.Game)
	if err != nil {
		return nil, err
	}

	r := &Room{
		ID:      id,
		clients: make(map[string]*client.Client),
		log:     log.With(zap.String("room", id)),
	}
	r.session = game.NewSession(engine, cfg.Session, r, r.log.Named("session"))
	return r, nil
}

func (r *Room) Session() *game.Session {
	return r.session
}

func (r *Room) Started() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

// Clients returns the number of connected clients, spectators included.
func (r *Room) Clients() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

func (r *Room) seat(side paddle.Side) **client.Client {
	if side == paddle.Right {
		return &r.right
	}
	return &r.left
}

// join seats c. The caller holds r.mu. It reports whether both seats are now
// filled for the first time.
func (r *Room) join(c *client.Client, want paddle.Side) (bool, error) {
	if r.closed {
		return false, ErrRoomClosed
	}

	role := paddle.None
	switch {
	case want.Valid():
		if *r.seat(want) != nil {
			return false, ErrSeatTaken
		}
		role = want
	case r.left == nil:
		role = paddle.Left
	case r.right == nil:
		role = paddle.Right
	}

	if role.Valid() {
		*r.seat(role) = c
	}
	c.Role = role
	c.RoomID = r.ID
	r.clients[c.ID] = c

	r.log.Info("Client joined",
		zap.String("client", c.ID),
		zap.String("player", role.Player()),
		zap.Int("clients", len(r.clients)))

	return !r.started && r.left != nil && r.right != nil, nil
}

// leave removes c and returns how many clients remain.
func (r *Room) leave(c *client.Client) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[c.ID]; !ok {
		return len(r.clients)
	}
	delete(r.clients, c.ID)

	if c.Role.Valid() && *r.seat(c.Role) == c {
		*r.seat(c.Role) = nil
		r.session.Release(c.Role)
	}

	r.log.Info("Client left",
		zap.String("client", c.ID),
		zap.String("player", c.Role.Player()),
		zap.Int("clients", len(r.clients)))
	return len(r.clients)
}

// shutdown stops the session and disconnects everyone.
func (r *Room) shutdown() {
	r.mu.Lock()
	clients := r.closeLocked()
	r.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
}

// expire closes the room only if its game has not started. The check and the
// close happen under one lock, so a Join that fills the room wins or loses as
// a whole.
func (r *Room) expire() bool {
	r.mu.Lock()
	if r.started || r.closed {
		r.mu.Unlock()
		return false
	}
	clients := r.closeLocked()
	r.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
	return true
}

// closeLocked marks the room closed and returns the clients to disconnect.
// The caller holds r.mu.
func (r *Room) closeLocked() []*client.Client {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.cancelSession != nil {
		r.cancelSession()
	}
	if r.waiting != nil {
		r.waiting.Stop()
	}
	clients := make([]*client.Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	return clients
}

// HandleInput applies a command from c to the session. Only seated clients
// may move, and only their own paddle.
func (r *Room) HandleInput(c *client.Client, cmd wire.Command) error {
	switch {
	case !c.Role.Valid():
		return ErrSpectator
	case cmd.Side != c.Role:
		return ErrNotYourPaddle
	case cmd.Impulse:
		r.session.Impulse(cmd.Side, cmd.Direction)
	default:
		r.session.ApplyInput(cmd.Side, cmd.Direction, cmd.Pressed)
	}
	return nil
}

// SendSnapshot queues the current state to a single client.
func (r *Room) SendSnapshot(c *client.Client) error {
	msg, err := c.Codec.EncodeState(wire.FromSnapshot(r.session.Snapshot()))
	if err != nil {
		return err
	}
	c.Enqueue(msg)
	return nil
}

// Broadcast encodes snap once per codec in use and queues it to every client.
func (r *Room) Broadcast(snap game.Snapshot) {
	r.mu.Lock()
	clients := make([]*client.Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	r.mu.Unlock()

	state := wire.FromSnapshot(snap)
	encoded := make(map[string][]byte, 1)
	for _, c := range clients {
		name := c.Codec.Name()
		msg, ok := encoded[name]
		if !ok {
			var err error
			msg, err = c.Codec.EncodeState(state)
			if err != nil {
				r.log.Error("Failed to encode state", zap.String("codec", name), zap.Error(err))
				continue
			}
			encoded[name] = msg
		}
		c.Enqueue(msg)
	}
}
