package room

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/mo-shahab/pong-authority/client"
	"github.com/mo-shahab/pong-authority/game"
	"github.com/mo-shahab/pong-authority/paddle"
)

// LobbyID is the room clients land in when they do not name one. It is
// created on demand and never times out.
const LobbyID = "lobby"

const shutdownTimeout = 5 * time.Second

type Config struct {
	Game               game.Config
	Session            game.SessionConfig
	MaxRooms           int
	WaitingRoomTimeout time.Duration
}

// Manager owns every room. Session loops run on a bounded worker pool, one
// worker per started room.
type Manager struct {
	mu    sync.Mutex
	rooms map[string]*Room

	// retired rooms have finished their game. They are no longer joinable
	// but keep their clients until those leave.
	retired map[*Room]struct{}

	cfg  Config
	ctx  context.Context
	pool *ants.Pool
	log  *zap.Logger
}

// NewManager creates a manager whose sessions stop when ctx is cancelled.
func NewManager(ctx context.Context, cfg Config, log *zap.Logger) (*Manager, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.Game.Validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		rooms:   make(map[string]*Room),
		retired: make(map[*Room]struct{}),
		cfg:     cfg,
		ctx:     ctx,
		log:     log,
	}

	pool, err := ants.NewPool(cfg.MaxRooms,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(p interface{}) {
			m.log.Error("Session panicked", zap.Any("panic", p))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create session pool: %w", err)
	}
	m.pool = pool
	return m, nil
}

func generateRoomID() string {
	return uuid.New().String()[:6]
}

// Create opens a new room with a waiting room timeout.
func (m *Manager) Create() (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := generateRoomID()
	for m.rooms[id] != nil {
		id = generateRoomID()
	}

	r, err := m.createLocked(id)
	if err != nil {
		return nil, err
	}

	r.waiting = startWaitingRoom(m.ctx, m.cfg.WaitingRoomTimeout, func() {
		if !r.expire() {
			return
		}
		m.log.Info("Waiting room timed out", zap.String("room", r.ID))
		m.remove(r)
	})
	return r, nil
}

func (m *Manager) createLocked(id string) (*Room, error) {
	if len(m.rooms) >= m.cfg.MaxRooms {
		return nil, ErrTooManyRooms
	}
	r, err := newRoom(id, m.cfg, m.log)
	if err != nil {
		return nil, err
	}
	m.rooms[id] = r
	m.log.Info("Created room", zap.String("room", id))
	return r, nil
}

func (m *Manager) Get(id string) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	return r, ok
}

// GetOrCreate returns the named room. The lobby (or an empty id) is created
// when missing; any other unknown id is an error.
func (m *Manager) GetOrCreate(id string) (*Room, error) {
	if id == "" {
		id = LobbyID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.rooms[id]; ok {
		return r, nil
	}
	if id != LobbyID {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, id)
	}
	return m.createLocked(id)
}

// Join puts c into the room. want selects a seat; None takes the first free
// seat or, when both are filled, joins as a spectator. The session starts
// when both seats are filled for the first time.
func (m *Manager) Join(roomID string, c *client.Client, want paddle.Side) (*Room, error) {
	r, err := m.GetOrCreate(roomID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	full, err := r.join(c, want)
	if err != nil {
		return nil, err
	}
	if full {
		if err := m.startLocked(r); err != nil {
			delete(r.clients, c.ID)
			*r.seat(c.Role) = nil
			c.Role = paddle.None
			return nil, err
		}
	} else if !r.started && r.waiting != nil {
		r.log.Info("Waiting for opponent", zap.Duration("time_left", r.waiting.TimeLeft()))
	}
	return r, nil
}

// startLocked runs the room's session on the pool. The caller holds r.mu.
func (m *Manager) startLocked(r *Room) error {
	ctx, cancel := context.WithCancel(m.ctx)
	err := m.pool.Submit(func() {
		err := r.session.Run(ctx)
		switch {
		case err == nil:
			m.retire(r)
		case ctx.Err() == nil:
			r.log.Error("Session stopped", zap.Error(err))
		}
	})
	if err != nil {
		cancel()
		return fmt.Errorf("start session: %w", err)
	}

	r.started = true
	r.cancelSession = cancel
	if r.waiting != nil {
		r.waiting.Stop()
	}
	r.log.Info("Game started")
	return nil
}

// Leave removes c from its room and closes the room when it was the last
// client.
func (m *Manager) Leave(r *Room, c *client.Client) {
	if r.leave(c) == 0 {
		m.remove(r)
	}
}

// Close removes a room and disconnects its clients.
func (m *Manager) Close(id string) error {
	r, ok := m.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRoomNotFound, id)
	}
	m.remove(r)
	return nil
}

// retire takes a room whose game has finished out of the lookup table, so its
// id (the lobby's included) starts a new game on the next join.
func (m *Manager) retire(r *Room) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rooms[r.ID] != r {
		return
	}
	delete(m.rooms, r.ID)
	m.retired[r] = struct{}{}
	m.log.Info("Game finished", zap.String("room", r.ID))
}

func (m *Manager) remove(r *Room) {
	m.mu.Lock()
	owned := m.rooms[r.ID] == r
	if owned {
		delete(m.rooms, r.ID)
	}
	if _, ok := m.retired[r]; ok {
		delete(m.retired, r)
		owned = true
	}
	m.mu.Unlock()

	r.shutdown()
	if owned {
		m.log.Info("Room closed", zap.String("room", r.ID))
	}
}

// Len returns the number of joinable rooms.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}

// Shutdown closes every room and waits for their sessions to stop.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	rooms := make([]*Room, 0, len(m.rooms)+len(m.retired))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	for r := range m.retired {
		rooms = append(rooms, r)
	}
	m.mu.Unlock()

	for _, r := range rooms {
		m.remove(r)
	}
	if err := m.pool.ReleaseTimeout(shutdownTimeout); err != nil {
		m.log.Warn("Sessions still running after shutdown", zap.Error(err))
	}
}
