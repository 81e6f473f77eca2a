package game

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mo-shahab/pong-authority/paddle"
)

// Broadcaster receives every snapshot produced by a Session.
type Broadcaster interface {
	Broadcast(snap Snapshot)
}

// BroadcasterFunc adapts a plain function to Broadcaster.
type BroadcasterFunc func(snap Snapshot)

func (f BroadcasterFunc) Broadcast(snap Snapshot) { f(snap) }

type SessionConfig struct {
	TickInterval time.Duration
	ImpulseTicks int
}

type hold struct {
	side paddle.Side
	dir  paddle.Direction
}

// Session drives an Engine at a fixed interval and serializes access to it.
// Inputs may arrive from any goroutine and are observed by the next Step.
type Session struct {
	mu          sync.Mutex
	engine      *Engine
	cfg         SessionConfig
	holds       map[hold]int
	broadcaster Broadcaster
	log         *zap.Logger
}

func NewSession(engine *Engine, cfg SessionConfig, b Broadcaster, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.ImpulseTicks < 1 {
		cfg.ImpulseTicks = 1
	}
	return &Session{
		engine:      engine,
		cfg:         cfg,
		holds:       make(map[hold]int),
		broadcaster: b,
		log:         log,
	}
}

// Start begins the game. It reports false if the session already started.
func (s *Session) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Start()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.State()
}

// Run starts the session and steps it every TickInterval until ctx is done or
// a win score is reached.
func (s *Session) Run(ctx context.Context) error {
	s.Start()

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	s.log.Info("Session loop started", zap.Duration("tick", s.cfg.TickInterval))

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Session loop stopped", zap.Error(ctx.Err()))
			return ctx.Err()
		case <-ticker.C:
			s.Step()
			if s.State() == Finished {
				s.log.Info("Session finished")
				return nil
			}
		}
	}
}

// Step advances the engine once, expires impulse holds and broadcasts the
// resulting snapshot.
func (s *Session) Step() Outcome {
	s.mu.Lock()
	out := s.engine.Advance()
	for h, left := range s.holds {
		left--
		if left <= 0 {
			delete(s.holds, h)
			s.engine.ApplyInput(h.side, h.dir, false)
			continue
		}
		s.holds[h] = left
	}
	snap := s.engine.Snapshot()
	s.mu.Unlock()

	if out.Goal {
		s.log.Info("Goal",
			zap.Stringer("conceded", out.Conceded),
			zap.Int("left", snap.Score.Left),
			zap.Int("right", snap.Score.Right),
			zap.Uint64("tick", snap.Tick))
	}
	if snap.State == Finished {
		s.log.Info("Winner decided", zap.Stringer("winner", snap.Winner))
	}

	if s.broadcaster != nil {
		s.broadcaster.Broadcast(snap)
	}
	return out
}

// ApplyInput sets or clears a held control. It cancels any pending impulse on
// the same control.
func (s *Session) ApplyInput(side paddle.Side, dir paddle.Direction, pressed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.holds, hold{side, dir})
	s.engine.ApplyInput(side, dir, pressed)
}

// Impulse presses a control for ImpulseTicks ticks and then releases it.
// Repeated impulses extend the hold.
func (s *Session) Impulse(side paddle.Side, dir paddle.Direction) {
	if !side.Valid() || !dir.Valid() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holds[hold{side, dir}] = s.cfg.ImpulseTicks
	s.engine.ApplyInput(side, dir, true)
}

// Release clears both controls of a paddle, e.g. when its player leaves.
func (s *Session) Release(side paddle.Side) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.holds, hold{side, paddle.Up})
	delete(s.holds, hold{side, paddle.Down})
	s.engine.ReleaseAll(side)
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Snapshot()
}
