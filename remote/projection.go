// Package remote is the client side of the networked variant: it renders the
// server's snapshots and forwards local input instead of simulating.
package remote

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mo-shahab/pong-authority/game"
	"github.com/mo-shahab/pong-authority/paddle"
	"github.com/mo-shahab/pong-authority/wire"
)

// Sender writes one frame to the server. *websocket.Conn satisfies it.
type Sender interface {
	WriteMessage(messageType int, data []byte) error
}

// Projection holds the last authoritative snapshot in an engine that is never
// advanced locally. It does no prediction and no interpolation.
type Projection struct {
	mu      sync.Mutex
	codec   wire.Codec
	sender  Sender
	engine  *game.Engine
	intents map[paddle.Side]paddle.Intent
	log     *zap.Logger
}

// New projects onto engine, whose config supplies everything the wire does
// not carry (field and paddle dimensions, ball radius). The projection owns
// engine from then on.
func New(engine *game.Engine, codec wire.Codec, sender Sender, log *zap.Logger) *Projection {
	if log == nil {
		log = zap.NewNop()
	}
	return &Projection{
		codec:   codec,
		sender:  sender,
		engine:  engine,
		intents: make(map[paddle.Side]paddle.Intent),
		log:     log,
	}
}

// Receive resyncs the engine to a decoded snapshot. Snapshots that do not
// decode, or that put a paddle outside the field, leave the previous state in
// place.
func (p *Projection) Receive(raw []byte) error {
	s, err := p.codec.DecodeState(raw)
	if err != nil {
		return fmt.Errorf("receive snapshot: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.engine.Restore(wire.Project(p.engine.Snapshot(), s)); err != nil {
		return fmt.Errorf("receive snapshot: %w", err)
	}
	return nil
}

func (p *Projection) Snapshot() game.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.engine.Snapshot()
}

// ApplyInput forwards a control transition to the server. Repeating the
// current state of a control sends nothing.
func (p *Projection) ApplyInput(side paddle.Side, dir paddle.Direction, pressed bool) {
	if !side.Valid() || !dir.Valid() {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	intent := p.intents[side]
	before := intent
	intent.Set(dir, pressed)
	if intent == before {
		return
	}

	if err := p.send(wire.NewInput(side, dir, pressed)); err != nil {
		p.log.Warn("Failed to send input", zap.Stringer("side", side), zap.Error(err))
		return
	}
	p.intents[side] = intent
}

// Tap sends a press without a release, for input devices that never report
// key releases. The server holds it for a few ticks.
func (p *Projection) Tap(side paddle.Side, dir paddle.Direction) error {
	if !side.Valid() || !dir.Valid() {
		return fmt.Errorf("tap %s/%s: invalid control", side, dir)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.send(wire.NewTap(side, dir))
}

func (p *Projection) send(in wire.Input) error {
	data, err := p.codec.EncodeInput(in)
	if err != nil {
		return fmt.Errorf("encode input: %w", err)
	}
	return p.sender.WriteMessage(p.codec.MessageType(), data)
}
