// Package input maps keyboard keys to paddle intents.
package input

import "github.com/mo-shahab/pong-authority/paddle"

// Key names follow the browser KeyboardEvent.key values.
const (
	KeyW         = "w"
	KeyS         = "s"
	KeyArrowUp   = "ArrowUp"
	KeyArrowDown = "ArrowDown"
)

type Binding struct {
	Key       string
	Side      paddle.Side
	Direction paddle.Direction
}

type Bindings []Binding

// Event is a translated key transition.
type Event struct {
	Side      paddle.Side
	Direction paddle.Direction
	Pressed   bool
}

// Target is anything that accepts level-triggered paddle input: the local
// engine, a session or a networked projection.
type Target interface {
	ApplyInput(side paddle.Side, dir paddle.Direction, pressed bool)
}

// Default is the single-keyboard table: w/s drive the left paddle and the
// arrow keys drive the right one.
func Default() Bindings {
	return Bindings{
		{Key: KeyW, Side: paddle.Left, Direction: paddle.Up},
		{Key: KeyS, Side: paddle.Left, Direction: paddle.Down},
		{Key: KeyArrowUp, Side: paddle.Right, Direction: paddle.Up},
		{Key: KeyArrowDown, Side: paddle.Right, Direction: paddle.Down},
	}
}

// ForRole keeps only the bindings of one paddle. Spectators (None) get no
// bindings at all.
func (b Bindings) ForRole(side paddle.Side) Bindings {
	out := make(Bindings, 0, 2)
	for _, binding := range b {
		if binding.Side == side {
			out = append(out, binding)
		}
	}
	return out
}

// Translate looks up a key. Unbound keys report false.
func (b Bindings) Translate(key string, pressed bool) (Event, bool) {
	for _, binding := range b {
		if binding.Key == key {
			return Event{Side: binding.Side, Direction: binding.Direction, Pressed: pressed}, true
		}
	}
	return Event{}, false
}

// Dispatch translates a key and forwards it to target.
func (b Bindings) Dispatch(target Target, key string, pressed bool) bool {
	ev, ok := b.Translate(key, pressed)
	if !ok {
		return false
	}
	target.ApplyInput(ev.Side, ev.Direction, ev.Pressed)
	return true
}
