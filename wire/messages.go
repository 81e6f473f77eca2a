// Package wire defines the messages exchanged between the authoritative server
// and its clients, and the codecs that carry them.
package wire

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mo-shahab/pong-authority/game"
	"github.com/mo-shahab/pong-authority/paddle"
)

var (
	ErrMalformed        = errors.New("malformed message")
	ErrUnknownPlayer    = errors.New("unknown player")
	ErrUnknownDirection = errors.New("unknown direction")
	ErrNonFinite        = errors.New("non-finite coordinate")
	ErrUnknownCodec     = errors.New("unknown codec")
)

type PaddlePosition struct {
	Y float64 `json:"y" msgpack:"y"`
}

type BallPosition struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

type ScoreBoard struct {
	Player1 int `json:"player1" msgpack:"player1"`
	Player2 int `json:"player2" msgpack:"player2"`
}

// State is the authoritative snapshot sent to every client after each tick.
// Score and Tick are optional so that older clients can ignore them.
type State struct {
	Player1 PaddlePosition `json:"player1" msgpack:"player1"`
	Player2 PaddlePosition `json:"player2" msgpack:"player2"`
	Ball    BallPosition   `json:"ball" msgpack:"ball"`
	Score   *ScoreBoard    `json:"score,omitempty" msgpack:"score,omitempty"`
	Tick    *uint64        `json:"tick,omitempty" msgpack:"tick,omitempty"`
}

// stateFrame is the decoding form of State. The pointers record which of the
// required fields were present.
type stateFrame struct {
	Player1 *PaddlePosition `json:"player1" msgpack:"player1"`
	Player2 *PaddlePosition `json:"player2" msgpack:"player2"`
	Ball    *BallPosition   `json:"ball" msgpack:"ball"`
	Score   *ScoreBoard     `json:"score" msgpack:"score"`
	Tick    *uint64         `json:"tick" msgpack:"tick"`
}

func (f stateFrame) state() (State, error) {
	var missing []string
	if f.Player1 == nil {
		missing = append(missing, "player1")
	}
	if f.Player2 == nil {
		missing = append(missing, "player2")
	}
	if f.Ball == nil {
		missing = append(missing, "ball")
	}
	if len(missing) > 0 {
		return State{}, fmt.Errorf("%w: missing %s", ErrMalformed, strings.Join(missing, ", "))
	}
	return State{
		Player1: *f.Player1,
		Player2: *f.Player2,
		Ball:    *f.Ball,
		Score:   f.Score,
		Tick:    f.Tick,
	}, nil
}

// Validate rejects NaN and infinite coordinates.
func (s State) Validate() error {
	for _, c := range []struct {
		name string
		v    float64
	}{
		{"player1.y", s.Player1.Y},
		{"player2.y", s.Player2.Y},
		{"ball.x", s.Ball.X},
		{"ball.y", s.Ball.Y},
	} {
		if math.IsNaN(c.v) || math.IsInf(c.v, 0) {
			return fmt.Errorf("%w: %s", ErrNonFinite, c.name)
		}
	}
	return nil
}

// FromSnapshot converts an engine snapshot into its wire form.
func FromSnapshot(snap game.Snapshot) State {
	tick := snap.Tick
	return State{
		Player1: PaddlePosition{Y: snap.Left.Y},
		Player2: PaddlePosition{Y: snap.Right.Y},
		Ball:    BallPosition{X: snap.Ball.X, Y: snap.Ball.Y},
		Score:   &ScoreBoard{Player1: snap.Score.Left, Player2: snap.Score.Right},
		Tick:    &tick,
	}
}

// Project overlays a received state onto base. Dimensions, velocities and
// lifecycle come from base since they are not transmitted.
func Project(base game.Snapshot, s State) game.Snapshot {
	base.Left.Y = s.Player1.Y
	base.Right.Y = s.Player2.Y
	base.Ball.X = s.Ball.X
	base.Ball.Y = s.Ball.Y
	if s.Score != nil {
		base.Score = game.Score{Left: s.Score.Player1, Right: s.Score.Player2}
	}
	if s.Tick != nil {
		base.Tick = *s.Tick
	}
	return base
}

// Input is a paddle control message from a client. A missing Pressed field is
// a bare key press without a matching release.
type Input struct {
	Player    string `json:"player" msgpack:"player"`
	Direction string `json:"direction" msgpack:"direction"`
	Pressed   *bool  `json:"pressed,omitempty" msgpack:"pressed,omitempty"`
}

func NewInput(side paddle.Side, dir paddle.Direction, pressed bool) Input {
	return Input{Player: side.Player(), Direction: dir.String(), Pressed: &pressed}
}

// NewTap builds a press-only message.
func NewTap(side paddle.Side, dir paddle.Direction) Input {
	return Input{Player: side.Player(), Direction: dir.String()}
}

// Command is a validated Input.
type Command struct {
	Side      paddle.Side
	Direction paddle.Direction
	Pressed   bool
	Impulse   bool
}

func (in Input) Resolve() (Command, error) {
	var cmd Command
	var ok bool

	if in.Player != paddle.Left.Player() && in.Player != paddle.Right.Player() {
		return cmd, fmt.Errorf("%w: %q", ErrUnknownPlayer, in.Player)
	}
	cmd.Side, _ = paddle.ParseSide(in.Player)

	if cmd.Direction, ok = paddle.ParseDirection(in.Direction); !ok || in.Direction != cmd.Direction.String() {
		return cmd, fmt.Errorf("%w: %q", ErrUnknownDirection, in.Direction)
	}

	if in.Pressed == nil {
		cmd.Pressed = true
		cmd.Impulse = true
	} else {
		cmd.Pressed = *in.Pressed
	}
	return cmd, nil
}
