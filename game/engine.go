// game/engine.go
package game

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/rand"

	"github.com/mo-shahab/pong-authority/ball"
	"github.com/mo-shahab/pong-authority/paddle"
)

var (
	ErrFieldMismatch    = errors.New("snapshot playfield does not match engine")
	ErrPaddleOutOfRange = errors.New("paddle outside playfield")
)

// Engine owns the playfield, both paddles and the ball, and advances them by
// one fixed tick per call. It is not safe for concurrent use; see Session.
type Engine struct {
	cfg   Config
	field Field

	left        paddle.Paddle
	right       paddle.Paddle
	leftIntent  paddle.Intent
	rightIntent paddle.Intent

	ball   ball.Ball
	score  Score
	state  State
	tick   uint64
	winner paddle.Side

	rng *rand.Rand
}

// NewEngine validates cfg and returns an idle engine at the initial positions.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:   cfg,
		field: Field{Width: cfg.FieldWidth, Height: cfg.FieldHeight},
	}

	if cfg.Serve.RandomVertical {
		seed := cfg.Serve.Seed
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		e.rng = rand.New(rand.NewSource(seed))
	}

	e.reset()
	return e, nil
}

func (e *Engine) reset() {
	newPaddle := func() paddle.Paddle {
		p := paddle.Paddle{
			Width:  e.cfg.PaddleWidth,
			Height: e.cfg.PaddleHeight,
			Speed:  e.cfg.PaddleSpeed,
		}
		p.Center(e.field.Height)
		return p
	}
	e.left = newPaddle()
	e.right = newPaddle()

	cx, cy := e.field.Center()
	e.ball = ball.Ball{
		X:      cx,
		Y:      cy,
		Dx:     e.cfg.BallSpeed,
		Dy:     e.cfg.BallSpeed,
		Radius: e.cfg.BallRadius,
	}
}

// Start moves the engine from Idle to Running. It reports whether the
// transition happened; it happens at most once.
func (e *Engine) Start() bool {
	if e.state != Idle {
		return false
	}
	e.state = Running
	return true
}

func (e *Engine) State() State {
	return e.state
}

func (e *Engine) Config() Config {
	return e.cfg
}

// ApplyInput records that a directional control of one paddle is held or
// released. Unknown sides or directions are ignored.
func (e *Engine) ApplyInput(side paddle.Side, dir paddle.Direction, pressed bool) {
	if !dir.Valid() {
		return
	}
	switch side {
	case paddle.Left:
		e.leftIntent.Set(dir, pressed)
	case paddle.Right:
		e.rightIntent.Set(dir, pressed)
	}
}

// ReleaseAll clears every held control of a paddle.
func (e *Engine) ReleaseAll(side paddle.Side) {
	switch side {
	case paddle.Left:
		e.leftIntent = paddle.Intent{}
	case paddle.Right:
		e.rightIntent = paddle.Intent{}
	}
}

// Advance runs one tick: paddle movement, ball integration, wall reflection,
// paddle collision and goal handling, in that order. It does nothing unless
// the engine is Running.
func (e *Engine) Advance() Outcome {
	var out Outcome
	if e.state != Running {
		return out
	}

	e.left.Move(e.leftIntent, e.field.Height)
	e.right.Move(e.rightIntent, e.field.Height)

	e.ball.Integrate()
	out.WallBounce = e.ball.ReflectWalls(e.field.Height)
	out.PaddleHit = e.handlePaddleCollision()

	if conceded := e.checkBallOutOfBounds(); conceded != paddle.None {
		out.Goal = true
		out.Conceded = conceded
		e.scoreGoal(conceded)
	}

	e.tick++
	return out
}

// handlePaddleCollision reverses the ball when its leading edge reaches a
// paddle face while its center lies within the paddle's vertical span.
func (e *Engine) handlePaddleCollision() paddle.Side {
	hit := paddle.None

	if e.ball.Left() <= e.left.Width && e.left.Spans(e.ball.Y) {
		e.ball.ReflectHorizontal()
		hit = paddle.Left
	}

	if e.ball.Right() >= e.field.Width-e.right.Width && e.right.Spans(e.ball.Y) {
		e.ball.ReflectHorizontal()
		hit = paddle.Right
	}

	return hit
}

// checkBallOutOfBounds returns the side whose goal line the ball crossed.
func (e *Engine) checkBallOutOfBounds() paddle.Side {
	if e.ball.Left() <= 0 {
		return paddle.Left
	}
	if e.ball.Right() >= e.field.Width {
		return paddle.Right
	}
	return paddle.None
}

// scoreGoal credits the opponent of the conceding side and serves from the
// center toward the side that won the point.
func (e *Engine) scoreGoal(conceded paddle.Side) {
	scorer := conceded.Opponent()
	e.score.Add(scorer)

	dx := e.cfg.BallSpeed
	if scorer == paddle.Left {
		dx = -dx
	}
	cx, cy := e.field.Center()
	e.ball.Serve(cx, cy, dx, e.cfg.BallSpeed*e.serveSign())

	if e.cfg.WinScore > 0 && e.score.Of(scorer) >= e.cfg.WinScore {
		e.state = Finished
		e.winner = scorer
	}
}

func (e *Engine) serveSign() float64 {
	if e.rng == nil || e.rng.Intn(2) == 1 {
		return 1
	}
	return -1
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Tick:   e.tick,
		State:  e.state,
		Field:  e.field,
		Left:   e.left,
		Right:  e.right,
		Ball:   e.ball,
		Score:  e.score,
		Winner: e.winner,
	}
}

// Restore loads paddle positions, ball, score and tick from a snapshot taken
// on the same playfield. Paddle and ball dimensions stay as configured and the
// lifecycle state is not changed.
func (e *Engine) Restore(s Snapshot) error {
	if s.Field != e.field {
		return fmt.Errorf("%w: got %vx%v, want %vx%v", ErrFieldMismatch,
			s.Field.Width, s.Field.Height, e.field.Width, e.field.Height)
	}
	for _, p := range []struct {
		side paddle.Side
		y    float64
	}{{paddle.Left, s.Left.Y}, {paddle.Right, s.Right.Y}} {
		if !(p.y >= 0 && p.y <= e.field.Height-e.cfg.PaddleHeight) {
			return fmt.Errorf("%w: %s paddle at y=%v", ErrPaddleOutOfRange, p.side, p.y)
		}
	}

	e.left.Y = s.Left.Y
	e.right.Y = s.Right.Y
	e.ball.X, e.ball.Y = s.Ball.X, s.Ball.Y
	e.ball.Dx, e.ball.Dy = s.Ball.Dx, s.Ball.Dy
	e.score = s.Score
	e.tick = s.Tick
	return nil
}
