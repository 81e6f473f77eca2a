package game

import (
	"errors"
	"fmt"
	"math"

	"github.com/mo-shahab/pong-authority/ball"
	"github.com/mo-shahab/pong-authority/paddle"
)

// Config holds the fixed parameters of a session.
type Config struct {
	FieldWidth   float64     `yaml:"field_width" toml:"field_width"`
	FieldHeight  float64     `yaml:"field_height" toml:"field_height"`
	PaddleWidth  float64     `yaml:"paddle_width" toml:"paddle_width"`
	PaddleHeight float64     `yaml:"paddle_height" toml:"paddle_height"`
	PaddleSpeed  float64     `yaml:"paddle_speed" toml:"paddle_speed"`
	BallRadius   float64     `yaml:"ball_radius" toml:"ball_radius"`
	BallSpeed    float64     `yaml:"ball_speed" toml:"ball_speed"`
	WinScore     int         `yaml:"win_score" toml:"win_score"` // 0 plays forever
	Serve        ServeConfig `yaml:"serve" toml:"serve"`
}

// ServeConfig controls the vertical direction of the ball after a goal.
type ServeConfig struct {
	RandomVertical bool   `yaml:"random_vertical" toml:"random_vertical"`
	Seed           uint64 `yaml:"seed" toml:"seed"`
}

// Game constants
const (
	DefaultFieldWidth   = 800
	DefaultFieldHeight  = 400
	DefaultPaddleWidth  = 10
	DefaultPaddleHeight = 100
	DefaultPaddleSpeed  = 4
	DefaultBallRadius   = 10
	DefaultBallSpeed    = 10
)

func DefaultConfig() Config {
	return Config{
		FieldWidth:   DefaultFieldWidth,
		FieldHeight:  DefaultFieldHeight,
		PaddleWidth:  DefaultPaddleWidth,
		PaddleHeight: DefaultPaddleHeight,
		PaddleSpeed:  DefaultPaddleSpeed,
		BallRadius:   DefaultBallRadius,
		BallSpeed:    DefaultBallSpeed,
	}
}

var ErrInvalidConfig = errors.New("invalid game config")

func (c Config) Validate() error {
	var errs []error
	positive := []struct {
		name  string
		value float64
	}{
		{"field_width", c.FieldWidth},
		{"field_height", c.FieldHeight},
		{"paddle_width", c.PaddleWidth},
		{"paddle_height", c.PaddleHeight},
		{"paddle_speed", c.PaddleSpeed},
		{"ball_radius", c.BallRadius},
		{"ball_speed", c.BallSpeed},
	}
	for _, p := range positive {
		if !(p.value > 0) || math.IsInf(p.value, 1) {
			errs = append(errs, fmt.Errorf("%w: %s must be positive and finite, got %v", ErrInvalidConfig, p.name, p.value))
		}
	}

	if c.PaddleHeight > c.FieldHeight {
		errs = append(errs, fmt.Errorf("%w: paddle_height %v exceeds field_height %v", ErrInvalidConfig, c.PaddleHeight, c.FieldHeight))
	}
	if 2*c.PaddleWidth >= c.FieldWidth {
		errs = append(errs, fmt.Errorf("%w: paddles leave no room in field_width %v", ErrInvalidConfig, c.FieldWidth))
	}
	if 2*c.BallRadius >= c.FieldHeight {
		errs = append(errs, fmt.Errorf("%w: ball does not fit in field_height %v", ErrInvalidConfig, c.FieldHeight))
	}
	if c.WinScore < 0 {
		errs = append(errs, fmt.Errorf("%w: win_score must not be negative", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// Field is the playfield; it never changes during a session.
type Field struct {
	Width  float64
	Height float64
}

func (f Field) Center() (float64, float64) {
	return f.Width / 2, f.Height / 2
}

type Score struct {
	Left  int
	Right int
}

func (s *Score) Add(side paddle.Side) {
	switch side {
	case paddle.Left:
		s.Left++
	case paddle.Right:
		s.Right++
	}
}

func (s Score) Of(side paddle.Side) int {
	switch side {
	case paddle.Left:
		return s.Left
	case paddle.Right:
		return s.Right
	default:
		return 0
	}
}

// State is the engine lifecycle: Idle until the session starts, then Running.
// Finished is only reachable when a win score is configured.
type State int

const (
	Idle State = iota
	Running
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// Snapshot is a value copy of the engine state for rendering or transmission.
type Snapshot struct {
	Tick   uint64
	State  State
	Field  Field
	Left   paddle.Paddle
	Right  paddle.Paddle
	Ball   ball.Ball
	Score  Score
	Winner paddle.Side
}

// Outcome describes what happened during a single tick.
type Outcome struct {
	WallBounce bool
	PaddleHit  paddle.Side
	Goal       bool
	Conceded   paddle.Side
}
