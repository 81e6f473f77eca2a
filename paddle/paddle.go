package paddle

import "strings"

// Side identifies one of the two paddles. The zero value is None.
type Side int

const (
	None Side = iota
	Left
	Right
)

func (s Side) Valid() bool {
	return s == Left || s == Right
}

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "none"
	}
}

// Player returns the wire name of the side ("player1" is the left paddle).
func (s Side) Player() string {
	switch s {
	case Left:
		return "player1"
	case Right:
		return "player2"
	default:
		return "spectator"
	}
}

// Opponent returns the other side. None stays None.
func (s Side) Opponent() Side {
	switch s {
	case Left:
		return Right
	case Right:
		return Left
	default:
		return None
	}
}

// ParseSide accepts both the team names and the wire player names.
func ParseSide(name string) (Side, bool) {
	switch strings.ToLower(name) {
	case "left", "player1":
		return Left, true
	case "right", "player2":
		return Right, true
	default:
		return None, false
	}
}

type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) Valid() bool {
	return d == Up || d == Down
}

func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	if d == Up {
		return "up"
	}
	return "unknown"
}

func ParseDirection(name string) (Direction, bool) {
	switch strings.ToLower(name) {
	case "up":
		return Up, true
	case "down":
		return Down, true
	default:
		return -1, false
	}
}

// Intent holds the currently held directional controls of one paddle.
type Intent struct {
	Up   bool
	Down bool
}

// Set records a press or release. Unknown directions are ignored.
func (i *Intent) Set(dir Direction, pressed bool) {
	switch dir {
	case Up:
		i.Up = pressed
	case Down:
		i.Down = pressed
	}
}

// Paddle is a vertical bar; Y is its top edge.
type Paddle struct {
	Y      float64
	Width  float64
	Height float64
	Speed  float64
}

// Spans reports whether the vertical coordinate y lies within the paddle.
func (p Paddle) Spans(y float64) bool {
	return y >= p.Y && y <= p.Y+p.Height
}

// MaxY is the largest valid top edge inside a field of the given height.
func (p Paddle) MaxY(fieldHeight float64) float64 {
	return fieldHeight - p.Height
}
