package ball

type Ball struct {
	X, Y   float64
	Dx, Dy float64
	Radius float64
}

// Left and Right return the horizontal extent of the ball.
func (b Ball) Left() float64  { return b.X - b.Radius }
func (b Ball) Right() float64 { return b.X + b.Radius }

func (b Ball) Top() float64    { return b.Y - b.Radius }
func (b Ball) Bottom() float64 { return b.Y + b.Radius }
