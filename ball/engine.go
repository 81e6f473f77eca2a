package ball

// Integrate moves the ball by one tick of its velocity. There is no
// sub-stepping: a ball faster than a paddle is deep can pass through it.
func (b *Ball) Integrate() {
	b.X += b.Dx
	b.Y += b.Dy
}

// ReflectWalls negates the vertical velocity when the ball touches or crosses
// the top or bottom edge. Position is left untouched, so the ball may end the
// tick slightly outside the field.
func (b *Ball) ReflectWalls(fieldHeight float64) bool {
	if b.Top() <= 0 || b.Bottom() >= fieldHeight {
		b.Dy *= -1
		return true
	}
	return false
}

// ReflectHorizontal reverses the horizontal velocity (paddle contact).
func (b *Ball) ReflectHorizontal() {
	b.Dx *= -1
}

// Serve puts the ball back at (x, y) travelling with the given velocity.
func (b *Ball) Serve(x, y, dx, dy float64) {
	b.X = x
	b.Y = y
	b.Dx = dx
	b.Dy = dy
}
