package paddle

// Move applies one tick of held intents. Up and down are checked independently,
// so holding both cancels out except where one of them is blocked by an edge.
// The result always stays within [0, fieldHeight-Height].
func (p *Paddle) Move(intent Intent, fieldHeight float64) {
	if intent.Up && p.Y > 0 {
		p.Y -= p.Speed
		p.Clamp(fieldHeight)
	}

	if intent.Down && p.Y < p.MaxY(fieldHeight) {
		p.Y += p.Speed
		p.Clamp(fieldHeight)
	}
}

// Center places the paddle in the vertical middle of the field.
func (p *Paddle) Center(fieldHeight float64) {
	p.Y = (fieldHeight / 2) - (p.Height / 2)
}

// Clamp forces Y back into the valid range.
func (p *Paddle) Clamp(fieldHeight float64) {
	maxY := p.MaxY(fieldHeight)
	if p.Y < 0 {
		p.Y = 0
	} else if p.Y > maxY {
		p.Y = maxY
	}
}
