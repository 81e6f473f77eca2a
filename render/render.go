// Package render draws snapshots as plain text for terminal clients.
package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/mo-shahab/pong-authority/game"
	"github.com/mo-shahab/pong-authority/paddle"
)

const (
	paddleCell = '|'
	ballCell   = 'O'
	netCell    = ':'
	emptyCell  = ' '
)

// Frame scales the playfield onto a cols x rows character grid. The first row
// is the score line. Lines are separated by "\n" and have no trailing newline.
// Grids smaller than 4x3 render as an empty string.
func Frame(snap game.Snapshot, cols, rows int) string {
	if cols < 4 || rows < 3 || snap.Field.Width <= 0 || snap.Field.Height <= 0 {
		return ""
	}

	fieldRows := rows - 1
	grid := make([][]rune, fieldRows)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(string(emptyCell), cols))
		if r%2 == 0 {
			grid[r][cols/2] = netCell
		}
	}

	scaleX := float64(cols) / snap.Field.Width
	scaleY := float64(fieldRows) / snap.Field.Height

	drawPaddle := func(p paddle.Paddle, col int) {
		top := clamp(int(math.Floor(p.Y*scaleY)), fieldRows)
		bottom := clamp(int(math.Ceil((p.Y+p.Height)*scaleY))-1, fieldRows)
		for r := top; r <= bottom; r++ {
			grid[r][col] = paddleCell
		}
	}
	drawPaddle(snap.Left, 0)
	drawPaddle(snap.Right, cols-1)

	bx := clamp(int(snap.Ball.X*scaleX), cols)
	by := clamp(int(snap.Ball.Y*scaleY), fieldRows)
	grid[by][bx] = ballCell

	var b strings.Builder
	b.WriteString(center(scoreLine(snap), cols))
	for _, row := range grid {
		b.WriteByte('\n')
		b.WriteString(string(row))
	}
	return b.String()
}

func scoreLine(snap game.Snapshot) string {
	line := fmt.Sprintf("%d : %d", snap.Score.Left, snap.Score.Right)
	if snap.State == game.Finished {
		line += fmt.Sprintf("  %s wins", snap.Winner.Player())
	}
	return line
}

func center(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	pad := (width - len(s)) / 2
	return strings.Repeat(" ", pad) + s + strings.Repeat(" ", width-len(s)-pad)
}

func clamp(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}
