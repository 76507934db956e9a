package game

import (
	"math"
	"math/rand"
)

// Pipe is a top and bottom pipe pair with a gap between them.
type Pipe struct {
	X      float64
	Height float64 // bottom edge of the top pipe
	Top    float64 // y of the top pipe sprite
	Bottom float64 // y of the bottom pipe sprite
	Passed bool
}

// NewPipe creates a pipe pair at x with a gap height drawn uniformly from
// [MinPipeHeight, MaxPipeHeight].
func NewPipe(x float64, rng *rand.Rand) *Pipe {
	p := &Pipe{X: x}
	p.SetHeight(float64(MinPipeHeight + rng.Intn(MaxPipeHeight-MinPipeHeight+1)))
	return p
}

// SetHeight places the gap and derives both pipe positions from it.
func (p *Pipe) SetHeight(h float64) {
	p.Height = h
	p.Top = h - PipeHeight
	p.Bottom = h + PipeGap
}

// Move scrolls the pipe one tick to the left.
func (p *Pipe) Move() {
	p.X -= PipeVelocity
}

// OffScreen reports whether the pipe has scrolled fully past the left edge.
func (p *Pipe) OffScreen() bool {
	return p.X+PipeWidth < 0
}

// Collide reports whether the bird silhouette touches either pipe.
func (p *Pipe) Collide(b *Bird) bool {
	return CollidesWithPipe(b, p)
}

// CollidesWithPipe tests the bird mask against both pipe masks.
func CollidesWithPipe(b *Bird, p *Pipe) bool {
	birdMask := b.Mask()
	dx := int(math.Round(p.X - b.X))
	by := math.Round(b.Y)
	if birdMask.Overlaps(PipeTopMask(), dx, int(p.Top-by)) {
		return true
	}
	return birdMask.Overlaps(PipeBottomMask(), dx, int(p.Bottom-by))
}
