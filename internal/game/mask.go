package game

import "sync"

// Mask is a 1-bit silhouette. Set bits are opaque pixels.
type Mask struct {
	Width  int
	Height int

	stride int // uint64 words per row
	bits   []uint64
}

// NewMask builds a w x h mask. opaque may be nil for an empty mask.
func NewMask(w, h int, opaque func(x, y int) bool) *Mask {
	m := &Mask{Width: w, Height: h, stride: (w + 63) / 64}
	m.bits = make([]uint64, m.stride*h)
	if opaque == nil {
		return m
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if opaque(x, y) {
				m.Set(x, y, true)
			}
		}
	}
	return m
}

// Get reports whether (x, y) is opaque. Points outside the mask are transparent.
func (m *Mask) Get(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.bits[y*m.stride+x/64]&(1<<(uint(x)%64)) != 0
}

// Set marks (x, y) opaque or transparent. Points outside the mask are ignored.
func (m *Mask) Set(x, y int, on bool) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	word := &m.bits[y*m.stride+x/64]
	bit := uint64(1) << (uint(x) % 64)
	if on {
		*word |= bit
	} else {
		*word &^= bit
	}
}

// Count returns the number of opaque pixels.
func (m *Mask) Count() int {
	n := 0
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Get(x, y) {
				n++
			}
		}
	}
	return n
}

// FlipVertical returns a copy mirrored top to bottom.
func (m *Mask) FlipVertical() *Mask {
	out := NewMask(m.Width, m.Height, nil)
	for y := 0; y < m.Height; y++ {
		copy(out.bits[(m.Height-1-y)*m.stride:(m.Height-y)*m.stride], m.bits[y*m.stride:(y+1)*m.stride])
	}
	return out
}

// Overlap places other with its top-left corner at (dx, dy) in m's coordinates
// and returns the first point, in m's coordinates, where both are opaque.
func (m *Mask) Overlap(other *Mask, dx, dy int) (x, y int, ok bool) {
	x0, x1 := max(0, dx), min(m.Width, dx+other.Width)
	y0, y1 := max(0, dy), min(m.Height, dy+other.Height)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			if m.Get(x, y) && other.Get(x-dx, y-dy) {
				return x, y, true
			}
		}
	}
	return 0, 0, false
}

// Overlaps reports whether any opaque pixels of m and other coincide with
// other placed at (dx, dy).
func (m *Mask) Overlaps(other *Mask, dx, dy int) bool {
	_, _, ok := m.Overlap(other, dx, dy)
	return ok
}

var (
	spritesOnce    sync.Once
	birdMask       *Mask
	pipeBottomMask *Mask
	pipeTopMask    *Mask
)

func buildSprites() {
	// Body is an ellipse filling the left of the sprite; the beak sticks out
	// to the right with a notch cut between the mandibles.
	const cx, cy, rx, ry = 30.0, 24.0, 30.0, 23.0
	birdMask = NewMask(BirdWidth, BirdHeight, func(x, y int) bool {
		fx := (float64(x) + 0.5 - cx) / rx
		fy := (float64(y) + 0.5 - cy) / ry
		if fx*fx+fy*fy <= 1 {
			return true
		}
		if x >= 54 && y >= 22 && y < 36 {
			return y != 29 && y != 30
		}
		return false
	})

	pipeBottomMask = NewMask(PipeWidth, PipeHeight, func(x, y int) bool {
		if y < PipeLip {
			return true
		}
		return x >= PipeInset && x < PipeWidth-PipeInset
	})
	pipeTopMask = pipeBottomMask.FlipVertical()
}

// BirdMask returns the shared bird silhouette. Callers must not modify it.
func BirdMask() *Mask {
	spritesOnce.Do(buildSprites)
	return birdMask
}

// PipeBottomMask returns the shared silhouette of a bottom pipe, lip up.
func PipeBottomMask() *Mask {
	spritesOnce.Do(buildSprites)
	return pipeBottomMask
}

// PipeTopMask returns the shared silhouette of a top pipe, lip down.
func PipeTopMask() *Mask {
	spritesOnce.Do(buildSprites)
	return pipeTopMask
}
