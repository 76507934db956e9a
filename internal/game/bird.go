package game

import "math"

// Bird is the agent. X stays fixed for an episode; only Y changes.
type Bird struct {
	X         float64
	Y         float64
	Vel       float64 // velocity set by the last jump
	TickCount int     // ticks since the last jump
	Height    float64 // Y at the last jump
	Tilt      float64 // degrees, for the renderer

	disp float64
}

// NewBird creates a bird at rest.
func NewBird(x, y float64) *Bird {
	return &Bird{X: x, Y: y, Height: y}
}

// Jump gives the bird an upward impulse.
func (b *Bird) Jump() {
	b.Vel = JumpVelocity
	b.TickCount = 0
	b.Height = b.Y
}

// Move advances the bird one tick along its parabola since the last jump.
func (b *Bird) Move() {
	b.TickCount++
	t := float64(b.TickCount)

	d := b.Vel*t + 0.5*Gravity*t*t
	if d > 0 {
		d += FallBias
	}
	if math.Abs(d) > TerminalVelocity {
		d = math.Copysign(TerminalVelocity, d)
	}
	b.disp = d
	b.Y += d

	if d < 0 || b.Y < b.Height+50 {
		if b.Tilt < MaxRotation {
			b.Tilt = MaxRotation
		}
	} else if b.Tilt > MinTilt {
		b.Tilt = math.Max(b.Tilt-RotationVelocity, MinTilt)
	}
}

// Displacement returns the distance moved on the last tick.
func (b *Bird) Displacement() float64 {
	return b.disp
}

// Mask returns the bird silhouette.
func (b *Bird) Mask() *Mask {
	return BirdMask()
}

// OutOfBounds reports whether the bird hit the ground or left the top of the screen.
func (b *Bird) OutOfBounds() bool {
	return b.Y+BirdHeight-10 >= Floor || b.Y < -50
}
