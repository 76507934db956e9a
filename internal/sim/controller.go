// Package sim runs flappy bird episodes: a cohort of birds, each flown by its
// own Controller, scored tick by tick until every bird is gone.
package sim

import (
	"math"

	"github.com/baldhumanity/neat-flappy/internal/game"
)

// Controller decides whether a bird jumps. An action above JumpThreshold jumps.
type Controller interface {
	Decide(s Sensors) float64
}

// ControllerFunc adapts a plain function to the Controller interface.
type ControllerFunc func(s Sensors) float64

// Decide calls f(s).
func (f ControllerFunc) Decide(s Sensors) float64 {
	return f(s)
}

// Sensors are the readings a controller sees on each tick.
type Sensors struct {
	Y         float64 // bird height
	TopGap    float64 // distance to the bottom edge of the top pipe
	BottomGap float64 // distance to the top edge of the bottom pipe
}

// SensorsFor measures bird against the target pipe.
func SensorsFor(b *game.Bird, target *game.Pipe) Sensors {
	return Sensors{
		Y:         b.Y,
		TopGap:    math.Abs(b.Y - target.Height),
		BottomGap: math.Abs(b.Y - target.Bottom),
	}
}

// Slice returns the readings in network input order.
func (s Sensors) Slice() []float64 {
	return []float64{s.Y, s.TopGap, s.BottomGap}
}
