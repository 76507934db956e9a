// Package render draws simulation frames. Terminal paints them with tcell;
// Discard drops them for headless training.
package render

import "github.com/baldhumanity/neat-flappy/internal/sim"

// Discard is a renderer that draws nothing.
type Discard struct{}

// Render implements sim.Renderer.
func (Discard) Render(sim.Frame) {}

var _ sim.Renderer = Discard{}
