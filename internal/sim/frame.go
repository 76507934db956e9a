package sim

// Renderer receives one Frame per tick. It never feeds back into the simulation.
type Renderer interface {
	Render(f Frame)
}

// BirdState is what a renderer needs to draw a bird.
type BirdState struct {
	X, Y, Tilt float64
}

// PipeState is what a renderer needs to draw a pipe pair.
type PipeState struct {
	X, Top, Bottom, Height float64
}

// Frame is a snapshot of an episode after a tick.
type Frame struct {
	Birds      []BirdState
	Pipes      []PipeState
	BaseY      float64
	BaseX1     float64
	BaseX2     float64
	Score      int
	Generation int
	Alive      int
	Tick       int
	Target     int  // index into Pipes of the pipe the birds are steering for
	DrawLines  bool // draw guide lines from each bird to the target gap
}
