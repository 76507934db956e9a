package sim

import (
	"context"
	"io"
	"math/rand"
	"time"
)

// Options configure a Context.
type Options struct {
	Renderer  Renderer // nil renders nothing
	TickRate  int      // ticks per second; 0 runs as fast as possible
	Seed      int64    // 0 seeds from the clock
	DrawLines bool
	MaxTicks  int // 0 means no limit
}

// Context owns everything that outlives a single episode: the renderer, the
// obstacle RNG and the generation counter.
type Context struct {
	renderer   Renderer
	tickRate   int
	drawLines  bool
	maxTicks   int
	rng        *rand.Rand
	generation int
}

// NewContext creates a simulation context.
func NewContext(opts Options) *Context {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Context{
		renderer:  opts.Renderer,
		tickRate:  opts.TickRate,
		drawLines: opts.DrawLines,
		maxTicks:  opts.MaxTicks,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// Generation returns the number of episodes started so far.
func (c *Context) Generation() int {
	return c.generation
}

// Evaluate runs one episode for the entrants and adds the result to each
// entrant's fitness accumulator.
func (c *Context) Evaluate(ctx context.Context, entrants []Entrant) (Result, error) {
	c.generation++
	ep := NewEpisode(entrants, EpisodeConfig{
		Generation: c.generation,
		Rand:       c.rng,
		Renderer:   c.renderer,
		TickRate:   c.tickRate,
		MaxTicks:   c.maxTicks,
		DrawLines:  c.drawLines,
	})
	return ep.Run(ctx)
}

// Close releases the renderer if it holds resources.
func (c *Context) Close() error {
	if closer, ok := c.renderer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
