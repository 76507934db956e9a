package sim

import (
	"context"
	"math/rand"
	"time"

	"github.com/baldhumanity/neat-flappy/internal/game"
)

// Fitness signal.
const (
	SurvivalReward   = 0.1 // per tick alive
	CollisionPenalty = 1.0 // hitting a pipe
	PassReward       = 1.0 // to every live bird when the lead passes a pipe
	JumpThreshold    = 0.5
)

// EpisodeConfig configures a single episode.
type EpisodeConfig struct {
	Generation int
	Rand       *rand.Rand
	Renderer   Renderer // nil renders nothing
	TickRate   int      // ticks per second; 0 runs unthrottled
	MaxTicks   int      // 0 means no limit
	DrawLines  bool
}

// Result summarises a finished episode.
type Result struct {
	Generation int
	Ticks      int
	Score      int
	Survivors  int // birds still alive when MaxTicks stopped the episode
}

// Episode is one generation's run of the game.
type Episode struct {
	Cohort *Cohort
	Pipes  []*game.Pipe // ascending X
	Base   *game.Base
	Score  int
	Ticks  int
	Target int // index of the pipe ahead of the lead bird

	cfg EpisodeConfig
}

// NewEpisode sets up the opening scene: every bird at the start position and
// one pipe at FirstPipeX.
func NewEpisode(entrants []Entrant, cfg EpisodeConfig) *Episode {
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Episode{
		Cohort: NewCohort(entrants, game.BirdStartX, game.BirdStartY),
		Pipes:  []*game.Pipe{game.NewPipe(game.FirstPipeX, cfg.Rand)},
		Base:   game.NewBase(game.Floor),
		cfg:    cfg,
	}
}

// targetIndex picks the first pipe unless the lead bird has already cleared it.
func targetIndex(pipes []*game.Pipe, leadX float64) int {
	if len(pipes) > 1 && leadX > pipes[0].X+game.PipeWidth {
		return 1
	}
	return 0
}

// Step advances the episode by one tick. It does nothing once the cohort is empty.
func (e *Episode) Step() {
	if e.advance() {
		e.finishTick()
	}
}

// advance runs the world update of one tick and reports whether it did anything.
func (e *Episode) advance() bool {
	lead := e.Cohort.Lead()
	if lead == nil {
		return false
	}
	if len(e.Pipes) == 0 {
		e.Pipes = append(e.Pipes, game.NewPipe(game.SpawnX, e.cfg.Rand))
	}
	e.Target = targetIndex(e.Pipes, lead.Bird.X)
	target := e.Pipes[e.Target]

	e.Cohort.ForEachAlive(func(m *Member) {
		*m.Fitness += SurvivalReward
	})

	// Every decision sees only its own bird and the pipes as they were at the
	// end of the previous tick.
	e.Cohort.ForEachAlive(func(m *Member) {
		m.Bird.Move()
		if m.Controller.Decide(SensorsFor(m.Bird, target)) > JumpThreshold {
			m.Bird.Jump()
		}
	})

	e.Base.Move()

	offScreen := make(map[*game.Pipe]bool)
	for _, p := range e.Pipes {
		p.Move()
		e.Cohort.ForEachAlive(func(m *Member) {
			if p.Collide(m.Bird) {
				*m.Fitness -= CollisionPenalty
				e.Cohort.Kill(m)
			}
		})
		if p.OffScreen() {
			offScreen[p] = true
		}
	}

	if lead = e.Cohort.Lead(); lead != nil {
		existing := len(e.Pipes)
		for _, p := range e.Pipes[:existing] {
			if p.Passed || p.X >= lead.Bird.X {
				continue
			}
			p.Passed = true
			e.Score++
			e.Cohort.ForEachAlive(func(m *Member) {
				*m.Fitness += PassReward
			})
			e.Pipes = append(e.Pipes, game.NewPipe(game.SpawnX, e.cfg.Rand))
		}
	}

	if len(offScreen) > 0 {
		kept := e.Pipes[:0]
		for _, p := range e.Pipes {
			if !offScreen[p] {
				kept = append(kept, p)
			}
		}
		e.Pipes = kept
	}

	e.Cohort.ForEachAlive(func(m *Member) {
		if m.Bird.OutOfBounds() {
			e.Cohort.Kill(m)
		}
	})

	e.Cohort.Reap()
	return true
}

// finishTick counts the tick and hands its frame to the renderer.
func (e *Episode) finishTick() {
	e.Ticks++
	if e.cfg.Renderer != nil {
		e.cfg.Renderer.Render(e.Frame())
	}
}

// Frame snapshots the episode for a renderer.
func (e *Episode) Frame() Frame {
	f := Frame{
		Birds:      make([]BirdState, 0, e.Cohort.Len()),
		Pipes:      make([]PipeState, 0, len(e.Pipes)),
		BaseY:      e.Base.Y,
		BaseX1:     e.Base.X1,
		BaseX2:     e.Base.X2,
		Score:      e.Score,
		Generation: e.cfg.Generation,
		Alive:      e.Cohort.Len(),
		Tick:       e.Ticks,
		Target:     -1,
		DrawLines:  e.cfg.DrawLines,
	}
	e.Cohort.ForEachAlive(func(m *Member) {
		f.Birds = append(f.Birds, BirdState{X: m.Bird.X, Y: m.Bird.Y, Tilt: m.Bird.Tilt})
	})
	for _, p := range e.Pipes {
		f.Pipes = append(f.Pipes, PipeState{X: p.X, Top: p.Top, Bottom: p.Bottom, Height: p.Height})
	}
	if lead := e.Cohort.Lead(); lead != nil && len(e.Pipes) > 0 {
		f.Target = targetIndex(e.Pipes, lead.Bird.X)
	}
	return f
}

func (e *Episode) result() Result {
	return Result{
		Generation: e.cfg.Generation,
		Ticks:      e.Ticks,
		Score:      e.Score,
		Survivors:  e.Cohort.Len(),
	}
}

// Run steps the episode until the cohort is empty or MaxTicks is reached.
// With a TickRate it waits for the next tick between steps. A cancelled ctx
// stops the run and its error is returned. A tick cancelled part way through
// is neither counted nor rendered.
func (e *Episode) Run(ctx context.Context) (Result, error) {
	var tick <-chan time.Time
	if e.cfg.TickRate > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(e.cfg.TickRate))
		defer ticker.Stop()
		tick = ticker.C
	}

	for e.Cohort.Len() > 0 {
		if e.cfg.MaxTicks > 0 && e.Ticks >= e.cfg.MaxTicks {
			break
		}
		if err := ctx.Err(); err != nil {
			return e.result(), err
		}
		if !e.advance() {
			break
		}
		if err := ctx.Err(); err != nil {
			return e.result(), err
		}
		e.finishTick()
		if tick == nil || e.Cohort.Len() == 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return e.result(), ctx.Err()
		case <-tick:
		}
	}
	return e.result(), nil
}
