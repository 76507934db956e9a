package sim

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baldhumanity/neat-flappy/internal/game"
)

var neverJump = ControllerFunc(func(Sensors) float64 { return 0 })

func entrants(n int, c Controller) ([]Entrant, []float64) {
	fitness := make([]float64, n)
	out := make([]Entrant, n)
	for i := range out {
		out[i] = Entrant{ID: i + 1, Controller: c, Fitness: &fitness[i]}
	}
	return out, fitness
}

type recordingRenderer struct {
	frames []Frame
	closed bool
}

func (r *recordingRenderer) Render(f Frame) { r.frames = append(r.frames, f) }
func (r *recordingRenderer) Close() error  { r.closed = true; return nil }

func seeded() *rand.Rand { return rand.New(rand.NewSource(1)) }

func TestCohortKillAndReap(t *testing.T) {
	es, _ := entrants(4, neverJump)
	c := NewCohort(es, 10, 20)
	require.Equal(t, 4, c.Len())

	c.ForEachAlive(func(m *Member) {
		if m.ID%2 == 0 {
			c.Kill(m)
			c.Kill(m)
		}
	})
	assert.Equal(t, 2, c.Len(), "killing twice counts once")
	assert.Equal(t, 2, c.Reap())
	assert.Equal(t, 2, c.Len())

	var ids []int
	c.ForEachAlive(func(m *Member) {
		ids = append(ids, m.ID)
		assert.Equal(t, m.ID-1, m.Slot)
		assert.Equal(t, 10.0, m.Bird.X)
	})
	assert.ElementsMatch(t, []int{1, 3}, ids)
}

func TestCohortLead(t *testing.T) {
	es, _ := entrants(3, neverJump)
	c := NewCohort(es, 50, 50)
	require.Equal(t, 0, c.Lead().Slot, "ties go to the lowest slot")

	c.ForEachAlive(func(m *Member) {
		if m.Slot == 0 {
			c.Kill(m)
		}
	})
	c.Reap()
	assert.Equal(t, 1, c.Lead().Slot)

	c.ForEachAlive(func(m *Member) {
		if m.Slot == 2 {
			m.Bird.X = 60
		}
	})
	assert.Equal(t, 2, c.Lead().Slot, "the frontmost bird leads")

	c.ForEachAlive(c.Kill)
	c.Reap()
	assert.Nil(t, c.Lead())
}

func TestSensorsFor(t *testing.T) {
	p := &game.Pipe{X: 400}
	p.SetHeight(300)
	s := SensorsFor(game.NewBird(230, 350), p)
	assert.Equal(t, Sensors{Y: 350, TopGap: 50, BottomGap: 150}, s)
	assert.Equal(t, []float64{350, 50, 150}, s.Slice())
}

func TestTargetIndex(t *testing.T) {
	pipes := []*game.Pipe{{X: 100}, {X: 400}}
	assert.Equal(t, 0, targetIndex(pipes[:1], 500))
	assert.Equal(t, 0, targetIndex(pipes, 200))
	assert.Equal(t, 1, targetIndex(pipes, 230))
}

func TestNeverJumpingBirdHitsTheFloor(t *testing.T) {
	es, fitness := entrants(1, neverJump)
	r := &recordingRenderer{}
	ep := NewEpisode(es, EpisodeConfig{Generation: 4, Rand: seeded(), Renderer: r})

	res, err := ep.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Generation: 4, Ticks: 23, Score: 0, Survivors: 0}, res)
	assert.InDelta(t, 2.3, fitness[0], 1e-9)

	require.Len(t, r.frames, 23)
	last := r.frames[len(r.frames)-1]
	assert.Equal(t, 0, last.Alive)
	assert.Empty(t, last.Birds)
	assert.Equal(t, -1, last.Target)
	assert.Equal(t, 4, last.Generation)
}

func TestAlwaysJumpingBirdsHitTheTopPipe(t *testing.T) {
	alwaysJump := ControllerFunc(func(Sensors) float64 { return 1 })
	es, fitness := entrants(3, alwaysJump)
	ep := NewEpisode(es, EpisodeConfig{Generation: 1, Rand: seeded()})

	res, err := ep.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Generation: 1, Ticks: 46, Score: 0, Survivors: 0}, res)
	assert.Equal(t, 0, ep.Cohort.Len())
	for _, f := range fitness {
		assert.InDelta(t, 46*SurvivalReward-CollisionPenalty, f, 1e-9)
	}
}

// checkingRenderer asserts per-tick episode invariants from the frames it sees.
type checkingRenderer struct {
	t         *testing.T
	lastScore int
	frames    int
}

func (r *checkingRenderer) Render(f Frame) {
	r.frames++
	assert.LessOrEqual(r.t, f.Score-r.lastScore, 1, "tick %d", f.Tick)
	assert.GreaterOrEqual(r.t, f.Score, r.lastScore)
	r.lastScore = f.Score
	for i := 1; i < len(f.Pipes); i++ {
		assert.LessOrEqual(r.t, f.Pipes[i-1].X, f.Pipes[i].X, "pipes stay ordered")
	}
	assert.Equal(r.t, len(f.Birds), f.Alive)
}

func TestHeuristicControllerEpisodes(t *testing.T) {
	// Flap whenever the bird is nearer the bottom pipe than the top one.
	heuristic := ControllerFunc(func(s Sensors) float64 {
		if s.BottomGap < s.TopGap {
			return 1
		}
		return 0
	})
	const limit = 3000
	for seed := int64(1); seed <= 20; seed++ {
		es, _ := entrants(4, heuristic)
		r := &checkingRenderer{t: t}
		ep := NewEpisode(es, EpisodeConfig{
			Rand:     rand.New(rand.NewSource(seed)),
			Renderer: r,
			MaxTicks: limit,
		})

		res, err := ep.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, res.Ticks, r.frames)
		assert.Equal(t, res.Score, r.lastScore)
		if res.Ticks < limit {
			assert.Equal(t, 0, res.Survivors, "seed %d", seed)
		}

		passed := 0
		for _, p := range ep.Pipes {
			if p.Passed {
				passed++
			}
		}
		assert.LessOrEqual(t, passed, res.Score, "seed %d", seed)
	}
}

func TestStepOnEmptyCohortIsNoop(t *testing.T) {
	ep := NewEpisode(nil, EpisodeConfig{Rand: seeded()})
	ep.Step()
	assert.Equal(t, 0, ep.Ticks)

	res, err := ep.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Ticks)
}

func TestScoreCountsEachPipeOnce(t *testing.T) {
	es, fitness := entrants(2, neverJump)
	ep := NewEpisode(es, EpisodeConfig{Rand: seeded()})
	ep.Pipes[0].X = 235
	ep.Pipes[0].SetHeight(300)

	ep.Step()
	assert.Equal(t, 1, ep.Score)
	require.Len(t, ep.Pipes, 2)
	assert.True(t, ep.Pipes[0].Passed)
	assert.Equal(t, float64(game.SpawnX), ep.Pipes[1].X)
	assert.Equal(t, 2, ep.Cohort.Len())
	for _, f := range fitness {
		assert.InDelta(t, SurvivalReward+PassReward, f, 1e-9)
	}

	ep.Step()
	assert.Equal(t, 1, ep.Score)
	assert.Len(t, ep.Pipes, 2)
	assert.Equal(t, 2, ep.Ticks)
}

func TestPipeCollisionPenalises(t *testing.T) {
	es, fitness := entrants(1, neverJump)
	ep := NewEpisode(es, EpisodeConfig{Rand: seeded()})
	ep.Pipes[0].X = 209
	ep.Pipes[0].SetHeight(300)
	ep.Pipes[0].Passed = true
	ep.Cohort.ForEachAlive(func(m *Member) { m.Bird.Y = 280 })

	ep.Step()
	assert.Equal(t, 0, ep.Cohort.Len())
	assert.InDelta(t, SurvivalReward-CollisionPenalty, fitness[0], 1e-9)
}

func TestOffScreenPipesAreDropped(t *testing.T) {
	es, _ := entrants(1, neverJump)
	ep := NewEpisode(es, EpisodeConfig{Rand: seeded()})
	ep.Pipes[0].X = -game.PipeWidth + 1
	ep.Pipes[0].Passed = true

	ep.Step()
	assert.Empty(t, ep.Pipes)

	ep.Step()
	require.Len(t, ep.Pipes, 1, "a pipe is spawned when none are left")
	assert.Equal(t, float64(game.SpawnX)-game.PipeVelocity, ep.Pipes[0].X)
}

func TestMaxTicksKeepsSurvivors(t *testing.T) {
	es, fitness := entrants(3, neverJump)
	ep := NewEpisode(es, EpisodeConfig{Rand: seeded(), MaxTicks: 10})

	res, err := ep.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, res.Ticks)
	assert.Equal(t, 3, res.Survivors)
	for _, f := range fitness {
		assert.InDelta(t, 1.0, f, 1e-9)
	}
}

func TestRunStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	quitter := ControllerFunc(func(Sensors) float64 {
		calls++
		if calls == 5 {
			cancel()
		}
		return 0
	})
	es, _ := entrants(1, quitter)
	r := &recordingRenderer{}
	ep := NewEpisode(es, EpisodeConfig{Rand: seeded(), Renderer: r})

	res, err := ep.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 4, res.Ticks, "the interrupted tick is not counted")
	assert.Len(t, r.frames, 4, "the interrupted tick is not rendered")
	assert.Equal(t, 1, res.Survivors)
}

func TestRunWithTickRate(t *testing.T) {
	es, _ := entrants(1, neverJump)
	ep := NewEpisode(es, EpisodeConfig{Rand: seeded(), TickRate: 1000, MaxTicks: 3})

	res, err := ep.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Ticks)
}

func TestContextEvaluate(t *testing.T) {
	r := &recordingRenderer{}
	sc := NewContext(Options{Renderer: r, Seed: 7, MaxTicks: 5, DrawLines: true})

	es, _ := entrants(2, neverJump)
	res, err := sc.Evaluate(context.Background(), es)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Generation)
	assert.Equal(t, 1, sc.Generation())

	res, err = sc.Evaluate(context.Background(), es)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Generation)

	require.NotEmpty(t, r.frames)
	assert.True(t, r.frames[0].DrawLines)
	assert.Equal(t, 2, r.frames[0].Alive)

	require.NoError(t, sc.Close())
	assert.True(t, r.closed)
}

func TestContextSeedIsReproducible(t *testing.T) {
	heights := func() float64 {
		r := &recordingRenderer{}
		sc := NewContext(Options{Renderer: r, Seed: 42, MaxTicks: 1})
		es, _ := entrants(1, neverJump)
		_, err := sc.Evaluate(context.Background(), es)
		require.NoError(t, err)
		return r.frames[0].Pipes[0].Height
	}
	assert.Equal(t, heights(), heights())
}

func TestCloseWithoutRenderer(t *testing.T) {
	assert.NoError(t, NewContext(Options{}).Close())
}
