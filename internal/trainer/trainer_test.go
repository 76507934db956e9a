package trainer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baldhumanity/neat-flappy/internal/config"
	"github.com/baldhumanity/neat-flappy/internal/sim"
	"github.com/baldhumanity/neat-flappy/internal/telemetry"
	"github.com/baldhumanity/neat-flappy/neat"
	"github.com/baldhumanity/neat-flappy/neat/nn"
)

func loadNEAT(t *testing.T) *neat.Config {
	t.Helper()
	c, err := neat.LoadConfig(filepath.Join("..", "..", "configs", "config-feedforward.txt"))
	require.NoError(t, err)
	return c
}

func testSettings(generations int) *config.Settings {
	s := config.Defaults()
	s.Generations = generations
	s.Render.Mode = config.RenderNone
	return s
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeEval scores each entrant with score(id) and remembers what it saw.
type fakeEval struct {
	score       func(id int) float64
	calls       int
	nonZeroSeen int
	err         error
}

func (f *fakeEval) Evaluate(_ context.Context, entrants []sim.Entrant) (sim.Result, error) {
	f.calls++
	if f.err != nil {
		return sim.Result{}, f.err
	}
	for _, e := range entrants {
		if *e.Fitness != 0 {
			f.nonZeroSeen++
		}
		e.Controller.Decide(sim.Sensors{Y: 350, TopGap: 50, BottomGap: 150})
		*e.Fitness += f.score(e.ID)
	}
	return sim.Result{Generation: f.calls, Ticks: 10 * f.calls, Score: f.calls}, nil
}

func TestValidateNEAT(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *neat.Config)
		ok     bool
	}{
		{"flappy config", func(*neat.Config) {}, true},
		{"two inputs", func(c *neat.Config) { c.Genome.NumInputs = 2 }, false},
		{"two outputs", func(c *neat.Config) { c.Genome.NumOutputs = 2 }, false},
		{"recurrent", func(c *neat.Config) { c.Genome.FeedForward = false }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := loadNEAT(t)
			tt.mutate(c)
			err := ValidateNEAT(c)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestNewRejectsBadShape(t *testing.T) {
	c := loadNEAT(t)
	c.Genome.NumInputs = 4
	_, err := New(testSettings(1), c, &fakeEval{}, WithOutput(io.Discard), WithLogger(quietLogger()))
	assert.Error(t, err)
}

func TestNetworkController(t *testing.T) {
	c := loadNEAT(t)
	g := neat.NewGenome(1, &c.Genome)
	g.ConfigureNew()
	net, err := nn.CreateFeedForwardNetwork(g)
	require.NoError(t, err)

	action := NewNetworkController(1, net, quietLogger()).Decide(sim.Sensors{Y: 350, TopGap: 50, BottomGap: 150})
	assert.GreaterOrEqual(t, action, -1.0)
	assert.LessOrEqual(t, action, 1.0)
}

func TestNetworkControllerLogsActivationError(t *testing.T) {
	c := loadNEAT(t)
	g := neat.NewGenome(9, &c.Genome)
	g.ConfigureNew()
	net, err := nn.CreateFeedForwardNetwork(g)
	require.NoError(t, err)
	net.InputKeys = net.InputKeys[:2]

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	action := NewNetworkController(9, net, logger).Decide(sim.Sensors{Y: 350, TopGap: 50, BottomGap: 150})

	assert.Equal(t, 0.0, action)
	assert.Contains(t, buf.String(), "network activation failed")
	assert.Contains(t, buf.String(), "genome=9")
}

func TestRunResetsFitnessEachGeneration(t *testing.T) {
	eval := &fakeEval{score: func(id int) float64 { return float64(id % 7) }}
	tr, err := New(testSettings(3), loadNEAT(t), eval, WithOutput(io.Discard), WithLogger(quietLogger()))
	require.NoError(t, err)

	out, err := tr.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, eval.calls)
	assert.Zero(t, eval.nonZeroSeen, "every genome starts a generation at zero")
	assert.Equal(t, 3, out.Generations)
	assert.False(t, out.Solved)
	require.NotNil(t, out.Best)
	assert.Equal(t, 6.0, out.Best.Fitness)
	assert.Len(t, tr.Stats.GetFitnessMean(), 3)
	assert.Equal(t, 3, tr.Population.Generation)
}

func TestRunStopsAtThreshold(t *testing.T) {
	eval := &fakeEval{score: func(id int) float64 {
		if id == 7 {
			return 150
		}
		return 1
	}}
	tr, err := New(testSettings(50), loadNEAT(t), eval, WithOutput(io.Discard), WithLogger(quietLogger()))
	require.NoError(t, err)

	out, err := tr.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Solved)
	assert.Equal(t, 1, out.Generations)
	assert.Equal(t, 7, out.Best.Key)
	assert.Equal(t, 150.0, out.Best.Fitness)
}

func TestRunReturnsCancellation(t *testing.T) {
	eval := &fakeEval{err: context.Canceled}
	tr, err := New(testSettings(5), loadNEAT(t), eval, WithOutput(io.Discard), WithLogger(quietLogger()))
	require.NoError(t, err)

	out, err := tr.Run(context.Background())
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, out.Generations)
	assert.Nil(t, out.Best)
	assert.Equal(t, 1, eval.calls)
}

func TestRunFeedsRecorder(t *testing.T) {
	sink := &captureSink{}
	rec := telemetry.NewRecorder("run", quietLogger(), sink)
	eval := &fakeEval{score: func(id int) float64 { return 1 }}
	var report bytes.Buffer
	tr, err := New(testSettings(2), loadNEAT(t), eval, WithOutput(&report), WithLogger(quietLogger()), WithRecorder(rec))
	require.NoError(t, err)

	_, err = tr.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, sink.rows, 2)
	assert.Equal(t, 0, sink.rows[0].Generation)
	assert.Equal(t, 1, sink.rows[0].Score)
	assert.Equal(t, 20, sink.rows[1].Ticks)
	assert.Equal(t, 50, sink.rows[1].PopSize)
	assert.Contains(t, report.String(), "Running generation 1")
}

type captureSink struct{ rows []telemetry.GenerationStats }

func (c *captureSink) RecordGeneration(s telemetry.GenerationStats) error {
	c.rows = append(c.rows, s)
	return nil
}

func TestCheckpointAndResume(t *testing.T) {
	settings := testSettings(2)
	settings.Checkpoint.Interval = 1
	settings.Checkpoint.Prefix = filepath.Join(t.TempDir(), "ckpt-")
	eval := &fakeEval{score: func(id int) float64 { return float64(id % 5) }}

	tr, err := New(settings, loadNEAT(t), eval, WithOutput(io.Discard), WithLogger(quietLogger()))
	require.NoError(t, err)
	out, err := tr.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, settings.Checkpoint.Prefix+"1", out.Checkpoint)

	resumed := testSettings(1)
	resumed.Checkpoint.Resume = out.Checkpoint
	tr2, err := New(resumed, loadNEAT(t), eval, WithOutput(io.Discard), WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.Equal(t, 2, tr2.Population.Generation)

	_, err = tr2.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, tr2.Population.Generation)
}

func TestResumeMissingCheckpoint(t *testing.T) {
	settings := testSettings(1)
	settings.Checkpoint.Resume = filepath.Join(t.TempDir(), "nope")
	_, err := New(settings, loadNEAT(t), &fakeEval{}, WithOutput(io.Discard), WithLogger(quietLogger()))
	assert.Error(t, err)
}

func TestTrainWithSimulation(t *testing.T) {
	sc := sim.NewContext(sim.Options{Seed: 3, MaxTicks: 150})
	defer sc.Close()

	tr, err := New(testSettings(2), loadNEAT(t), sc, WithOutput(io.Discard), WithLogger(quietLogger()))
	require.NoError(t, err)

	out, err := tr.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sc.Generation())
	require.NotNil(t, out.Best)
	assert.Greater(t, out.Best.Fitness, 0.0, "every bird lives at least one tick")
}
