// Package trainer evolves flappy bird controllers: every genome of a NEAT
// generation flies one bird and the episode decides its fitness.
package trainer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/baldhumanity/neat-flappy/internal/config"
	"github.com/baldhumanity/neat-flappy/internal/sim"
	"github.com/baldhumanity/neat-flappy/internal/telemetry"
	"github.com/baldhumanity/neat-flappy/neat"
	"github.com/baldhumanity/neat-flappy/neat/nn"
)

// Evaluator runs one episode for a cohort. *sim.Context is the real one.
type Evaluator interface {
	Evaluate(ctx context.Context, entrants []sim.Entrant) (sim.Result, error)
}

// Outcome describes a finished training run.
type Outcome struct {
	Best        *neat.Genome // best genome seen, nil if nothing was evaluated
	Generations int          // generations evaluated by this trainer
	Solved      bool         // the fitness threshold was met
	Checkpoint  string       // last checkpoint written, if any
}

// Option configures a Trainer.
type Option func(*Trainer)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(t *Trainer) { t.logger = l }
}

// WithOutput sets where the NEAT progress report is printed. The default is stdout.
func WithOutput(w io.Writer) Option {
	return func(t *Trainer) { t.out = w }
}

// WithRecorder registers a telemetry recorder and feeds it every episode result.
func WithRecorder(r *telemetry.Recorder) Option {
	return func(t *Trainer) { t.recorder = r }
}

// WithReporter registers an extra NEAT reporter.
func WithReporter(r neat.Reporter) Option {
	return func(t *Trainer) { t.extra = append(t.extra, r) }
}

// Trainer drives a NEAT population through the simulation.
type Trainer struct {
	Population *neat.Population
	Stats      *neat.StatisticsReporter

	settings     *config.Settings
	eval         Evaluator
	logger       *slog.Logger
	out          io.Writer
	recorder     *telemetry.Recorder
	extra        []neat.Reporter
	checkpointer *neat.Checkpointer
	watcher      *solutionWatcher
	evaluated    int
}

// New validates the NEAT config and builds the population, or restores it
// from settings.Checkpoint.Resume when that is set.
func New(settings *config.Settings, neatConfig *neat.Config, eval Evaluator, opts ...Option) (*Trainer, error) {
	if err := ValidateNEAT(neatConfig); err != nil {
		return nil, fmt.Errorf("invalid NEAT config: %w", err)
	}

	t := &Trainer{
		settings: settings,
		eval:     eval,
		logger:   slog.Default(),
		out:      os.Stdout,
		watcher:  &solutionWatcher{},
	}
	for _, opt := range opts {
		opt(t)
	}

	var err error
	if resume := settings.Checkpoint.Resume; resume != "" {
		t.Population, err = neat.LoadCheckpoint(resume, neatConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to resume from checkpoint: %w", err)
		}
		t.logger.Info("resumed from checkpoint", "path", resume, "generation", t.Population.Generation)
	} else {
		t.Population, err = neat.NewPopulation(neatConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create population: %w", err)
		}
	}

	t.Stats = neat.NewStatisticsReporter()
	t.Population.AddReporter(neat.NewStdOutReporter(true, t.out))
	t.Population.AddReporter(t.Stats)
	t.Population.AddReporter(t.watcher)
	if t.recorder != nil {
		t.Population.AddReporter(t.recorder)
	}
	if settings.Checkpoint.Interval > 0 {
		t.checkpointer = neat.NewCheckpointer(t.Population, settings.Checkpoint.Interval, settings.Checkpoint.Prefix)
		t.Population.AddReporter(t.checkpointer)
	}
	for _, r := range t.extra {
		t.Population.AddReporter(r)
	}
	return t, nil
}

// Run evolves for at most settings.Generations generations. It stops early
// when the population meets its fitness threshold, and returns whatever was
// learned so far together with the error when ctx is cancelled.
func (t *Trainer) Run(ctx context.Context) (Outcome, error) {
	started := time.Now()
	best, err := t.Population.Run(func(genomes map[int]*neat.Genome) error {
		return t.evaluate(ctx, genomes)
	}, t.settings.Generations)

	outcome := Outcome{
		Best:        best,
		Generations: t.evaluated,
		Solved:      t.watcher.solved && !t.Population.Config.Neat.NoFitnessTermination,
	}
	if t.checkpointer != nil {
		outcome.Checkpoint = t.checkpointer.LastPath
	}

	attrs := []any{
		"generations", outcome.Generations,
		"solved", outcome.Solved,
		"elapsed", time.Since(started).Round(time.Millisecond),
	}
	if best != nil {
		attrs = append(attrs, "best_fitness", best.Fitness, "best_genome", best.Key)
	}
	if err != nil {
		t.logger.Warn("training stopped", append(attrs, "error", err)...)
		return outcome, err
	}
	t.logger.Info("training finished", attrs...)
	return outcome, nil
}

// evaluate flies every genome of the generation in one episode. Fitness
// starts from zero each generation; elites keep nothing from earlier runs.
func (t *Trainer) evaluate(ctx context.Context, genomes map[int]*neat.Genome) error {
	keys := make([]int, 0, len(genomes))
	for key := range genomes {
		keys = append(keys, key)
	}
	sort.Ints(keys)

	entrants := make([]sim.Entrant, 0, len(keys))
	for _, key := range keys {
		g := genomes[key]
		g.Fitness = 0
		net, err := nn.CreateFeedForwardNetwork(g)
		if err != nil {
			return fmt.Errorf("genome %d: %w", key, err)
		}
		entrants = append(entrants, sim.Entrant{
			ID:         key,
			Controller: NewNetworkController(key, net, t.logger),
			Fitness:    &g.Fitness,
		})
	}

	res, err := t.eval.Evaluate(ctx, entrants)
	if t.recorder != nil {
		t.recorder.ObserveEpisode(res)
	}
	if err != nil {
		return err
	}
	t.evaluated++

	t.logger.Debug("episode finished",
		"generation", t.Population.Generation,
		"score", res.Score,
		"ticks", humanize.Comma(int64(res.Ticks)),
		"survivors", res.Survivors,
	)
	if res.Survivors > 0 {
		t.logger.Info(fmt.Sprintf("%s generation hit the tick limit", humanize.Ordinal(t.Population.Generation+1)),
			"survivors", res.Survivors, "max_ticks", t.settings.MaxTicks)
	}
	return nil
}

// solutionWatcher notes whether the population reported a winner.
type solutionWatcher struct {
	neat.BaseReporter
	solved bool
}

func (w *solutionWatcher) FoundSolution(*neat.Config, int, *neat.Genome) {
	w.solved = true
}
