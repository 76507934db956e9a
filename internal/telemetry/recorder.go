package telemetry

import (
	"log/slog"
	"time"

	"github.com/baldhumanity/neat-flappy/internal/sim"
	"github.com/baldhumanity/neat-flappy/neat"
)

// Sink receives one record per evaluated generation.
type Sink interface {
	RecordGeneration(stats GenerationStats) error
}

// Recorder is a neat.Reporter that builds GenerationStats after every
// evaluation and hands them to its sinks. The episode result must be
// supplied with ObserveEpisode before the population reports PostEvaluate.
type Recorder struct {
	neat.BaseReporter

	runID      string
	logger     *slog.Logger
	sinks      []Sink
	generation int
	episode    sim.Result
	started    time.Time
	history    []GenerationStats
}

// NewRecorder creates a recorder that stamps every record with runID.
// Nil sinks are skipped.
func NewRecorder(runID string, logger *slog.Logger, sinks ...Sink) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{runID: runID, logger: logger}
	for _, s := range sinks {
		if s != nil {
			r.sinks = append(r.sinks, s)
		}
	}
	return r
}

// ObserveEpisode stores the result of the episode that scored the current generation.
func (r *Recorder) ObserveEpisode(res sim.Result) {
	r.episode = res
}

func (r *Recorder) StartGeneration(generation int) {
	r.generation = generation
	r.started = time.Now()
	r.episode = sim.Result{}
}

func (r *Recorder) PostEvaluate(_ *neat.Config, population map[int]*neat.Genome, species *neat.SpeciesSet, best *neat.Genome) {
	stats := Compute(r.generation, population, species, best)
	stats.RunID = r.runID
	stats.Score = r.episode.Score
	stats.Ticks = r.episode.Ticks
	stats.Survivors = r.episode.Survivors
	if !r.started.IsZero() {
		stats.DurationMS = time.Since(r.started).Milliseconds()
	}
	r.history = append(r.history, stats)

	r.logger.Info("generation evaluated", "stats", stats)
	for _, s := range r.sinks {
		if err := s.RecordGeneration(stats); err != nil {
			r.logger.Warn("telemetry write failed", "generation", stats.Generation, "error", err)
		}
	}
}

func (r *Recorder) SpeciesStagnant(speciesID int, species *neat.Species) {
	r.logger.Debug("species stagnant", "species", speciesID, "size", len(species.Members))
}

func (r *Recorder) CompleteExtinction() {
	r.logger.Warn("all species extinct")
}

func (r *Recorder) Info(msg string) {
	r.logger.Info(msg)
}

// History returns every record produced so far.
func (r *Recorder) History() []GenerationStats {
	return r.history
}

// Last returns the most recent record.
func (r *Recorder) Last() (GenerationStats, bool) {
	if len(r.history) == 0 {
		return GenerationStats{}, false
	}
	return r.history[len(r.history)-1], true
}
