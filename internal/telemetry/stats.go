// Package telemetry turns each evaluated generation into a GenerationStats
// record and fans it out to CSV, the log and any other Sink.
package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/baldhumanity/neat-flappy/neat"
)

// GenerationStats summarises one evaluated generation.
type GenerationStats struct {
	RunID      string `csv:"run_id"`
	Generation int    `csv:"generation"`
	PopSize    int    `csv:"pop_size"`
	Species    int    `csv:"species"`

	// Fitness distribution
	FitnessBest   float64 `csv:"fitness_best"`
	FitnessMean   float64 `csv:"fitness_mean"`
	FitnessStdev  float64 `csv:"fitness_stdev"`
	FitnessMedian float64 `csv:"fitness_median"`
	FitnessP90    float64 `csv:"fitness_p90"`

	// Champion of the generation
	BestGenome  int `csv:"best_genome"`
	BestNodes   int `csv:"best_nodes"`
	BestConns   int `csv:"best_conns"` // enabled connections only
	BestSpecies int `csv:"best_species"`

	// Episode
	Score      int   `csv:"score"`
	Ticks      int   `csv:"ticks"`
	Survivors  int   `csv:"survivors"`
	DurationMS int64 `csv:"duration_ms"`
}

// Compute fills in the population side of the stats. Episode fields are left zero.
func Compute(generation int, population map[int]*neat.Genome, species *neat.SpeciesSet, best *neat.Genome) GenerationStats {
	s := GenerationStats{
		Generation: generation,
		PopSize:    len(population),
	}
	if species != nil {
		s.Species = len(species.Species)
	}

	fitnesses := make([]float64, 0, len(population))
	for _, g := range population {
		fitnesses = append(fitnesses, g.Fitness)
	}
	if len(fitnesses) > 0 {
		sort.Float64s(fitnesses)
		s.FitnessBest = fitnesses[len(fitnesses)-1]
		s.FitnessMean, s.FitnessStdev = stat.MeanStdDev(fitnesses, nil)
		if len(fitnesses) < 2 {
			s.FitnessStdev = 0
		}
		s.FitnessMedian = stat.Quantile(0.5, stat.Empirical, fitnesses, nil)
		s.FitnessP90 = stat.Quantile(0.9, stat.Empirical, fitnesses, nil)
	}

	if best != nil {
		s.BestGenome = best.Key
		s.BestNodes, s.BestConns = best.Size()
		if species != nil {
			if sid, ok := species.GetSpeciesID(best.Key); ok {
				s.BestSpecies = sid
			}
		}
	}
	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s GenerationStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("generation", s.Generation),
		slog.Int("pop_size", s.PopSize),
		slog.Int("species", s.Species),
		slog.Float64("fitness_best", s.FitnessBest),
		slog.Float64("fitness_mean", s.FitnessMean),
		slog.Float64("fitness_stdev", s.FitnessStdev),
		slog.Float64("fitness_median", s.FitnessMedian),
		slog.Float64("fitness_p90", s.FitnessP90),
		slog.Int("best_genome", s.BestGenome),
		slog.Int("best_nodes", s.BestNodes),
		slog.Int("best_conns", s.BestConns),
		slog.Int("score", s.Score),
		slog.Int("ticks", s.Ticks),
		slog.Int("survivors", s.Survivors),
		slog.Int64("duration_ms", s.DurationMS),
	)
}
