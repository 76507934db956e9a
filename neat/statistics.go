package neat

import (
	"sort"
)

// StatisticsReporter records the best genome and the per-species fitness of
// every generation so that the run can be summarised afterwards.
type StatisticsReporter struct {
	BaseReporter

	MostFitGenomes []*Genome
	// GenerationStatistics holds, per generation, species ID -> genome key -> fitness.
	GenerationStatistics []map[int]map[int]float64
}

// NewStatisticsReporter creates an empty StatisticsReporter.
func NewStatisticsReporter() *StatisticsReporter {
	return &StatisticsReporter{}
}

// PostEvaluate snapshots the generation's best genome and the species fitnesses.
func (s *StatisticsReporter) PostEvaluate(config *Config, population map[int]*Genome, speciesSet *SpeciesSet, best *Genome) {
	if best != nil {
		s.MostFitGenomes = append(s.MostFitGenomes, best.Copy())
	}

	speciesStats := make(map[int]map[int]float64)
	for gid, g := range population {
		sid, ok := speciesSet.GetSpeciesID(gid)
		if !ok {
			sid = 0 // not yet speciated (first generation)
		}
		if speciesStats[sid] == nil {
			speciesStats[sid] = make(map[int]float64)
		}
		speciesStats[sid][gid] = g.Fitness
	}
	s.GenerationStatistics = append(s.GenerationStatistics, speciesStats)
}

// GetFitnessStat applies f to the fitness values of each recorded generation.
func (s *StatisticsReporter) GetFitnessStat(f func([]float64) float64) []float64 {
	out := make([]float64, 0, len(s.GenerationStatistics))
	for _, stats := range s.GenerationStatistics {
		var scores []float64
		for _, members := range stats {
			for _, fitness := range members {
				scores = append(scores, fitness)
			}
		}
		out = append(out, f(scores))
	}
	return out
}

// GetFitnessMean returns the mean fitness of each generation.
func (s *StatisticsReporter) GetFitnessMean() []float64 {
	return s.GetFitnessStat(Mean)
}

// GetFitnessStdev returns the fitness standard deviation of each generation.
func (s *StatisticsReporter) GetFitnessStdev() []float64 {
	return s.GetFitnessStat(Stdev)
}

// GetFitnessMedian returns the median fitness of each generation.
func (s *StatisticsReporter) GetFitnessMedian() []float64 {
	return s.GetFitnessStat(Median)
}

// BestGenomes returns up to n of the most fit genomes ever seen, best first.
// A genome that was best in several generations is listed once.
func (s *StatisticsReporter) BestGenomes(n int) []*Genome {
	unique := make(map[int]*Genome)
	for _, g := range s.MostFitGenomes {
		if prev, ok := unique[g.Key]; !ok || g.Fitness > prev.Fitness {
			unique[g.Key] = g
		}
	}
	out := make([]*Genome, 0, len(unique))
	for _, g := range unique {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Fitness != out[j].Fitness {
			return out[i].Fitness > out[j].Fitness
		}
		return out[i].Key < out[j].Key
	})
	if n < len(out) {
		out = out[:n]
	}
	return out
}

// BestGenome returns the most fit genome ever seen, or nil before any evaluation.
func (s *StatisticsReporter) BestGenome() *Genome {
	best := s.BestGenomes(1)
	if len(best) == 0 {
		return nil
	}
	return best[0]
}

// GetSpeciesSizes returns, per generation, the member count of every species
// ever seen, indexed by species ID - 1. Species absent in a generation count 0.
func (s *StatisticsReporter) GetSpeciesSizes() [][]int {
	maxSpecies := 0
	for _, stats := range s.GenerationStatistics {
		for sid := range stats {
			maxSpecies = max(maxSpecies, sid)
		}
	}
	out := make([][]int, 0, len(s.GenerationStatistics))
	for _, stats := range s.GenerationStatistics {
		sizes := make([]int, maxSpecies)
		for sid, members := range stats {
			if sid > 0 {
				sizes[sid-1] = len(members)
			}
		}
		out = append(out, sizes)
	}
	return out
}
