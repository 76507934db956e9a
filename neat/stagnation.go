package neat

import (
	"fmt"
	"math"
	"sort"
)

// Stagnation manages the detection of stagnant species.
type Stagnation struct {
	Config             *StagnationConfig
	SpeciesFitnessFunc func([]float64) float64
}

// NewStagnation creates a new stagnation manager.
func NewStagnation(config *StagnationConfig) (*Stagnation, error) {
	fn, ok := StatFunctions[config.SpeciesFitnessFunc]
	if !ok {
		return nil, fmt.Errorf("invalid species_fitness_func in config: %s", config.SpeciesFitnessFunc)
	}
	return &Stagnation{
		Config:             config,
		SpeciesFitnessFunc: fn,
	}, nil
}

// StagnationInfo holds the results of the stagnation update for a single species.
type StagnationInfo struct {
	SpeciesID  int
	Species    *Species
	IsStagnant bool
}

// Update recomputes each species' fitness and history, then decides which
// species are stagnant. The species_elitism fittest species are always kept.
// The result is ordered from least to most fit.
func (s *Stagnation) Update(speciesSet *SpeciesSet, generation int) []StagnationInfo {
	result := make([]StagnationInfo, 0, len(speciesSet.Species))
	for _, sid := range sortedSpeciesKeys(speciesSet.Species) {
		sp := speciesSet.Species[sid]
		previousMax := math.Inf(-1)
		if len(sp.FitnessHistory) > 0 {
			previousMax = MaxFloat(sp.FitnessHistory)
		}

		if fitnesses := sp.GetFitnesses(); len(fitnesses) > 0 {
			sp.Fitness = s.SpeciesFitnessFunc(fitnesses)
		} else {
			sp.Fitness = math.Inf(-1)
		}
		sp.FitnessHistory = append(sp.FitnessHistory, sp.Fitness)
		sp.AdjustedFitness = 0
		if sp.Fitness > previousMax {
			sp.LastImproved = generation
		}
		result = append(result, StagnationInfo{SpeciesID: sid, Species: sp})
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Species.Fitness < result[j].Species.Fitness
	})

	numNonStagnant := len(result)
	for i := range result {
		sp := result[i].Species
		stagnantTime := generation - sp.LastImproved
		isStagnant := false
		if numNonStagnant > s.Config.SpeciesElitism {
			isStagnant = stagnantTime >= s.Config.MaxStagnation
		}
		if len(result)-i <= s.Config.SpeciesElitism {
			isStagnant = false
		}
		if isStagnant {
			numNonStagnant--
		}
		result[i].IsStagnant = isStagnant
	}
	return result
}
