package neat

import (
	"math"
	"math/rand"
	"sort"
)

// Reproduction handles the creation of new genomes, either from scratch or through crossover and mutation.
type Reproduction struct {
	Config        *ReproductionConfig
	NextGenomeKey int           // Next genome key to hand out
	Ancestors     map[int][]int // Map genome key -> parent keys

	stagnation *Stagnation
	reporters  *ReporterSet
}

// NewReproduction creates a new reproduction manager.
func NewReproduction(config *ReproductionConfig, stagnation *Stagnation, reporters *ReporterSet) *Reproduction {
	return &Reproduction{
		Config:        config,
		NextGenomeKey: 1,
		Ancestors:     make(map[int][]int),
		stagnation:    stagnation,
		reporters:     reporters,
	}
}

// getNextKey gets the next available genome key and increments the internal counter.
func (r *Reproduction) getNextKey() int {
	key := r.NextGenomeKey
	r.NextGenomeKey++
	return key
}

// CreateNewPopulation creates an initial population of genomes.
func (r *Reproduction) CreateNewPopulation(genomeConfig *GenomeConfig, popSize int) map[int]*Genome {
	newGenomes := make(map[int]*Genome, popSize)
	for i := 0; i < popSize; i++ {
		key := r.getNextKey()
		g := NewGenome(key, genomeConfig)
		g.ConfigureNew()
		newGenomes[key] = g
		r.Ancestors[key] = []int{}
	}
	return newGenomes
}

// Reproduce creates the next generation from the current species.
// Stagnant species are dropped from speciesSet. An empty result means every species went extinct.
func (r *Reproduction) Reproduce(config *Config, speciesSet *SpeciesSet, popSize int, generation int) map[int]*Genome {
	var allFitnesses []float64
	var remaining []*Species
	for _, info := range r.stagnation.Update(speciesSet, generation) {
		if info.IsStagnant {
			r.reporters.SpeciesStagnant(info.SpeciesID, info.Species)
			continue
		}
		if fitnesses := info.Species.GetFitnesses(); len(fitnesses) > 0 {
			allFitnesses = append(allFitnesses, fitnesses...)
			remaining = append(remaining, info.Species)
		}
	}

	if len(remaining) == 0 {
		speciesSet.Species = make(map[int]*Species)
		return make(map[int]*Genome)
	}

	// Fitness sharing: each species' mean member fitness, normalised to the population range.
	minFitness := MinFloat(allFitnesses)
	maxFitness := MaxFloat(allFitnesses)
	fitnessRange := math.Max(1.0, maxFitness-minFitness)

	adjustedFitnesses := make([]float64, len(remaining))
	previousSizes := make([]int, len(remaining))
	for i, sp := range remaining {
		sp.AdjustedFitness = (Mean(sp.GetFitnesses()) - minFitness) / fitnessRange
		adjustedFitnesses[i] = sp.AdjustedFitness
		previousSizes[i] = len(sp.Members)
	}
	r.reporters.Infof("Average adjusted fitness: %.3f", Mean(adjustedFitnesses))

	minSpeciesSize := max(r.Config.MinSpeciesSize, r.Config.Elitism)
	spawnAmounts := computeSpawnAmounts(adjustedFitnesses, previousSizes, popSize, minSpeciesSize)

	newPopulation := make(map[int]*Genome, popSize)
	newAncestors := make(map[int][]int, popSize)
	speciesSet.Species = make(map[int]*Species, len(remaining))

	for i, sp := range remaining {
		spawn := max(spawnAmounts[i], r.Config.Elitism)

		oldMembers := make([]*Genome, 0, len(sp.Members))
		for _, g := range sp.Members {
			oldMembers = append(oldMembers, g)
		}
		sort.Slice(oldMembers, func(a, b int) bool {
			if oldMembers[a].Fitness != oldMembers[b].Fitness {
				return oldMembers[a].Fitness > oldMembers[b].Fitness
			}
			return oldMembers[a].Key < oldMembers[b].Key
		})

		sp.Members = make(map[int]*Genome)
		speciesSet.Species[sp.Key] = sp

		// Elites pass through unchanged.
		for j := 0; j < r.Config.Elitism && j < len(oldMembers); j++ {
			elite := oldMembers[j]
			newPopulation[elite.Key] = elite
			newAncestors[elite.Key] = []int{elite.Key}
			spawn--
		}
		if spawn <= 0 {
			continue
		}

		// Only the top survival_threshold fraction (at least two) may breed.
		cutoff := int(math.Ceil(r.Config.SurvivalThreshold * float64(len(oldMembers))))
		cutoff = min(max(cutoff, 2), len(oldMembers))
		parents := oldMembers[:cutoff]

		for ; spawn > 0; spawn-- {
			parent1 := parents[rand.Intn(len(parents))]
			parent2 := parents[rand.Intn(len(parents))]

			childKey := r.getNextKey()
			child := NewGenome(childKey, &config.Genome)
			child.ConfigureCrossover(parent1, parent2)
			child.Mutate()

			newPopulation[childKey] = child
			newAncestors[childKey] = []int{parent1.Key, parent2.Key}
		}
	}
	r.Ancestors = newAncestors

	if len(newPopulation) != popSize {
		r.reporters.Infof("Warning: New population size (%d) differs from target (%d).", len(newPopulation), popSize)
	}
	return newPopulation
}

// computeSpawnAmounts calculates the number of offspring each species should produce.
// Species move halfway from their previous size towards their fitness-proportional
// share, then the amounts are normalised to popSize.
func computeSpawnAmounts(adjustedFitnesses []float64, previousSizes []int, popSize int, minSpeciesSize int) []int {
	afSum := Sum(adjustedFitnesses)
	spawnAmounts := make([]int, len(adjustedFitnesses))
	for i, af := range adjustedFitnesses {
		s := float64(minSpeciesSize)
		if afSum > 0 {
			s = math.Max(s, af/afSum*float64(popSize))
		}

		ps := previousSizes[i]
		d := (s - float64(ps)) * 0.5
		c := int(math.Round(d))
		spawn := ps
		switch {
		case c != 0:
			spawn += c
		case d > 0:
			spawn++
		case d < 0:
			spawn--
		}
		spawnAmounts[i] = spawn
	}

	totalSpawn := 0
	for _, sa := range spawnAmounts {
		totalSpawn += sa
	}
	if totalSpawn <= 0 {
		for i := range spawnAmounts {
			spawnAmounts[i] = minSpeciesSize
		}
		return spawnAmounts
	}

	norm := float64(popSize) / float64(totalSpawn)
	currentTotal := 0
	for i, sa := range spawnAmounts {
		spawnAmounts[i] = max(minSpeciesSize, int(math.Round(float64(sa)*norm)))
		currentTotal += spawnAmounts[i]
	}

	// Rounding can leave the total a few genomes off; nudge random species.
	diff := popSize - currentTotal
	if diff != 0 {
		indices := rand.Perm(len(spawnAmounts))
		for _, idx := range indices {
			if diff == 0 {
				break
			}
			if diff > 0 {
				spawnAmounts[idx]++
				diff--
			} else if spawnAmounts[idx] > minSpeciesSize {
				spawnAmounts[idx]--
				diff++
			}
		}
	}
	return spawnAmounts
}
