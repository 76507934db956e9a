package neat

import (
	"errors"
	"fmt"
	"math"
)

// ErrCompleteExtinction is returned when every species went extinct and
// reset_on_extinction is off.
var ErrCompleteExtinction = errors.New("complete extinction")

// FitnessFunc is the type for the function provided by the user to evaluate genome fitness.
// It takes the current generation of genomes and should update their Fitness field.
// The genomes map maps genome key to the Genome object.
type FitnessFunc func(genomes map[int]*Genome) error

// Population holds the state of the NEAT evolutionary process.
type Population struct {
	Config       *Config
	Population   map[int]*Genome // Current generation of genomes (maps genome key -> genome)
	SpeciesSet   *SpeciesSet
	Reproduction *Reproduction
	Stagnation   *Stagnation
	Reporters    *ReporterSet
	Generation   int     // Generation about to be evaluated
	BestGenome   *Genome // Snapshot of the best genome found so far
}

// NewPopulation creates a new Population instance.
// It creates and speciates the first generation of genomes based on the config.
func NewPopulation(config *Config) (*Population, error) {
	stagnation, err := NewStagnation(&config.Stagnation)
	if err != nil {
		return nil, fmt.Errorf("failed to create stagnation manager: %w", err)
	}

	reporters := &ReporterSet{}
	reproduction := NewReproduction(&config.Reproduction, stagnation, reporters)
	p := &Population{
		Config:       config,
		Population:   reproduction.CreateNewPopulation(&config.Genome, config.Neat.PopSize),
		SpeciesSet:   NewSpeciesSet(&config.SpeciesSet, reporters),
		Reproduction: reproduction,
		Stagnation:   stagnation,
		Reporters:    reporters,
	}
	if err := p.SpeciesSet.Speciate(p.Population, p.Generation); err != nil {
		return nil, fmt.Errorf("initial speciation failed: %w", err)
	}
	return p, nil
}

// AddReporter registers a reporter for generation events.
func (p *Population) AddReporter(r Reporter) {
	p.Reporters.Add(r)
}

// RemoveReporter unregisters a reporter.
func (p *Population) RemoveReporter(r Reporter) {
	p.Reporters.Remove(r)
}

// RunGeneration executes a single generation of the NEAT algorithm.
// Returns the winning genome if the fitness threshold is met this generation, otherwise nil.
func (p *Population) RunGeneration(fitnessFunc FitnessFunc) (*Genome, error) {
	p.Reporters.StartGeneration(p.Generation)

	// 1. Evaluate Fitness
	if err := fitnessFunc(p.Population); err != nil {
		return nil, fmt.Errorf("fitness evaluation failed in generation %d: %w", p.Generation, err)
	}

	// 2. Track Best Genome & Check Termination Condition
	currentBest := p.findBestGenome()
	p.Reporters.PostEvaluate(p.Config, p.Population, p.SpeciesSet, currentBest)
	if currentBest != nil && (p.BestGenome == nil || currentBest.Fitness > p.BestGenome.Fitness) {
		p.BestGenome = currentBest.Copy()
	}

	if !p.Config.Neat.NoFitnessTermination && len(p.Population) > 0 {
		fitnesses := make([]float64, 0, len(p.Population))
		for _, g := range p.Population {
			fitnesses = append(fitnesses, g.Fitness)
		}
		if p.Config.FitnessCriterionFunc()(fitnesses) >= p.Config.Neat.FitnessThreshold {
			p.Reporters.FoundSolution(p.Config, p.Generation, currentBest)
			return currentBest, nil
		}
	}

	// 3. Reproduce
	newPopulation := p.Reproduction.Reproduce(p.Config, p.SpeciesSet, p.Config.Neat.PopSize, p.Generation)

	// 4. Check for extinction after reproduction
	if len(p.SpeciesSet.Species) == 0 || len(newPopulation) == 0 {
		p.Reporters.CompleteExtinction()
		if !p.Config.Neat.ResetOnExtinction {
			return nil, fmt.Errorf("generation %d: %w", p.Generation, ErrCompleteExtinction)
		}
		newPopulation = p.Reproduction.CreateNewPopulation(&p.Config.Genome, p.Config.Neat.PopSize)
	}
	p.Population = newPopulation

	// 5. Speciate the new generation
	if err := p.SpeciesSet.Speciate(p.Population, p.Generation); err != nil {
		return nil, fmt.Errorf("speciation failed in generation %d: %w", p.Generation, err)
	}

	p.Generation++
	p.Reporters.EndGeneration(p.Config, p.Population, p.SpeciesSet)
	return nil, nil
}

// Run evolves the population for at most n generations (n <= 0 means no limit)
// and returns the best genome seen. The run stops early when a generation meets
// the fitness threshold.
func (p *Population) Run(fitnessFunc FitnessFunc, n int) (*Genome, error) {
	if p.Config.Neat.NoFitnessTermination && n <= 0 {
		return nil, errors.New("cannot have no generational limit with no fitness termination")
	}

	for k := 0; n <= 0 || k < n; k++ {
		winner, err := p.RunGeneration(fitnessFunc)
		if err != nil {
			return p.BestGenome, err
		}
		if winner != nil {
			break
		}
	}

	if p.Config.Neat.NoFitnessTermination && p.BestGenome != nil {
		p.Reporters.FoundSolution(p.Config, p.Generation, p.BestGenome)
	}
	return p.BestGenome, nil
}

// findBestGenome finds the genome with the highest fitness in the current population.
func (p *Population) findBestGenome() *Genome {
	var best *Genome
	maxFitness := math.Inf(-1)
	for _, g := range sortedGenomes(p.Population) {
		if best == nil || g.Fitness > maxFitness {
			maxFitness = g.Fitness
			best = g
		}
	}
	return best
}
