package neat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPopulation(t *testing.T, config *Config, n int) map[int]*Genome {
	t.Helper()
	repro := NewReproduction(&config.Reproduction, nil, nil)
	return repro.CreateNewPopulation(&config.Genome, n)
}

func TestSpeciateGroupsEveryGenome(t *testing.T) {
	config := testConfig(t)
	population := newTestPopulation(t, config, 20)
	ss := NewSpeciesSet(&config.SpeciesSet, nil)

	require.NoError(t, ss.Speciate(population, 0))
	require.NotEmpty(t, ss.Species)

	seen := 0
	for sid, sp := range ss.Species {
		require.NotNil(t, sp.Representative)
		assert.Contains(t, sp.Members, sp.Representative.Key)
		for gid := range sp.Members {
			got, ok := ss.GetSpeciesID(gid)
			require.True(t, ok)
			assert.Equal(t, sid, got)
			seen++
		}
	}
	assert.Equal(t, len(population), seen)
}

func TestSpeciateThresholdZeroSplitsDistinctGenomes(t *testing.T) {
	config := testConfig(t)
	config.SpeciesSet.CompatibilityThreshold = 0
	population := newTestPopulation(t, config, 5)
	ss := NewSpeciesSet(&config.SpeciesSet, nil)

	require.NoError(t, ss.Speciate(population, 0))
	assert.Len(t, ss.Species, 5, "nothing is strictly closer than zero")
}

func TestSpeciateKeepsSpeciesAcrossGenerations(t *testing.T) {
	config := testConfig(t)
	config.SpeciesSet.CompatibilityThreshold = 100
	population := newTestPopulation(t, config, 10)
	ss := NewSpeciesSet(&config.SpeciesSet, nil)

	require.NoError(t, ss.Speciate(population, 0))
	require.Len(t, ss.Species, 1)
	var sid int
	for k := range ss.Species {
		sid = k
	}

	next := newTestPopulation(t, config, 10)
	require.NoError(t, ss.Speciate(next, 1))
	require.Len(t, ss.Species, 1)
	assert.Contains(t, ss.Species, sid)
	assert.Equal(t, 0, ss.Species[sid].Created)
}

func TestSpeciateReportsNewSpecies(t *testing.T) {
	config := testConfig(t)
	rec := &recordingReporter{}
	reporters := &ReporterSet{}
	reporters.Add(rec)
	ss := NewSpeciesSet(&config.SpeciesSet, reporters)

	require.NoError(t, ss.Speciate(newTestPopulation(t, config, 4), 0))
	assert.NotEmpty(t, rec.infos)
	assert.Contains(t, rec.infos[0], "Created new species")
}

func TestGenomeDistanceCache(t *testing.T) {
	config := testConfig(t)
	population := newTestPopulation(t, config, 2)
	cache := NewGenomeDistanceCache()

	d1 := cache.Distance(population[1], population[2])
	d2 := cache.Distance(population[2], population[1])
	assert.Equal(t, d1, d2)
	assert.Equal(t, 1, cache.Misses)
	assert.Equal(t, 1, cache.Hits)
}

func speciesWithFitness(key int, config *Config, fitnesses ...float64) *Species {
	sp := NewSpecies(key, 0)
	for i, f := range fitnesses {
		g := NewGenome(key*100+i, &config.Genome)
		g.ConfigureNew()
		g.Fitness = f
		sp.Members[g.Key] = g
	}
	return sp
}

func TestStagnationUpdate(t *testing.T) {
	config := testConfig(t)
	config.Stagnation.MaxStagnation = 2
	config.Stagnation.SpeciesElitism = 1
	stagnation, err := NewStagnation(&config.Stagnation)
	require.NoError(t, err)

	ss := NewSpeciesSet(&config.SpeciesSet, nil)
	ss.Species[1] = speciesWithFitness(1, config, 1, 2)
	ss.Species[2] = speciesWithFitness(2, config, 5, 6)

	// Generation 0 records the first fitness, so both species improve.
	for _, info := range stagnation.Update(ss, 0) {
		assert.False(t, info.IsStagnant)
	}
	assert.Equal(t, 2.0, ss.Species[1].Fitness, "max of members")

	// Fitness is flat for two generations.
	stagnation.Update(ss, 1)
	result := stagnation.Update(ss, 2)
	require.Len(t, result, 2)

	assert.Equal(t, 1, result[0].SpeciesID, "ordered from least fit")
	assert.True(t, result[0].IsStagnant)
	assert.Equal(t, 2, result[1].SpeciesID)
	assert.False(t, result[1].IsStagnant, "species_elitism protects the best species")
}

func TestStagnationElitismKeepsMinimumSpecies(t *testing.T) {
	config := testConfig(t)
	config.Stagnation.MaxStagnation = 1
	config.Stagnation.SpeciesElitism = 2
	stagnation, err := NewStagnation(&config.Stagnation)
	require.NoError(t, err)

	ss := NewSpeciesSet(&config.SpeciesSet, nil)
	ss.Species[1] = speciesWithFitness(1, config, 1)
	ss.Species[2] = speciesWithFitness(2, config, 2)
	stagnation.Update(ss, 0)

	for _, info := range stagnation.Update(ss, 5) {
		assert.False(t, info.IsStagnant)
	}
}

func TestNewStagnationRejectsUnknownFunction(t *testing.T) {
	_, err := NewStagnation(&StagnationConfig{SpeciesFitnessFunc: "mode", MaxStagnation: 3})
	assert.Error(t, err)
}
