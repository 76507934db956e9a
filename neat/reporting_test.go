package neat

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	BaseReporter

	started     []int
	ended       int
	evaluated   int
	extinctions int
	solutions   []int
	stagnant    []int
	infos       []string
}

func (r *recordingReporter) StartGeneration(gen int) { r.started = append(r.started, gen) }
func (r *recordingReporter) EndGeneration(*Config, map[int]*Genome, *SpeciesSet) { r.ended++ }
func (r *recordingReporter) PostEvaluate(*Config, map[int]*Genome, *SpeciesSet, *Genome) {
	r.evaluated++
}
func (r *recordingReporter) CompleteExtinction() { r.extinctions++ }
func (r *recordingReporter) FoundSolution(_ *Config, gen int, _ *Genome) {
	r.solutions = append(r.solutions, gen)
}
func (r *recordingReporter) SpeciesStagnant(sid int, _ *Species) { r.stagnant = append(r.stagnant, sid) }
func (r *recordingReporter) Info(msg string) { r.infos = append(r.infos, msg) }

func TestNilReporterSetDropsEvents(t *testing.T) {
	var rs *ReporterSet
	assert.NotPanics(t, func() {
		rs.StartGeneration(1)
		rs.CompleteExtinction()
		rs.Infof("dropped %d", 1)
	})
	assert.Equal(t, 0, rs.Len())
}

func TestReporterSetAddRemove(t *testing.T) {
	a, b := &recordingReporter{}, &recordingReporter{}
	rs := &ReporterSet{}
	rs.Add(a)
	rs.Add(b)
	rs.StartGeneration(3)
	rs.Remove(a)
	rs.StartGeneration(4)

	assert.Equal(t, 1, rs.Len())
	assert.Equal(t, []int{3}, a.started)
	assert.Equal(t, []int{3, 4}, b.started)
}

func TestStdOutReporter(t *testing.T) {
	config := testConfig(t)
	population := newTestPopulation(t, config, 6)
	for key, g := range population {
		g.Fitness = float64(key)
	}
	ss := NewSpeciesSet(&config.SpeciesSet, nil)
	require.NoError(t, ss.Speciate(population, 0))

	var buf bytes.Buffer
	r := NewStdOutReporter(true, &buf)
	r.StartGeneration(0)
	r.PostEvaluate(config, population, ss, population[6])
	r.EndGeneration(config, population, ss)
	r.CompleteExtinction()
	r.FoundSolution(config, 0, population[6])

	out := buf.String()
	assert.Contains(t, out, "Running generation 0")
	assert.Contains(t, out, "Population's average fitness: 3.50000")
	assert.Contains(t, out, "Best fitness: 6.00000")
	assert.Contains(t, out, "Population of 6 members in")
	assert.Contains(t, out, "   ID   age  size")
	assert.Contains(t, out, "All species extinct.")
	assert.Contains(t, out, "meets fitness threshold")
}

func TestStatisticsReporter(t *testing.T) {
	config := testConfig(t)
	ss := NewSpeciesSet(&config.SpeciesSet, nil)
	stats := NewStatisticsReporter()

	gen0 := newTestPopulation(t, config, 4)
	for key, g := range gen0 {
		g.Fitness = float64(key) // 1..4
	}
	require.NoError(t, ss.Speciate(gen0, 0))
	stats.PostEvaluate(config, gen0, ss, gen0[4])

	gen1 := newTestPopulation(t, config, 4)
	for _, g := range gen1 {
		g.Fitness = 10
	}
	gen1[2].Fitness = 20
	stats.PostEvaluate(config, gen1, ss, gen1[2])

	assert.Equal(t, []float64{2.5, 12.5}, stats.GetFitnessMean())
	assert.Equal(t, []float64{2.5, 10}, stats.GetFitnessMedian())
	require.Len(t, stats.GetFitnessStdev(), 2)

	best := stats.BestGenome()
	require.NotNil(t, best)
	assert.Equal(t, 20.0, best.Fitness)

	top := stats.BestGenomes(5)
	assert.Len(t, top, 2, "one entry per genome key")

	sizes := stats.GetSpeciesSizes()
	require.Len(t, sizes, 2)
	total := 0
	for _, n := range sizes[0] {
		total += n
	}
	assert.Equal(t, 4, total)
}
