package neat

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"
)

// Reporter receives progress events from a Population run.
// Embed BaseReporter to implement only the events of interest.
type Reporter interface {
	StartGeneration(generation int)
	EndGeneration(config *Config, population map[int]*Genome, speciesSet *SpeciesSet)
	PostEvaluate(config *Config, population map[int]*Genome, speciesSet *SpeciesSet, best *Genome)
	PostReproduction(config *Config, population map[int]*Genome, speciesSet *SpeciesSet)
	CompleteExtinction()
	FoundSolution(config *Config, generation int, best *Genome)
	SpeciesStagnant(speciesID int, species *Species)
	Info(msg string)
}

// BaseReporter implements every Reporter method as a no-op.
type BaseReporter struct{}

func (BaseReporter) StartGeneration(int) {}
func (BaseReporter) EndGeneration(*Config, map[int]*Genome, *SpeciesSet) {}
func (BaseReporter) PostEvaluate(*Config, map[int]*Genome, *SpeciesSet, *Genome) {}
func (BaseReporter) PostReproduction(*Config, map[int]*Genome, *SpeciesSet) {}
func (BaseReporter) CompleteExtinction() {}
func (BaseReporter) FoundSolution(*Config, int, *Genome) {}
func (BaseReporter) SpeciesStagnant(int, *Species) {}
func (BaseReporter) Info(string) {}

// ReporterSet fans events out to every registered reporter.
// The zero value is ready to use and a nil *ReporterSet drops all events.
type ReporterSet struct {
	reporters []Reporter
}

// Add registers a reporter.
func (rs *ReporterSet) Add(r Reporter) {
	rs.reporters = append(rs.reporters, r)
}

// Remove unregisters a reporter.
func (rs *ReporterSet) Remove(r Reporter) {
	for i, existing := range rs.reporters {
		if existing == r {
			rs.reporters = append(rs.reporters[:i], rs.reporters[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered reporters.
func (rs *ReporterSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.reporters)
}

func (rs *ReporterSet) StartGeneration(gen int) {
	if rs == nil {
		return
	}
	for _, r := range rs.reporters {
		r.StartGeneration(gen)
	}
}

func (rs *ReporterSet) EndGeneration(config *Config, population map[int]*Genome, speciesSet *SpeciesSet) {
	if rs == nil {
		return
	}
	for _, r := range rs.reporters {
		r.EndGeneration(config, population, speciesSet)
	}
}

func (rs *ReporterSet) PostEvaluate(config *Config, population map[int]*Genome, speciesSet *SpeciesSet, best *Genome) {
	if rs == nil {
		return
	}
	for _, r := range rs.reporters {
		r.PostEvaluate(config, population, speciesSet, best)
	}
}

func (rs *ReporterSet) PostReproduction(config *Config, population map[int]*Genome, speciesSet *SpeciesSet) {
	if rs == nil {
		return
	}
	for _, r := range rs.reporters {
		r.PostReproduction(config, population, speciesSet)
	}
}

func (rs *ReporterSet) CompleteExtinction() {
	if rs == nil {
		return
	}
	for _, r := range rs.reporters {
		r.CompleteExtinction()
	}
}

func (rs *ReporterSet) FoundSolution(config *Config, generation int, best *Genome) {
	if rs == nil {
		return
	}
	for _, r := range rs.reporters {
		r.FoundSolution(config, generation, best)
	}
}

func (rs *ReporterSet) SpeciesStagnant(speciesID int, species *Species) {
	if rs == nil {
		return
	}
	for _, r := range rs.reporters {
		r.SpeciesStagnant(speciesID, species)
	}
}

func (rs *ReporterSet) Info(msg string) {
	if rs == nil {
		return
	}
	for _, r := range rs.reporters {
		r.Info(msg)
	}
}

// Infof formats and sends an informational message.
func (rs *ReporterSet) Infof(format string, args ...interface{}) {
	rs.Info(fmt.Sprintf(format, args...))
}

// --------------------------- StdOutReporter ---------------------------

// StdOutReporter prints generation progress in the style of neat-python's reporter.
type StdOutReporter struct {
	ShowSpeciesDetail bool
	Out               io.Writer

	generation     int
	generationTime time.Time
	times          []time.Duration
	numExtinctions int
}

// NewStdOutReporter creates a reporter writing to w; a nil w means os.Stdout.
func NewStdOutReporter(showSpeciesDetail bool, w io.Writer) *StdOutReporter {
	if w == nil {
		w = os.Stdout
	}
	return &StdOutReporter{ShowSpeciesDetail: showSpeciesDetail, Out: w}
}

func (r *StdOutReporter) StartGeneration(generation int) {
	r.generation = generation
	fmt.Fprintf(r.Out, "\n ****** Running generation %d ****** \n\n", generation)
	r.generationTime = time.Now()
}

func (r *StdOutReporter) EndGeneration(config *Config, population map[int]*Genome, speciesSet *SpeciesSet) {
	ng := len(population)
	ns := len(speciesSet.Species)
	if r.ShowSpeciesDetail {
		fmt.Fprintf(r.Out, "Population of %d members in %d species:\n", ng, ns)
		fmt.Fprintln(r.Out, "   ID   age  size   fitness   adj fit  stag")
		fmt.Fprintln(r.Out, "  ====  ===  ====  =========  =======  ====")
		ids := make([]int, 0, ns)
		for sid := range speciesSet.Species {
			ids = append(ids, sid)
		}
		sort.Ints(ids)
		for _, sid := range ids {
			s := speciesSet.Species[sid]
			age := r.generation - s.Created
			stag := r.generation - s.LastImproved
			fmt.Fprintf(r.Out, "  %4d  %3d  %4d  %9.3f  %7.3f  %4d\n", sid, age, len(s.Members), s.Fitness, s.AdjustedFitness, stag)
		}
	} else {
		fmt.Fprintf(r.Out, "Population of %d members in %d species\n", ng, ns)
	}

	elapsed := time.Since(r.generationTime)
	r.times = append(r.times, elapsed)
	if len(r.times) > 10 {
		r.times = r.times[1:]
	}
	var total time.Duration
	for _, t := range r.times {
		total += t
	}
	average := total / time.Duration(len(r.times))
	fmt.Fprintf(r.Out, "Total extinctions: %d\n", r.numExtinctions)
	if len(r.times) > 1 {
		fmt.Fprintf(r.Out, "Generation time: %.3f sec (%.3f average)\n", elapsed.Seconds(), average.Seconds())
	} else {
		fmt.Fprintf(r.Out, "Generation time: %.3f sec\n", elapsed.Seconds())
	}
}

func (r *StdOutReporter) PostEvaluate(config *Config, population map[int]*Genome, speciesSet *SpeciesSet, best *Genome) {
	fitnesses := make([]float64, 0, len(population))
	for _, g := range population {
		fitnesses = append(fitnesses, g.Fitness)
	}
	fmt.Fprintf(r.Out, "Population's average fitness: %.5f stdev: %.5f\n", Mean(fitnesses), Stdev(fitnesses))
	if best == nil {
		return
	}
	nodes, conns := best.Size()
	if sid, ok := speciesSet.GetSpeciesID(best.Key); ok {
		fmt.Fprintf(r.Out, "Best fitness: %.5f - size: (%d, %d) - species %d - id %d\n", best.Fitness, nodes, conns, sid, best.Key)
	} else {
		fmt.Fprintf(r.Out, "Best fitness: %.5f - size: (%d, %d) - id %d\n", best.Fitness, nodes, conns, best.Key)
	}
}

func (r *StdOutReporter) PostReproduction(*Config, map[int]*Genome, *SpeciesSet) {}

func (r *StdOutReporter) CompleteExtinction() {
	r.numExtinctions++
	fmt.Fprintln(r.Out, "All species extinct.")
}

func (r *StdOutReporter) FoundSolution(config *Config, generation int, best *Genome) {
	nodes, conns := best.Size()
	fmt.Fprintf(r.Out, "\nBest individual in generation %d meets fitness threshold - complexity: (%d, %d)\n", generation, nodes, conns)
}

func (r *StdOutReporter) SpeciesStagnant(speciesID int, species *Species) {
	if r.ShowSpeciesDetail {
		fmt.Fprintf(r.Out, "\nSpecies %d with %d members is stagnated: removing it\n", speciesID, len(species.Members))
	}
}

func (r *StdOutReporter) Info(msg string) {
	fmt.Fprintln(r.Out, msg)
}
