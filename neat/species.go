package neat

import (
	"math"
	"sort"
)

// Species represents a group of genetically similar genomes.
type Species struct {
	Key             int             // Unique identifier for the species.
	Created         int             // Generation number when the species was created.
	LastImproved    int             // Last generation where fitness improved.
	Representative  *Genome         // The representative genome for this species.
	Members         map[int]*Genome // Genomes belonging to this species (maps genome key -> genome).
	Fitness         float64         // Species fitness (species_fitness_func over the members).
	AdjustedFitness float64         // Fitness adjusted by sharing.
	FitnessHistory  []float64       // History of fitness values for stagnation detection.
}

// NewSpecies creates a new species.
func NewSpecies(key, generation int) *Species {
	return &Species{
		Key:            key,
		Created:        generation,
		LastImproved:   generation,
		Members:        make(map[int]*Genome),
		FitnessHistory: []float64{},
	}
}

// Update replaces the species' representative and members.
func (s *Species) Update(representative *Genome, members map[int]*Genome) {
	s.Representative = representative
	s.Members = members
}

// GetFitnesses returns the fitness values of all members.
func (s *Species) GetFitnesses() []float64 {
	fitnesses := make([]float64, 0, len(s.Members))
	for _, g := range s.Members {
		fitnesses = append(fitnesses, g.Fitness)
	}
	return fitnesses
}

// --------------------------- GenomeDistanceCache ---------------------------

type genomePair struct{ a, b int }

// GenomeDistanceCache memoises genome distances for one speciation pass.
type GenomeDistanceCache struct {
	Distances map[genomePair]float64
	Hits      int
	Misses    int
}

// NewGenomeDistanceCache creates an empty distance cache.
func NewGenomeDistanceCache() *GenomeDistanceCache {
	return &GenomeDistanceCache{Distances: make(map[genomePair]float64)}
}

// Distance calculates or retrieves the distance between two genomes.
func (dc *GenomeDistanceCache) Distance(genome1, genome2 *Genome) float64 {
	key := genomePair{genome1.Key, genome2.Key}
	if key.a > key.b {
		key.a, key.b = key.b, key.a
	}
	if d, ok := dc.Distances[key]; ok {
		dc.Hits++
		return d
	}
	dc.Misses++
	d := genome1.Distance(genome2)
	dc.Distances[key] = d
	return d
}

// --------------------------- SpeciesSet ---------------------------

// SpeciesSet manages the collection of species within a population.
type SpeciesSet struct {
	Species         map[int]*Species // Map species key -> Species
	GenomeToSpecies map[int]int      // Map genome key -> species key
	Indexer         int              // Next species key (starts at 1)
	Config          *SpeciesSetConfig

	reporters *ReporterSet
}

// NewSpeciesSet creates a new species set manager.
func NewSpeciesSet(config *SpeciesSetConfig, reporters *ReporterSet) *SpeciesSet {
	return &SpeciesSet{
		Species:         make(map[int]*Species),
		GenomeToSpecies: make(map[int]int),
		Indexer:         1,
		Config:          config,
		reporters:       reporters,
	}
}

// Speciate partitions the population into species based on genetic distance.
func (ss *SpeciesSet) Speciate(population map[int]*Genome, generation int) error {
	if len(population) == 0 {
		ss.Species = make(map[int]*Species)
		ss.GenomeToSpecies = make(map[int]int)
		return nil
	}

	threshold := ss.Config.CompatibilityThreshold
	distances := NewGenomeDistanceCache()

	unspeciated := make(map[int]*Genome, len(population))
	for k, v := range population {
		unspeciated[k] = v
	}
	newRepresentatives := make(map[int]*Genome)
	newMembers := make(map[int][]int)

	// Each existing species picks the closest new genome to its old representative.
	for _, sid := range sortedSpeciesKeys(ss.Species) {
		s := ss.Species[sid]
		if len(unspeciated) == 0 || s.Representative == nil {
			continue
		}
		var newRep *Genome
		bestDist := math.Inf(1)
		for _, g := range sortedGenomes(unspeciated) {
			if d := distances.Distance(s.Representative, g); d < bestDist {
				bestDist = d
				newRep = g
			}
		}
		newRepresentatives[sid] = newRep
		newMembers[sid] = []int{newRep.Key}
		delete(unspeciated, newRep.Key)
	}

	// Every other genome joins the closest compatible species or founds a new one.
	for _, g := range sortedGenomes(unspeciated) {
		bestSpecies := -1
		minDist := math.Inf(1)
		for _, sid := range sortedSpeciesKeysOf(newRepresentatives) {
			d := distances.Distance(newRepresentatives[sid], g)
			if d < threshold && d < minDist {
				minDist = d
				bestSpecies = sid
			}
		}
		if bestSpecies != -1 {
			newMembers[bestSpecies] = append(newMembers[bestSpecies], g.Key)
			continue
		}
		sid := ss.Indexer
		ss.Indexer++
		newRepresentatives[sid] = g
		newMembers[sid] = []int{g.Key}
	}

	species := make(map[int]*Species, len(newRepresentatives))
	genomeToSpecies := make(map[int]int, len(population))
	for sid, rep := range newRepresentatives {
		s := ss.Species[sid]
		if s == nil {
			s = NewSpecies(sid, generation)
			ss.reporters.Infof("Info: Created new species %d represented by genome %d", sid, rep.Key)
		}
		members := make(map[int]*Genome, len(newMembers[sid]))
		for _, gid := range newMembers[sid] {
			members[gid] = population[gid]
			genomeToSpecies[gid] = sid
		}
		s.Update(rep, members)
		species[sid] = s
	}
	for sid := range ss.Species {
		if _, ok := species[sid]; !ok {
			ss.reporters.Infof("Info: Species %d died out.", sid)
		}
	}
	ss.Species = species
	ss.GenomeToSpecies = genomeToSpecies

	if len(distances.Distances) > 0 {
		all := make([]float64, 0, len(distances.Distances))
		for _, d := range distances.Distances {
			all = append(all, d)
		}
		ss.reporters.Infof("Mean genetic distance %.3f, standard deviation %.3f", Mean(all), Stdev(all))
	}
	return nil
}

// GetSpeciesID returns the species ID for a given genome ID.
func (ss *SpeciesSet) GetSpeciesID(genomeID int) (int, bool) {
	sid, exists := ss.GenomeToSpecies[genomeID]
	return sid, exists
}

// GetSpecies returns the Species object for a given genome ID.
func (ss *SpeciesSet) GetSpecies(genomeID int) (*Species, bool) {
	sid, exists := ss.GenomeToSpecies[genomeID]
	if !exists {
		return nil, false
	}
	s, exists := ss.Species[sid]
	return s, exists
}

func sortedSpeciesKeys(m map[int]*Species) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func sortedSpeciesKeysOf(m map[int]*Genome) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func sortedGenomes(m map[int]*Genome) []*Genome {
	out := make([]*Genome, 0, len(m))
	for _, g := range m {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
