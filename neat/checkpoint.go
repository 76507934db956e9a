package neat

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"os"
)

// PopulationSaveData is a helper struct to hold only the parts of Population needed for saving.
// The Config is not saved; the caller supplies it again on load.
type PopulationSaveData struct {
	Population   map[int]*Genome
	SpeciesSet   *SpeciesSet
	Reproduction *Reproduction // Includes NextGenomeKey and Ancestors
	Generation   int
	BestGenome   *Genome
}

// SaveCheckpoint saves the current state of the Population to a gzip-compressed gob file.
func (p *Population) SaveCheckpoint(filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint file '%s': %w", filePath, err)
	}
	defer file.Close()

	gzWriter := gzip.NewWriter(file)
	saveData := PopulationSaveData{
		Population:   p.Population,
		SpeciesSet:   p.SpeciesSet,
		Reproduction: p.Reproduction,
		Generation:   p.Generation,
		BestGenome:   p.BestGenome,
	}
	if err := gob.NewEncoder(gzWriter).Encode(saveData); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to encode population data: %w", err)
	}
	if err := gzWriter.Close(); err != nil {
		return fmt.Errorf("failed to flush checkpoint '%s': %w", filePath, err)
	}
	return nil
}

// LoadCheckpoint restores a Population saved by SaveCheckpoint.
// config must be equivalent to the one the checkpoint was written with; every
// restored genome, species and manager is relinked to it.
func LoadCheckpoint(checkpointPath string, config *Config) (*Population, error) {
	file, err := os.Open(checkpointPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint file '%s': %w", checkpointPath, err)
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for checkpoint: %w", err)
	}
	defer gzReader.Close()

	var saveData PopulationSaveData
	if err := gob.NewDecoder(gzReader).Decode(&saveData); err != nil {
		return nil, fmt.Errorf("failed to decode population data from checkpoint: %w", err)
	}
	if len(saveData.Population) == 0 || saveData.SpeciesSet == nil || saveData.Reproduction == nil {
		return nil, fmt.Errorf("checkpoint '%s' is incomplete", checkpointPath)
	}

	stagnation, err := NewStagnation(&config.Stagnation)
	if err != nil {
		return nil, fmt.Errorf("failed to re-initialize stagnation from loaded config: %w", err)
	}
	reporters := &ReporterSet{}

	for _, genome := range saveData.Population {
		genome.Config = &config.Genome
	}
	if saveData.BestGenome != nil {
		saveData.BestGenome.Config = &config.Genome
	}
	config.Genome.ReserveNodeKeys(saveData.Population)

	// Gob does not preserve pointer sharing, so species members are decoded as
	// separate copies. Point them back at the population's genomes.
	ss := saveData.SpeciesSet
	ss.Config = &config.SpeciesSet
	ss.reporters = reporters
	if ss.Species == nil {
		ss.Species = make(map[int]*Species)
	}
	if ss.GenomeToSpecies == nil {
		ss.GenomeToSpecies = make(map[int]int)
	}
	for _, sp := range ss.Species {
		members := make(map[int]*Genome, len(sp.Members))
		for gid := range sp.Members {
			if g, ok := saveData.Population[gid]; ok {
				members[gid] = g
			}
		}
		sp.Members = members
		if sp.Representative != nil {
			if g, ok := saveData.Population[sp.Representative.Key]; ok {
				sp.Representative = g
			} else {
				sp.Representative.Config = &config.Genome
			}
		}
	}

	repro := saveData.Reproduction
	repro.Config = &config.Reproduction
	repro.stagnation = stagnation
	repro.reporters = reporters
	if repro.Ancestors == nil {
		repro.Ancestors = make(map[int][]int)
	}
	for key := range saveData.Population {
		if key >= repro.NextGenomeKey {
			repro.NextGenomeKey = key + 1
		}
	}

	return &Population{
		Config:       config,
		Population:   saveData.Population,
		SpeciesSet:   ss,
		Reproduction: repro,
		Stagnation:   stagnation,
		Reporters:    reporters,
		Generation:   saveData.Generation,
		BestGenome:   saveData.BestGenome,
	}, nil
}

// Checkpointer is a reporter that saves the population every Interval generations.
// Files are named Prefix followed by the number of the generation just finished.
type Checkpointer struct {
	BaseReporter

	Interval int
	Prefix   string
	LastPath string // Most recent checkpoint written

	population    *Population
	lastGenSaved  int
	lastCompleted int
}

// NewCheckpointer creates a checkpointer for p. Register it with p.AddReporter.
func NewCheckpointer(p *Population, interval int, prefix string) *Checkpointer {
	if prefix == "" {
		prefix = "neat-checkpoint-"
	}
	return &Checkpointer{
		Interval:     interval,
		Prefix:       prefix,
		population:   p,
		lastGenSaved: p.Generation - 1,
	}
}

func (c *Checkpointer) StartGeneration(generation int) {
	c.lastCompleted = generation
}

func (c *Checkpointer) EndGeneration(*Config, map[int]*Genome, *SpeciesSet) {
	if c.Interval <= 0 || c.lastCompleted-c.lastGenSaved < c.Interval {
		return
	}
	path := fmt.Sprintf("%s%d", c.Prefix, c.lastCompleted)
	if err := c.population.SaveCheckpoint(path); err != nil {
		c.population.Reporters.Infof("Warning: checkpoint not saved: %v", err)
		return
	}
	c.population.Reporters.Infof("Saving checkpoint to %s", path)
	c.lastGenSaved = c.lastCompleted
	c.LastPath = path
}
