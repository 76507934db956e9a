package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/baldhumanity/neat-flappy/internal/config"
)

// OutputManager writes per-run output files into one directory.
type OutputManager struct {
	dir               string
	generationsFile   *os.File
	generationsHeader bool
}

// NewOutputManager creates the output directory and opens generations.csv.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, "generations.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating generations.csv: %w", err)
	}
	return &OutputManager{dir: dir, generationsFile: f}, nil
}

// WriteSettings saves the run settings as YAML.
func (om *OutputManager) WriteSettings(s *config.Settings) error {
	if om == nil {
		return nil
	}
	return s.WriteYAML(filepath.Join(om.dir, "settings.yaml"))
}

// RecordGeneration appends a row to generations.csv.
func (om *OutputManager) RecordGeneration(stats GenerationStats) error {
	if om == nil {
		return nil
	}

	records := []GenerationStats{stats}
	if !om.generationsHeader {
		if err := gocsv.Marshal(records, om.generationsFile); err != nil {
			return fmt.Errorf("writing generations: %w", err)
		}
		om.generationsHeader = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, om.generationsFile); err != nil {
		return fmt.Errorf("writing generations: %w", err)
	}
	return nil
}

// WriteChampion saves the champion genome in its readable form.
func (om *OutputManager) WriteChampion(description string) error {
	if om == nil {
		return nil
	}
	if err := os.WriteFile(filepath.Join(om.dir, "champion.txt"), []byte(description), 0644); err != nil {
		return fmt.Errorf("writing champion.txt: %w", err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close closes the output files.
func (om *OutputManager) Close() error {
	if om == nil || om.generationsFile == nil {
		return nil
	}
	return om.generationsFile.Close()
}

// ReadGenerations loads a generations.csv written by an OutputManager.
func ReadGenerations(path string) ([]GenerationStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var rows []GenerationStats
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return rows, nil
}
