// Package config loads the run settings for the flappy bird trainer.
// NEAT hyperparameters live in their own ini file, read by the neat package.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Render modes.
const (
	RenderTerminal = "terminal"
	RenderNone     = "none"
)

// Settings holds everything about a run that is not a NEAT hyperparameter.
type Settings struct {
	NEATConfig  string `yaml:"neat_config"`
	Generations int    `yaml:"generations"`
	TickRate    int    `yaml:"tick_rate"`
	MaxTicks    int    `yaml:"max_ticks"`
	Seed        int64  `yaml:"seed"`

	Render     RenderSettings     `yaml:"render"`
	Log        LogSettings        `yaml:"log"`
	Output     OutputSettings     `yaml:"output"`
	Checkpoint CheckpointSettings `yaml:"checkpoint"`
}

// RenderSettings picks the renderer.
type RenderSettings struct {
	Mode      string `yaml:"mode"`
	DrawLines bool   `yaml:"draw_lines"` // bird to gap guide lines
}

// LogSettings configures the slog handler.
type LogSettings struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// OutputSettings configures per-run telemetry.
type OutputSettings struct {
	Dir      string `yaml:"dir"`
	Database string `yaml:"database"`
}

// CheckpointSettings configures population snapshots.
type CheckpointSettings struct {
	Interval int    `yaml:"interval"`
	Prefix   string `yaml:"prefix"`
	Resume   string `yaml:"resume"`
}

// Defaults returns the embedded settings.
func Defaults() *Settings {
	s, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return s
}

// Load reads settings from a YAML file merged over the embedded defaults.
// If path is empty only the defaults are used.
func Load(path string) (*Settings, error) {
	s := &Settings{}
	if err := yaml.Unmarshal(defaultsYAML, s); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading settings file: %w", err)
		}
		// Only fields present in the file are overwritten.
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("parsing settings file %s: %w", path, err)
		}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the settings for values the trainer cannot run with.
func (s *Settings) Validate() error {
	var errs []error
	if s.NEATConfig == "" {
		errs = append(errs, errors.New("neat_config must name the NEAT ini file"))
	}
	if s.Generations < 1 {
		errs = append(errs, fmt.Errorf("generations must be at least 1, got %d", s.Generations))
	}
	if s.TickRate < 0 {
		errs = append(errs, fmt.Errorf("tick_rate cannot be negative, got %d", s.TickRate))
	}
	if s.MaxTicks < 0 {
		errs = append(errs, fmt.Errorf("max_ticks cannot be negative, got %d", s.MaxTicks))
	}
	switch s.Render.Mode {
	case RenderTerminal, RenderNone:
	default:
		errs = append(errs, fmt.Errorf("render.mode must be %q or %q, got %q", RenderTerminal, RenderNone, s.Render.Mode))
	}
	if _, err := s.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch s.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", s.Log.Format))
	}
	if s.Checkpoint.Interval < 0 {
		errs = append(errs, fmt.Errorf("checkpoint.interval cannot be negative, got %d", s.Checkpoint.Interval))
	}
	if s.Checkpoint.Interval > 0 && s.Checkpoint.Prefix == "" {
		errs = append(errs, errors.New("checkpoint.prefix is required when checkpoints are enabled"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid settings: %w", errors.Join(errs...))
	}
	return nil
}

// SlogLevel parses the configured level.
func (l LogSettings) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(l.Level))); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// Headless reports whether no terminal renderer is used.
func (s *Settings) Headless() bool {
	return s.Render.Mode == RenderNone
}

// YAML returns the settings as a YAML document.
func (s *Settings) YAML() (string, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshaling settings: %w", err)
	}
	return string(data), nil
}

// WriteYAML writes the settings to a YAML file.
func (s *Settings) WriteYAML(path string) error {
	data, err := s.YAML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		return fmt.Errorf("writing settings file: %w", err)
	}
	return nil
}
