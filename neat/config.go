package neat

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// Config stores the configuration parameters for the NEAT algorithm.
type Config struct {
	Neat         NeatConfig
	Genome       GenomeConfig
	Reproduction ReproductionConfig
	SpeciesSet   SpeciesSetConfig
	Stagnation   StagnationConfig
}

// NeatConfig holds parameters specific to the NEAT algorithm itself.
type NeatConfig struct {
	PopSize              int     `ini:"pop_size"`
	FitnessCriterion     string  `ini:"fitness_criterion"` // "max", "min" or "mean"
	FitnessThreshold     float64 `ini:"fitness_threshold"`
	ResetOnExtinction    bool    `ini:"reset_on_extinction"`
	NoFitnessTermination bool    `ini:"no_fitness_termination"`
}

// GenomeConfig holds parameters specific to the structure and mutation of genomes.
type GenomeConfig struct {
	NumInputs                        int     `ini:"num_inputs"`
	NumOutputs                       int     `ini:"num_outputs"`
	NumHidden                        int     `ini:"num_hidden"`
	FeedForward                      bool    `ini:"feed_forward"` // If true, recurrent connections are disallowed
	CompatibilityDisjointCoefficient float64 `ini:"compatibility_disjoint_coefficient"`
	CompatibilityWeightCoefficient   float64 `ini:"compatibility_weight_coefficient"`
	ConnAddProb                      float64 `ini:"conn_add_prob"`
	ConnDeleteProb                   float64 `ini:"conn_delete_prob"`
	NodeAddProb                      float64 `ini:"node_add_prob"`
	NodeDeleteProb                   float64 `ini:"node_delete_prob"`
	SingleStructuralMutation         bool    `ini:"single_structural_mutation"`
	StructuralMutationSurer          string  `ini:"structural_mutation_surer"`
	InitialConnection                string  `ini:"initial_connection"`

	BiasInitMean    float64 `ini:"bias_init_mean"`
	BiasInitStdev   float64 `ini:"bias_init_stdev"`
	BiasInitType    string  `ini:"bias_init_type"`
	BiasReplaceRate float64 `ini:"bias_replace_rate"`
	BiasMutateRate  float64 `ini:"bias_mutate_rate"`
	BiasMutatePower float64 `ini:"bias_mutate_power"`
	BiasMaxValue    float64 `ini:"bias_max_value"`
	BiasMinValue    float64 `ini:"bias_min_value"`

	ResponseInitMean    float64 `ini:"response_init_mean"`
	ResponseInitStdev   float64 `ini:"response_init_stdev"`
	ResponseInitType    string  `ini:"response_init_type"`
	ResponseReplaceRate float64 `ini:"response_replace_rate"`
	ResponseMutateRate  float64 `ini:"response_mutate_rate"`
	ResponseMutatePower float64 `ini:"response_mutate_power"`
	ResponseMaxValue    float64 `ini:"response_max_value"`
	ResponseMinValue    float64 `ini:"response_min_value"`

	ActivationDefault    string   `ini:"activation_default"`
	ActivationOptions    []string `ini:"activation_options" delim:" "`
	ActivationMutateRate float64  `ini:"activation_mutate_rate"`

	AggregationDefault    string   `ini:"aggregation_default"`
	AggregationOptions    []string `ini:"aggregation_options" delim:" "`
	AggregationMutateRate float64  `ini:"aggregation_mutate_rate"`

	WeightInitMean    float64 `ini:"weight_init_mean"`
	WeightInitStdev   float64 `ini:"weight_init_stdev"`
	WeightInitType    string  `ini:"weight_init_type"`
	WeightReplaceRate float64 `ini:"weight_replace_rate"`
	WeightMutateRate  float64 `ini:"weight_mutate_rate"`
	WeightMutatePower float64 `ini:"weight_mutate_power"`
	WeightMaxValue    float64 `ini:"weight_max_value"`
	WeightMinValue    float64 `ini:"weight_min_value"`

	EnabledDefault        string  `ini:"enabled_default"`
	EnabledMutateRate     float64 `ini:"enabled_mutate_rate"`
	EnabledRateToTrueAdd  float64 `ini:"enabled_rate_to_true_add"`
	EnabledRateToFalseAdd float64 `ini:"enabled_rate_to_false_add"`

	// Derived from the values above.
	InputKeys          []int
	OutputKeys         []int
	ConnectionFraction float64 // probability used by the partial_* initial connections
	NodeKeyIndex       int     // next key handed out for a new hidden node
}

// ReproductionConfig holds parameters related to reproduction.
type ReproductionConfig struct {
	Elitism           int     `ini:"elitism"`
	SurvivalThreshold float64 `ini:"survival_threshold"`
	MinSpeciesSize    int     `ini:"min_species_size"`
}

// SpeciesSetConfig holds parameters related to speciation.
type SpeciesSetConfig struct {
	CompatibilityThreshold float64 `ini:"compatibility_threshold"`
}

// StagnationConfig holds parameters related to species stagnation.
type StagnationConfig struct {
	SpeciesFitnessFunc string `ini:"species_fitness_func"`
	MaxStagnation      int    `ini:"max_stagnation"`
	SpeciesElitism     int    `ini:"species_elitism"`
}

var validInitialConnections = map[string]bool{
	"unconnected": true, "fs_neat_nohidden": true, "fs_neat": true, "fs_neat_hidden": true,
	"full_nodirect": true, "full": true, "full_direct": true,
	"partial_nodirect": true, "partial": true, "partial_direct": true,
}

// LoadConfig loads configuration parameters from a neat-python style INI file.
func LoadConfig(filePath string) (*Config, error) {
	config, err := ParseConfig(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file '%s': %w", filePath, err)
	}
	return config, nil
}

// ParseConfig reads configuration from any source accepted by ini.Load:
// a file name, a []byte, or an io.Reader.
func ParseConfig(source interface{}) (*Config, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		SpaceBeforeInlineComment: true, // "# comment" needs leading whitespace to count as a comment
	}, source)
	if err != nil {
		return nil, err
	}

	config := &Config{}
	sections := []struct {
		name   string
		target interface{}
	}{
		{"NEAT", &config.Neat},
		{"DefaultGenome", &config.Genome},
		{"DefaultReproduction", &config.Reproduction},
		{"DefaultSpeciesSet", &config.SpeciesSet},
		{"DefaultStagnation", &config.Stagnation},
	}
	for _, s := range sections {
		if !cfg.HasSection(s.name) {
			return nil, fmt.Errorf("missing [%s] section", s.name)
		}
		if err := cfg.Section(s.name).MapTo(s.target); err != nil {
			return nil, fmt.Errorf("failed to map [%s] section: %w", s.name, err)
		}
	}

	config.normalize()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.derive()
	return config, nil
}

// normalize trims string values and fills in neat-python's class defaults.
func (c *Config) normalize() {
	g := &c.Genome
	for _, s := range []*string{
		&g.BiasInitType, &g.ResponseInitType, &g.WeightInitType,
		&g.ActivationDefault, &g.AggregationDefault, &g.EnabledDefault,
		&g.InitialConnection, &g.StructuralMutationSurer,
		&c.Neat.FitnessCriterion, &c.Stagnation.SpeciesFitnessFunc,
	} {
		*s = strings.TrimSpace(*s)
	}
	g.ActivationOptions = trimOptions(g.ActivationOptions)
	g.AggregationOptions = trimOptions(g.AggregationOptions)

	if g.BiasInitType == "" {
		g.BiasInitType = "gaussian"
	}
	if g.ResponseInitType == "" {
		g.ResponseInitType = "gaussian"
	}
	if g.WeightInitType == "" {
		g.WeightInitType = "gaussian"
	}
	if g.ActivationDefault == "" {
		g.ActivationDefault = "random"
	}
	if g.AggregationDefault == "" {
		g.AggregationDefault = "random"
	}
	if g.EnabledDefault == "" {
		g.EnabledDefault = "True"
	}
	if g.InitialConnection == "" {
		g.InitialConnection = "unconnected"
	}
	if g.StructuralMutationSurer == "" {
		g.StructuralMutationSurer = "default"
	}
	if c.Reproduction.MinSpeciesSize == 0 {
		c.Reproduction.MinSpeciesSize = 1
	}
	if c.Reproduction.SurvivalThreshold == 0 {
		c.Reproduction.SurvivalThreshold = 0.2
	}
	if c.Stagnation.SpeciesFitnessFunc == "" {
		c.Stagnation.SpeciesFitnessFunc = "mean"
	}
	if c.Stagnation.MaxStagnation == 0 {
		c.Stagnation.MaxStagnation = 15
	}
	c.Neat.FitnessCriterion = strings.ToLower(c.Neat.FitnessCriterion)
	c.Stagnation.SpeciesFitnessFunc = strings.ToLower(c.Stagnation.SpeciesFitnessFunc)
}

// Validate checks value ranges and option names.
func (c *Config) Validate() error {
	g := &c.Genome
	if c.Neat.PopSize <= 0 {
		return fmt.Errorf("config error: pop_size must be positive")
	}
	switch c.Neat.FitnessCriterion {
	case "max", "min", "mean":
	default:
		return fmt.Errorf("config error: invalid fitness_criterion '%s', must be one of 'max', 'min', 'mean'", c.Neat.FitnessCriterion)
	}
	if g.NumInputs <= 0 {
		return fmt.Errorf("config error: num_inputs must be positive")
	}
	if g.NumOutputs <= 0 {
		return fmt.Errorf("config error: num_outputs must be positive")
	}
	if g.NumHidden < 0 {
		return fmt.Errorf("config error: num_hidden cannot be negative")
	}
	if len(g.ActivationOptions) == 0 {
		return fmt.Errorf("config error: activation_options must be specified")
	}
	for _, name := range g.ActivationOptions {
		if _, err := GetActivation(name); err != nil {
			return fmt.Errorf("config error: %w", err)
		}
	}
	if len(g.AggregationOptions) == 0 {
		return fmt.Errorf("config error: aggregation_options must be specified")
	}
	for _, name := range g.AggregationOptions {
		if _, err := GetAggregation(name); err != nil {
			return fmt.Errorf("config error: %w", err)
		}
	}
	if g.CompatibilityDisjointCoefficient < 0 {
		return fmt.Errorf("config error: compatibility_disjoint_coefficient cannot be negative")
	}
	if g.CompatibilityWeightCoefficient < 0 {
		return fmt.Errorf("config error: compatibility_weight_coefficient cannot be negative")
	}
	probs := []struct {
		name  string
		value float64
	}{
		{"conn_add_prob", g.ConnAddProb},
		{"conn_delete_prob", g.ConnDeleteProb},
		{"node_add_prob", g.NodeAddProb},
		{"node_delete_prob", g.NodeDeleteProb},
	}
	for _, p := range probs {
		if p.value < 0 || p.value > 1 {
			return fmt.Errorf("config error: %s must be between 0 and 1", p.name)
		}
	}
	if g.BiasMaxValue < g.BiasMinValue {
		return fmt.Errorf("config error: bias_max_value cannot be less than bias_min_value")
	}
	if g.ResponseMaxValue < g.ResponseMinValue {
		return fmt.Errorf("config error: response_max_value cannot be less than response_min_value")
	}
	if g.WeightMaxValue < g.WeightMinValue {
		return fmt.Errorf("config error: weight_max_value cannot be less than weight_min_value")
	}
	if c.Reproduction.Elitism < 0 {
		return fmt.Errorf("config error: elitism cannot be negative")
	}
	if c.Reproduction.SurvivalThreshold < 0 || c.Reproduction.SurvivalThreshold > 1 {
		return fmt.Errorf("config error: survival_threshold must be between 0 and 1")
	}
	if c.Reproduction.MinSpeciesSize <= 0 {
		return fmt.Errorf("config error: min_species_size must be positive")
	}
	if c.SpeciesSet.CompatibilityThreshold < 0 {
		return fmt.Errorf("config error: compatibility_threshold cannot be negative")
	}
	if c.Stagnation.MaxStagnation <= 0 {
		return fmt.Errorf("config error: max_stagnation must be positive")
	}
	if _, ok := StatFunctions[c.Stagnation.SpeciesFitnessFunc]; !ok {
		return fmt.Errorf("config error: invalid species_fitness_func '%s'", c.Stagnation.SpeciesFitnessFunc)
	}

	parts := strings.Fields(g.InitialConnection)
	if len(parts) == 0 || !validInitialConnections[parts[0]] {
		return fmt.Errorf("config error: invalid initial_connection type '%s'", g.InitialConnection)
	}
	if strings.HasPrefix(parts[0], "partial") {
		if len(parts) != 2 {
			return fmt.Errorf("config error: initial_connection '%s' needs a connection fraction", parts[0])
		}
		frac, err := strconv.ParseFloat(parts[1], 64)
		if err != nil || frac < 0 || frac > 1 {
			return fmt.Errorf("config error: partial connection fraction must be between 0 and 1, got '%s'", parts[1])
		}
	}
	return nil
}

// derive fills the computed fields: node keys and the partial connection fraction.
func (c *Config) derive() {
	g := &c.Genome
	g.InputKeys = make([]int, g.NumInputs)
	for i := range g.InputKeys {
		g.InputKeys[i] = -(i + 1)
	}
	g.OutputKeys = make([]int, g.NumOutputs)
	for i := range g.OutputKeys {
		g.OutputKeys[i] = i
	}
	// Hidden node keys start after the output nodes.
	g.NodeKeyIndex = g.NumOutputs

	g.ConnectionFraction = 1.0
	if parts := strings.Fields(g.InitialConnection); len(parts) == 2 {
		g.ConnectionFraction, _ = strconv.ParseFloat(parts[1], 64)
	}
}

// FitnessCriterionFunc returns the function used to reduce population fitness
// to the value compared against fitness_threshold.
func (c *Config) FitnessCriterionFunc() func([]float64) float64 {
	return StatFunctions[c.Neat.FitnessCriterion]
}

// GetNewNodeKey hands out a fresh hidden node key.
func (gc *GenomeConfig) GetNewNodeKey() int {
	key := gc.NodeKeyIndex
	gc.NodeKeyIndex++
	return key
}

// ReserveNodeKeys moves the node key index past every key used by the genomes.
// Needed after genomes are restored from a checkpoint.
func (gc *GenomeConfig) ReserveNodeKeys(genomes map[int]*Genome) {
	for _, g := range genomes {
		for key := range g.Nodes {
			if key >= gc.NodeKeyIndex {
				gc.NodeKeyIndex = key + 1
			}
		}
	}
}

func (gc *GenomeConfig) isOutput(key int) bool {
	return key >= 0 && key < gc.NumOutputs
}

func (gc *GenomeConfig) isInput(key int) bool {
	return key < 0 && key >= -gc.NumInputs
}

func trimOptions(opts []string) []string {
	out := opts[:0]
	for _, o := range opts {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
