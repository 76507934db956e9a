package neat

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// --------------------------- NodeGene ---------------------------

// NodeGene represents a node (neuron) in the neural network genome.
type NodeGene struct {
	Key         int // negative for inputs, >= 0 for outputs and hidden nodes
	Bias        float64
	Response    float64
	Activation  string // Name of the activation function
	Aggregation string // Name of the aggregation function
}

// NewNodeGene creates a new NodeGene with attributes initialized according to the config.
func NewNodeGene(key int, config *GenomeConfig) *NodeGene {
	return &NodeGene{
		Key:         key,
		Bias:        initFloatAttribute(config.BiasInitMean, config.BiasInitStdev, config.BiasInitType, config.BiasMinValue, config.BiasMaxValue),
		Response:    initFloatAttribute(config.ResponseInitMean, config.ResponseInitStdev, config.ResponseInitType, config.ResponseMinValue, config.ResponseMaxValue),
		Activation:  initStringAttribute(config.ActivationDefault, config.ActivationOptions),
		Aggregation: initStringAttribute(config.AggregationDefault, config.AggregationOptions),
	}
}

// String returns a string representation of the NodeGene.
func (ng *NodeGene) String() string {
	return fmt.Sprintf("NodeGene(Key: %d, Bias: %.3f, Response: %.3f, Activation: %s, Aggregation: %s)",
		ng.Key, ng.Bias, ng.Response, ng.Activation, ng.Aggregation)
}

// Copy creates a deep copy of the NodeGene.
func (ng *NodeGene) Copy() *NodeGene {
	c := *ng
	return &c
}

// Mutate adjusts the attributes of the NodeGene based on mutation rates in the config.
func (ng *NodeGene) Mutate(config *GenomeConfig) {
	ng.Bias = mutateFloatAttribute(ng.Bias, config.BiasMutateRate, config.BiasReplaceRate, config.BiasMutatePower, config.BiasInitMean, config.BiasInitStdev, config.BiasInitType, config.BiasMinValue, config.BiasMaxValue)
	ng.Response = mutateFloatAttribute(ng.Response, config.ResponseMutateRate, config.ResponseReplaceRate, config.ResponseMutatePower, config.ResponseInitMean, config.ResponseInitStdev, config.ResponseInitType, config.ResponseMinValue, config.ResponseMaxValue)
	ng.Activation = mutateStringAttribute(ng.Activation, config.ActivationMutateRate, config.ActivationOptions)
	ng.Aggregation = mutateStringAttribute(ng.Aggregation, config.AggregationMutateRate, config.AggregationOptions)
}

// Distance calculates the genetic distance between two NodeGenes based on their attributes.
func (ng *NodeGene) Distance(other *NodeGene, config *GenomeConfig) float64 {
	d := math.Abs(ng.Bias-other.Bias) + math.Abs(ng.Response-other.Response)
	if ng.Activation != other.Activation {
		d += 1.0
	}
	if ng.Aggregation != other.Aggregation {
		d += 1.0
	}
	return d * config.CompatibilityWeightCoefficient
}

// Crossover creates a new NodeGene by randomly inheriting attributes from two parents.
// The receiver is the primary parent and supplies the key.
func (ng *NodeGene) Crossover(other *NodeGene) *NodeGene {
	child := ng.Copy()
	if rand.Float64() < 0.5 {
		child.Bias = other.Bias
	}
	if rand.Float64() < 0.5 {
		child.Response = other.Response
	}
	if rand.Float64() < 0.5 {
		child.Activation = other.Activation
	}
	if rand.Float64() < 0.5 {
		child.Aggregation = other.Aggregation
	}
	return child
}

// --------------------------- ConnectionGene ---------------------------

// ConnectionKey uniquely identifies a connection gene (innovation).
type ConnectionKey struct {
	InNodeID  int
	OutNodeID int
}

// ConnectionGene represents a connection between two nodes in the genome.
// The innovation number is the ConnectionKey itself.
type ConnectionGene struct {
	Key     ConnectionKey
	Weight  float64
	Enabled bool
}

// NewConnectionGene creates a new ConnectionGene with attributes initialized according to the config.
func NewConnectionGene(key ConnectionKey, config *GenomeConfig) *ConnectionGene {
	return &ConnectionGene{
		Key:     key,
		Weight:  initFloatAttribute(config.WeightInitMean, config.WeightInitStdev, config.WeightInitType, config.WeightMinValue, config.WeightMaxValue),
		Enabled: parseBoolAttribute(config.EnabledDefault),
	}
}

// String returns a string representation of the ConnectionGene.
func (cg *ConnectionGene) String() string {
	return fmt.Sprintf("ConnGene(Key: %d->%d, Weight: %.3f, Enabled: %t)",
		cg.Key.InNodeID, cg.Key.OutNodeID, cg.Weight, cg.Enabled)
}

// Copy creates a deep copy of the ConnectionGene.
func (cg *ConnectionGene) Copy() *ConnectionGene {
	c := *cg
	return &c
}

// Mutate adjusts weight and enabled state. The owning genome is needed so that
// re-enabling a connection never closes a cycle in a feed-forward genome.
func (cg *ConnectionGene) Mutate(genome *Genome) {
	config := genome.Config
	cg.Weight = mutateFloatAttribute(cg.Weight, config.WeightMutateRate, config.WeightReplaceRate, config.WeightMutatePower, config.WeightInitMean, config.WeightInitStdev, config.WeightInitType, config.WeightMinValue, config.WeightMaxValue)
	cg.Enabled = mutateEnabled(cg, genome)
}

// Distance calculates the genetic distance between two ConnectionGenes.
func (cg *ConnectionGene) Distance(other *ConnectionGene, config *GenomeConfig) float64 {
	d := math.Abs(cg.Weight - other.Weight)
	if cg.Enabled != other.Enabled {
		d += 1.0
	}
	return d * config.CompatibilityWeightCoefficient
}

// Crossover creates a new ConnectionGene by randomly inheriting attributes from two parents.
func (cg *ConnectionGene) Crossover(other *ConnectionGene) *ConnectionGene {
	child := cg.Copy()
	if rand.Float64() < 0.5 {
		child.Weight = other.Weight
	}
	// neat-python picks either parent's enabled flag at random.
	if rand.Float64() < 0.5 {
		child.Enabled = other.Enabled
	}
	return child
}

// --------------------------- Attribute Helpers ---------------------------
// These mirror neat-python's FloatAttribute, BoolAttribute and StringAttribute.

func initFloatAttribute(mean, stdev float64, initType string, minVal, maxVal float64) float64 {
	switch strings.ToLower(initType) {
	case "uniform":
		lo := math.Max(minVal, mean-(2*stdev))
		hi := math.Min(maxVal, mean+(2*stdev))
		if hi < lo {
			hi = lo
		}
		return rand.Float64()*(hi-lo) + lo
	default: // "gaussian", "normal"
		return clamp(rand.NormFloat64()*stdev+mean, minVal, maxVal)
	}
}

func mutateFloatAttribute(value, mutateRate, replaceRate, mutatePower, initMean, initStdev float64, initType string, minVal, maxVal float64) float64 {
	r := rand.Float64()
	if r < mutateRate {
		return clamp(value+rand.NormFloat64()*mutatePower, minVal, maxVal)
	}
	if r < mutateRate+replaceRate {
		return initFloatAttribute(initMean, initStdev, initType, minVal, maxVal)
	}
	return value
}

func mutateEnabled(cg *ConnectionGene, genome *Genome) bool {
	config := genome.Config
	rate := config.EnabledMutateRate
	if cg.Enabled {
		rate += config.EnabledRateToFalseAdd
	} else {
		rate += config.EnabledRateToTrueAdd
	}
	if rate <= 0 || rand.Float64() >= rate {
		return cg.Enabled
	}

	newState := rand.Float64() < 0.5
	if !cg.Enabled && newState && config.FeedForward && createsCycle(genome, cg.Key.InNodeID, cg.Key.OutNodeID) {
		return false
	}
	return newState
}

func initStringAttribute(defaultVal string, options []string) string {
	if len(options) == 0 {
		return ""
	}
	switch strings.ToLower(defaultVal) {
	case "random", "none", "":
		return options[rand.Intn(len(options))]
	}
	for _, opt := range options {
		if opt == defaultVal {
			return defaultVal
		}
	}
	return options[rand.Intn(len(options))]
}

func mutateStringAttribute(value string, mutateRate float64, options []string) string {
	if len(options) <= 1 || mutateRate <= 0 || rand.Float64() >= mutateRate {
		return value
	}
	// Pick among the options other than the current value.
	others := make([]string, 0, len(options))
	for _, opt := range options {
		if opt != value {
			others = append(others, opt)
		}
	}
	if len(others) == 0 {
		return value
	}
	return others[rand.Intn(len(others))]
}
