package trainer

import (
	"fmt"
	"log/slog"

	"github.com/baldhumanity/neat-flappy/internal/sim"
	"github.com/baldhumanity/neat-flappy/neat"
	"github.com/baldhumanity/neat-flappy/neat/nn"
)

// Network shape the simulation feeds and reads.
const (
	NumInputs  = 3 // bird y, gap to top pipe, gap to bottom pipe
	NumOutputs = 1 // jump when above sim.JumpThreshold
)

// NetworkController flies a bird with a feed-forward network.
type NetworkController struct {
	key    int
	net    *nn.FeedForwardNetwork
	logger *slog.Logger
}

// NewNetworkController wraps the network built from genome key.
func NewNetworkController(key int, net *nn.FeedForwardNetwork, logger *slog.Logger) *NetworkController {
	if logger == nil {
		logger = slog.Default()
	}
	return &NetworkController{key: key, net: net, logger: logger}
}

// Decide implements sim.Controller. ValidateNEAT rules out a shape mismatch
// at startup, so an activation error means a broken network: it is logged
// and the bird does not jump.
func (c *NetworkController) Decide(s sim.Sensors) float64 {
	out, err := c.net.Activate(s.Slice())
	if err != nil {
		c.logger.Error("network activation failed", "genome", c.key, "error", err)
		return 0
	}
	if len(out) == 0 {
		c.logger.Error("network has no outputs", "genome", c.key)
		return 0
	}
	return out[0]
}

// ValidateNEAT rejects NEAT configs whose networks cannot fly a bird.
func ValidateNEAT(c *neat.Config) error {
	if c.Genome.NumInputs != NumInputs {
		return fmt.Errorf("num_inputs must be %d, got %d", NumInputs, c.Genome.NumInputs)
	}
	if c.Genome.NumOutputs != NumOutputs {
		return fmt.Errorf("num_outputs must be %d, got %d", NumOutputs, c.Genome.NumOutputs)
	}
	if !c.Genome.FeedForward {
		return fmt.Errorf("feed_forward must be True")
	}
	return nil
}

var _ sim.Controller = (*NetworkController)(nil)
