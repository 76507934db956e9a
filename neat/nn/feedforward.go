package nn

import (
	"fmt"
	"sort"

	"github.com/baldhumanity/neat-flappy/neat"
)

// neuralNode represents a node during network activation.
// It stores pre-fetched activation/aggregation functions and node properties.
type neuralNode struct {
	Key           int
	Bias          float64
	Response      float64
	ActivationFn  neat.ActivationType
	AggregationFn neat.AggregationType
	Inputs        []link // Incoming enabled connections
}

type link struct {
	From   int
	Weight float64
}

// FeedForwardNetwork represents a phenotype network that can be activated.
// It assumes a feed-forward structure (no cycles).
type FeedForwardNetwork struct {
	InputKeys     []int // List of input node keys (negative)
	OutputKeys    []int // List of output node keys (0 to N-1)
	NodeEvalOrder []int // Topologically sorted keys of the nodes that feed an output

	nodes  map[int]neuralNode
	values map[int]float64
}

// CreateFeedForwardNetwork builds a runnable feed-forward network from a genome.
// Nodes that cannot reach an output are pruned, and the rest are ordered
// topologically.
func CreateFeedForwardNetwork(g *neat.Genome) (*FeedForwardNetwork, error) {
	if !g.Config.FeedForward {
		return nil, fmt.Errorf("cannot create FeedForwardNetwork for a genome configured with FeedForward=false")
	}

	isInput := make(map[int]bool, len(g.Config.InputKeys))
	for _, ik := range g.Config.InputKeys {
		isInput[ik] = true
	}

	// Enabled connections, grouped by target node.
	incoming := make(map[int][]link)
	outgoing := make(map[int][]int)
	for key, gc := range g.Connections {
		if !gc.Enabled {
			continue
		}
		incoming[key.OutNodeID] = append(incoming[key.OutNodeID], link{From: key.InNodeID, Weight: gc.Weight})
		outgoing[key.InNodeID] = append(outgoing[key.InNodeID], key.OutNodeID)
	}

	// Walk backwards from the outputs to find the nodes that matter.
	required := make(map[int]bool)
	stack := append([]int(nil), g.Config.OutputKeys...)
	for len(stack) > 0 {
		k := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if required[k] || isInput[k] {
			continue
		}
		required[k] = true
		for _, in := range incoming[k] {
			stack = append(stack, in.From)
		}
	}

	nodes := make(map[int]neuralNode, len(required))
	for key := range required {
		gn, ok := g.Nodes[key]
		if !ok {
			return nil, fmt.Errorf("connection references missing node %d", key)
		}
		actFn, err := neat.GetActivation(gn.Activation)
		if err != nil {
			return nil, fmt.Errorf("failed to get activation function '%s' for node %d: %w", gn.Activation, key, err)
		}
		aggFn, err := neat.GetAggregation(gn.Aggregation)
		if err != nil {
			return nil, fmt.Errorf("failed to get aggregation function '%s' for node %d: %w", gn.Aggregation, key, err)
		}
		var inputs []link
		for _, in := range incoming[key] {
			if isInput[in.From] || required[in.From] {
				inputs = append(inputs, in)
			}
		}
		sort.Slice(inputs, func(i, j int) bool { return inputs[i].From < inputs[j].From })
		nodes[key] = neuralNode{
			Key:           key,
			Bias:          gn.Bias,
			Response:      gn.Response,
			ActivationFn:  actFn,
			AggregationFn: aggFn,
			Inputs:        inputs,
		}
	}

	// Kahn's algorithm over the required nodes.
	inDegree := make(map[int]int, len(nodes))
	for key, n := range nodes {
		inDegree[key] = 0
		for _, in := range n.Inputs {
			if !isInput[in.From] {
				inDegree[key]++
			}
		}
	}
	var queue []int
	for key, d := range inDegree {
		if d == 0 {
			queue = append(queue, key)
		}
	}
	sort.Ints(queue)

	evalOrder := make([]int, 0, len(nodes))
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		evalOrder = append(evalOrder, u)

		next := outgoing[u]
		sort.Ints(next)
		for _, v := range next {
			if _, ok := nodes[v]; !ok {
				continue
			}
			inDegree[v]--
			if inDegree[v] == 0 {
				queue = append(queue, v)
			}
		}
		sort.Ints(queue)
	}
	// Crossover can re-enable a link that closes a cycle. Nodes on such a cycle
	// never reach in-degree zero; they are left out and read as 0.

	return &FeedForwardNetwork{
		InputKeys:     g.Config.InputKeys,
		OutputKeys:    g.Config.OutputKeys,
		NodeEvalOrder: evalOrder,
		nodes:         nodes,
		values:        make(map[int]float64, len(nodes)+len(g.Config.InputKeys)),
	}, nil
}

// Activate computes the network's output for a given slice of input values.
// The input slice must match the number of input nodes.
// A network is not safe for concurrent use; it reuses an internal value buffer.
func (net *FeedForwardNetwork) Activate(inputs []float64) ([]float64, error) {
	if len(inputs) != len(net.InputKeys) {
		return nil, fmt.Errorf("mismatch between input count (%d) and network input nodes (%d)", len(inputs), len(net.InputKeys))
	}

	for i, ik := range net.InputKeys {
		net.values[ik] = inputs[i]
	}

	var buf []float64
	for _, nodeKey := range net.NodeEvalOrder {
		node := net.nodes[nodeKey]
		buf = buf[:0]
		for _, in := range node.Inputs {
			buf = append(buf, net.values[in.From]*in.Weight)
		}
		net.values[nodeKey] = node.ActivationFn(node.Bias + node.Response*node.AggregationFn(buf))
	}

	// Outputs that nothing feeds are still evaluated above, from their bias alone.
	outputs := make([]float64, len(net.OutputKeys))
	for i, ok := range net.OutputKeys {
		outputs[i] = net.values[ok]
	}
	return outputs, nil
}
