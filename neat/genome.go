package neat

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
)

// Genome represents an individual organism in the population.
// It consists of NodeGenes and ConnectionGenes.
type Genome struct {
	Key         int                               // Unique identifier for this genome.
	Nodes       map[int]*NodeGene                 // Map node ID -> NodeGene (outputs and hidden only)
	Connections map[ConnectionKey]*ConnectionGene // Map connection key -> ConnectionGene
	Fitness     float64                           // Fitness assigned by the fitness function.
	Config      *GenomeConfig                     // Not saved in checkpoints; relinked on load.
}

// NewGenome creates a new, empty Genome with the specified key and config reference.
func NewGenome(key int, config *GenomeConfig) *Genome {
	return &Genome{
		Key:         key,
		Nodes:       make(map[int]*NodeGene),
		Connections: make(map[ConnectionKey]*ConnectionGene),
		Config:      config,
	}
}

// ConfigureNew initializes a new genome: output nodes, hidden nodes and the
// initial connections named by initial_connection.
func (g *Genome) ConfigureNew() {
	for _, nodeKey := range g.Config.OutputKeys {
		g.Nodes[nodeKey] = NewNodeGene(nodeKey, g.Config)
	}
	for i := 0; i < g.Config.NumHidden; i++ {
		nodeKey := g.Config.GetNewNodeKey()
		if _, exists := g.Nodes[nodeKey]; exists {
			panic(fmt.Sprintf("attempted to create duplicate node key: %d", nodeKey))
		}
		g.Nodes[nodeKey] = NewNodeGene(nodeKey, g.Config)
	}
	g.setupInitialConnections()
}

// setupInitialConnections follows neat-python's genome.configure_new.
func (g *Genome) setupInitialConnections() {
	switch strings.Fields(g.Config.InitialConnection)[0] {
	case "unconnected":
	case "fs_neat_nohidden":
		g.connectFSNeat(false)
	case "fs_neat", "fs_neat_hidden":
		g.connectFSNeat(true)
	case "full", "full_nodirect":
		g.connectFraction(g.computeFullConnections(false), 1.0)
	case "full_direct":
		g.connectFraction(g.computeFullConnections(true), 1.0)
	case "partial", "partial_nodirect":
		g.connectFraction(g.computeFullConnections(false), g.Config.ConnectionFraction)
	case "partial_direct":
		g.connectFraction(g.computeFullConnections(true), g.Config.ConnectionFraction)
	default:
		// Config validation rejects anything else.
		panic(fmt.Sprintf("invalid initial_connection type in genome configuration: %s", g.Config.InitialConnection))
	}
}

// connectFSNeat connects one randomly chosen input to every output node and,
// when withHidden is set, to every hidden node as well.
func (g *Genome) connectFSNeat(withHidden bool) {
	inputKey := g.Config.InputKeys[rand.Intn(len(g.Config.InputKeys))]
	for _, nk := range g.sortedNodeKeys() {
		if !withHidden && !g.Config.isOutput(nk) {
			continue
		}
		key := ConnectionKey{InNodeID: inputKey, OutNodeID: nk}
		g.Connections[key] = NewConnectionGene(key, g.Config)
	}
}

// computeFullConnections lists the connections of a fully connected genome.
// Inputs feed hidden nodes and hidden nodes feed outputs. Inputs feed outputs
// directly when direct is set or there are no hidden nodes. Recurrent genomes
// also get a self-connection on every node.
func (g *Genome) computeFullConnections(direct bool) []ConnectionKey {
	var hidden, output []int
	for _, nk := range g.sortedNodeKeys() {
		if g.Config.isOutput(nk) {
			output = append(output, nk)
		} else {
			hidden = append(hidden, nk)
		}
	}

	var keys []ConnectionKey
	if len(hidden) > 0 {
		for _, ik := range g.Config.InputKeys {
			for _, hk := range hidden {
				keys = append(keys, ConnectionKey{InNodeID: ik, OutNodeID: hk})
			}
		}
		for _, hk := range hidden {
			for _, ok := range output {
				keys = append(keys, ConnectionKey{InNodeID: hk, OutNodeID: ok})
			}
		}
	}
	if direct || len(hidden) == 0 {
		for _, ik := range g.Config.InputKeys {
			for _, ok := range output {
				keys = append(keys, ConnectionKey{InNodeID: ik, OutNodeID: ok})
			}
		}
	}
	if !g.Config.FeedForward {
		for _, nk := range g.sortedNodeKeys() {
			keys = append(keys, ConnectionKey{InNodeID: nk, OutNodeID: nk})
		}
	}
	return keys
}

func (g *Genome) connectFraction(keys []ConnectionKey, fraction float64) {
	for _, key := range keys {
		if fraction >= 1.0 || rand.Float64() < fraction {
			g.Connections[key] = NewConnectionGene(key, g.Config)
		}
	}
}

// ConfigureCrossover creates the genome's genes by combining two parents.
// Homologous genes are crossed over; disjoint and excess genes come from the fitter parent.
func (g *Genome) ConfigureCrossover(parent1, parent2 *Genome) {
	if parent1.Fitness < parent2.Fitness {
		parent1, parent2 = parent2, parent1
	}
	g.Config = parent1.Config

	for key, cg1 := range parent1.Connections {
		if cg2, ok := parent2.Connections[key]; ok {
			g.Connections[key] = cg1.Crossover(cg2)
		} else {
			g.Connections[key] = cg1.Copy()
		}
	}

	for key, ng1 := range parent1.Nodes {
		if ng2, ok := parent2.Nodes[key]; ok {
			g.Nodes[key] = ng1.Crossover(ng2)
		} else {
			g.Nodes[key] = ng1.Copy()
		}
	}
}

// Mutate applies structural mutations followed by attribute mutations.
func (g *Genome) Mutate() {
	c := g.Config
	if c.SingleStructuralMutation {
		// At most one structural change, chosen proportionally to the configured probabilities.
		div := c.NodeAddProb + c.NodeDeleteProb + c.ConnAddProb + c.ConnDeleteProb
		if div < 1 {
			div = 1
		}
		r := rand.Float64()
		switch {
		case r < c.NodeAddProb/div:
			g.mutateAddNode()
		case r < (c.NodeAddProb+c.NodeDeleteProb)/div:
			g.mutateDeleteNode()
		case r < (c.NodeAddProb+c.NodeDeleteProb+c.ConnAddProb)/div:
			g.mutateAddConnection()
		case r < (c.NodeAddProb+c.NodeDeleteProb+c.ConnAddProb+c.ConnDeleteProb)/div:
			g.mutateDeleteConnection()
		}
	} else {
		if rand.Float64() < c.NodeAddProb {
			g.mutateAddNode()
		}
		if rand.Float64() < c.NodeDeleteProb {
			g.mutateDeleteNode()
		}
		if rand.Float64() < c.ConnAddProb {
			g.mutateAddConnection()
		}
		if rand.Float64() < c.ConnDeleteProb {
			g.mutateDeleteConnection()
		}
	}

	for _, node := range g.Nodes {
		node.Mutate(c)
	}
	for _, conn := range g.Connections {
		conn.Mutate(g)
	}
}

// structuralMutationSurer reports whether failed structural mutations should
// fall back to a guaranteed change.
func (g *Genome) structuralMutationSurer() bool {
	switch strings.ToLower(g.Config.StructuralMutationSurer) {
	case "true", "1", "yes", "on":
		return true
	case "default":
		return g.Config.SingleStructuralMutation
	}
	return false
}

// mutateAddNode splits a random enabled connection with a new node.
func (g *Genome) mutateAddNode() {
	if len(g.Connections) == 0 {
		if g.structuralMutationSurer() {
			g.mutateAddConnection()
		}
		return
	}

	var keys []ConnectionKey
	for _, k := range g.sortedConnectionKeys() {
		if g.Connections[k].Enabled {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return
	}
	connToSplit := g.Connections[keys[rand.Intn(len(keys))]]
	connToSplit.Enabled = false

	newNodeKey := g.Config.GetNewNodeKey()
	g.Nodes[newNodeKey] = NewNodeGene(newNodeKey, g.Config)

	// The incoming link gets weight 1 and the outgoing link keeps the old weight,
	// so the split initially leaves the network's behaviour close to unchanged.
	inKey := ConnectionKey{InNodeID: connToSplit.Key.InNodeID, OutNodeID: newNodeKey}
	g.Connections[inKey] = &ConnectionGene{Key: inKey, Weight: 1.0, Enabled: true}

	outKey := ConnectionKey{InNodeID: newNodeKey, OutNodeID: connToSplit.Key.OutNodeID}
	g.Connections[outKey] = &ConnectionGene{Key: outKey, Weight: connToSplit.Weight, Enabled: true}
}

// mutateAddConnection attempts to add a connection between two previously unconnected nodes.
func (g *Genome) mutateAddConnection() {
	nodeKeys := g.sortedNodeKeys()
	if len(nodeKeys) == 0 {
		return
	}
	possibleInputs := append(append([]int{}, g.Config.InputKeys...), nodeKeys...)

	const maxAttempts = 20
	for i := 0; i < maxAttempts; i++ {
		inNode := possibleInputs[rand.Intn(len(possibleInputs))]
		outNode := nodeKeys[rand.Intn(len(nodeKeys))]

		key := ConnectionKey{InNodeID: inNode, OutNodeID: outNode}
		if existing, ok := g.Connections[key]; ok {
			if g.structuralMutationSurer() && !existing.Enabled {
				if !g.Config.FeedForward || !createsCycle(g, inNode, outNode) {
					existing.Enabled = true
					return
				}
			}
			continue
		}
		// Connections between two output nodes are not allowed.
		if g.Config.isOutput(inNode) && g.Config.isOutput(outNode) {
			continue
		}
		if g.Config.FeedForward && createsCycle(g, inNode, outNode) {
			continue
		}

		g.Connections[key] = NewConnectionGene(key, g.Config)
		return
	}
}

// mutateDeleteNode removes a random hidden node together with its connections.
func (g *Genome) mutateDeleteNode() {
	var candidates []int
	for _, nk := range g.sortedNodeKeys() {
		if !g.Config.isOutput(nk) {
			candidates = append(candidates, nk)
		}
	}
	if len(candidates) == 0 {
		return
	}
	victim := candidates[rand.Intn(len(candidates))]
	for key := range g.Connections {
		if key.InNodeID == victim || key.OutNodeID == victim {
			delete(g.Connections, key)
		}
	}
	delete(g.Nodes, victim)
}

// mutateDeleteConnection removes a random connection.
func (g *Genome) mutateDeleteConnection() {
	if len(g.Connections) == 0 {
		return
	}
	keys := g.sortedConnectionKeys()
	delete(g.Connections, keys[rand.Intn(len(keys))])
}

// Distance calculates the genetic distance between this genome and another,
// as the sum of the node-gene and connection-gene distances (neat-python).
func (g *Genome) Distance(other *Genome) float64 {
	c := g.Config

	nodeDistance := 0.0
	if len(g.Nodes) > 0 || len(other.Nodes) > 0 {
		disjoint := 0
		for key := range other.Nodes {
			if _, ok := g.Nodes[key]; !ok {
				disjoint++
			}
		}
		for key, n1 := range g.Nodes {
			if n2, ok := other.Nodes[key]; ok {
				nodeDistance += n1.Distance(n2, c)
			} else {
				disjoint++
			}
		}
		maxNodes := max(len(g.Nodes), len(other.Nodes))
		nodeDistance = (nodeDistance + c.CompatibilityDisjointCoefficient*float64(disjoint)) / float64(maxNodes)
	}

	connDistance := 0.0
	if len(g.Connections) > 0 || len(other.Connections) > 0 {
		disjoint := 0
		for key := range other.Connections {
			if _, ok := g.Connections[key]; !ok {
				disjoint++
			}
		}
		for key, c1 := range g.Connections {
			if c2, ok := other.Connections[key]; ok {
				connDistance += c1.Distance(c2, c)
			} else {
				disjoint++
			}
		}
		maxConns := max(len(g.Connections), len(other.Connections))
		connDistance = (connDistance + c.CompatibilityDisjointCoefficient*float64(disjoint)) / float64(maxConns)
	}

	return nodeDistance + connDistance
}

// Copy returns a deep copy of the genome sharing the same config.
func (g *Genome) Copy() *Genome {
	c := NewGenome(g.Key, g.Config)
	c.Fitness = g.Fitness
	for k, n := range g.Nodes {
		c.Nodes[k] = n.Copy()
	}
	for k, cg := range g.Connections {
		c.Connections[k] = cg.Copy()
	}
	return c
}

// Size returns the number of nodes and enabled connections.
func (g *Genome) Size() (nodes, enabled int) {
	for _, cg := range g.Connections {
		if cg.Enabled {
			enabled++
		}
	}
	return len(g.Nodes), enabled
}

// String returns a multi-line description of the genome.
func (g *Genome) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Key: %d\nFitness: %.4f\nNodes:", g.Key, g.Fitness)
	for _, k := range g.sortedNodeKeys() {
		fmt.Fprintf(&b, "\n\t%s", g.Nodes[k])
	}
	b.WriteString("\nConnections:")
	for _, k := range g.sortedConnectionKeys() {
		fmt.Fprintf(&b, "\n\t%s", g.Connections[k])
	}
	return b.String()
}

func (g *Genome) sortedNodeKeys() []int {
	keys := make([]int, 0, len(g.Nodes))
	for k := range g.Nodes {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// sortedConnectionKeys gives map iteration a stable order so that random picks
// depend only on the random source.
func (g *Genome) sortedConnectionKeys() []ConnectionKey {
	keys := make([]ConnectionKey, 0, len(g.Connections))
	for k := range g.Connections {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].InNodeID != keys[j].InNodeID {
			return keys[i].InNodeID < keys[j].InNodeID
		}
		return keys[i].OutNodeID < keys[j].OutNodeID
	})
	return keys
}

// createsCycle reports whether adding inNode->outNode would close a cycle
// through the genome's enabled connections.
func createsCycle(genome *Genome, inNode, outNode int) bool {
	if inNode == outNode {
		return true
	}

	visited := map[int]bool{outNode: true}
	queue := []int{outNode}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for key, conn := range genome.Connections {
			if !conn.Enabled || key.InNodeID != current {
				continue
			}
			if key.OutNodeID == inNode {
				return true
			}
			if !visited[key.OutNodeID] {
				visited[key.OutNodeID] = true
				queue = append(queue, key.OutNodeID)
			}
		}
	}
	return false
}
