package neat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureNewFull(t *testing.T) {
	config := testConfig(t)
	g := NewGenome(1, &config.Genome)
	g.ConfigureNew()

	require.Len(t, g.Nodes, 1)
	require.Contains(t, g.Nodes, 0)
	assert.Len(t, g.Connections, 2, "inputs connect straight to the output without hidden nodes")
	for _, key := range []ConnectionKey{{-1, 0}, {-2, 0}} {
		require.Contains(t, g.Connections, key)
		assert.True(t, g.Connections[key].Enabled)
	}
}

func TestConfigureNewInitialConnections(t *testing.T) {
	tests := []struct {
		name      string
		initial   string
		numHidden string
		wantConns int
	}{
		{"unconnected", "unconnected", "0", 0},
		{"full with hidden", "full_nodirect", "2", 2*2 + 2*1},
		{"full direct with hidden", "full_direct", "2", 2*2 + 2*1 + 2*1},
		{"fs_neat without hidden", "fs_neat_nohidden", "2", 1},
		{"fs_neat with hidden", "fs_neat_hidden", "2", 3},
		{"partial everything", "partial_nodirect 1.0", "0", 2},
		{"partial nothing", "partial_nodirect 0.0", "0", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := testConfig(t,
				"initial_connection = full", "initial_connection = "+tt.initial,
				"num_hidden         = 0", "num_hidden = "+tt.numHidden)
			g := NewGenome(1, &config.Genome)
			g.ConfigureNew()
			assert.Len(t, g.Connections, tt.wantConns)
		})
	}
}

func TestConfigureCrossoverInheritsFromFitterParent(t *testing.T) {
	config := testConfig(t)
	p1 := NewGenome(1, &config.Genome)
	p1.ConfigureNew()
	p1.Fitness = 10

	p2 := p1.Copy()
	p2.Key = 2
	p2.Fitness = 1
	hidden := config.Genome.GetNewNodeKey()
	p2.Nodes[hidden] = NewNodeGene(hidden, &config.Genome)
	extra := ConnectionKey{InNodeID: -1, OutNodeID: hidden}
	p2.Connections[extra] = NewConnectionGene(extra, &config.Genome)

	child := NewGenome(3, &config.Genome)
	child.ConfigureCrossover(p2, p1)

	assert.Len(t, child.Nodes, len(p1.Nodes))
	assert.NotContains(t, child.Nodes, hidden, "disjoint genes come from the fitter parent")
	assert.NotContains(t, child.Connections, extra)
	for key := range p1.Connections {
		assert.Contains(t, child.Connections, key)
	}
}

func TestMutateAddNodeSplitsConnection(t *testing.T) {
	config := testConfig(t)
	g := NewGenome(1, &config.Genome)
	g.ConfigureNew()
	before := len(g.Connections)

	g.mutateAddNode()

	require.Len(t, g.Nodes, 2)
	assert.Len(t, g.Connections, before+2)
	disabled := 0
	for _, cg := range g.Connections {
		if !cg.Enabled {
			disabled++
		}
	}
	assert.Equal(t, 1, disabled)
}

func TestMutateAddNodeWithoutConnectionsIsSure(t *testing.T) {
	config := testConfig(t, "initial_connection = full", "initial_connection = unconnected")
	config.Genome.StructuralMutationSurer = "true"
	g := NewGenome(1, &config.Genome)
	g.ConfigureNew()

	g.mutateAddNode()

	assert.Len(t, g.Nodes, 1, "no connection to split")
	assert.Len(t, g.Connections, 1, "falls back to adding a connection")
}

func TestMutateAddConnectionKeepsFeedForward(t *testing.T) {
	config := testConfig(t, "initial_connection = full", "initial_connection = unconnected")
	g := NewGenome(1, &config.Genome)
	g.ConfigureNew()

	for i := 0; i < 200; i++ {
		g.mutateAddNode()
		g.mutateAddConnection()
	}
	for key, cg := range g.Connections {
		if !cg.Enabled {
			continue
		}
		assert.NotEqual(t, key.InNodeID, key.OutNodeID, "self loop in feed-forward genome")
		assert.False(t, config.Genome.isInput(key.OutNodeID), "connection into an input node")
	}
	assert.False(t, hasCycle(g))
}

func TestMutateDeleteNodeRemovesConnections(t *testing.T) {
	config := testConfig(t)
	g := NewGenome(1, &config.Genome)
	g.ConfigureNew()
	g.mutateAddNode()
	require.Len(t, g.Nodes, 2)

	g.mutateDeleteNode()

	assert.Len(t, g.Nodes, 1)
	for key := range g.Connections {
		assert.Contains(t, []int{-1, -2}, key.InNodeID)
		assert.Equal(t, 0, key.OutNodeID)
	}

	g.mutateDeleteNode()
	assert.Len(t, g.Nodes, 1, "output nodes are never deleted")
}

func TestMutateDeleteConnection(t *testing.T) {
	config := testConfig(t)
	g := NewGenome(1, &config.Genome)
	g.ConfigureNew()

	g.mutateDeleteConnection()
	g.mutateDeleteConnection()
	g.mutateDeleteConnection()
	assert.Empty(t, g.Connections)
}

func TestGenomeDistance(t *testing.T) {
	config := testConfig(t)
	g := NewGenome(1, &config.Genome)
	g.ConfigureNew()

	assert.Equal(t, 0.0, g.Distance(g.Copy()))

	other := g.Copy()
	for _, cg := range other.Connections {
		cg.Weight += 2
	}
	// Two homologous connections, each 2 apart, weighted by 0.5 and averaged over 2.
	assert.InDelta(t, 1.0, g.Distance(other), 1e-9)
	assert.InDelta(t, g.Distance(other), other.Distance(g), 1e-9)

	other.mutateAddNode()
	assert.Greater(t, g.Distance(other), 1.0)
}

func TestGenomeCopyIsDeep(t *testing.T) {
	config := testConfig(t)
	g := NewGenome(1, &config.Genome)
	g.ConfigureNew()
	c := g.Copy()

	for _, cg := range c.Connections {
		cg.Weight = 99
	}
	c.Nodes[0].Bias = 99
	for _, cg := range g.Connections {
		assert.NotEqual(t, 99.0, cg.Weight)
	}
	assert.NotEqual(t, 99.0, g.Nodes[0].Bias)
}

func TestGenomeSizeAndString(t *testing.T) {
	config := testConfig(t)
	g := NewGenome(7, &config.Genome)
	g.ConfigureNew()
	g.Connections[ConnectionKey{-1, 0}].Enabled = false

	nodes, enabled := g.Size()
	assert.Equal(t, 1, nodes)
	assert.Equal(t, 1, enabled)
	assert.Contains(t, g.String(), "Key: 7")
}

func TestCreatesCycle(t *testing.T) {
	config := testConfig(t)
	g := NewGenome(1, &config.Genome)
	g.ConfigureNew()
	g.mutateAddNode()

	var hidden int
	for k := range g.Nodes {
		if k != 0 {
			hidden = k
		}
	}
	// After the split the hidden node feeds the output.
	assert.True(t, createsCycle(g, 0, hidden))
	assert.True(t, createsCycle(g, hidden, hidden))
	assert.False(t, createsCycle(g, -1, 0))
}

// hasCycle reports whether the enabled connections of g contain a cycle.
func hasCycle(g *Genome) bool {
	for key, cg := range g.Connections {
		if !cg.Enabled {
			continue
		}
		if key.InNodeID == key.OutNodeID {
			return true
		}
		cg.Enabled = false
		cyclic := createsCycle(g, key.InNodeID, key.OutNodeID)
		cg.Enabled = true
		if cyclic {
			return true
		}
	}
	return false
}
