package graph_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algowizzzz/agentsmcp/internal/graph"
)

func linear(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New("dag-1", "linear", "")
	g.AddNode(graph.NewNode("A", graph.KindTool))
	g.AddNode(graph.NewNode("B", graph.KindTool))
	g.AddEdge(graph.Edge{From: "A", To: "B"})
	return g
}

func TestGetStartNodesNoExplicitSet(t *testing.T) {
	g := linear(t)
	starts := g.GetStartNodes()
	require.Len(t, starts, 1)
	assert.Equal(t, "A", starts[0].ID)
}

func TestExplicitStartNodeIsHintNotRestriction(t *testing.T) {
	// A node with empty dependencies and not in start_nodes is still
	// eligible: start_nodes is a hint, not a restriction (spec.md §8).
	g := graph.New("dag", "", "")
	g.AddNode(graph.NewNode("A", graph.KindTool))
	g.AddNode(graph.NewNode("B", graph.KindTool))
	g.StartNodes = []string{"A"}

	ready := g.GetReadyNodes(map[string]struct{}{})
	ids := map[string]bool{}
	for _, n := range ready {
		ids[n.ID] = true
	}
	assert.True(t, ids["A"])
	assert.True(t, ids["B"])
}

func TestGetReadyNodes(t *testing.T) {
	g := linear(t)
	ready := g.GetReadyNodes(map[string]struct{}{})
	require.Len(t, ready, 1)
	assert.Equal(t, "A", ready[0].ID)

	g.Nodes["A"].Status = graph.StatusCompleted
	ready = g.GetReadyNodes(map[string]struct{}{"A": {}})
	require.Len(t, ready, 1)
	assert.Equal(t, "B", ready[0].ID)
}

func TestHasCycle(t *testing.T) {
	g := graph.New("dag", "", "")
	g.AddNode(graph.NewNode("A", graph.KindTool))
	g.AddNode(graph.NewNode("B", graph.KindTool))
	g.AddEdge(graph.Edge{From: "A", To: "B"})
	g.AddEdge(graph.Edge{From: "B", To: "A"})

	assert.True(t, g.HasCycle())
	err := g.Validate()
	require.Error(t, err)
	var invalid *graph.InvalidGraphError
	assert.ErrorAs(t, err, &invalid)
}

func TestTopologicalSort(t *testing.T) {
	g := linear(t)
	order := g.TopologicalSort()
	assert.Equal(t, []string{"A", "B"}, order)
}

func TestTopologicalSortCyclicReturnsNil(t *testing.T) {
	g := graph.New("dag", "", "")
	g.AddNode(graph.NewNode("A", graph.KindTool))
	g.AddNode(graph.NewNode("B", graph.KindTool))
	g.AddEdge(graph.Edge{From: "A", To: "B"})
	g.AddEdge(graph.Edge{From: "B", To: "A"})
	assert.Nil(t, g.TopologicalSort())
}

func TestSerializeRoundTripByteIdentical(t *testing.T) {
	g := linear(t)
	g.Nodes["A"].Status = graph.StatusCompleted
	g.Nodes["A"].Result = map[string]any{"msg": "hi"}

	first, err := json.Marshal(g)
	require.NoError(t, err)

	var restored graph.Graph
	require.NoError(t, json.Unmarshal(first, &restored))

	second, err := json.Marshal(&restored)
	require.NoError(t, err)

	assert.JSONEq(t, string(first), string(second))
}

func TestValidateRejectsDanglingEdge(t *testing.T) {
	g := graph.New("dag", "", "")
	g.AddNode(graph.NewNode("A", graph.KindTool))
	g.Edges = append(g.Edges, graph.Edge{From: "A", To: "missing"})

	err := g.Validate()
	require.Error(t, err)
}

func TestFanOutFanIn(t *testing.T) {
	g := graph.New("dag", "", "")
	for _, id := range []string{"S", "P1", "P2", "P3", "J"} {
		g.AddNode(graph.NewNode(id, graph.KindTool))
	}
	g.AddEdge(graph.Edge{From: "S", To: "P1"})
	g.AddEdge(graph.Edge{From: "S", To: "P2"})
	g.AddEdge(graph.Edge{From: "S", To: "P3"})
	g.AddEdge(graph.Edge{From: "P1", To: "J"})
	g.AddEdge(graph.Edge{From: "P2", To: "J"})
	g.AddEdge(graph.Edge{From: "P3", To: "J"})

	require.NoError(t, g.Validate())

	completed := map[string]struct{}{}
	ready := g.GetReadyNodes(completed)
	require.Len(t, ready, 1)
	assert.Equal(t, "S", ready[0].ID)

	completed["S"] = struct{}{}
	g.Nodes["S"].Status = graph.StatusCompleted
	ready = g.GetReadyNodes(completed)
	require.Len(t, ready, 3)

	completed["P1"] = struct{}{}
	completed["P2"] = struct{}{}
	g.Nodes["P1"].Status = graph.StatusCompleted
	g.Nodes["P2"].Status = graph.StatusCompleted
	ready = g.GetReadyNodes(completed)
	require.Len(t, ready, 1)
	assert.Equal(t, "P3", ready[0].ID)
}
