package graph

import (
	"encoding/json"
	"sort"
)

// wireNode is the canonical JSON shape of a Node: every field spec.md §3
// calls out (id, type, binding, config, dependencies, dependents, status,
// result, error) in a fixed key order via struct tags.
type wireNode struct {
	NodeID       string         `json:"node_id"`
	NodeType     NodeKind       `json:"node_type"`
	AgentID      string         `json:"agent_id,omitempty"`
	Config       map[string]any `json:"config"`
	Status       NodeStatus     `json:"status"`
	Result       any            `json:"result,omitempty"`
	Error        string         `json:"error,omitempty"`
	Dependencies []string       `json:"dependencies"`
	Dependents   []string       `json:"dependents"`
}

type wireEdge struct {
	FromNode string `json:"from_node"`
	ToNode   string `json:"to_node"`
	Guard    string `json:"guard,omitempty"`
}

type wireGraph struct {
	GraphID     string              `json:"graph_id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Nodes       map[string]wireNode `json:"nodes"`
	Edges       []wireEdge          `json:"edges"`
	StartNodes  []string            `json:"start_nodes"`
	Parameters  map[string]any      `json:"parameters,omitempty"`
}

// MarshalJSON renders the canonical wire form: a node-id keyed map (so
// round-tripping through the same decoder preserves every node, regardless
// of Go map iteration order), a flat edge list, and the start set.
func (g *Graph) MarshalJSON() ([]byte, error) {
	w := wireGraph{
		GraphID:     g.ID,
		Name:        g.Name,
		Description: g.Description,
		Nodes:       make(map[string]wireNode, len(g.Nodes)),
		StartNodes:  g.StartNodes,
		Parameters:  g.Parameters,
	}
	for id, n := range g.Nodes {
		w.Nodes[id] = wireNode{
			NodeID:       n.ID,
			NodeType:     n.Kind,
			AgentID:      n.AgentID,
			Config:       n.Config,
			Status:       n.Status,
			Result:       n.Result,
			Error:        n.Error,
			Dependencies: n.DependencyList(),
			Dependents:   n.DependentList(),
		}
	}
	edges := make([]wireEdge, 0, len(g.Edges))
	for _, e := range g.Edges {
		edges = append(edges, wireEdge{FromNode: e.From, ToNode: e.To, Guard: e.Guard})
	}
	w.Edges = edges
	if w.StartNodes == nil {
		w.StartNodes = []string{}
	}
	return json.Marshal(w)
}

// UnmarshalJSON rebuilds the Graph from its canonical wire form, restoring
// node status/result/error and dependency/dependent sets as written (it does
// not recompute them from the edge list, so a snapshot round-trips exactly
// even if edges were pruned after load).
func (g *Graph) UnmarshalJSON(data []byte) error {
	var w wireGraph
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	g.ID = w.GraphID
	g.Name = w.Name
	g.Description = w.Description
	g.StartNodes = w.StartNodes
	g.Parameters = w.Parameters
	g.Nodes = make(map[string]*Node, len(w.Nodes))

	for id, wn := range w.Nodes {
		n := &Node{
			ID:           wn.NodeID,
			Kind:         wn.NodeType,
			AgentID:      wn.AgentID,
			Config:       wn.Config,
			Status:       wn.Status,
			Result:       wn.Result,
			Error:        wn.Error,
			Dependencies: map[string]struct{}{},
			Dependents:   map[string]struct{}{},
		}
		if n.Config == nil {
			n.Config = map[string]any{}
		}
		for _, d := range wn.Dependencies {
			n.Dependencies[d] = struct{}{}
		}
		for _, d := range wn.Dependents {
			n.Dependents[d] = struct{}{}
		}
		g.Nodes[id] = n
	}

	edges := make([]Edge, 0, len(w.Edges))
	for _, we := range w.Edges {
		edges = append(edges, Edge{From: we.FromNode, To: we.ToNode, Guard: we.Guard})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	g.Edges = edges
	return nil
}
