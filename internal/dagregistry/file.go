package dagregistry

import "github.com/algowizzzz/agentsmcp/internal/graph"

// ParameterSpec describes one entry of a graph definition file's optional
// "parameters" schema (spec.md §6).
type ParameterSpec struct {
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
	Type        string `json:"type,omitempty"`
	Default     any    `json:"default,omitempty"`
	Example     any    `json:"example,omitempty"`
}

// NodeFile is one entry of a graph definition file's "nodes" array.
type NodeFile struct {
	NodeID       string         `json:"node_id"`
	NodeType     graph.NodeKind `json:"node_type"`
	AgentID      string         `json:"agent_id,omitempty"`
	Config       map[string]any `json:"config"`
	Dependencies []string       `json:"dependencies"`
}

// File is the declarative graph definition file shape from spec.md §6: one
// per DAG, parsed at registry load.
type File struct {
	DAGID       string                   `json:"dag_id"`
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	Parameters  map[string]ParameterSpec `json:"parameters,omitempty"`
	StartNodes  []string                 `json:"start_nodes,omitempty"`
	Nodes       []NodeFile               `json:"nodes"`
}

// ToGraph materializes a fresh graph.Graph from the file. It does not
// validate — callers must call Validate on the result before executing it.
func (f *File) ToGraph() *graph.Graph {
	g := graph.New(f.DAGID, f.Name, f.Description)
	g.StartNodes = f.StartNodes

	for _, nf := range f.Nodes {
		n := graph.NewNode(nf.NodeID, nf.NodeType)
		n.AgentID = nf.AgentID
		if nf.Config != nil {
			n.Config = nf.Config
		}
		g.AddNode(n)
	}
	for _, nf := range f.Nodes {
		for _, dep := range nf.Dependencies {
			g.AddEdge(graph.Edge{From: dep, To: nf.NodeID})
		}
	}
	return g
}
