package graph

// InvalidGraphError is the InvalidGraph error kind from spec.md §7: cyclic,
// dangling dependency, missing node, or duplicate id. Surfaced at DAG
// Registry load time; the Orchestrator refuses to start a workflow for a
// Graph that fails Validate.
type InvalidGraphError struct {
	Reason string
}

func (e *InvalidGraphError) Error() string { return "invalid graph: " + e.Reason }
