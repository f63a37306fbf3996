package graph

import "sort"

// Graph is an immutable-once-loaded DAG: a node map, an edge list, and an
// optional explicit start set. Construct with New, populate with
// AddNode/AddEdge, then validate with Validate before handing it to the
// orchestrator.
type Graph struct {
	ID          string
	Name        string
	Description string

	Nodes      map[string]*Node
	Edges      []Edge
	StartNodes []string // explicit start set; hint, not a restriction

	Parameters map[string]any // workflow parameters snapshot, see SPEC_FULL §10.4
}

// New returns an empty Graph ready for AddNode/AddEdge calls.
func New(id, name, description string) *Graph {
	return &Graph{
		ID:          id,
		Name:        name,
		Description: description,
		Nodes:       map[string]*Node{},
	}
}

// AddNode registers a node. A duplicate id silently overwrites, matching the
// original Python implementation's dict-assignment semantics; callers that
// care about duplicate detection should check GetNode first (the DAG
// Registry loader does, at file-parse time).
func (g *Graph) AddNode(n *Node) { g.Nodes[n.ID] = n }

// AddEdge appends the edge and updates both endpoints' dependency/dependent
// sets when both nodes exist in the graph.
func (g *Graph) AddEdge(e Edge) {
	g.Edges = append(g.Edges, e)
	if to, ok := g.Nodes[e.To]; ok {
		if _, ok := g.Nodes[e.From]; ok {
			to.AddDependency(e.From)
			g.Nodes[e.From].AddDependent(e.To)
		}
	}
}

// GetNode returns the node with the given id, or nil.
func (g *Graph) GetNode(id string) *Node { return g.Nodes[id] }

// GetStartNodes returns the explicit start set if non-empty, else every node
// with an empty dependency set.
func (g *Graph) GetStartNodes() []*Node {
	if len(g.StartNodes) > 0 {
		out := make([]*Node, 0, len(g.StartNodes))
		for _, id := range g.StartNodes {
			if n, ok := g.Nodes[id]; ok {
				out = append(out, n)
			}
		}
		return out
	}
	var out []*Node
	for _, n := range g.orderedNodes() {
		if len(n.Dependencies) == 0 {
			out = append(out, n)
		}
	}
	return out
}

// GetReadyNodes returns every PENDING node whose dependency set is a subset
// of completed. Order is deterministic (sorted by node id) so callers that
// need a stable iteration order (tests, logging) get one; the orchestrator
// itself makes no ordering guarantee across nodes in the same batch.
func (g *Graph) GetReadyNodes(completed map[string]struct{}) []*Node {
	var ready []*Node
	for _, n := range g.orderedNodes() {
		if n.Status == StatusPending && n.IsReady(completed) {
			ready = append(ready, n)
		}
	}
	return ready
}

// GetSuccessors returns the nodes that directly depend on id.
func (g *Graph) GetSuccessors(id string) []*Node {
	n, ok := g.Nodes[id]
	if !ok {
		return nil
	}
	var out []*Node
	for _, dep := range sortedKeys(n.Dependents) {
		if s, ok := g.Nodes[dep]; ok {
			out = append(out, s)
		}
	}
	return out
}

// GetPredecessors returns the nodes that id directly depends on.
func (g *Graph) GetPredecessors(id string) []*Node {
	n, ok := g.Nodes[id]
	if !ok {
		return nil
	}
	var out []*Node
	for _, dep := range sortedKeys(n.Dependencies) {
		if s, ok := g.Nodes[dep]; ok {
			out = append(out, s)
		}
	}
	return out
}

// HasCycle reports whether the graph contains a cycle, via DFS with an
// explicit recursion stack.
func (g *Graph) HasCycle() bool {
	visited := map[string]struct{}{}
	stack := map[string]struct{}{}

	var visit func(id string) bool
	visit = func(id string) bool {
		visited[id] = struct{}{}
		stack[id] = struct{}{}

		if n, ok := g.Nodes[id]; ok {
			for _, dep := range sortedKeys(n.Dependents) {
				if _, seen := visited[dep]; !seen {
					if visit(dep) {
						return true
					}
				} else if _, onStack := stack[dep]; onStack {
					return true
				}
			}
		}
		delete(stack, id)
		return false
	}

	for _, id := range g.nodeIDs() {
		if _, seen := visited[id]; !seen {
			if visit(id) {
				return true
			}
		}
	}
	return false
}

// TopologicalSort returns node ids in topological order via Kahn's
// algorithm. Returns nil if the graph is cyclic (fewer ids emitted than
// nodes present).
func (g *Graph) TopologicalSort() []string {
	inDegree := make(map[string]int, len(g.Nodes))
	for id, n := range g.Nodes {
		inDegree[id] = len(n.Dependencies)
	}

	var queue []string
	for _, id := range g.nodeIDs() {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	var sorted []string
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		sorted = append(sorted, id)

		n := g.Nodes[id]
		for _, dep := range sortedKeys(n.Dependents) {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(sorted) != len(g.Nodes) {
		return nil
	}
	return sorted
}

// Validate enforces the invariants spec.md §4.1 requires before a graph may
// be accepted for execution: unique ids (guaranteed by the map itself),
// every edge endpoint refers to an existing node, the start set (if any) is
// a subset of node ids with empty dependency sets, and the graph is
// acyclic.
func (g *Graph) Validate() error {
	for _, e := range g.Edges {
		if _, ok := g.Nodes[e.From]; !ok {
			return &InvalidGraphError{Reason: "edge references unknown node: " + e.From}
		}
		if _, ok := g.Nodes[e.To]; !ok {
			return &InvalidGraphError{Reason: "edge references unknown node: " + e.To}
		}
	}
	for _, id := range g.StartNodes {
		n, ok := g.Nodes[id]
		if !ok {
			return &InvalidGraphError{Reason: "start node references unknown node: " + id}
		}
		if len(n.Dependencies) != 0 {
			return &InvalidGraphError{Reason: "start node has dependencies: " + id}
		}
	}
	if g.HasCycle() {
		return &InvalidGraphError{Reason: "graph contains a cycle"}
	}
	return nil
}

func (g *Graph) nodeIDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (g *Graph) orderedNodes() []*Node {
	ids := g.nodeIDs()
	nodes := make([]*Node, 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, g.Nodes[id])
	}
	return nodes
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
