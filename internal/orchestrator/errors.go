package orchestrator

import "fmt"

// BindingError records an unknown tool name, unknown agent id, or disabled
// binding (spec.md §7). It is recorded on the node; the node FAILS.
type BindingError struct {
	NodeID string
	Reason string
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("binding error on node %s: %s", e.NodeID, e.Reason)
}

// SubstitutionError records a placeholder referencing a non-completed node,
// an unknown node, or an incompatible scalar coercion (spec.md §7). The
// node FAILS with the offending placeholder.
type SubstitutionError struct {
	NodeID      string
	Placeholder string
	Reason      string
}

func (e *SubstitutionError) Error() string {
	return fmt.Sprintf("substitution error on node %s for %q: %s", e.NodeID, e.Placeholder, e.Reason)
}

// HITLRejectedError terminates a workflow as FAILED with the rejection
// reason carried through (spec.md §7).
type HITLRejectedError struct {
	Reason string
}

func (e *HITLRejectedError) Error() string {
	return "HITL rejected: " + e.Reason
}

// NotActiveError is returned by HITL operations against a workflow that has
// already reached a terminal state and been removed from the active map
// (spec.md §4.6's "Termination / cleanup" rule).
type NotActiveError struct {
	WorkflowID string
}

func (e *NotActiveError) Error() string {
	return "workflow not active: " + e.WorkflowID
}
