package store

import "context"

// Store is the persistence layer interface the Orchestrator and monitoring
// facades depend on. Implementations must be safe for concurrent use.
// Grounded on registry/store.Store in the teacher repo: same shape (ctx-
// aware methods, ErrNotFound sentinel, interface satisfied by swappable
// backends) generalized to the workflow-execution schema of spec.md §6.
type Store interface {
	// CreateWorkflow inserts the workflow row and one node row per graph
	// node in a single transaction (spec.md §4.6 step 2).
	CreateWorkflow(ctx context.Context, wf Workflow, nodes []WorkflowNode) error

	// GetWorkflow returns the workflow row for id, or ErrNotFound.
	GetWorkflow(ctx context.Context, workflowID string) (Workflow, error)

	// UpdateWorkflowStatus performs the workflow's terminal (or running→
	// running) state transition. Once a workflow is COMPLETED or FAILED,
	// implementations must reject further transitions (spec.md §7's
	// one-shot terminal rule) by returning ErrWorkflowTerminal.
	UpdateWorkflowStatus(ctx context.Context, workflowID string, status WorkflowStatus, result, errMsg string) error

	// ListNodes returns every node row for workflowID.
	ListNodes(ctx context.Context, workflowID string) ([]WorkflowNode, error)

	// GetNode returns a single node row, or ErrNotFound.
	GetNode(ctx context.Context, workflowID, nodeID string) (WorkflowNode, error)

	// UpdateNode replaces a node row's mutable fields (status, timestamps,
	// result, error) as a single row update (spec.md §4.8).
	UpdateNode(ctx context.Context, node WorkflowNode) error

	// AppendEvent inserts one append-only workflow_events row.
	AppendEvent(ctx context.Context, event WorkflowEvent) error

	// ListEvents returns every event for workflowID in insertion order.
	ListEvents(ctx context.Context, workflowID string) ([]WorkflowEvent, error)

	// CreateHITLRequest inserts a pending hitl_requests row.
	CreateHITLRequest(ctx context.Context, req HITLRequest) error

	// GetHITLRequest returns a single HITL request, or ErrNotFound.
	GetHITLRequest(ctx context.Context, requestID string) (HITLRequest, error)

	// UpdateHITLRequest persists an approve/reject transition.
	UpdateHITLRequest(ctx context.Context, req HITLRequest) error

	// ListPendingHITL returns pending HITL requests, scoped to workflowID
	// when non-empty, across every workflow otherwise.
	ListPendingHITL(ctx context.Context, workflowID string) ([]HITLRequest, error)

	// ListHITLRequestsByWorkflow returns every HITL request (any status)
	// for workflowID, grounded on
	// original_source/db/database_handler_hitl.py::get_hitl_requests.
	ListHITLRequestsByWorkflow(ctx context.Context, workflowID string) ([]HITLRequest, error)

	// CreateAgentExecution inserts an agent_executions row.
	CreateAgentExecution(ctx context.Context, exec AgentExecution) error

	// UpdateAgentExecution updates an existing agent_executions row by
	// execution id.
	UpdateAgentExecution(ctx context.Context, exec AgentExecution) error

	// ListRunningWorkflows returns every workflow currently RUNNING, used
	// by the crash-restart sweep (spec.md §5).
	ListRunningWorkflows(ctx context.Context) ([]Workflow, error)

	// ListWorkflows returns every workflow row regardless of status, for
	// monitoring aggregate queries (spec.md §4.8/§4.9).
	ListWorkflows(ctx context.Context) ([]Workflow, error)
}

// ErrWorkflowTerminal is returned by UpdateWorkflowStatus/UpdateNode when
// the workflow has already reached a terminal state (spec.md §7's one-shot
// terminal-transition rule).
var ErrWorkflowTerminal = &Error{Op: "update", Err: errTerminal{}}

type errTerminal struct{}

func (errTerminal) Error() string { return "workflow already in terminal state" }
