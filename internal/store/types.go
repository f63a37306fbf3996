// Package store is the persistence layer: workflow/node/event/HITL/agent-
// execution rows plus typed monitoring queries, grounded on
// original_source/db/database.py's schema (spec.md §4.8/§6).
package store

import "time"

// WorkflowStatus mirrors the workflows.status column's value set.
type WorkflowStatus string

const (
	WorkflowPending   WorkflowStatus = "pending"
	WorkflowRunning   WorkflowStatus = "running"
	WorkflowCompleted WorkflowStatus = "completed"
	WorkflowFailed    WorkflowStatus = "failed"
)

// Workflow is a row in the workflows table.
type Workflow struct {
	WorkflowID  string         `db:"workflow_id" json:"workflow_id"`
	DAGID       string         `db:"dag_id" json:"dag_id"`
	SessionID   string         `db:"session_id" json:"session_id"`
	Name        string         `db:"name" json:"name"`
	Description string         `db:"description" json:"description"`
	Status      WorkflowStatus `db:"status" json:"status"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	StartedAt   *time.Time     `db:"started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time     `db:"completed_at" json:"completed_at,omitempty"`
	CreatedBy   string         `db:"created_by" json:"created_by"`
	GraphJSON   string         `db:"graph_json" json:"graph_json"`
	Result      string         `db:"result" json:"result,omitempty"`
	Error       string         `db:"error" json:"error,omitempty"`
}

// WorkflowNode is a row in the workflow_nodes table, unique on
// (workflow_id, node_id).
type WorkflowNode struct {
	ID          int64      `db:"id" json:"id"`
	WorkflowID  string     `db:"workflow_id" json:"workflow_id"`
	NodeID      string     `db:"node_id" json:"node_id"`
	NodeType    string     `db:"node_type" json:"node_type"`
	AgentID     string     `db:"agent_id" json:"agent_id,omitempty"`
	Status      string     `db:"status" json:"status"`
	StartedAt   *time.Time `db:"started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	Result      string     `db:"result" json:"result,omitempty"`
	Error       string     `db:"error" json:"error,omitempty"`
	Config      string     `db:"config" json:"config,omitempty"`
}

// WorkflowEvent is an append-only row in the workflow_events table — the
// causal source of truth (spec.md §7).
type WorkflowEvent struct {
	ID         int64     `db:"id" json:"id"`
	WorkflowID string    `db:"workflow_id" json:"workflow_id"`
	EventType  string    `db:"event_type" json:"event_type"`
	EventData  string    `db:"event_data" json:"event_data,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Event type constants emitted across a workflow's lifecycle (spec.md §4.6).
const (
	EventWorkflowStarted   = "workflow_started"
	EventWorkflowCompleted = "workflow_completed"
	EventWorkflowFailed    = "workflow_failed"
	EventNodeStarted       = "node_started"
	EventNodeCompleted     = "node_completed"
	EventNodeFailed        = "node_failed"
	EventHITLRequested     = "hitl_requested"
	EventHITLApproved      = "hitl_approved"
	EventHITLRejected      = "hitl_rejected"
)

// HITLStatus mirrors the hitl_requests.status column's value set.
type HITLStatus string

const (
	HITLPending  HITLStatus = "pending"
	HITLApproved HITLStatus = "approved"
	HITLRejected HITLStatus = "rejected"
)

// HITLRequest is a row in the hitl_requests table.
type HITLRequest struct {
	ID           int64      `db:"id" json:"id"`
	RequestID    string     `db:"request_id" json:"request_id"`
	WorkflowID   string     `db:"workflow_id" json:"workflow_id"`
	NodeID       string     `db:"node_id" json:"node_id"`
	Message      string     `db:"message" json:"message,omitempty"`
	Status       HITLStatus `db:"status" json:"status"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	RespondedAt  *time.Time `db:"responded_at" json:"responded_at,omitempty"`
	RespondedBy  string     `db:"responded_by" json:"responded_by,omitempty"`
	Response     string     `db:"response" json:"response,omitempty"`
}

// AgentExecution is a row in the agent_executions table.
type AgentExecution struct {
	ID          int64      `db:"id" json:"id"`
	ExecutionID string     `db:"execution_id" json:"execution_id"`
	AgentID     string     `db:"agent_id" json:"agent_id"`
	WorkflowID  string     `db:"workflow_id" json:"workflow_id,omitempty"`
	NodeID      string     `db:"node_id" json:"node_id,omitempty"`
	Input       string     `db:"input" json:"input,omitempty"`
	Output      string     `db:"output" json:"output,omitempty"`
	Status      string     `db:"status" json:"status"`
	StartedAt   *time.Time `db:"started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	Error       string     `db:"error" json:"error,omitempty"`
}
