// Package orchestrator schedules node execution over a loaded Graph:
// placeholder substitution, dispatch-by-kind, HITL park/resume, and failure
// policy (spec.md §4.6). Grounded on the teacher's
// runtime/agent/engine/inmem.Engine per-run goroutine and active-run map,
// generalized from workflow/activity semantics to DAG-node dispatch.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/algowizzzz/agentsmcp/internal/agentregistry"
	"github.com/algowizzzz/agentsmcp/internal/graph"
	"github.com/algowizzzz/agentsmcp/internal/store"
	"github.com/algowizzzz/agentsmcp/internal/telemetry"
	"github.com/algowizzzz/agentsmcp/internal/toolregistry"
)

// Orchestrator owns the active-workflow map (spec.md §4.6 step 4) and is
// the entry point for start_workflow/get_workflow_status/approve_hitl/
// reject_hitl/get_pending_hitl_requests (spec.md §6).
type Orchestrator struct {
	store  store.Store
	tools  *toolregistry.Registry
	agents *agentregistry.Registry

	debugDir string

	log telemetry.Logger
	met telemetry.Metrics

	mu      sync.Mutex
	drivers map[string]*driver
}

// Option configures optional Orchestrator behavior.
type Option func(*Orchestrator)

// WithLogger overrides the no-op default logger.
func WithLogger(l telemetry.Logger) Option { return func(o *Orchestrator) { o.log = l } }

// WithMetrics overrides the no-op default metrics recorder.
func WithMetrics(m telemetry.Metrics) Option { return func(o *Orchestrator) { o.met = m } }

// WithDebugDir sets the debug_dir value threaded into every tool node's
// arguments (spec.md §4.6 dispatch-by-kind).
func WithDebugDir(dir string) Option { return func(o *Orchestrator) { o.debugDir = dir } }

// New constructs an Orchestrator over its collaborators.
func New(s store.Store, tools *toolregistry.Registry, agents *agentregistry.Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:   s,
		tools:   tools,
		agents:  agents,
		log:     telemetry.NewNoopLogger(),
		met:     telemetry.NewNoopMetrics(),
		drivers: map[string]*driver{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// StartWorkflow allocates a workflow id, persists the workflow and one node
// row per graph node in a single store call, emits workflow_started,
// registers the live Graph under the active map, and schedules the
// execution loop on a background goroutine before returning synchronously
// (spec.md §4.6 "Entry").
func (o *Orchestrator) StartWorkflow(ctx context.Context, dagID, sessionID, userID string, g *graph.Graph) (string, error) {
	if err := g.Validate(); err != nil {
		return "", err
	}
	workflowID := uuid.NewString()
	now := time.Now().UTC()

	graphJSON, err := json.Marshal(graphSnapshot(g))
	if err != nil {
		return "", fmt.Errorf("orchestrator: marshal graph snapshot: %w", err)
	}

	nodes := make([]store.WorkflowNode, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		configJSON, _ := json.Marshal(n.Config)
		nodes = append(nodes, store.WorkflowNode{
			WorkflowID: workflowID,
			NodeID:     n.ID,
			NodeType:   string(n.Kind),
			AgentID:    n.AgentID,
			Status:     string(graph.StatusPending),
			Config:     string(configJSON),
		})
	}

	wf := store.Workflow{
		WorkflowID: workflowID,
		DAGID:      dagID,
		SessionID:  sessionID,
		Name:       g.Name,
		Description: g.Description,
		Status:     store.WorkflowRunning,
		CreatedAt:  now,
		StartedAt:  &now,
		CreatedBy:  userID,
		GraphJSON:  string(graphJSON),
	}

	if err := o.store.CreateWorkflow(ctx, wf, nodes); err != nil {
		return "", fmt.Errorf("orchestrator: create workflow: %w", err)
	}

	d := &driver{
		workflowID: workflowID,
		dagID:      dagID,
		debugDir:   o.debugDir,
		graph:      g,
		params:     g.Parameters,
		store:      o.store,
		tools:      o.tools,
		agents:     o.agents,
		log:        o.log,
		met:        o.met,
	}

	o.mu.Lock()
	o.drivers[workflowID] = d
	o.mu.Unlock()

	d.emit(ctx, store.EventWorkflowStarted, map[string]any{"dag_id": dagID})

	go o.driveAndCleanup(d)

	return workflowID, nil
}

// driveAndCleanup runs the driver loop on a detached context (the workflow
// outlives the HTTP/RPC request that started it) and removes the driver
// from the active map once the workflow reaches a terminal state. A parked
// driver stays in the map so ApproveHITL can find it and resume it.
func (o *Orchestrator) driveAndCleanup(d *driver) {
	d.run(context.Background())
	if d.isTerminalExternally(context.Background()) || d.allTerminal() {
		o.deactivate(d.workflowID)
	}
}

// resume re-enters the execution loop for a parked driver, invoked after a
// HITL approval (spec.md §4.6 "HITL resume").
func (o *Orchestrator) resume(ctx context.Context, d *driver) {
	go o.driveAndCleanup(d)
}

func (o *Orchestrator) lookupDriver(workflowID string) (*driver, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	d, ok := o.drivers[workflowID]
	return d, ok
}

// deactivate removes workflowID from the active map (spec.md §4.6
// "Termination / cleanup"); subsequent HITL calls are rejected with
// NotActiveError.
func (o *Orchestrator) deactivate(workflowID string) {
	o.mu.Lock()
	delete(o.drivers, workflowID)
	o.mu.Unlock()
}

// RecoverOrphans transitions every workflow the store still reports RUNNING
// to FAILED with reason "orchestrator restart" (spec.md §5). Call this once
// at process start before any StartWorkflow call: a freshly constructed
// Orchestrator's active-driver map is always empty, so any workflow the
// store shows RUNNING at this point was left running by a process that
// exited before reaching a terminal state — its driver is gone and nothing
// will ever move that workflow forward again.
func (o *Orchestrator) RecoverOrphans(ctx context.Context) error {
	running, err := o.store.ListRunningWorkflows(ctx)
	if err != nil {
		return fmt.Errorf("orchestrator: list running workflows: %w", err)
	}
	for _, wf := range running {
		if err := o.store.UpdateWorkflowStatus(ctx, wf.WorkflowID, store.WorkflowFailed, "", "orchestrator restart"); err != nil {
			o.log.Error(ctx, "failed to recover orphaned workflow", "workflow_id", wf.WorkflowID, "error", err)
		}
	}
	return nil
}

// GetWorkflowStatus returns the workflow row plus every node row, per
// spec.md §6.
func (o *Orchestrator) GetWorkflowStatus(ctx context.Context, workflowID string) (store.Workflow, []store.WorkflowNode, error) {
	wf, err := o.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return store.Workflow{}, nil, err
	}
	nodes, err := o.store.ListNodes(ctx, workflowID)
	if err != nil {
		return store.Workflow{}, nil, err
	}
	return wf, nodes, nil
}

// GetPendingHITLRequests returns pending HITL requests, scoped to
// workflowID when non-empty, across every workflow otherwise (spec.md §6).
func (o *Orchestrator) GetPendingHITLRequests(ctx context.Context, workflowID string) ([]store.HITLRequest, error) {
	return o.store.ListPendingHITL(ctx, workflowID)
}

// CancelWorkflow marks the workflow row failed with reason "cancelled"; the
// driver observes this on its next isTerminalExternally check (at the top of
// each loop iteration) and exits cleanly; in-batch nodes already dispatched still run to completion but their
// results are never written past this point for a workflow that has since
// terminated (spec.md §5 "Cancellation").
func (o *Orchestrator) CancelWorkflow(ctx context.Context, workflowID string) error {
	err := o.store.UpdateWorkflowStatus(ctx, workflowID, store.WorkflowFailed, "", "cancelled")
	o.deactivate(workflowID)
	return err
}

func graphSnapshot(g *graph.Graph) map[string]any {
	nodeIDs := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		nodeIDs = append(nodeIDs, id)
	}
	return map[string]any{
		"dag_id":      g.ID,
		"name":        g.Name,
		"description": g.Description,
		"node_ids":    nodeIDs,
		"start_nodes": g.StartNodes,
	}
}

func encodeResult(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
