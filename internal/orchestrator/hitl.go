package orchestrator

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/algowizzzz/agentsmcp/internal/graph"
	"github.com/algowizzzz/agentsmcp/internal/store"
)

// parkForHITL creates a pending HITL request for every ready human_in_loop
// node, marks the node's row with the synthetic "waiting_hitl" sub-status
// spec.md §4.6 describes (the node stays RUNNING in the in-memory Graph;
// the store row carries the finer-grained sub-status since it has no
// dedicated column), emits hitl_requested, and returns without re-entering
// the loop — the workflow parks until ApproveHITL/RejectHITL resumes it.
func (d *driver) parkForHITL(ctx context.Context, nodes []*graph.Node) {
	for _, n := range nodes {
		n.Status = graph.StatusRunning

		message, _ := n.Config["message"].(string)
		requestID := uuid.NewString()

		if err := d.store.CreateHITLRequest(ctx, store.HITLRequest{
			RequestID:  requestID,
			WorkflowID: d.workflowID,
			NodeID:     n.ID,
			Message:    message,
			Status:     store.HITLPending,
		}); err != nil {
			d.log.Error(ctx, "failed to create HITL request", "workflow_id", d.workflowID, "node_id", n.ID, "error", err)
			continue
		}

		_ = d.store.UpdateNode(ctx, store.WorkflowNode{
			WorkflowID: d.workflowID,
			NodeID:     n.ID,
			NodeType:   string(n.Kind),
			Status:     "waiting_hitl",
			Config:     encodeResult(n.Config),
		})
		d.emit(ctx, store.EventHITLRequested, map[string]any{"node_id": n.ID, "request_id": requestID})
	}
}

// ApproveHITL validates the request is pending, marks it approved, marks
// the owning node COMPLETED with result {approved:true, response}, emits
// hitl_approved, and re-enters the execution loop on a new goroutine. Idempotent:
// a non-pending request returns the prior outcome without emitting a new
// event (spec.md §4.6, invariant 6).
func (o *Orchestrator) ApproveHITL(ctx context.Context, workflowID, requestID, userID, response string) (bool, error) {
	req, err := o.store.GetHITLRequest(ctx, requestID)
	if err != nil {
		return false, err
	}
	if req.Status != store.HITLPending {
		return req.Status == store.HITLApproved, nil
	}

	req.Status = store.HITLApproved
	req.RespondedBy = userID
	req.Response = response
	if err := o.store.UpdateHITLRequest(ctx, req); err != nil {
		return false, err
	}

	d, ok := o.lookupDriver(req.WorkflowID)
	if !ok {
		return false, &NotActiveError{WorkflowID: req.WorkflowID}
	}

	var nodeConfig string
	if n := d.graph.GetNode(req.NodeID); n != nil {
		n.Status = graph.StatusCompleted
		n.Result = map[string]any{"approved": true, "response": response}
		nodeConfig = encodeResult(n.Config)
	}

	resultJSON, _ := json.Marshal(map[string]any{"approved": true, "response": response})
	_ = o.store.UpdateNode(ctx, store.WorkflowNode{
		WorkflowID: req.WorkflowID,
		NodeID:     req.NodeID,
		NodeType:   string(graph.KindHumanInLoop),
		Status:     string(graph.StatusCompleted),
		Result:     string(resultJSON),
		Config:     nodeConfig,
	})

	d.emit(ctx, store.EventHITLApproved, map[string]any{"node_id": req.NodeID, "request_id": requestID})

	o.resume(ctx, d)
	return true, nil
}

// RejectHITL sets the HITL row to rejected, fails the owning workflow with
// reason "HITL rejected: <reason>", and emits hitl_rejected. Idempotent like
// ApproveHITL.
func (o *Orchestrator) RejectHITL(ctx context.Context, workflowID, requestID, userID, reason string) (bool, error) {
	req, err := o.store.GetHITLRequest(ctx, requestID)
	if err != nil {
		return false, err
	}
	if req.Status != store.HITLPending {
		return req.Status == store.HITLRejected, nil
	}

	req.Status = store.HITLRejected
	req.RespondedBy = userID
	req.Response = reason
	if err := o.store.UpdateHITLRequest(ctx, req); err != nil {
		return false, err
	}

	d, ok := o.lookupDriver(req.WorkflowID)
	if ok {
		d.emit(ctx, store.EventHITLRejected, map[string]any{"node_id": req.NodeID, "request_id": requestID, "reason": reason})
	}

	rejectErr := &HITLRejectedError{Reason: reason}
	_ = o.store.UpdateWorkflowStatus(ctx, req.WorkflowID, store.WorkflowFailed, "", rejectErr.Error())
	o.deactivate(req.WorkflowID)
	return true, nil
}
