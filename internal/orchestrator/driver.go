package orchestrator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/algowizzzz/agentsmcp/internal/agentregistry"
	"github.com/algowizzzz/agentsmcp/internal/graph"
	"github.com/algowizzzz/agentsmcp/internal/store"
	"github.com/algowizzzz/agentsmcp/internal/telemetry"
	"github.com/algowizzzz/agentsmcp/internal/toolregistry"
)

// driver is the single logical owner of one workflow's in-memory Graph,
// running its execution loop to completion, a HITL park, or a store error.
// Grounded on the teacher's runtime/agent/engine/inmem.Engine per-run
// goroutine, generalized from workflow/activity dispatch to DAG-node
// dispatch by kind (spec.md §4.6).
type driver struct {
	workflowID string
	dagID      string
	debugDir   string

	graph  *graph.Graph
	params map[string]any

	store  store.Store
	tools  *toolregistry.Registry
	agents *agentregistry.Registry

	log telemetry.Logger
	met telemetry.Metrics
}

// run executes the loop described in spec.md §4.6 until the workflow
// reaches a terminal state or parks on a HITL request. It is invoked from a
// goroutine spawned by Orchestrator.StartWorkflow, and again (on the same
// goroutine shape) by Orchestrator.resume after a HITL response.
func (d *driver) run(ctx context.Context) {
	for {
		if d.isTerminalExternally(ctx) {
			return
		}

		completedByID := d.completedNodes()
		ready := d.graph.GetReadyNodes(completedSet(completedByID))

		var schedulable []*graph.Node
		var hitlPending []*graph.Node
		for _, n := range ready {
			if n.Kind == graph.KindHumanInLoop {
				hitlPending = append(hitlPending, n)
			} else {
				schedulable = append(schedulable, n)
			}
		}

		if len(schedulable) == 0 {
			if d.allTerminal() {
				d.finish(ctx)
				return
			}
			if len(hitlPending) > 0 {
				d.parkForHITL(ctx, hitlPending)
				return
			}
			d.failWorkflow(ctx, "no progress possible")
			return
		}

		d.runBatch(ctx, schedulable, completedByID)
	}
}

// runBatch dispatches every ready node concurrently and joins the batch
// before the loop recomputes the ready set, per spec.md §5. Node-local
// failures are captured in the outcome, never returned as group errors, so
// one node's failure never cancels its siblings (SPEC_FULL.md §4.6a).
func (d *driver) runBatch(ctx context.Context, batch []*graph.Node, completed map[string]*graph.Node) {
	outcomes := make([]nodeOutcome, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	for i, n := range batch {
		i, n := i, n
		n.Status = graph.StatusRunning
		d.markNodeRunning(ctx, n)
		d.emit(ctx, store.EventNodeStarted, map[string]any{"node_id": n.ID})

		g.Go(func() error {
			outcomes[i] = d.dispatchNode(gctx, n, completed, d.params)
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		n := d.graph.GetNode(o.NodeID)
		if n == nil {
			continue
		}
		n.Status = o.Status
		n.Result = o.Result
		n.Error = o.Error
		d.persistNodeOutcome(ctx, n)

		if o.Status == graph.StatusFailed {
			d.emit(ctx, store.EventNodeFailed, map[string]any{"node_id": n.ID, "error": o.Error})
			if d.met != nil {
				d.met.IncCounter("orchestrator_node_failed_total", 1, "dag_id", d.dagID)
			}
			if onFailure, _ := n.Config["on_failure"].(string); onFailure != "skip" {
				d.skipDownstream(n.ID)
			}
		} else {
			d.emit(ctx, store.EventNodeCompleted, map[string]any{"node_id": n.ID})
			if d.met != nil {
				d.met.IncCounter("orchestrator_node_completed_total", 1, "dag_id", d.dagID)
			}
		}
	}
}

// skipDownstream marks every transitive descendant of a failed node PENDING
// nodes as SKIPPED, so they never become ready (spec.md §4.6 failure
// policy: "downstream nodes that depend on this node never become ready").
// Descendants already terminal are left untouched.
func (d *driver) skipDownstream(failedID string) {
	visited := map[string]struct{}{}
	var visit func(id string)
	visit = func(id string) {
		if _, seen := visited[id]; seen {
			return
		}
		visited[id] = struct{}{}
		for _, succ := range d.graph.GetSuccessors(id) {
			if succ.Status == graph.StatusPending {
				succ.Status = graph.StatusSkipped
				d.persistNodeOutcome(context.Background(), succ)
			}
			visit(succ.ID)
		}
	}
	visit(failedID)
}

func (d *driver) completedNodes() map[string]*graph.Node {
	out := map[string]*graph.Node{}
	for id, n := range d.graph.Nodes {
		if n.Status == graph.StatusCompleted || n.Status == graph.StatusSkipped {
			out[id] = n
		}
	}
	return out
}

func completedSet(nodes map[string]*graph.Node) map[string]struct{} {
	out := make(map[string]struct{}, len(nodes))
	for id := range nodes {
		out[id] = struct{}{}
	}
	return out
}

func (d *driver) allTerminal() bool {
	for _, n := range d.graph.Nodes {
		if !n.Status.Terminal() {
			return false
		}
	}
	return true
}

func (d *driver) hasFailure() bool {
	for _, n := range d.graph.Nodes {
		if n.Status == graph.StatusFailed {
			return true
		}
	}
	return false
}

func (d *driver) finish(ctx context.Context) {
	if d.hasFailure() {
		_ = d.store.UpdateWorkflowStatus(ctx, d.workflowID, store.WorkflowFailed, "", "one or more nodes failed")
		d.emit(ctx, store.EventWorkflowFailed, nil)
	} else {
		d.emit(ctx, store.EventWorkflowCompleted, nil)
		_ = d.store.UpdateWorkflowStatus(ctx, d.workflowID, store.WorkflowCompleted, "", "")
	}
}

func (d *driver) failWorkflow(ctx context.Context, reason string) {
	_ = d.store.UpdateWorkflowStatus(ctx, d.workflowID, store.WorkflowFailed, "", reason)
	d.emit(ctx, store.EventWorkflowFailed, map[string]any{"reason": reason})
}

func (d *driver) isTerminalExternally(ctx context.Context) bool {
	wf, err := d.store.GetWorkflow(ctx, d.workflowID)
	if err != nil {
		return false
	}
	return wf.Status == store.WorkflowFailed || wf.Status == store.WorkflowCompleted
}

func (d *driver) markNodeRunning(ctx context.Context, n *graph.Node) {
	_ = d.store.UpdateNode(ctx, store.WorkflowNode{
		WorkflowID: d.workflowID,
		NodeID:     n.ID,
		NodeType:   string(n.Kind),
		AgentID:    n.AgentID,
		Status:     string(graph.StatusRunning),
		Config:     encodeResult(n.Config),
	})
}

func (d *driver) persistNodeOutcome(ctx context.Context, n *graph.Node) {
	_ = d.store.UpdateNode(ctx, store.WorkflowNode{
		WorkflowID: d.workflowID,
		NodeID:     n.ID,
		NodeType:   string(n.Kind),
		AgentID:    n.AgentID,
		Status:     string(n.Status),
		Result:     encodeResult(n.Result),
		Error:      n.Error,
		Config:     encodeResult(n.Config),
	})
}
