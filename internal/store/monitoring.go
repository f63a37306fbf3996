package store

import (
	"context"
	"time"
)

// WorkflowStats mirrors original_source/db/database_handler_workflow.py's
// get_workflow_statistics: counts broken down by status.
type WorkflowStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// DAGAggregate is one row of MonitoringQueries.AggregateByDAG.
type DAGAggregate struct {
	DAGID     string `json:"dag_id"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
}

// MonitoringQueries is a read-only facade over Store composing the
// aggregate statistics spec.md §4.8 requires ("typed query surfaces for
// monitoring... safe to run against a live writer"). Grounded on
// original_source/db/database_handler_monitoring.py, itself a thin
// composition shell delegating to workflow/user/agent/tool/dag/planner/hitl
// handlers rather than owning SQL of its own — this facade performs the
// equivalent composition over Store.ListWorkflows/ListPendingHITL.
type MonitoringQueries struct {
	store Store
}

// NewMonitoringQueries wraps store.
func NewMonitoringQueries(s Store) *MonitoringQueries {
	return &MonitoringQueries{store: s}
}

// WorkflowStatistics returns counts-by-status across every known workflow,
// grounded on
// original_source/db/database_handler_workflow.py::get_workflow_statistics.
func (m *MonitoringQueries) WorkflowStatistics(ctx context.Context) (WorkflowStats, error) {
	workflows, err := m.store.ListWorkflows(ctx)
	if err != nil {
		return WorkflowStats{}, err
	}
	var stats WorkflowStats
	for _, wf := range workflows {
		stats.Total++
		switch wf.Status {
		case WorkflowPending:
			stats.Pending++
		case WorkflowRunning:
			stats.Running++
		case WorkflowCompleted:
			stats.Completed++
		case WorkflowFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

// CountWorkflowsInTimeRange counts workflows created within [start, end),
// grounded on
// original_source/db/database_handler_workflow.py::count_workflows_in_time_range.
func (m *MonitoringQueries) CountWorkflowsInTimeRange(ctx context.Context, start, end time.Time) (int, error) {
	workflows, err := m.store.ListWorkflows(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, wf := range workflows {
		if !wf.CreatedAt.Before(start) && wf.CreatedAt.Before(end) {
			n++
		}
	}
	return n, nil
}

// AggregateByDAG groups every workflow by dag_id, counting totals/completed/
// failed per DAG.
func (m *MonitoringQueries) AggregateByDAG(ctx context.Context) ([]DAGAggregate, error) {
	workflows, err := m.store.ListWorkflows(ctx)
	if err != nil {
		return nil, err
	}
	byDAG := map[string]*DAGAggregate{}
	var order []string
	for _, wf := range workflows {
		agg, ok := byDAG[wf.DAGID]
		if !ok {
			agg = &DAGAggregate{DAGID: wf.DAGID}
			byDAG[wf.DAGID] = agg
			order = append(order, wf.DAGID)
		}
		agg.Total++
		switch wf.Status {
		case WorkflowCompleted:
			agg.Completed++
		case WorkflowFailed:
			agg.Failed++
		}
	}
	out := make([]DAGAggregate, 0, len(order))
	for _, id := range order {
		out = append(out, *byDAG[id])
	}
	return out, nil
}

// DistinctUserCount counts distinct non-empty CreatedBy values across every
// workflow, grounded on the original's distinct-user-count monitoring
// query.
func (m *MonitoringQueries) DistinctUserCount(ctx context.Context) (int, error) {
	workflows, err := m.store.ListWorkflows(ctx)
	if err != nil {
		return 0, err
	}
	seen := map[string]struct{}{}
	for _, wf := range workflows {
		if wf.CreatedBy == "" {
			continue
		}
		seen[wf.CreatedBy] = struct{}{}
	}
	return len(seen), nil
}

// CountPendingHITL returns the number of pending HITL requests across every
// workflow, grounded on
// original_source/db/database_handler_hitl.py::count_pending_hitl_requests.
func (m *MonitoringQueries) CountPendingHITL(ctx context.Context) (int, error) {
	reqs, err := m.store.ListPendingHITL(ctx, "")
	if err != nil {
		return 0, err
	}
	return len(reqs), nil
}

// GetHITLRequests returns every HITL request (any status) for workflowID,
// grounded on
// original_source/db/database_handler_hitl.py::get_hitl_requests.
func (m *MonitoringQueries) GetHITLRequests(ctx context.Context, workflowID string) ([]HITLRequest, error) {
	return m.store.ListHITLRequestsByWorkflow(ctx, workflowID)
}
