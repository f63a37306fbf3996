package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algowizzzz/agentsmcp/internal/store"
)

func TestCreateAndGetWorkflow(t *testing.T) {
	s := store.NewMemoryStore(filepath.Join(t.TempDir(), "store.json"))
	ctx := context.Background()

	wf := store.Workflow{WorkflowID: "wf1", DAGID: "dag1", Status: store.WorkflowRunning, CreatedAt: time.Now()}
	nodes := []store.WorkflowNode{
		{WorkflowID: "wf1", NodeID: "A", NodeType: "tool", Status: "pending"},
		{WorkflowID: "wf1", NodeID: "B", NodeType: "tool", Status: "pending"},
	}
	require.NoError(t, s.CreateWorkflow(ctx, wf, nodes))

	got, err := s.GetWorkflow(ctx, "wf1")
	require.NoError(t, err)
	assert.Equal(t, store.WorkflowRunning, got.Status)

	list, err := s.ListNodes(ctx, "wf1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "A", list[0].NodeID)
}

func TestGetWorkflowNotFound(t *testing.T) {
	s := store.NewMemoryStore("")
	_, err := s.GetWorkflow(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateWorkflowStatusRejectsAfterTerminal(t *testing.T) {
	s := store.NewMemoryStore("")
	ctx := context.Background()
	require.NoError(t, s.CreateWorkflow(ctx, store.Workflow{WorkflowID: "wf1", Status: store.WorkflowRunning}, nil))

	require.NoError(t, s.UpdateWorkflowStatus(ctx, "wf1", store.WorkflowCompleted, "ok", ""))

	err := s.UpdateWorkflowStatus(ctx, "wf1", store.WorkflowFailed, "", "too late")
	assert.ErrorIs(t, err, store.ErrWorkflowTerminal)
}

func TestUpdateNodeRejectsAfterWorkflowTerminal(t *testing.T) {
	s := store.NewMemoryStore("")
	ctx := context.Background()
	nodes := []store.WorkflowNode{{WorkflowID: "wf1", NodeID: "A", NodeType: "tool", Status: "pending"}}
	require.NoError(t, s.CreateWorkflow(ctx, store.Workflow{WorkflowID: "wf1", Status: store.WorkflowRunning}, nodes))
	require.NoError(t, s.UpdateWorkflowStatus(ctx, "wf1", store.WorkflowCompleted, "ok", ""))

	err := s.UpdateNode(ctx, store.WorkflowNode{WorkflowID: "wf1", NodeID: "A", Status: "completed"})
	assert.ErrorIs(t, err, store.ErrWorkflowTerminal)
}

func TestAppendAndListEventsOrdered(t *testing.T) {
	s := store.NewMemoryStore("")
	ctx := context.Background()
	require.NoError(t, s.AppendEvent(ctx, store.WorkflowEvent{WorkflowID: "wf1", EventType: store.EventWorkflowStarted}))
	require.NoError(t, s.AppendEvent(ctx, store.WorkflowEvent{WorkflowID: "wf1", EventType: store.EventNodeStarted}))

	events, err := s.ListEvents(ctx, "wf1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, store.EventWorkflowStarted, events[0].EventType)
	assert.True(t, events[0].ID < events[1].ID)
}

func TestHITLRequestLifecycle(t *testing.T) {
	s := store.NewMemoryStore("")
	ctx := context.Background()
	require.NoError(t, s.CreateHITLRequest(ctx, store.HITLRequest{RequestID: "r1", WorkflowID: "wf1", NodeID: "H", Status: store.HITLPending, CreatedAt: time.Now()}))

	pending, err := s.ListPendingHITL(ctx, "wf1")
	require.NoError(t, err)
	require.Len(t, pending, 1)

	req, err := s.GetHITLRequest(ctx, "r1")
	require.NoError(t, err)
	req.Status = store.HITLApproved
	require.NoError(t, s.UpdateHITLRequest(ctx, req))

	pending, err = s.ListPendingHITL(ctx, "wf1")
	require.NoError(t, err)
	assert.Empty(t, pending)

	all, err := s.ListHITLRequestsByWorkflow(ctx, "wf1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, store.HITLApproved, all[0].Status)
}

func TestPersistAndReloadFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	ctx := context.Background()

	s1 := store.NewMemoryStore(path)
	require.NoError(t, s1.CreateWorkflow(ctx, store.Workflow{WorkflowID: "wf1", DAGID: "dag1", Status: store.WorkflowRunning}, nil))
	require.NoError(t, s1.AppendEvent(ctx, store.WorkflowEvent{WorkflowID: "wf1", EventType: store.EventWorkflowStarted}))

	s2 := store.NewMemoryStore(path)
	got, err := s2.GetWorkflow(ctx, "wf1")
	require.NoError(t, err)
	assert.Equal(t, "dag1", got.DAGID)

	events, err := s2.ListEvents(ctx, "wf1")
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestMonitoringWorkflowStatistics(t *testing.T) {
	s := store.NewMemoryStore("")
	ctx := context.Background()
	require.NoError(t, s.CreateWorkflow(ctx, store.Workflow{WorkflowID: "wf1", DAGID: "d1", Status: store.WorkflowCompleted, CreatedAt: time.Now(), CreatedBy: "alice"}, nil))
	require.NoError(t, s.CreateWorkflow(ctx, store.Workflow{WorkflowID: "wf2", DAGID: "d1", Status: store.WorkflowFailed, CreatedAt: time.Now(), CreatedBy: "bob"}, nil))
	require.NoError(t, s.CreateWorkflow(ctx, store.Workflow{WorkflowID: "wf3", DAGID: "d2", Status: store.WorkflowRunning, CreatedAt: time.Now(), CreatedBy: "alice"}, nil))

	mon := store.NewMonitoringQueries(s)
	stats, err := mon.WorkflowStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Running)

	agg, err := mon.AggregateByDAG(ctx)
	require.NoError(t, err)
	require.Len(t, agg, 2)

	users, err := mon.DistinctUserCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, users)
}

func TestListRunningWorkflows(t *testing.T) {
	s := store.NewMemoryStore("")
	ctx := context.Background()
	require.NoError(t, s.CreateWorkflow(ctx, store.Workflow{WorkflowID: "wf1", Status: store.WorkflowRunning}, nil))
	require.NoError(t, s.CreateWorkflow(ctx, store.Workflow{WorkflowID: "wf2", Status: store.WorkflowCompleted}, nil))

	running, err := s.ListRunningWorkflows(ctx)
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, "wf1", running[0].WorkflowID)
}
