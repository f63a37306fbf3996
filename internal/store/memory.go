package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// MemoryStore is the embedded default store: an in-process map guarded by a
// sync.RWMutex, snapshotted after every mutation to a single JSON file on disk via
// write-temp + rename (the same atomicity technique the DAG/tool registries
// use). Grounded on original_source/db/database.py's SQLite-by-default
// behavior; no bundled SQLite driver exists in the dependency set available
// to this module (see DESIGN.md), so this embedded variant is a deliberate,
// justified stdlib component rather than a third-party-backed one.
type MemoryStore struct {
	path string

	mu        sync.RWMutex
	workflows map[string]Workflow
	nodes     map[string]map[string]WorkflowNode // workflowID -> nodeID -> node
	events    map[string][]WorkflowEvent
	hitl      map[string]HITLRequest
	agentExec map[string]AgentExecution

	nextEventID int64
	nextNodeID  int64
}

var _ Store = (*MemoryStore)(nil)

type snapshot struct {
	Workflows map[string]Workflow                  `json:"workflows"`
	Nodes     map[string]map[string]WorkflowNode   `json:"nodes"`
	Events    map[string][]WorkflowEvent           `json:"events"`
	HITL      map[string]HITLRequest               `json:"hitl"`
	AgentExec map[string]AgentExecution            `json:"agent_executions"`
}

// NewMemoryStore constructs a MemoryStore snapshotted to path. If path
// already exists, its contents are loaded; any read/parse error starts from
// an empty store rather than failing (matching the registries' tolerant
// load behavior).
func NewMemoryStore(path string) *MemoryStore {
	s := &MemoryStore{
		path:      path,
		workflows: map[string]Workflow{},
		nodes:     map[string]map[string]WorkflowNode{},
		events:    map[string][]WorkflowEvent{},
		hitl:      map[string]HITLRequest{},
		agentExec: map[string]AgentExecution{},
	}
	s.load()
	return s
}

func (s *MemoryStore) load() {
	if s.path == "" {
		return
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return
	}
	if snap.Workflows != nil {
		s.workflows = snap.Workflows
	}
	if snap.Nodes != nil {
		s.nodes = snap.Nodes
	}
	if snap.Events != nil {
		s.events = snap.Events
		for _, evs := range snap.Events {
			for _, e := range evs {
				if e.ID >= s.nextEventID {
					s.nextEventID = e.ID + 1
				}
			}
		}
	}
	if snap.HITL != nil {
		s.hitl = snap.HITL
	}
	if snap.AgentExec != nil {
		s.agentExec = snap.AgentExec
	}
}

// persist must be called while holding s.mu (read or write lock is
// sufficient since the snapshot is a deep value copy via json.Marshal).
func (s *MemoryStore) persist() error {
	if s.path == "" {
		return nil
	}
	snap := snapshot{Workflows: s.workflows, Nodes: s.nodes, Events: s.events, HITL: s.hitl, AgentExec: s.agentExec}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".store-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, s.path)
}

func (s *MemoryStore) CreateWorkflow(_ context.Context, wf Workflow, nodes []WorkflowNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workflows[wf.WorkflowID] = wf
	nodeMap := make(map[string]WorkflowNode, len(nodes))
	for _, n := range nodes {
		n.ID = s.nextNodeID
		s.nextNodeID++
		nodeMap[n.NodeID] = n
	}
	s.nodes[wf.WorkflowID] = nodeMap
	return s.persist()
}

func (s *MemoryStore) GetWorkflow(_ context.Context, workflowID string) (Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wf, ok := s.workflows[workflowID]
	if !ok {
		return Workflow{}, ErrNotFound
	}
	return wf, nil
}

func (s *MemoryStore) UpdateWorkflowStatus(_ context.Context, workflowID string, status WorkflowStatus, result, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	wf, ok := s.workflows[workflowID]
	if !ok {
		return ErrNotFound
	}
	if wf.Status == WorkflowCompleted || wf.Status == WorkflowFailed {
		return ErrWorkflowTerminal
	}
	wf.Status = status
	wf.Result = result
	wf.Error = errMsg
	s.workflows[workflowID] = wf
	return s.persist()
}

func (s *MemoryStore) ListNodes(_ context.Context, workflowID string) ([]WorkflowNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	nodeMap, ok := s.nodes[workflowID]
	if !ok {
		return nil, nil
	}
	out := make([]WorkflowNode, 0, len(nodeMap))
	for _, n := range nodeMap {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out, nil
}

func (s *MemoryStore) GetNode(_ context.Context, workflowID, nodeID string) (WorkflowNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	nodeMap, ok := s.nodes[workflowID]
	if !ok {
		return WorkflowNode{}, ErrNotFound
	}
	n, ok := nodeMap[nodeID]
	if !ok {
		return WorkflowNode{}, ErrNotFound
	}
	return n, nil
}

func (s *MemoryStore) UpdateNode(_ context.Context, node WorkflowNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if wf, ok := s.workflows[node.WorkflowID]; ok && (wf.Status == WorkflowCompleted || wf.Status == WorkflowFailed) {
		return ErrWorkflowTerminal
	}
	nodeMap, ok := s.nodes[node.WorkflowID]
	if !ok {
		nodeMap = map[string]WorkflowNode{}
		s.nodes[node.WorkflowID] = nodeMap
	}
	if existing, ok := nodeMap[node.NodeID]; ok && node.ID == 0 {
		node.ID = existing.ID
	}
	nodeMap[node.NodeID] = node
	return s.persist()
}

func (s *MemoryStore) AppendEvent(_ context.Context, event WorkflowEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event.ID = s.nextEventID
	s.nextEventID++
	s.events[event.WorkflowID] = append(s.events[event.WorkflowID], event)
	return s.persist()
}

func (s *MemoryStore) ListEvents(_ context.Context, workflowID string) ([]WorkflowEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	evs := s.events[workflowID]
	out := make([]WorkflowEvent, len(evs))
	copy(out, evs)
	return out, nil
}

func (s *MemoryStore) CreateHITLRequest(_ context.Context, req HITLRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hitl[req.RequestID] = req
	return s.persist()
}

func (s *MemoryStore) GetHITLRequest(_ context.Context, requestID string) (HITLRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.hitl[requestID]
	if !ok {
		return HITLRequest{}, ErrNotFound
	}
	return req, nil
}

func (s *MemoryStore) UpdateHITLRequest(_ context.Context, req HITLRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hitl[req.RequestID]; !ok {
		return ErrNotFound
	}
	s.hitl[req.RequestID] = req
	return s.persist()
}

func (s *MemoryStore) ListPendingHITL(_ context.Context, workflowID string) ([]HITLRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []HITLRequest
	for _, req := range s.hitl {
		if req.Status != HITLPending {
			continue
		}
		if workflowID != "" && req.WorkflowID != workflowID {
			continue
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ListHITLRequestsByWorkflow(_ context.Context, workflowID string) ([]HITLRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []HITLRequest
	for _, req := range s.hitl {
		if req.WorkflowID == workflowID {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) CreateAgentExecution(_ context.Context, exec AgentExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agentExec[exec.ExecutionID] = exec
	return s.persist()
}

func (s *MemoryStore) UpdateAgentExecution(_ context.Context, exec AgentExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agentExec[exec.ExecutionID]; !ok {
		return ErrNotFound
	}
	s.agentExec[exec.ExecutionID] = exec
	return s.persist()
}

func (s *MemoryStore) ListRunningWorkflows(_ context.Context) ([]Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Workflow
	for _, wf := range s.workflows {
		if wf.Status == WorkflowRunning {
			out = append(out, wf)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WorkflowID < out[j].WorkflowID })
	return out, nil
}

func (s *MemoryStore) ListWorkflows(_ context.Context) ([]Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Workflow, 0, len(s.workflows))
	for _, wf := range s.workflows {
		out = append(out, wf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WorkflowID < out[j].WorkflowID })
	return out, nil
}
