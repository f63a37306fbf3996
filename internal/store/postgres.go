package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	// lib/pq registers the "postgres" sql.DB driver used by sqlx.Connect.
	_ "github.com/lib/pq"
)

// PostgresStore is the server-variant Store backed by PostgreSQL via
// sqlx+lib/pq, grounded on original_source/db/database.py's `postgresql`
// branch and on web3-wallet-backend/internal/accounts.PostgreSQLRepository
// in the DimaJoyti-go-coffee example repo (NamedExecContext for writes,
// GetContext/SelectContext for reads, fmt.Errorf(%w) wrapping throughout).
type PostgresStore struct {
	db *sqlx.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore opens dsn and ensures the schema from
// original_source/db/database.py::initialize_schema exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &PostgresStore{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS users (
	user_id TEXT PRIMARY KEY,
	username TEXT UNIQUE NOT NULL,
	full_name TEXT,
	email TEXT,
	role TEXT,
	created_at TIMESTAMPTZ DEFAULT now(),
	last_login TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	workflow_id TEXT,
	status TEXT DEFAULT 'active',
	created_at TIMESTAMPTZ DEFAULT now(),
	updated_at TIMESTAMPTZ DEFAULT now(),
	completed_at TIMESTAMPTZ,
	metadata TEXT
);

CREATE TABLE IF NOT EXISTS workflows (
	workflow_id TEXT PRIMARY KEY,
	dag_id TEXT NOT NULL,
	session_id TEXT,
	name TEXT,
	description TEXT,
	status TEXT DEFAULT 'pending',
	created_at TIMESTAMPTZ DEFAULT now(),
	started_at TIMESTAMPTZ,
	completed_at TIMESTAMPTZ,
	created_by TEXT,
	graph_json TEXT,
	result TEXT,
	error TEXT
);

CREATE TABLE IF NOT EXISTS workflow_nodes (
	id BIGSERIAL PRIMARY KEY,
	workflow_id TEXT NOT NULL,
	node_id TEXT NOT NULL,
	node_type TEXT,
	agent_id TEXT,
	status TEXT DEFAULT 'pending',
	started_at TIMESTAMPTZ,
	completed_at TIMESTAMPTZ,
	result TEXT,
	error TEXT,
	config TEXT,
	UNIQUE(workflow_id, node_id)
);

CREATE TABLE IF NOT EXISTS workflow_events (
	id BIGSERIAL PRIMARY KEY,
	workflow_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	event_data TEXT,
	created_at TIMESTAMPTZ DEFAULT now()
);

CREATE TABLE IF NOT EXISTS agent_executions (
	id BIGSERIAL PRIMARY KEY,
	execution_id TEXT UNIQUE NOT NULL,
	agent_id TEXT NOT NULL,
	workflow_id TEXT,
	node_id TEXT,
	input TEXT,
	output TEXT,
	status TEXT DEFAULT 'pending',
	started_at TIMESTAMPTZ,
	completed_at TIMESTAMPTZ,
	error TEXT
);

CREATE TABLE IF NOT EXISTS hitl_requests (
	id BIGSERIAL PRIMARY KEY,
	request_id TEXT UNIQUE NOT NULL,
	workflow_id TEXT NOT NULL,
	node_id TEXT NOT NULL,
	message TEXT,
	status TEXT DEFAULT 'pending',
	created_at TIMESTAMPTZ DEFAULT now(),
	responded_at TIMESTAMPTZ,
	responded_by TEXT,
	response TEXT
);

CREATE TABLE IF NOT EXISTS plans (
	plan_id TEXT PRIMARY KEY,
	session_id TEXT,
	content TEXT,
	created_at TIMESTAMPTZ DEFAULT now()
);

CREATE TABLE IF NOT EXISTS planner_conversations (
	id BIGSERIAL PRIMARY KEY,
	session_id TEXT,
	role TEXT,
	content TEXT,
	created_at TIMESTAMPTZ DEFAULT now()
);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) CreateWorkflow(ctx context.Context, wf Workflow, nodes []WorkflowNode) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO workflows (workflow_id, dag_id, session_id, name, description, status, created_at, started_at, created_by, graph_json)
		VALUES (:workflow_id, :dag_id, :session_id, :name, :description, :status, :created_at, :started_at, :created_by, :graph_json)
	`, wf); err != nil {
		return fmt.Errorf("insert workflow: %w", err)
	}
	for _, n := range nodes {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO workflow_nodes (workflow_id, node_id, node_type, agent_id, status, config)
			VALUES (:workflow_id, :node_id, :node_type, :agent_id, :status, :config)
		`, n); err != nil {
			return fmt.Errorf("insert node %s: %w", n.NodeID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetWorkflow(ctx context.Context, workflowID string) (Workflow, error) {
	var wf Workflow
	err := s.db.GetContext(ctx, &wf, `SELECT * FROM workflows WHERE workflow_id = $1`, workflowID)
	if errors.Is(err, sql.ErrNoRows) {
		return Workflow{}, ErrNotFound
	}
	if err != nil {
		return Workflow{}, fmt.Errorf("get workflow: %w", err)
	}
	return wf, nil
}

func (s *PostgresStore) UpdateWorkflowStatus(ctx context.Context, workflowID string, status WorkflowStatus, result, errMsg string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE workflows SET status = $1, result = $2, error = $3, completed_at = now()
		WHERE workflow_id = $4 AND status NOT IN ('completed', 'failed')
	`, status, result, errMsg, workflowID)
	if err != nil {
		return fmt.Errorf("update workflow status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		if _, err := s.GetWorkflow(ctx, workflowID); err != nil {
			return err
		}
		return ErrWorkflowTerminal
	}
	return nil
}

func (s *PostgresStore) ListNodes(ctx context.Context, workflowID string) ([]WorkflowNode, error) {
	var nodes []WorkflowNode
	if err := s.db.SelectContext(ctx, &nodes, `SELECT * FROM workflow_nodes WHERE workflow_id = $1 ORDER BY node_id`, workflowID); err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	return nodes, nil
}

func (s *PostgresStore) GetNode(ctx context.Context, workflowID, nodeID string) (WorkflowNode, error) {
	var n WorkflowNode
	err := s.db.GetContext(ctx, &n, `SELECT * FROM workflow_nodes WHERE workflow_id = $1 AND node_id = $2`, workflowID, nodeID)
	if errors.Is(err, sql.ErrNoRows) {
		return WorkflowNode{}, ErrNotFound
	}
	if err != nil {
		return WorkflowNode{}, fmt.Errorf("get node: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) UpdateNode(ctx context.Context, node WorkflowNode) error {
	res, err := s.db.NamedExecContext(ctx, `
		UPDATE workflow_nodes SET status = :status, started_at = :started_at, completed_at = :completed_at,
			result = :result, error = :error
		WHERE workflow_id = :workflow_id AND node_id = :node_id
		AND NOT EXISTS (
			SELECT 1 FROM workflows w WHERE w.workflow_id = :workflow_id AND w.status IN ('completed', 'failed')
		)
	`, node)
	if err != nil {
		return fmt.Errorf("update node: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		wf, err := s.GetWorkflow(ctx, node.WorkflowID)
		if err != nil {
			return err
		}
		if wf.Status == WorkflowCompleted || wf.Status == WorkflowFailed {
			return ErrWorkflowTerminal
		}
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AppendEvent(ctx context.Context, event WorkflowEvent) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO workflow_events (workflow_id, event_type, event_data) VALUES (:workflow_id, :event_type, :event_data)
	`, event)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListEvents(ctx context.Context, workflowID string) ([]WorkflowEvent, error) {
	var events []WorkflowEvent
	if err := s.db.SelectContext(ctx, &events, `SELECT * FROM workflow_events WHERE workflow_id = $1 ORDER BY id`, workflowID); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (s *PostgresStore) CreateHITLRequest(ctx context.Context, req HITLRequest) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO hitl_requests (request_id, workflow_id, node_id, message, status)
		VALUES (:request_id, :workflow_id, :node_id, :message, :status)
	`, req)
	if err != nil {
		return fmt.Errorf("create hitl request: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetHITLRequest(ctx context.Context, requestID string) (HITLRequest, error) {
	var req HITLRequest
	err := s.db.GetContext(ctx, &req, `SELECT * FROM hitl_requests WHERE request_id = $1`, requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return HITLRequest{}, ErrNotFound
	}
	if err != nil {
		return HITLRequest{}, fmt.Errorf("get hitl request: %w", err)
	}
	return req, nil
}

func (s *PostgresStore) UpdateHITLRequest(ctx context.Context, req HITLRequest) error {
	_, err := s.db.NamedExecContext(ctx, `
		UPDATE hitl_requests SET status = :status, responded_at = :responded_at, responded_by = :responded_by, response = :response
		WHERE request_id = :request_id
	`, req)
	if err != nil {
		return fmt.Errorf("update hitl request: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListPendingHITL(ctx context.Context, workflowID string) ([]HITLRequest, error) {
	var reqs []HITLRequest
	var err error
	if workflowID == "" {
		err = s.db.SelectContext(ctx, &reqs, `SELECT * FROM hitl_requests WHERE status = 'pending' ORDER BY created_at`)
	} else {
		err = s.db.SelectContext(ctx, &reqs, `SELECT * FROM hitl_requests WHERE status = 'pending' AND workflow_id = $1 ORDER BY created_at`, workflowID)
	}
	if err != nil {
		return nil, fmt.Errorf("list pending hitl: %w", err)
	}
	return reqs, nil
}

func (s *PostgresStore) ListHITLRequestsByWorkflow(ctx context.Context, workflowID string) ([]HITLRequest, error) {
	var reqs []HITLRequest
	if err := s.db.SelectContext(ctx, &reqs, `SELECT * FROM hitl_requests WHERE workflow_id = $1 ORDER BY created_at`, workflowID); err != nil {
		return nil, fmt.Errorf("list hitl requests by workflow: %w", err)
	}
	return reqs, nil
}

func (s *PostgresStore) CreateAgentExecution(ctx context.Context, exec AgentExecution) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO agent_executions (execution_id, agent_id, workflow_id, node_id, input, output, status, started_at, completed_at, error)
		VALUES (:execution_id, :agent_id, :workflow_id, :node_id, :input, :output, :status, :started_at, :completed_at, :error)
	`, exec)
	if err != nil {
		return fmt.Errorf("create agent execution: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateAgentExecution(ctx context.Context, exec AgentExecution) error {
	res, err := s.db.NamedExecContext(ctx, `
		UPDATE agent_executions SET output = :output, status = :status, completed_at = :completed_at, error = :error
		WHERE execution_id = :execution_id
	`, exec)
	if err != nil {
		return fmt.Errorf("update agent execution: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListRunningWorkflows(ctx context.Context) ([]Workflow, error) {
	var wfs []Workflow
	if err := s.db.SelectContext(ctx, &wfs, `SELECT * FROM workflows WHERE status = 'running' ORDER BY workflow_id`); err != nil {
		return nil, fmt.Errorf("list running workflows: %w", err)
	}
	return wfs, nil
}

func (s *PostgresStore) ListWorkflows(ctx context.Context) ([]Workflow, error) {
	var wfs []Workflow
	if err := s.db.SelectContext(ctx, &wfs, `SELECT * FROM workflows ORDER BY workflow_id`); err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	return wfs, nil
}
