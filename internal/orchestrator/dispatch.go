package orchestrator

import (
	"context"
	"fmt"

	"github.com/algowizzzz/agentsmcp/internal/agentregistry"
	"github.com/algowizzzz/agentsmcp/internal/graph"
	"github.com/algowizzzz/agentsmcp/internal/toolregistry"
)

// nodeOutcome is the driver-local result of dispatching a single node: the
// node's terminal status plus its result or error, ready to be written back
// to both the in-memory Graph and the store.
type nodeOutcome struct {
	NodeID string
	Status graph.NodeStatus
	Result any
	Error  string
}

// dispatchNode substitutes the node's config.input and routes execution by
// kind (spec.md §4.6 "Dispatch by kind"). human_in_loop nodes are never
// passed here — the driver routes them through the HITL park path instead.
func (d *driver) dispatchNode(ctx context.Context, n *graph.Node, completed map[string]*graph.Node, params map[string]any) nodeOutcome {
	rawInput, _ := n.Config["input"].(map[string]any)
	substituted, err := substituteInput(n.ID, any(rawInput), completed, params)
	if err != nil {
		return failureOutcome(n.ID, err)
	}
	substitutedInput, _ := substituted.(map[string]any)
	if substitutedInput == nil {
		substitutedInput = map[string]any{}
	}

	switch n.Kind {
	case graph.KindTool:
		return d.dispatchTool(ctx, n, substitutedInput)
	case graph.KindAgent:
		return d.dispatchAgent(ctx, n, substitutedInput)
	case graph.KindDecision:
		return d.dispatchDecision(n)
	default:
		return failureOutcome(n.ID, fmt.Errorf("dispatch: unsupported node kind %q", n.Kind))
	}
}

func (d *driver) dispatchTool(ctx context.Context, n *graph.Node, input map[string]any) nodeOutcome {
	toolName, _ := n.Config["tool_name"].(string)
	if toolName == "" {
		return failureOutcome(n.ID, &BindingError{NodeID: n.ID, Reason: "No tool_name specified"})
	}

	args := make(map[string]any, len(input)+3)
	for k, v := range input {
		args[k] = v
	}
	args["workflow_id"] = d.workflowID
	args["node_id"] = n.ID
	args["debug_dir"] = d.debugDir

	result := d.tools.Execute(ctx, toolName, args)
	if !result.Success {
		return nodeOutcome{NodeID: n.ID, Status: graph.StatusFailed, Error: result.Error}
	}
	return nodeOutcome{NodeID: n.ID, Status: graph.StatusCompleted, Result: toolresultValue(result)}
}

func toolresultValue(r toolregistry.Result) any {
	if r.Result != nil {
		return r.Result
	}
	return map[string]any{}
}

func (d *driver) dispatchAgent(ctx context.Context, n *graph.Node, input map[string]any) nodeOutcome {
	agentID, _ := n.Config["agent_id"].(string)
	if agentID == "" {
		agentID = n.AgentID
	}
	if agentID == "" {
		return failureOutcome(n.ID, &BindingError{NodeID: n.ID, Reason: "No agent_id specified"})
	}

	if _, ok := d.agents.Get(agentID); !ok {
		return failureOutcome(n.ID, &BindingError{NodeID: n.ID, Reason: "unknown agent id: " + agentID})
	}

	result := d.agents.ExecuteAgent(ctx, agentID, input)
	if !result.Success {
		return nodeOutcome{NodeID: n.ID, Status: graph.StatusFailed, Error: result.Error}
	}
	return nodeOutcome{NodeID: n.ID, Status: graph.StatusCompleted, Result: agentResultValue(result)}
}

func agentResultValue(r agentregistry.Result) any {
	return map[string]any{
		"response": r.Response,
		"llm_used": map[string]any{
			"provider": r.LLMUsed.Provider,
			"model":    r.LLMUsed.Model,
		},
	}
}

// dispatchDecision is the MVP passthrough spec.md §4.6 permits: no branch
// expression is evaluated, the node simply completes so its dependents
// become eligible. Branch-skip evaluation is an Open Question left
// unresolved by the distilled spec.
func (d *driver) dispatchDecision(n *graph.Node) nodeOutcome {
	return nodeOutcome{NodeID: n.ID, Status: graph.StatusCompleted, Result: map[string]any{"decision": "passthrough"}}
}

func failureOutcome(nodeID string, err error) nodeOutcome {
	return nodeOutcome{NodeID: nodeID, Status: graph.StatusFailed, Error: err.Error()}
}
