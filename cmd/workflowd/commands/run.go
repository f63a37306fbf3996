package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/algowizzzz/agentsmcp/internal/store"
)

var (
	runDAGID     string
	runSessionID string
	runUserID    string
	runParams    map[string]string
	runAutoApprove bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Materialize a DAG and run it to completion",
	Long: `run starts a workflow from a registered DAG id and blocks until it
reaches a terminal state, printing its final status and node results as
JSON. Pending human-in-the-loop gates are surfaced on stdout and resolved
either interactively (stdin y/n) or automatically when --auto-approve is
set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		g, err := dagReg.Materialize(runDAGID)
		if err != nil {
			return fmt.Errorf("materialize dag %q: %w", runDAGID, err)
		}
		g.Parameters = resolveParameters(runDAGID, runParams)

		workflowID, err := orch.StartWorkflow(ctx, runDAGID, runSessionID, runUserID, g)
		if err != nil {
			return fmt.Errorf("start workflow: %w", err)
		}
		fmt.Printf("started workflow %s\n", workflowID)

		return pollUntilTerminal(ctx, workflowID)
	},
}

func init() {
	runCmd.Flags().StringVar(&runDAGID, "dag", "", "DAG id to run (required)")
	runCmd.Flags().StringVar(&runSessionID, "session-id", "cli-session", "session id recorded on the workflow")
	runCmd.Flags().StringVar(&runUserID, "user-id", "cli-user", "user id recorded on the workflow")
	runCmd.Flags().StringToStringVar(&runParams, "param", nil, "workflow parameter, repeatable: --param key=value")
	runCmd.Flags().BoolVar(&runAutoApprove, "auto-approve", false, "automatically approve every HITL gate instead of prompting")
	_ = runCmd.MarkFlagRequired("dag")
}

// resolveParameters merges a DAG's declared parameter defaults with CLI
// overrides, matching the Dynamic DAG Generator's parameters block
// (SPEC_FULL.md §10.4): a bare {param_name} placeholder resolves against
// this map at substitution time.
func resolveParameters(dagID string, overrides map[string]string) map[string]any {
	params := map[string]any{}
	if f, ok := dagReg.GetFile(dagID); ok {
		for name, spec := range f.Parameters {
			if spec.Default != nil {
				params[name] = spec.Default
			}
		}
	}
	for k, v := range overrides {
		params[k] = v
	}
	return params
}

func pollUntilTerminal(ctx context.Context, workflowID string) error {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	reader := bufio.NewReader(os.Stdin)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		wf, nodes, err := orch.GetWorkflowStatus(ctx, workflowID)
		if err != nil {
			return fmt.Errorf("get workflow status: %w", err)
		}

		if wf.Status == store.WorkflowCompleted || wf.Status == store.WorkflowFailed {
			return printFinal(wf, nodes)
		}

		pending, err := orch.GetPendingHITLRequests(ctx, workflowID)
		if err != nil {
			return fmt.Errorf("get pending hitl requests: %w", err)
		}
		for _, req := range pending {
			if err := resolveHITL(ctx, reader, workflowID, req); err != nil {
				return err
			}
		}
	}
}

func resolveHITL(ctx context.Context, reader *bufio.Reader, workflowID string, req store.HITLRequest) error {
	approve := runAutoApprove
	if !runAutoApprove {
		fmt.Printf("HITL request %s on node %s: %s\napprove? [y/N] ", req.RequestID, req.NodeID, req.Message)
		line, _ := reader.ReadString('\n')
		approve = strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "y")
	}

	if approve {
		_, err := orch.ApproveHITL(ctx, workflowID, req.RequestID, runUserID, "approved via cli")
		return err
	}
	_, err := orch.RejectHITL(ctx, workflowID, req.RequestID, runUserID, "rejected via cli")
	return err
}

func printFinal(wf store.Workflow, nodes []store.WorkflowNode) error {
	out := map[string]any{
		"workflow_id": wf.WorkflowID,
		"status":      wf.Status,
		"error":       wf.Error,
		"nodes":       nodes,
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
