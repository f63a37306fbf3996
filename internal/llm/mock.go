package llm

import (
	"context"
	"fmt"
	"strings"
)

// mockProvider is the built-in deterministic provider: canned responses
// keyed off prompt substrings, used in tests and whenever credentials are
// missing or a real adapter fails after retries. Grounded verbatim on
// original_source/llm/llm_facade.py::_mock_generate.
type mockProvider struct{}

func (mockProvider) Name() string { return ProviderMock }

func (mockProvider) Generate(_ context.Context, _ string, req Request) (string, error) {
	p := strings.ToLower(req.Prompt)

	switch {
	case strings.Contains(p, "create a plan") || strings.Contains(p, "plan for"):
		return "Based on your request, here's a suggested workflow plan:\n\n" +
			"1. Initialize the workflow\n" +
			"2. Fetch required data\n" +
			"3. Process the data\n" +
			"4. Validate results\n" +
			"5. Generate output\n" +
			"6. Send notifications\n\n" +
			"This plan can be executed as a sequential workflow with appropriate tools and agents.", nil

	case strings.Contains(p, "json") && strings.Contains(p, "schema"):
		return `{
  "dag_id": "generated_plan_001",
  "name": "Sample Workflow Plan",
  "description": "Auto-generated workflow plan",
  "nodes": [
    {
      "node_id": "step_1",
      "node_type": "agent",
      "agent_id": "echo_agent",
      "config": {"input": {}},
      "dependencies": []
    }
  ],
  "start_nodes": ["step_1"]
}`, nil

	case strings.Contains(p, "tools available"):
		return "Available tools include: echo, get_stock_price, get_stock_info, and other MCP tools.", nil

	case strings.Contains(p, "agents available"):
		return "Available agents include: echo_agent and other configured agents.", nil

	default:
		trimmed := req.Prompt
		if len(trimmed) > 100 {
			trimmed = trimmed[:100]
		}
		return fmt.Sprintf("I understand you're asking about: %s... I can help you create workflow plans, execute tasks, and coordinate agents. What would you like to do?", trimmed), nil
	}
}
