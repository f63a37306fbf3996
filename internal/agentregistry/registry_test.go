package agentregistry_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algowizzzz/agentsmcp/internal/agentregistry"
	"github.com/algowizzzz/agentsmcp/internal/llm"
)

func writeAgent(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func newMockFacade(t *testing.T) *llm.Facade {
	t.Helper()
	f := llm.New(filepath.Join(t.TempDir(), "missing.json"))
	t.Cleanup(f.Stop)
	return f
}

func TestExecuteAgentNotFound(t *testing.T) {
	reg := agentregistry.New(t.TempDir(), newMockFacade(t))
	res := reg.ExecuteAgent(context.Background(), "nope", nil)
	assert.False(t, res.Success)
	assert.Equal(t, "Agent not found: nope", res.Error)
}

func TestExecuteAgentDisabled(t *testing.T) {
	dir := t.TempDir()
	writeAgent(t, dir, "a.json", `{"agent_id":"a","name":"A","enabled":false}`)
	reg := agentregistry.New(dir, newMockFacade(t))

	res := reg.ExecuteAgent(context.Background(), "a", nil)
	assert.False(t, res.Success)
	assert.Equal(t, "Agent disabled: a", res.Error)
}

func TestExecuteAgentSuccessUsesMockFacade(t *testing.T) {
	dir := t.TempDir()
	writeAgent(t, dir, "echo_agent.json", `{"agent_id":"echo_agent","name":"Echo","description":"echoes","enabled":true}`)
	reg := agentregistry.New(dir, newMockFacade(t))

	res := reg.ExecuteAgent(context.Background(), "echo_agent", map[string]any{"q": "hello"})
	require.True(t, res.Success)
	assert.NotEmpty(t, res.Response)
	assert.Equal(t, "mock", res.LLMUsed.Provider)
}

func TestExecuteAgentUsesDescriptorPromptTemplate(t *testing.T) {
	dir := t.TempDir()
	writeAgent(t, dir, "planner.json", `{"agent_id":"planner","name":"Planner","enabled":true,"prompt_template":"Please create a plan for this request"}`)
	reg := agentregistry.New(dir, newMockFacade(t))

	res := reg.ExecuteAgent(context.Background(), "planner", map[string]any{"goal": "ship feature"})
	require.True(t, res.Success)
	assert.Contains(t, res.Response, "workflow plan")
}

func TestReloadPicksUpNewDescriptor(t *testing.T) {
	dir := t.TempDir()
	reg := agentregistry.New(dir, newMockFacade(t))
	_, ok := reg.Get("late")
	assert.False(t, ok)

	writeAgent(t, dir, "late.json", `{"agent_id":"late","name":"Late","enabled":true}`)
	reg.Reload()

	d, ok := reg.Get("late")
	require.True(t, ok)
	assert.Equal(t, "Late", d.Name)
}

func TestListSortedByAgentID(t *testing.T) {
	dir := t.TempDir()
	writeAgent(t, dir, "b.json", `{"agent_id":"b_agent","name":"B","enabled":true}`)
	writeAgent(t, dir, "a.json", `{"agent_id":"a_agent","name":"A","enabled":true}`)
	reg := agentregistry.New(dir, newMockFacade(t))

	list := reg.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a_agent", list[0].AgentID)
	assert.Equal(t, "b_agent", list[1].AgentID)
}
