package dagregistry_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algowizzzz/agentsmcp/internal/dagregistry"
	"github.com/algowizzzz/agentsmcp/internal/graph"
)

func writeJSON(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestMaterializeValidGraph(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "linear.json", `{
		"dag_id": "linear",
		"name": "Linear",
		"nodes": [
			{"node_id": "A", "node_type": "tool", "config": {"tool_name": "echo"}, "dependencies": []},
			{"node_id": "B", "node_type": "tool", "config": {"tool_name": "echo"}, "dependencies": ["A"]}
		]
	}`)

	reg, err := dagregistry.New(dir)
	require.NoError(t, err)
	require.Empty(t, reg.Errors())

	g, err := reg.Materialize("linear")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, g.TopologicalSort())
}

func TestLoadSkipsCyclicDAGAndSurfacesError(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "cyclic.json", `{
		"dag_id": "cyclic",
		"nodes": [
			{"node_id": "A", "node_type": "tool", "dependencies": ["B"]},
			{"node_id": "B", "node_type": "tool", "dependencies": ["A"]}
		]
	}`)

	reg, err := dagregistry.New(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, reg.Errors())

	_, ok := reg.GetFile("cyclic")
	assert.False(t, ok, "cyclic dag must not be materializable")

	_, err = reg.Materialize("cyclic")
	assert.Error(t, err)
}

func TestLoadSkipsDanglingDependency(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "bad.json", `{
		"dag_id": "bad",
		"nodes": [
			{"node_id": "A", "node_type": "tool", "dependencies": ["missing"]}
		]
	}`)

	reg, err := dagregistry.New(dir)
	require.NoError(t, err)
	require.NotEmpty(t, reg.Errors())
	_, ok := reg.GetFile("bad")
	assert.False(t, ok)
}

func TestAddUpdateDeletePersistAtomically(t *testing.T) {
	dir := t.TempDir()
	reg, err := dagregistry.New(dir)
	require.NoError(t, err)

	f := &dagregistry.File{
		DAGID: "new-dag",
		Nodes: []dagregistry.NodeFile{
			{NodeID: "A", NodeType: graph.KindTool, Config: map[string]any{"tool_name": "echo"}},
		},
	}
	require.NoError(t, reg.Add(f))

	reg2, err := dagregistry.New(dir)
	require.NoError(t, err)
	_, ok := reg2.GetFile("new-dag")
	assert.True(t, ok, "Add must persist to disk")

	f.Description = "updated"
	require.NoError(t, reg.Update(f))
	got, _ := reg.GetFile("new-dag")
	assert.Equal(t, "updated", got.Description)

	require.NoError(t, reg.Delete("new-dag"))
	_, ok = reg.GetFile("new-dag")
	assert.False(t, ok)
}

func TestReloadIdempotentConfigLeavesListUnchanged(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "linear.json", `{"dag_id": "linear", "nodes": [{"node_id": "A", "node_type": "tool"}]}`)

	reg, err := dagregistry.New(dir)
	require.NoError(t, err)
	before := reg.List()

	reg.Reload()
	after := reg.List()

	assert.Equal(t, before, after)
}
