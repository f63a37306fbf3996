package toolregistry_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algowizzzz/agentsmcp/internal/toolregistry"
)

func writeDescriptor(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestExecuteUnknownToolReturnsEnvelopeNotError(t *testing.T) {
	dir := t.TempDir()
	reg := toolregistry.New(dir, t.TempDir(), toolregistry.DefaultFactories())

	res := reg.Execute(context.Background(), "nope", nil)
	assert.False(t, res.Success)
	assert.Equal(t, "Tool not found: nope", res.Error)
}

func TestExecuteEchoTool(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir, "echo.json", `{"name":"echo","description":"echo","module":"echo","enabled":true}`)

	reg := toolregistry.New(dir, t.TempDir(), toolregistry.DefaultFactories())
	res := reg.Execute(context.Background(), "echo", map[string]any{"msg": "hi"})
	require.True(t, res.Success)
	assert.Equal(t, map[string]any{"msg": "hi"}, res.Result)
}

func TestDisabledToolIsNotInstantiated(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir, "echo.json", `{"name":"echo","module":"echo","enabled":false}`)

	reg := toolregistry.New(dir, t.TempDir(), toolregistry.DefaultFactories())
	_, ok := reg.Get("echo")
	assert.False(t, ok)
}

func TestEnableDisableReload(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir, "echo.json", `{"name":"echo","module":"echo","enabled":false}`)

	reg := toolregistry.New(dir, t.TempDir(), toolregistry.DefaultFactories())
	_, ok := reg.Get("echo")
	require.False(t, ok)

	require.NoError(t, reg.Enable("echo"))
	_, ok = reg.Get("echo")
	assert.True(t, ok)

	require.NoError(t, reg.Disable("echo"))
	_, ok = reg.Get("echo")
	assert.False(t, ok)
}

func TestReloadIdempotentConfigLeavesListUnchanged(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir, "echo.json", `{"name":"echo","module":"echo","enabled":true}`)

	reg := toolregistry.New(dir, t.TempDir(), toolregistry.DefaultFactories())
	before := reg.List()
	reg.Reload()
	after := reg.List()
	assert.Equal(t, before, after)
}

func TestCreateRejectsUnknownModule(t *testing.T) {
	dir := t.TempDir()
	reg := toolregistry.New(dir, t.TempDir(), toolregistry.DefaultFactories())

	err := reg.Create(toolregistry.LocalDescriptor{Name: "x", Module: "does_not_exist"})
	require.Error(t, err)
	var invalid *toolregistry.InvalidDescriptorError
	assert.ErrorAs(t, err, &invalid)
}

func TestRemoteToolHappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "get_price", body["tool"])
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"price": 42})
	}))
	defer srv.Close()

	remoteDir := t.TempDir()
	desc := map[string]any{
		"name":    "stocks",
		"mcp_url": srv.URL,
		"tool_description": map[string]any{
			"tools": []map[string]any{{"name": "get_price", "description": "get price"}},
		},
	}
	data, err := json.Marshal(desc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(remoteDir, "stocks.json"), data, 0o644))

	reg := toolregistry.New(t.TempDir(), remoteDir, toolregistry.DefaultFactories())
	res := reg.Execute(context.Background(), "stocks_get_price", map[string]any{"symbol": "ABC"})
	require.True(t, res.Success)
	assert.Equal(t, map[string]any{"price": float64(42)}, res.Result)
}

func TestRemoteToolNon200ReturnsRemoteToolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	remoteDir := t.TempDir()
	desc := map[string]any{
		"name":    "stocks",
		"mcp_url": srv.URL,
		"tool_description": map[string]any{
			"tools": []map[string]any{{"name": "get_price"}},
		},
	}
	data, _ := json.Marshal(desc)
	require.NoError(t, os.WriteFile(filepath.Join(remoteDir, "stocks.json"), data, 0o644))

	reg := toolregistry.New(t.TempDir(), remoteDir, toolregistry.DefaultFactories())
	res := reg.Execute(context.Background(), "stocks_get_price", nil)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "http 500")
}

func TestRemoteToolMalformedJSONIsNotAProcessCrash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	remoteDir := t.TempDir()
	desc := map[string]any{
		"name":             "stocks",
		"mcp_url":          srv.URL,
		"tool_description": map[string]any{"tools": []map[string]any{{"name": "get_price"}}},
	}
	data, _ := json.Marshal(desc)
	require.NoError(t, os.WriteFile(filepath.Join(remoteDir, "stocks.json"), data, 0o644))

	reg := toolregistry.New(t.TempDir(), remoteDir, toolregistry.DefaultFactories())
	res := reg.Execute(context.Background(), "stocks_get_price", nil)
	assert.False(t, res.Success)
}

func TestRemoteToolRejectsArgsFailingInputSchema(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"price": 1})
	}))
	defer srv.Close()

	remoteDir := t.TempDir()
	desc := map[string]any{
		"name":    "stocks",
		"mcp_url": srv.URL,
		"tool_description": map[string]any{
			"tools": []map[string]any{{
				"name":        "get_price",
				"description": "get price",
				"input_schema": map[string]any{
					"type":     "object",
					"required": []any{"symbol"},
					"properties": map[string]any{
						"symbol": map[string]any{"type": "string"},
					},
				},
			}},
		},
	}
	data, err := json.Marshal(desc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(remoteDir, "stocks.json"), data, 0o644))

	reg := toolregistry.New(t.TempDir(), remoteDir, toolregistry.DefaultFactories())

	res := reg.Execute(context.Background(), "stocks_get_price", map[string]any{})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "invalid arguments")
	assert.False(t, called, "remote endpoint must not be contacted when local validation fails")

	res = reg.Execute(context.Background(), "stocks_get_price", map[string]any{"symbol": "ABC"})
	assert.True(t, res.Success)
	assert.True(t, called)
}
