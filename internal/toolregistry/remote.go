package toolregistry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// DefaultRemoteTimeout is the bounded timeout spec.md §4.3/§5 requires for
// remote tool calls (default 30s).
const DefaultRemoteTimeout = 30 * time.Second

// remoteTool is a thin adapter that POSTs {tool, arguments} to
// <endpoint>/execute, matching the wire protocol in spec.md §6. Grounded on
// original_source/tools/mcp_tool.py.
type remoteTool struct {
	name     string // the prefixed "<mcp_name>_<tool_name>" registry key
	remote   string // the tool name as known to the remote endpoint
	endpoint string
	client   *http.Client
	timeout  time.Duration

	// schema validates arguments against the remote descriptor's input_schema
	// before the call goes out over the wire. Nil when the descriptor carried
	// no schema or it failed to compile, in which case validation is skipped.
	schema *jsonschema.Schema
}

// compileInputSchema compiles a remote tool's input_schema (spec.md §6) so
// arguments can be validated locally, catching a malformed call before it
// reaches the network. A schema that fails to compile is treated as absent
// rather than rejecting the whole descriptor — the remote endpoint remains
// the final authority.
func compileInputSchema(toolName string, inputSchema map[string]any) *jsonschema.Schema {
	if len(inputSchema) == 0 {
		return nil
	}
	c := jsonschema.NewCompiler()
	url := "mem://" + toolName + "/input_schema.json"
	if err := c.AddResource(url, inputSchema); err != nil {
		return nil
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil
	}
	return sch
}

type remoteRequestBody struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
}

func (t *remoteTool) handler() Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		if t.schema != nil {
			if err := t.schema.Validate(toSchemaInstance(args)); err != nil {
				return nil, &RemoteToolError{ToolName: t.name, Reason: "invalid arguments: " + err.Error()}
			}
		}

		timeout := t.timeout
		if timeout <= 0 {
			timeout = DefaultRemoteTimeout
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		body, err := json.Marshal(remoteRequestBody{Tool: t.remote, Arguments: args})
		if err != nil {
			return nil, &RemoteToolError{ToolName: t.name, Reason: err.Error()}
		}

		url := t.endpoint + "/execute"
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, &RemoteToolError{ToolName: t.name, Reason: err.Error()}
		}
		req.Header.Set("Content-Type", "application/json")

		client := t.client
		if client == nil {
			client = http.DefaultClient
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, &RemoteToolError{ToolName: t.name, Reason: err.Error()}
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &RemoteToolError{ToolName: t.name, Reason: err.Error()}
		}

		if resp.StatusCode != http.StatusOK {
			return nil, &RemoteToolError{ToolName: t.name, StatusCode: resp.StatusCode, Reason: string(respBody)}
		}

		var result any
		if err := json.Unmarshal(respBody, &result); err != nil {
			return nil, &RemoteToolError{ToolName: t.name, Reason: fmt.Sprintf("malformed response body: %v", err)}
		}
		return result, nil
	}
}

// toSchemaInstance round-trips args through JSON so its values match the
// representation jsonschema.Schema.Validate expects (plain map/slice/
// float64/string/bool/nil), since callers may hand us ints or other Go
// types that json.Unmarshal would never itself produce.
func toSchemaInstance(args map[string]any) any {
	data, err := json.Marshal(args)
	if err != nil {
		return args
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return args
	}
	return out
}

// RemoteStatus is the health/metadata snapshot for one configured remote
// endpoint, grounded on
// original_source/tools/tool_registry.py::get_mcp_servers_status.
type RemoteStatus struct {
	Name            string `json:"name"`
	URL             string `json:"url"`
	Online          bool   `json:"online"`
	ResponseTimeMS  int64  `json:"response_time_ms,omitempty"`
	ToolCount       int    `json:"tool_count"`
}

func checkHealth(ctx context.Context, client *http.Client, endpoint string) (bool, int64) {
	if client == nil {
		client = http.DefaultClient
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"/health", nil)
	if err != nil {
		return false, 0
	}
	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return false, 0
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, elapsed
}
