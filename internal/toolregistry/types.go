// Package toolregistry loads local and remote tool descriptors, instantiates
// local tools via a compile-time factory table, and dispatches execution by
// name through a uniform result envelope. Grounded on
// original_source/tools/tool_registry.py and original_source/tools/mcp_tool.py.
package toolregistry

import "context"

// Kind distinguishes a locally-handled tool from a remote MCP-style tool.
type Kind string

const (
	KindLocal  Kind = "local"
	KindRemote Kind = "remote"
)

// Handler is the compile-time-registered implementation of a local tool.
// Replaces the Python original's dynamic `importlib`-based class lookup
// (spec.md §9): tool descriptor files name a factory key. At load time a
// descriptor naming an unknown key is skipped and its tool is absent from
// the registry; no error is reported. Create rejects an unknown key with an
// InvalidDescriptorError.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Factory constructs a Handler from a tool's descriptor config. Registered
// once per handler key in the factories map passed to New.
type Factory func(config map[string]any) (Handler, error)

// LocalDescriptor is a local tool descriptor file (spec.md §6).
type LocalDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Module      string         `json:"module"` // factory/handler key
	Config      map[string]any `json:"config"`
	Enabled     bool           `json:"enabled"`
}

// RemoteToolSchema is one entry of a remote descriptor's tool_description.tools.
type RemoteToolSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// RemoteDescriptor is a remote MCP-style tool descriptor file (spec.md §6).
type RemoteDescriptor struct {
	Name             string `json:"name"`
	MCPURL           string `json:"mcp_url"`
	ToolDescription struct {
		Tools []RemoteToolSchema `json:"tools"`
	} `json:"tool_description"`
}

// Descriptor is the registry's in-memory view of a loaded tool, local or
// remote, exposed via List().
type Descriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Kind        Kind   `json:"kind"`
	Enabled     bool   `json:"enabled"`
}

// Result is the uniform execution envelope spec.md §4.3 requires:
// {success, result|error, tool_name, executed_at}.
type Result struct {
	Success    bool   `json:"success"`
	Result     any    `json:"result,omitempty"`
	Error      string `json:"error,omitempty"`
	ToolName   string `json:"tool_name"`
	ExecutedAt string `json:"executed_at"`
}
