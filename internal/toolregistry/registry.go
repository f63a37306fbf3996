package toolregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

type loadedTool struct {
	descriptor Descriptor
	handler    Handler
	// remote carries the endpoint for RemoteStatus/health checks; nil for
	// local tools.
	remote *remoteTool
}

// Registry is a hot-reloadable table of tool handlers keyed by name. Reads
// (Execute/List/Get) take an RLock; Reload (which Enable/Disable/Create call)
// takes the exclusive lock and atomically swaps the internal map, matching
// spec.md §5's registry reload contract. In-flight dispatches hold a
// reference to the tool they resolved before the swap and complete against
// it.
type Registry struct {
	localDir  string
	remoteDir string
	factories map[string]Factory
	client    *http.Client

	mu    sync.RWMutex
	tools map[string]*loadedTool
}

// Option configures optional Registry behavior.
type Option func(*Registry)

// WithHTTPClient overrides the http.Client used for remote tool execution
// and health checks (tests inject one pointed at an httptest.Server).
func WithHTTPClient(c *http.Client) Option {
	return func(r *Registry) { r.client = c }
}

// New constructs a Registry over localDir/remoteDir and performs an initial
// Load. factories maps a descriptor's "module" handler key to the
// constructor that builds its Handler — the compile-time factory table
// spec.md §9 calls for in place of dynamic class lookup.
func New(localDir, remoteDir string, factories map[string]Factory, opts ...Option) *Registry {
	r := &Registry{
		localDir:  localDir,
		remoteDir: remoteDir,
		factories: factories,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.Reload()
	return r
}

// Reload re-reads both descriptor directories, replacing the in-memory
// table atomically. Malformed descriptors and disabled tools are skipped.
func (r *Registry) Reload() {
	tools := map[string]*loadedTool{}

	r.loadLocal(tools)
	r.loadRemote(tools)

	r.mu.Lock()
	r.tools = tools
	r.mu.Unlock()
}

func (r *Registry) loadLocal(tools map[string]*loadedTool) {
	entries, err := os.ReadDir(r.localDir)
	if err != nil {
		return
	}
	names := jsonFileNames(entries)
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(r.localDir, name))
		if err != nil {
			continue
		}
		var d LocalDescriptor
		if err := json.Unmarshal(data, &d); err != nil {
			continue
		}
		if !d.Enabled {
			continue // disabled tools are not instantiated
		}
		factory, ok := r.factories[d.Module]
		if !ok {
			continue // unknown factory key: skipped, surfaced via Get absence
		}
		handler, err := factory(d.Config)
		if err != nil {
			continue
		}
		tools[d.Name] = &loadedTool{
			descriptor: Descriptor{Name: d.Name, Description: d.Description, Kind: KindLocal, Enabled: true},
			handler:    handler,
		}
	}
}

func (r *Registry) loadRemote(tools map[string]*loadedTool) {
	entries, err := os.ReadDir(r.remoteDir)
	if err != nil {
		return
	}
	names := jsonFileNames(entries)
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(r.remoteDir, name))
		if err != nil {
			continue
		}
		var d RemoteDescriptor
		if err := json.Unmarshal(data, &d); err != nil {
			continue
		}
		endpoint := d.MCPURL
		if endpoint == "" {
			endpoint = "http://localhost:8000"
		}
		for _, ts := range d.ToolDescription.Tools {
			toolName := fmt.Sprintf("%s_%s", d.Name, ts.Name)
			rt := &remoteTool{
				name:     toolName,
				remote:   ts.Name,
				endpoint: endpoint,
				client:   r.client,
				schema:   compileInputSchema(toolName, ts.InputSchema),
			}
			tools[toolName] = &loadedTool{
				descriptor: Descriptor{Name: toolName, Description: ts.Description, Kind: KindRemote, Enabled: true},
				handler:    rt.handler(),
				remote:     rt,
			}
		}
	}
}

func jsonFileNames(entries []os.DirEntry) []string {
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// Execute dispatches to tool_name with args, returning the uniform envelope
// spec.md §4.3 defines. An unknown tool never returns a Go error; it
// returns Result{Success:false, Error:"Tool not found: <name>"}.
func (r *Registry) Execute(ctx context.Context, toolName string, args map[string]any) Result {
	r.mu.RLock()
	t, ok := r.tools[toolName]
	r.mu.RUnlock()

	now := time.Now().UTC().Format(time.RFC3339)
	if !ok {
		return Result{Success: false, Error: fmt.Sprintf("Tool not found: %s", toolName), ToolName: toolName, ExecutedAt: now}
	}

	result, err := t.handler(ctx, args)
	now = time.Now().UTC().Format(time.RFC3339)
	if err != nil {
		return Result{Success: false, Error: err.Error(), ToolName: toolName, ExecutedAt: now}
	}
	return Result{Success: true, Result: result, ToolName: toolName, ExecutedAt: now}
}

// List returns descriptors for every loaded tool, sorted by name.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.descriptor)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get returns the descriptor for a single tool.
func (r *Registry) Get(toolName string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[toolName]
	if !ok {
		return Descriptor{}, false
	}
	return t.descriptor, true
}

// Create persists a new local tool descriptor file and reloads the
// registry, grounded on
// original_source/tools/tool_registry.py::create_tool_from_json.
func (r *Registry) Create(d LocalDescriptor) error {
	if d.Name == "" {
		return fmt.Errorf("toolregistry: tool name is required")
	}
	if _, ok := r.factories[d.Module]; !ok {
		return &InvalidDescriptorError{ToolName: d.Name, Reason: "unknown module: " + d.Module}
	}
	if _, exists := r.Get(d.Name); exists {
		return fmt.Errorf("toolregistry: tool %q already exists", d.Name)
	}
	d.Enabled = true
	if err := r.writeDescriptor(d); err != nil {
		return err
	}
	r.Reload()
	return nil
}

// Enable flips a local tool's enabled flag on disk and reloads the registry.
func (r *Registry) Enable(name string) error { return r.setEnabled(name, true) }

// Disable flips a local tool's enabled flag on disk and reloads the registry.
func (r *Registry) Disable(name string) error { return r.setEnabled(name, false) }

func (r *Registry) setEnabled(name string, enabled bool) error {
	path := filepath.Join(r.localDir, name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var d LocalDescriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	d.Enabled = enabled
	if err := r.writeDescriptor(d); err != nil {
		return err
	}
	r.Reload()
	return nil
}

func (r *Registry) writeDescriptor(d LocalDescriptor) error {
	if err := os.MkdirAll(r.localDir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	target := filepath.Join(r.localDir, d.Name+".json")
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, target)
}

// RemoteStatuses polls every configured remote endpoint's /health and
// returns its status, grounded on
// original_source/tools/tool_registry.py::get_mcp_servers_status.
func (r *Registry) RemoteStatuses(ctx context.Context) []RemoteStatus {
	r.mu.RLock()
	seen := map[string]*remoteTool{}
	counts := map[string]int{}
	for _, t := range r.tools {
		if t.remote == nil {
			continue
		}
		seen[t.remote.endpoint] = t.remote
		counts[t.remote.endpoint]++
	}
	r.mu.RUnlock()

	out := make([]RemoteStatus, 0, len(seen))
	for endpoint, rt := range seen {
		online, ms := checkHealth(ctx, r.client, endpoint)
		out = append(out, RemoteStatus{
			Name:           strings.TrimSuffix(rt.name, "_"+rt.remote),
			URL:            endpoint,
			Online:         online,
			ResponseTimeMS: ms,
			ToolCount:      counts[endpoint],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}
