// Package agentregistry loads agent descriptors and dispatches execution by
// id to LLM-backed handlers. Grounded on spec.md §4.4 (no direct Python
// original — original_source never shipped an agents/agent_registry.py —
// so this package's structure mirrors toolregistry/dagregistry's
// load/dispatch shape for consistency).
package agentregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/algowizzzz/agentsmcp/internal/llm"
)

// Descriptor is an agent descriptor file: id, name, description, default
// LLM binding, enabled flag, and an approved-by-role policy for external
// callers (spec.md §4.4).
type Descriptor struct {
	AgentID         string   `json:"agent_id"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Provider        string   `json:"provider,omitempty"`
	Model           string   `json:"model,omitempty"`
	PromptTemplate  string   `json:"prompt_template,omitempty"`
	Enabled         bool     `json:"enabled"`
	ApprovedRoles   []string `json:"approved_roles,omitempty"`
}

// Result is the uniform envelope spec.md §4.4 defines:
// {success, response|error, llm_used:{provider,model}}.
type Result struct {
	Success  bool   `json:"success"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
	LLMUsed  struct {
		Provider string `json:"provider"`
		Model    string `json:"model"`
	} `json:"llm_used"`
}

// Registry is a hot-reloadable table of agent descriptors keyed by id.
type Registry struct {
	dir    string
	facade *llm.Facade

	mu     sync.RWMutex
	agents map[string]Descriptor
}

// New constructs a Registry over dir, bound to facade for execution, and
// performs an initial Load.
func New(dir string, facade *llm.Facade) *Registry {
	r := &Registry{dir: dir, facade: facade}
	r.Reload()
	return r
}

// Reload re-reads every *.json file in dir, replacing the in-memory map
// atomically.
func (r *Registry) Reload() {
	agents := map[string]Descriptor{}
	entries, err := os.ReadDir(r.dir)
	if err == nil {
		var names []string
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		for _, name := range names {
			data, err := os.ReadFile(filepath.Join(r.dir, name))
			if err != nil {
				continue
			}
			var d Descriptor
			if err := json.Unmarshal(data, &d); err != nil {
				continue
			}
			if d.AgentID == "" {
				continue
			}
			agents[d.AgentID] = d
		}
	}
	r.mu.Lock()
	r.agents = agents
	r.mu.Unlock()
}

// Get returns the descriptor for agentID.
func (r *Registry) Get(agentID string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.agents[agentID]
	return d, ok
}

// List returns every loaded agent descriptor, sorted by id.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.agents))
	for _, d := range r.agents {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out
}

// ExecuteAgent dispatches to the agent's handler: by default an LLM-backed
// call to the Facade using a prompt derived from input (spec.md §4.4).
func (r *Registry) ExecuteAgent(ctx context.Context, agentID string, input map[string]any) Result {
	d, ok := r.Get(agentID)
	if !ok {
		return Result{Success: false, Error: fmt.Sprintf("Agent not found: %s", agentID)}
	}
	if !d.Enabled {
		return Result{Success: false, Error: fmt.Sprintf("Agent disabled: %s", agentID)}
	}

	prompt := buildPrompt(d, input)
	provider, model := d.Provider, d.Model
	if provider == "" || model == "" {
		provider, model = r.facade.DefaultProviderModel()
	}

	response := r.facade.Generate(ctx, llm.Request{
		Provider: provider,
		Model:    model,
		Prompt:   prompt,
	})

	var res Result
	res.Success = true
	res.Response = response
	res.LLMUsed.Provider = provider
	res.LLMUsed.Model = model
	return res
}

func buildPrompt(d Descriptor, input map[string]any) string {
	inputJSON, _ := json.Marshal(input)
	if d.PromptTemplate != "" {
		return d.PromptTemplate + "\n\nInput: " + string(inputJSON)
	}
	return fmt.Sprintf("You are agent %q (%s). Given input: %s\nRespond helpfully.", d.AgentID, d.Description, string(inputJSON))
}
