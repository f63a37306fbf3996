package llm

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// ModelConfig is one model entry under a provider in the LLM configuration
// file (spec.md §6).
type ModelConfig struct {
	Enabled                bool     `json:"enabled"`
	ModelID                string   `json:"model_id"`
	Description             string   `json:"description,omitempty"`
	BestFor                 []string `json:"best_for,omitempty"`
	SupportsVision          bool     `json:"supports_vision,omitempty"`
	SupportsFunctionCalling bool     `json:"supports_function_calling,omitempty"`
	ContextWindow           int      `json:"context_window,omitempty"`
	CostPer1MInputTokens    float64  `json:"cost_per_1m_input_tokens,omitempty"`
}

// ProviderConfig is one provider entry in the LLM configuration file.
type ProviderConfig struct {
	Enabled      bool                   `json:"enabled"`
	APIKeyEnv    string                 `json:"api_key_env,omitempty"`
	BaseURL      string                 `json:"base_url,omitempty"`
	Region       string                 `json:"region,omitempty"`
	RateLimitTPM float64                `json:"rate_limit_tpm,omitempty"`
	MaxTPM       float64                `json:"max_tpm,omitempty"`
	Models       map[string]ModelConfig `json:"models"`
}

// File is the LLM configuration file shape (spec.md §6).
type File struct {
	DefaultProvider        string                    `json:"default_provider"`
	DefaultModel            string                    `json:"default_model"`
	RefreshIntervalSeconds  int                       `json:"refresh_interval_seconds"`
	Providers               map[string]ProviderConfig `json:"providers"`
}

// DefaultRefreshInterval is the hot-reload interval spec.md §4.5 specifies
// (default 600s) when a config file omits refresh_interval_seconds.
const DefaultRefreshInterval = 600 * time.Second

// config is the hot-reloadable LLM configuration manager. All reads take a
// lock, copy out what they need, and release it before any I/O — a reload
// mid-call never affects an in-flight call (spec.md §4.5 hot-reload
// semantics).
type config struct {
	path string

	mu   sync.RWMutex
	file File

	stop chan struct{}
	wg   sync.WaitGroup
}

func newConfig(path string) *config {
	c := &config{path: path, stop: make(chan struct{})}
	c.load()
	return c
}

// load reads path and swaps in the parsed File under the lock. On any error
// (missing file, malformed JSON) it falls back to a mock-only default
// configuration rather than failing, matching
// original_source/llm/llm_facade.py::LLMConfig._load_default_config.
func (c *config) load() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		c.setDefault()
		return
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		c.setDefault()
		return
	}
	if f.RefreshIntervalSeconds == 0 {
		f.RefreshIntervalSeconds = int(DefaultRefreshInterval.Seconds())
	}
	c.mu.Lock()
	c.file = f
	c.mu.Unlock()
}

func (c *config) setDefault() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.file = File{
		DefaultProvider:        ProviderMock,
		DefaultModel:           "mock-llm",
		RefreshIntervalSeconds: int(DefaultRefreshInterval.Seconds()),
		Providers: map[string]ProviderConfig{
			ProviderMock: {
				Enabled: true,
				Models: map[string]ModelConfig{
					"mock-llm": {Enabled: true, ModelID: "mock-llm-v1", Description: "Mock LLM for testing"},
				},
			},
		},
	}
}

// snapshot returns a copy of the current configuration file.
func (c *config) snapshot() File {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.file
}

// modelConfig returns the model config for provider/model, and whether it
// exists.
func (c *config) modelConfig(provider, model string) (ModelConfig, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.file.Providers[provider]
	if !ok {
		return ModelConfig{}, false
	}
	m, ok := p.Models[model]
	return m, ok
}

func (c *config) providerConfig(provider string) (ProviderConfig, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.file.Providers[provider]
	return p, ok
}

func (c *config) defaultProviderModel() (string, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.file.DefaultProvider, c.file.DefaultModel
}

// refreshInterval returns the currently loaded file's refresh period.
func (c *config) refreshInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.file.RefreshIntervalSeconds <= 0 {
		return DefaultRefreshInterval
	}
	return time.Duration(c.file.RefreshIntervalSeconds) * time.Second
}

// enabledModels enumerates every enabled model across every enabled
// provider, matching original_source's get_enabled_models.
type enabledModel struct {
	Provider    string
	Model       string
	ModelID     string
	Description string
	BestFor     []string
}

func (c *config) enabledModels() []enabledModel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []enabledModel
	for pname, p := range c.file.Providers {
		if !p.Enabled {
			continue
		}
		for mname, m := range p.Models {
			if !m.Enabled {
				continue
			}
			out = append(out, enabledModel{Provider: pname, Model: mname, ModelID: m.ModelID, Description: m.Description, BestFor: m.BestFor})
		}
	}
	return out
}

// startAutoRefresh launches the supervised periodic reload task. Call stop()
// for clean shutdown (spec.md §9's "supervised periodic task with explicit
// stop/cancel" design note, replacing the Python original's daemon thread).
func (c *config) startAutoRefresh(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-c.stop:
				return
			case <-ticker.C:
				c.load()
			}
		}
	}()
}

func (c *config) close() {
	close(c.stop)
	c.wg.Wait()
}
