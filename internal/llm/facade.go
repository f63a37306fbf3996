package llm

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ModelInfo describes one enabled model as returned by ListAvailableModels,
// mirroring original_source/llm/llm_facade.py::LLMConfig.get_enabled_models.
type ModelInfo struct {
	Provider    string   `json:"provider"`
	Model       string   `json:"model"`
	ModelID     string   `json:"model_id"`
	Description string   `json:"description"`
	BestFor     []string `json:"best_for"`
}

// Facade is the provider-agnostic entry point spec.md §4.5 describes: one
// Generate/GenerateStructured surface regardless of which vendor backs the
// configured default provider/model, with hot-reloadable configuration and a
// guaranteed-never-raises contract (every failure path falls back to the
// mock provider rather than propagating to the caller).
type Facade struct {
	cfg   *config
	retry RetryPolicy
	log   *zap.Logger

	providersMu sync.RWMutex
	providers   map[string]Provider
}

// Option configures a Facade at construction time.
type Option func(*Facade)

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(f *Facade) { f.retry = p }
}

// WithLogger overrides the default no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(f *Facade) { f.log = l }
}

// New constructs a Facade reading its configuration from configPath.
// Vendor adapters are instantiated on first use and then cached, against whatever API key
// environment variable the provider's config entry names, so a single
// Facade can serve every provider in the config file, not just one.
func New(configPath string, opts ...Option) *Facade {
	f := &Facade{
		cfg:       newConfig(configPath),
		providers: map[string]Provider{ProviderMock: mockProvider{}},
		retry:     DefaultRetryPolicy(),
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.cfg.startAutoRefresh(f.cfg.refreshInterval())
	return f
}

// Stop releases the background config-refresh goroutine.
func (f *Facade) Stop() { f.cfg.close() }

// resolveProvider returns a Provider for name, constructing and caching real
// adapters on first use. Unknown providers and construction failures both
// resolve to the mock, matching the Python original's "unknown provider,
// falling back to mock" branch. The provider cache is read-mostly but
// concurrent batch dispatch (driver.go's errgroup fan-out) can race two
// first-uses of the same provider, so both the lookup and the populate are
// guarded by providersMu (spec.md §5: "registries/facade read-mostly, safe
// for concurrent use").
func (f *Facade) resolveProvider(ctx context.Context, name string, pc ProviderConfig) Provider {
	f.providersMu.RLock()
	cached, ok := f.providers[name]
	f.providersMu.RUnlock()
	if ok {
		return cached
	}

	apiKeyEnv := pc.APIKeyEnv
	apiKey := os.Getenv(apiKeyEnv)

	var p Provider
	switch name {
	case ProviderAnthropic:
		if apiKey == "" {
			break
		}
		p = newAnthropicProvider(apiKey)
	case ProviderOpenAI:
		if apiKey == "" {
			break
		}
		p = newOpenAIProvider(apiKey)
	case ProviderGoogle:
		if apiKey == "" {
			break
		}
		p = newGeminiProvider(apiKey, pc.BaseURL)
	case ProviderMeta, ProviderDeepSeek:
		if apiKey == "" || pc.BaseURL == "" {
			break
		}
		p = newChatCompletionsProvider(name, apiKey, pc.BaseURL)
	case ProviderHuggingFace:
		if apiKey == "" || pc.BaseURL == "" {
			break
		}
		p = newHuggingFaceProvider(apiKey, pc.BaseURL)
	case ProviderBedrock:
		bp, err := newBedrockProvider(ctx, pc.Region)
		if err == nil {
			p = bp
		}
	}

	if p == nil {
		f.log.Warn("provider unavailable, using mock", zap.String("provider", name))
		return mockProvider{}
	}
	if pc.RateLimitTPM > 0 {
		p = newRateLimitedProvider(p, pc.RateLimitTPM, pc.MaxTPM)
	}

	f.providersMu.Lock()
	defer f.providersMu.Unlock()
	if existing, ok := f.providers[name]; ok {
		return existing
	}
	f.providers[name] = p
	return p
}

// Generate produces text for req, resolving an unset Provider/Model from the
// configured default. It never returns an error: any adapter failure after
// retry exhaustion is logged and answered by the mock provider instead,
// matching _LLMFacade.generate_'s blanket except-fallback-to-mock behavior.
func (f *Facade) Generate(ctx context.Context, req Request) string {
	provider, model := req.Provider, req.Model
	if provider == "" || model == "" {
		dp, dm := f.cfg.defaultProviderModel()
		if provider == "" {
			provider = dp
		}
		if model == "" {
			model = dm
		}
	}

	pc, ok := f.cfg.providerConfig(provider)
	if !ok || !pc.Enabled {
		f.log.Warn("unknown or disabled provider, falling back to mock", zap.String("provider", provider))
		out, _ := mockProvider{}.Generate(ctx, model, req)
		return out
	}

	mc, ok := f.cfg.modelConfig(provider, model)
	modelID := model
	if ok && mc.ModelID != "" {
		modelID = mc.ModelID
	}

	adapter := f.resolveProvider(ctx, provider, pc)
	out, err := f.retry.call(ctx, func() (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
		defer cancel()
		return adapter.Generate(callCtx, modelID, req)
	})
	if err != nil {
		f.log.Error("generation failed, falling back to mock", zap.String("provider", provider), zap.Error(err))
		out, _ = mockProvider{}.Generate(ctx, modelID, req)
		return out
	}
	return out
}

// GenerateStructured asks the model for JSON matching schema and parses the
// first top-level {...} object out of the response, matching
// original_source/llm/llm_facade.py::generate_structured. If parsing fails,
// the raw text is wrapped as {"response": text} rather than raising.
func (f *Facade) GenerateStructured(ctx context.Context, req Request, schema map[string]any) map[string]any {
	schemaJSON, _ := json.MarshalIndent(schema, "", "  ")
	structuredPrompt := req.Prompt + "\n\nPlease provide your response as valid JSON matching this schema:\n" +
		string(schemaJSON) + "\n\nReturn ONLY the JSON, no other text."
	req.Prompt = structuredPrompt

	response := f.Generate(ctx, req)

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start >= 0 && end >= start {
		var out map[string]any
		if err := json.Unmarshal([]byte(response[start:end+1]), &out); err == nil {
			return out
		}
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(response), &out); err == nil {
		return out
	}
	return map[string]any{"response": response}
}

// ListAvailableModels enumerates every enabled model across every enabled
// provider.
func (f *Facade) ListAvailableModels() []ModelInfo {
	models := f.cfg.enabledModels()
	out := make([]ModelInfo, 0, len(models))
	for _, m := range models {
		out = append(out, ModelInfo{Provider: m.Provider, Model: m.Model, ModelID: m.ModelID, Description: m.Description, BestFor: m.BestFor})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].Model < out[j].Model
	})
	return out
}

// GetRecommendedModel scores every enabled model's best_for tags against
// taskType and returns the highest-scoring (provider, model) pair, matching
// original_source/llm/llm_facade.py::get_recommended_model's exact-match(10)
// / substring-match(5) scoring. Falls back to the configured default when no
// model scores above zero.
func (f *Facade) GetRecommendedModel(taskType string) (string, string) {
	taskLower := strings.ToLower(taskType)
	models := f.cfg.enabledModels()

	var best enabledModel
	bestScore := 0
	for _, m := range models {
		score := 0
		for _, bf := range m.BestFor {
			bfLower := strings.ToLower(bf)
			if taskLower == bfLower {
				score += 10
			}
			if strings.Contains(taskLower, bfLower) || strings.Contains(bfLower, taskLower) {
				score += 5
			}
		}
		if score > bestScore {
			bestScore = score
			best = m
		}
	}
	if bestScore > 0 {
		return best.Provider, best.Model
	}
	return f.cfg.defaultProviderModel()
}

// DefaultProviderModel returns the configured default (provider, model) pair.
func (f *Facade) DefaultProviderModel() (string, string) {
	return f.cfg.defaultProviderModel()
}
