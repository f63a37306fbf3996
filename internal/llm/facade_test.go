package llm

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "llm.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestGenerateFallsBackToMockOnMissingConfigFile(t *testing.T) {
	f := New(filepath.Join(t.TempDir(), "missing.json"))
	defer f.Stop()

	out := f.Generate(context.Background(), Request{Prompt: "create a plan for onboarding"})
	assert.Contains(t, out, "workflow plan")
}

func TestGenerateUnknownProviderFallsBackToMock(t *testing.T) {
	path := writeConfig(t, `{
		"default_provider": "mock",
		"default_model": "mock-llm",
		"providers": {"mock": {"enabled": true, "models": {"mock-llm": {"enabled": true}}}}
	}`)
	f := New(path)
	defer f.Stop()

	out := f.Generate(context.Background(), Request{Provider: "nonexistent", Model: "x", Prompt: "hi"})
	assert.NotEmpty(t, out)
}

type fakeProvider struct {
	calls   int
	failN   int
	result  string
	retryOK bool
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Generate(_ context.Context, _ string, _ Request) (string, error) {
	f.calls++
	if f.calls <= f.failN {
		return "", &ProviderError{Provider: "fake", Retryable: f.retryOK, Err: assertErr{}}
	}
	return f.result, nil
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func TestGenerateRetriesThenSucceeds(t *testing.T) {
	path := writeConfig(t, `{
		"default_provider": "fake",
		"default_model": "m1",
		"providers": {"fake": {"enabled": true, "models": {"m1": {"enabled": true, "model_id": "m1"}}}}
	}`)
	f := New(path, WithRetryPolicy(RetryPolicy{MaxAttempts: 3, BaseDelay: 0}))
	defer f.Stop()
	fp := &fakeProvider{failN: 1, result: "ok", retryOK: true}
	f.providers["fake"] = fp

	out := f.Generate(context.Background(), Request{})
	assert.Equal(t, "ok", out)
	assert.Equal(t, 2, fp.calls)
}

func TestGenerateFallsBackToMockWhenRetriesExhausted(t *testing.T) {
	path := writeConfig(t, `{
		"default_provider": "fake",
		"default_model": "m1",
		"providers": {"fake": {"enabled": true, "models": {"m1": {"enabled": true, "model_id": "m1"}}}}
	}`)
	f := New(path, WithRetryPolicy(RetryPolicy{MaxAttempts: 2, BaseDelay: 0}))
	defer f.Stop()
	fp := &fakeProvider{failN: 99, retryOK: true}
	f.providers["fake"] = fp

	out := f.Generate(context.Background(), Request{Prompt: "hello there"})
	assert.NotEmpty(t, out)
}

// TestResolveProviderConcurrentFirstUseIsRace exercises the exact scenario
// driver.go's errgroup fan-out produces: two batched nodes both resolving
// the same not-yet-cached provider for the first time in parallel. Run with
// -race; a concurrent map write on f.providers would be reported here.
func TestResolveProviderConcurrentFirstUseIsRace(t *testing.T) {
	t.Setenv("HF_TEST_KEY", "token")
	pc := ProviderConfig{Enabled: true, APIKeyEnv: "HF_TEST_KEY", BaseURL: "https://example.invalid"}

	f := New(filepath.Join(t.TempDir(), "missing.json"))
	defer f.Stop()

	const n = 16
	results := make([]Provider, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			results[i] = f.resolveProvider(context.Background(), ProviderHuggingFace, pc)
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		assert.Same(t, results[0], results[i], "every caller must observe the single cached provider instance")
	}
}

func TestGenerateStructuredParsesEmbeddedJSON(t *testing.T) {
	path := writeConfig(t, `{
		"default_provider": "fake",
		"default_model": "m1",
		"providers": {"fake": {"enabled": true, "models": {"m1": {"enabled": true, "model_id": "m1"}}}}
	}`)
	f := New(path)
	defer f.Stop()
	f.providers["fake"] = &fakeProvider{result: `some preamble {"foo": "bar", "n": 3} trailing text`}

	out := f.GenerateStructured(context.Background(), Request{}, map[string]any{"type": "object"})
	assert.Equal(t, "bar", out["foo"])
	assert.EqualValues(t, 3, out["n"])
}

func TestGenerateStructuredFallsBackToRawResponse(t *testing.T) {
	path := writeConfig(t, `{
		"default_provider": "fake",
		"default_model": "m1",
		"providers": {"fake": {"enabled": true, "models": {"m1": {"enabled": true, "model_id": "m1"}}}}
	}`)
	f := New(path)
	defer f.Stop()
	f.providers["fake"] = &fakeProvider{result: "not json at all"}

	out := f.GenerateStructured(context.Background(), Request{}, map[string]any{})
	assert.Equal(t, "not json at all", out["response"])
}

func TestListAvailableModelsSortedAndFiltersDisabled(t *testing.T) {
	path := writeConfig(t, `{
		"default_provider": "mock",
		"default_model": "mock-llm",
		"providers": {
			"openai": {"enabled": true, "models": {
				"gpt": {"enabled": true, "model_id": "gpt-4o", "best_for": ["coding"]},
				"gpt-old": {"enabled": false, "model_id": "gpt-3"}
			}},
			"anthropic": {"enabled": true, "models": {
				"claude": {"enabled": true, "model_id": "claude-x", "best_for": ["reasoning"]}
			}},
			"disabled-provider": {"enabled": false, "models": {
				"x": {"enabled": true, "model_id": "x"}
			}}
		}
	}`)
	f := New(path)
	defer f.Stop()

	models := f.ListAvailableModels()
	require.Len(t, models, 2)
	assert.Equal(t, "anthropic", models[0].Provider)
	assert.Equal(t, "openai", models[1].Provider)
}

func TestGetRecommendedModelExactMatchWins(t *testing.T) {
	path := writeConfig(t, `{
		"default_provider": "mock",
		"default_model": "mock-llm",
		"providers": {
			"openai": {"enabled": true, "models": {
				"gpt": {"enabled": true, "model_id": "gpt-4o", "best_for": ["coding", "fast"]}
			}},
			"anthropic": {"enabled": true, "models": {
				"claude": {"enabled": true, "model_id": "claude-x", "best_for": ["reasoning", "planning"]}
			}}
		}
	}`)
	f := New(path)
	defer f.Stop()

	provider, model := f.GetRecommendedModel("planning")
	assert.Equal(t, "anthropic", provider)
	assert.Equal(t, "claude", model)
}

func TestGetRecommendedModelFallsBackToDefaultWhenNoMatch(t *testing.T) {
	path := writeConfig(t, `{
		"default_provider": "mock",
		"default_model": "mock-llm",
		"providers": {
			"openai": {"enabled": true, "models": {
				"gpt": {"enabled": true, "model_id": "gpt-4o", "best_for": ["coding"]}
			}}
		}
	}`)
	f := New(path)
	defer f.Stop()

	provider, model := f.GetRecommendedModel("unrelated-task-xyz")
	assert.Equal(t, "mock", provider)
	assert.Equal(t, "mock-llm", model)
}

func TestDefaultProviderModel(t *testing.T) {
	path := writeConfig(t, `{"default_provider": "openai", "default_model": "gpt", "providers": {}}`)
	f := New(path)
	defer f.Stop()
	p, m := f.DefaultProviderModel()
	assert.Equal(t, "openai", p)
	assert.Equal(t, "gpt", m)
}

func TestRetryPolicyCallStopsOnTerminalError(t *testing.T) {
	calls := 0
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: 0}
	_, err := p.call(context.Background(), func() (string, error) {
		calls++
		return "", &ProviderError{Provider: "x", Retryable: false, Err: assertErr{}}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicyCallRetriesRetryableError(t *testing.T) {
	calls := 0
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: 0}
	out, err := p.call(context.Background(), func() (string, error) {
		calls++
		if calls < 3 {
			return "", &ProviderError{Provider: "x", Retryable: true, Err: assertErr{}}
		}
		return "done", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, 3, calls)
}
