package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name string
	err  error
}

func (s stubProvider) Name() string { return s.name }
func (s stubProvider) Generate(_ context.Context, _ string, _ Request) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "ok", nil
}

func TestRateLimitedProviderPassesThroughSuccess(t *testing.T) {
	p := newRateLimitedProvider(stubProvider{name: "stub"}, 1e9, 1e9)
	out, err := p.Generate(context.Background(), "m", Request{Prompt: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, "stub", p.Name())
}

func TestRateLimitedProviderBacksOffOnRetryableError(t *testing.T) {
	failing := stubProvider{name: "stub", err: &ProviderError{Provider: "stub", Retryable: true, Err: errors.New("503")}}
	p := newRateLimitedProvider(failing, 1000, 2000).(*rateLimitedProvider)

	before := p.currentTPM
	_, err := p.Generate(context.Background(), "m", Request{Prompt: "hello"})
	require.Error(t, err)
	assert.Less(t, p.currentTPM, before)
}

func TestRateLimitedProviderProbesUpOnSuccess(t *testing.T) {
	p := newRateLimitedProvider(stubProvider{name: "stub"}, 1000, 2000).(*rateLimitedProvider)
	before := p.currentTPM
	_, err := p.Generate(context.Background(), "m", Request{Prompt: "hello"})
	require.NoError(t, err)
	assert.Greater(t, p.currentTPM, before)
}

func TestRateLimitedProviderNeverExceedsMaxTPM(t *testing.T) {
	p := newRateLimitedProvider(stubProvider{name: "stub"}, 1900, 2000).(*rateLimitedProvider)
	for i := 0; i < 10; i++ {
		_, _ = p.Generate(context.Background(), "m", Request{Prompt: "hello"})
	}
	assert.LessOrEqual(t, p.currentTPM, 2000.0)
}
