package llm

import (
	"sync"

	"golang.org/x/time/rate"

	"context"
)

// rateLimitedProvider applies an AIMD-style adaptive token bucket in front
// of a Provider, grounded on
// features/model/middleware.AdaptiveRateLimiter in the teacher repo. The
// teacher's cluster-coordination variant (shared budget via a Pulse
// rmap.Map) is dropped — nothing else in this module's dependency set pulls
// in goa.design/pulse, and the Facade has no multi-process deployment story
// to coordinate across — leaving the process-local limiter, which is all a
// single orchestrator process needs.
type rateLimitedProvider struct {
	next Provider

	mu sync.Mutex

	limiter *rate.Limiter

	currentTPM   float64
	minTPM       float64
	maxTPM       float64
	recoveryRate float64
}

// newRateLimitedProvider wraps next with an adaptive tokens-per-minute
// budget. initialTPM <= 0 defaults to a conservative 60000.
func newRateLimitedProvider(next Provider, initialTPM, maxTPM float64) Provider {
	if initialTPM <= 0 {
		initialTPM = 60000
	}
	if maxTPM <= 0 || maxTPM < initialTPM {
		maxTPM = initialTPM
	}
	minTPM := initialTPM * 0.1
	if minTPM < 1 {
		minTPM = 1
	}
	recoveryRate := initialTPM * 0.05
	if recoveryRate < 1 {
		recoveryRate = 1
	}

	return &rateLimitedProvider{
		next:         next,
		limiter:      rate.NewLimiter(rate.Limit(initialTPM/60.0), int(initialTPM)),
		currentTPM:   initialTPM,
		minTPM:       minTPM,
		maxTPM:       maxTPM,
		recoveryRate: recoveryRate,
	}
}

func (p *rateLimitedProvider) Name() string { return p.next.Name() }

func (p *rateLimitedProvider) Generate(ctx context.Context, modelID string, req Request) (string, error) {
	tokens := estimateTokens(req.Prompt)
	if err := p.limiter.WaitN(ctx, tokens); err != nil {
		return "", &ProviderError{Provider: p.next.Name(), Retryable: false, Err: err}
	}

	resp, err := p.next.Generate(ctx, modelID, req)
	if err != nil {
		if pe, ok := err.(*ProviderError); ok && pe.Retryable {
			p.backoff()
		}
		return resp, err
	}
	p.probe()
	return resp, nil
}

func (p *rateLimitedProvider) backoff() {
	p.mu.Lock()
	defer p.mu.Unlock()
	newTPM := p.currentTPM * 0.5
	if newTPM < p.minTPM {
		newTPM = p.minTPM
	}
	if newTPM == p.currentTPM {
		return
	}
	p.currentTPM = newTPM
	p.limiter.SetLimit(rate.Limit(newTPM / 60.0))
	p.limiter.SetBurst(int(newTPM))
}

func (p *rateLimitedProvider) probe() {
	p.mu.Lock()
	defer p.mu.Unlock()
	newTPM := p.currentTPM + p.recoveryRate
	if newTPM > p.maxTPM {
		newTPM = p.maxTPM
	}
	if newTPM == p.currentTPM {
		return
	}
	p.currentTPM = newTPM
	p.limiter.SetLimit(rate.Limit(newTPM / 60.0))
	p.limiter.SetBurst(int(newTPM))
}

// estimateTokens is the same cheap char-count heuristic the teacher's
// middleware uses, adapted from message-parts to a flat prompt string.
func estimateTokens(prompt string) int {
	if len(prompt) == 0 {
		return 500
	}
	tokens := len(prompt) / 3
	if tokens < 1 {
		tokens = 1
	}
	return tokens + 500
}
