package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ppiankov/decision-ledger/internal/cache"
	"github.com/ppiankov/decision-ledger/internal/model"
	"github.com/ppiankov/decision-ledger/internal/worker"
)

// ErrDisabled is returned when no provider is configured
var ErrDisabled = errors.New("explanations are disabled (no LLM provider configured)")

// DefaultCacheTTL keeps narratives for a day; runs are immutable
const DefaultCacheTTL = 24 * time.Hour

// Explainer wraps a provider with caching and rate limiting
type Explainer struct {
	provider Provider
	cache    cache.Cache
	limiter  *worker.Limiter
	ttl      time.Duration
	logger   *slog.Logger
}

// NewExplainer creates an explainer. Cache and limiter may be nil.
func NewExplainer(provider Provider, c cache.Cache, limiter *worker.Limiter) *Explainer {
	return &Explainer{
		provider: provider,
		cache:    c,
		limiter:  limiter,
		ttl:      DefaultCacheTTL,
		logger:   slog.Default().With("component", "llm.explainer"),
	}
}

// Enabled reports whether a provider is configured
func (e *Explainer) Enabled() bool {
	return e != nil && e.provider != nil
}

// Explain returns a narrative for the run, optionally against a counterfactual
func (e *Explainer) Explain(ctx context.Context, run *model.DecisionRun, cf *model.CounterfactualResult) (*Explanation, error) {
	if !e.Enabled() {
		return nil, ErrDisabled
	}

	key := explanationKey(e.provider.Name(), run, cf)
	if e.cache != nil {
		var cached Explanation
		if cache.GetJSON(e.cache, key, &cached) {
			cached.Cached = true
			return &cached, nil
		}
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx, e.provider.Name()); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	exp, err := e.provider.Explain(ctx, ExplainRequest{Run: run, Counterfactual: cf})
	if err != nil {
		var leak *FigureLeakError
		if errors.As(err, &leak) {
			e.logger.Warn("narrative rejected", "run_id", run.RunID, "figure", leak.Figure)
		}
		return nil, err
	}

	if e.cache != nil {
		if err := cache.SetJSON(e.cache, key, exp, e.ttl); err != nil {
			e.logger.Debug("failed to cache narrative", "run_id", run.RunID, "error", err)
		}
	}
	return exp, nil
}

func explanationKey(provider string, run *model.DecisionRun, cf *model.CounterfactualResult) string {
	if cf == nil {
		return cache.Key("explain", provider, run.RunID)
	}
	return cache.Key("explain", provider, run.RunID, string(cf.ChangeType), cf.ChangeRef, cf.NewValue)
}
