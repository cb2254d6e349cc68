package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/decision-ledger/internal/cache"
	"github.com/ppiankov/decision-ledger/internal/catalog"
	"github.com/ppiankov/decision-ledger/internal/decision"
	"github.com/ppiankov/decision-ledger/internal/governance"
	"github.com/ppiankov/decision-ledger/internal/ledger"
	"github.com/ppiankov/decision-ledger/internal/llm"
	"github.com/ppiankov/decision-ledger/internal/metrics"
	"github.com/ppiankov/decision-ledger/internal/model"
	"github.com/ppiankov/decision-ledger/internal/qa"
	"github.com/ppiankov/decision-ledger/internal/worker"
)

// explainerKey is the limiter bucket shared by all LLM calls
const explainerKey = "openai"

// app wires the services every command needs
type app struct {
	cfg        model.Config
	store      *catalog.FileStore
	runs       ledger.Registry
	metrics    *metrics.Collector
	decisions  *decision.Service
	governance *governance.Service
	qa         *qa.Runner
	explainer  *llm.Explainer
	limiter    *worker.Limiter
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	runs, err := ledger.Open(ctx, cfg.Ledger)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	ttl := time.Duration(cfg.Cache.TTL) * time.Second
	if !cfg.Cache.Enabled {
		ttl = time.Nanosecond // re-read fixtures on every access
	}
	store := catalog.NewFileStore(cfg.Fixtures.Dir, ttl)

	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.Burst)
	limiter.SetKeyRate(explainerKey, 1, 3)

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		_ = runs.Close()
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	var narratives cache.Cache
	if cfg.Cache.Enabled {
		narratives = cache.NewLayeredCache(time.Duration(cfg.Cache.TTL)*time.Second, cfg.Cache.Dir, llm.DefaultCacheTTL)
	}

	collector := metrics.NewCollector(nil)

	return &app{
		cfg:        cfg,
		store:      store,
		runs:       runs,
		metrics:    collector,
		decisions:  decision.NewService(store, runs, collector),
		governance: governance.NewService(governance.NewMemoryStore()),
		qa:         qa.NewRunner(store, collector),
		explainer:  llm.NewExplainer(provider, narratives, limiter),
		limiter:    limiter,
	}, nil
}

func (a *app) Close() error {
	return a.runs.Close()
}

func (a *app) format() string {
	return a.cfg.Output.Format
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
