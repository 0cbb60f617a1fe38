package app

import (
	"fmt"

	"github.com/okian/plotpath/internal/config"
	"github.com/okian/plotpath/internal/domain/factor"
	"github.com/okian/plotpath/internal/domain/verdict"
)

// ConfigOptions translates a validated Config into Service options.
func ConfigOptions(cfg *config.Config) ([]Option, error) {
	factors := make([]factor.Factor, 0, len(cfg.Factors))
	for _, fc := range cfg.Factors {
		v, err := factor.ParseVolatility(fc.Volatility)
		if err != nil {
			return nil, fmt.Errorf("factor %q: %w", fc.Key, err)
		}
		factors = append(factors, factor.Factor{
			Key:          fc.Key,
			Name:         fc.Name,
			Volatility:   v,
			TTL:          fc.TTL(),
			Instructions: fc.Instructions,
			Weight:       fc.Weight,
		})
	}
	return []Option{
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.QueueSize),
		WithDedupeSize(cfg.DedupeSize),
		WithShardCount(cfg.ShardCount),
		WithResearchTimeout(cfg.ResearchTimeout()),
		WithClassTTL(factor.Stable, cfg.StableTTL()),
		WithClassTTL(factor.Volatile, cfg.VolatileTTL()),
		WithEscalationThreshold(cfg.EscalationThreshold),
		WithPolicy(verdict.Policy{
			MinMatch:         cfg.GoMatchThreshold,
			MinDesirability:  cfg.GoDesirabilityThreshold,
			MinRequiredMatch: cfg.NoGoRequiredThreshold,
		}),
		WithFactors(factors...),
	}, nil
}
