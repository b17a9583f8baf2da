package service

import (
	"fmt"

	"content_syncer/internal/domain"
)

// StrategyRegistry maps source types to their fetch strategies. It is
// populated once at startup; unknown types fail fast instead of silently
// no-opping.
type StrategyRegistry struct {
	strategies map[domain.SourceType]SourceStrategy
}

func NewStrategyRegistry(strategies ...SourceStrategy) *StrategyRegistry {
	m := make(map[domain.SourceType]SourceStrategy, len(strategies))
	for _, s := range strategies {
		m[s.Type()] = s
	}
	return &StrategyRegistry{strategies: m}
}

func (r *StrategyRegistry) Resolve(sourceType domain.SourceType) (SourceStrategy, error) {
	s, ok := r.strategies[sourceType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedSourceType, sourceType)
	}
	return s, nil
}
