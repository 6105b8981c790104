package prices

import (
	"sync"

	"github.com/vitos/sentiment_mint/internal/domain"
)

// StaticSource returns a fixed snapshot. Set can replace it at runtime.
type StaticSource struct {
	mu   sync.RWMutex
	snap domain.PriceSnapshot
}

// NewStaticSource serves exactly the given prices; zero is a valid price.
func NewStaticSource(assetA, assetB float64) *StaticSource {
	return &StaticSource{snap: domain.PriceSnapshot{AssetA: assetA, AssetB: assetB}}
}

func (s *StaticSource) GetPrices() domain.PriceSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *StaticSource) Set(snap domain.PriceSnapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}
