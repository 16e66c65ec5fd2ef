package market

import (
	"context"
	"sync"
)

// BarStore is an in-memory BarSource keyed by symbol. Safe for concurrent
// use; each Set replaces the previous bar for that symbol.
type BarStore struct {
	mu   sync.RWMutex
	bars map[string]Bar
}

func NewBarStore() *BarStore {
	return &BarStore{bars: make(map[string]Bar)}
}

func (s *BarStore) Set(b Bar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bars[b.Symbol] = b
}

func (s *BarStore) LatestBar(_ context.Context, symbol string) (Bar, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bars[symbol]
	return b, ok, nil
}
