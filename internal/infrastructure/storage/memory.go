package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/vitos/sentiment_mint/internal/domain"
)

// MemoryStore is a process-local, append-only registry guarded by a mutex.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*domain.MintRecord
	ids     map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ids: make(map[string]struct{})}
}

func (s *MemoryStore) Append(ctx context.Context, record *domain.MintRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.ids[record.ID]; dup {
		return fmt.Errorf("duplicate mint id %s", record.ID)
	}
	cp := *record
	s.records = append(s.records, &cp)
	s.ids[record.ID] = struct{}{}
	return nil
}

func (s *MemoryStore) ListAll(ctx context.Context) ([]*domain.MintRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.MintRecord, len(s.records))
	for i, r := range s.records {
		cp := *r
		out[i] = &cp
	}
	return out, nil
}
