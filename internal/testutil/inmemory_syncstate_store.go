package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/AnserBeg/rent-soft-sub001/internal/domain/syncstate"
)

// InMemorySyncStateStore implements syncstate.Repository for tests.
type InMemorySyncStateStore struct {
	mu     sync.RWMutex
	states map[string]*syncstate.SyncState
}

func NewInMemorySyncStateStore() *InMemorySyncStateStore {
	return &InMemorySyncStateStore{states: make(map[string]*syncstate.SyncState)}
}

func syncStateKey(companyID int, entityName string) string {
	return fmt.Sprintf("%d:%s", companyID, entityName)
}

func (s *InMemorySyncStateStore) Get(_ context.Context, companyID int, entityName string) (*syncstate.SyncState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[syncStateKey(companyID, entityName)]
	if !ok {
		return nil, nil
	}
	clone := *state
	return &clone, nil
}

func (s *InMemorySyncStateStore) Upsert(_ context.Context, state *syncstate.SyncState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *state
	s.states[syncStateKey(state.CompanyID, state.EntityName)] = &clone
	return nil
}
