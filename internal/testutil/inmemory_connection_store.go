package testutil

import (
	"context"
	"sync"

	"github.com/AnserBeg/rent-soft-sub001/internal/domain/connection"
)

// InMemoryConnectionStore implements connection.Repository for tests.
type InMemoryConnectionStore struct {
	mu          sync.RWMutex
	connections map[int]*connection.Connection
}

func NewInMemoryConnectionStore() *InMemoryConnectionStore {
	return &InMemoryConnectionStore{connections: make(map[int]*connection.Connection)}
}

func (s *InMemoryConnectionStore) Get(_ context.Context, companyID int) (*connection.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conn, ok := s.connections[companyID]
	if !ok {
		return nil, nil
	}
	clone := *conn
	return &clone, nil
}

func (s *InMemoryConnectionStore) Upsert(_ context.Context, conn *connection.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *conn
	s.connections[conn.CompanyID] = &clone
	return nil
}

func (s *InMemoryConnectionStore) Delete(_ context.Context, companyID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.connections, companyID)
	return nil
}
