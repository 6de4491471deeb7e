package catalog

import (
	"sync"
)

// Store provides access to the eligibility table used by the splitter.
type Store interface {
	Table() (Table, error)
	SetTable(table Table) error
}

// MemoryStore keeps the eligibility table in-memory and guards access with a RWMutex.
type MemoryStore struct {
	mu    sync.RWMutex
	table Table
}

// NewMemoryStore returns an empty store. Table reports ErrNoTable until SetTable succeeds.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Table returns a defensive copy of the current eligibility table.
func (s *MemoryStore) Table() (Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.table == nil {
		return nil, ErrNoTable
	}
	return s.table.Clone(), nil
}

// SetTable validates, normalises, and stores the provided table.
func (s *MemoryStore) SetTable(table Table) error {
	normalized, err := Normalize(table)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.table = normalized
	s.mu.Unlock()

	return nil
}
