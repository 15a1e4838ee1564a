package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/KevinKickass/ioplusd/internal/types"
)

// MemoryStore keeps everything in process memory. Used when no database is
// configured.
type MemoryStore struct {
	mu     sync.RWMutex
	boards map[string]types.BoardDefinition
	units  map[string]map[int]types.UnitState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		boards: make(map[string]types.BoardDefinition),
		units:  make(map[string]map[int]types.UnitState),
	}
}

func (m *MemoryStore) SaveBoard(_ context.Context, def types.BoardDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, other := range m.boards {
		if name != def.Name && other.Stack == def.Stack {
			return fmt.Errorf("stack %d already used by board %s", def.Stack, name)
		}
	}
	m.boards[def.Name] = def
	return nil
}

func (m *MemoryStore) LoadBoards(_ context.Context) ([]types.BoardDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	boards := make([]types.BoardDefinition, 0, len(m.boards))
	for _, def := range m.boards {
		boards = append(boards, def)
	}
	sort.Slice(boards, func(i, j int) bool { return boards[i].Stack < boards[j].Stack })
	return boards, nil
}

func (m *MemoryStore) DeleteBoard(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.boards[name]; !ok {
		return fmt.Errorf("board %s: %w", name, ErrNotFound)
	}
	delete(m.boards, name)
	delete(m.units, name)
	return nil
}

func (m *MemoryStore) SaveUnit(_ context.Context, st types.UnitState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.boards[st.Board]; !ok {
		return fmt.Errorf("board %s: %w", st.Board, ErrNotFound)
	}
	units, ok := m.units[st.Board]
	if !ok {
		units = make(map[int]types.UnitState)
		m.units[st.Board] = units
	}
	units[st.Unit] = st
	return nil
}

func (m *MemoryStore) LoadUnits(_ context.Context, board string) ([]types.UnitState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	units := make([]types.UnitState, 0, len(m.units[board]))
	for _, st := range m.units[board] {
		units = append(units, st)
	}
	sort.Slice(units, func(i, j int) bool { return units[i].Unit < units[j].Unit })
	return units, nil
}
