package settlement

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository keeps settlements in process memory. It hands out deep
// copies so callers never share mutable state with the store or each other.
type MemoryRepository struct {
	mu          sync.RWMutex
	settlements map[string]*Settlement
	archive     map[string][]*DisasterEvent
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		settlements: make(map[string]*Settlement),
		archive:     make(map[string][]*DisasterEvent),
	}
}

func (m *MemoryRepository) Get(ctx context.Context, id string) (*Settlement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.settlements[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryRepository) List(ctx context.Context) ([]*Settlement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Settlement, 0, len(m.settlements))
	for _, s := range m.settlements {
		out = append(out, s.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out, nil
}

func (m *MemoryRepository) Save(ctx context.Context, s *Settlement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.settlements[s.Id] = s.Clone()
	return nil
}

func (m *MemoryRepository) ArchiveDisaster(ctx context.Context, settlementId string, ev *DisasterEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := *ev
	m.archive[settlementId] = append(m.archive[settlementId], &c)
	return nil
}

// ArchivedDisasters returns the archived disasters for a settlement.
func (m *MemoryRepository) ArchivedDisasters(settlementId string) []*DisasterEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]*DisasterEvent(nil), m.archive[settlementId]...)
}
