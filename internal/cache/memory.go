package cache

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/shuttle-fleet/internal/domain"
)

type memoryEntry struct {
	entries   []domain.FleetEntry
	expiresAt time.Time
}

// Memory is an in-process SnapshotCache. It is safe for concurrent use.
type Memory struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	items map[uuid.UUID]memoryEntry
}

// NewMemory returns a Memory cache whose entries live for ttl as measured by now.
// A nil now uses time.Now.
func NewMemory(ttl time.Duration, now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{ttl: ttl, now: now, items: map[uuid.UUID]memoryEntry{}}
}

func (m *Memory) Get(_ context.Context, tenantID uuid.UUID) ([]domain.FleetEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.items[tenantID]
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.items, tenantID)
		return nil, false, nil
	}
	return slices.Clone(e.entries), true, nil
}

func (m *Memory) Set(_ context.Context, tenantID uuid.UUID, entries []domain.FleetEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[tenantID] = memoryEntry{
		entries:   slices.Clone(entries),
		expiresAt: m.now().Add(m.ttl),
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, tenantID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, tenantID)
	return nil
}
