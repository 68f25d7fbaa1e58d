package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/KevinKickass/OpenPLCConsole/internal/types"
	"github.com/google/uuid"
)

// MemoryStore keeps devices in process memory. It backs the console when no
// database is configured, and the tests.
type MemoryStore struct {
	mu      sync.RWMutex
	devices map[string]types.DeviceRecord
	order   []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		devices: make(map[string]types.DeviceRecord),
	}
}

func (m *MemoryStore) SaveDevice(ctx context.Context, rec types.DeviceRecord) (types.DeviceRecord, error) {
	if err := ctx.Err(); err != nil {
		return types.DeviceRecord{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if _, exists := m.devices[rec.ID]; !exists {
		m.order = append(m.order, rec.ID)
	}

	stored := rec.Clone()
	m.devices[rec.ID] = stored
	return stored.Clone(), nil
}

func (m *MemoryStore) GetDevice(ctx context.Context, id string) (types.DeviceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.devices[id]
	if !ok {
		return types.DeviceRecord{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	return rec.Clone(), nil
}

// ListDevices returns devices sorted by name, then by creation order.
func (m *MemoryStore) ListDevices(ctx context.Context) ([]types.DeviceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	devices := make([]types.DeviceRecord, 0, len(m.order))
	for _, id := range m.order {
		devices = append(devices, m.devices[id].Clone())
	}

	sort.SliceStable(devices, func(i, j int) bool {
		return devices[i].Name < devices[j].Name
	})
	return devices, nil
}

func (m *MemoryStore) DeleteDevice(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.devices[id]; !ok {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}

	delete(m.devices, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryStore) Close() {}
