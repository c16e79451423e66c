package store

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
)

// Memory keeps edit logs in process memory. It is used by tests and by
// servers started with DATABASE_URL=memory:.
type Memory struct {
	mu    sync.RWMutex
	rooms map[string][]json.RawMessage
	limit int
}

func NewMemory(opts Options) *Memory {
	return &Memory{
		rooms: make(map[string][]json.RawMessage),
		limit: opts.Limit,
	}
}

func (m *Memory) AppendEditRecord(_ context.Context, roomID, _ string, payload json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[roomID] = append(m.rooms[roomID], slices.Clone(payload))
	return nil
}

func (m *Memory) FetchEditHistory(_ context.Context, roomID string) ([]json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := m.rooms[roomID]
	if m.limit > 0 && len(records) > m.limit {
		records = records[len(records)-m.limit:]
	}

	out := make([]json.RawMessage, len(records))
	for i, r := range records {
		out[i] = slices.Clone(r)
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
