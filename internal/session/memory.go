package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// sweepInterval bounds how often Save scans for expired records.
const sweepInterval = time.Minute

// MemoryBackend keeps records in process memory. Intended for tests and local development.
type MemoryBackend struct {
	mu      sync.Mutex
	records map[string]Record
	now     func() time.Time
	swept   time.Time
}

// NewMemoryBackend returns an empty backend. A nil clock uses time.Now.
func NewMemoryBackend(now func() time.Time) *MemoryBackend {
	if now == nil {
		now = time.Now
	}
	return &MemoryBackend{records: make(map[string]Record), now: now, swept: now()}
}

// Load implements Backend.
func (m *MemoryBackend) Load(_ context.Context, id string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	if !rec.ExpiresAt.IsZero() && !m.now().Before(rec.ExpiresAt) {
		delete(m.records, id)
		return Record{}, ErrNotFound
	}
	return cloneRecord(rec), nil
}

// Save implements Backend.
func (m *MemoryBackend) Save(_ context.Context, id string, rec Record, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if now.Sub(m.swept) >= sweepInterval {
		m.sweepLocked(now)
	}
	if ttl > 0 {
		rec.ExpiresAt = now.Add(ttl).UTC()
	}
	m.records[id] = cloneRecord(rec)
	return nil
}

// sweepLocked evicts expired records. Callers hold m.mu.
func (m *MemoryBackend) sweepLocked(now time.Time) {
	for id, rec := range m.records {
		if !rec.ExpiresAt.IsZero() && !now.Before(rec.ExpiresAt) {
			delete(m.records, id)
		}
	}
	m.swept = now
}

// Delete implements Backend.
func (m *MemoryBackend) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

// Len returns the number of stored records, including ones that expired but were not yet evicted.
func (m *MemoryBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func cloneRecord(rec Record) Record {
	out := rec
	out.Values = make(map[string]json.RawMessage, len(rec.Values))
	for k, v := range rec.Values {
		out.Values[k] = append(json.RawMessage(nil), v...)
	}
	return out
}
