package storage

import (
	"context"
	"sync"
	"time"

	"github.com/dharsanguruparan/LoanDesk/internal/model"
)

// MemoryStore keeps records in a map guarded by an RWMutex: many concurrent
// readers, one writer at a time. Each write replaces the whole entry under the
// lock, so a reader sees either the old or the new record.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*model.RequestRecord
	now     func() time.Time
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*model.RequestRecord),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts a processing record for id.
func (m *MemoryStore) Create(_ context.Context, id, text string) (*model.RequestRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; ok {
		return nil, ErrDuplicateID
	}
	now := m.now()
	rec := &model.RequestRecord{
		ID:         id,
		Text:       text,
		Status:     model.StatusProcessing,
		Timestamp:  now,
		LastUpdate: now,
	}
	m.records[id] = rec
	return rec.Clone(), nil
}

// Update stores result and status for id.
func (m *MemoryStore) Update(_ context.Context, id string, result *model.Decision, status model.RequestStatus) (*model.RequestRecord, error) {
	if err := CheckResult(status, result); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := CheckTransition(current.Status, status); err != nil {
		return nil, err
	}
	// Build the replacement first and swap it in, leaving the previous value
	// untouched for any copy already handed out.
	next := current.Clone()
	next.Result = result.Clone()
	next.Status = status
	next.LastUpdate = m.now()
	m.records[id] = next
	return next.Clone(), nil
}

// Get returns a deep copy of the record for id.
func (m *MemoryStore) Get(_ context.Context, id string) (*model.RequestRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

// Len reports how many records are held.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
