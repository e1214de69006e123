package history

import (
	"context"
	"sync"
)

// MemoryStore keeps snapshots in memory. Used when no table is
// reachable and in tests.
type MemoryStore struct {
	mu      sync.Mutex
	records []Record
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Save(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec = NewRecord(rec.SessionID, rec.Conversation, rec.Feedback)
	}
	s.records = append(s.records, rec)
	return nil
}

// Records returns a copy of everything saved so far.
func (s *MemoryStore) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}
