package archive

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore keeps resolved escalations in process, for local/dev use.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string][]Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string][]Record)}
}

func (s *InMemoryStore) SaveRecord(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.ResolvedAt.IsZero() {
		record.ResolvedAt = time.Now().UTC()
	}
	s.records[record.ConversationID] = append(s.records[record.ConversationID], record)
	return nil
}

func (s *InMemoryStore) RecentRecords(_ context.Context, conversationID string, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.records[conversationID]
	if len(arr) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > len(arr) {
		limit = len(arr)
	}
	out := make([]Record, 0, limit)
	for i := len(arr) - limit; i < len(arr); i++ {
		out = append(out, arr[i])
	}
	return out, nil
}

func (s *InMemoryStore) Close() error { return nil }
