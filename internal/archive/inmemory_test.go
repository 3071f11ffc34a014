package archive

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestInMemoryStoreSaveAndRecent(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := s.SaveRecord(ctx, Record{
			ConversationID: "c1",
			RequestID:      fmt.Sprintf("req-%d", i),
			TriggerType:    "user_frustration",
			Severity:       "high",
			Priority:       3,
			QueuedAt:       base.Add(time.Duration(i) * time.Minute),
			ResolvedAt:     base.Add(time.Duration(i+1) * time.Minute),
			Resolution:     "transfer_to_ai",
		})
		if err != nil {
			t.Fatalf("SaveRecord() error = %v", err)
		}
	}

	records, err := s.RecentRecords(ctx, "c1", 3)
	if err != nil {
		t.Fatalf("RecentRecords() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(records))
	}
	if records[0].RequestID != "req-2" || records[2].RequestID != "req-4" {
		t.Fatalf("wrong window or order: %+v", records)
	}
	for _, r := range records {
		if r.ID == "" {
			t.Fatalf("record should get a generated id: %+v", r)
		}
	}
}

func TestInMemoryStoreUnknownConversation(t *testing.T) {
	s := NewInMemoryStore()
	records, err := s.RecentRecords(context.Background(), "missing", 10)
	if err != nil {
		t.Fatalf("RecentRecords() error = %v", err)
	}
	if records != nil {
		t.Fatalf("records = %+v, want nil", records)
	}
}

func TestNewStoreDefaultsToInMemory(t *testing.T) {
	s, err := NewStore(context.Background(), "  ")
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if _, ok := s.(*InMemoryStore); !ok {
		t.Fatalf("store type = %T, want *InMemoryStore", s)
	}
}
