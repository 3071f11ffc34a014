package session

import (
	"fmt"
	"testing"
	"time"
)

func TestAppendCapsRollingWindow(t *testing.T) {
	s := &Session{ID: "c1"}
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < RecentLimit+10; i++ {
		s.Append(Message{
			ID:        fmt.Sprintf("m-%d", i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Sender:    SenderUser,
			Content:   "hi",
		})
	}

	if len(s.Messages) != RecentLimit+10 {
		t.Fatalf("full transcript length = %d, want %d", len(s.Messages), RecentLimit+10)
	}
	if len(s.Recent) != RecentLimit {
		t.Fatalf("rolling window length = %d, want %d", len(s.Recent), RecentLimit)
	}
	if s.Recent[0].ID != "m-10" {
		t.Fatalf("oldest rolling message = %q, want m-10", s.Recent[0].ID)
	}
	if !s.LastActivityAt.Equal(base.Add(time.Duration(RecentLimit+9) * time.Second)) {
		t.Fatalf("LastActivityAt = %v, want last message timestamp", s.LastActivityAt)
	}
}

func TestConfidenceExtraction(t *testing.T) {
	m := Message{Metadata: map[string]any{"confidence": 0.3}}
	if v, ok := m.Confidence(); !ok || v != 0.3 {
		t.Fatalf("Confidence() = (%v, %v), want (0.3, true)", v, ok)
	}

	m = Message{Metadata: map[string]any{"confidence": "high"}}
	if _, ok := m.Confidence(); ok {
		t.Fatalf("non-numeric confidence should not parse")
	}

	m = Message{}
	if _, ok := m.Confidence(); ok {
		t.Fatalf("missing metadata should not parse")
	}
}

func TestStatusAIControlled(t *testing.T) {
	if !StatusAIActive.AIControlled() || !StatusAIResumed.AIControlled() {
		t.Fatalf("ai_active and ai_resumed should both be AI-controlled")
	}
	if StatusHumanPending.AIControlled() || StatusHumanActive.AIControlled() {
		t.Fatalf("pending/active human states should not be AI-controlled")
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := &Session{ID: "c1", Context: map[string]any{"vipUser": true}}
	s.Append(Message{ID: "m1", Timestamp: time.Now(), Sender: SenderUser, Content: "hi"})
	s.InterventionHistory = append(s.InterventionHistory, TransferRecord{Type: TransferToHuman})

	c := s.Clone()
	c.Messages[0].Content = "changed"
	c.InterventionHistory[0].Type = TransferToAI

	if s.Messages[0].Content != "hi" {
		t.Fatalf("clone shares message backing array")
	}
	if s.InterventionHistory[0].Type != TransferToHuman {
		t.Fatalf("clone shares history backing array")
	}
	if !s.VIP() {
		t.Fatalf("VIP() = false, want true")
	}
}
