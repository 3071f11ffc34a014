package notify

import (
	"sync"
	"time"
)

type EventType string

const (
	EventInterventionQueued EventType = "intervention_queued"
	EventOperatorAssigned   EventType = "operator_assigned"
	EventTransferToHuman    EventType = "transfer_to_human"
	EventTransferToAI       EventType = "transfer_to_ai"
	EventSessionCleaned     EventType = "session_cleaned"
	EventQueueRejected      EventType = "queue_rejected"
)

// Event is a fire-and-forget notification for operator consoles and
// dashboards. Delivery is best effort; the engine never waits on consumers.
type Event struct {
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversation_id,omitempty"`
	RequestID      string    `json:"request_id,omitempty"`
	OperatorID     string    `json:"operator_id,omitempty"`
	TriggerType    string    `json:"trigger_type,omitempty"`
	Priority       int       `json:"priority,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	At             time.Time `json:"at"`
}

const subscriberBuffer = 64

// Hub fans events out to subscribers. A subscriber that falls behind loses
// events rather than stalling the publisher.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event)}
}

func (h *Hub) Subscribe() (int, <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	ch := make(chan Event, subscriberBuffer)
	h.subs[id] = ch
	return id, ch
}

func (h *Hub) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Publish delivers the event to every subscriber without blocking.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
