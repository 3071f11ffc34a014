package httpapi

import (
	"log"
	"net/http"
	"time"
)

const eventWriteTimeout = 10 * time.Second

// handleEventsWS streams engine notifications to an operator console. The
// feed is one-way; inbound frames are read only to detect the client going
// away.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("events ws: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	subID, events := s.eng.Hub().Subscribe()
	defer s.eng.Hub().Unsubscribe(subID)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}
