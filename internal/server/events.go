package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Event is emitted when the shared dataset changes.
type Event struct {
	ID         int64     `json:"id"`
	Type       string    `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	DatasetSHA string    `json:"dataset_sha256"`
	Funds      int       `json:"funds"`
	GrandTotal float64   `json:"grand_total_millions"`
}

func (s *Service) publish(typ string, ds *Dataset) {
	s.mu.Lock()
	s.nextEventID++
	ev := Event{
		ID:         s.nextEventID,
		Type:       typ,
		Timestamp:  time.Now(),
		DatasetSHA: ds.SHA256,
		Funds:      len(ds.Agg.Funds),
		GrandTotal: ds.Agg.GrandTotal,
	}
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current dataset immediately.
	if ds, err := s.current(); err == nil {
		writeSSE(w, Event{
			Type:       "snapshot",
			Timestamp:  time.Now(),
			DatasetSHA: ds.SHA256,
			Funds:      len(ds.Agg.Funds),
			GrandTotal: ds.Agg.GrandTotal,
		})
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
