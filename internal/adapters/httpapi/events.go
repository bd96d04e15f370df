package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Guilhem-Bonnet/screencraft/internal/ports"
)

const eventsPingInterval = 15 * time.Second

// handleEvents diffuse les événements du bus en SSE.
// ?topic=home_screen filtre sur un préfixe de topic.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	prefix := strings.TrimSpace(r.URL.Query().Get("topic"))

	// sans bus, events reste nil et seul le ping est émis
	var events <-chan ports.Event
	if s.bus != nil {
		ch, cancel := s.bus.Subscribe()
		defer cancel()
		events = ch
	}

	ticker := time.NewTicker(eventsPingInterval)
	defer ticker.Stop()

	fmt.Fprintf(w, "event: hello\ndata: {\"status\":\"connected\"}\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if prefix != "" && !strings.HasPrefix(evt.Topic, prefix) {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Topic, evt.Payload)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprintf(w, "event: ping\ndata: {}\n\n")
			flusher.Flush()
		}
	}
}
