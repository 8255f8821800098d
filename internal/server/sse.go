package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/cv-refiner/internal/events"
)

// eventBuffer is how many session events a slow client may fall behind by
const eventBuffer = 64

// SSEWriter helps write Server-Sent Events
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter creates a new SSE writer
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent sends an SSE event
func (s *SSEWriter) WriteEvent(event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\n", event); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", jsonData); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// WriteKeepAlive sends a comment line so proxies keep the connection open
func (s *SSEWriter) WriteKeepAlive() error {
	if _, err := fmt.Fprint(s.w, ": keep-alive\n\n"); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// WriteError sends an error event
func (s *SSEWriter) WriteError(message string) {
	s.WriteEvent("error", map[string]string{"error": message}) //nolint:errcheck
}

// handleEvents streams a session's events. The first event is a snapshot of the current state.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}

	queue := make(chan events.Event, eventBuffer)
	unsubscribe, err := s.service.Subscribe(r.Context(), id, func(evt events.Event) {
		// Bus handlers must not block the store; a client that falls this far behind loses events
		select {
		case queue <- evt:
		default:
			s.logger.Warn("dropping event for slow subscriber",
				zap.String("session_id", id.String()),
				zap.String("event", string(evt.Type)),
			)
		}
	})
	if err != nil {
		s.failure(w, r, err)
		return
	}
	defer unsubscribe()

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	snap, err := s.service.Snapshot(r.Context(), id)
	if err != nil {
		sse.WriteError(err.Error())
		return
	}
	if err := sse.WriteEvent("snapshot", snap); err != nil {
		return
	}

	keepAlive := time.NewTicker(s.cfg.KeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-queue:
			if err := sse.WriteEvent(string(evt.Type), evt); err != nil {
				s.logger.Debug("event stream closed", zap.String("session_id", id.String()), zap.Error(err))
				return
			}
		case <-keepAlive.C:
			if err := sse.WriteKeepAlive(); err != nil {
				return
			}
		}
	}
}
