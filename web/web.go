// Package web implements the read-only monitoring front-end: a JSON
// snapshot of live sessions and a Server-Sent-Events stream of telemetry.
// It never influences protocol behavior; it only ever reads from the
// telemetry broker.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/foundry9/robonav/telemetry"
)

// Server serves the monitoring HTTP API.
type Server struct {
	httpServer *http.Server
	broker     *telemetry.Broker

	mu        sync.Mutex
	snapshots map[string]telemetry.Event
	ready     bool
}

// New creates a monitoring Server backed by broker. It subscribes to
// broker immediately so /api/sessions has data even before the first
// client connects to /api/events.
func New(broker *telemetry.Broker) *Server {
	s := &Server{
		broker:    broker,
		snapshots: make(map[string]telemetry.Event),
	}

	ch, _ := broker.Subscribe()
	go s.trackSnapshots(ch)

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions", s.handleSessions).Methods(http.MethodGet)
	r.HandleFunc("/api/events", s.handleSSE).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) trackSnapshots(ch <-chan telemetry.Event) {
	for ev := range ch {
		s.mu.Lock()
		if ev.Kind == telemetry.Closed {
			delete(s.snapshots, ev.SessionID)
		} else {
			s.snapshots[ev.SessionID] = ev
		}
		s.mu.Unlock()
	}
}

// MarkReady records that the protocol listener is bound, so /healthz can
// report readiness.
func (s *Server) MarkReady() {
	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()
}

// Serve starts the HTTP server on lis.
func (s *Server) Serve(lis net.Listener) error {
	if err := s.httpServer.Serve(lis); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("web: serve: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("web: shutdown: %w", err)
	}
	return nil
}

// Handler returns the HTTP handler, for testing.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	ready := s.ready
	s.mu.Unlock()
	if !ready {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleSessions(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := make([]telemetry.Event, 0, len(s.snapshots))
	for _, ev := range s.snapshots {
		out = append(out, ev)
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	ch, unsub := s.broker.Subscribe()
	defer unsub()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
	_, _ = w.Write([]byte("\n"))
}
