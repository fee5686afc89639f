package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// Event is one compile progress message sent to SSE subscribers.
type Event struct {
	Type      string       `json:"type"` // stage, generation_error or done
	BuildID   string       `json:"build_id"`
	Stage     domain.Stage `json:"stage,omitempty"`
	Generator string       `json:"generator,omitempty"`
	NodeID    string       `json:"node_id,omitempty"`
	Success   *bool        `json:"success,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// StreamManager fans compile events out to the SSE subscribers of each project.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // ProjectID -> set of channels
	logger      *slog.Logger
}

// NewStreamManager creates a stream manager. A nil logger discards.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a buffered channel for projectID. The returned func
// unregisters and closes it.
func (sm *StreamManager) Subscribe(projectID string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 16)
	if _, ok := sm.subscribers[projectID]; !ok {
		sm.subscribers[projectID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[projectID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[projectID]; ok {
			if _, ok := subs[ch]; !ok {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, projectID)
			}
		}
	}
}

// Subscribers returns the number of live subscribers of projectID.
func (sm *StreamManager) Subscribers(projectID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[projectID])
}

// Broadcast sends msg to every subscriber of projectID. Slow subscribers drop messages.
func (sm *StreamManager) Broadcast(projectID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[projectID] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE: Client buffer full, dropping message", "project_id", projectID)
		}
	}
}

func (sm *StreamManager) publish(projectID string, e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		sm.logger.Error("SSE: Event encode failed", "err", err)
		return
	}
	sm.Broadcast(projectID, string(data))
}

// Hooks returns lifecycle hooks that publish compile progress.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStageEnter: func(_ context.Context, e *domain.StageEvent) {
			sm.publish(e.ProjectID, Event{Type: "stage", BuildID: e.BuildID, Stage: e.Stage})
		},
		OnGenerationError: func(_ context.Context, e *domain.GenerationEvent) {
			ev := Event{Type: "generation_error", BuildID: e.BuildID, Generator: e.Generator, NodeID: e.NodeID}
			if e.Err != nil {
				ev.Error = e.Err.Error()
			}
			sm.publish(e.ProjectID, ev)
		},
		OnCompileDone: func(_ context.Context, res *domain.Result) {
			success := res.Success
			sm.publish(res.ProjectID, Event{Type: "done", BuildID: res.BuildID, Stage: res.Stage, Success: &success})
		},
	}
}

// SubscribeEvents handles the GET /projects/{id}/events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	projectID := chi.URLParam(r, "id")
	ch, cancel := s.Streams.Subscribe(projectID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.logger.Debug("SSE: Subscribed", "project_id", projectID)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE: Client disconnected", "project_id", projectID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
