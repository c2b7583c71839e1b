package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/turnstack"
	"github.com/aretw0/turnstack/internal/logging"
	"github.com/aretw0/turnstack/pkg/domain"
	"github.com/aretw0/turnstack/pkg/runner"
	"github.com/go-chi/chi/v5"
)

// Server exposes a dispatcher over HTTP.
type Server struct {
	Dispatcher *runner.Dispatcher
	Streams    *StreamManager

	metrics http.Handler
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsHandler mounts h (e.g. promhttp.Handler()) at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// NewHandler creates a new HTTP handler for the dispatcher.
func NewHandler(dispatcher *runner.Dispatcher, opts ...Option) http.Handler {
	server := &Server{
		Dispatcher: dispatcher,
		Streams:    NewStreamManager(),
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(server)
	}

	r := chi.NewRouter()
	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)
	r.Route("/conversations/{conversationID}", func(r chi.Router) {
		r.Post("/activities", server.PostActivity)
		r.Get("/stack", server.GetStack)
		r.Get("/events", server.SubscribeEvents)
		r.Delete("/", server.DeleteConversation)
	})
	if server.metrics != nil {
		r.Handle("/metrics", server.metrics)
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PostActivity handles POST /conversations/{id}/activities.
func (s *Server) PostActivity(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	var activity domain.Activity
	if err := json.NewDecoder(r.Body).Decode(&activity); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("PostActivity: Invalid request body", "err", err)
		return
	}
	// The path is authoritative.
	activity.ConversationID = conversationID

	reply, err := s.Dispatcher.Dispatch(r.Context(), activity)
	if err != nil {
		status := statusFor(err)
		http.Error(w, fmt.Sprintf("Turn error: %v", err), status)
		if status >= http.StatusInternalServerError {
			s.logger.Error("PostActivity: Turn failed", "conversation_id", conversationID, "err", err)
		}
		return
	}

	if bytes, err := json.Marshal(reply); err == nil {
		s.Streams.Broadcast(conversationID, string(bytes))
	}
	writeJSON(w, s.logger, reply)
}

// GetStack handles GET /conversations/{id}/stack.
func (s *Server) GetStack(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	path, err := s.Dispatcher.Stack(r.Context(), conversationID)
	if err != nil {
		http.Error(w, fmt.Sprintf("Stack error: %v", err), statusFor(err))
		s.logger.Error("GetStack failed", "conversation_id", conversationID, "err", err)
		return
	}
	writeJSON(w, s.logger, map[string]any{
		"conversation_id": conversationID,
		"path":            path,
	})
}

// DeleteConversation handles DELETE /conversations/{id}.
func (s *Server) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	if err := s.Dispatcher.Reset(r.Context(), conversationID); err != nil {
		http.Error(w, fmt.Sprintf("Reset error: %v", err), statusFor(err))
		s.logger.Error("DeleteConversation failed", "conversation_id", conversationID, "err", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, map[string]string{
		"app":     "turnstack-http",
		"version": strings.TrimSpace(turnstack.Version),
	})
}

// StreamManager handles active SSE connections
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // ConversationID -> Set of Channels
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
	}
}

func (sm *StreamManager) Subscribe(conversationID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[conversationID]; !ok {
		sm.subscribers[conversationID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[conversationID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[conversationID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, conversationID)
			}
		}
	}
}

// Broadcast delivers msg to every subscriber of the conversation. Slow clients drop messages.
func (sm *StreamManager) Broadcast(conversationID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[conversationID] {
		select {
		case ch <- msg:
		default:
		}
	}
}

// SubscribeEvents handles GET /conversations/{id}/events (SSE). Every reply of the
// conversation is pushed as one data event.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	conversationID := chi.URLParam(r, "conversationID")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(conversationID)
	defer cancel()
	s.logger.Info("SSE: Subscribing to conversation replies", "conversation_id", conversationID)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "conversation_id", conversationID)
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

// -- Helpers --

func statusFor(err error) int {
	switch {
	case errors.Is(err, runner.ErrInputTooLarge), errors.Is(err, runner.ErrInvalidUTF8):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDialogNotFound):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Response encode failed", "err", err)
	}
}
