package http

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/firestream"
	"github.com/aretw0/firestream/pkg/domain"
	"github.com/aretw0/firestream/pkg/stream"
)

// ActionRequest is the body of POST /actions.
type ActionRequest struct {
	Kind   string         `json:"kind"`
	Key    string         `json:"key,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// ActionResult reports the key of an accepted action and, when the caller
// waited for it, its outcome.
type ActionResult struct {
	Key   string `json:"key"`
	Value any    `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// Server exposes a running driver over HTTP.
type Server struct {
	Sources *firestream.Sources
	Actions chan<- domain.Action

	logger  *slog.Logger
	metrics http.Handler

	mu   sync.Mutex
	refs map[string]*firestream.Reference
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger. Default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics mounts h on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// NewHandler creates the HTTP handler for a driver: actions are pushed into
// actions, and sources are streamed as server-sent events.
func NewHandler(sources *firestream.Sources, actions chan<- domain.Action, opts ...Option) http.Handler {
	server := &Server{
		Sources: sources,
		Actions: actions,
		logger:  slog.New(slog.NewJSONHandler(io.Discard, nil)),
		refs:    make(map[string]*firestream.Reference),
	}
	for _, opt := range opts {
		opt(server)
	}

	r := chi.NewRouter()
	r.Post("/actions", server.PostAction)
	r.Get("/responses/{key}", server.GetResponses)
	r.Get("/refs", server.GetRef)
	r.Get("/refs/*", server.GetRef)
	r.Get("/auth/state", server.GetAuthState)
	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)
	if server.metrics != nil {
		r.Method(http.MethodGet, "/metrics", server.metrics)
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PostAction handles POST /actions.
//
// The action is pushed into the driver and 202 is returned with its key (a
// fresh one when the body has none). Responses are not replayed, so a client
// streaming GET /responses/{key} must connect before posting. With
// ?wait=true the handler itself waits for the result and answers 200, or 422
// when the backend call failed.
func (s *Server) PostAction(w http.ResponseWriter, r *http.Request) {
	var body ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("PostAction: invalid request body", "err", err)
		return
	}
	if body.Key == "" {
		body.Key = domain.NewKey()
	}

	action, err := domain.DecodeAction(body.Kind, body.Key, body.Fields)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid action: %v", err), http.StatusBadRequest)
		s.logger.Warn("PostAction: invalid action", "kind", body.Kind, "err", err)
		return
	}

	wait := r.URL.Query().Get("wait") == "true"
	var results <-chan stream.Notification[any]
	if wait {
		results = s.Sources.Responses(r.Context(), body.Key)
	}

	select {
	case s.Actions <- action:
	case <-r.Context().Done():
		return
	}
	s.logger.Debug("PostAction: accepted", "kind", action.Kind(), "key", body.Key)

	if !wait {
		writeJSON(w, http.StatusAccepted, ActionResult{Key: body.Key})
		return
	}

	n, ok := <-results
	switch {
	case !ok:
		http.Error(w, "Driver stopped", http.StatusServiceUnavailable)
	case n.Err != nil:
		writeJSON(w, http.StatusUnprocessableEntity, ActionResult{Key: body.Key, Error: n.Err.Error()})
	default:
		writeJSON(w, http.StatusOK, ActionResult{Key: body.Key, Value: n.Value})
	}
}

// GetResponses handles GET /responses/{key} (SSE).
func (s *Server) GetResponses(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	serveEvents(s, w, r, s.Sources.Responses(r.Context(), key))
}

// GetRef handles GET /refs/{path}?event=value (SSE).
func (s *Server) GetRef(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("event")
	if name == "" {
		name = string(domain.EventValue)
	}
	event, err := domain.ParseEventType(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ref := s.ref(chi.URLParam(r, "*"))
	serveEvents(s, w, r, ref.Events(event).Subscribe(r.Context()))
}

// ref returns one node per normalized path, so clients streaming the same
// location share its backend listener.
func (s *Server) ref(path string) *firestream.Reference {
	node := s.Sources.Database.Ref(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.refs[node.Path()]; ok {
		return cached
	}
	s.refs[node.Path()] = node
	return node
}

// GetAuthState handles GET /auth/state (SSE).
func (s *Server) GetAuthState(w http.ResponseWriter, r *http.Request) {
	serveEvents(s, w, r, s.Sources.Auth.AuthState().Subscribe(r.Context()))
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "firestream-http",
		"version": strings.TrimSpace(firestream.Version),
	})
}

// serveEvents writes every notification of ch as a server-sent event: values
// as "data:" lines, errors as "event: error". It returns when ch is closed.
func serveEvents[T any](s *Server, w http.ResponseWriter, r *http.Request, ch <-chan stream.Notification[T]) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SSE: streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.logger.Debug("SSE: client connected", "path", r.URL.Path)

	for n := range ch {
		if n.Err != nil {
			data, _ := json.Marshal(map[string]string{"error": n.Err.Error()})
			fmt.Fprintf(w, "event: error\ndata: %s\n\n", data)
			flusher.Flush()
			continue
		}
		data, err := json.Marshal(n.Value)
		if err != nil {
			s.logger.Warn("SSE: value not encodable", "path", r.URL.Path, "err", err)
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	s.logger.Debug("SSE: stream ended", "path", r.URL.Path, "client_gone", r.Context().Err() != nil)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
