package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aretw0/graphlab/internal/logging"
	"github.com/aretw0/graphlab/pkg/domain"
	"github.com/aretw0/graphlab/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodyBytes bounds the create request body.
const maxBodyBytes = 4 << 20

// Sessions is the session manager as seen by the transport.
type Sessions interface {
	Create(ctx context.Context, req session.CreateRequest) (string, error)
	Step(ctx context.Context, sessionID string) (domain.Event, error)
	Get(ctx context.Context, sessionID string) (*domain.SessionInfo, error)
	Events(ctx context.Context, sessionID string, after int64) ([]domain.Event, error)
	Adjacency(ctx context.Context, sessionID string) (map[domain.NodeID][]domain.Neighbor, error)
	Delete(ctx context.Context, sessionID string) error
	List(ctx context.Context) ([]string, error)
}

var _ Sessions = (*session.Manager)(nil)

// Server serves the session protocol over call/response HTTP and WebSocket.
type Server struct {
	Sessions Sessions
	Streams  *StreamManager

	logger  *slog.Logger
	metrics http.Handler
	version string
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsHandler replaces the default Prometheus handler on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithVersion sets the version reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// NewServer creates the transport for sessions.
func NewServer(sessions Sessions, opts ...Option) *Server {
	s := &Server{
		Sessions: sessions,
		logger:   logging.NewNop(),
		metrics:  promhttp.Handler(),
		version:  "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)
	return s
}

// NewHandler creates a new HTTP handler for sessions.
func NewHandler(sessions Sessions, opts ...Option) http.Handler {
	return NewServer(sessions, opts...).Routes()
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.Health)
	r.Get("/info", s.Info)
	r.Handle("/metrics", s.metrics)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.CreateSession)
		r.Get("/", s.ListSessions)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.DeleteSession)
			r.Post("/step", s.Step)
			r.Get("/events", s.Events)
			r.Get("/adj", s.Adjacency)
		})
	})
	r.Get("/ws/sessions/{id}", s.Stream)
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Info handles GET /info.
func (s *Server) Info(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"name":       "graphlab",
		"version":    s.version,
		"algorithms": []domain.Algorithm{domain.AlgorithmBFS, domain.AlgorithmDFS, domain.AlgorithmDijkstra},
	})
}

// CreateSession handles POST /sessions?algo=&start=.
// Query parameters take precedence over the body fields of the same meaning.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var body CreateSessionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		s.logger.Warn("CreateSession: Invalid request body", "err", err)
		s.writeError(w, fmt.Errorf("%w: invalid request body: %v", domain.ErrInvalidInput, err))
		return
	}
	if algo := r.URL.Query().Get("algo"); algo != "" {
		body.Algorithm = algo
	}
	if start := r.URL.Query().Get("start"); start != "" {
		body.Start = domain.NodeID(start)
	}
	if err := body.Validate(); err != nil {
		s.writeError(w, err)
		return
	}

	id, err := s.Sessions.Create(r.Context(), session.CreateRequest{
		Graph:     body.Graph(),
		Algorithm: domain.Algorithm(body.Algorithm),
		Start:     body.Start,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("Session created", "session_id", id, "algorithm", body.Algorithm)
	s.writeJSON(w, http.StatusCreated, CreateSessionResponse{SessionID: id})
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ids)
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.Sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Sessions.Delete(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.Streams.Close(id)
	w.WriteHeader(http.StatusNoContent)
}

// Step handles POST /sessions/{id}/step.
func (s *Server) Step(w http.ResponseWriter, r *http.Request) {
	ev, err := s.Sessions.Step(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	frame, err := EncodeEvent(ev)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(frame)
}

// Events handles GET /sessions/{id}/events?after=N.
func (s *Server) Events(w http.ResponseWriter, r *http.Request) {
	var after int64
	if raw := r.URL.Query().Get("after"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			s.writeError(w, fmt.Errorf("%w: after must be a non-negative integer", domain.ErrInvalidInput))
			return
		}
		after = n
	}
	events, err := s.Sessions.Events(r.Context(), chi.URLParam(r, "id"), after)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if events == nil {
		events = []domain.Event{}
	}
	s.writeJSON(w, http.StatusOK, events)
}

// Adjacency handles GET /sessions/{id}/adj.
func (s *Server) Adjacency(w http.ResponseWriter, r *http.Request) {
	adj, err := s.Sessions.Adjacency(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, adj)
}

// EncodeEvent is the single encoder for step events, shared by both transports.
func EncodeEvent(ev domain.Event) ([]byte, error) {
	return json.Marshal(ev)
}

// ErrorResponse is the body of every failed request and error frame.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// classify maps an error to its HTTP status and stable code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, domain.ErrSessionEnded):
		return http.StatusConflict, "session_ended"
	case errors.Is(err, domain.ErrStepInFlight):
		return http.StatusConflict, "step_in_flight"
	case errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", "err", err)
	}
	s.writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: code})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}
