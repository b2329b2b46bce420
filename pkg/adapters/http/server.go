package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/aretw0/stepwise"
	"github.com/aretw0/stepwise/internal/logging"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/hierarchy"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

// ErrUnknownSession is returned for keys with no active wizard.
var ErrUnknownSession = errors.New("no active session for key")

// WizardFactory builds the wizard for a session key.
type WizardFactory func(sessionKey string) (*stepwise.Wizard, error)

// Server exposes wizards over HTTP. One wizard is kept per session key
// between requests.
type Server struct {
	factory WizardFactory
	Streams *StreamManager
	logger  *slog.Logger
	metrics http.Handler

	mu      sync.Mutex
	wizards map[string]*stepwise.Wizard
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// NewServer creates a Server that builds wizards with factory.
func NewServer(factory WizardFactory, opts ...Option) *Server {
	s := &Server{
		factory: factory,
		logger:  logging.NewNop(),
		wizards: make(map[string]*stepwise.Wizard),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)
	return s
}

// NewHandler creates the HTTP handler for factory.
func NewHandler(factory WizardFactory, opts ...Option) http.Handler {
	return NewServer(factory, opts...).Routes()
}

// Routes returns the router of s.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.GetHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/sessions/{key}", func(r chi.Router) {
		r.Post("/", s.StartSession)
		r.Get("/", s.GetSession)
		r.Delete("/", s.AbandonSession)
		r.Get("/options", s.GetOptions)
		r.Post("/selection", s.ChangeSelection)
		r.Post("/submit", s.Submit)
		r.Post("/retreat", s.Retreat)
		r.Post("/jump/{index}", s.Jump)
		r.Post("/dismiss", s.Dismiss)
		r.Get("/events", s.SubscribeEvents)
	})

	return enableCORS(r)
}

// Close releases every active wizard.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, wz := range s.wizards {
		wz.Close()
		delete(s.wizards, key)
	}
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+domain.HeaderIdempotency)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// StartSession handles POST /sessions/{key}. It resumes a saved session
// when one exists.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	s.mu.Lock()
	wz, ok := s.wizards[key]
	if !ok {
		var err error
		wz, err = s.factory(key)
		if err != nil {
			s.mu.Unlock()
			s.logger.Error("StartSession: factory failed", "session_key", key, "err", err)
			s.writeError(w, err, nil)
			return
		}
		s.wizards[key] = wz
	}
	s.mu.Unlock()

	view, err := wz.Start(r.Context())
	if err != nil {
		s.logger.Error("StartSession failed", "session_key", key, "err", err)
		s.writeError(w, err, nil)
		return
	}
	s.respond(w, key, view, http.StatusOK)
}

// GetSession handles GET /sessions/{key}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	wz, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toSessionView(wz.View()))
}

// AbandonSession handles DELETE /sessions/{key}.
func (s *Server) AbandonSession(w http.ResponseWriter, r *http.Request) {
	wz, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := wz.Abandon(r.Context()); err != nil {
		s.writeError(w, err, wz)
		return
	}
	s.settle(w, wz)
}

// GetOptions handles GET /sessions/{key}/options. The optional q parameter
// filters items by name.
func (s *Server) GetOptions(w http.ResponseWriter, r *http.Request) {
	wz, ok := s.lookup(w, r)
	if !ok {
		return
	}
	data, err := wz.Options(r.Context())
	if err != nil {
		s.writeError(w, err, wz)
		return
	}
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" && data.HasOptions() {
		data.Groups = hierarchy.Search(data.Groups, q)
	}

	view := wz.View()
	selected, _ := view.Payloads.Selection(view.Current().ID)
	writeJSON(w, http.StatusOK, toOptionsView(data, selected))
}

type selectionRequest struct {
	IDs domain.Selection `json:"ids"`
}

// ChangeSelection handles POST /sessions/{key}/selection. It reports the
// uncommitted selection of the active step and returns the reloaded options
// of the step that depends on it. A request overtaken by a newer one gets 409.
func (s *Server) ChangeSelection(w http.ResponseWriter, r *http.Request) {
	wz, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var body selectionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("ChangeSelection: Invalid request body", "err", err)
		return
	}

	data, err := wz.UpstreamChanged(r.Context(), body.IDs).Wait(r.Context())
	if err != nil {
		s.writeError(w, err, wz)
		return
	}
	writeJSON(w, http.StatusOK, toOptionsView(data, domain.EmptySelection()))
}

// Submit handles POST /sessions/{key}/submit. The body is a payload
// envelope: {"kind":"selection","data":{"ids":[...]}}.
func (s *Server) Submit(w http.ResponseWriter, r *http.Request) {
	wz, ok := s.lookup(w, r)
	if !ok {
		return
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Submit: Invalid request body", "err", err)
		return
	}
	payload, err := domain.DecodePayload(raw)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid payload: %v", err), http.StatusBadRequest)
		s.logger.Warn("Submit: Invalid payload", "err", err)
		return
	}

	if err := wz.Submit(r.Context(), payload); err != nil {
		s.writeError(w, err, wz)
		return
	}
	s.settle(w, wz)
}

// Retreat handles POST /sessions/{key}/retreat.
func (s *Server) Retreat(w http.ResponseWriter, r *http.Request) {
	wz, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := wz.Retreat(r.Context()); err != nil {
		s.writeError(w, err, wz)
		return
	}
	s.settle(w, wz)
}

// Jump handles POST /sessions/{key}/jump/{index}.
func (s *Server) Jump(w http.ResponseWriter, r *http.Request) {
	wz, ok := s.lookup(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, "Invalid step index", http.StatusBadRequest)
		return
	}
	if err := wz.JumpTo(r.Context(), index); err != nil {
		s.writeError(w, err, wz)
		return
	}
	s.respond(w, wz.Key(), wz.View(), http.StatusOK)
}

// Dismiss handles POST /sessions/{key}/dismiss.
func (s *Server) Dismiss(w http.ResponseWriter, r *http.Request) {
	wz, ok := s.lookup(w, r)
	if !ok {
		return
	}
	wz.DismissError()
	s.respond(w, wz.Key(), wz.View(), http.StatusOK)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	active := len(s.wizards)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": active})
}

// SubscribeEvents handles GET /sessions/{key}/events (SSE). Every state
// change of the session is pushed as a SessionView.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch, unsubscribe := s.Streams.Subscribe(key)
	defer unsubscribe()
	s.logger.Debug("SSE: Client subscribed", "session_key", key)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE: Client disconnected", "session_key", key)
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

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*stepwise.Wizard, bool) {
	key := chi.URLParam(r, "key")
	s.mu.Lock()
	wz, ok := s.wizards[key]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorView{Error: fmt.Sprintf("%v: %s", ErrUnknownSession, key)})
		return nil, false
	}
	return wz, true
}

// settle responds with the session view after a transition. A completed or
// abandoned session is dropped from the registry and its wizard closed.
func (s *Server) settle(w http.ResponseWriter, wz *stepwise.Wizard) {
	view := wz.View()
	if !view.Open() {
		s.mu.Lock()
		if s.wizards[wz.Key()] == wz {
			delete(s.wizards, wz.Key())
		}
		s.mu.Unlock()
		wz.Close()
		s.logger.Debug("Session released", "session_key", wz.Key(), "status", view.Status)
	}
	s.respond(w, wz.Key(), view, http.StatusOK)
}

func (s *Server) respond(w http.ResponseWriter, key string, view *domain.Session, status int) {
	v := toSessionView(view)
	s.broadcast(key, v)
	writeJSON(w, status, v)
}

func (s *Server) broadcast(key string, v SessionView) {
	if s.Streams.Subscribers(key) == 0 {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("SSE: Failed to encode session view", "session_key", key, "err", err)
		return
	}
	s.Streams.Broadcast(key, string(b))
}

// writeError maps engine errors to status codes. Step failures carry the
// session so clients can render the transient error.
func (s *Server) writeError(w http.ResponseWriter, err error, wz *stepwise.Wizard) {
	resp := ErrorView{Error: err.Error()}
	status := http.StatusInternalServerError

	var stepErr *domain.StepError
	switch {
	case errors.As(err, &stepErr):
		status = http.StatusBadGateway
		resp.Error = stepErr.Message
		resp.Severity = stepErr.Severity
	case errors.Is(err, domain.ErrGateViolation),
		errors.Is(err, domain.ErrPayloadKind),
		errors.Is(err, domain.ErrInvalidJump):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidSteps):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionClosed),
		errors.Is(err, domain.ErrBusy),
		errors.Is(err, domain.ErrStale):
		status = http.StatusConflict
	}

	if wz != nil {
		view := toSessionView(wz.View())
		resp.Session = &view
		s.broadcast(wz.Key(), view)
	}
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		s.logger.Error("Request failed", "err", err)
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encode failed", "err", err)
	}
}
