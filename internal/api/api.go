// Package api provides the HTTP and WebSocket surface of the screening
// service.
//
// It exposes RESTful endpoints for session creation, study listings, and
// stored interview results, plus the per-session WebSocket over which the
// interview conversation runs.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/medscreen/medscreen/internal/eligibility"
	"github.com/medscreen/medscreen/internal/genai"
	"github.com/medscreen/medscreen/internal/models"
	"github.com/medscreen/medscreen/internal/notify"
	"github.com/medscreen/medscreen/internal/screening"
	"github.com/medscreen/medscreen/internal/store"
	"github.com/medscreen/medscreen/internal/study"
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr     string
	Notifier notify.Notifier
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address (default ":8000").
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithNotifier enables staff notifications when a verdict is produced.
func WithNotifier(n notify.Notifier) Option {
	return func(o *Opts) { o.Notifier = n }
}

// Server wires the conversation core, evaluator, catalog, and store behind
// HTTP handlers.
type Server struct {
	addr      string
	catalog   *study.Catalog
	client    genai.ClientInterface
	store     store.Store
	evaluator *eligibility.Evaluator
	notifier  notify.Notifier

	mu       sync.Mutex
	sessions map[string]*interviewSession
}

// interviewSession is the per-session server state. Its mutex serializes
// turns: the coordinator is single-threaded per session.
type interviewSession struct {
	mu          sync.Mutex
	session     *models.ParticipantSession
	coordinator *screening.Coordinator
	study       *study.Study
	transcript  []models.TranscriptMessage
	createdAt   time.Time
	started     bool
	finished    bool
}

// NewServer creates the API server.
func NewServer(catalog *study.Catalog, client genai.ClientInterface, st store.Store, evaluator *eligibility.Evaluator, opts ...Option) *Server {
	cfg := Opts{Addr: ":8000"}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		addr:      cfg.Addr,
		catalog:   catalog,
		client:    client,
		store:     st,
		evaluator: evaluator,
		notifier:  cfg.Notifier,
		sessions:  make(map[string]*interviewSession),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sessions/start", s.startSessionHandler)
	mux.HandleFunc("GET /api/studies", s.listStudiesHandler)
	mux.HandleFunc("GET /api/studies/{id}", s.getStudyHandler)
	mux.HandleFunc("GET /api/interviews/{participant_id}", s.getInterviewHandler)
	mux.HandleFunc("GET /api/sessions/{session_id}/progress", s.progressHandler)
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws/{session_id}", s.wsHandler)
	return mux
}

// Run starts the HTTP server and blocks.
func (s *Server) Run() error {
	slog.Info("api.Run: server starting", "addr", s.addr)
	return http.ListenAndServe(s.addr, s.Handler())
}

type startSessionRequest struct {
	StudyID string `json:"study_id"`
}

type startSessionResponse struct {
	SessionID     string `json:"session_id"`
	ParticipantID string `json:"participant_id"`
	StudyID       string `json:"study_id"`
	CreatedAt     string `json:"created_at"`
}

func (s *Server) startSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.StudyID == "" {
		writeError(w, http.StatusBadRequest, "study_id is required")
		return
	}

	st, err := s.catalog.Study(req.StudyID)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("study %s not found", req.StudyID))
		return
	}

	session := models.NewParticipantSession()
	coordinator, err := screening.NewCoordinator(session, st,
		screening.NewLLMClassifier(s.client), screening.NewLLMResponder(s.client))
	if err != nil {
		slog.Error("api.startSessionHandler: coordinator construction failed", "error", err, "studyID", st.ID)
		writeError(w, http.StatusInternalServerError, "failed to start session")
		return
	}

	is := &interviewSession{
		session:     session,
		coordinator: coordinator,
		study:       st,
		createdAt:   time.Now().UTC(),
	}
	s.mu.Lock()
	s.sessions[session.SessionID] = is
	s.mu.Unlock()

	slog.Info("api.startSessionHandler: session started", "sessionID", session.SessionID,
		"participantID", session.ParticipantID, "studyID", st.ID)
	writeJSON(w, http.StatusOK, startSessionResponse{
		SessionID:     session.SessionID,
		ParticipantID: session.ParticipantID,
		StudyID:       st.ID,
		CreatedAt:     is.createdAt.Format(time.RFC3339),
	})
}

func (s *Server) listStudiesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"studies": s.catalog.Summaries()})
}

func (s *Server) getStudyHandler(w http.ResponseWriter, r *http.Request) {
	st, err := s.catalog.Study(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "study not found")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) getInterviewHandler(w http.ResponseWriter, r *http.Request) {
	participantID := r.PathValue("participant_id")
	rec, err := s.store.GetInterview(participantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "interview not found")
			return
		}
		slog.Error("api.getInterviewHandler: lookup failed", "error", err, "participantID", participantID)
		writeError(w, http.StatusInternalServerError, "failed to load interview")
		return
	}

	resp := map[string]any{"interview": rec}
	if verdict, err := s.store.GetVerdict(rec.SessionID); err == nil {
		resp["eligibility"] = verdict
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) progressHandler(w http.ResponseWriter, r *http.Request) {
	is := s.lookupSession(r.PathValue("session_id"))
	if is == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	is.mu.Lock()
	progress := is.coordinator.Progress()
	is.mu.Unlock()
	writeJSON(w, http.StatusOK, progress)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services": map[string]string{
			"store":     "ready",
			"evaluator": "ready",
		},
	})
}

func (s *Server) lookupSession(sessionID string) *interviewSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[sessionID]
}

func (s *Server) dropSession(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("api.writeJSON: encoding failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
