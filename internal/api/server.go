package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/clive/sprint-carryover/internal/carryover"
	"github.com/clive/sprint-carryover/internal/journal"
)

// History is the read side of the run journal
type History interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
	Get(ctx context.Context, id string) (journal.Entry, error)
}

// Server owns one session and serialises every request against it
type Server struct {
	mu      sync.Mutex
	session *carryover.Session
	runner  *carryover.Runner
	history History
	logger  *zap.Logger
}

// NewServer creates a server. history may be nil.
func NewServer(session *carryover.Session, runner *carryover.Runner, history History, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		session: session,
		runner:  runner,
		history: history,
		logger:  logger,
	}
}

type idRequest struct {
	ID string `json:"id"`
}

type itemRequest struct {
	Included *bool `json:"included"`
}

// Health handles GET /health
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetSession handles GET /session
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, newSessionView(s.session))
}

// Reload handles POST /session/reload
func (s *Server) Reload(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runner.Drive(r.Context(), s.session, s.session.Load())
	writeJSON(w, http.StatusOK, newSessionView(s.session))
}

// SetSource handles PUT /session/source
func (s *Server) SetSource(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if req.ID != "" && !s.session.HasIteration(req.ID) {
		writeError(w, http.StatusNotFound, carryover.ErrUnknownIteration.Error()+": "+req.ID)
		return
	}

	s.runner.Drive(r.Context(), s.session, s.session.SelectSource(req.ID))
	writeJSON(w, http.StatusOK, newSessionView(s.session))
}

// SetDestination handles PUT /session/destination
func (s *Server) SetDestination(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if req.ID != "" && !s.session.HasIteration(req.ID) {
		writeError(w, http.StatusNotFound, carryover.ErrUnknownIteration.Error()+": "+req.ID)
		return
	}

	s.runner.Drive(r.Context(), s.session, s.session.SelectDestination(req.ID))
	writeJSON(w, http.StatusOK, newSessionView(s.session))
}

// SetItem handles PUT /session/items/{id}
func (s *Server) SetItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid work item id")
		return
	}
	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Included == nil {
		writeError(w, http.StatusBadRequest, "included is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.session.Toggle(id, *req.Included); err != nil {
		if errors.Is(err, carryover.ErrUnknownItem) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(s.session))
}

// SelectAll handles POST /session/select-all
func (s *Server) SelectAll(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.SelectAll()
	writeJSON(w, http.StatusOK, newSessionView(s.session))
}

// SelectNone handles POST /session/select-none
func (s *Server) SelectNone(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.SelectNone()
	writeJSON(w, http.StatusOK, newSessionView(s.session))
}

// CarryOver handles POST /session/carryover. The run completes before the
// response is written.
func (s *Server) CarryOver(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	effects, err := s.session.StartCarryOver()
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	// A started run finishes even if the client goes away
	ctx := context.WithoutCancel(r.Context())
	resp := CarryOverResponse{}
	if finished := s.runner.Drive(ctx, s.session, effects); finished != nil {
		resp.RunID = finished.RunID
		resp.Report = finished.Report
	}

	s.logger.Info("carry-over via api",
		zap.String("request", GetRequestID(r)),
		zap.String("run", resp.RunID),
		zap.Int("succeeded", resp.Report.Succeeded),
		zap.Int("attempted", resp.Report.Attempted))
	resp.Session = newSessionView(s.session)
	writeJSON(w, http.StatusOK, resp)
}

// ListRuns handles GET /runs?limit=N
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "run history is disabled")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// GetRun handles GET /runs/{id}
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "run history is disabled")
		return
	}
	entry, err := s.history.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, journal.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
