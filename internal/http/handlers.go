package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"medical-voice-agent/internal/db"
	"medical-voice-agent/internal/logging"
	"medical-voice-agent/pkg"
)

const maxBodyBytes = 1 << 20

// SessionStore is the persistence the handlers need.  *db.Repository
// implements it.
type SessionStore interface {
	CreateSession(ctx context.Context, notes string, doctor pkg.Doctor, createdBy string) (*pkg.SessionDetail, error)
	GetSession(ctx context.Context, sessionID string) (*pkg.SessionDetail, error)
	ListSessions(ctx context.Context) ([]pkg.SessionDetail, error)
	SaveReport(ctx context.Context, sessionID string, report *pkg.Report, conversation []pkg.Utterance) error
}

// ReportGenerator produces a normalized report for a finished conversation.
type ReportGenerator interface {
	Generate(ctx context.Context, req pkg.ReportRequest) (*pkg.Report, error)
}

// DoctorSuggester picks doctors for a patient's notes.
type DoctorSuggester interface {
	Suggest(ctx context.Context, notes string) ([]pkg.Doctor, error)
}

// ReportNotifier publishes and subscribes to report-ready events.
type ReportNotifier interface {
	Notify(ctx context.Context, sessionID string) error
	Listen(ctx context.Context) (<-chan string, error)
}

// Server bundles together the dependencies required by HTTP handlers.  It
// implements http.Handler so it can be passed to http.ListenAndServe.
type Server struct {
	Repo      SessionStore
	Reports   ReportGenerator
	Suggester DoctorSuggester
	Notifier  ReportNotifier
	Doctors   []pkg.Doctor
}

// NewServer constructs a Server.  notifier may be nil, in which case no
// report-ready events are published and the stream endpoint is disabled.
func NewServer(repo SessionStore, reports ReportGenerator, suggester DoctorSuggester, notifier ReportNotifier, doctors []pkg.Doctor) *Server {
	return &Server{
		Repo:      repo,
		Reports:   reports,
		Suggester: suggester,
		Notifier:  notifier,
		Doctors:   doctors,
	}
}

// ServeHTTP dispatches incoming requests based on the URL path.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	path := r.URL.Path
	defer func() {
		logging.Debugw("http: request", "method", r.Method, "path", path, "duration_ms", time.Since(start).Milliseconds())
	}()
	switch {
	case path == "/api/session-chat" && r.Method == http.MethodGet:
		s.handleGetSession(w, r)
	case path == "/api/session-chat" && r.Method == http.MethodPost:
		s.handleCreateSession(w, r)
	case path == "/api/medical-report" && r.Method == http.MethodPost:
		s.handleMedicalReport(w, r)
	case path == "/api/suggest-doctors" && r.Method == http.MethodPost:
		s.handleSuggestDoctors(w, r)
	case path == "/api/doctors" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, s.Doctors)
	case path == "/api/reports/stream" && r.Method == http.MethodGet:
		s.handleReportStream(w, r)
	case path == "/healthz":
		io.WriteString(w, "ok")
	default:
		http.NotFound(w, r)
	}
}

// handleGetSession returns one session, or the full history when
// sessionId=all.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := strings.TrimSpace(r.URL.Query().Get("sessionId"))
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "Session ID is required", "")
		return
	}
	if sessionID == "all" {
		sessions, err := s.Repo.ListSessions(ctx)
		if err != nil {
			logging.Errorw("session-chat: list failed", "err", err)
			writeError(w, http.StatusInternalServerError, "Failed to load sessions", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, sessions)
		return
	}
	sess, err := s.Repo.GetSession(ctx, sessionID)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Session not found", "")
		return
	}
	if err != nil {
		logging.Errorw("session-chat: get failed", append(logging.SessionFields(sessionID), "err", err)...)
		writeError(w, http.StatusInternalServerError, "Failed to load session", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// handleCreateSession starts a new consultation with the selected doctor.
// A doctor given only by id is completed from the catalog.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req pkg.CreateSessionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	doctor, ok := s.resolveDoctor(req.SelectedDoctor)
	if !ok {
		writeError(w, http.StatusBadRequest, "A valid selectedDoctor is required", "")
		return
	}
	sess, err := s.Repo.CreateSession(r.Context(), req.Notes, doctor, r.Header.Get("X-User-Email"))
	if err != nil {
		logging.Errorw("session-chat: create failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to create session", err.Error())
		return
	}
	logging.Infow("session-chat: created", append(logging.SessionFields(sess.SessionID), logging.DoctorFields(doctor.ID, doctor.Specialist)...)...)
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) resolveDoctor(d pkg.Doctor) (pkg.Doctor, bool) {
	for _, known := range s.Doctors {
		if known.ID == d.ID {
			return known, true
		}
	}
	// unknown personas are accepted as long as they can drive a call
	if d.ID != 0 && d.Specialist != "" {
		return d, true
	}
	return pkg.Doctor{}, false
}

// handleMedicalReport generates, stores and returns the report for a
// finished conversation.  Requests without a session id or without
// messages are rejected before anything is generated or written.
func (s *Server) handleMedicalReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req pkg.ReportRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		logging.Warnw("medical-report: missing session id")
		writeError(w, http.StatusBadRequest, "Session ID is required", "")
		return
	}
	fields := logging.SessionFields(req.SessionID)
	if len(req.Messages) == 0 {
		logging.Warnw("medical-report: no messages", fields...)
		writeError(w, http.StatusBadRequest, "No conversation messages found", "")
		return
	}
	logging.Infow("medical-report: generating", append(fields, "messages", len(req.Messages))...)

	report, err := s.Reports.Generate(ctx, req)
	if err != nil {
		logging.Errorw("medical-report: generation failed", append(fields, "err", err)...)
		writeError(w, http.StatusInternalServerError, "Failed to generate medical report", err.Error())
		return
	}
	if err := s.Repo.SaveReport(ctx, req.SessionID, report, req.Messages); err != nil {
		logging.Errorw("medical-report: save failed", append(fields, "err", err)...)
		writeError(w, http.StatusInternalServerError, "Failed to generate medical report", err.Error())
		return
	}
	if s.Notifier != nil {
		if err := s.Notifier.Notify(ctx, req.SessionID); err != nil {
			logging.Warnw("medical-report: notify failed", append(fields, "err", err)...)
		}
	}
	logging.Infow("medical-report: saved", append(fields, "severity", report.Severity)...)
	writeJSON(w, http.StatusOK, report)
}

// handleSuggestDoctors always answers with a list of doctors; the
// suggester falls back to the head of the catalog on failure.
func (s *Server) handleSuggestDoctors(w http.ResponseWriter, r *http.Request) {
	var req pkg.SuggestDoctorsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	doctors, err := s.Suggester.Suggest(r.Context(), req.Notes)
	if err != nil {
		logging.Warnw("suggest-doctors: using fallback", "err", err)
	}
	writeJSON(w, http.StatusOK, doctors)
}

// handleReportStream streams a report_ready event for every saved report
// until the client disconnects.
func (s *Server) handleReportStream(w http.ResponseWriter, r *http.Request) {
	if s.Notifier == nil {
		http.NotFound(w, r)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	ids, err := s.Notifier.Listen(r.Context())
	if err != nil {
		logging.Errorw("reports-stream: listen failed", "err", err)
		http.Error(w, "stream unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	for id := range ids {
		if err := writeReportEvent(w, id); err != nil {
			logging.Debugw("reports-stream: client gone", "err", err)
			return
		}
		flusher.Flush()
	}
}

func writeReportEvent(w io.Writer, sessionID string) error {
	data, err := json.Marshal(map[string]string{"type": "report_ready", "sessionId": sessionID})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: report_ready\ndata: %s\n\n", data)
	return err
}

func decodeBody(r *http.Request, v interface{}) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debugw("http: encode response failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, pkg.ErrorResponse{Error: msg, Details: details})
}
