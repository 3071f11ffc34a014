package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/mbellotti/handoff/internal/config"
	"github.com/mbellotti/handoff/internal/engine"
	"github.com/mbellotti/handoff/internal/observability"
	"github.com/mbellotti/handoff/internal/session"
)

// Server exposes the escalation engine to the chat front-end, the operator
// console, and the dashboard. It is glue only; all semantics live in the
// engine.
type Server struct {
	cfg      config.Config
	eng      *engine.Engine
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

func New(cfg config.Config, eng *engine.Engine, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:     cfg,
		eng:     eng,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Browser consoles must come from the same origin unless
				// explicitly opened up; non-browser clients omit Origin.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/sessions", s.handleRegisterSession)
	r.Get("/v1/sessions/{id}", s.handleGetSession)
	r.Post("/v1/sessions/{id}/messages", s.handleRecordMessage)
	r.Post("/v1/sessions/{id}/transfer", s.handleTransferToHuman)
	r.Post("/v1/sessions/{id}/resume", s.handleTransferToAI)
	r.Get("/v1/sessions/{id}/archive", s.handleSessionArchive)

	r.Get("/v1/operators", s.handleListOperators)
	r.Post("/v1/operators", s.handleAddOperator)
	r.Post("/v1/operators/{id}/release", s.handleReleaseOperator)

	r.Get("/v1/stats", s.handleStats)
	r.Get("/v1/events/ws", s.handleEventsWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

type registerRequest struct {
	ConversationID string         `json:"conversation_id"`
	UserID         string         `json:"user_id"`
	Context        map[string]any `json:"context,omitempty"`
}

func (s *Server) handleRegisterSession(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.ConversationID) == "" {
		respondError(w, http.StatusBadRequest, "missing_conversation_id", "conversation_id is required")
		return
	}
	sess, err := s.eng.RegisterSession(req.ConversationID, req.UserID, req.Context)
	if errors.Is(err, engine.ErrSessionExists) {
		respondError(w, http.StatusConflict, "session_exists", err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "register_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, sess)
}

type messageRequest struct {
	Content  string         `json:"content"`
	Sender   session.Sender `json:"sender"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (s *Server) handleRecordMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req messageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Sender == "" {
		req.Sender = session.SenderUser
	}
	if !s.eng.RecordMessage(id, req.Content, req.Sender, req.Metadata) {
		respondError(w, http.StatusNotFound, "session_not_found", "unknown conversation id")
		return
	}
	snapshot, _ := s.eng.SessionStatus(id)
	respondJSON(w, http.StatusAccepted, snapshot)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snapshot, ok := s.eng.SessionStatus(id)
	if !ok {
		respondError(w, http.StatusNotFound, "session_not_found", "unknown conversation id")
		return
	}
	out := map[string]any{"session": snapshot}
	if req, ok := s.eng.Request(id); ok {
		out["intervention_request"] = req
	}
	respondJSON(w, http.StatusOK, out)
}

type transferRequest struct {
	OperatorID string `json:"operator_id"`
}

func (s *Server) handleTransferToHuman(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req transferRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if !s.eng.TransferToHuman(id, req.OperatorID) {
		respondError(w, http.StatusConflict, "transfer_rejected", "no matching intervention request or operator unavailable")
		return
	}
	snapshot, _ := s.eng.SessionStatus(id)
	respondJSON(w, http.StatusOK, snapshot)
}

type resumeRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleTransferToAI(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req resumeRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Reason == "" {
		req.Reason = "resolved"
	}
	if !s.eng.TransferToAI(id, req.Reason) {
		respondError(w, http.StatusConflict, "resume_rejected", "session is not human_active")
		return
	}
	snapshot, _ := s.eng.SessionStatus(id)
	respondJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleSessionArchive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}
	records, err := s.eng.Archive().RecentRecords(r.Context(), id, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "archive_unavailable", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"records": records})
}

type addOperatorRequest struct {
	Name   string   `json:"name"`
	Skills []string `json:"skills"`
}

func (s *Server) handleAddOperator(w http.ResponseWriter, r *http.Request) {
	var req addOperatorRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondError(w, http.StatusBadRequest, "missing_name", "name is required")
		return
	}
	op := s.eng.Operators().Add(req.Name, req.Skills)
	respondJSON(w, http.StatusCreated, op)
}

func (s *Server) handleListOperators(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"operators": s.eng.Operators().Snapshot()})
}

func (s *Server) handleReleaseOperator(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.eng.Operators().Release(id) {
		respondError(w, http.StatusNotFound, "operator_not_found", "unknown operator id")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"released": true})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.eng.Stats())
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty request body")

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
