package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/praxishq/praxis/internal/trainer"
	"github.com/praxishq/praxis/pkg/models"
)

// StartSessionRequest is the body of POST /api/v1/training/sessions
type StartSessionRequest struct {
	Topic     string   `json:"topic"`
	Mode      string   `json:"mode"`
	Platforms []string `json:"platforms,omitempty"`
	GoalID    string   `json:"goal_id,omitempty"`
}

// RespondFeedbackRequest is the body of POST /api/v1/feedback/{id}/respond
type RespondFeedbackRequest struct {
	Response string `json:"response"`
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req StartSessionRequest
		if err := s.parseJSON(r, &req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		session, err := s.trainer.StartSession(req.Topic, models.TrainingMode(req.Mode), req.Platforms, req.GoalID)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.respondJSON(w, http.StatusAccepted, map[string]interface{}{
			"session_id": session.ID,
			"status":     session.Status,
		})

	case http.MethodGet:
		limit := parseLimit(r, 50)
		sessions, err := s.trainer.ListSessions(limit)
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := s.extractID(r.URL.Path, "/api/v1/training/sessions")
	if sessionID == "" {
		s.respondError(w, http.StatusBadRequest, "session id required")
		return
	}

	session, err := s.trainer.GetSessionStatus(sessionID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if session == nil {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}
	s.respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"topics": trainer.Topics(),
		"modes":  []models.TrainingMode{models.ModeAllTrain, models.ModeSingleTeaches},
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := map[string]interface{}{
		"workers": s.workerStatus(),
	}
	if s.feedback != nil {
		status["recent_updates"] = s.feedback.Recent(20)
		status["pending_feedback"] = s.feedback.PendingCount()
	}
	s.respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.model == nil {
		s.respondError(w, http.StatusServiceUnavailable, "capability model disabled")
		return
	}

	resp := map[string]interface{}{
		"scores": s.model.Scores(),
	}
	if s.selfTrain != nil {
		resp["gaps"] = s.selfTrain.Gaps()
	} else {
		resp["gaps"] = s.model.AnalyzeGaps()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.selfTrain == nil {
		s.respondError(w, http.StatusServiceUnavailable, "self-training disabled")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{"goals": s.selfTrain.Goals()})
}

func (s *Server) handleFeedbackList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.feedback == nil {
		s.respondError(w, http.StatusServiceUnavailable, "feedback channel disabled")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{"requests": s.feedback.ListRequests()})
}

// handleFeedback serves GET /api/v1/feedback/{id} and
// POST /api/v1/feedback/{id}/respond
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if s.feedback == nil {
		s.respondError(w, http.StatusServiceUnavailable, "feedback channel disabled")
		return
	}

	feedbackID := s.extractID(r.URL.Path, "/api/v1/feedback")
	if feedbackID == "" {
		s.respondError(w, http.StatusBadRequest, "feedback id required")
		return
	}

	if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/respond") {
		var req RespondFeedbackRequest
		if err := s.parseJSON(r, &req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.Response == "" {
			s.respondError(w, http.StatusBadRequest, "response is required")
			return
		}
		if err := s.feedback.ProvideFeedback(feedbackID, req.Response); err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req := s.feedback.GetRequest(feedbackID)
	if req == nil {
		s.respondError(w, http.StatusNotFound, "feedback request not found")
		return
	}
	s.respondJSON(w, http.StatusOK, req)
}

func (s *Server) handleThreads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.threads == nil {
		s.respondError(w, http.StatusServiceUnavailable, "thread store disabled")
		return
	}

	threads, err := s.threads.GetThreads(parseLimit(r, 50))
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"threads": threads})
}

func (s *Server) handleThread(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.threads == nil {
		s.respondError(w, http.StatusServiceUnavailable, "thread store disabled")
		return
	}

	threadID := s.extractID(r.URL.Path, "/api/v1/threads")
	if threadID == "" {
		s.respondError(w, http.StatusBadRequest, "thread id required")
		return
	}

	thread, err := s.threads.GetThread(threadID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if thread == nil {
		s.respondError(w, http.StatusNotFound, "thread not found")
		return
	}
	s.respondJSON(w, http.StatusOK, thread)
}

func parseLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return def
	}
	return limit
}
