package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/praxishq/praxis/internal/capability"
	"github.com/praxishq/praxis/internal/feedback"
	"github.com/praxishq/praxis/internal/metrics"
	"github.com/praxishq/praxis/internal/queue"
	"github.com/praxishq/praxis/internal/selftrain"
	"github.com/praxishq/praxis/internal/trainer"
	"github.com/praxishq/praxis/pkg/models"
)

// ThreadStore is the read-only slice of the store the API serves
type ThreadStore interface {
	GetThread(threadID string) (*models.Thread, error)
	GetThreads(limit int) ([]*models.Thread, error)
}

// Server exposes the orchestration core over HTTP. Handlers only
// enqueue work or read published snapshots; they never mutate
// orchestrator state directly.
type Server struct {
	trainer   *trainer.Manager
	selfTrain *selftrain.System
	feedback  *feedback.Channel
	model     *capability.Model
	threads   ThreadStore
	metrics   *metrics.Metrics
}

// NewServer creates an API server. selfTrain and threads may be nil
// when those subsystems are disabled.
func NewServer(tm *trainer.Manager, st *selftrain.System, fb *feedback.Channel, model *capability.Model, threads ThreadStore, m *metrics.Metrics) *Server {
	return &Server{
		trainer:   tm,
		selfTrain: st,
		feedback:  fb,
		model:     model,
		threads:   threads,
		metrics:   m,
	}
}

// SetupRoutes configures HTTP routes
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/health", s.handleHealth)

	mux.HandleFunc("/api/v1/training/sessions", s.handleSessions)
	mux.HandleFunc("/api/v1/training/sessions/", s.handleSession)
	mux.HandleFunc("/api/v1/training/topics", s.handleTopics)

	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/capabilities", s.handleCapabilities)
	mux.HandleFunc("/api/v1/goals", s.handleGoals)

	mux.HandleFunc("/api/v1/feedback", s.handleFeedbackList)
	mux.HandleFunc("/api/v1/feedback/", s.handleFeedback)

	mux.HandleFunc("/api/v1/threads", s.handleThreads)
	mux.HandleFunc("/api/v1/threads/", s.handleThread)

	mux.Handle("/metrics", promhttp.Handler())

	return s.metricsMiddleware(mux)
}

// metricsMiddleware records request counts and latencies
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, fmt.Sprintf("%d", rec.status)).Inc()
		s.metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Helper functions

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// parseJSON parses JSON request body
func (s *Server) parseJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// extractID extracts ID from URL path
func (s *Server) extractID(path, prefix string) string {
	id := strings.TrimPrefix(path, prefix)
	id = strings.TrimPrefix(id, "/")
	id = strings.TrimSuffix(id, "/")

	parts := strings.Split(id, "/")
	if len(parts) > 0 {
		return parts[0]
	}
	return id
}

// workerStatus collects the status of every running worker
func (s *Server) workerStatus() []queue.Status {
	var statuses []queue.Status
	if s.trainer != nil {
		statuses = append(statuses, s.trainer.Worker().GetStatus())
	}
	if s.selfTrain != nil {
		statuses = append(statuses, s.selfTrain.Worker().GetStatus())
	}
	return statuses
}
