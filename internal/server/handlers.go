package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dealerstudio/internal/core"
	"dealerstudio/internal/persistence"
	"dealerstudio/internal/pipeline"
	"dealerstudio/internal/selector"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// HealthResponse is returned by /health
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// GenerateRequest is the body of POST /api/content/generate
type GenerateRequest struct {
	UserID string   `json:"userId" validate:"required,max=128"`
	CarIDs []string `json:"carIds" validate:"max=20,dive,required,max=128"`
}

// GenerateResponse wraps every generate outcome
type GenerateResponse struct {
	Success   bool                 `json:"success"`
	Result    *core.PipelineResult `json:"result,omitempty"`
	Error     string               `json:"error,omitempty"`
	Timestamp string               `json:"timestamp"`
}

// RankedCarsResponse is returned by the ranking endpoint
type RankedCarsResponse struct {
	Success   bool               `json:"success"`
	Scores    []core.CarScore    `json:"scores"`
	Skipped   []selector.Skipped `json:"skipped,omitempty"`
	Timestamp string             `json:"timestamp"`
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

var serverStartTime = time.Now()

// handleHealth handles the /health endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"uptime": time.Since(serverStartTime).Round(time.Second).String()}

	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			checks["database"] = "error"
			s.respondJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Checks: checks})
			return
		}
		checks["database"] = "ok"
	}

	s.respondJSON(w, http.StatusOK, HealthResponse{Status: "ok", Checks: checks})
}

// handleGenerateContent handles POST /api/content/generate
func (s *Server) handleGenerateContent(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.respondError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	result, err := s.service.GenerateWeeklyContent(r.Context(), req.UserID, req.CarIDs)
	if err != nil {
		s.respondError(w, statusFor(err), err.Error())
		return
	}

	if err := s.service.Persist(r.Context(), result); err != nil {
		// The batch is still returned; the dealer can save it again from the client
		s.log.Error().Err(err).Str("run_id", result.RunID).Msg("Failed to persist generated content")
	}

	s.respondJSON(w, http.StatusOK, GenerateResponse{
		Success:   true,
		Result:    result,
		Timestamp: s.timestamp(),
	})
}

// handleRankedCars handles GET /api/dealers/{userID}/cars/ranked
func (s *Server) handleRankedCars(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	count := 0
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "count must be a non-negative integer")
			return
		}
		count = n
	}

	ranking, err := s.service.RankCars(r.Context(), userID, count)
	if err != nil {
		s.respondError(w, statusFor(err), err.Error())
		return
	}

	scores := ranking.Scores
	if scores == nil {
		scores = []core.CarScore{}
	}
	s.respondJSON(w, http.StatusOK, RankedCarsResponse{
		Success:   true,
		Scores:    scores,
		Skipped:   ranking.Skipped,
		Timestamp: s.timestamp(),
	})
}

// statusFor maps pipeline errors onto HTTP status codes. Checkpoint failures
// stay 500: the run as a whole did not produce content.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, persistence.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrNoEligibleCars):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (s *Server) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// respondError writes the error envelope
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{Success: false, Error: message, Timestamp: s.timestamp()})
}
