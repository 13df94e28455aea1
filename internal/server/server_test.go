package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dealerstudio/internal/config"
	"dealerstudio/internal/core"
	"dealerstudio/internal/persistence"
	"dealerstudio/internal/pipeline"
	"dealerstudio/internal/selector"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockService implements ContentService for testing
type mockService struct {
	GenerateFunc func(userID string, carIDs []string) (*core.PipelineResult, error)
	RankFunc     func(userID string, count int) (selector.Ranking, error)
	persisted    []*core.PipelineResult
}

func (m *mockService) GenerateWeeklyContent(ctx context.Context, userID string, carIDs []string) (*core.PipelineResult, error) {
	return m.GenerateFunc(userID, carIDs)
}

func (m *mockService) Persist(ctx context.Context, result *core.PipelineResult) error {
	m.persisted = append(m.persisted, result)
	return nil
}

func (m *mockService) RankCars(ctx context.Context, userID string, count int) (selector.Ranking, error) {
	return m.RankFunc(userID, count)
}

type pingFunc func() error

func (f pingFunc) Ping(ctx context.Context) error { return f() }

func newTestServer(svc *mockService, db Pinger, cfg config.Server) *Server {
	s := New(svc, db, cfg)
	s.now = func() time.Time { return time.Date(2024, 10, 7, 10, 0, 0, 0, time.UTC) }
	return s
}

func doRequest(t *testing.T, s *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestGenerateContent(t *testing.T) {
	svc := &mockService{
		GenerateFunc: func(userID string, carIDs []string) (*core.PipelineResult, error) {
			assert.Equal(t, "u1", userID)
			assert.Equal(t, []string{"c1", "c2"}, carIDs)
			return &core.PipelineResult{RunID: "r1", TotalCost: decimal.RequireFromString("0.08")}, nil
		},
	}
	s := newTestServer(svc, nil, config.Server{})

	rec := doRequest(t, s, http.MethodPost, "/api/content/generate", `{"userId":"u1","carIds":["c1","c2"]}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Success   bool                `json:"success"`
		Result    core.PipelineResult `json:"result"`
		Timestamp string              `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "r1", resp.Result.RunID)
	assert.True(t, resp.Result.TotalCost.Equal(decimal.RequireFromString("0.08")))
	assert.Equal(t, "2024-10-07T10:00:00Z", resp.Timestamp)
	require.Len(t, svc.persisted, 1)
}

func TestGenerateContentValidation(t *testing.T) {
	svc := &mockService{
		GenerateFunc: func(string, []string) (*core.PipelineResult, error) {
			t.Fatal("pipeline must not run for invalid input")
			return nil, nil
		},
	}
	s := newTestServer(svc, nil, config.Server{})

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"userId":`},
		{"missing user", `{"carIds":["c1"]}`},
		{"empty car id", `{"userId":"u1","carIds":[""]}`},
		{"unknown field", `{"userId":"u1","dealer":"x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodPost, "/api/content/generate", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestGenerateContentErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"rate limited", pipeline.ErrRateLimited, http.StatusTooManyRequests},
		{"unknown dealer", errors.Join(errors.New("load dealer"), persistence.ErrNotFound), http.StatusNotFound},
		{"no cars", pipeline.ErrNoEligibleCars, http.StatusUnprocessableEntity},
		{"checkpoint", &pipeline.QualityBelowThresholdError{Checkpoint: "final_quality"}, http.StatusInternalServerError},
		{"grading", &pipeline.GradingUnavailableError{Err: errors.New("timeout")}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{GenerateFunc: func(string, []string) (*core.PipelineResult, error) { return nil, tt.err }}
			s := newTestServer(svc, nil, config.Server{})

			rec := doRequest(t, s, http.MethodPost, "/api/content/generate", `{"userId":"u1"}`, nil)
			assert.Equal(t, tt.status, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tt.err.Error(), resp.Error)
			assert.Empty(t, svc.persisted)
		})
	}
}

func TestAPIToken(t *testing.T) {
	svc := &mockService{
		RankFunc: func(string, int) (selector.Ranking, error) { return selector.Ranking{}, nil },
	}
	s := newTestServer(svc, nil, config.Server{APIToken: "secret"})

	rec := doRequest(t, s, http.MethodGet, "/api/dealers/u1/cars/ranked", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/dealers/u1/cars/ranked", "", map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/dealers/u1/cars/ranked", "", map[string]string{"Authorization": "Bearer secret"})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health stays open
	rec = doRequest(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRankedCars(t *testing.T) {
	svc := &mockService{
		RankFunc: func(userID string, count int) (selector.Ranking, error) {
			assert.Equal(t, "u1", userID)
			assert.Equal(t, 2, count)
			return selector.Ranking{
				Scores:  []core.CarScore{{Car: core.Car{ID: "c1"}, Total: 8.2, Probability: 82}},
				Skipped: []selector.Skipped{{CarID: "bad", Reason: "car bad has no price"}},
			}, nil
		},
	}
	s := newTestServer(svc, nil, config.Server{})

	rec := doRequest(t, s, http.MethodGet, "/api/dealers/u1/cars/ranked?count=2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp RankedCarsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Scores, 1)
	assert.Equal(t, "c1", resp.Scores[0].Car.ID)
	assert.Equal(t, "bad", resp.Skipped[0].CarID)

	rec = doRequest(t, s, http.MethodGet, "/api/dealers/u1/cars/ranked?count=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(&mockService{}, pingFunc(func() error { return nil }), config.Server{})
	rec := doRequest(t, s, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "ok", resp.Checks["database"])
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	s = newTestServer(&mockService{}, pingFunc(func() error { return errors.New("down") }), config.Server{})
	rec = doRequest(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(&mockService{}, nil, config.Server{
		CORS: config.CORS{Enabled: true, AllowedOrigins: []string{"https://app.dealerstudio.in"}},
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/content/generate", nil)
	req.Header.Set("Origin", "https://app.dealerstudio.in")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, "https://app.dealerstudio.in", rec.Header().Get("Access-Control-Allow-Origin"))
}
