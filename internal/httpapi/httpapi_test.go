package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/lingua/internal/app"
	"github.com/abhisek/lingua/internal/config"
	"github.com/abhisek/lingua/internal/logger"
)

type testServer struct {
	t     *testing.T
	r     *gin.Engine
	token string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.DB.DSN = filepath.Join(t.TempDir(), "test.db")
	cfg.Clock.Timezone = "UTC"
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.Issuer = "lingua-test"

	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	a, err := app.New(cfg, logger.Nop(), app.Options{Now: func() time.Time { return now }})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	token, err := a.Verifier.Sign("u1", time.Hour)
	require.NoError(t, err)

	return &testServer{
		t:     t,
		r:     NewRouter(RouterConfig{App: a, CORSOrigins: []string{"http://localhost:5173"}}),
		token: token,
	}
}

func (s *testServer) do(method, path string, body any, auth bool) (*httptest.ResponseRecorder, map[string]any) {
	s.t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if auth {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	rec := httptest.NewRecorder()
	s.r.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") != "text/plain; charset=utf-8" {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec, _ := s.do(http.MethodGet, "/healthz", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestAnonymousReadsDefaultsWritesRejected(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(http.MethodGet, "/api/v1/progress", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), body["xp"].(map[string]any)["total"])

	rec, body = s.do(http.MethodPost, "/api/v1/progress/answers", map[string]any{
		"category": "vocabulary", "question_id": "q1", "is_correct": true,
	}, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", errorCode(body))

	rec, _ = s.do(http.MethodPost, "/api/v1/streak/activity", nil, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestInvalidTokenRejected(t *testing.T) {
	s := newTestServer(t)
	s.token = "not-a-jwt"
	rec, body := s.do(http.MethodGet, "/api/v1/streak", nil, true)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", errorCode(body))
}

func TestAnswerIsIdempotent(t *testing.T) {
	s := newTestServer(t)
	answer := map[string]any{"category": "vocabulary", "question_id": "q1", "is_correct": true}

	rec, body := s.do(http.MethodPost, "/api/v1/progress/answers", answer, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(50), body["xp_awarded"])
	assert.Equal(t, float64(1), body["streak"].(map[string]any)["current_streak"])

	rec, body = s.do(http.MethodPost, "/api/v1/progress/answers", answer, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), body["xp_awarded"])

	rec, body = s.do(http.MethodGet, "/api/v1/progress", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(50), body["xp"].(map[string]any)["training"])

	rec, body = s.do(http.MethodPost, "/api/v1/progress/answers", map[string]any{"category": "vocabulary"}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", errorCode(body))
}

func TestLessonMergeOverHTTP(t *testing.T) {
	s := newTestServer(t)
	rec, body := s.do(http.MethodPost, "/api/v1/progress/lessons", map[string]any{
		"category": "grammar", "lesson_id": "l1", "completed": true, "score": 60, "xp_earned": 30,
	}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(30), body["xp_gained"])

	rec, body = s.do(http.MethodPost, "/api/v1/progress/lessons", map[string]any{
		"category": "grammar", "lesson_id": "l1", "completed": false, "score": 40, "xp_earned": 20,
	}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), body["xp_gained"])
}

func TestGoals(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(http.MethodPut, "/api/v1/goals/questions", map[string]any{"target_value": 10}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	goals := body["goals"].([]any)
	require.Len(t, goals, 1)
	assert.Equal(t, "questions", goals[0].(map[string]any)["goal_type"])

	rec, body = s.do(http.MethodPut, "/api/v1/goals/minutes", map[string]any{"target_value": 10}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unknown_goal_type", errorCode(body))

	rec, _ = s.do(http.MethodDelete, "/api/v1/goals/questions", nil, true)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, body = s.do(http.MethodGet, "/api/v1/goals", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["goals"])
}

func TestMissionsAndBadges(t *testing.T) {
	s := newTestServer(t)
	rec, body := s.do(http.MethodGet, "/api/v1/missions", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["missions"], 5)
	assert.Equal(t, false, body["stale"])

	rec, body = s.do(http.MethodGet, "/api/v1/badges", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["badges"], 27)
}

func TestExamFlow(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(http.MethodGet, "/api/v1/exam?kind=reading", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "not_started", body["session"].(map[string]any)["state"])

	rec, body = s.do(http.MethodPost, "/api/v1/exam/answer", map[string]any{"kind": "reading", "selected": "A"}, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no_session", errorCode(body))

	rec, body = s.do(http.MethodPost, "/api/v1/exam/start", map[string]any{"kind": "reading"}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sess := body["session"].(map[string]any)
	assert.Equal(t, "in_progress", sess["state"])
	current := sess["current"].(map[string]any)
	assert.NotContains(t, current, "answer")

	rec, body = s.do(http.MethodPost, "/api/v1/exam/answer", map[string]any{"kind": "reading", "selected": "B"}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sess = body["session"].(map[string]any)
	assert.Equal(t, float64(1), sess["current_index"])
	assert.Equal(t, true, sess["last_result"].(map[string]any)["correct"])

	rec, _ = s.do(http.MethodPost, "/api/v1/exam/tick", map[string]any{"kind": "reading", "seconds": 5}, true)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = s.do(http.MethodPost, "/api/v1/exam/blur", map[string]any{"kind": "reading"}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["session"].(map[string]any)["last_result"].(map[string]any)["forfeited"])

	rec, body = s.do(http.MethodPost, "/api/v1/exam/complete", map[string]any{"kind": "reading"}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sess = body["session"].(map[string]any)
	assert.Equal(t, "completed", sess["state"])
	assert.Equal(t, float64(5), sess["score"].(map[string]any)["total_score"])
	assert.NotEmpty(t, body["newly_unlocked"])

	rec, body = s.do(http.MethodPost, "/api/v1/exam/answer", map[string]any{"kind": "reading", "selected": "A"}, true)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "illegal_transition", errorCode(body))
	assert.Equal(t, "completed", body["session"].(map[string]any)["state"])

	rec, body = s.do(http.MethodGet, "/api/v1/exam/results", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	results := body["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, "reading", results[0].(map[string]any)["kind"])

	rec, _ = s.do(http.MethodGet, "/api/v1/exam/results?limit=x", nil, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExamCompletedByExtraAnswerRecordsActivity(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(http.MethodPost, "/api/v1/exam/start", map[string]any{"kind": "reading"}, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	for i := 0; i < 20; i++ {
		rec, body = s.do(http.MethodPost, "/api/v1/exam/answer", map[string]any{"kind": "reading", "selected": "A"}, true)
		if rec.Code != http.StatusOK {
			break
		}
	}
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.Equal(t, "illegal_transition", errorCode(body))
	sess := body["session"].(map[string]any)
	assert.Equal(t, "completed", sess["state"])
	assert.Equal(t, true, sess["finalized"])
	assert.NotEmpty(t, body["newly_unlocked"])

	rec, body = s.do(http.MethodGet, "/api/v1/streak", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["current_streak"])

	rec, body = s.do(http.MethodGet, "/api/v1/badges", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	var examBadge map[string]any
	for _, b := range body["badges"].([]any) {
		if m := b.(map[string]any); m["id"] == "exam-1" {
			examBadge = m
		}
	}
	require.NotNil(t, examBadge)
	assert.Equal(t, true, examBadge["unlocked"])

	// Later rejections report the session without repeating the follow-up.
	rec, body = s.do(http.MethodPost, "/api/v1/exam/answer", map[string]any{"kind": "reading", "selected": "A"}, true)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NotContains(t, body, "newly_unlocked")
	assert.NotContains(t, body["session"].(map[string]any), "finalized")
}

func TestExamAbandon(t *testing.T) {
	s := newTestServer(t)
	rec, _ := s.do(http.MethodPost, "/api/v1/exam/start", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(http.MethodDelete, "/api/v1/exam?kind=full", nil, true)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, body := s.do(http.MethodGet, "/api/v1/exam", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "not_started", body["session"].(map[string]any)["state"])

	rec, body = s.do(http.MethodPost, "/api/v1/exam/start", map[string]any{"kind": "speaking"}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", errorCode(body))
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/progress", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	status, code := statusFor(assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal", code)
}
