package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/lingua/internal/apperr"
	"github.com/abhisek/lingua/internal/exam"
	"github.com/abhisek/lingua/internal/identity"
	"github.com/abhisek/lingua/internal/logger"
	"github.com/abhisek/lingua/internal/missions"
	"github.com/abhisek/lingua/internal/progress"
	"github.com/abhisek/lingua/internal/streak"
	"github.com/abhisek/lingua/internal/xp"
)

// Handler serves the progression and exam endpoints.
type Handler struct {
	users    identity.Provider
	progress *progress.Service
	streaks  *streak.Service
	missions *missions.Service
	exams    *exam.Service
	health   func(context.Context) error
	log      *logger.Logger
}

func (h *Handler) user(c *gin.Context) string {
	id, _ := h.users.CurrentUserID(c.Request.Context())
	return id
}

// bindOptional decodes a JSON body, allowing it to be empty.
func bindOptional(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	return nil
}

// GET /healthz
func (h *Handler) Health(c *gin.Context) {
	if h.health != nil {
		if err := h.health(c.Request.Context()); err != nil {
			respondError(c, http.StatusServiceUnavailable, "unhealthy", err)
			return
		}
	}
	c.String(http.StatusOK, "ok")
}

// GET /api/v1/progress
func (h *Handler) GetProgress(c *gin.Context) {
	ov, err := h.progress.Overview(c.Request.Context(), h.user(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, ov)
}

// POST /api/v1/progress/answers
func (h *Handler) RecordAnswer(c *gin.Context) {
	var req xp.Answer
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	out, err := h.progress.RecordAnswer(c.Request.Context(), h.user(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, out)
}

// POST /api/v1/progress/lessons
func (h *Handler) RecordLesson(c *gin.Context) {
	var req xp.Lesson
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	out, err := h.progress.RecordLesson(c.Request.Context(), h.user(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, out)
}

// GET /api/v1/streak
func (h *Handler) GetStreak(c *gin.Context) {
	st, err := h.streaks.Get(c.Request.Context(), h.user(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, st)
}

// POST /api/v1/streak/activity
func (h *Handler) RecordActivity(c *gin.Context) {
	st, err := h.progress.RecordActivity(c.Request.Context(), h.user(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, st)
}

// GET /api/v1/missions
func (h *Handler) ListMissions(c *gin.Context) {
	ms, stale, err := h.progress.Missions(c.Request.Context(), h.user(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, gin.H{"missions": ms, "stale": stale})
}

// GET /api/v1/goals
func (h *Handler) ListGoals(c *gin.Context) {
	goals, err := h.missions.Goals(c.Request.Context(), h.user(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	if goals == nil {
		goals = []missions.GoalProgress{}
	}
	respondOK(c, gin.H{"goals": goals})
}

type setGoalRequest struct {
	TargetValue int `json:"target_value"`
}

// PUT /api/v1/goals/:type
func (h *Handler) SetGoal(c *gin.Context) {
	var req setGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	ctx := c.Request.Context()
	userID := h.user(c)
	if err := h.missions.SetGoal(ctx, userID, c.Param("type"), req.TargetValue); err != nil {
		h.fail(c, err)
		return
	}
	goals, err := h.missions.Goals(ctx, userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, gin.H{"goals": goals})
}

// DELETE /api/v1/goals/:type
func (h *Handler) RemoveGoal(c *gin.Context) {
	if err := h.missions.RemoveGoal(c.Request.Context(), h.user(c), c.Param("type")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/v1/badges
func (h *Handler) ListBadges(c *gin.Context) {
	res, err := h.progress.Badges(c.Request.Context(), h.user(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, res)
}

type examRequest struct {
	Kind     string `json:"kind"`
	Selected string `json:"selected"`
	Seconds  int    `json:"seconds"`
}

func (h *Handler) examRequest(c *gin.Context) (examRequest, bool) {
	var req examRequest
	if err := bindOptional(c, &req); err != nil {
		h.fail(c, err)
		return req, false
	}
	if req.Kind == "" {
		req.Kind = c.Query("kind")
	}
	return req, true
}

// examBody is the session payload, with the badges unlocked by the exam
// when this request wrote its result.
func (h *Handler) examBody(c *gin.Context, v exam.View) gin.H {
	body := gin.H{"session": v}
	if v.Finalized {
		body["newly_unlocked"] = h.progress.ExamCompleted(c.Request.Context(), h.user(c))
	}
	return body
}

// respondExam writes v, or the error with the session attached when the
// operation was rejected after moving the session forward.
func (h *Handler) respondExam(c *gin.Context, v exam.View, err error) {
	if err != nil {
		if v.State != exam.StateCompleted {
			h.fail(c, err)
			return
		}
		status, code := statusFor(err)
		body := h.examBody(c, v)
		body["error"] = APIError{Message: err.Error(), Code: code}
		c.AbortWithStatusJSON(status, body)
		return
	}
	respondOK(c, h.examBody(c, v))
}

// POST /api/v1/exam/start
func (h *Handler) StartExam(c *gin.Context) {
	req, ok := h.examRequest(c)
	if !ok {
		return
	}
	v, err := h.exams.Start(c.Request.Context(), h.user(c), req.Kind)
	h.respondExam(c, v, err)
}

// GET /api/v1/exam
func (h *Handler) GetExam(c *gin.Context) {
	v, err := h.exams.Status(c.Request.Context(), h.user(c), c.Query("kind"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, h.examBody(c, v))
}

// POST /api/v1/exam/answer
func (h *Handler) AnswerExam(c *gin.Context) {
	req, ok := h.examRequest(c)
	if !ok {
		return
	}
	v, err := h.exams.Answer(c.Request.Context(), h.user(c), req.Kind, req.Selected)
	h.respondExam(c, v, err)
}

// POST /api/v1/exam/tick
func (h *Handler) TickExam(c *gin.Context) {
	req, ok := h.examRequest(c)
	if !ok {
		return
	}
	if req.Seconds == 0 {
		req.Seconds = 1
	}
	v, err := h.exams.Tick(c.Request.Context(), h.user(c), req.Kind, req.Seconds)
	h.respondExam(c, v, err)
}

// POST /api/v1/exam/blur
func (h *Handler) BlurExam(c *gin.Context) {
	req, ok := h.examRequest(c)
	if !ok {
		return
	}
	v, err := h.exams.VisibilityLost(c.Request.Context(), h.user(c), req.Kind)
	h.respondExam(c, v, err)
}

// POST /api/v1/exam/complete
func (h *Handler) CompleteExam(c *gin.Context) {
	req, ok := h.examRequest(c)
	if !ok {
		return
	}
	v, err := h.exams.Complete(c.Request.Context(), h.user(c), req.Kind)
	h.respondExam(c, v, err)
}

// DELETE /api/v1/exam
func (h *Handler) AbandonExam(c *gin.Context) {
	if err := h.exams.Abandon(c.Request.Context(), h.user(c), c.Query("kind")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/v1/exam/results
func (h *Handler) ListExamResults(c *gin.Context) {
	limit := 20
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			respondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("bad limit %q", s))
			return
		}
		limit = n
	}
	results, err := h.exams.History(c.Request.Context(), h.user(c), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]examResultJSON, 0, len(results))
	for _, r := range results {
		out = append(out, examResultJSON{
			ID:             r.ID,
			Kind:           r.Kind,
			TotalScore:     r.TotalScore,
			ListeningScore: r.ListeningScore,
			ReadingScore:   r.ReadingScore,
			CategoryScores: r.CategoryScores,
			Answered:       r.Answered,
			CreatedAt:      r.CreatedAt.UTC(),
		})
	}
	respondOK(c, gin.H{"results": out})
}

type examResultJSON struct {
	ID             string         `json:"id"`
	Kind           string         `json:"kind"`
	TotalScore     int            `json:"total_score"`
	ListeningScore int            `json:"listening_score"`
	ReadingScore   int            `json:"reading_score"`
	CategoryScores map[string]int `json:"category_scores"`
	Answered       int            `json:"answered"`
	CreatedAt      time.Time      `json:"created_at"`
}
