// Package httpapi exposes progression and the mock exam over HTTP.
package httpapi

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/lingua/internal/app"
	"github.com/abhisek/lingua/internal/identity"
	"github.com/abhisek/lingua/internal/logger"
)

// RouterConfig selects the services behind the routes.
type RouterConfig struct {
	App         *app.App
	CORSOrigins []string
	// Users overrides identity resolution. Defaults to the bearer-token
	// identity placed on the request context.
	Users identity.Provider
}

// NewRouter builds the gin engine.
func NewRouter(cfg RouterConfig) *gin.Engine {
	a := cfg.App
	log := a.Log
	if log == nil {
		log = logger.Nop()
	}
	users := cfg.Users
	if users == nil {
		users = identity.ContextProvider{}
	}
	h := &Handler{
		users:    users,
		progress: a.Progress,
		streaks:  a.Streaks,
		missions: a.Missions,
		exams:    a.Exams,
		health: func(ctx context.Context) error {
			return a.Store.DB().PingContext(ctx)
		},
		log: log.With("handler", "API"),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLog(log))
	r.Use(CORS(cfg.CORSOrigins))

	r.GET("/healthz", h.Health)

	api := r.Group("/api/v1")
	api.Use(Identity(a.Verifier, log))
	{
		api.GET("/progress", h.GetProgress)
		api.POST("/progress/answers", h.RecordAnswer)
		api.POST("/progress/lessons", h.RecordLesson)

		api.GET("/streak", h.GetStreak)
		api.POST("/streak/activity", h.RecordActivity)

		api.GET("/missions", h.ListMissions)

		api.GET("/goals", h.ListGoals)
		api.PUT("/goals/:type", h.SetGoal)
		api.DELETE("/goals/:type", h.RemoveGoal)

		api.GET("/badges", h.ListBadges)

		api.POST("/exam/start", h.StartExam)
		api.GET("/exam", h.GetExam)
		api.POST("/exam/answer", h.AnswerExam)
		api.POST("/exam/tick", h.TickExam)
		api.POST("/exam/blur", h.BlurExam)
		api.POST("/exam/complete", h.CompleteExam)
		api.DELETE("/exam", h.AbandonExam)
		api.GET("/exam/results", h.ListExamResults)
	}
	return r
}
