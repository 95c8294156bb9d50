package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"caesar-in-a-year/internal/infrastructure/resilience"
)

// GraderHealth reports the position of the grading circuit
type GraderHealth interface {
	BreakerState() resilience.BreakerState
}

// NewRouter wires middleware and routes
func NewRouter(h *Handler, grader GraderHealth, gatherer prometheus.Gatherer, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(RequestLogger(log))
	router.Use(ErrorHandler(log))

	router.GET("/health", func(c *gin.Context) {
		state := grader.BreakerState()
		status := "ok"
		if state != resilience.BreakerClosed {
			// answers are still accepted, graded by the fallback
			status = "degraded"
		}
		c.JSON(http.StatusOK, gin.H{"status": status, "grader": state.String()})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := router.Group("/api/v1", AuthRequired())
	{
		sessions := v1.Group("/sessions")
		sessions.POST("", h.StartSession)
		sessions.GET("/:id", h.GetSession)
		sessions.POST("/:id/advance", h.AdvanceSession)
		sessions.POST("/:id/items/:index/answer", h.SubmitAnswer)

		progress := v1.Group("/progress")
		progress.GET("", h.GetProgress)
		progress.POST("/level-up", h.LevelUp)
		progress.GET("/mastery", h.GetMastery)
	}

	return router
}
