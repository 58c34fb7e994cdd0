package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"peerbridge/config"
	"peerbridge/internal/api/handler"
	"peerbridge/internal/api/middleware"
)

// Setup builds the gin engine. limiter may be nil, which disables rate limiting.
func Setup(cfg *config.Config, h *handler.Handler, limiter middleware.RateLimiter, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── global middleware ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimitBytes))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	triggerLimit := middleware.RateLimit(limiter, cfg.Matching.RateLimit.TriggerPerMinute, time.Minute)

	v1 := r.Group("/api/v1")
	{
		matching := v1.Group("/matching")
		{
			matching.POST("/auto-match", triggerLimit, h.Matching.AutoMatch)
			matching.POST("/suggestions/generate", triggerLimit, h.Matching.GenerateSuggestions)
		}

		suggestions := v1.Group("/suggestions")
		{
			suggestions.POST("/:id/accept", h.Matching.AcceptSuggestion)
			suggestions.POST("/:id/reject", h.Matching.RejectSuggestion)
		}

		tutors := v1.Group("/tutors")
		{
			tutors.GET("/:id/matches", h.Match.ListTutorMatches)
			tutors.GET("/:id/suggestions", h.Match.ListTutorSuggestions)
			tutors.GET("/:id/courses", h.Catalog.ListTutorCourses)
		}

		tutees := v1.Group("/tutees")
		{
			tutees.GET("/:id/matches", h.Match.ListTuteeMatches)
			tutees.GET("/:id/suggestions", h.Match.ListTuteeSuggestions)
			tutees.GET("/:id/courses", h.Catalog.ListTuteeCourses)
		}

		v1.GET("/departments", h.Catalog.ListDepartments)
		v1.GET("/courses", h.Catalog.ListCourses)
	}

	return r
}
