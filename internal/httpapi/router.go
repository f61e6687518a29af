// Package httpapi exposes the attempt engine and review scheduler over HTTP.
// Authentication happens upstream; callers are identified by X-User-ID.
package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abhisek/adaptiq/internal/attempt"
	"github.com/abhisek/adaptiq/internal/logger"
	"github.com/abhisek/adaptiq/internal/spacedrep"
)

// Attempts is the attempt engine as used by the HTTP layer.
type Attempts interface {
	Start(ctx context.Context, userID, assessmentID string) (*attempt.StartResult, error)
	SubmitAnswer(ctx context.Context, attemptID, itemID string, response any) (*attempt.AnswerResult, error)
	Finish(ctx context.Context, attemptID string) (*attempt.FinishResult, error)
	Status(ctx context.Context, attemptID string) (*attempt.Snapshot, error)
	StartFixed(ctx context.Context, userID, assessmentID string) (*attempt.FixedStart, error)
	SubmitFixed(ctx context.Context, attemptID string, answers map[string]any) (*attempt.FixedResult, error)
}

// Reviews is the review scheduler as used by the HTTP layer.
type Reviews interface {
	Due(ctx context.Context, userID string, limit int) ([]spacedrep.DueEntry, error)
	RecordQuality(ctx context.Context, userID, itemID string, quality int) (*spacedrep.Record, error)
	RecordBulk(ctx context.Context, userID string, inputs []spacedrep.QualityInput) *spacedrep.BulkResult
	Stats(ctx context.Context, userID string) (*spacedrep.Stats, error)
}

type RouterConfig struct {
	Attempts     Attempts
	Reviews      Reviews
	Logger       *logger.Logger
	AllowOrigins []string
}

// Server holds the handlers' dependencies.
type Server struct {
	attempts Attempts
	reviews  Reviews
	log      *logger.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{
		attempts: cfg.Attempts,
		reviews:  cfg.Reviews,
		log:      log.With("component", "httpapi"),
	}

	router := gin.New()
	router.Use(gin.Recovery(), observeDuration(), requestLogger(s.log))

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsCfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", HeaderUserID, HeaderRole},
	}
	if len(origins) == 1 && origins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
	}
	router.Use(cors.New(corsCfg))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.Use(requireUser())
	{
		api.POST("/assessments/:id/adaptive/start", s.startAdaptive)
		api.POST("/assessments/:id/fixed/start", s.startFixed)

		api.GET("/attempts/:id", s.attemptStatus)
		api.POST("/attempts/:id/answer", s.submitAnswer)
		api.POST("/attempts/:id/finish", s.finish)
		api.POST("/attempts/:id/submit", s.submitFixed)

		api.GET("/reviews/due", s.dueReviews)
		api.POST("/reviews", s.recordReview)
		api.POST("/reviews/bulk", s.bulkReviews)
		api.GET("/reviews/stats", s.reviewStats)
	}

	return router
}
