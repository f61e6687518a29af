package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/adaptiq/internal/authz"
	"github.com/abhisek/adaptiq/internal/logger"
	"github.com/abhisek/adaptiq/internal/metrics"
)

const (
	HeaderUserID = "X-User-ID"
	HeaderRole   = "X-User-Role"

	userIDKey = "adaptiq.user_id"
)

// requireUser reads the caller identity asserted by the upstream auth
// layer. Requests without X-User-ID are rejected.
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if userID == "" {
			respondError(c, http.StatusUnauthorized, "unauthenticated", errors.New("missing "+HeaderUserID+" header"))
			return
		}
		c.Set(userIDKey, userID)
		if role := strings.TrimSpace(c.GetHeader(HeaderRole)); role != "" {
			c.Request = c.Request.WithContext(authz.WithRole(c.Request.Context(), strings.ToLower(role)))
		}
		c.Next()
	}
}

func userID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// requestLogger logs one line per request at debug level, or warn for
// server errors.
func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		kv := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if uid := userID(c); uid != "" {
			kv = append(kv, "user_id", uid)
		}
		if status >= http.StatusInternalServerError {
			log.Warn("http request", kv...)
			return
		}
		log.Debug("http request", kv...)
	}
}

// observeDuration records request latency by route template.
func observeDuration() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
