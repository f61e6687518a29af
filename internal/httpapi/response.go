package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/adaptiq/internal/attempt"
	"github.com/abhisek/adaptiq/internal/catalog"
	"github.com/abhisek/adaptiq/internal/spacedrep"
	"github.com/abhisek/adaptiq/internal/store"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func respondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// errorMapping pairs a sentinel with its HTTP status and envelope code.
// Order matters only where a wrapped error could match two entries.
var errorMapping = []struct {
	err    error
	status int
	code   string
}{
	{attempt.ErrAttemptNotFound, http.StatusNotFound, "attempt_not_found"},
	{catalog.ErrNotFound, http.StatusNotFound, "not_found"},
	{spacedrep.ErrRecordNotFound, http.StatusNotFound, "item_not_found"},
	{store.ErrNotFound, http.StatusNotFound, "not_found"},

	{attempt.ErrForbidden, http.StatusForbidden, "forbidden"},
	{attempt.ErrAttemptsExhausted, http.StatusForbidden, "attempts_exhausted"},

	{store.ErrConflict, http.StatusConflict, "conflict"},

	{attempt.ErrInvalidStrategy, http.StatusBadRequest, "invalid_strategy"},
	{attempt.ErrNoItemsAvailable, http.StatusBadRequest, "no_items_available"},
	{attempt.ErrAlreadySubmitted, http.StatusBadRequest, "already_submitted"},
	{attempt.ErrTimeExpired, http.StatusBadRequest, "time_expired"},
	{attempt.ErrUnknownItem, http.StatusBadRequest, "unknown_item"},
	{attempt.ErrItemNotPresented, http.StatusBadRequest, "item_not_presented"},
	{attempt.ErrDuplicateAnswer, http.StatusBadRequest, "duplicate_answer"},
	{attempt.ErrBelowMinimum, http.StatusBadRequest, "below_minimum"},
	{spacedrep.ErrInvalidQuality, http.StatusBadRequest, "invalid_quality"},
}

// statusFor maps a service error to its HTTP status and code. Unknown
// errors are internal.
func statusFor(err error) (int, string) {
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

// respondServiceError writes err with its mapped status. Internal errors
// are logged and reported without detail.
func (s *Server) respondServiceError(c *gin.Context, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		respondError(c, status, code, errors.New("internal error"))
		return
	}
	respondError(c, status, code, err)
}

func respondBadRequest(c *gin.Context, err error) {
	respondError(c, http.StatusBadRequest, "invalid_request", err)
}
