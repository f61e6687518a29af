package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/adaptiq/internal/spacedrep"
)

type reviewRequest struct {
	ItemID  string `json:"item_id" binding:"required"`
	Quality *int   `json:"quality" binding:"required"`
}

type bulkRequest struct {
	Reviews []spacedrep.QualityInput `json:"reviews"`
}

// dueReviews lists the caller's due reviews. A missing or malformed limit
// falls back to the default.
func (s *Server) dueReviews(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	entries, err := s.reviews.Due(c.Request.Context(), userID(c), limit)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(entries),
		"reviews": entries,
	})
}

func (s *Server) recordReview(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	rec, err := s.reviews.RecordQuality(c.Request.Context(), userID(c), req.ItemID, *req.Quality)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// bulkReviews applies several quality updates. It answers 207 when any
// entry failed.
func (s *Server) bulkReviews(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if len(req.Reviews) == 0 {
		respondBadRequest(c, errors.New("reviews must be a non-empty list"))
		return
	}
	res := s.reviews.RecordBulk(c.Request.Context(), userID(c), req.Reviews)
	status := http.StatusOK
	if res.Partial() {
		status = http.StatusMultiStatus
	}
	c.JSON(status, gin.H{
		"processed": len(res.Results),
		"failed":    len(res.Errors),
		"results":   res.Results,
		"errors":    res.Errors,
	})
}

func (s *Server) reviewStats(c *gin.Context) {
	st, err := s.reviews.Stats(c.Request.Context(), userID(c))
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
