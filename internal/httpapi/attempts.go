package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/adaptiq/internal/attempt"
)

type answerRequest struct {
	ItemID   string `json:"item_id" binding:"required"`
	Response any    `json:"response"`
}

type submitRequest struct {
	Answers map[string]any `json:"answers"`
}

func (s *Server) startAdaptive(c *gin.Context) {
	res, err := s.attempts.Start(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"attempt_id":         res.AttemptID,
		"assessment_id":      res.AssessmentID,
		"title":              res.Title,
		"first_item":         res.First,
		"ability":            res.Ability,
		"min_items":          res.MinItems,
		"max_items":          res.MaxItems,
		"time_limit_minutes": int(res.TimeLimit.Minutes()),
		"started_at":         res.StartedAt,
	})
}

func (s *Server) startFixed(c *gin.Context) {
	res, err := s.attempts.StartFixed(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// ownedAttempt loads the attempt named in the path and checks that the
// caller owns it. Another user's attempt is reported as not found.
func (s *Server) ownedAttempt(c *gin.Context) (*attempt.Snapshot, bool) {
	id := c.Param("id")
	snap, err := s.attempts.Status(c.Request.Context(), id)
	if err != nil {
		s.respondServiceError(c, err)
		return nil, false
	}
	if snap.UserID != userID(c) {
		s.respondServiceError(c, fmt.Errorf("%w: %s", attempt.ErrAttemptNotFound, id))
		return nil, false
	}
	return snap, true
}

func (s *Server) attemptStatus(c *gin.Context) {
	snap, ok := s.ownedAttempt(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) submitAnswer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	snap, ok := s.ownedAttempt(c)
	if !ok {
		return
	}
	res, err := s.attempts.SubmitAnswer(c.Request.Context(), snap.AttemptID, req.ItemID, req.Response)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) finish(c *gin.Context) {
	snap, ok := s.ownedAttempt(c)
	if !ok {
		return
	}
	res, err := s.attempts.Finish(c.Request.Context(), snap.AttemptID)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) submitFixed(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	snap, ok := s.ownedAttempt(c)
	if !ok {
		return
	}
	if req.Answers == nil {
		req.Answers = map[string]any{}
	}
	res, err := s.attempts.SubmitFixed(c.Request.Context(), snap.AttemptID, req.Answers)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
