package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventTypeAttemptStarted  EventType = "attempt.started"
	EventTypeAttemptFinished EventType = "attempt.finished"
)

const eventVersion = "1"

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"`
	Version   string    `json:"version"`
}

func newBase(t EventType, at time.Time) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      t,
		Timestamp: at.Unix(),
		Version:   eventVersion,
	}
}

type AttemptStartedEvent struct {
	BaseEvent
	AttemptID    string `json:"attempt_id"`
	UserID       string `json:"user_id"`
	AssessmentID string `json:"assessment_id"`
	Mode         string `json:"mode"`
}

type AttemptFinishedEvent struct {
	BaseEvent
	AttemptID       string  `json:"attempt_id"`
	UserID          string  `json:"user_id"`
	AssessmentID    string  `json:"assessment_id"`
	Mode            string  `json:"mode"`
	Score           int     `json:"score"`
	Ability         float64 `json:"ability"`
	Answered        int     `json:"answered"`
	ReviewsRecorded int     `json:"reviews_recorded"`
	ReviewsFailed   int     `json:"reviews_failed"`
}

func NewAttemptStartedEvent(attemptID, userID, assessmentID, mode string, at time.Time) *AttemptStartedEvent {
	return &AttemptStartedEvent{
		BaseEvent:    newBase(EventTypeAttemptStarted, at),
		AttemptID:    attemptID,
		UserID:       userID,
		AssessmentID: assessmentID,
		Mode:         mode,
	}
}

func NewAttemptFinishedEvent(attemptID, userID, assessmentID, mode string, at time.Time) *AttemptFinishedEvent {
	return &AttemptFinishedEvent{
		BaseEvent:    newBase(EventTypeAttemptFinished, at),
		AttemptID:    attemptID,
		UserID:       userID,
		AssessmentID: assessmentID,
		Mode:         mode,
	}
}
