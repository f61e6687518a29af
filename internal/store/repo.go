package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrConflict is returned by AttemptRepo.Save when the stored version no
	// longer matches, meaning another writer updated the attempt first.
	ErrConflict = errors.New("store: version conflict")
)

// DateLayout is the storage format for review dates.
const DateLayout = "2006-01-02"

// AnswerData is one persisted answer in an attempt's history.
type AnswerData struct {
	ItemID     string    `json:"item_id"`
	Response   any       `json:"response"`
	Correct    bool      `json:"correct"`
	Points     int       `json:"points"`
	Ability    float64   `json:"ability"`
	Difficulty float64   `json:"difficulty"`
	AnsweredAt time.Time `json:"answered_at"`
}

// AttemptData is the persisted form of an attempt.
type AttemptData struct {
	ID           string
	UserID       string
	AssessmentID string
	Mode         string
	Presented    []string
	Answers      []AnswerData
	RawScore     int
	Ability      float64
	Submitted    bool
	Score        int
	DoneReason   string
	StartedAt    time.Time
	EndedAt      *time.Time
	Version      int64
}

// AttemptRepo persists attempts with optimistic concurrency.
type AttemptRepo interface {
	// Create inserts a new attempt and sets its Version to 1.
	Create(ctx context.Context, a *AttemptData) error

	// Get loads an attempt by id, or returns ErrNotFound.
	Get(ctx context.Context, id string) (*AttemptData, error)

	// Save writes a if its Version still matches the stored one, then bumps
	// a.Version. Returns ErrConflict on a lost update.
	Save(ctx context.Context, a *AttemptData) error

	// CountByUser returns how many attempts userID has started on an assessment.
	CountByUser(ctx context.Context, userID, assessmentID string) (int, error)
}

// ReviewData is the persisted spaced-repetition state for one (user, item)
// pair.
type ReviewData struct {
	ID         int64
	UserID     string
	ItemID     string
	Quality    int
	Interval   int
	Repetition int
	Ease       float64
	NextReview time.Time
	LastReview time.Time
	AttemptID  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ReviewRepo persists review records, one per (user, item) pair.
type ReviewRepo interface {
	// Get returns the record for the pair, or ErrNotFound.
	Get(ctx context.Context, userID, itemID string) (*ReviewData, error)

	// Upsert inserts the record or overwrites the existing one for the pair.
	Upsert(ctx context.Context, r *ReviewData) error

	// Due returns up to limit records with NextReview on or before today,
	// ordered by NextReview then Ease ascending.
	Due(ctx context.Context, userID string, today time.Time, limit int) ([]ReviewData, error)

	// ListByUser returns every record held for userID.
	ListByUser(ctx context.Context, userID string) ([]ReviewData, error)
}
