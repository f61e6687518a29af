package spacedrep

import (
	"time"

	"github.com/abhisek/adaptiq/internal/clock"
	"github.com/abhisek/adaptiq/internal/store"
)

// Record holds the spaced repetition state for one (user, item) pair.
// Dates are midnight UTC.
type Record struct {
	UserID     string    `json:"user_id"`
	ItemID     string    `json:"item_id"`
	Quality    int       `json:"quality"`
	Interval   int       `json:"interval"`
	Repetition int       `json:"repetition"`
	Ease       float64   `json:"ease"`
	NextReview time.Time `json:"next_review"`
	LastReview time.Time `json:"last_review"`
	AttemptID  string    `json:"attempt_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// newRecord returns the state of a pair that has never been reviewed.
func newRecord(userID, itemID string, today time.Time) *Record {
	return &Record{
		UserID:     userID,
		ItemID:     itemID,
		Interval:   InitialInterval,
		Ease:       InitialEase,
		NextReview: today,
	}
}

// IsDue returns true if the item is due for review on today (at or past the
// review date).
func (r *Record) IsDue(today time.Time) bool {
	return !clock.Today(today).Before(r.NextReview)
}

// OverdueDays returns how many whole days past due the item is. Returns 0 if
// not yet due or due today.
func (r *Record) OverdueDays(today time.Time) int {
	t := clock.Today(today)
	if !t.After(r.NextReview) {
		return 0
	}
	return int(t.Sub(r.NextReview).Hours() / 24.0)
}

// DaysUntilReview returns the number of days until the next review.
// Returns 0 if already due.
func (r *Record) DaysUntilReview(today time.Time) int {
	t := clock.Today(today)
	if r.IsDue(t) {
		return 0
	}
	return int(r.NextReview.Sub(t).Hours() / 24.0)
}

// ReviewStatus describes an item's review status for display.
type ReviewStatus string

const (
	ReviewNotDue  ReviewStatus = "not_due"
	ReviewDue     ReviewStatus = "due"
	ReviewOverdue ReviewStatus = "overdue"
)

// Status returns the review status for display.
func (r *Record) Status(today time.Time) ReviewStatus {
	switch {
	case r.OverdueDays(today) > 0:
		return ReviewOverdue
	case r.IsDue(today):
		return ReviewDue
	default:
		return ReviewNotDue
	}
}

func recordFromData(d *store.ReviewData) *Record {
	return &Record{
		UserID:     d.UserID,
		ItemID:     d.ItemID,
		Quality:    d.Quality,
		Interval:   d.Interval,
		Repetition: d.Repetition,
		Ease:       d.Ease,
		NextReview: d.NextReview,
		LastReview: d.LastReview,
		AttemptID:  d.AttemptID,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func (r *Record) toData() *store.ReviewData {
	return &store.ReviewData{
		UserID:     r.UserID,
		ItemID:     r.ItemID,
		Quality:    r.Quality,
		Interval:   r.Interval,
		Repetition: r.Repetition,
		Ease:       r.Ease,
		NextReview: r.NextReview,
		LastReview: r.LastReview,
		AttemptID:  r.AttemptID,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}
