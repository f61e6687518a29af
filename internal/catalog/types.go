package catalog

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when an assessment or item id is unknown.
var ErrNotFound = errors.New("catalog: not found")

// ItemType describes how a learner responds to an item.
type ItemType string

const (
	// TypeSingle is a select item with exactly one correct option index.
	TypeSingle ItemType = "single"

	// TypeMulti is a select item whose key is a set of option indices.
	TypeMulti ItemType = "multi"

	// TypeFill is a free-text fill-in item.
	TypeFill ItemType = "fill"
)

// Strategy selects how an assessment presents its items.
type Strategy string

const (
	StrategyFixed    Strategy = "fixed"
	StrategyAdaptive Strategy = "adaptive"
)

const (
	// DefaultMinItems applies when an assessment leaves min_items unset.
	DefaultMinItems = 6

	// DefaultMaxItems applies when an assessment leaves max_items unset.
	DefaultMaxItems = 10

	// DefaultDifficulty stands in for an uncalibrated item.
	DefaultDifficulty = 0.5
)

// Item is a single question in the catalog. The core never mutates items.
type Item struct {
	ID      string   `json:"id"`
	Type    ItemType `json:"type"`
	Content string   `json:"content"`
	Options []string `json:"options,omitempty"`

	// Key is the correctness key: an option index for TypeSingle, a list of
	// indices for TypeMulti, a string (or other JSON scalar) for TypeFill.
	Key any `json:"key"`

	Points     int      `json:"points"`
	Difficulty *float64 `json:"difficulty,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Order      int      `json:"order"`
}

// DifficultyValue returns the item's difficulty, or 0.5 if uncalibrated.
func (it *Item) DifficultyValue() float64 {
	if it.Difficulty == nil {
		return DefaultDifficulty
	}
	return *it.Difficulty
}

// View is the learner-facing projection of an item. It never carries the key.
type View struct {
	ID         string   `json:"item_id"`
	Type       ItemType `json:"type"`
	Content    string   `json:"content"`
	Options    []string `json:"options"`
	Order      int      `json:"order"`
	Difficulty float64  `json:"difficulty"`
}

// View returns the public projection of the item.
func (it *Item) View() View {
	opts := it.Options
	if opts == nil {
		opts = []string{}
	}
	return View{
		ID:         it.ID,
		Type:       it.Type,
		Content:    it.Content,
		Options:    opts,
		Order:      it.Order,
		Difficulty: it.DifficultyValue(),
	}
}

// Assessment is a configured quiz over an ordered set of items.
type Assessment struct {
	ID              string
	CourseID        string
	Title           string
	Strategy        Strategy
	TimeLimit       time.Duration // 0 means no limit
	MinItems        int
	MaxItems        int
	AttemptsAllowed int // 0 means unlimited
	ItemIDs         []string
}

// Deadline returns the instant after which an attempt started at start has
// expired, and false if the assessment has no time limit.
func (a *Assessment) Deadline(start time.Time) (time.Time, bool) {
	if a.TimeLimit <= 0 {
		return time.Time{}, false
	}
	return start.Add(a.TimeLimit), true
}

// Enrollment grants a user access to the assessments of a course.
type Enrollment struct {
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id"`
	Status   string `json:"status"`
}

// Active reports whether the enrollment currently grants access.
func (e Enrollment) Active() bool {
	return e.Status == "" || e.Status == "active"
}

// Catalog is the read-only item source consumed by the engine.
type Catalog interface {
	// Assessment returns the assessment definition, or ErrNotFound.
	Assessment(ctx context.Context, id string) (*Assessment, error)

	// Items returns the assessment's items in catalog order.
	Items(ctx context.Context, assessmentID string) ([]Item, error)

	// Item returns a single item by id, or ErrNotFound.
	Item(ctx context.Context, id string) (*Item, error)
}
