package spacedrep

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/adaptiq/internal/catalog"
	"github.com/abhisek/adaptiq/internal/clock"
	"github.com/abhisek/adaptiq/internal/logger"
	"github.com/abhisek/adaptiq/internal/metrics"
	"github.com/abhisek/adaptiq/internal/store"
)

var (
	// ErrInvalidQuality is returned for a grade outside [0,5].
	ErrInvalidQuality = errors.New("quality must be between 0 and 5")

	// ErrRecordNotFound is returned when the reviewed item is unknown.
	ErrRecordNotFound = errors.New("review item not found")
)

const (
	// DefaultDueLimit applies when a due-list request gives no limit.
	DefaultDueLimit = 20

	// MaxDueLimit caps every due-list request.
	MaxDueLimit = 50
)

// Config bounds due-list sizes.
type Config struct {
	DefaultLimit int
	MaxLimit     int
}

// DefaultConfig returns the reference due-list limits.
func DefaultConfig() Config {
	return Config{DefaultLimit: DefaultDueLimit, MaxLimit: MaxDueLimit}
}

// Pathway labels where a review signal came from.
type Pathway string

const (
	PathwayExplicit  Pathway = "explicit"
	PathwayAdaptive  Pathway = "adaptive"
	PathwayFixedForm Pathway = "fixed"
	PathwayBulk      Pathway = "bulk"
)

// Service schedules reviews for learners. Writes for one (user, item) pair
// are last-write-wins; callers serialize them if they need stronger ordering.
type Service struct {
	cfg     Config
	repo    store.ReviewRepo
	catalog catalog.Catalog
	clock   clock.Clock
	log     *logger.Logger
}

// NewService creates a review Service.
func NewService(cfg Config, repo store.ReviewRepo, cat catalog.Catalog, clk clock.Clock, log *logger.Logger) *Service {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultDueLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = MaxDueLimit
	}
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{cfg: cfg, repo: repo, catalog: cat, clock: clk, log: log}
}

func (s *Service) today() time.Time {
	return clock.Today(s.clock.Now())
}

// Record applies one recall event with the given quality to the pair's
// schedule, creating the record on first signal. Each call is a distinct
// recall event, so repeating it advances the schedule again.
func (s *Service) Record(ctx context.Context, userID, itemID string, quality int, attemptID string) (*Record, error) {
	return s.record(ctx, PathwayExplicit, userID, itemID, quality, attemptID)
}

func (s *Service) record(ctx context.Context, pathway Pathway, userID, itemID string, quality int, attemptID string) (*Record, error) {
	rec, err := s.apply(ctx, userID, itemID, quality, attemptID)
	metrics.ReviewSignals.WithLabelValues(string(pathway), metrics.Result(err)).Inc()
	return rec, err
}

func (s *Service) apply(ctx context.Context, userID, itemID string, quality int, attemptID string) (*Record, error) {
	if !ValidQuality(quality) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidQuality, quality)
	}
	today := s.today()

	var rec *Record
	data, err := s.repo.Get(ctx, userID, itemID)
	switch {
	case err == nil:
		rec = recordFromData(data)
	case errors.Is(err, store.ErrNotFound):
		rec = newRecord(userID, itemID, today)
	default:
		return nil, fmt.Errorf("load review: %w", err)
	}

	rec.Interval, rec.Repetition, rec.Ease = Schedule(quality, rec.Interval, rec.Repetition, rec.Ease)
	rec.Quality = quality
	rec.LastReview = today
	rec.NextReview = NextReviewDate(today, rec.Interval)
	if attemptID != "" {
		rec.AttemptID = attemptID
	}

	out := rec.toData()
	if err := s.repo.Upsert(ctx, out); err != nil {
		return nil, fmt.Errorf("save review: %w", err)
	}
	rec.CreatedAt, rec.UpdatedAt = out.CreatedAt, out.UpdatedAt
	return rec, nil
}

// RecordQuality records an explicit self-graded review. The item must exist
// in the catalog.
func (s *Service) RecordQuality(ctx context.Context, userID, itemID string, quality int) (*Record, error) {
	if !ValidQuality(quality) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidQuality, quality)
	}
	if err := s.checkItem(ctx, itemID); err != nil {
		return nil, err
	}
	return s.record(ctx, PathwayExplicit, userID, itemID, quality, "")
}

// RecordCorrectness records a bare correctness signal, graded with
// QualityFromCorrect.
func (s *Service) RecordCorrectness(ctx context.Context, userID, itemID string, correct bool, attemptID string) (*Record, error) {
	return s.record(ctx, PathwayAdaptive, userID, itemID, QualityFromCorrect(correct), attemptID)
}

// Outcome is a graded answer with the timing needed for QualityFromAttempt.
type Outcome struct {
	ItemID     string
	Correct    bool
	TimeTaken  time.Duration
	TimeLimit  time.Duration
	Difficulty *float64
	AttemptID  string
}

// RecordOutcome records a graded answer, refining its quality by response
// time and item difficulty.
func (s *Service) RecordOutcome(ctx context.Context, userID string, o Outcome) (*Record, error) {
	q := QualityFromAttempt(o.Correct, o.TimeTaken, o.TimeLimit, o.Difficulty)
	return s.record(ctx, PathwayFixedForm, userID, o.ItemID, q, o.AttemptID)
}

func (s *Service) checkItem(ctx context.Context, itemID string) error {
	if s.catalog == nil {
		return nil
	}
	if _, err := s.catalog.Item(ctx, itemID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrRecordNotFound, itemID)
		}
		return fmt.Errorf("lookup item: %w", err)
	}
	return nil
}

// QualityInput is one entry of a bulk review update.
type QualityInput struct {
	ItemID  string `json:"item_id"`
	Quality int    `json:"quality"`
}

// BulkItem is a successful entry of a bulk update.
type BulkItem struct {
	ItemID     string    `json:"item_id"`
	NextReview time.Time `json:"next_review"`
	Interval   int       `json:"interval"`
	Success    bool      `json:"success"`
}

// BulkError is a failed entry of a bulk update.
type BulkError struct {
	Index   int    `json:"index"`
	ItemID  string `json:"item_id"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BulkResult holds per-entry outcomes of a bulk update.
type BulkResult struct {
	Results []BulkItem  `json:"results"`
	Errors  []BulkError `json:"errors"`
}

// Partial reports whether at least one entry failed.
func (r *BulkResult) Partial() bool {
	return len(r.Errors) > 0
}

// RecordBulk applies each entry independently. A failing entry is reported
// in Errors and never stops the rest.
func (s *Service) RecordBulk(ctx context.Context, userID string, inputs []QualityInput) *BulkResult {
	res := &BulkResult{Results: []BulkItem{}, Errors: []BulkError{}}
	for i, in := range inputs {
		var (
			rec *Record
			err error
		)
		if in.ItemID == "" {
			err = fmt.Errorf("%w: item_id is required", ErrRecordNotFound)
		} else if !ValidQuality(in.Quality) {
			err = fmt.Errorf("%w: got %d", ErrInvalidQuality, in.Quality)
		} else if err = s.checkItem(ctx, in.ItemID); err == nil {
			rec, err = s.record(ctx, PathwayBulk, userID, in.ItemID, in.Quality, "")
		}
		if err != nil {
			res.Errors = append(res.Errors, BulkError{
				Index:   i,
				ItemID:  in.ItemID,
				Code:    errorCode(err),
				Message: err.Error(),
			})
			continue
		}
		res.Results = append(res.Results, BulkItem{
			ItemID:     rec.ItemID,
			NextReview: rec.NextReview,
			Interval:   rec.Interval,
			Success:    true,
		})
	}
	if res.Partial() {
		s.log.Warn("bulk review update partially failed",
			"user_id", userID, "processed", len(res.Results), "failed", len(res.Errors))
	}
	return res
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidQuality):
		return "invalid_quality"
	case errors.Is(err, ErrRecordNotFound):
		return "not_found"
	default:
		return "internal"
	}
}

// DueEntry is a due record joined with its item content.
type DueEntry struct {
	ItemID     string    `json:"item_id"`
	Content    string    `json:"content"`
	Options    []string  `json:"options"`
	Difficulty float64   `json:"difficulty"`
	Tags       []string  `json:"tags"`
	NextReview time.Time `json:"next_review"`
	LastReview time.Time `json:"last_review"`
	Interval   int       `json:"interval"`
	Repetition int       `json:"repetition"`
	Ease       float64   `json:"ease"`
}

// Due returns the records due today or earlier, most overdue first and
// hardest first within a day. A non-positive limit selects the configured
// default; any limit is capped at the configured maximum.
func (s *Service) Due(ctx context.Context, userID string, limit int) ([]DueEntry, error) {
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}

	rows, err := s.repo.Due(ctx, userID, s.today(), limit)
	if err != nil {
		return nil, fmt.Errorf("query due reviews: %w", err)
	}

	out := make([]DueEntry, 0, len(rows))
	for i := range rows {
		rec := recordFromData(&rows[i])
		e := DueEntry{
			ItemID:     rec.ItemID,
			Options:    []string{},
			Tags:       []string{},
			Difficulty: catalog.DefaultDifficulty,
			NextReview: rec.NextReview,
			LastReview: rec.LastReview,
			Interval:   rec.Interval,
			Repetition: rec.Repetition,
			Ease:       rec.Ease,
		}
		if s.catalog != nil {
			it, err := s.catalog.Item(ctx, rec.ItemID)
			if err != nil {
				s.log.Warn("due review references unknown item", "user_id", userID, "item_id", rec.ItemID, "error", err)
			} else {
				e.Content = it.Content
				e.Difficulty = it.DifficultyValue()
				if it.Options != nil {
					e.Options = it.Options
				}
				if it.Tags != nil {
					e.Tags = it.Tags
				}
			}
		}
		out = append(out, e)
	}
	return out, nil
}
