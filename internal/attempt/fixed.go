package attempt

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/adaptiq/internal/ability"
	"github.com/abhisek/adaptiq/internal/catalog"
	"github.com/abhisek/adaptiq/internal/grading"
	"github.com/abhisek/adaptiq/internal/metrics"
	"github.com/abhisek/adaptiq/internal/spacedrep"
)

// FixedStart is returned when a fixed-form attempt begins. Items are every
// item of the assessment in catalog order.
type FixedStart struct {
	AttemptID    string         `json:"attempt_id"`
	AssessmentID string         `json:"assessment_id"`
	Title        string         `json:"title"`
	Items        []catalog.View `json:"items"`
	TimeLimit    int            `json:"time_limit_minutes"`
	StartedAt    time.Time      `json:"started_at"`
	Deadline     *time.Time     `json:"deadline,omitempty"`
}

// FixedResult is returned when a fixed-form attempt is submitted.
type FixedResult struct {
	AttemptID   string           `json:"attempt_id"`
	Score       int              `json:"score"`
	TotalPoints int              `json:"total_points"`
	Percentage  float64          `json:"percentage"`
	Details     []grading.Detail `json:"details"`
	Reviews     ReviewSummary    `json:"reviews"`
}

// StartFixed begins a fixed-form attempt. Every previous attempt by the
// user on the assessment counts against AttemptsAllowed.
func (e *Engine) StartFixed(ctx context.Context, userID, assessmentID string) (*FixedStart, error) {
	a, items, err := e.openAssessment(ctx, userID, assessmentID, catalog.StrategyFixed)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: assessment %s", ErrNoItemsAvailable, assessmentID)
	}
	if a.AttemptsAllowed > 0 {
		n, err := e.attempts.CountByUser(ctx, userID, assessmentID)
		if err != nil {
			return nil, fmt.Errorf("count attempts: %w", err)
		}
		if n >= a.AttemptsAllowed {
			return nil, fmt.Errorf("%w: %d of %d used", ErrAttemptsExhausted, n, a.AttemptsAllowed)
		}
	}

	ordered := append([]catalog.Item(nil), items...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	att := &Attempt{
		ID:           uuid.NewString(),
		UserID:       userID,
		AssessmentID: assessmentID,
		Mode:         ModeFixed,
		Ability:      ability.Prior,
		StartedAt:    e.clock.Now(),
	}
	views := make([]catalog.View, 0, len(ordered))
	for i := range ordered {
		att.Presented = append(att.Presented, ordered[i].ID)
		views = append(views, ordered[i].View())
	}
	if err := e.create(ctx, att); err != nil {
		return nil, err
	}

	e.log.Info("fixed attempt started",
		"attempt_id", att.ID, "user_id", userID, "assessment_id", assessmentID, "items", len(views))

	out := &FixedStart{
		AttemptID:    att.ID,
		AssessmentID: assessmentID,
		Title:        a.Title,
		Items:        views,
		TimeLimit:    int(a.TimeLimit / time.Minute),
		StartedAt:    att.StartedAt,
	}
	if dl, ok := a.Deadline(att.StartedAt); ok {
		out.Deadline = &dl
	}
	return out, nil
}

// SubmitFixed grades a fixed-form attempt in one pass and submits it.
// Answers for items outside the assessment are ignored; unanswered items
// score zero. Review signals use the refined quality mapping.
func (e *Engine) SubmitFixed(ctx context.Context, attemptID string, answers map[string]any) (*FixedResult, error) {
	att, err := e.load(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if att.Mode != ModeFixed {
		return nil, fmt.Errorf("%w: attempt %s is %s", ErrInvalidStrategy, attemptID, att.Mode)
	}
	if att.Submitted {
		return nil, fmt.Errorf("%w: %s", ErrAlreadySubmitted, attemptID)
	}

	a, items, err := e.assessmentItems(ctx, att.AssessmentID)
	if err != nil {
		return nil, err
	}
	now := e.clock.Now()
	if err := checkDeadline(a, att, now); err != nil {
		return nil, err
	}

	sheet := grading.GradeAll(items, answers)
	byID := make(map[string]*catalog.Item, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}
	for _, d := range sheet.Details {
		given, ok := answers[d.ItemID]
		if !ok {
			continue
		}
		att.Answers = append(att.Answers, AnswerRecord{
			ItemID:     d.ItemID,
			Response:   given,
			Correct:    d.Correct,
			Points:     d.Points,
			Ability:    roundAbility(att.Ability),
			Difficulty: byID[d.ItemID].DifficultyValue(),
			AnsweredAt: now,
		})
		metrics.AnswersGraded.WithLabelValues(metrics.Outcome(d.Correct)).Inc()
	}
	att.RawScore = sheet.Score
	att.Score = sheet.Score
	att.Submitted = true
	att.EndedAt = &now
	if err := e.save(ctx, att); err != nil {
		return nil, err
	}

	taken := now.Sub(att.StartedAt)
	summary := e.emitReviews(ctx, att, func(ans AnswerRecord) error {
		_, err := e.reviews.RecordOutcome(ctx, att.UserID, spacedrep.Outcome{
			ItemID:     ans.ItemID,
			Correct:    ans.Correct,
			TimeTaken:  taken,
			TimeLimit:  a.TimeLimit,
			Difficulty: byID[ans.ItemID].Difficulty,
			AttemptID:  att.ID,
		})
		return err
	})
	e.finished(ctx, att, summary)

	return &FixedResult{
		AttemptID:   att.ID,
		Score:       sheet.Score,
		TotalPoints: sheet.TotalPoints,
		Percentage:  sheet.Percentage(),
		Details:     sheet.Details,
		Reviews:     summary,
	}, nil
}
