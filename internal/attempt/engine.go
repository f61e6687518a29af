// Package attempt runs assessment attempts: adaptive attempts that choose
// each next item from the learner's running ability estimate, and fixed-form
// attempts graded in one submission.
package attempt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/adaptiq/internal/ability"
	"github.com/abhisek/adaptiq/internal/authz"
	"github.com/abhisek/adaptiq/internal/catalog"
	"github.com/abhisek/adaptiq/internal/clock"
	"github.com/abhisek/adaptiq/internal/events"
	"github.com/abhisek/adaptiq/internal/grading"
	"github.com/abhisek/adaptiq/internal/logger"
	"github.com/abhisek/adaptiq/internal/metrics"
	"github.com/abhisek/adaptiq/internal/selector"
	"github.com/abhisek/adaptiq/internal/spacedrep"
	"github.com/abhisek/adaptiq/internal/store"
)

// ReviewRecorder receives the review signals emitted when an attempt is
// submitted.
type ReviewRecorder interface {
	RecordCorrectness(ctx context.Context, userID, itemID string, correct bool, attemptID string) (*spacedrep.Record, error)
	RecordOutcome(ctx context.Context, userID string, o spacedrep.Outcome) (*spacedrep.Record, error)
}

// Deps are the collaborators of an Engine. Catalog, Authorizer and Attempts
// are required; the rest have working defaults.
type Deps struct {
	Catalog    catalog.Catalog
	Authorizer authz.Authorizer
	Attempts   store.AttemptRepo
	Reviews    ReviewRecorder
	Events     events.Publisher
	Clock      clock.Clock
	Selector   *selector.Selector
	Model      ability.Model
	Tuning     Tuning
	Logger     *logger.Logger
}

// Engine drives attempts. Each call loads the attempt, applies one
// transition and saves it; concurrent calls on the same attempt are
// serialized by the repository's version check.
type Engine struct {
	catalog  catalog.Catalog
	authz    authz.Authorizer
	attempts store.AttemptRepo
	reviews  ReviewRecorder
	events   events.Publisher
	clock    clock.Clock
	selector *selector.Selector
	model    ability.Model
	tuning   Tuning
	log      *logger.Logger
}

// NewEngine creates an Engine, filling unset optional dependencies.
func NewEngine(d Deps) *Engine {
	e := &Engine{
		catalog:  d.Catalog,
		authz:    d.Authorizer,
		attempts: d.Attempts,
		reviews:  d.Reviews,
		events:   d.Events,
		clock:    d.Clock,
		selector: d.Selector,
		model:    d.Model,
		tuning:   d.Tuning,
		log:      d.Logger,
	}
	if e.authz == nil {
		e.authz = authz.AllowAll{}
	}
	if e.events == nil {
		e.events = events.Nop{}
	}
	if e.clock == nil {
		e.clock = clock.System{}
	}
	if e.model.Slope == 0 && e.model.LearningRate == 0 {
		e.model = ability.Default
	}
	if e.tuning.ConvergenceEpsilon <= 0 {
		e.tuning.ConvergenceEpsilon = DefaultConvergenceEpsilon
	}
	if e.tuning.TieEpsilon <= 0 {
		e.tuning.TieEpsilon = selector.DefaultTieEpsilon
	}
	if e.selector == nil {
		e.selector = selector.New(nil, e.tuning.TieEpsilon)
	}
	if e.log == nil {
		e.log = logger.Nop()
	}
	return e
}

// Start begins an adaptive attempt at the prior ability and presents the
// item closest to it.
func (e *Engine) Start(ctx context.Context, userID, assessmentID string) (*StartResult, error) {
	a, items, err := e.openAssessment(ctx, userID, assessmentID, catalog.StrategyAdaptive)
	if err != nil {
		return nil, err
	}

	first, ok := e.selector.PickNext(items, nil, ability.Prior)
	if !ok {
		return nil, fmt.Errorf("%w: assessment %s", ErrNoItemsAvailable, assessmentID)
	}

	att := &Attempt{
		ID:           uuid.NewString(),
		UserID:       userID,
		AssessmentID: assessmentID,
		Mode:         ModeAdaptive,
		Presented:    []string{first.ID},
		Ability:      ability.Prior,
		StartedAt:    e.clock.Now(),
	}
	if err := e.create(ctx, att); err != nil {
		return nil, err
	}

	e.log.Info("adaptive attempt started",
		"attempt_id", att.ID, "user_id", userID, "assessment_id", assessmentID, "first_item", first.ID)

	return &StartResult{
		AttemptID:    att.ID,
		AssessmentID: assessmentID,
		Title:        a.Title,
		First:        first.View(),
		Ability:      att.Ability,
		MinItems:     a.MinItems,
		MaxItems:     a.MaxItems,
		TimeLimit:    a.TimeLimit,
		StartedAt:    att.StartedAt,
	}, nil
}

// SubmitAnswer grades an answer to a presented item, updates the ability
// estimate and either presents the next item or reports that the attempt is
// done. Termination does not submit the attempt; the client calls Finish.
func (e *Engine) SubmitAnswer(ctx context.Context, attemptID, itemID string, response any) (*AnswerResult, error) {
	att, err := e.load(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if att.Mode != ModeAdaptive {
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

	var item *catalog.Item
	for i := range items {
		if items[i].ID == itemID {
			item = &items[i]
			break
		}
	}
	if item == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownItem, itemID)
	}
	presented := att.presentedSet()
	if !presented[itemID] {
		return nil, fmt.Errorf("%w: %s", ErrItemNotPresented, itemID)
	}
	if att.answered(itemID) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateAnswer, itemID)
	}

	res := grading.Grade(item, response)
	difficulty := item.DifficultyValue()
	theta := e.model.UpdateAbility(att.Ability, difficulty, res.Correct)

	att.Answers = append(att.Answers, AnswerRecord{
		ItemID:     itemID,
		Response:   response,
		Correct:    res.Correct,
		Points:     res.Points,
		Ability:    roundAbility(theta),
		Difficulty: difficulty,
		AnsweredAt: now,
	})
	att.RawScore += res.Points
	att.Ability = theta

	step := transition(att.Answers, limits{
		MinItems: a.MinItems,
		MaxItems: a.MaxItems,
		Epsilon:  e.tuning.ConvergenceEpsilon,
	}, func() (catalog.Item, bool) {
		return e.selector.PickNext(items, presented, theta)
	})

	out := &AnswerResult{
		Correct:  res.Correct,
		Done:     step.Done,
		Reason:   step.Reason,
		Ability:  roundAbility(theta),
		Score:    att.RawScore,
		Answered: len(att.Answers),
	}
	if step.Done {
		att.DoneReason = step.Reason
	} else {
		att.Presented = append(att.Presented, step.Next.ID)
		v := step.Next.View()
		out.Next = &v
	}

	if err := e.save(ctx, att); err != nil {
		return nil, err
	}

	metrics.AnswersGraded.WithLabelValues(metrics.Outcome(res.Correct)).Inc()
	if step.Done {
		metrics.Terminations.WithLabelValues(string(step.Reason)).Inc()
		e.log.Info("adaptive attempt reached termination",
			"attempt_id", att.ID, "reason", step.Reason, "answered", len(att.Answers), "ability", out.Ability)
	}
	return out, nil
}

// Finish submits an adaptive attempt, freezing its score, then emits one
// review signal per answered item. Review failures are collected in the
// result and never fail the call.
func (e *Engine) Finish(ctx context.Context, attemptID string) (*FinishResult, error) {
	att, err := e.load(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if att.Mode != ModeAdaptive {
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
	required := min(a.MinItems, len(items))
	if len(att.Answers) < required {
		return nil, fmt.Errorf("%w: answered %d of %d", ErrBelowMinimum, len(att.Answers), required)
	}

	att.Submitted = true
	att.EndedAt = &now
	att.Score = att.RawScore
	if err := e.save(ctx, att); err != nil {
		return nil, err
	}

	summary := e.emitReviews(ctx, att, func(ans AnswerRecord) error {
		_, err := e.reviews.RecordCorrectness(ctx, att.UserID, ans.ItemID, ans.Correct, att.ID)
		return err
	})
	e.finished(ctx, att, summary)

	return &FinishResult{
		AttemptID: att.ID,
		Score:     att.Score,
		Ability:   roundAbility(att.Ability),
		Answered:  len(att.Answers),
		Answers:   att.Answers,
		Reviews:   summary,
	}, nil
}

// Status returns a read-only snapshot of the attempt.
func (e *Engine) Status(ctx context.Context, attemptID string) (*Snapshot, error) {
	att, err := e.load(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{
		AttemptID:    att.ID,
		UserID:       att.UserID,
		AssessmentID: att.AssessmentID,
		Mode:         att.Mode,
		State:        att.State(),
		Submitted:    att.Submitted,
		Ability:      roundAbility(att.Ability),
		Presented:    append([]string{}, att.Presented...),
		Answered:     len(att.Answers),
		Score:        att.RawScore,
		DoneReason:   att.DoneReason,
		StartedAt:    att.StartedAt,
		EndedAt:      att.EndedAt,
	}
	a, err := e.catalog.Assessment(ctx, att.AssessmentID)
	if err != nil {
		return nil, fmt.Errorf("load assessment: %w", err)
	}
	snap.TimeLimit = int(a.TimeLimit / time.Minute)
	if dl, ok := a.Deadline(att.StartedAt); ok {
		snap.Deadline = &dl
	}
	return snap, nil
}

// openAssessment loads an assessment for a new attempt, checking its
// strategy and the user's access.
func (e *Engine) openAssessment(ctx context.Context, userID, assessmentID string, want catalog.Strategy) (*catalog.Assessment, []catalog.Item, error) {
	a, items, err := e.assessmentItems(ctx, assessmentID)
	if err != nil {
		return nil, nil, err
	}
	if a.Strategy != want {
		return nil, nil, fmt.Errorf("%w: %s is %s", ErrInvalidStrategy, assessmentID, a.Strategy)
	}
	ok, err := e.authz.CanAttempt(ctx, userID, a)
	if err != nil {
		return nil, nil, fmt.Errorf("check access: %w", err)
	}
	if !ok {
		return nil, nil, fmt.Errorf("%w: user %s on %s", ErrForbidden, userID, assessmentID)
	}
	return a, items, nil
}

func (e *Engine) assessmentItems(ctx context.Context, assessmentID string) (*catalog.Assessment, []catalog.Item, error) {
	a, err := e.catalog.Assessment(ctx, assessmentID)
	if err != nil {
		return nil, nil, fmt.Errorf("load assessment: %w", err)
	}
	items, err := e.catalog.Items(ctx, assessmentID)
	if err != nil {
		return nil, nil, fmt.Errorf("load items: %w", err)
	}
	return a, items, nil
}

func checkDeadline(a *catalog.Assessment, att *Attempt, now time.Time) error {
	if dl, ok := a.Deadline(att.StartedAt); ok && now.After(dl) {
		return fmt.Errorf("%w: deadline was %s", ErrTimeExpired, dl.Format(time.RFC3339))
	}
	return nil
}

func (e *Engine) load(ctx context.Context, attemptID string) (*Attempt, error) {
	d, err := e.attempts.Get(ctx, attemptID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrAttemptNotFound, attemptID)
	}
	if err != nil {
		return nil, fmt.Errorf("load attempt: %w", err)
	}
	return fromData(d), nil
}

func (e *Engine) create(ctx context.Context, att *Attempt) error {
	d := att.toData()
	if err := e.attempts.Create(ctx, d); err != nil {
		return fmt.Errorf("create attempt: %w", err)
	}
	att.Version = d.Version

	metrics.AttemptsStarted.WithLabelValues(string(att.Mode)).Inc()
	ev := events.NewAttemptStartedEvent(att.ID, att.UserID, att.AssessmentID, string(att.Mode), att.StartedAt)
	if err := e.events.PublishAttemptStarted(ctx, ev); err != nil {
		e.log.Warn("publish attempt started failed", "attempt_id", att.ID, "error", err)
	}
	return nil
}

func (e *Engine) save(ctx context.Context, att *Attempt) error {
	d := att.toData()
	if err := e.attempts.Save(ctx, d); err != nil {
		return fmt.Errorf("save attempt: %w", err)
	}
	att.Version = d.Version
	return nil
}

// emitReviews sends one signal per answered item and aggregates the outcome.
func (e *Engine) emitReviews(ctx context.Context, att *Attempt, signal func(AnswerRecord) error) ReviewSummary {
	summary := ReviewSummary{Failed: []ItemFailure{}}
	if e.reviews == nil {
		return summary
	}
	for _, ans := range att.Answers {
		if err := signal(ans); err != nil {
			e.log.Warn("review signal failed",
				"attempt_id", att.ID, "user_id", att.UserID, "item_id", ans.ItemID, "error", err)
			summary.Failed = append(summary.Failed, ItemFailure{ItemID: ans.ItemID, Error: err.Error()})
			continue
		}
		summary.Recorded++
	}
	return summary
}

// finished records metrics, logs and publishes the submission.
func (e *Engine) finished(ctx context.Context, att *Attempt, summary ReviewSummary) {
	metrics.AttemptsFinished.WithLabelValues(string(att.Mode)).Inc()
	e.log.Info("attempt submitted",
		"attempt_id", att.ID, "user_id", att.UserID, "mode", att.Mode,
		"score", att.Score, "answered", len(att.Answers),
		"reviews_recorded", summary.Recorded, "reviews_failed", len(summary.Failed))

	ev := events.NewAttemptFinishedEvent(att.ID, att.UserID, att.AssessmentID, string(att.Mode), e.clock.Now())
	ev.Score = att.Score
	ev.Ability = roundAbility(att.Ability)
	ev.Answered = len(att.Answers)
	ev.ReviewsRecorded = summary.Recorded
	ev.ReviewsFailed = len(summary.Failed)
	if err := e.events.PublishAttemptFinished(ctx, ev); err != nil {
		e.log.Warn("publish attempt finished failed", "attempt_id", att.ID, "error", err)
	}
}
