package attempt

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/adaptiq/internal/ability"
	"github.com/abhisek/adaptiq/internal/authz"
	"github.com/abhisek/adaptiq/internal/catalog"
	"github.com/abhisek/adaptiq/internal/clock"
	"github.com/abhisek/adaptiq/internal/selector"
	"github.com/abhisek/adaptiq/internal/spacedrep"
	"github.com/abhisek/adaptiq/internal/store"
)

// memAttemptRepo is an in-memory AttemptRepo with the same version check as
// the SQLite one.
type memAttemptRepo struct {
	mu   sync.Mutex
	rows map[string]store.AttemptData
}

func newMemAttemptRepo() *memAttemptRepo {
	return &memAttemptRepo{rows: map[string]store.AttemptData{}}
}

func (m *memAttemptRepo) Create(_ context.Context, a *store.AttemptData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.Version = 1
	m.rows[a.ID] = *a
	return nil
}

func (m *memAttemptRepo) Get(_ context.Context, id string) (*store.AttemptData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (m *memAttemptRepo) Save(_ context.Context, a *store.AttemptData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rows[a.ID]
	if !ok {
		return store.ErrNotFound
	}
	if cur.Version != a.Version {
		return store.ErrConflict
	}
	a.Version++
	m.rows[a.ID] = *a
	return nil
}

func (m *memAttemptRepo) CountByUser(_ context.Context, userID, assessmentID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.rows {
		if a.UserID == userID && a.AssessmentID == assessmentID {
			n++
		}
	}
	return n, nil
}

type signal struct {
	userID  string
	itemID  string
	correct bool
	outcome *spacedrep.Outcome
}

// fakeReviews records every signal and fails for items in failFor.
type fakeReviews struct {
	signals []signal
	failFor map[string]bool
}

func (f *fakeReviews) RecordCorrectness(_ context.Context, userID, itemID string, correct bool, _ string) (*spacedrep.Record, error) {
	if f.failFor[itemID] {
		return nil, errors.New("review store unavailable")
	}
	f.signals = append(f.signals, signal{userID: userID, itemID: itemID, correct: correct})
	return &spacedrep.Record{UserID: userID, ItemID: itemID}, nil
}

func (f *fakeReviews) RecordOutcome(_ context.Context, userID string, o spacedrep.Outcome) (*spacedrep.Record, error) {
	if f.failFor[o.ItemID] {
		return nil, errors.New("review store unavailable")
	}
	f.signals = append(f.signals, signal{userID: userID, itemID: o.ItemID, correct: o.Correct, outcome: &o})
	return &spacedrep.Record{UserID: userID, ItemID: o.ItemID}, nil
}

func fill(id string, difficulty float64, points int) catalog.Item {
	d := difficulty
	return catalog.Item{ID: id, Type: catalog.TypeFill, Content: id, Key: "ok", Points: points, Difficulty: &d}
}

var t0 = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

type harness struct {
	engine   *Engine
	attempts *memAttemptRepo
	reviews  *fakeReviews
	clock    *clock.Manual
	catalog  *catalog.Memory
}

func newHarness(t *testing.T, model ability.Model, tuning Tuning) *harness {
	t.Helper()
	cat := catalog.NewMemory()
	require.NoError(t, cat.Add(
		catalog.Assessment{ID: "three", Strategy: catalog.StrategyAdaptive, MinItems: 1, MaxItems: 3},
		fill("easy", 0.2, 1), fill("mid", 0.5, 1), fill("hard", 0.8, 1),
	))
	require.NoError(t, cat.Add(
		catalog.Assessment{ID: "five", Strategy: catalog.StrategyAdaptive, MinItems: 3, MaxItems: 5, TimeLimit: 30 * time.Minute},
		fill("f1", 0.2, 1), fill("f2", 0.35, 2), fill("f3", 0.5, 3), fill("f4", 0.65, 4), fill("f5", 0.8, 5),
	))
	require.NoError(t, cat.Add(
		catalog.Assessment{ID: "form", Strategy: catalog.StrategyFixed, MinItems: 1, MaxItems: 2, AttemptsAllowed: 2, TimeLimit: 10 * time.Minute},
		catalog.Item{ID: "x1", Type: catalog.TypeSingle, Content: "pick", Options: []string{"a", "b"}, Key: 1, Points: 2, Order: 2},
		fill("x2", 0.9, 3),
	))

	h := &harness{
		attempts: newMemAttemptRepo(),
		reviews:  &fakeReviews{failFor: map[string]bool{}},
		clock:    clock.NewManual(t0),
		catalog:  cat,
	}
	h.engine = NewEngine(Deps{
		Catalog:    cat,
		Authorizer: authz.AllowAll{},
		Attempts:   h.attempts,
		Reviews:    h.reviews,
		Clock:      h.clock,
		Selector:   selector.New(rand.NewPCG(7, 7), tuning.TieEpsilon),
		Model:      model,
		Tuning:     tuning,
	})
	return h
}

func defaultHarness(t *testing.T) *harness {
	return newHarness(t, ability.Default, DefaultTuning())
}

func TestStart_PicksClosestToPrior(t *testing.T) {
	h := defaultHarness(t)
	ctx := context.Background()

	res, err := h.engine.Start(ctx, "u1", "three")
	require.NoError(t, err)
	assert.Equal(t, "mid", res.First.ID)
	assert.Equal(t, ability.Prior, res.Ability)
	assert.NotEmpty(t, res.AttemptID)

	snap, err := h.engine.Status(ctx, res.AttemptID)
	require.NoError(t, err)
	assert.Equal(t, StateInProgress, snap.State)
	assert.Equal(t, []string{"mid"}, snap.Presented)
	assert.Equal(t, 0, snap.Answered)
}

func TestStart_Errors(t *testing.T) {
	h := defaultHarness(t)
	ctx := context.Background()

	_, err := h.engine.Start(ctx, "u1", "form")
	assert.ErrorIs(t, err, ErrInvalidStrategy)

	_, err = h.engine.Start(ctx, "u1", "missing")
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	require.NoError(t, h.catalog.Add(catalog.Assessment{ID: "empty", Strategy: catalog.StrategyAdaptive, MinItems: 1, MaxItems: 1}))
	_, err = h.engine.Start(ctx, "u1", "empty")
	assert.ErrorIs(t, err, ErrNoItemsAvailable)

	h.engine.authz = authz.NewEnrollmentPolicy(nil, nil)
	_, err = h.engine.Start(ctx, "u1", "three")
	assert.ErrorIs(t, err, ErrForbidden)
}

// Pool 0.2/0.5/0.8: the first item is the exact match, a correct answer
// raises ability and the next pick is the closest remaining item.
func TestScenario_FirstPickAndProgression(t *testing.T) {
	h := defaultHarness(t)
	ctx := context.Background()

	start, err := h.engine.Start(ctx, "u1", "three")
	require.NoError(t, err)
	require.Equal(t, "mid", start.First.ID)

	res, err := h.engine.SubmitAnswer(ctx, start.AttemptID, "mid", "OK ")
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.False(t, res.Done)
	assert.Greater(t, res.Ability, ability.Prior)
	assert.InDelta(t, 0.59, res.Ability, 1e-9)
	require.NotNil(t, res.Next)
	assert.Equal(t, "hard", res.Next.ID)
	assert.Equal(t, 1, res.Score)
}

// With a small learning rate three correct answers move ability by well
// under the convergence threshold, so the third answer converges.
func TestScenario_ConvergesAtMinimum(t *testing.T) {
	model := ability.Model{Slope: ability.DefaultSlope, LearningRate: 0.01}
	h := newHarness(t, model, DefaultTuning())
	ctx := context.Background()

	start, err := h.engine.Start(ctx, "u1", "five")
	require.NoError(t, err)

	next := start.First.ID
	var res *AnswerResult
	for i := 0; i < 3; i++ {
		res, err = h.engine.SubmitAnswer(ctx, start.AttemptID, next, "ok")
		require.NoError(t, err)
		if i < 2 {
			require.False(t, res.Done, "answer %d", i+1)
			require.NotNil(t, res.Next)
			next = res.Next.ID
		}
	}
	assert.True(t, res.Done)
	assert.Equal(t, ReasonConverged, res.Reason)
	assert.Nil(t, res.Next)

	snap, err := h.engine.Status(ctx, start.AttemptID)
	require.NoError(t, err)
	assert.Equal(t, ReasonConverged, snap.DoneReason)
	assert.False(t, snap.Submitted)
}

func TestDefaultTuning_DoesNotConvergeOnLargeSteps(t *testing.T) {
	h := defaultHarness(t)
	ctx := context.Background()

	start, err := h.engine.Start(ctx, "u1", "five")
	require.NoError(t, err)
	require.Equal(t, "f3", start.First.ID)

	want := []string{"f4", "f5", "f2"}
	next := start.First.ID
	for i := 0; i < 3; i++ {
		res, err := h.engine.SubmitAnswer(ctx, start.AttemptID, next, "ok")
		require.NoError(t, err)
		require.False(t, res.Done, "answer %d", i+1)
		require.NotNil(t, res.Next)
		assert.Equal(t, want[i], res.Next.ID, "pick after answer %d", i+1)
		next = res.Next.ID
	}
}

func TestSubmitAnswer_MaxItemsThenExhausted(t *testing.T) {
	h := defaultHarness(t)
	ctx := context.Background()

	// "three" allows three answers out of three items, so the cap is hit
	// before the pool runs dry.
	start, err := h.engine.Start(ctx, "u1", "three")
	require.NoError(t, err)
	next := start.First.ID
	var res *AnswerResult
	for i := 0; i < 3; i++ {
		res, err = h.engine.SubmitAnswer(ctx, start.AttemptID, next, "wrong")
		require.NoError(t, err)
		if res.Next != nil {
			next = res.Next.ID
		}
	}
	require.True(t, res.Done)
	assert.Equal(t, ReasonMaxItems, res.Reason)

	// A larger cap over the same pool ends by exhaustion instead.
	require.NoError(t, h.catalog.Add(
		catalog.Assessment{ID: "small", Strategy: catalog.StrategyAdaptive, MinItems: 1, MaxItems: 5},
		fill("s1", 0.1, 1), fill("s2", 0.9, 1),
	))
	start, err = h.engine.Start(ctx, "u1", "small")
	require.NoError(t, err)
	next = start.First.ID
	for i := 0; i < 2; i++ {
		res, err = h.engine.SubmitAnswer(ctx, start.AttemptID, next, "wrong")
		require.NoError(t, err)
		if res.Next != nil {
			next = res.Next.ID
		}
	}
	require.True(t, res.Done)
	assert.Equal(t, ReasonExhausted, res.Reason)
}

func TestSubmitAnswer_Rejections(t *testing.T) {
	h := defaultHarness(t)
	ctx := context.Background()

	start, err := h.engine.Start(ctx, "u1", "five")
	require.NoError(t, err)
	first := start.First.ID

	_, err = h.engine.SubmitAnswer(ctx, "nope", first, "ok")
	assert.ErrorIs(t, err, ErrAttemptNotFound)

	_, err = h.engine.SubmitAnswer(ctx, start.AttemptID, "mid", "ok")
	assert.ErrorIs(t, err, ErrUnknownItem)

	_, err = h.engine.SubmitAnswer(ctx, start.AttemptID, "f1", "ok")
	assert.ErrorIs(t, err, ErrItemNotPresented)

	_, err = h.engine.SubmitAnswer(ctx, start.AttemptID, first, "ok")
	require.NoError(t, err)
	_, err = h.engine.SubmitAnswer(ctx, start.AttemptID, first, "ok")
	assert.ErrorIs(t, err, ErrDuplicateAnswer)
}

func TestSubmitAnswer_TimeExpired(t *testing.T) {
	h := defaultHarness(t)
	ctx := context.Background()

	start, err := h.engine.Start(ctx, "u1", "five")
	require.NoError(t, err)

	h.clock.Advance(30 * time.Minute)
	_, err = h.engine.SubmitAnswer(ctx, start.AttemptID, start.First.ID, "ok")
	require.NoError(t, err, "the deadline instant itself is still in time")

	h.clock.Advance(time.Second)
	snap, err := h.engine.Status(ctx, start.AttemptID)
	require.NoError(t, err)
	_, err = h.engine.SubmitAnswer(ctx, start.AttemptID, snap.Presented[1], "ok")
	assert.ErrorIs(t, err, ErrTimeExpired)

	_, err = h.engine.Finish(ctx, start.AttemptID)
	assert.ErrorIs(t, err, ErrTimeExpired)
}

// Finish below the minimum fails; after the third answer it succeeds, the
// score is the sum of correct points and every answered item gets a signal.
func TestScenario_FinishRequiresMinimum(t *testing.T) {
	h := defaultHarness(t)
	ctx := context.Background()

	start, err := h.engine.Start(ctx, "u1", "five")
	require.NoError(t, err)

	responses := []string{"ok", "wrong", "ok"}
	next := start.First.ID
	wantScore := 0
	var answered []string
	for i, resp := range responses {
		if i == 2 {
			_, err := h.engine.Finish(ctx, start.AttemptID)
			require.ErrorIs(t, err, ErrBelowMinimum)
		}
		item, err := h.catalog.Item(ctx, next)
		require.NoError(t, err)
		if resp == "ok" {
			wantScore += item.Points
		}
		answered = append(answered, next)

		res, err := h.engine.SubmitAnswer(ctx, start.AttemptID, next, resp)
		require.NoError(t, err)
		if res.Next != nil {
			next = res.Next.ID
		}
	}

	fin, err := h.engine.Finish(ctx, start.AttemptID)
	require.NoError(t, err)
	assert.Equal(t, wantScore, fin.Score)
	assert.Equal(t, 3, fin.Answered)
	assert.Equal(t, 3, fin.Reviews.Recorded)
	assert.Empty(t, fin.Reviews.Failed)

	require.Len(t, h.reviews.signals, 3)
	for i, s := range h.reviews.signals {
		assert.Equal(t, "u1", s.userID)
		assert.Equal(t, answered[i], s.itemID)
		assert.Equal(t, responses[i] == "ok", s.correct)
		assert.Nil(t, s.outcome, "adaptive finish uses the correctness pathway")
	}

	snap, err := h.engine.Status(ctx, start.AttemptID)
	require.NoError(t, err)
	assert.Equal(t, StateSubmitted, snap.State)
	require.NotNil(t, snap.EndedAt)

	_, err = h.engine.Finish(ctx, start.AttemptID)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	_, err = h.engine.SubmitAnswer(ctx, start.AttemptID, next, "ok")
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
}

func TestFinish_ReviewFailuresDoNotAbort(t *testing.T) {
	h := defaultHarness(t)
	ctx := context.Background()

	start, err := h.engine.Start(ctx, "u1", "three")
	require.NoError(t, err)
	_, err = h.engine.SubmitAnswer(ctx, start.AttemptID, start.First.ID, "ok")
	require.NoError(t, err)

	h.reviews.failFor[start.First.ID] = true
	fin, err := h.engine.Finish(ctx, start.AttemptID)
	require.NoError(t, err)
	assert.Equal(t, 0, fin.Reviews.Recorded)
	require.Len(t, fin.Reviews.Failed, 1)
	assert.Equal(t, start.First.ID, fin.Reviews.Failed[0].ItemID)

	snap, err := h.engine.Status(ctx, start.AttemptID)
	require.NoError(t, err)
	assert.True(t, snap.Submitted)
}

func TestFinish_MinimumClampedToPool(t *testing.T) {
	h := defaultHarness(t)
	ctx := context.Background()
	require.NoError(t, h.catalog.Add(
		catalog.Assessment{ID: "tiny", Strategy: catalog.StrategyAdaptive, MinItems: 4, MaxItems: 6},
		fill("t1", 0.5, 1), fill("t2", 0.6, 1),
	))

	start, err := h.engine.Start(ctx, "u1", "tiny")
	require.NoError(t, err)
	res, err := h.engine.SubmitAnswer(ctx, start.AttemptID, start.First.ID, "ok")
	require.NoError(t, err)
	res, err = h.engine.SubmitAnswer(ctx, start.AttemptID, res.Next.ID, "ok")
	require.NoError(t, err)
	require.Equal(t, ReasonExhausted, res.Reason)

	_, err = h.engine.Finish(ctx, start.AttemptID)
	assert.NoError(t, err)
}

func TestAttemptInvariants(t *testing.T) {
	h := defaultHarness(t)
	ctx := context.Background()

	start, err := h.engine.Start(ctx, "u1", "five")
	require.NoError(t, err)
	next := start.First.ID
	for _, resp := range []string{"ok", "ok", "wrong", "ok", "wrong"} {
		res, err := h.engine.SubmitAnswer(ctx, start.AttemptID, next, resp)
		require.NoError(t, err)
		if res.Done {
			break
		}
		next = res.Next.ID
	}

	d, err := h.attempts.Get(ctx, start.AttemptID)
	require.NoError(t, err)
	att := fromData(d)

	presented := att.presentedSet()
	assert.Len(t, presented, len(att.Presented), "presented ids are unique")
	assert.LessOrEqual(t, len(att.Answers), len(att.Presented))
	assert.LessOrEqual(t, len(att.Answers), 5)

	seen := map[string]bool{}
	sum := 0
	for _, ans := range att.Answers {
		assert.True(t, presented[ans.ItemID], "answered item %s was presented", ans.ItemID)
		assert.False(t, seen[ans.ItemID], "item %s answered once", ans.ItemID)
		seen[ans.ItemID] = true
		assert.GreaterOrEqual(t, ans.Ability, 0.0)
		assert.LessOrEqual(t, ans.Ability, 1.0)
		assert.Equal(t, ans.Ability, math.Round(ans.Ability*1e4)/1e4)
		sum += ans.Points
	}
	assert.Equal(t, sum, att.RawScore)
}

func TestSave_ConflictSurfaces(t *testing.T) {
	h := defaultHarness(t)
	ctx := context.Background()

	start, err := h.engine.Start(ctx, "u1", "three")
	require.NoError(t, err)

	// Simulate a concurrent writer bumping the version.
	d, err := h.attempts.Get(ctx, start.AttemptID)
	require.NoError(t, err)
	require.NoError(t, h.attempts.Save(ctx, d))

	stale := fromData(d)
	stale.Version = 1
	err = h.engine.save(ctx, stale)
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestModeMismatch(t *testing.T) {
	h := defaultHarness(t)
	ctx := context.Background()

	adaptive, err := h.engine.Start(ctx, "u1", "three")
	require.NoError(t, err)
	_, err = h.engine.SubmitFixed(ctx, adaptive.AttemptID, map[string]any{})
	assert.ErrorIs(t, err, ErrInvalidStrategy)

	fixed, err := h.engine.StartFixed(ctx, "u1", "form")
	require.NoError(t, err)
	_, err = h.engine.SubmitAnswer(ctx, fixed.AttemptID, "x1", 1)
	assert.ErrorIs(t, err, ErrInvalidStrategy)
	_, err = h.engine.Finish(ctx, fixed.AttemptID)
	assert.ErrorIs(t, err, ErrInvalidStrategy)
}

func TestTransition(t *testing.T) {
	next := catalog.Item{ID: "n"}
	some := func() (catalog.Item, bool) { return next, true }
	none := func() (catalog.Item, bool) { return catalog.Item{}, false }
	hist := func(abilities ...float64) []AnswerRecord {
		out := make([]AnswerRecord, len(abilities))
		for i, a := range abilities {
			out[i].Ability = a
		}
		return out
	}

	tests := []struct {
		name    string
		answers []AnswerRecord
		limits  limits
		pick    func() (catalog.Item, bool)
		done    bool
		reason  DoneReason
	}{
		{"continue", hist(0.5, 0.59), limits{2, 5, 0.01}, some, false, ReasonNone},
		{"converged", hist(0.5, 0.505), limits{2, 5, 0.01}, some, true, ReasonConverged},
		{"converged wins over max", hist(0.5, 0.505), limits{2, 2, 0.01}, none, true, ReasonConverged},
		{"stable below minimum", hist(0.5, 0.505), limits{3, 5, 0.01}, some, false, ReasonNone},
		{"single answer never converges", hist(0.5), limits{1, 5, 0.01}, some, false, ReasonNone},
		{"max items", hist(0.5, 0.6, 0.7), limits{1, 3, 0.01}, some, true, ReasonMaxItems},
		{"exhausted", hist(0.5, 0.6), limits{1, 5, 0.01}, none, true, ReasonExhausted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			step := transition(tt.answers, tt.limits, tt.pick)
			assert.Equal(t, tt.done, step.Done)
			assert.Equal(t, tt.reason, step.Reason)
			if !tt.done {
				require.NotNil(t, step.Next)
				assert.Equal(t, "n", step.Next.ID)
			}
		})
	}
}
