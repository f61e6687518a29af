package attempt

import (
	"math"
	"time"

	"github.com/abhisek/adaptiq/internal/catalog"
	"github.com/abhisek/adaptiq/internal/selector"
)

// Mode is how an attempt presents items.
type Mode string

const (
	ModeAdaptive Mode = "adaptive"
	ModeFixed    Mode = "fixed"
)

// State is the lifecycle position of an attempt. Attempts are created
// InProgress and never deleted.
type State string

const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateSubmitted  State = "submitted"
)

// DoneReason records why an adaptive attempt stopped presenting items.
type DoneReason string

const (
	ReasonNone      DoneReason = ""
	ReasonConverged DoneReason = "converged"
	ReasonMaxItems  DoneReason = "max_items"
	ReasonExhausted DoneReason = "exhausted"
)

const (
	// DefaultConvergenceEpsilon is the ability change below which two
	// consecutive estimates count as converged.
	DefaultConvergenceEpsilon = 0.01

	// abilityPrecision is the number of decimals kept for per-answer
	// ability snapshots.
	abilityPrecision = 4
)

// Tuning holds the engine's numeric thresholds. It applies to every
// assessment.
type Tuning struct {
	ConvergenceEpsilon float64
	TieEpsilon         float64
}

// DefaultTuning returns the reference thresholds.
func DefaultTuning() Tuning {
	return Tuning{
		ConvergenceEpsilon: DefaultConvergenceEpsilon,
		TieEpsilon:         selector.DefaultTieEpsilon,
	}
}

// AnswerRecord is one graded answer. Ability is the estimate after this
// answer, rounded to four decimals.
type AnswerRecord struct {
	ItemID     string    `json:"item_id"`
	Response   any       `json:"response"`
	Correct    bool      `json:"correct"`
	Points     int       `json:"points"`
	Ability    float64   `json:"ability"`
	Difficulty float64   `json:"difficulty"`
	AnsweredAt time.Time `json:"answered_at"`
}

// Attempt is one user's run through an assessment.
type Attempt struct {
	ID           string
	UserID       string
	AssessmentID string
	Mode         Mode

	Presented  []string
	Answers    []AnswerRecord
	RawScore   int
	Ability    float64
	Submitted  bool
	Score      int
	DoneReason DoneReason

	StartedAt time.Time
	EndedAt   *time.Time
	Version   int64
}

// State returns the attempt's lifecycle state.
func (a *Attempt) State() State {
	switch {
	case a.Submitted:
		return StateSubmitted
	case a.StartedAt.IsZero():
		return StateNotStarted
	default:
		return StateInProgress
	}
}

func (a *Attempt) presentedSet() map[string]bool {
	set := make(map[string]bool, len(a.Presented))
	for _, id := range a.Presented {
		set[id] = true
	}
	return set
}

func (a *Attempt) answered(itemID string) bool {
	for _, ans := range a.Answers {
		if ans.ItemID == itemID {
			return true
		}
	}
	return false
}

// StartResult is returned when an adaptive attempt begins.
type StartResult struct {
	AttemptID    string        `json:"attempt_id"`
	AssessmentID string        `json:"assessment_id"`
	Title        string        `json:"title"`
	First        catalog.View  `json:"first_item"`
	Ability      float64       `json:"ability"`
	MinItems     int           `json:"min_items"`
	MaxItems     int           `json:"max_items"`
	TimeLimit    time.Duration `json:"-"`
	StartedAt    time.Time     `json:"started_at"`
}

// AnswerResult is returned after each adaptive answer. When Done is true no
// further item is presented and the client should call Finish.
type AnswerResult struct {
	Correct  bool          `json:"correct"`
	Done     bool          `json:"done"`
	Reason   DoneReason    `json:"reason,omitempty"`
	Ability  float64       `json:"ability"`
	Score    int           `json:"score_so_far"`
	Answered int           `json:"answered"`
	Next     *catalog.View `json:"next_item,omitempty"`
}

// ItemFailure is a review signal that could not be recorded.
type ItemFailure struct {
	ItemID string `json:"item_id"`
	Error  string `json:"error"`
}

// ReviewSummary aggregates the review signals emitted when an attempt is
// submitted. Failures never undo the submission.
type ReviewSummary struct {
	Recorded int           `json:"recorded"`
	Failed   []ItemFailure `json:"failed"`
}

// FinishResult is returned when an adaptive attempt is submitted.
type FinishResult struct {
	AttemptID string         `json:"attempt_id"`
	Score     int            `json:"score"`
	Ability   float64        `json:"ability"`
	Answered  int            `json:"questions_answered"`
	Answers   []AnswerRecord `json:"answers"`
	Reviews   ReviewSummary  `json:"reviews"`
}

// Snapshot is a read-only view of an attempt.
type Snapshot struct {
	AttemptID    string     `json:"attempt_id"`
	UserID       string     `json:"user_id"`
	AssessmentID string     `json:"assessment_id"`
	Mode         Mode       `json:"mode"`
	State        State      `json:"state"`
	Submitted    bool       `json:"submitted"`
	Ability      float64    `json:"ability"`
	Presented    []string   `json:"presented"`
	Answered     int        `json:"answered"`
	Score        int        `json:"score_so_far"`
	DoneReason   DoneReason `json:"done_reason,omitempty"`
	TimeLimit    int        `json:"time_limit_minutes"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	Deadline     *time.Time `json:"deadline,omitempty"`
}

func roundAbility(v float64) float64 {
	p := math.Pow(10, abilityPrecision)
	return math.Round(v*p) / p
}
