package attempt

import (
	"math"

	"github.com/abhisek/adaptiq/internal/catalog"
)

// Step is the outcome of evaluating termination after an answer: either the
// attempt is done for Reason, or Next is the item to present.
type Step struct {
	Done   bool
	Reason DoneReason
	Next   *catalog.Item
}

// limits are the per-assessment bounds that drive termination.
type limits struct {
	MinItems int
	MaxItems int
	Epsilon  float64
}

// transition decides what follows the latest answer. Convergence is checked
// first, then the item cap, then pool exhaustion via pick.
func transition(answers []AnswerRecord, l limits, pick func() (catalog.Item, bool)) Step {
	n := len(answers)
	if n >= l.MinItems && n >= 2 &&
		math.Abs(answers[n-1].Ability-answers[n-2].Ability) < l.Epsilon {
		return Step{Done: true, Reason: ReasonConverged}
	}
	if n >= l.MaxItems {
		return Step{Done: true, Reason: ReasonMaxItems}
	}
	next, ok := pick()
	if !ok {
		return Step{Done: true, Reason: ReasonExhausted}
	}
	return Step{Next: &next}
}
