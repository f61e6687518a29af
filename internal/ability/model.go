package ability

import "math"

const (
	// DefaultSlope is the steepness of the logistic response curve.
	DefaultSlope = 4.0

	// DefaultLearningRate is the step size applied to the prediction error.
	DefaultLearningRate = 0.18

	// Prior is the ability assigned to a learner before any answer.
	Prior = 0.5

	// DefaultDifficulty is used for items without a calibrated difficulty.
	DefaultDifficulty = 0.5
)

// Model is a one-parameter logistic ability model with an ELO-style update.
// The zero value is not useful; start from Default.
type Model struct {
	Slope        float64
	LearningRate float64
}

// Default is the model with the reference tuning.
var Default = Model{Slope: DefaultSlope, LearningRate: DefaultLearningRate}

// ExpectedCorrectness returns the probability that a learner with ability
// theta answers an item of the given difficulty correctly.
func (m Model) ExpectedCorrectness(theta, difficulty float64) float64 {
	return sigmoid(m.Slope * (theta - difficulty))
}

// UpdateAbility moves theta toward the observed outcome by LearningRate times
// the prediction error. The result is clamped to [0,1].
func (m Model) UpdateAbility(theta, difficulty float64, correct bool) float64 {
	actual := 0.0
	if correct {
		actual = 1.0
	}
	expected := m.ExpectedCorrectness(theta, difficulty)
	return clamp(theta+m.LearningRate*(actual-expected), 0, 1)
}

// ExpectedCorrectness evaluates the Default model.
func ExpectedCorrectness(theta, difficulty float64) float64 {
	return Default.ExpectedCorrectness(theta, difficulty)
}

// UpdateAbility evaluates the Default model.
func UpdateAbility(theta, difficulty float64, correct bool) float64 {
	return Default.UpdateAbility(theta, difficulty, correct)
}

// sigmoid saturates to 0 or 1 instead of overflowing.
func sigmoid(x float64) float64 {
	e := math.Exp(-x)
	if math.IsInf(e, 1) {
		return 0
	}
	if math.IsNaN(e) {
		if x < 0 {
			return 0
		}
		return 1
	}
	return 1.0 / (1.0 + e)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
