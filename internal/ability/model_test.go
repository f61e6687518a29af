package ability

import (
	"math"
	"testing"
)

func grid() []float64 {
	var vs []float64
	for i := 0; i <= 20; i++ {
		vs = append(vs, float64(i)/20)
	}
	return vs
}

func TestExpectedCorrectness_OpenUnitInterval(t *testing.T) {
	for _, theta := range grid() {
		for _, d := range grid() {
			p := ExpectedCorrectness(theta, d)
			if p <= 0 || p >= 1 {
				t.Errorf("ExpectedCorrectness(%v, %v) = %v, want in (0,1)", theta, d, p)
			}
		}
	}
}

func TestExpectedCorrectness_Monotonic(t *testing.T) {
	vs := grid()
	for _, d := range vs {
		for i := 1; i < len(vs); i++ {
			lo := ExpectedCorrectness(vs[i-1], d)
			hi := ExpectedCorrectness(vs[i], d)
			if hi <= lo {
				t.Errorf("not increasing in theta at d=%v: p(%v)=%v, p(%v)=%v", d, vs[i-1], lo, vs[i], hi)
			}
		}
	}
	for _, theta := range vs {
		for i := 1; i < len(vs); i++ {
			easy := ExpectedCorrectness(theta, vs[i-1])
			hard := ExpectedCorrectness(theta, vs[i])
			if hard >= easy {
				t.Errorf("not decreasing in difficulty at theta=%v: p(%v)=%v, p(%v)=%v", theta, vs[i-1], easy, vs[i], hard)
			}
		}
	}
}

func TestExpectedCorrectness_EqualAbilityIsHalf(t *testing.T) {
	if p := ExpectedCorrectness(0.4, 0.4); math.Abs(p-0.5) > 1e-12 {
		t.Errorf("p = %v, want 0.5", p)
	}
}

func TestExpectedCorrectness_Saturates(t *testing.T) {
	m := Model{Slope: 1e6, LearningRate: DefaultLearningRate}

	if p := m.ExpectedCorrectness(1, 0); p != 1 {
		t.Errorf("large positive argument: p = %v, want 1", p)
	}
	if p := m.ExpectedCorrectness(0, 1); p != 0 {
		t.Errorf("large negative argument: p = %v, want 0", p)
	}
	if p := m.ExpectedCorrectness(math.Inf(-1), 0); p != 0 || math.IsNaN(p) {
		t.Errorf("-Inf argument: p = %v, want 0", p)
	}
}

func TestUpdateAbility_Direction(t *testing.T) {
	for _, theta := range grid() {
		for _, d := range grid() {
			up := UpdateAbility(theta, d, true)
			down := UpdateAbility(theta, d, false)
			if up < theta {
				t.Errorf("correct answer decreased theta: %v -> %v (d=%v)", theta, up, d)
			}
			if down > theta {
				t.Errorf("wrong answer increased theta: %v -> %v (d=%v)", theta, down, d)
			}
			for _, v := range []float64{up, down} {
				if v < 0 || v > 1 {
					t.Errorf("UpdateAbility out of range: %v", v)
				}
			}
		}
	}
}

func TestUpdateAbility_Example(t *testing.T) {
	got := UpdateAbility(0.5, 0.3, true)
	if got <= 0.5 || got > 1.0 {
		t.Fatalf("UpdateAbility(0.5, 0.3, true) = %v, want in (0.5, 1]", got)
	}
	// 0.5 + 0.18 * (1 - sigmoid(0.8))
	want := 0.5 + 0.18*(1-1/(1+math.Exp(-0.8)))
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("UpdateAbility(0.5, 0.3, true) = %v, want %v", got, want)
	}
}

func TestUpdateAbility_ClampsLargeSteps(t *testing.T) {
	m := Model{Slope: DefaultSlope, LearningRate: 5}
	if got := m.UpdateAbility(0.9, 1, true); got != 1 {
		t.Errorf("got %v, want clamp to 1", got)
	}
	if got := m.UpdateAbility(0.1, 0, false); got != 0 {
		t.Errorf("got %v, want clamp to 0", got)
	}
}
