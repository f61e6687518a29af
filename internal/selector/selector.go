// Package selector picks the next item of an adaptive attempt: the unpresented
// item whose difficulty is closest to the learner's current ability.
package selector

import (
	"math"
	"math/rand/v2"
	"sync"

	"github.com/abhisek/adaptiq/internal/catalog"
)

// DefaultTieEpsilon is the distance within which two candidates count as
// equally close to the ability estimate.
const DefaultTieEpsilon = 1e-6

// Selector chooses items by minimum difficulty distance, breaking ties with an
// injected random source. It is safe for concurrent use.
type Selector struct {
	mu         sync.Mutex
	rng        *rand.Rand
	tieEpsilon float64
}

// New returns a Selector drawing tie-breaks from src. A nil src gets a
// randomly seeded PCG. A non-positive tieEpsilon selects DefaultTieEpsilon.
func New(src rand.Source, tieEpsilon float64) *Selector {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	if tieEpsilon <= 0 {
		tieEpsilon = DefaultTieEpsilon
	}
	return &Selector{rng: rand.New(src), tieEpsilon: tieEpsilon}
}

// PickNext returns the item from pool, excluding presented ids, whose
// difficulty is nearest theta. Items without a difficulty count as 0.5.
// The second result is false when every item has been presented.
func (s *Selector) PickNext(pool []catalog.Item, presented map[string]bool, theta float64) (catalog.Item, bool) {
	best := math.Inf(1)
	dist := make([]float64, len(pool))
	found := false
	for i := range pool {
		if presented[pool[i].ID] {
			dist[i] = math.NaN()
			continue
		}
		d := math.Abs(pool[i].DifficultyValue() - theta)
		dist[i] = d
		found = true
		if d < best {
			best = d
		}
	}
	if !found {
		return catalog.Item{}, false
	}

	var ties []int
	for i, d := range dist {
		if math.IsNaN(d) {
			continue
		}
		if d-best <= s.tieEpsilon {
			ties = append(ties, i)
		}
	}
	if len(ties) == 1 {
		return pool[ties[0]], true
	}

	s.mu.Lock()
	pick := ties[s.rng.IntN(len(ties))]
	s.mu.Unlock()
	return pool[pick], true
}
