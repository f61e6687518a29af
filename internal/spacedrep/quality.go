package spacedrep

import "time"

// QualityFromCorrect maps a bare correctness signal to a recall grade:
// correct is 4, incorrect is 1. Used for signals emitted when an adaptive
// attempt finishes.
func QualityFromCorrect(correct bool) int {
	if correct {
		return 4
	}
	return 1
}

// QualityFromAttempt maps a graded answer to a recall grade using response
// time against the time budget and the item's difficulty.
//
// Correct answers grade 5 under 30% of the budget, 4 under 60%, 3 otherwise,
// and 4 when either time is unknown. Incorrect answers grade 2 on items
// harder than 0.7 and 1 otherwise.
func QualityFromAttempt(correct bool, taken, limit time.Duration, difficulty *float64) int {
	if correct {
		if taken <= 0 || limit <= 0 {
			return 4
		}
		switch {
		case float64(taken) < float64(limit)*0.3:
			return 5
		case float64(taken) < float64(limit)*0.6:
			return 4
		default:
			return 3
		}
	}
	if difficulty != nil && *difficulty > 0.7 {
		return 2
	}
	return 1
}

// ValidQuality reports whether q is a grade in [MinQuality, MaxQuality].
func ValidQuality(q int) bool {
	return q >= MinQuality && q <= MaxQuality
}
