package spacedrep

import (
	"math"
	"time"
)

const (
	// InitialEase is the ease factor of a record before its first review.
	InitialEase = 2.5

	// MinEase is the floor applied after every ease update.
	MinEase = 1.3

	// MinQuality and MaxQuality bound a recall grade.
	MinQuality = 0
	MaxQuality = 5

	// PassQuality is the lowest grade that counts as a successful recall.
	PassQuality = 3

	// InitialInterval is the interval, in days, of a record before its first review.
	InitialInterval = 1
)

// Schedule applies one SM-2 step. A lapse (quality below PassQuality)
// restarts the schedule at a one-day interval. Otherwise the repetition
// count advances and the interval grows 1, 6, then prevInterval×prevEase.
// The ease factor is updated on every call and never drops below MinEase.
func Schedule(quality, prevInterval, prevRepetition int, prevEase float64) (interval, repetition int, ease float64) {
	if quality < PassQuality {
		repetition = 0
		interval = 1
	} else {
		repetition = prevRepetition + 1
		switch repetition {
		case 1:
			interval = 1
		case 2:
			interval = 6
		default:
			interval = int(math.RoundToEven(float64(prevInterval) * prevEase))
		}
	}

	miss := float64(MaxQuality - quality)
	ease = prevEase + (0.1 - miss*(0.08+miss*0.02))
	if ease < MinEase {
		ease = MinEase
	}
	return interval, repetition, ease
}

// NextReviewDate returns the date interval days after today.
func NextReviewDate(today time.Time, interval int) time.Time {
	return today.AddDate(0, 0, interval)
}
