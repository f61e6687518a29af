package spacedrep

import (
	"context"
	"fmt"
)

// Stats aggregates a learner's review records.
type Stats struct {
	Total                int            `json:"total_reviews"`
	DueToday             int            `json:"reviews_due_today"`
	Overdue              int            `json:"overdue_reviews"`
	IntervalDistribution map[string]int `json:"interval_distribution"`
	EaseDistribution     map[string]int `json:"ease_distribution"`
	TagDistribution      map[string]int `json:"tag_distribution"`
}

// IntervalBucket names the interval range a record falls in.
func IntervalBucket(days int) string {
	switch {
	case days <= 1:
		return "1 day"
	case days <= 7:
		return "2-7 days"
	case days <= 30:
		return "1-4 weeks"
	case days <= 90:
		return "1-3 months"
	default:
		return "3+ months"
	}
}

// EaseBucket names the half-open ease range a record falls in.
func EaseBucket(ease float64) string {
	switch {
	case ease < 2.0:
		return "1.3-2.0"
	case ease < 2.5:
		return "2.0-2.5"
	case ease < 3.0:
		return "2.5-3.0"
	case ease < 4.0:
		return "3.0-4.0"
	default:
		return "4.0+"
	}
}

// Stats computes review aggregates for userID. Only non-empty buckets are
// listed. Due counts include overdue records.
func (s *Service) Stats(ctx context.Context, userID string) (*Stats, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	today := s.today()
	st := &Stats{
		Total:                len(rows),
		IntervalDistribution: map[string]int{},
		EaseDistribution:     map[string]int{},
		TagDistribution:      map[string]int{},
	}
	for i := range rows {
		rec := recordFromData(&rows[i])
		if rec.IsDue(today) {
			st.DueToday++
		}
		if rec.OverdueDays(today) > 0 {
			st.Overdue++
		}
		st.IntervalDistribution[IntervalBucket(rec.Interval)]++
		st.EaseDistribution[EaseBucket(rec.Ease)]++

		if s.catalog == nil {
			continue
		}
		it, err := s.catalog.Item(ctx, rec.ItemID)
		if err != nil {
			continue
		}
		for _, tag := range it.Tags {
			st.TagDistribution[tag]++
		}
	}
	return st, nil
}
