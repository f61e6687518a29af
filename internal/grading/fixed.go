package grading

import (
	"math"

	"github.com/abhisek/adaptiq/internal/catalog"
)

// Detail is the per-item breakdown of a fixed-form submission.
type Detail struct {
	ItemID    string `json:"item_id"`
	Given     any    `json:"given"`
	Correct   bool   `json:"correct"`
	Points    int    `json:"points"`
	MaxPoints int    `json:"max_points"`
}

// Sheet is a graded fixed-form submission.
type Sheet struct {
	Score       int
	TotalPoints int
	Details     []Detail
}

// Percentage returns Score as a share of TotalPoints, rounded to two
// decimals, or 0 when the assessment carries no points.
func (s Sheet) Percentage() float64 {
	if s.TotalPoints <= 0 {
		return 0
	}
	return roundTo(float64(s.Score)/float64(s.TotalPoints)*100, 2)
}

// GradeAll grades every item against answers keyed by item id. Items with no
// answer are graded incorrect.
func GradeAll(items []catalog.Item, answers map[string]any) Sheet {
	var sheet Sheet
	for i := range items {
		it := &items[i]
		given, ok := answers[it.ID]
		var res Result
		if ok {
			res = Grade(it, given)
		}
		sheet.Score += res.Points
		sheet.TotalPoints += it.Points
		sheet.Details = append(sheet.Details, Detail{
			ItemID:    it.ID,
			Given:     given,
			Correct:   res.Correct,
			Points:    res.Points,
			MaxPoints: it.Points,
		})
	}
	return sheet
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
