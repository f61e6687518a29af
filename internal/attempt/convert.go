package attempt

import "github.com/abhisek/adaptiq/internal/store"

func fromData(d *store.AttemptData) *Attempt {
	a := &Attempt{
		ID:           d.ID,
		UserID:       d.UserID,
		AssessmentID: d.AssessmentID,
		Mode:         Mode(d.Mode),
		Presented:    append([]string(nil), d.Presented...),
		RawScore:     d.RawScore,
		Ability:      d.Ability,
		Submitted:    d.Submitted,
		Score:        d.Score,
		DoneReason:   DoneReason(d.DoneReason),
		StartedAt:    d.StartedAt,
		EndedAt:      d.EndedAt,
		Version:      d.Version,
	}
	for _, ans := range d.Answers {
		a.Answers = append(a.Answers, AnswerRecord(ans))
	}
	return a
}

func (a *Attempt) toData() *store.AttemptData {
	d := &store.AttemptData{
		ID:           a.ID,
		UserID:       a.UserID,
		AssessmentID: a.AssessmentID,
		Mode:         string(a.Mode),
		Presented:    append([]string(nil), a.Presented...),
		RawScore:     a.RawScore,
		Ability:      a.Ability,
		Submitted:    a.Submitted,
		Score:        a.Score,
		DoneReason:   string(a.DoneReason),
		StartedAt:    a.StartedAt,
		EndedAt:      a.EndedAt,
		Version:      a.Version,
	}
	for _, ans := range a.Answers {
		d.Answers = append(d.Answers, store.AnswerData(ans))
	}
	return d
}
