package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// attemptRepo implements AttemptRepo on the attempts table.
type attemptRepo struct {
	db *sql.DB
}

var attemptSelectColumns = []string{
	"id", "user_id", "assessment_id", "mode", "presented", "answers",
	"raw_score", "ability", "submitted", "score", "done_reason",
	"started_at", "ended_at", "version",
}

func (r *attemptRepo) Create(ctx context.Context, a *AttemptData) error {
	presented, answers, err := encodeHistory(a)
	if err != nil {
		return err
	}
	a.Version = 1

	query, args := entsql.Dialect(dialect.SQLite).
		Insert(AttemptsTable.Name).
		Columns(attemptSelectColumns...).
		Values(
			a.ID, a.UserID, a.AssessmentID, a.Mode, presented, answers,
			a.RawScore, a.Ability, a.Submitted, a.Score, a.DoneReason,
			a.StartedAt, nullTime(a), a.Version,
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (r *attemptRepo) Get(ctx context.Context, id string) (*AttemptData, error) {
	b := entsql.Dialect(dialect.SQLite)
	t := b.Table(AttemptsTable.Name)
	query, args := b.Select(attemptSelectColumns...).
		From(t).
		Where(entsql.EQ(t.C("id"), id)).
		Query()

	row := r.db.QueryRowContext(ctx, query, args...)
	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: attempt %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query attempt: %w", err)
	}
	return a, nil
}

func (r *attemptRepo) Save(ctx context.Context, a *AttemptData) error {
	presented, answers, err := encodeHistory(a)
	if err != nil {
		return err
	}

	query, args := entsql.Dialect(dialect.SQLite).
		Update(AttemptsTable.Name).
		Set("presented", presented).
		Set("answers", answers).
		Set("raw_score", a.RawScore).
		Set("ability", a.Ability).
		Set("submitted", a.Submitted).
		Set("score", a.Score).
		Set("done_reason", a.DoneReason).
		Set("ended_at", nullTime(a)).
		Set("version", a.Version+1).
		Where(entsql.And(
			entsql.EQ("id", a.ID),
			entsql.EQ("version", a.Version),
		)).
		Query()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update attempt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update attempt: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: attempt %s at version %d", ErrConflict, a.ID, a.Version)
	}
	a.Version++
	return nil
}

func (r *attemptRepo) CountByUser(ctx context.Context, userID, assessmentID string) (int, error) {
	b := entsql.Dialect(dialect.SQLite)
	t := b.Table(AttemptsTable.Name)
	query, args := b.Select(entsql.Count("*")).
		From(t).
		Where(entsql.And(
			entsql.EQ(t.C("user_id"), userID),
			entsql.EQ(t.C("assessment_id"), assessmentID),
		)).
		Query()

	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return n, nil
}

func encodeHistory(a *AttemptData) (presented, answers []byte, err error) {
	p := a.Presented
	if p == nil {
		p = []string{}
	}
	presented, err = json.Marshal(p)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal presented: %w", err)
	}
	ans := a.Answers
	if ans == nil {
		ans = []AnswerData{}
	}
	answers, err = json.Marshal(ans)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal answers: %w", err)
	}
	return presented, answers, nil
}

func nullTime(a *AttemptData) sql.NullTime {
	if a.EndedAt == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *a.EndedAt, Valid: true}
}

func scanAttempt(row *sql.Row) (*AttemptData, error) {
	var (
		a                  AttemptData
		presented, answers []byte
		ended              sql.NullTime
	)
	err := row.Scan(
		&a.ID, &a.UserID, &a.AssessmentID, &a.Mode, &presented, &answers,
		&a.RawScore, &a.Ability, &a.Submitted, &a.Score, &a.DoneReason,
		&a.StartedAt, &ended, &a.Version,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(presented, &a.Presented); err != nil {
		return nil, fmt.Errorf("unmarshal presented: %w", err)
	}
	if err := json.Unmarshal(answers, &a.Answers); err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	if ended.Valid {
		t := ended.Time.UTC()
		a.EndedAt = &t
	}
	a.StartedAt = a.StartedAt.UTC()
	return &a, nil
}
