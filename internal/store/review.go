package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// reviewRepo implements ReviewRepo on the review_records table.
type reviewRepo struct {
	db *sql.DB
}

var reviewSelectColumns = []string{
	"id", "user_id", "item_id", "quality", "interval", "repetition", "ease",
	"next_review", "last_review", "attempt_id", "created_at", "updated_at",
}

func (r *reviewRepo) Get(ctx context.Context, userID, itemID string) (*ReviewData, error) {
	b := entsql.Dialect(dialect.SQLite)
	t := b.Table(ReviewRecordsTable.Name)
	query, args := b.Select(reviewSelectColumns...).
		From(t).
		Where(entsql.And(
			entsql.EQ(t.C("user_id"), userID),
			entsql.EQ(t.C("item_id"), itemID),
		)).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query review: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query review: %w", err)
		}
		return nil, fmt.Errorf("%w: review %s/%s", ErrNotFound, userID, itemID)
	}
	rd, err := scanReview(rows)
	if err != nil {
		return nil, err
	}
	return rd, nil
}

func (r *reviewRepo) Upsert(ctx context.Context, rd *ReviewData) error {
	now := time.Now().UTC()
	if rd.CreatedAt.IsZero() {
		rd.CreatedAt = now
	}
	rd.UpdatedAt = now

	query, args := entsql.Dialect(dialect.SQLite).
		Insert(ReviewRecordsTable.Name).
		Columns(
			"user_id", "item_id", "quality", "interval", "repetition", "ease",
			"next_review", "last_review", "attempt_id", "created_at", "updated_at",
		).
		Values(
			rd.UserID, rd.ItemID, rd.Quality, rd.Interval, rd.Repetition, rd.Ease,
			formatDate(rd.NextReview), nullDate(rd.LastReview), nullString(rd.AttemptID),
			rd.CreatedAt, rd.UpdatedAt,
		).
		OnConflict(
			entsql.ConflictColumns("user_id", "item_id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("quality")
				u.SetExcluded("interval")
				u.SetExcluded("repetition")
				u.SetExcluded("ease")
				u.SetExcluded("next_review")
				u.SetExcluded("last_review")
				u.SetExcluded("attempt_id")
				u.SetExcluded("updated_at")
			}),
		).
		Query()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert review: %w", err)
	}
	return nil
}

func (r *reviewRepo) Due(ctx context.Context, userID string, today time.Time, limit int) ([]ReviewData, error) {
	b := entsql.Dialect(dialect.SQLite)
	t := b.Table(ReviewRecordsTable.Name)
	sel := b.Select(reviewSelectColumns...).
		From(t).
		Where(entsql.And(
			entsql.EQ(t.C("user_id"), userID),
			entsql.LTE(t.C("next_review"), formatDate(today)),
		)).
		OrderBy(t.C("next_review"), t.C("ease"), t.C("id"))
	if limit > 0 {
		sel.Limit(limit)
	}
	query, args := sel.Query()
	return r.list(ctx, query, args)
}

func (r *reviewRepo) ListByUser(ctx context.Context, userID string) ([]ReviewData, error) {
	b := entsql.Dialect(dialect.SQLite)
	t := b.Table(ReviewRecordsTable.Name)
	query, args := b.Select(reviewSelectColumns...).
		From(t).
		Where(entsql.EQ(t.C("user_id"), userID)).
		OrderBy(t.C("next_review"), t.C("id")).
		Query()
	return r.list(ctx, query, args)
}

func (r *reviewRepo) list(ctx context.Context, query string, args []any) ([]ReviewData, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	var out []ReviewData
	for rows.Next() {
		rd, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}
	return out, nil
}

func scanReview(rows *sql.Rows) (*ReviewData, error) {
	var (
		rd         ReviewData
		next       string
		last, atID sql.NullString
	)
	err := rows.Scan(
		&rd.ID, &rd.UserID, &rd.ItemID, &rd.Quality, &rd.Interval, &rd.Repetition, &rd.Ease,
		&next, &last, &atID, &rd.CreatedAt, &rd.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan review: %w", err)
	}
	if rd.NextReview, err = time.Parse(DateLayout, next); err != nil {
		return nil, fmt.Errorf("parse next_review: %w", err)
	}
	if last.Valid {
		if rd.LastReview, err = time.Parse(DateLayout, last.String); err != nil {
			return nil, fmt.Errorf("parse last_review: %w", err)
		}
	}
	rd.AttemptID = atID.String
	rd.CreatedAt = rd.CreatedAt.UTC()
	rd.UpdatedAt = rd.UpdatedAt.UTC()
	return &rd, nil
}

func formatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

func nullDate(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatDate(t), Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
