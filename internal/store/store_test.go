package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenClose(t *testing.T) {
	s := openTestStore(t)
	if s.DB() == nil {
		t.Fatal("expected non-nil db")
	}
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestAttemptCreateGetSave(t *testing.T) {
	s := openTestStore(t)
	repo := s.AttemptRepo()
	ctx := context.Background()

	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	a := &AttemptData{
		ID:           "att-1",
		UserID:       "u1",
		AssessmentID: "quiz-1",
		Mode:         "adaptive",
		Presented:    []string{"q2"},
		Ability:      0.5,
		StartedAt:    start,
	}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.Version != 1 {
		t.Errorf("Version after create = %d, want 1", a.Version)
	}

	got, err := repo.Get(ctx, "att-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UserID != "u1" || got.Mode != "adaptive" {
		t.Errorf("got %+v", got)
	}
	if len(got.Presented) != 1 || got.Presented[0] != "q2" {
		t.Errorf("Presented = %v, want [q2]", got.Presented)
	}
	if len(got.Answers) != 0 {
		t.Errorf("Answers = %v, want empty", got.Answers)
	}
	if !got.StartedAt.Equal(start) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, start)
	}
	if got.EndedAt != nil {
		t.Errorf("EndedAt = %v, want nil", got.EndedAt)
	}

	end := start.Add(5 * time.Minute)
	got.Answers = append(got.Answers, AnswerData{
		ItemID: "q2", Response: "paris", Correct: true, Points: 2, Ability: 0.59, Difficulty: 0.5, AnsweredAt: end,
	})
	got.RawScore = 2
	got.Ability = 0.59
	got.Submitted = true
	got.Score = 2
	got.EndedAt = &end
	if err := repo.Save(ctx, got); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got.Version != 2 {
		t.Errorf("Version after save = %d, want 2", got.Version)
	}

	again, err := repo.Get(ctx, "att-1")
	if err != nil {
		t.Fatalf("get after save: %v", err)
	}
	if !again.Submitted || again.Score != 2 || again.RawScore != 2 {
		t.Errorf("saved fields not persisted: %+v", again)
	}
	if len(again.Answers) != 1 || again.Answers[0].Response != "paris" || !again.Answers[0].Correct {
		t.Errorf("Answers = %+v", again.Answers)
	}
	if again.EndedAt == nil || !again.EndedAt.Equal(end) {
		t.Errorf("EndedAt = %v, want %v", again.EndedAt, end)
	}
}

func TestAttemptSave_Conflict(t *testing.T) {
	s := openTestStore(t)
	repo := s.AttemptRepo()
	ctx := context.Background()

	a := &AttemptData{ID: "att-1", UserID: "u1", AssessmentID: "quiz-1", Mode: "adaptive", Ability: 0.5, StartedAt: time.Now().UTC()}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("create: %v", err)
	}

	first, _ := repo.Get(ctx, "att-1")
	second, _ := repo.Get(ctx, "att-1")

	first.RawScore = 1
	if err := repo.Save(ctx, first); err != nil {
		t.Fatalf("first save: %v", err)
	}
	second.RawScore = 5
	err := repo.Save(ctx, second)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("second save err = %v, want ErrConflict", err)
	}

	got, _ := repo.Get(ctx, "att-1")
	if got.RawScore != 1 {
		t.Errorf("RawScore = %d, want 1 (lost update must not apply)", got.RawScore)
	}
}

func TestAttemptGet_NotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.AttemptRepo().Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestAttemptCountByUser(t *testing.T) {
	s := openTestStore(t)
	repo := s.AttemptRepo()
	ctx := context.Background()

	for i, spec := range []struct{ user, assessment string }{
		{"u1", "quiz-1"}, {"u1", "quiz-1"}, {"u1", "quiz-2"}, {"u2", "quiz-1"},
	} {
		a := &AttemptData{
			ID:           string(rune('a' + i)),
			UserID:       spec.user,
			AssessmentID: spec.assessment,
			Mode:         "fixed",
			StartedAt:    time.Now().UTC(),
		}
		if err := repo.Create(ctx, a); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	n, err := repo.CountByUser(ctx, "u1", "quiz-1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Errorf("CountByUser = %d, want 2", n)
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestReviewUpsertAndGet(t *testing.T) {
	s := openTestStore(t)
	repo := s.ReviewRepo()
	ctx := context.Background()

	_, err := repo.Get(ctx, "u1", "q1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("get (empty) err = %v, want ErrNotFound", err)
	}

	rd := &ReviewData{
		UserID: "u1", ItemID: "q1", Quality: 4, Interval: 1, Repetition: 1, Ease: 2.5,
		NextReview: day(2025, 3, 2), LastReview: day(2025, 3, 1), AttemptID: "att-1",
	}
	if err := repo.Upsert(ctx, rd); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	rd.Quality = 5
	rd.Interval = 6
	rd.Repetition = 2
	rd.Ease = 2.6
	rd.NextReview = day(2025, 3, 8)
	rd.AttemptID = ""
	if err := repo.Upsert(ctx, rd); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := repo.Get(ctx, "u1", "q1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Quality != 5 || got.Interval != 6 || got.Repetition != 2 || got.Ease != 2.6 {
		t.Errorf("got %+v", got)
	}
	if !got.NextReview.Equal(day(2025, 3, 8)) {
		t.Errorf("NextReview = %v, want 2025-03-08", got.NextReview)
	}
	if !got.LastReview.Equal(day(2025, 3, 1)) {
		t.Errorf("LastReview = %v, want 2025-03-01", got.LastReview)
	}
	if got.AttemptID != "" {
		t.Errorf("AttemptID = %q, want empty", got.AttemptID)
	}

	all, err := repo.ListByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("ListByUser returned %d records, want 1 (one per pair)", len(all))
	}
}

func TestReviewDue_Ordering(t *testing.T) {
	s := openTestStore(t)
	repo := s.ReviewRepo()
	ctx := context.Background()

	records := []ReviewData{
		{UserID: "u1", ItemID: "late", Ease: 2.5, Interval: 1, NextReview: day(2025, 3, 5)},
		{UserID: "u1", ItemID: "early-easy", Ease: 2.8, Interval: 1, NextReview: day(2025, 3, 1)},
		{UserID: "u1", ItemID: "early-hard", Ease: 1.9, Interval: 1, NextReview: day(2025, 3, 1)},
		{UserID: "u1", ItemID: "future", Ease: 2.5, Interval: 1, NextReview: day(2025, 3, 20)},
		{UserID: "u2", ItemID: "other-user", Ease: 2.5, Interval: 1, NextReview: day(2025, 2, 1)},
	}
	for i := range records {
		if err := repo.Upsert(ctx, &records[i]); err != nil {
			t.Fatalf("upsert %s: %v", records[i].ItemID, err)
		}
	}

	due, err := repo.Due(ctx, "u1", day(2025, 3, 10), 0)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	want := []string{"early-hard", "early-easy", "late"}
	if len(due) != len(want) {
		t.Fatalf("Due returned %d records, want %d", len(due), len(want))
	}
	for i, id := range want {
		if due[i].ItemID != id {
			t.Errorf("due[%d] = %s, want %s", i, due[i].ItemID, id)
		}
	}

	limited, err := repo.Due(ctx, "u1", day(2025, 3, 10), 1)
	if err != nil {
		t.Fatalf("due limited: %v", err)
	}
	if len(limited) != 1 || limited[0].ItemID != "early-hard" {
		t.Errorf("limited due = %+v", limited)
	}
}
