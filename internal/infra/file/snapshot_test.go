package file

import (
	"context"
	"testing"
	"time"

	"funky-quizbot/internal/content"
	"funky-quizbot/internal/domain"
)

func TestSnapshotRoundTrip(t *testing.T) {
	store := NewSnapshotStore(t.TempDir())

	snap := &content.Snapshot{
		Questions: []domain.QuizQuestion{
			domain.NewQuizQuestion("q1", "What is 2 + 2?", "4", []string{"3", "5"}),
		},
		Prizes: []domain.Prize{
			{ID: "p1", URL: "https://example.com/p.gif", Kind: domain.MediaImage, EmbargoUntil: time.Date(2019, 7, 1, 0, 0, 0, 0, time.UTC)},
		},
		Reactions: []domain.ReactionMedia{
			{URL: "https://example.com/yay.gif", Context: domain.ReactionCorrect, Tags: []string{"party"}},
		},
		FetchedAt: time.Date(2019, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := store.Save(snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.Questions) != 1 || loaded.Questions[0].Correct != "4" {
		t.Fatalf("questions mangled: %+v", loaded.Questions)
	}
	if !loaded.Prizes[0].EmbargoUntil.Equal(snap.Prizes[0].EmbargoUntil) {
		t.Fatalf("embargo timestamp mangled: %v", loaded.Prizes[0].EmbargoUntil)
	}
	if loaded.Reactions[0].Context != domain.ReactionCorrect {
		t.Fatalf("reaction context mangled: %+v", loaded.Reactions[0])
	}
	if !loaded.FetchedAt.Equal(snap.FetchedAt) {
		t.Fatalf("fetched-at mangled: %v", loaded.FetchedAt)
	}
}

func TestStoreServesAsSource(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore(t.TempDir())
	if err := store.Save(&content.Snapshot{
		Questions: []domain.QuizQuestion{domain.NewQuizQuestion("q1", "p", "a", nil)},
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	questions, err := store.FetchQuestions(ctx)
	if err != nil {
		t.Fatalf("fetch questions: %v", err)
	}
	if len(questions) != 1 || questions[0].ID != "q1" {
		t.Fatalf("unexpected questions %+v", questions)
	}
}

func TestLoadMissingSnapshot(t *testing.T) {
	store := NewSnapshotStore(t.TempDir())
	if _, err := store.Load(); err == nil {
		t.Fatalf("expected error for missing snapshot")
	}
}
