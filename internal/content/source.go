package content

import (
	"context"

	"funky-quizbot/internal/domain"
)

// Source fetches fresh content snapshots from a backing store (spreadsheet
// export, database, local files).
type Source interface {
	FetchQuestions(ctx context.Context) ([]domain.QuizQuestion, error)
	FetchPrizes(ctx context.Context) ([]domain.Prize, error)
	FetchReactions(ctx context.Context) ([]domain.ReactionMedia, error)
}

// StaticSource is a Source backed by fixed slices (useful for tests/demos).
type StaticSource struct {
	Questions []domain.QuizQuestion
	Prizes    []domain.Prize
	Reactions []domain.ReactionMedia
}

func (s *StaticSource) FetchQuestions(_ context.Context) ([]domain.QuizQuestion, error) {
	return s.Questions, nil
}

func (s *StaticSource) FetchPrizes(_ context.Context) ([]domain.Prize, error) {
	return s.Prizes, nil
}

func (s *StaticSource) FetchReactions(_ context.Context) ([]domain.ReactionMedia, error) {
	return s.Reactions, nil
}
