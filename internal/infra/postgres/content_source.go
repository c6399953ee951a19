// Package postgres loads quiz content from Postgres tables kept in sync with
// the upstream spreadsheet export.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"funky-quizbot/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ContentSource implements content.Source on a pgx pool.
type ContentSource struct {
	pool *pgxpool.Pool
}

func NewContentSource(pool *pgxpool.Pool) *ContentSource {
	return &ContentSource{pool: pool}
}

func (s *ContentSource) FetchQuestions(ctx context.Context) ([]domain.QuizQuestion, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, prompt, correct, distractors FROM quiz_questions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("fetch questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.QuizQuestion
	for rows.Next() {
		var id, prompt, correct string
		var distractors []string
		if err := rows.Scan(&id, &prompt, &correct, &distractors); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, domain.NewQuizQuestion(id, prompt, correct, distractors))
	}
	return questions, rows.Err()
}

func (s *ContentSource) FetchPrizes(ctx context.Context) ([]domain.Prize, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, url, kind, embargo_until FROM prizes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("fetch prizes: %w", err)
	}
	defer rows.Close()

	var prizes []domain.Prize
	for rows.Next() {
		var id, url, kind string
		var embargo sql.NullTime
		if err := rows.Scan(&id, &url, &kind, &embargo); err != nil {
			return nil, fmt.Errorf("scan prize: %w", err)
		}
		var until time.Time
		if embargo.Valid {
			until = embargo.Time
		}
		prizes = append(prizes, domain.NewPrize(id, url, kind, until))
	}
	return prizes, rows.Err()
}

func (s *ContentSource) FetchReactions(ctx context.Context) ([]domain.ReactionMedia, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT url, context, tags FROM reaction_media ORDER BY url`)
	if err != nil {
		return nil, fmt.Errorf("fetch reactions: %w", err)
	}
	defer rows.Close()

	var reactions []domain.ReactionMedia
	for rows.Next() {
		var url, context string
		var tags []string
		if err := rows.Scan(&url, &context, &tags); err != nil {
			return nil, fmt.Errorf("scan reaction: %w", err)
		}
		reactions = append(reactions, domain.NewReactionMedia(url, context, tags))
	}
	return reactions, rows.Err()
}
