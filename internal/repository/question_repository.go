package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/scholarship-exam/internal/model"
)

// QuestionRepository is the read side of the question bank, plus seeding.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

func scanQuestion(row pgx.CollectableRow) (model.Question, error) {
	var q model.Question
	err := row.Scan(&q.ID, &q.QuestionText, &q.Option1, &q.Option2, &q.Option3, &q.Option4, &q.CorrectAnswer)
	return q, err
}

// ListAll returns every question in the bank ordered by id.
func (r *QuestionRepository) ListAll(ctx context.Context) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, question_text, option1, option2, option3, option4, correct_answer
		 FROM questions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanQuestion)
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (question_text, option1, option2, option3, option4, correct_answer)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		q.QuestionText, q.Option1, q.Option2, q.Option3, q.Option4, q.CorrectAnswer,
	).Scan(&q.ID)
}
