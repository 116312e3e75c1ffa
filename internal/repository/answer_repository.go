package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/scholarship-exam/internal/model"
)

// AnswerRepository persists per-question answers of an attempt.
type AnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{pool: pool}
}

// Upsert creates or overwrites the answer for (attemptID, questionID) in a
// single statement. The attempt row is read FOR SHARE, so the write either
// commits before a concurrent completion locks it, or observes the completed
// flag afterwards and writes nothing (ErrAttemptClosed).
func (r *AnswerRepository) Upsert(ctx context.Context, attemptID uuid.UUID, questionID int64, answer string) error {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO answer_records (attempt_id, question_id, selected_answer)
		 SELECT a.id, $2, $3
		 FROM exam_attempts a
		 WHERE a.id = $1 AND NOT a.is_completed
		 FOR SHARE
		 ON CONFLICT (attempt_id, question_id) DO UPDATE
		 SET selected_answer = EXCLUDED.selected_answer, updated_at = NOW()`,
		attemptID, questionID, answer,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAttemptClosed
	}
	return nil
}

// ListByAttempt returns all saved answers of an attempt.
func (r *AnswerRepository) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.AnswerRecord, error) {
	return listAnswers(ctx, r.pool, attemptID)
}

func listAnswers(ctx context.Context, q queryer, attemptID uuid.UUID) ([]model.AnswerRecord, error) {
	rows, err := q.Query(ctx,
		`SELECT attempt_id, question_id, selected_answer, updated_at
		 FROM answer_records WHERE attempt_id = $1
		 ORDER BY question_id`, attemptID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.AnswerRecord, error) {
		var a model.AnswerRecord
		err := row.Scan(&a.AttemptID, &a.QuestionID, &a.SelectedAnswer, &a.UpdatedAt)
		return a, err
	})
}
