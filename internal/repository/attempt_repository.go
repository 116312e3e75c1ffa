package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/scholarship-exam/internal/model"
)

// AttemptRepository persists exam attempts and their fixed question sets.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// queryer is satisfied by both *pgxpool.Pool and pgx.Tx.
type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func loadQuestionIDs(ctx context.Context, q queryer, attemptID uuid.UUID) ([]int64, error) {
	rows, err := q.Query(ctx,
		`SELECT question_id FROM exam_attempt_questions
		 WHERE attempt_id = $1 ORDER BY position`, attemptID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// GetIncompleteByStudent returns the student's incomplete attempt, or ErrNotFound.
func (r *AttemptRepository) GetIncompleteByStudent(ctx context.Context, studentID int64) (*model.ExamAttempt, error) {
	a := &model.ExamAttempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, student_id, score, is_completed, started_at, completed_at
		 FROM exam_attempts
		 WHERE student_id = $1 AND NOT is_completed`, studentID,
	).Scan(&a.ID, &a.StudentID, &a.Score, &a.IsCompleted, &a.StartedAt, &a.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	a.QuestionIDs, err = loadQuestionIDs(ctx, r.pool, a.ID)
	if err != nil {
		return nil, fmt.Errorf("load attempt questions: %w", err)
	}
	return a, nil
}

// Create inserts a new incomplete attempt with its ordered question set.
// The partial unique index on incomplete attempts turns a concurrent duplicate
// into ErrConflict; nothing is written in that case.
func (r *AttemptRepository) Create(ctx context.Context, a *model.ExamAttempt) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO exam_attempts (student_id, score, is_completed)
		 VALUES ($1, 0, FALSE)
		 ON CONFLICT (student_id) WHERE NOT is_completed DO NOTHING
		 RETURNING id, started_at`,
		a.StudentID,
	).Scan(&a.ID, &a.StartedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrConflict
	}
	if _, ok := uniqueViolation(err); ok {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}

	rows := make([][]any, len(a.QuestionIDs))
	for i, qid := range a.QuestionIDs {
		rows[i] = []any{a.ID, i, qid}
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"exam_attempt_questions"},
		[]string{"attempt_id", "position", "question_id"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("insert attempt questions: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	a.Score = 0
	a.IsCompleted = false
	return nil
}

// Complete locks the student's incomplete attempt, computes its score from
// the saved answers with score, and marks it completed. Answer upserts take a
// shared lock on the same row, so none can land between scoring and the flip.
// Returns ErrNotFound if the student has no incomplete attempt.
func (r *AttemptRepository) Complete(ctx context.Context, studentID int64, score func(*model.ExamAttempt, []model.AnswerRecord) int) (*model.ExamAttempt, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	a := &model.ExamAttempt{}
	err = tx.QueryRow(ctx,
		`SELECT id, student_id, score, is_completed, started_at
		 FROM exam_attempts
		 WHERE student_id = $1 AND NOT is_completed
		 FOR UPDATE`, studentID,
	).Scan(&a.ID, &a.StudentID, &a.Score, &a.IsCompleted, &a.StartedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock attempt: %w", err)
	}

	if a.QuestionIDs, err = loadQuestionIDs(ctx, tx, a.ID); err != nil {
		return nil, fmt.Errorf("load attempt questions: %w", err)
	}
	answers, err := listAnswers(ctx, tx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}

	a.Score = score(a, answers)
	a.IsCompleted = true
	if err := tx.QueryRow(ctx,
		`UPDATE exam_attempts
		 SET score = $1, is_completed = TRUE, completed_at = NOW()
		 WHERE id = $2
		 RETURNING completed_at`,
		a.Score, a.ID,
	).Scan(&a.CompletedAt); err != nil {
		return nil, fmt.Errorf("complete attempt: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return a, nil
}

// HasCompleted reports whether the student has ever completed an attempt.
func (r *AttemptRepository) HasCompleted(ctx context.Context, studentID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM exam_attempts WHERE student_id = $1 AND is_completed)`, studentID,
	).Scan(&exists)
	return exists, err
}

// CountIncompleteByStudent is used by integration tests and diagnostics.
func (r *AttemptRepository) CountIncompleteByStudent(ctx context.Context, studentID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_attempts WHERE student_id = $1 AND NOT is_completed`, studentID,
	).Scan(&n)
	return n, err
}
