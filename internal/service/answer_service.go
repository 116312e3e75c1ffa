package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/stemsi/scholarship-exam/internal/repository"
)

// AnswerService records answers into the student's active attempt.
type AnswerService struct {
	attempts AttemptStore
	answers  AnswerStore
}

// NewAnswerService creates a new AnswerService.
func NewAnswerService(attempts AttemptStore, answers AnswerStore) *AnswerService {
	return &AnswerService{attempts: attempts, answers: answers}
}

// SaveAnswer upserts the student's answer to questionID. Repeating the same
// call leaves the same stored state. A student whose attempt has already been
// submitted gets ErrAttemptCompleted; one who never started gets
// ErrNoActiveAttempt.
func (s *AnswerService) SaveAnswer(ctx context.Context, studentID, questionID int64, answer string) error {
	attempt, err := s.attempts.GetIncompleteByStudent(ctx, studentID)
	if errors.Is(err, repository.ErrNotFound) {
		return s.noActiveAttempt(ctx, studentID)
	}
	if err != nil {
		return fmt.Errorf("find active attempt: %w", err)
	}

	if !attempt.HasQuestion(questionID) {
		return fieldError("question_id", "Question is not part of this exam.")
	}

	err = s.answers.Upsert(ctx, attempt.ID, questionID, answer)
	if errors.Is(err, repository.ErrAttemptClosed) {
		return ErrAttemptCompleted
	}
	if err != nil {
		return fmt.Errorf("save answer: %w", err)
	}
	return nil
}

func (s *AnswerService) noActiveAttempt(ctx context.Context, studentID int64) error {
	completed, err := s.attempts.HasCompleted(ctx, studentID)
	if err != nil {
		return fmt.Errorf("check completed attempts: %w", err)
	}
	if completed {
		return ErrAttemptCompleted
	}
	return ErrNoActiveAttempt
}
