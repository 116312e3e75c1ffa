package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/scholarship-exam/internal/config"
	"github.com/stemsi/scholarship-exam/internal/model"
	"github.com/stemsi/scholarship-exam/internal/repository"
)

// AttemptStore persists exam attempts. Create must fail with
// repository.ErrConflict when the student already holds an incomplete
// attempt, and Complete must score and close the attempt atomically.
type AttemptStore interface {
	GetIncompleteByStudent(ctx context.Context, studentID int64) (*model.ExamAttempt, error)
	Create(ctx context.Context, a *model.ExamAttempt) error
	Complete(ctx context.Context, studentID int64, score func(*model.ExamAttempt, []model.AnswerRecord) int) (*model.ExamAttempt, error)
	HasCompleted(ctx context.Context, studentID int64) (bool, error)
}

// AnswerStore persists answers. Upsert must fail with
// repository.ErrAttemptClosed once the attempt is completed.
type AnswerStore interface {
	Upsert(ctx context.Context, attemptID uuid.UUID, questionID int64, answer string) error
	ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.AnswerRecord, error)
}

// QuestionBank is the read-only question provider.
type QuestionBank interface {
	ListAll(ctx context.Context) ([]model.Question, error)
}

// ExamSessionService manages the single active exam attempt of a student.
type ExamSessionService struct {
	attempts AttemptStore
	answers  AnswerStore
	bank     QuestionBank
	sampler  Sampler
	cfg      config.ExamConfig
	log      zerolog.Logger
}

// NewExamSessionService creates a new ExamSessionService. A nil sampler
// selects RandomSampler.
func NewExamSessionService(
	attempts AttemptStore,
	answers AnswerStore,
	bank QuestionBank,
	sampler Sampler,
	cfg config.ExamConfig,
	log zerolog.Logger,
) *ExamSessionService {
	if sampler == nil {
		sampler = RandomSampler{}
	}
	return &ExamSessionService{
		attempts: attempts,
		answers:  answers,
		bank:     bank,
		sampler:  sampler,
		cfg:      cfg,
		log:      log.With().Str("component", "exam_session_service").Logger(),
	}
}

// Start returns the student's incomplete attempt, creating one with a fresh
// random question subset if none exists. Concurrent starts for the same
// student all return the same attempt.
func (s *ExamSessionService) Start(ctx context.Context, studentID int64) (*model.ExamAttempt, error) {
	existing, err := s.attempts.GetIncompleteByStudent(ctx, studentID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("find active attempt: %w", err)
	}

	questions, err := s.bank.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list question bank: %w", err)
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	ids := make([]int64, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}

	attempt := &model.ExamAttempt{
		StudentID:   studentID,
		QuestionIDs: s.sampler.Sample(ids, min(s.cfg.Size, len(ids))),
	}

	err = s.attempts.Create(ctx, attempt)
	if errors.Is(err, repository.ErrConflict) {
		// Another request created the attempt first; use theirs.
		winner, fetchErr := s.attempts.GetIncompleteByStudent(ctx, studentID)
		if fetchErr != nil {
			return nil, fmt.Errorf("concurrent start detected, but fetch failed: %w", fetchErr)
		}
		return winner, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	s.log.Info().Int64("student_id", studentID).Str("attempt_id", attempt.ID.String()).
		Int("questions", len(attempt.QuestionIDs)).Msg("Exam attempt started")
	return attempt, nil
}

// ResumeState starts or resumes the student's attempt and returns its
// questions in attempt order together with every saved answer.
func (s *ExamSessionService) ResumeState(ctx context.Context, studentID int64) (*model.ExamState, error) {
	attempt, err := s.Start(ctx, studentID)
	if err != nil {
		return nil, err
	}

	bank, err := s.bank.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list question bank: %w", err)
	}
	byID := make(map[int64]*model.Question, len(bank))
	for i := range bank {
		byID[bank[i].ID] = &bank[i]
	}

	questions := make([]model.ExamQuestion, 0, len(attempt.QuestionIDs))
	for _, id := range attempt.QuestionIDs {
		q, ok := byID[id]
		if !ok {
			continue
		}
		questions = append(questions, model.ExamQuestion{
			ID:           q.ID,
			QuestionText: q.QuestionText,
			Options:      q.Options(),
		})
	}

	records, err := s.answers.ListByAttempt(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	answers := make(map[int64]string, len(records))
	for _, r := range records {
		answers[r.QuestionID] = r.SelectedAnswer
	}

	return &model.ExamState{
		AttemptID: attempt.ID,
		StartedAt: attempt.StartedAt,
		Questions: questions,
		Answers:   answers,
	}, nil
}

// Complete scores the student's incomplete attempt and closes it.
func (s *ExamSessionService) Complete(ctx context.Context, studentID int64) (*model.ExamResult, error) {
	bank, err := s.bank.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list question bank: %w", err)
	}
	correct := make(map[int64]string, len(bank))
	for _, q := range bank {
		correct[q.ID] = q.CorrectAnswer
	}

	attempt, err := s.attempts.Complete(ctx, studentID, func(a *model.ExamAttempt, answers []model.AnswerRecord) int {
		return Score(a, answers, correct)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNoActiveAttempt
	}
	if err != nil {
		return nil, fmt.Errorf("complete attempt: %w", err)
	}

	s.log.Info().Int64("student_id", studentID).Str("attempt_id", attempt.ID.String()).
		Int("score", attempt.Score).Msg("Exam attempt completed")

	return &model.ExamResult{
		AttemptID: attempt.ID,
		Score:     attempt.Score,
		Total:     len(attempt.QuestionIDs),
	}, nil
}

// Score counts answers of the attempt that exactly match the correct answer.
// Unanswered questions and answers to foreign questions count as zero.
func Score(a *model.ExamAttempt, answers []model.AnswerRecord, correct map[int64]string) int {
	score := 0
	for _, ans := range answers {
		if !a.HasQuestion(ans.QuestionID) {
			continue
		}
		if key, ok := correct[ans.QuestionID]; ok && key == ans.SelectedAnswer {
			score++
		}
	}
	return score
}
