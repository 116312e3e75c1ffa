package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamAttempt is a student's single exam-taking session. QuestionIDs is fixed
// at creation and Score is written once, on completion.
type ExamAttempt struct {
	ID          uuid.UUID  `json:"id"`
	StudentID   int64      `json:"student_id"`
	QuestionIDs []int64    `json:"question_ids"`
	Score       int        `json:"score"`
	IsCompleted bool       `json:"is_completed"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// HasQuestion reports whether questionID belongs to the attempt.
func (a *ExamAttempt) HasQuestion(questionID int64) bool {
	for _, id := range a.QuestionIDs {
		if id == questionID {
			return true
		}
	}
	return false
}

// AnswerRecord is the selected answer for one question of an attempt.
type AnswerRecord struct {
	AttemptID      uuid.UUID `json:"attempt_id"`
	QuestionID     int64     `json:"question_id"`
	SelectedAnswer string    `json:"selected_answer"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ExamQuestion is a question as served to a student (no answer key).
type ExamQuestion struct {
	ID           int64    `json:"id"`
	QuestionText string   `json:"question_text"`
	Options      []string `json:"options"`
}

// ExamState is what a client needs to render or restore an attempt.
type ExamState struct {
	AttemptID uuid.UUID        `json:"attempt_id"`
	StartedAt time.Time        `json:"started_at"`
	Questions []ExamQuestion   `json:"questions"`
	Answers   map[int64]string `json:"answers"`
}

// SaveAnswerRequest is the autosave payload for a single question.
type SaveAnswerRequest struct {
	QuestionID int64  `json:"question_id" binding:"required,min=1"`
	Answer     string `json:"answer" binding:"required,max=200"`
}

// ExamResult is returned after submission.
type ExamResult struct {
	AttemptID uuid.UUID `json:"attempt_id"`
	Score     int       `json:"score"`
	Total     int       `json:"total"`
}
