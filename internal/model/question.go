package model

import (
	"errors"
	"fmt"
	"strings"
)

// Question is a multiple-choice item from the question bank.
type Question struct {
	ID            int64  `json:"id"`
	QuestionText  string `json:"question_text"`
	Option1       string `json:"option1"`
	Option2       string `json:"option2"`
	Option3       string `json:"option3"`
	Option4       string `json:"option4"`
	CorrectAnswer string `json:"-"`
}

// Options returns the four answer options in display order.
func (q *Question) Options() []string {
	return []string{q.Option1, q.Option2, q.Option3, q.Option4}
}

// SeedQuestion is the on-disk format read by cmd/seed-questions.
type SeedQuestion struct {
	QuestionText  string   `json:"question_text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
}

// SeedFile is the document read by cmd/seed-questions.
type SeedFile struct {
	Colleges  []string       `json:"colleges"`
	Branches  []string       `json:"branches"`
	Questions []SeedQuestion `json:"questions"`
}

// ErrInvalidSeedQuestion is returned for seed entries that cannot be stored.
var ErrInvalidSeedQuestion = errors.New("invalid seed question")

// ToQuestion validates the seed entry and converts it to a bank question.
// It needs exactly four non-empty options, one of which is the correct answer.
func (s SeedQuestion) ToQuestion() (*Question, error) {
	text := strings.TrimSpace(s.QuestionText)
	if text == "" {
		return nil, fmt.Errorf("%w: empty question text", ErrInvalidSeedQuestion)
	}
	if len(s.Options) != 4 {
		return nil, fmt.Errorf("%w: want 4 options, got %d", ErrInvalidSeedQuestion, len(s.Options))
	}

	found := false
	for _, opt := range s.Options {
		if strings.TrimSpace(opt) == "" {
			return nil, fmt.Errorf("%w: empty option", ErrInvalidSeedQuestion)
		}
		if opt == s.CorrectAnswer {
			found = true
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: correct answer %q is not an option", ErrInvalidSeedQuestion, s.CorrectAnswer)
	}

	return &Question{
		QuestionText:  text,
		Option1:       s.Options[0],
		Option2:       s.Options[1],
		Option3:       s.Options[2],
		Option4:       s.Options[3],
		CorrectAnswer: s.CorrectAnswer,
	}, nil
}
