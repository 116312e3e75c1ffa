package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/scholarship-exam/internal/middleware"
	"github.com/stemsi/scholarship-exam/internal/model"
	"github.com/stemsi/scholarship-exam/internal/response"
	"github.com/stemsi/scholarship-exam/internal/service"
	"github.com/stemsi/scholarship-exam/internal/validator"
)

// ExamHandler serves the student's exam session.
type ExamHandler struct {
	sessions *service.ExamSessionService
	answers  *service.AnswerService
	log      zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(sessions *service.ExamSessionService, answers *service.AnswerService, log zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		sessions: sessions,
		answers:  answers,
		log:      log.With().Str("component", "exam_handler").Logger(),
	}
}

// StartExam godoc
// GET|POST /api/v1/student/exam
// Starts the student's attempt, or resumes it, and returns questions plus saved answers.
func (h *ExamHandler) StartExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	state, err := h.sessions.ResumeState(c.Request.Context(), claims.UserID)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// SaveAnswer godoc
// POST /api/v1/student/exam/answers
// Records (or overwrites) the answer to one question.
func (h *ExamHandler) SaveAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.SaveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.answers.SaveAnswer(c.Request.Context(), claims.UserID, req.QuestionID, req.Answer); err != nil {
		fail(c, h.log, err)
		return
	}

	response.Acknowledge(c)
}

// SubmitExam godoc
// POST /api/v1/student/exam/submit
// Scores and closes the attempt.
func (h *ExamHandler) SubmitExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	result, err := h.sessions.Complete(c.Request.Context(), claims.UserID)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}
