package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/scholarship-exam/internal/model"
	"github.com/stemsi/scholarship-exam/internal/response"
	"github.com/stemsi/scholarship-exam/internal/service"
	"github.com/stemsi/scholarship-exam/internal/validator"
)

// RegistrationHandler serves the public registration form.
type RegistrationHandler struct {
	registration *service.RegistrationService
	log          zerolog.Logger
}

// NewRegistrationHandler creates a new RegistrationHandler.
func NewRegistrationHandler(registration *service.RegistrationService, log zerolog.Logger) *RegistrationHandler {
	return &RegistrationHandler{
		registration: registration,
		log:          log.With().Str("component", "registration_handler").Logger(),
	}
}

// Register godoc
// POST /api/v1/auth/register
func (h *RegistrationHandler) Register(c *gin.Context) {
	var req model.RegisterStudentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student, err := h.registration.Register(c.Request.Context(), &req)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"student": student})
}

// CheckUser godoc
// GET /api/v1/public/check-user?email=...&phone=...
func (h *RegistrationHandler) CheckUser(c *gin.Context) {
	var q model.CheckUserQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.registration.CheckUser(c.Request.Context(), q.Email, q.Phone)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// MasterData godoc
// GET /api/v1/public/master-data
func (h *RegistrationHandler) MasterData(c *gin.Context) {
	data, err := h.registration.MasterData(c.Request.Context())
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, data)
}
