package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/scholarship-exam/internal/response"
	"github.com/stemsi/scholarship-exam/internal/service"
)

// domainErrors maps service sentinels to their HTTP status and wire code.
var domainErrors = []struct {
	err    error
	status int
	code   response.ErrCode
}{
	{service.ErrInvalidCredentials, http.StatusUnauthorized, response.ErrInvalidCredentials},
	{service.ErrSessionExpired, http.StatusUnauthorized, response.ErrSessionExpired},
	{service.ErrOTPNotFound, http.StatusBadRequest, response.ErrOTPNotFound},
	{service.ErrOTPExpired, http.StatusBadRequest, response.ErrOTPExpired},
	{service.ErrOTPMismatch, http.StatusBadRequest, response.ErrOTPMismatch},
	{service.ErrTooManyAttempts, http.StatusTooManyRequests, response.ErrTooManyAttempts},
	{service.ErrNoActiveAttempt, http.StatusNotFound, response.ErrNoActiveAttempt},
	{service.ErrAttemptCompleted, http.StatusConflict, response.ErrAttemptCompleted},
	{service.ErrNoQuestions, http.StatusServiceUnavailable, response.ErrNoQuestions},
	{service.ErrNotFound, http.StatusNotFound, response.ErrNotFound},
}

// fail writes the response for a service error. Unknown errors are logged
// and reported as internal.
func fail(c *gin.Context, log zerolog.Logger, err error) {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, ve.Fields)
		return
	}

	for _, de := range domainErrors {
		if errors.Is(err, de.err) {
			response.Fail(c, de.status, de.code)
			return
		}
	}

	reqID, _ := c.Get(response.ContextKeyRequestID)
	log.Error().Err(err).Interface("request_id", reqID).Str("path", c.FullPath()).Msg("Request failed")
	response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
}
