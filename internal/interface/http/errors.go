package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/wavlang/backend/internal/application"
	"github.com/wavlang/backend/pkg/response"
)

// statusFor maps domain errors to HTTP statuses. Anything unmapped is an
// internal error; the raw cause stays in the logs, not the response.
func statusFor(err error) (int, bool) {
	switch {
	case errors.Is(err, application.ErrEmailTaken),
		errors.Is(err, application.ErrAlreadyVerified):
		return http.StatusConflict, true
	case errors.Is(err, application.ErrUserNotFound),
		errors.Is(err, application.ErrTokenNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, application.ErrTokenMismatch),
		errors.Is(err, application.ErrInvalidCredentials),
		errors.Is(err, application.ErrPasswordReuse):
		return http.StatusUnauthorized, true
	case errors.Is(err, application.ErrRateLimited):
		return http.StatusTooManyRequests, true
	case errors.Is(err, application.ErrVerificationExpired),
		errors.Is(err, application.ErrInvalidPassword):
		return http.StatusBadRequest, true
	case errors.Is(err, application.ErrUpstream):
		return http.StatusBadGateway, true
	case errors.Is(err, application.ErrProviderUnavailable):
		return http.StatusServiceUnavailable, true
	}
	return http.StatusInternalServerError, false
}

func writeDomainError(c *gin.Context, logger *logrus.Logger, err error) {
	status, known := statusFor(err)
	if !known {
		if logger != nil {
			logger.WithError(err).WithField("path", c.FullPath()).Error("unhandled error")
		}
		response.Error(c, status, "internal server error", nil)
		return
	}
	response.Error(c, status, err.Error(), nil)
}
