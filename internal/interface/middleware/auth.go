package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wavlang/backend/internal/application"
	"github.com/wavlang/backend/pkg/response"
)

// Context keys set by Auth for downstream handlers.
const (
	CtxUserID    = "userID"
	CtxUserEmail = "userEmail"
	CtxUser      = "user"
)

// Auth validates the x-access-token session credential against the claimed
// email header and sets the resolved user in the Gin context. A valid token
// for a different email is refused: the credential must match the identity
// the client claims to act as.
func Auth(svc *application.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("x-access-token")
		email := c.GetHeader("email")
		if token == "" || email == "" {
			response.Error(c, http.StatusForbidden, "missing credentials", nil)
			return
		}

		u, err := svc.AuthenticateByCredential(c.Request.Context(), token, email)
		if err != nil {
			switch {
			case errors.Is(err, application.ErrUserNotFound):
				response.Error(c, http.StatusNotFound, "user not found", nil)
			case errors.Is(err, application.ErrInvalidCredentials):
				response.Error(c, http.StatusForbidden, "invalid credentials", nil)
			default:
				response.Error(c, http.StatusInternalServerError, "authentication failed", nil)
			}
			return
		}

		c.Set(CtxUserID, u.ID)
		c.Set(CtxUserEmail, u.Email)
		c.Set(CtxUser, u)
		c.Next()
	}
}

// OptionalAuth resolves the user when credentials are present but lets
// anonymous requests through. Used by the transcription endpoints, where
// authentication only enables history recording.
func OptionalAuth(svc *application.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("x-access-token")
		email := c.GetHeader("email")
		if token == "" || email == "" {
			c.Next()
			return
		}
		if u, err := svc.AuthenticateByCredential(c.Request.Context(), token, email); err == nil {
			c.Set(CtxUserID, u.ID)
			c.Set(CtxUserEmail, u.Email)
			c.Set(CtxUser, u)
		}
		c.Next()
	}
}
