package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/wavlang/backend/internal/application"
	"github.com/wavlang/backend/internal/domain/entity"
	"github.com/wavlang/backend/internal/interface/middleware"
	"github.com/wavlang/backend/pkg/response"
	"github.com/wavlang/backend/pkg/validation"
)

// UserHandler exposes account lifecycle endpoints: registration, email
// verification, sign-in, and the password reset flow.
type UserHandler struct {
	Auth   *application.AuthService
	Logger *logrus.Logger
}

func NewUserHandler(auth *application.AuthService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Auth: auth, Logger: logger}
}

type registerRequest struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,pwd"`
}

type signinRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type verifyEmailRequest struct {
	UserID string `json:"userId"`
	OTP    string `json:"otp" binding:"required,len=6,numeric"`
}

type resendVerificationRequest struct {
	UserID string `json:"userId" binding:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

type googleTokenRequest struct {
	AccessToken string `json:"accessToken" binding:"required"`
}

func userJSON(u *entity.User) gin.H {
	return gin.H{
		"id":        u.ID,
		"firstName": u.FirstName,
		"lastName":  u.LastName,
		"email":     u.Email,
		"verified":  u.Verified,
		"createdAt": u.CreatedAt,
	}
}

// Register handles POST /new_user.
func (h *UserHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Auth.Register(c.Request.Context(), application.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		writeDomainError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, userJSON(u))
}

// SignIn handles POST /signin.
func (h *UserHandler) SignIn(c *gin.Context) {
	var req signinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	res, err := h.Auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeDomainError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   res.Token,
		"user": gin.H{
			"firstName": res.User.FirstName,
			"lastName":  res.User.LastName,
			"email":     res.User.Email,
			"verified":  res.User.Verified,
		},
	})
}

// VerifyEmail handles POST /verify-email?id=<userId>. The user id may come
// from the query string or the body; the body wins when both are present.
func (h *UserHandler) VerifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	userID := req.UserID
	if userID == "" {
		userID = c.Query("id")
	}
	if userID == "" {
		response.Error(c, http.StatusBadRequest, "missing user id", nil)
		return
	}
	if err := h.Auth.VerifyEmail(c.Request.Context(), userID, req.OTP); err != nil {
		writeDomainError(c, h.Logger, err)
		return
	}
	response.Message(c, http.StatusOK, "email verified")
}

// ResendVerificationCode handles POST /resend-verification-code.
func (h *UserHandler) ResendVerificationCode(c *gin.Context) {
	var req resendVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Auth.ResendVerificationCode(c.Request.Context(), req.UserID); err != nil {
		writeDomainError(c, h.Logger, err)
		return
	}
	response.Message(c, http.StatusOK, "verification code sent")
}

// ForgotPassword handles POST /forgot-password.
func (h *UserHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Auth.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		writeDomainError(c, h.Logger, err)
		return
	}
	response.Message(c, http.StatusOK, "password reset email sent")
}

// VerifyResetToken handles GET /user/verify-token?token&id. It gates the
// client's reset form without consuming the token.
func (h *UserHandler) VerifyResetToken(c *gin.Context) {
	token := c.Query("token")
	userID := c.Query("id")
	if token == "" || userID == "" {
		response.Error(c, http.StatusBadRequest, "missing token or id", nil)
		return
	}
	if _, err := h.Auth.CheckResetToken(c.Request.Context(), userID, token); err != nil {
		writeDomainError(c, h.Logger, err)
		return
	}
	response.Message(c, http.StatusOK, "token valid")
}

// VerifyEmailPending handles GET /user/verify-email?id. It gates the
// client's OTP entry form: 200 only while an unexpired verification code is
// outstanding for the user.
func (h *UserHandler) VerifyEmailPending(c *gin.Context) {
	userID := c.Query("id")
	if userID == "" {
		response.Error(c, http.StatusBadRequest, "missing user id", nil)
		return
	}
	if _, err := h.Auth.CheckPendingVerification(c.Request.Context(), userID); err != nil {
		writeDomainError(c, h.Logger, err)
		return
	}
	response.Message(c, http.StatusOK, "verification pending")
}

// ResetPassword handles POST /user/reset-password?token&id. The token is
// re-checked here and consumed once the new password is written.
func (h *UserHandler) ResetPassword(c *gin.Context) {
	token := c.Query("token")
	userID := c.Query("id")
	if token == "" || userID == "" {
		response.Error(c, http.StatusBadRequest, "missing token or id", nil)
		return
	}
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	ctx := c.Request.Context()
	if _, err := h.Auth.CheckResetToken(ctx, userID, token); err != nil {
		writeDomainError(c, h.Logger, err)
		return
	}
	if err := h.Auth.ResetPassword(ctx, userID, req.Password); err != nil {
		writeDomainError(c, h.Logger, err)
		return
	}
	response.Message(c, http.StatusOK, "password updated")
}

// Authenticated handles GET /user/authenticated. The heavy lifting happens
// in the auth middleware; by the time this runs the user is resolved.
func (h *UserHandler) Authenticated(c *gin.Context) {
	u, ok := c.Get(middleware.CtxUser)
	if !ok {
		response.Error(c, http.StatusForbidden, "not authenticated", nil)
		return
	}
	user, ok := u.(*entity.User)
	if !ok {
		response.Error(c, http.StatusInternalServerError, "internal server error", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": userJSON(user)})
}

// FindUser handles GET /user/:userId (authenticated).
func (h *UserHandler) FindUser(c *gin.Context) {
	u, err := h.Auth.FindUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		writeDomainError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": userJSON(u)})
}

// GoogleSignIn handles POST /google-signin.
func (h *UserHandler) GoogleSignIn(c *gin.Context) {
	var req googleTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	res, err := h.Auth.GoogleSignIn(c.Request.Context(), req.AccessToken)
	if err != nil {
		writeDomainError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   res.Token,
		"user": gin.H{
			"firstName": res.User.FirstName,
			"lastName":  res.User.LastName,
			"email":     res.User.Email,
			"verified":  res.User.Verified,
		},
	})
}

// GoogleSignUp handles POST /google-signup.
func (h *UserHandler) GoogleSignUp(c *gin.Context) {
	var req googleTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	res, err := h.Auth.GoogleSignUp(c.Request.Context(), req.AccessToken)
	if err != nil {
		writeDomainError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   res.Token,
		"user":    userJSON(res.User),
	})
}
