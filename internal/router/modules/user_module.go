package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wavlang/backend/internal/application"
	"github.com/wavlang/backend/internal/container"
	handlers "github.com/wavlang/backend/internal/interface/http"
	"github.com/wavlang/backend/internal/interface/middleware"
)

// UserModule wires the account lifecycle routes.
// Public: registration, sign-in, verification, password reset.
// Protected: GET /user/authenticated, GET /user/:userId.
type UserModule struct {
	Handler *handlers.UserHandler
	Auth    *application.AuthService
}

func NewUserModule(h *handlers.UserHandler, auth *application.AuthService) *UserModule {
	return &UserModule{Handler: h, Auth: auth}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()

	signupLimiter := middleware.RateLimit(rdb, 10, time.Minute, middleware.KeyByIPAndPath(), nil)
	signinLimiter := middleware.RateLimit(rdb, 10, time.Minute, middleware.KeyByIP(), nil)
	// the token lifecycle adds its own per-user reissue limit on top
	tokenLimiter := middleware.RateLimit(rdb, 30, time.Minute, middleware.KeyByIPAndPath(), nil)

	rg.POST("/new_user", signupLimiter, m.Handler.Register)
	rg.POST("/signin", signinLimiter, m.Handler.SignIn)
	rg.POST("/google-signin", signinLimiter, m.Handler.GoogleSignIn)
	rg.POST("/google-signup", signupLimiter, m.Handler.GoogleSignUp)

	rg.POST("/verify-email", tokenLimiter, m.Handler.VerifyEmail)
	rg.POST("/resend-verification-code", tokenLimiter, m.Handler.ResendVerificationCode)
	rg.POST("/forgot-password", tokenLimiter, m.Handler.ForgotPassword)
	rg.GET("/user/verify-token", tokenLimiter, m.Handler.VerifyResetToken)
	rg.GET("/user/verify-email", tokenLimiter, m.Handler.VerifyEmailPending)
	rg.POST("/user/reset-password", tokenLimiter, m.Handler.ResetPassword)

	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.Auth))
	auth.Use(middleware.RateLimit(rdb, 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.GET("/user/authenticated", m.Handler.Authenticated)
		auth.GET("/user/:userId", m.Handler.FindUser)
	}
}
