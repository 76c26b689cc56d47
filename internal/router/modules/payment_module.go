package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wavlang/backend/internal/application"
	"github.com/wavlang/backend/internal/container"
	handlers "github.com/wavlang/backend/internal/interface/http"
	"github.com/wavlang/backend/internal/interface/middleware"
)

// PaymentModule wires the Stripe routes. Checkout and payment-intent
// creation are public (the frontend calls them pre-signup); billing history
// requires a session.
type PaymentModule struct {
	Handler *handlers.StripeHandler
	Auth    *application.AuthService
}

func NewPaymentModule(h *handlers.StripeHandler, auth *application.AuthService) *PaymentModule {
	return &PaymentModule{Handler: h, Auth: auth}
}

func (m *PaymentModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	payLimiter := middleware.RateLimit(rdb, 20, time.Minute, middleware.KeyByIPAndPath(), nil)

	pay := rg.Group("/stripe")
	pay.Use(payLimiter, middleware.OptionalAuth(m.Auth))
	{
		pay.POST("/create-payment-intent", m.Handler.CreatePaymentIntent)
		pay.POST("/create-checkout-session", m.Handler.CreateCheckoutSession)
		pay.POST("/pricing/payment", m.Handler.PricingPayment)
	}

	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.Auth))
	auth.Use(middleware.RateLimit(rdb, 60, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.GET("/user/billing", m.Handler.ListBilling)
	}
}
