package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/wavlang/backend/internal/application"
	"github.com/wavlang/backend/internal/interface/middleware"
	"github.com/wavlang/backend/pkg/payments"
	"github.com/wavlang/backend/pkg/response"
	"github.com/wavlang/backend/pkg/validation"
)

// StripeHandler exposes the payment endpoints.
type StripeHandler struct {
	Billing   *application.BillingService
	Logger    *logrus.Logger
	ClientURL string
}

func NewStripeHandler(billing *application.BillingService, logger *logrus.Logger, clientURL string) *StripeHandler {
	return &StripeHandler{Billing: billing, Logger: logger, ClientURL: clientURL}
}

type billingDetails struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type paymentIntentRequest struct {
	Amount         int64          `json:"amount" binding:"required,gt=0"` // minor units
	BillingDetails billingDetails `json:"billingDetails"`
}

type checkoutSessionRequest struct {
	Items []payments.LineItem `json:"items" binding:"required,min=1,dive"`
}

type pricingPaymentRequest struct {
	Amount   int64  `json:"amount" binding:"required,gt=0"` // minor units
	Currency string `json:"currency"`
}

// CreatePaymentIntent handles POST /stripe/create-payment-intent.
func (h *StripeHandler) CreatePaymentIntent(c *gin.Context) {
	var req paymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	clientSecret, err := h.Billing.CreatePaymentIntent(c.Request.Context(), req.BillingDetails.Email, req.Amount, "")
	if err != nil {
		writeDomainError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clientSecret": clientSecret})
}

// CreateCheckoutSession handles POST /stripe/create-checkout-session.
func (h *StripeHandler) CreateCheckoutSession(c *gin.Context) {
	var req checkoutSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	url, err := h.Billing.CreateCheckoutSession(
		c.Request.Context(),
		c.GetString(middleware.CtxUserEmail),
		req.Items,
		h.ClientURL+"/payment-success",
		h.ClientURL+"/payment-cancelled",
	)
	if err != nil {
		writeDomainError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// PricingPayment handles POST /stripe/pricing/payment.
func (h *StripeHandler) PricingPayment(c *gin.Context) {
	var req pricingPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	clientSecret, err := h.Billing.CreatePaymentIntent(c.Request.Context(), c.GetString(middleware.CtxUserEmail), req.Amount, req.Currency)
	if err != nil {
		writeDomainError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clientSecret": clientSecret})
}

// ListBilling handles GET /user/billing (authenticated).
func (h *StripeHandler) ListBilling(c *gin.Context) {
	email := c.GetString(middleware.CtxUserEmail)
	records, err := h.Billing.ListByEmail(c.Request.Context(), email, 50)
	if err != nil {
		writeDomainError(c, h.Logger, err)
		return
	}
	out := make([]gin.H, 0, len(records))
	for _, r := range records {
		out = append(out, gin.H{
			"id":        r.ID,
			"amount":    r.Amount,
			"currency":  r.Currency,
			"reference": r.ProviderRef,
			"status":    r.Status,
			"createdAt": r.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": out})
}
