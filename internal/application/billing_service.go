package application

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/wavlang/backend/internal/domain/entity"
	"github.com/wavlang/backend/internal/domain/repository"
	"github.com/wavlang/backend/pkg/payments"
)

// BillingService fronts the Stripe adapter and keeps a local record of
// every payment attempt. The Stripe call is authoritative; the billing row
// is an audit trail and never blocks the payment on write failure. Stripe
// is nil when no API key is configured; payment calls then fail with
// ErrProviderUnavailable.
type BillingService struct {
	Stripe  *payments.StripeClient
	Records repository.BillingRepository
	Logger  *logrus.Logger
}

func NewBillingService(stripe *payments.StripeClient, records repository.BillingRepository, logger *logrus.Logger) *BillingService {
	return &BillingService{Stripe: stripe, Records: records, Logger: logger}
}

// CreatePaymentIntent creates a Stripe payment intent and records the
// attempt. userEmail may be empty for anonymous checkouts.
func (s *BillingService) CreatePaymentIntent(ctx context.Context, userEmail string, amount int64, currency string) (string, error) {
	if s.Stripe == nil {
		return "", ErrProviderUnavailable
	}
	id, clientSecret, err := s.Stripe.CreatePaymentIntent(amount, currency)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUpstream, err)
	}
	s.record(ctx, userEmail, amount, currency, id, "created")
	return clientSecret, nil
}

// CreateCheckoutSession creates a hosted checkout session and records it.
func (s *BillingService) CreateCheckoutSession(ctx context.Context, userEmail string, items []payments.LineItem, successURL, cancelURL string) (string, error) {
	if s.Stripe == nil {
		return "", ErrProviderUnavailable
	}
	id, url, err := s.Stripe.CreateCheckoutSession(items, successURL, cancelURL)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUpstream, err)
	}
	var total int64
	for _, item := range items {
		total += item.Price * 100 * item.Quantity
	}
	s.record(ctx, userEmail, total, "usd", id, "checkout_created")
	return url, nil
}

// ListByEmail returns the user's payment attempts, newest first.
func (s *BillingService) ListByEmail(ctx context.Context, email string, limit int) ([]entity.BillingRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.Records.ListByEmail(ctx, email, limit)
}

func (s *BillingService) record(ctx context.Context, email string, amount int64, currency, ref, status string) {
	if s.Records == nil {
		return
	}
	rec := &entity.BillingRecord{
		UserEmail:   email,
		Amount:      amount,
		Currency:    currency,
		ProviderRef: ref,
		Status:      status,
	}
	if err := s.Records.Create(ctx, rec); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("provider_ref", ref).Warn("billing record write failed")
	}
}
