// Package payments adapts the Stripe SDK for the payment endpoints.
package payments

import (
	"errors"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// StripeClient wraps a configured Stripe API client. Constructed once at
// startup and injected, never referenced as a package-level singleton.
type StripeClient struct {
	api *client.API
}

func NewStripeClient(secretKey string) (*StripeClient, error) {
	if secretKey == "" {
		return nil, errors.New("stripe: secret key is required")
	}
	return &StripeClient{api: client.New(secretKey, nil)}, nil
}

// LineItem is one purchasable entry in a checkout session.
type LineItem struct {
	Name     string `json:"name" binding:"required"`
	Price    int64  `json:"price" binding:"required,gt=0"` // major units
	Quantity int64  `json:"quantity" binding:"required,gt=0"`
}

// CreatePaymentIntent creates a payment intent and returns its id and client
// secret for the frontend confirmation step.
func (s *StripeClient) CreatePaymentIntent(amount int64, currency string) (id, clientSecret string, err error) {
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	pi, err := s.api.PaymentIntents.New(&stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
	})
	if err != nil {
		return "", "", err
	}
	return pi.ID, pi.ClientSecret, nil
}

// CreateCheckoutSession creates a hosted checkout session for the given
// items and returns its id and redirect URL.
func (s *StripeClient) CreateCheckoutSession(items []LineItem, successURL, cancelURL string) (id, url string, err error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(items))
	for _, item := range items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(string(stripe.CurrencyUSD)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
				UnitAmount: stripe.Int64(item.Price * 100),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}
	sess, err := s.api.CheckoutSessions.New(&stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:          lineItems,
		SuccessURL:         stripe.String(successURL),
		CancelURL:          stripe.String(cancelURL),
	})
	if err != nil {
		return "", "", err
	}
	return sess.ID, sess.URL, nil
}
