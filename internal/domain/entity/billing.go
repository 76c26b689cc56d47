package entity

import "time"

// BillingRecord captures a payment attempt created through the Stripe adapter.
type BillingRecord struct {
	ID          string
	UserEmail   string
	Amount      int64 // minor units
	Currency    string
	ProviderRef string // Stripe payment intent or checkout session id
	Status      string
	CreatedAt   time.Time
}
