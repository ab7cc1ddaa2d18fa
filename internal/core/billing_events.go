package core

import "time"

// BillingEvent is a verified billing lifecycle event, already past signature
// verification. It is a closed sum over the event types the entitlement state
// machine reacts to; anything else arrives as UnknownEvent and is dropped with
// a log line rather than an error.
//
// Events carry the account reference (Firebase UID from provider metadata)
// when the provider supplied it, and always carry the opaque billing customer
// reference so the account can be resolved through the stored link.
type BillingEvent interface {
	billingEvent()
}

// CheckoutCompleted fires when a user finishes the checkout flow for a
// subscription. PeriodEnd is the end of the initial billing period.
type CheckoutCompleted struct {
	AccountRef         string
	BillingCustomerRef string
	PeriodEnd          time.Time
}

// InvoicePaid fires on every successful renewal invoice.
type InvoicePaid struct {
	AccountRef         string
	BillingCustomerRef string
	PeriodEnd          time.Time
}

// SubscriptionDeleted fires when a subscription is cancelled for good.
type SubscriptionDeleted struct {
	AccountRef         string
	BillingCustomerRef string
}

// UnknownEvent is any verified event type this service does not act on.
type UnknownEvent struct {
	Type string
}

func (CheckoutCompleted) billingEvent()   {}
func (InvoicePaid) billingEvent()         {}
func (SubscriptionDeleted) billingEvent() {}
func (UnknownEvent) billingEvent()        {}
