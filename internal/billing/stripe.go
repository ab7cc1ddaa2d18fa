package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"atqr-backend-go/internal/core"
)

// accountRefMetadataKey is the metadata key carrying the Firebase UID on
// Stripe customers, checkout sessions and subscriptions, so webhook events
// can be tied back to an account.
const accountRefMetadataKey = "firebaseUID"

// StripeGateway implements core.BillingGateway against the Stripe API.
// Signature verification and the checkout/portal UI are Stripe's; this
// adapter only translates between Stripe objects and the event types the
// entitlement state machine consumes.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
	priceID       string
	frontendURL   string
}

// Config contains the Stripe credentials and product wiring.
type Config struct {
	SecretKey     string
	WebhookSecret string
	PriceID       string
	FrontendURL   string
}

// NewStripeGateway creates a new StripeGateway.
func NewStripeGateway(cfg Config) *StripeGateway {
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	return &StripeGateway{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
		priceID:       cfg.PriceID,
		frontendURL:   cfg.FrontendURL,
	}
}

// EnsureCustomer creates a Stripe customer tagged with the account reference.
func (g *StripeGateway) EnsureCustomer(ctx context.Context, userID, email string) (string, error) {
	params := &stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
		Email:  stripe.String(email),
	}
	params.AddMetadata(accountRefMetadataKey, userID)

	customer, err := g.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe customer create: %w", err)
	}
	return customer.ID, nil
}

// CreateCheckoutSession opens a subscription-mode checkout session. The
// account reference rides along on both the session and the subscription it
// creates, so renewal invoices stay attributable.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, userID, customerID string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Params:   stripe.Params{Context: ctx},
		Customer: stripe.String(customerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(g.priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:          stripe.String(g.frontendURL + "/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:           stripe.String(g.frontendURL + "/pricing"),
		AllowPromotionCodes: stripe.Bool(true),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{accountRefMetadataKey: userID},
		},
	}
	params.AddMetadata(accountRefMetadataKey, userID)

	session, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe checkout session create: %w", err)
	}
	return session.URL, nil
}

// CreatePortalSession opens a billing-portal session for an existing customer.
func (g *StripeGateway) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Params:    stripe.Params{Context: ctx},
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(g.frontendURL + "/dashboard"),
	}
	session, err := g.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe portal session create: %w", err)
	}
	return session.URL, nil
}

// VerifyEvent checks the webhook signature and decodes the event into the
// closed set the entitlement state machine consumes. Event types outside that
// set decode as core.UnknownEvent.
func (g *StripeGateway) VerifyEvent(payload []byte, signature string) (core.BillingEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("stripe webhook verification: %w", err)
	}

	switch string(event.Type) {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		out := core.CheckoutCompleted{AccountRef: session.Metadata[accountRefMetadataKey]}
		if session.Customer != nil {
			out.BillingCustomerRef = session.Customer.ID
		}
		if session.Subscription != nil {
			// The initial period end lives on the subscription, which the
			// session references but does not embed.
			sub, err := g.api.Subscriptions.Get(session.Subscription.ID, &stripe.SubscriptionParams{})
			if err != nil {
				return nil, fmt.Errorf("retrieve subscription %s: %w", session.Subscription.ID, err)
			}
			out.PeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0).UTC()
			if out.AccountRef == "" {
				out.AccountRef = sub.Metadata[accountRefMetadataKey]
			}
		}
		return out, nil

	case "invoice.paid":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return nil, fmt.Errorf("decode invoice: %w", err)
		}
		out := core.InvoicePaid{}
		if invoice.Customer != nil {
			out.BillingCustomerRef = invoice.Customer.ID
		}
		if invoice.Subscription != nil {
			sub, err := g.api.Subscriptions.Get(invoice.Subscription.ID, &stripe.SubscriptionParams{})
			if err != nil {
				return nil, fmt.Errorf("retrieve subscription %s: %w", invoice.Subscription.ID, err)
			}
			out.AccountRef = sub.Metadata[accountRefMetadataKey]
			out.PeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		}
		return out, nil

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		out := core.SubscriptionDeleted{AccountRef: sub.Metadata[accountRefMetadataKey]}
		if sub.Customer != nil {
			out.BillingCustomerRef = sub.Customer.ID
		}
		return out, nil

	default:
		return core.UnknownEvent{Type: string(event.Type)}, nil
	}
}
