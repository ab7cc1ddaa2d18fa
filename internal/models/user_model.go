package models

import "time"

// Plan is the coarse entitlement tier of an account.
const (
	PlanFree  = "free"
	PlanTrial = "trial"
	PlanPaid  = "paid"
)

// Subscription status as reported by the billing provider.
const (
	SubscriptionInactive = "inactive"
	SubscriptionTrialing = "trialing"
	SubscriptionActive   = "active"
)

// User represents one account. The document is created with free-tier defaults
// and from then on mutated only by the entitlement transitions.
type User struct {
	ID                 string     `json:"id" firestore:"-"` // Firebase Auth UID, also the document ID
	Email              string     `json:"email" firestore:"email"`
	Plan               string     `json:"plan" firestore:"plan"`
	SubscriptionStatus string     `json:"subscriptionStatus" firestore:"subscriptionStatus"`
	StripeCustomerID   string     `json:"stripeCustomerId,omitempty" firestore:"stripeCustomerId"`
	QRLimit            int        `json:"qrLimit" firestore:"qrLimit"`
	DynamicQRLimit     int        `json:"dynamicQrLimit" firestore:"dynamicQrLimit"`
	TrialUsed          bool       `json:"trialUsed" firestore:"trialUsed"` // one-way false -> true, never reset
	TrialStartedAt     *time.Time `json:"trialStartedAt,omitempty" firestore:"trialStartedAt"`
	TrialEndsAt        *time.Time `json:"trialEndsAt,omitempty" firestore:"trialEndsAt"`
	PaidUntil          *time.Time `json:"paidUntil,omitempty" firestore:"paidUntil"`
	CreatedAt          time.Time  `json:"createdAt" firestore:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`
}

// IsActivePaid reports whether the user is on the unlimited paid tier.
func (u *User) IsActivePaid() bool {
	return u.Plan == PlanPaid && u.SubscriptionStatus == SubscriptionActive
}

// NewFreeUser returns the profile written at account creation.
func NewFreeUser(uid, email string) *User {
	return &User{
		ID:                 uid,
		Email:              email,
		Plan:               PlanFree,
		SubscriptionStatus: SubscriptionInactive,
		QRLimit:            10,
		DynamicQRLimit:     0,
		TrialUsed:          false,
		CreatedAt:          time.Now().UTC(),
	}
}
