package core

import (
	"context"
	"time"

	"atqr-backend-go/internal/models"
)

// UserService defines the interface for user-profile operations.
type UserService interface {
	// GetOrCreate retrieves a user by ID. If the user doesn't exist, it
	// creates a new one with free-tier defaults.
	GetOrCreate(ctx context.Context, userID, email string) (*models.User, bool, error)
	GetByID(ctx context.Context, userID string) (*models.User, error)
}

// TrialGrant is the result of a successful trial start.
type TrialGrant struct {
	Plan        string
	TrialEndsAt time.Time
}

// EntitlementService owns every plan/subscription-status transition.
type EntitlementService interface {
	// StartTrial begins the one-time trial for a user. Fails with
	// ErrFailedPrecondition if the user is paid or has used the trial before.
	StartTrial(ctx context.Context, userID string) (*TrialGrant, error)
	// ApplyBillingEvent applies one verified billing event to the owning
	// user's entitlement. Returns ErrUserNotFound when the event cannot be
	// tied to an account; the caller decides whether to drop it.
	ApplyBillingEvent(ctx context.Context, event BillingEvent) error
	// ExpireTrial downgrades a trial user to the free tier. Idempotent:
	// a user no longer on trial is left untouched.
	ExpireTrial(ctx context.Context, userID string) error
}

// CreateQRCodeResult is returned by QRCodeService.Create.
type CreateQRCodeResult struct {
	QRID string
	Slug string // empty for static codes
}

// QRCodeService validates creation requests, enforces plan quotas and
// allocates slugs for dynamic codes.
type QRCodeService interface {
	Create(ctx context.Context, userID string, req models.CreateQRCodeRequest) (*CreateQRCodeResult, error)
}

// RedirectService resolves a public slug to its redirect target, enforcing
// trial expiry and the active flag, and schedules scan stats as a side effect.
type RedirectService interface {
	Resolve(ctx context.Context, rawSlug string, scan models.ScanContext) (string, error)
}

// ScanRecorder aggregates one scan into the per-slug stats document. Failures
// are the caller's to log; they must never reach the scanning end user.
type ScanRecorder interface {
	Record(ctx context.Context, slug string, scan models.ScanContext) error
}

// BillingService drives user-initiated billing flows and webhook processing.
type BillingService interface {
	CreateCheckoutSession(ctx context.Context, userID string) (string, error)
	CreatePortalSession(ctx context.Context, userID string) (string, error)
	// HandleWebhook verifies and applies one billing event. It returns
	// ErrBadSignature for unverifiable payloads; processing failures after
	// verification are logged and swallowed so the provider is always acked.
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// BillingGateway is the port to the external billing provider. Checkout and
// portal UI, and signature cryptography, live entirely on the other side of
// this interface.
type BillingGateway interface {
	// EnsureCustomer creates a billing customer for the user and returns its
	// opaque reference.
	EnsureCustomer(ctx context.Context, userID, email string) (string, error)
	CreateCheckoutSession(ctx context.Context, userID, customerID string) (string, error)
	CreatePortalSession(ctx context.Context, customerID string) (string, error)
	// VerifyEvent checks the payload signature and decodes it into a
	// BillingEvent. Unrecognized but valid events decode as UnknownEvent.
	VerifyEvent(payload []byte, signature string) (BillingEvent, error)
}
