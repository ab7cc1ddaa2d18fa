package core

import "errors"

// Service-level error classifications. Handlers map these to transport
// statuses; everything not in this list is reported to the caller as a
// generic internal failure with the detail logged server-side.
var (
	// ErrUnauthenticated means the caller identity is missing or invalid.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidArgument means the request payload is malformed or incomplete.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrPermissionDenied covers cross-tenant references and tier gating.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrResourceExhausted means a plan quota has been reached.
	ErrResourceExhausted = errors.New("resource limit reached")
	// ErrAlreadyExists covers duplicate client-generated IDs and slug collisions.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotFound means a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrFailedPrecondition means a state-transition precondition does not hold.
	ErrFailedPrecondition = errors.New("failed precondition")

	// ErrUserNotFound is returned when a user profile is missing.
	ErrUserNotFound = errors.New("user not found")

	// ErrQRInactive is returned when resolving a deactivated slug.
	ErrQRInactive = errors.New("qr code is inactive")
	// ErrTrialExpired is returned when resolving a slug whose trial has ended.
	ErrTrialExpired = errors.New("trial for this qr code has expired")

	// ErrBadSignature means billing webhook signature verification failed.
	ErrBadSignature = errors.New("webhook signature verification failed")
	// ErrBillingGateway is a generic failure talking to the billing provider.
	ErrBillingGateway = errors.New("billing provider operation failed")
)
