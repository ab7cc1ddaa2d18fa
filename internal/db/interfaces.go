package db

import (
	"context"

	"atqr-backend-go/internal/models"
)

// UserRepository defines the interface for user data storage operations.
type UserRepository interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
	// GetByBillingCustomerID resolves a user by the opaque billing customer
	// reference, for billing events that carry no account ID.
	GetByBillingCustomerID(ctx context.Context, customerID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	// Mutate runs fn against the current document state inside a transaction
	// and writes back the mutated user. fn may return ErrUnchanged to commit
	// nothing, or any other error to abort. Every entitlement transition goes
	// through here so concurrent events never interleave within one document.
	Mutate(ctx context.Context, userID string, fn func(user *models.User) error) (*models.User, error)
}

// QRCodeRepository defines the interface for QR code storage operations.
type QRCodeRepository interface {
	// CountByOwner returns the total number of QR codes owned by a user.
	CountByOwner(ctx context.Context, userID string) (int, error)
	// CountDynamicByOwner returns the number of dynamic QR codes owned by a user.
	CountDynamicByOwner(ctx context.Context, userID string) (int, error)
	// CreateStatic persists a static QR code. Fails with ErrAlreadyExists if
	// the client-generated ID is already taken.
	CreateStatic(ctx context.Context, qr *models.QRCode) error
	// CreateDynamicBundle atomically creates the QR code, its SlugRecord and a
	// zero StatsRecord. The write aborts with ErrAlreadyExists if either the
	// QR code ID or the slug is already taken; partial creation is never
	// observable.
	CreateDynamicBundle(ctx context.Context, qr *models.QRCode, record *models.SlugRecord) error
}

// SlugRepository defines the interface for redirect record lookups and the
// one-way deactivation applied on trial expiry.
type SlugRepository interface {
	Get(ctx context.Context, slug string) (*models.SlugRecord, error)
	// Deactivate flips isActive to false. It reports whether this call
	// performed the flip, so exactly one of N concurrent callers triggers the
	// follow-up entitlement downgrade.
	Deactivate(ctx context.Context, slug string) (bool, error)
}

// StatsRepository applies scan analytics as atomic counter increments.
type StatsRepository interface {
	ApplyScan(ctx context.Context, slug string, scan *models.Scan) error
}
