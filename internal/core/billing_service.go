package core

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"atqr-backend-go/internal/db"
	"atqr-backend-go/internal/models"
)

// billingService implements the BillingService interface. All provider
// interaction goes through the BillingGateway port; this service only owns
// the account linkage and the hand-off of verified events to the entitlement
// state machine.
type billingService struct {
	userRepo     db.UserRepository
	entitlements EntitlementService
	gateway      BillingGateway
	logger       *zap.Logger
}

// NewBillingService creates a new BillingService instance.
func NewBillingService(userRepo db.UserRepository, entitlements EntitlementService, gateway BillingGateway, logger *zap.Logger) BillingService {
	return &billingService{
		userRepo:     userRepo,
		entitlements: entitlements,
		gateway:      gateway,
		logger:       logger,
	}
}

// CreateCheckoutSession returns a checkout URL for the user, lazily creating
// and persisting the billing customer link on first use.
func (s *billingService) CreateCheckoutSession(ctx context.Context, userID string) (string, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return "", err
	}

	customerID := user.StripeCustomerID
	if customerID == "" {
		customerID, err = s.gateway.EnsureCustomer(ctx, userID, user.Email)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrBillingGateway, err)
		}
		// Save the link back immediately so webhook events carrying only the
		// customer reference can be resolved.
		if _, err := s.userRepo.Mutate(ctx, userID, func(u *models.User) error {
			u.StripeCustomerID = customerID
			return nil
		}); err != nil {
			return "", fmt.Errorf("failed to link billing customer for user '%s': %w", userID, err)
		}
	}

	url, err := s.gateway.CreateCheckoutSession(ctx, userID, customerID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBillingGateway, err)
	}
	return url, nil
}

// CreatePortalSession returns a billing-portal URL for the user. A user who
// never checked out has no billing profile to manage.
func (s *billingService) CreatePortalSession(ctx context.Context, userID string) (string, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.StripeCustomerID == "" {
		return "", fmt.Errorf("%w: no active billing profile, subscribe first", ErrFailedPrecondition)
	}

	url, err := s.gateway.CreatePortalSession(ctx, user.StripeCustomerID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBillingGateway, err)
	}
	return url, nil
}

// HandleWebhook verifies one provider event and applies it to the owning
// user's entitlement. Only a signature failure is reported back (the provider
// should see a 400 and retry); once an event verifies, processing failures
// are logged and swallowed so the provider is acknowledged and does not
// retry into the same failure. Events for unknown accounts are dropped.
func (s *billingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.gateway.VerifyEvent(payload, signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	if err := s.entitlements.ApplyBillingEvent(ctx, event); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.logger.Warn("Dropping billing event for unknown account",
				zap.String("event", fmt.Sprintf("%T", event)),
				zap.Error(err),
			)
			return nil
		}
		s.logger.Error("Billing event processing failed; acknowledging anyway",
			zap.String("event", fmt.Sprintf("%T", event)),
			zap.Error(err),
		)
		return nil
	}
	return nil
}

func (s *billingService) getUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, userID)
		}
		return nil, fmt.Errorf("failed to get user by ID '%s' from repository: %w", userID, err)
	}
	return user, nil
}
