package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"atqr-backend-go/internal/db"
	"atqr-backend-go/internal/models"
)

// Tier values. Free limits match the defaults written at signup; paid limits
// are effectively unlimited but kept as numbers so the documents stay uniform.
const (
	TrialDuration = 7 * 24 * time.Hour

	freeQRLimit       = 10
	freeDynamicLimit  = 0
	trialDynamicLimit = 1
	paidQRLimit       = 1000
	paidDynamicLimit  = 1000
)

// entitlementService implements the EntitlementService interface. Every
// transition is one transactional read-modify-write on the user document,
// driven either by a user action (trial start), a billing event, or the lazy
// expiry check performed at redirect time.
type entitlementService struct {
	userRepo db.UserRepository
	logger   *zap.Logger
}

// NewEntitlementService creates a new EntitlementService instance.
func NewEntitlementService(userRepo db.UserRepository, logger *zap.Logger) EntitlementService {
	return &entitlementService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// StartTrial begins the one-time 7-day trial. The precondition check and the
// update commit atomically, so invoking it twice succeeds exactly once.
func (s *entitlementService) StartTrial(ctx context.Context, userID string) (*TrialGrant, error) {
	now := time.Now().UTC()
	trialEndsAt := now.Add(TrialDuration)

	_, err := s.userRepo.Mutate(ctx, userID, func(user *models.User) error {
		// Can't start a trial if already paid or if the trial was already used.
		if user.Plan == models.PlanPaid || user.TrialUsed {
			return fmt.Errorf("%w: user is not eligible for a trial", ErrFailedPrecondition)
		}
		user.Plan = models.PlanTrial
		user.SubscriptionStatus = models.SubscriptionTrialing
		user.TrialUsed = true
		user.TrialStartedAt = &now
		user.TrialEndsAt = &trialEndsAt
		user.DynamicQRLimit = trialDynamicLimit
		if user.QRLimit == 0 {
			user.QRLimit = freeQRLimit
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, userID)
		}
		if errors.Is(err, ErrFailedPrecondition) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to start trial for user '%s': %w", userID, err)
	}

	return &TrialGrant{Plan: models.PlanTrial, TrialEndsAt: trialEndsAt}, nil
}

// ApplyBillingEvent applies one verified billing event to the owning user.
// Each case is a single conditional update and is idempotent: replaying an
// event never double-extends paidUntil or re-flips trialUsed.
func (s *entitlementService) ApplyBillingEvent(ctx context.Context, event BillingEvent) error {
	switch ev := event.(type) {
	case CheckoutCompleted:
		userID, err := s.resolveAccount(ctx, ev.AccountRef, ev.BillingCustomerRef)
		if err != nil {
			return err
		}
		return s.mutate(ctx, userID, func(user *models.User) error {
			user.Plan = models.PlanPaid
			user.SubscriptionStatus = models.SubscriptionActive
			user.PaidUntil = laterOf(user.PaidUntil, ev.PeriodEnd)
			user.QRLimit = paidQRLimit
			user.DynamicQRLimit = paidDynamicLimit
			user.TrialUsed = true // a purchase consumes the trial
			if user.StripeCustomerID == "" && ev.BillingCustomerRef != "" {
				user.StripeCustomerID = ev.BillingCustomerRef
			}
			return nil
		})

	case InvoicePaid:
		userID, err := s.resolveAccount(ctx, ev.AccountRef, ev.BillingCustomerRef)
		if err != nil {
			return err
		}
		return s.mutate(ctx, userID, func(user *models.User) error {
			user.Plan = models.PlanPaid
			user.SubscriptionStatus = models.SubscriptionActive
			user.PaidUntil = laterOf(user.PaidUntil, ev.PeriodEnd)
			return nil
		})

	case SubscriptionDeleted:
		userID, err := s.resolveAccount(ctx, ev.AccountRef, ev.BillingCustomerRef)
		if err != nil {
			return err
		}
		return s.mutate(ctx, userID, func(user *models.User) error {
			user.Plan = models.PlanFree
			user.SubscriptionStatus = models.SubscriptionInactive
			user.PaidUntil = nil
			user.QRLimit = freeQRLimit
			user.DynamicQRLimit = freeDynamicLimit
			return nil
		})

	case UnknownEvent:
		s.logger.Info("Unhandled billing event type", zap.String("type", ev.Type))
		return nil

	default:
		return nil
	}
}

// ExpireTrial downgrades a trial user to the free tier. The plan check and
// the downgrade commit atomically; a user who already left the trial (paid,
// or expired through another slug) is left untouched.
func (s *entitlementService) ExpireTrial(ctx context.Context, userID string) error {
	_, err := s.userRepo.Mutate(ctx, userID, func(user *models.User) error {
		if user.Plan != models.PlanTrial {
			return db.ErrUnchanged
		}
		user.Plan = models.PlanFree
		user.SubscriptionStatus = models.SubscriptionInactive
		user.DynamicQRLimit = freeDynamicLimit
		// trialUsed stays true: the trial is consumed, not reset.
		return nil
	})
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, userID)
		}
		return fmt.Errorf("failed to expire trial for user '%s': %w", userID, err)
	}
	return nil
}

func (s *entitlementService) mutate(ctx context.Context, userID string, fn func(user *models.User) error) error {
	_, err := s.userRepo.Mutate(ctx, userID, fn)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, userID)
		}
		return fmt.Errorf("failed to apply billing event for user '%s': %w", userID, err)
	}
	return nil
}

// resolveAccount picks the account reference carried by the event, falling
// back to the stored billing-customer link when the event only names the
// customer.
func (s *entitlementService) resolveAccount(ctx context.Context, accountRef, billingCustomerRef string) (string, error) {
	if accountRef != "" {
		return accountRef, nil
	}
	if billingCustomerRef == "" {
		return "", fmt.Errorf("%w: billing event carries no account or customer reference", ErrUserNotFound)
	}
	user, err := s.userRepo.GetByBillingCustomerID(ctx, billingCustomerRef)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return "", fmt.Errorf("%w: no account linked to billing customer '%s'", ErrUserNotFound, billingCustomerRef)
		}
		return "", fmt.Errorf("failed to resolve billing customer '%s': %w", billingCustomerRef, err)
	}
	return user.ID, nil
}

// laterOf keeps paidUntil monotonic: out-of-order renewal events can only
// move the boundary forward.
func laterOf(current *time.Time, candidate time.Time) *time.Time {
	if candidate.IsZero() {
		return current
	}
	if current != nil && current.After(candidate) {
		return current
	}
	return &candidate
}
